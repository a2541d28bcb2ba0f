// Package dcm converts between dense 3D image volumes and their DICOM
// representation, stored either as one multi-frame file or as a directory of
// single-frame files ordered by acquisition instance number.
//
// The package exposes four operations: ReadFile, ReadDir, WriteFile and
// WriteDir. Directory reads discover, validate and order a set of
// single-frame slices into one consistent volume; directory writes split a
// volume into correctly tagged, sequentially numbered slice files. Tag
// parsing, pixel encoding and transfer syntax handling are delegated to
// github.com/suyashkumar/dicom.
package dcm

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dicomvol/pkg/volume"
)

// DefaultExtension is the filename extension recognized and produced by
// directory operations.
const DefaultExtension = ".dcm"

// Options configures a Converter. The zero value is usable; unset fields
// take defaults. Options are passed explicitly rather than held in package
// state so concurrent converters never share hidden configuration.
type Options struct {
	// Extension is the DICOM filename extension, including the leading dot.
	// Matching is case-insensitive. Defaults to DefaultExtension.
	Extension string

	// Window selects how raw intensities are mapped into [0, 1] on read.
	Window WindowMode

	// Logger receives diagnostics for failed operations. Defaults to the
	// standard logger writing to stderr.
	Logger logrus.FieldLogger

	// UIDs generates identifiers for written metadata. Defaults to a fresh
	// generator with the standard namespace roots.
	UIDs *UIDGenerator
}

// Converter performs the four conversion operations with a fixed set of
// options. A Converter is safe for sequential reuse; each operation owns its
// buffers exclusively and releases them before returning.
type Converter struct {
	opts Options
}

// New returns a Converter with the given options. A nil opts selects all
// defaults.
func New(opts *Options) *Converter {
	c := &Converter{}
	if opts != nil {
		c.opts = *opts
	}
	if c.opts.Extension == "" {
		c.opts.Extension = DefaultExtension
	}
	if c.opts.Logger == nil {
		std := logrus.New()
		std.SetOutput(os.Stderr)
		c.opts.Logger = std
	}
	if c.opts.UIDs == nil {
		c.opts.UIDs = NewUIDGenerator()
	}
	return c
}

// ReadFile reads one DICOM object, which may be multi-frame, into a volume.
func (c *Converter) ReadFile(path string) (vol *volume.Volume, err error) {
	defer c.guard("ReadFile", path, &err)
	vol, err = c.readFile(path)
	return vol, c.report("ReadFile", path, err)
}

// ReadDir reads a directory of single-frame DICOM files into one volume.
// The path must be an existing directory; slices are concatenated along z in
// ascending instance-number order, not filename order.
func (c *Converter) ReadDir(path string) (vol *volume.Volume, err error) {
	defer c.guard("ReadDir", path, &err)
	vol, err = c.readDir(path)
	return vol, c.report("ReadDir", path, err)
}

// WriteFile writes a volume to one DICOM object at path. A nil meta selects
// default metadata with freshly generated identifiers.
func (c *Converter) WriteFile(path string, vol *volume.Volume, meta *Meta) (err error) {
	defer c.guard("WriteFile", path, &err)
	m := resolveMeta(meta, c.opts.UIDs)
	return c.report("WriteFile", path, c.writeSlice(path, vol, m))
}

// WriteDir writes a volume into the directory at path, one single-frame file
// per z-plane, named by a zero-padded decimal index. The directory must
// already exist. A failure partway through leaves previously written slice
// files in place; there is no rollback.
func (c *Converter) WriteDir(path string, vol *volume.Volume, meta *Meta) (err error) {
	defer c.guard("WriteDir", path, &err)
	return c.report("WriteDir", path, c.writeDir(path, vol, meta))
}

// guard converts a codec panic into a failure result at the public API
// boundary, so no fault propagates past it.
func (c *Converter) guard(op, path string, err *error) {
	if r := recover(); r != nil {
		*err = errors.Errorf("%s %s: codec fault: %v", op, path, r)
		c.opts.Logger.WithFields(logrus.Fields{"op": op, "path": path}).Error(*err)
	}
}

// report writes a diagnostic for a failed operation and passes the error
// through unchanged.
func (c *Converter) report(op, path string, err error) error {
	if err != nil {
		c.opts.Logger.WithFields(logrus.Fields{"op": op, "path": path}).Error(err)
	}
	return err
}

// ReadFile reads one DICOM object into a volume using default options.
func ReadFile(path string) (*volume.Volume, error) { return New(nil).ReadFile(path) }

// ReadDir reads a directory of DICOM slices into a volume using default
// options.
func ReadDir(path string) (*volume.Volume, error) { return New(nil).ReadDir(path) }

// WriteFile writes a volume to one DICOM object using default options.
func WriteFile(path string, vol *volume.Volume, meta *Meta) error {
	return New(nil).WriteFile(path, vol, meta)
}

// WriteDir writes a volume into a directory of DICOM slices using default
// options.
func WriteDir(path string, vol *volume.Volume, meta *Meta) error {
	return New(nil).WriteDir(path, vol, meta)
}
