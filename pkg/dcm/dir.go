package dcm

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"dicomvol/pkg/volume"
)

// readDir assembles a directory of single-frame DICOM files into one volume.
func (c *Converter) readDir(path string) (*volume.Volume, error) {
	// Verify the input path is an existing directory.
	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot find file %s", path)
	}
	if !st.IsDir() {
		return nil, errors.Wrapf(ErrNotDirectory, "file %s", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", path)
	}

	// Parse every file with the recognized DICOM extension. One invalid
	// slice aborts the whole operation.
	var slices []*sliceFile
	for _, ent := range entries {
		if ent.IsDir() || !c.matchesExtension(ent.Name()) {
			continue
		}
		sf, err := parseSliceFile(filepath.Join(path, ent.Name()))
		if err != nil {
			return nil, err
		}
		slices = append(slices, sf)
	}
	if len(slices) == 0 {
		return nil, errors.Wrapf(ErrNoFiles, "in %s", path)
	}

	// The first slice by enumeration order is the reference: all others
	// must share its series and dimensions.
	ref := slices[0]
	for _, sf := range slices[1:] {
		if !ref.sameSeries(sf) {
			return nil, errors.Wrapf(ErrSeriesMismatch,
				"file %s is from a different series than file %s", sf.path, ref.path)
		}
	}
	nz := 0
	for _, sf := range slices {
		if sf.nx != ref.nx || sf.ny != ref.ny || sf.nc != ref.nc {
			return nil, errors.Wrapf(ErrDimensionMismatch,
				"slice %s (%dx, %dy, %dc) does not match the dimensions of slice %s (%dx, %dy, %dc)",
				sf.path, sf.nx, sf.ny, sf.nc, ref.path, ref.nx, ref.ny, ref.nc)
		}
		nz += sf.nz
	}

	out, err := volume.New(ref.nx, ref.ny, nz, ref.nc)
	if err != nil {
		return nil, err
	}
	if err := out.SetSpacing(ref.ux, ref.uy, ref.uz); err != nil {
		out.Release()
		return nil, err
	}

	// Concatenate along z in ascending instance order. The sort is stable,
	// so slices with equal instance numbers keep their encounter order.
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].instance < slices[j].instance
	})

	offZ := 0
	for _, sf := range slices {
		sub, err := c.readSlice(sf)
		if err != nil {
			out.Release()
			return nil, err
		}
		for z := 0; z < sub.Nz; z++ {
			if err := out.CopyPlaneFrom(sub, z, offZ+z); err != nil {
				sub.Release()
				out.Release()
				return nil, err
			}
		}
		offZ += sub.Nz
		sub.Release()
	}
	if offZ != nz {
		out.Release()
		return nil, errors.Errorf("internal: assembled %d planes, expected %d", offZ, nz)
	}
	return out, nil
}

// writeDir decomposes a volume into one single-frame file per z-plane,
// named by a zero-padded 0-based index. Already-written files are left in
// place when a later slice fails.
func (c *Converter) writeDir(path string, vol *volume.Volume, meta *Meta) error {
	if vol == nil || vol.Data == nil {
		return errors.Wrap(ErrInvalidVolume, "volume has no data")
	}

	m := resolveMeta(meta, c.opts.UIDs)

	// Zero-pad width so that slice indices sort correctly as filenames:
	// 10 slices pad to 1 digit, 100 slices to 2.
	numSlices := vol.Nz
	numZeros := int(math.Ceil(math.Log10(float64(numSlices))))
	pattern := fmt.Sprintf("%%0%dd%s", numZeros, c.opts.Extension)

	// One reusable single-frame buffer for all slices.
	slice, err := volume.New(vol.Nx, vol.Ny, 1, vol.Nc)
	if err != nil {
		return err
	}
	defer slice.Release()
	if err := slice.SetSpacing(vol.Ux, vol.Uy, vol.Uz); err != nil {
		return err
	}

	for i := 0; i < numSlices; i++ {
		if err := slice.CopyPlaneFrom(vol, i, 0); err != nil {
			return err
		}

		// Each slice gets a fresh SOP instance UID and a 1-based instance
		// number; everything else in the metadata is held constant.
		m.InstanceUID = c.opts.UIDs.InstanceUID()
		m.InstanceNumber = i + 1

		name := fmt.Sprintf(pattern, i)
		if err := c.writeSlice(filepath.Join(path, name), slice, m); err != nil {
			return errors.Wrapf(err, "failed to write slice %d", i)
		}
	}
	return nil
}

// matchesExtension reports whether a filename carries the configured DICOM
// extension, ignoring case.
func (c *Converter) matchesExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), c.opts.Extension)
}
