package dcm

import (
	"github.com/pkg/errors"
)

// Sentinel errors classifying conversion failures. Wrapped errors carry the
// offending paths and underlying reason; use errors.Is to test the class.
var (
	// ErrNotDirectory reports a directory operation on a non-directory path.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrNoFiles reports a directory read that matched no DICOM files.
	ErrNoFiles = errors.New("no DICOM files found")

	// ErrSeriesMismatch reports slices with differing series identifiers.
	ErrSeriesMismatch = errors.New("slices belong to different series")

	// ErrDimensionMismatch reports slices whose dimensions do not agree.
	ErrDimensionMismatch = errors.New("slice dimensions do not match")

	// ErrUnsupportedImage reports a DICOM object this package cannot decode,
	// such as a color image or encapsulated pixel data.
	ErrUnsupportedImage = errors.New("unsupported DICOM image")

	// ErrInvalidVolume reports a volume that cannot be encoded, such as a
	// released buffer or a multi-channel image on the write path.
	ErrInvalidVolume = errors.New("invalid volume for DICOM output")
)
