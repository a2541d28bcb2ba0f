package dcm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// sliceFile describes one parsed DICOM object: its identity within a series
// and the geometry needed to place its frames in a volume. A sliceFile is
// never mutated after parseSliceFile returns it.
type sliceFile struct {
	path      string
	seriesUID string
	instance  int

	// Dimensions: width, height, frame count, channels.
	nx, ny, nz, nc int

	// Physical voxel spacing in mm.
	ux, uy, uz float64

	// Allocated bit depth of the stored samples, sizing the default window.
	bitsAllocated int

	frames []*frame.Frame
}

// parseSliceFile loads a DICOM file and extracts its identity and geometry,
// validating each attribute in turn. Any missing or out-of-range attribute
// fails the parse; a returned sliceFile is always fully usable.
func parseSliceFile(path string) (*sliceFile, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read DICOM file %s", path)
	}

	sf := &sliceFile{path: path}

	// Series identity.
	sf.seriesUID, err = findString(ds, tag.SeriesInstanceUID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get series UID from file %s", path)
	}
	instStr, err := findString(ds, tag.InstanceNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get instance number from file %s", path)
	}
	sf.instance, err = strconv.Atoi(instStr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid instance number %q in file %s", instStr, path)
	}

	// Color images are not supported.
	if photo, perr := findString(ds, tag.PhotometricInterpretation); perr == nil {
		if !strings.HasPrefix(photo, "MONOCHROME") {
			return nil, errors.Wrapf(ErrUnsupportedImage,
				"file %s has photometric interpretation %q, only monochrome is supported", path, photo)
		}
	}
	if spp, perr := findInt(ds, tag.SamplesPerPixel); perr == nil && spp != 1 {
		return nil, errors.Wrapf(ErrUnsupportedImage,
			"file %s has %d samples per pixel, only monochrome is supported", path, spp)
	}
	sf.nc = 1

	// Dimensions.
	sf.nx, err = findInt(ds, tag.Columns)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get columns from file %s", path)
	}
	sf.ny, err = findInt(ds, tag.Rows)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rows from file %s", path)
	}
	sf.frames, err = pixelFrames(ds)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get pixel data from file %s", path)
	}
	sf.nz = len(sf.frames)
	if sf.nx < 1 || sf.ny < 1 || sf.nz < 1 {
		return nil, errors.Errorf("invalid dimensions for file %s (%d, %d, %d)",
			path, sf.nx, sf.ny, sf.nz)
	}

	// Pixel spacing. The second axis is derived from the height/width
	// spacing ratio, matching the codec's aspect convention.
	spacing, err := findFloats(ds, tag.PixelSpacing)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get pixel spacing from file %s", path)
	}
	sf.ux = spacing[0]
	if sf.ux <= 0 {
		return nil, errors.Errorf("file %s has invalid pixel spacing: %g", path, sf.ux)
	}
	sf.uy = sf.ux * heightWidthRatio(spacing)
	if sf.uy <= 0 {
		return nil, errors.Errorf("file %s has invalid pixel aspect ratio: %g",
			path, heightWidthRatio(spacing))
	}

	// Slice thickness supplies the z spacing.
	thickness, err := findFloats(ds, tag.SliceThickness)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get slice thickness from file %s", path)
	}
	sf.uz = thickness[0]
	if sf.uz <= 0 {
		return nil, errors.Errorf("file %s has invalid slice thickness: %g", path, sf.uz)
	}

	// Bit depth fixes the default intensity window, so later pixel
	// extraction is deterministic.
	sf.bitsAllocated, err = findInt(ds, tag.BitsAllocated)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get bits allocated from file %s", path)
	}
	if _, err := fullScaleWindow(sf.bitsAllocated); err != nil {
		return nil, errors.Wrapf(err, "file %s", path)
	}

	return sf, nil
}

// sameSeries reports whether the other slice belongs to this slice's series.
// Series identifiers are equal exactly when their string comparison is zero.
func (sf *sliceFile) sameSeries(other *sliceFile) bool {
	return strings.Compare(sf.seriesUID, other.seriesUID) == 0
}

// heightWidthRatio derives the row/column spacing ratio from a PixelSpacing
// value. A single-component spacing means square pixels.
func heightWidthRatio(spacing []float64) float64 {
	if len(spacing) < 2 || spacing[0] == 0 {
		return 1
	}
	return spacing[1] / spacing[0]
}

// findString returns the first string value of the element with the given
// tag, trimmed of DICOM padding.
func findString(ds dicom.Dataset, t tag.Tag) (string, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return "", err
	}
	vals, ok := el.Value.GetValue().([]string)
	if !ok || len(vals) == 0 {
		return "", errors.Errorf("element %s has no string value", t.String())
	}
	return strings.TrimSpace(vals[0]), nil
}

// findInt returns the first value of the element with the given tag as an
// integer, accepting both binary and integer-string encodings.
func findInt(ds dicom.Dataset, t tag.Tag) (int, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, err
	}
	switch vals := el.Value.GetValue().(type) {
	case []int:
		if len(vals) == 0 {
			return 0, errors.Errorf("element %s is empty", t.String())
		}
		return vals[0], nil
	case []string:
		if len(vals) == 0 {
			return 0, errors.Errorf("element %s is empty", t.String())
		}
		n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
		if err != nil {
			return 0, errors.Wrapf(err, "element %s is not an integer", t.String())
		}
		return n, nil
	default:
		return 0, errors.Errorf("element %s has unexpected type %T", t.String(), vals)
	}
}

// findFloats returns the values of the element with the given tag as floats,
// accepting decimal-string encodings.
func findFloats(ds dicom.Dataset, t tag.Tag) ([]float64, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, err
	}
	switch vals := el.Value.GetValue().(type) {
	case []float64:
		if len(vals) == 0 {
			return nil, errors.Errorf("element %s is empty", t.String())
		}
		return vals, nil
	case []string:
		if len(vals) == 0 {
			return nil, errors.Errorf("element %s is empty", t.String())
		}
		out := make([]float64, len(vals))
		for i, s := range vals {
			out[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "element %s is not a decimal", t.String())
			}
		}
		return out, nil
	default:
		return nil, errors.Errorf("element %s has unexpected type %T", t.String(), vals)
	}
}

// pixelFrames extracts the native frames of the pixel data element.
func pixelFrames(ds dicom.Dataset) ([]*frame.Frame, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, err
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return nil, errors.Wrap(ErrUnsupportedImage, "pixel data contains no frames")
	}
	return info.Frames, nil
}
