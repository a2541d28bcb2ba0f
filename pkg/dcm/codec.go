package dcm

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomvol/pkg/volume"
)

// Well-known UIDs used on the write path. Output is always uncompressed
// explicit-VR little endian; compressed syntaxes are not produced.
const (
	uidExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	uidCTImageStorage         = "1.2.840.10008.5.1.4.1.1.2"
)

// readFile parses one DICOM object and decodes it into a freshly allocated
// volume sized from its descriptor.
func (c *Converter) readFile(path string) (*volume.Volume, error) {
	sf, err := parseSliceFile(path)
	if err != nil {
		return nil, err
	}
	return c.readSlice(sf)
}

// readSlice decodes a parsed slice file into a volume. Each frame becomes one
// z-plane; raw samples pass through the intensity window into [0, 1].
func (c *Converter) readSlice(sf *sliceFile) (*volume.Volume, error) {
	raw := make([][]float64, sf.nz)
	for i, fr := range sf.frames {
		samples, err := frameSamples(fr)
		if err != nil {
			return nil, errors.Wrapf(err, "could not get data from image %s frame %d", sf.path, i)
		}
		if len(samples) != sf.nx*sf.ny {
			return nil, errors.Errorf("image %s frame %d has %d samples, expected %d",
				sf.path, i, len(samples), sf.nx*sf.ny)
		}
		raw[i] = samples
	}

	win, err := c.sliceWindow(sf, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", sf.path)
	}

	vol, err := volume.New(sf.nx, sf.ny, sf.nz, sf.nc)
	if err != nil {
		return nil, err
	}
	if err := vol.SetSpacing(sf.ux, sf.uy, sf.uz); err != nil {
		vol.Release()
		return nil, err
	}
	for z, samples := range raw {
		for y := 0; y < sf.ny; y++ {
			for x := 0; x < sf.nx; x++ {
				vol.Set(x, y, z, 0, win.apply(samples[x+y*sf.nx]))
			}
		}
	}
	return vol, nil
}

// sliceWindow builds the intensity window for one file according to the
// configured mode.
func (c *Converter) sliceWindow(sf *sliceFile, raw [][]float64) (window, error) {
	if c.opts.Window == WindowMinMax {
		var all []float64
		for _, samples := range raw {
			all = append(all, samples...)
		}
		return minMaxWindow(all, sf.bitsAllocated)
	}
	return fullScaleWindow(sf.bitsAllocated)
}

// frameSamples returns the raw stored samples of one native monochrome frame.
func frameSamples(fr *frame.Frame) ([]float64, error) {
	if fr.Encapsulated {
		return nil, errors.Wrap(ErrUnsupportedImage, "encapsulated pixel data")
	}
	switch nd := fr.NativeData.(type) {
	case *frame.NativeFrame[uint8]:
		return widenSamples(nd.RawData), nil
	case *frame.NativeFrame[uint16]:
		return widenSamples(nd.RawData), nil
	case *frame.NativeFrame[uint32]:
		return widenSamples(nd.RawData), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedImage, "native frame type %T", fr.NativeData)
	}
}

func widenSamples[T uint8 | uint16 | uint32](raw []T) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out
}

// writeSlice encodes a single-channel volume as one DICOM object at path.
// Samples are assumed to lie in [0, 1]; they are clamped and rescaled to
// 8-bit before encoding.
func (c *Converter) writeSlice(path string, vol *volume.Volume, meta *Meta) error {
	if vol == nil || vol.Data == nil {
		return errors.Wrap(ErrInvalidVolume, "volume has no data")
	}
	if vol.Nc != 1 {
		return errors.Wrapf(ErrInvalidVolume,
			"image has %d channels, only single-channel images are supported", vol.Nc)
	}
	if err := meta.validate(); err != nil {
		return errors.Wrap(err, "invalid metadata")
	}

	ds := buildDataset(vol, meta)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", path)
	}
	defer f.Close()
	if err := dicom.Write(f, ds); err != nil {
		return errors.Wrapf(err, "failed to write file %s", path)
	}
	return nil
}

// buildDataset populates every attribute required for a monochrome
// explicit-little-endian image object. Element construction panics on a VR
// mismatch; the public API boundary converts that into a failure result.
func buildDataset(vol *volume.Volume, meta *Meta) dicom.Dataset {
	sliceLocation := vol.Uz * float64(meta.InstanceNumber-1)
	spacing := []string{formatDS(vol.Ux), formatDS(vol.Uy)}

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{uidExplicitVRLittleEndian}),
		mustNewElement(tag.MediaStorageSOPClassUID, []string{uidCTImageStorage}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{meta.InstanceUID}),
		mustNewElement(tag.ImageType, []string{"DERIVED"}),
		mustNewElement(tag.SOPClassUID, []string{uidCTImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{meta.InstanceUID}),
		mustNewElement(tag.SeriesDescription, []string{meta.SeriesDescrip}),
		mustNewElement(tag.PatientName, []string{meta.PatientName}),
		mustNewElement(tag.PatientID, []string{meta.PatientID}),
		mustNewElement(tag.SliceThickness, []string{formatDS(vol.Uz)}),
		mustNewElement(tag.StudyInstanceUID, []string{meta.StudyUID}),
		mustNewElement(tag.SeriesInstanceUID, []string{meta.SeriesUID}),
		mustNewElement(tag.InstanceNumber, []string{strconv.Itoa(meta.InstanceNumber)}),
		mustNewElement(tag.SliceLocation, []string{formatDS(sliceLocation)}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.NumberOfFrames, []string{strconv.Itoa(vol.Nz)}),
		mustNewElement(tag.Rows, []int{vol.Ny}),
		mustNewElement(tag.Columns, []int{vol.Nx}),
		mustNewElement(tag.PixelSpacing, spacing),
		mustNewElement(tag.PixelAspectRatio, spacing),
		mustNewElement(tag.BitsAllocated, []int{8}),
		mustNewElement(tag.BitsStored, []int{8}),
		mustNewElement(tag.HighBit, []int{7}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.PixelData, encodePixelData(vol)),
	}
	return dicom.Dataset{Elements: elements}
}

// encodePixelData renders the volume to 8-bit native frames, one per z-plane.
func encodePixelData(vol *volume.Volume) dicom.PixelDataInfo {
	frames := make([]*frame.Frame, vol.Nz)
	for z := 0; z < vol.Nz; z++ {
		nf := frame.NewNativeFrame[uint8](8, vol.Ny, vol.Nx, vol.Nx*vol.Ny, 1)
		for y := 0; y < vol.Ny; y++ {
			for x := 0; x < vol.Nx; x++ {
				nf.RawData[y*vol.Nx+x] = quantize(vol.At(x, y, z, 0))
			}
		}
		frames[z] = &frame.Frame{Encapsulated: false, NativeData: nf}
	}
	return dicom.PixelDataInfo{Frames: frames}
}

// quantize maps a [0, 1] sample to 8 bits, clamping out-of-range input.
func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

// formatDS renders a float as a DICOM decimal string.
func formatDS(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// mustNewElement builds an element or panics; used for attributes whose tag
// and value type are fixed at compile time.
func mustNewElement(t tag.Tag, data interface{}) *dicom.Element {
	el, err := dicom.NewElement(t, data)
	if err != nil {
		panic(errors.Wrapf(err, "failed to set attribute %s", t.String()))
	}
	return el
}
