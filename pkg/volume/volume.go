// Package volume provides the dense 3D image buffer shared by the DICOM
// conversion operations. A Volume is a channel-interleaved float32 array with
// physical voxel spacing, addressed by (x, y, z, c) coordinates.
package volume

import (
	"fmt"
)

// Volume represents a dense 3D image with an arbitrary number of channels.
//
// Samples are stored channel-interleaved: the channel index varies fastest,
// then x, then y, then z. The caller owns the buffer exclusively for the
// duration of a conversion call.
type Volume struct {
	// Nx, Ny, Nz are the spatial dimensions in voxels
	Nx, Ny, Nz int

	// Nc is the number of channels per voxel
	Nc int

	// Ux, Uy, Uz are the physical voxel dimensions in real-world units (mm)
	Ux, Uy, Uz float64

	// Data holds the samples in channel-interleaved order
	Data []float32

	// xs, ys, zs are the strides for each spatial axis
	xs, ys, zs int
}

// New allocates a volume with the given dimensions and unit spacing.
// All dimensions must be at least 1.
func New(nx, ny, nz, nc int) (*Volume, error) {
	v := &Volume{Ux: 1, Uy: 1, Uz: 1}
	if err := v.Resize(nx, ny, nz, nc); err != nil {
		return nil, err
	}
	return v, nil
}

// Resize sets the dimensions, recomputes the default strides and reallocates
// the sample buffer. Existing data is discarded. The buffer is only grown,
// never shrunk, so a slice buffer can be reused across planes.
func (v *Volume) Resize(nx, ny, nz, nc int) error {
	if nx < 1 || ny < 1 || nz < 1 || nc < 1 {
		return fmt.Errorf("volume: invalid dimensions (%d, %d, %d, %d)", nx, ny, nz, nc)
	}
	v.Nx, v.Ny, v.Nz, v.Nc = nx, ny, nz, nc
	v.xs = nc
	v.ys = nc * nx
	v.zs = nc * nx * ny
	n := nx * ny * nz * nc
	if cap(v.Data) < n {
		v.Data = make([]float32, n)
	} else {
		v.Data = v.Data[:n]
		for i := range v.Data {
			v.Data[i] = 0
		}
	}
	return nil
}

// SetSpacing sets the physical voxel spacing. All components must be positive.
func (v *Volume) SetSpacing(ux, uy, uz float64) error {
	if ux <= 0 || uy <= 0 || uz <= 0 {
		return fmt.Errorf("volume: invalid spacing (%g, %g, %g)", ux, uy, uz)
	}
	v.Ux, v.Uy, v.Uz = ux, uy, uz
	return nil
}

// Release drops the sample buffer. The volume must be resized before reuse.
func (v *Volume) Release() {
	v.Data = nil
	v.Nx, v.Ny, v.Nz, v.Nc = 0, 0, 0, 0
}

// index computes the buffer offset of (x, y, z, c).
func (v *Volume) index(x, y, z, c int) int {
	return c + x*v.xs + y*v.ys + z*v.zs
}

// At returns the sample at (x, y, z, c).
func (v *Volume) At(x, y, z, c int) float32 {
	return v.Data[v.index(x, y, z, c)]
}

// Set stores a sample at (x, y, z, c).
func (v *Volume) Set(x, y, z, c int, val float32) {
	v.Data[v.index(x, y, z, c)] = val
}

// CopyPlaneFrom copies the z=srcZ plane of src into the z=dstZ plane of v.
// Both volumes must share (Nx, Ny, Nc).
func (v *Volume) CopyPlaneFrom(src *Volume, srcZ, dstZ int) error {
	if src.Nx != v.Nx || src.Ny != v.Ny || src.Nc != v.Nc {
		return fmt.Errorf("volume: plane dimensions (%d, %d, %d) do not match (%d, %d, %d)",
			src.Nx, src.Ny, src.Nc, v.Nx, v.Ny, v.Nc)
	}
	if srcZ < 0 || srcZ >= src.Nz || dstZ < 0 || dstZ >= v.Nz {
		return fmt.Errorf("volume: plane index out of range (src %d of %d, dst %d of %d)",
			srcZ, src.Nz, dstZ, v.Nz)
	}
	n := v.Nx * v.Ny * v.Nc
	copy(v.Data[dstZ*v.zs:dstZ*v.zs+n], src.Data[srcZ*src.zs:srcZ*src.zs+n])
	return nil
}
