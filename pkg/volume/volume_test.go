package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesDimensions(t *testing.T) {
	cases := []struct {
		name           string
		nx, ny, nz, nc int
	}{
		{"zero x", 0, 4, 4, 1},
		{"zero y", 4, 0, 4, 1},
		{"zero z", 4, 4, 0, 1},
		{"zero c", 4, 4, 4, 0},
		{"negative", -1, 4, 4, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.nx, tc.ny, tc.nz, tc.nc)
			assert.Error(t, err)
		})
	}

	v, err := New(2, 3, 4, 2)
	require.NoError(t, err)
	assert.Len(t, v.Data, 2*3*4*2)
	assert.Equal(t, 1.0, v.Ux)
}

func TestSetSpacing(t *testing.T) {
	v, err := New(1, 1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, v.SetSpacing(0.5, 0.75, 2.0))
	assert.Equal(t, 0.5, v.Ux)
	assert.Equal(t, 0.75, v.Uy)
	assert.Equal(t, 2.0, v.Uz)

	assert.Error(t, v.SetSpacing(0, 1, 1))
	assert.Error(t, v.SetSpacing(1, -1, 1))
	assert.Error(t, v.SetSpacing(1, 1, 0))
}

// TestStrideAddressing verifies the channel-interleaved layout: the channel
// index varies fastest, then x, then y, then z.
func TestStrideAddressing(t *testing.T) {
	v, err := New(2, 2, 2, 2)
	require.NoError(t, err)

	v.Set(1, 0, 0, 0, 1)
	v.Set(0, 1, 0, 1, 2)
	v.Set(0, 0, 1, 0, 3)

	assert.Equal(t, float32(1), v.Data[2])       // x stride = nc
	assert.Equal(t, float32(2), v.Data[2*2+1])   // y stride = nc*nx
	assert.Equal(t, float32(3), v.Data[2*2*2])   // z stride = nc*nx*ny
	assert.Equal(t, float32(1), v.At(1, 0, 0, 0))
	assert.Equal(t, float32(3), v.At(0, 0, 1, 0))
}

func TestResizeReusesBuffer(t *testing.T) {
	v, err := New(4, 4, 4, 1)
	require.NoError(t, err)
	v.Set(0, 0, 0, 0, 7)

	// Shrinking keeps the allocation but clears the contents.
	require.NoError(t, v.Resize(2, 2, 2, 1))
	assert.Len(t, v.Data, 8)
	for i, s := range v.Data {
		assert.Zerof(t, s, "sample %d not cleared", i)
	}

	require.Error(t, v.Resize(0, 2, 2, 1))
}

func TestRelease(t *testing.T) {
	v, err := New(2, 2, 2, 1)
	require.NoError(t, err)
	v.Release()
	assert.Nil(t, v.Data)
	assert.Zero(t, v.Nx)
}

func TestCopyPlaneFrom(t *testing.T) {
	src, err := New(2, 2, 3, 1)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.Set(x, y, 2, 0, float32(x+y*2))
		}
	}

	dst, err := New(2, 2, 5, 1)
	require.NoError(t, err)
	require.NoError(t, dst.CopyPlaneFrom(src, 2, 4))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, float32(x+y*2), dst.At(x, y, 4, 0))
		}
	}

	// Mismatched plane shapes and out-of-range indices are rejected.
	other, err := New(3, 2, 1, 1)
	require.NoError(t, err)
	assert.Error(t, dst.CopyPlaneFrom(other, 0, 0))
	assert.Error(t, dst.CopyPlaneFrom(src, 3, 0))
	assert.Error(t, dst.CopyPlaneFrom(src, 0, 5))
}
