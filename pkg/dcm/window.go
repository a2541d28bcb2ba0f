package dcm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// WindowMode selects how raw stored intensities are windowed into the [0, 1]
// sample range on read.
type WindowMode int

const (
	// WindowFullScale maps the full dynamic range of the stored bit depth
	// onto [0, 1]. This is the default: it is deterministic for any input
	// and inverts the write path's 8-bit scaling exactly.
	WindowFullScale WindowMode = iota

	// WindowMinMax maps the observed minimum and maximum intensity of each
	// file onto [0, 1], maximizing contrast per file.
	WindowMinMax
)

// window is a linear intensity mapping applied to raw stored samples before
// they enter the volume.
type window struct {
	low, high float64
}

// fullScaleWindow returns the default window for the given allocated bit
// depth.
func fullScaleWindow(bitsAllocated int) (window, error) {
	if bitsAllocated < 1 || bitsAllocated > 32 {
		return window{}, fmt.Errorf("unsupported bit depth %d", bitsAllocated)
	}
	return window{low: 0, high: float64(uint64(1)<<uint(bitsAllocated) - 1)}, nil
}

// minMaxWindow returns a window spanning the observed intensity range of the
// given raw samples. A constant image degenerates to the full-scale window so
// the mapping stays defined.
func minMaxWindow(raw []float64, bitsAllocated int) (window, error) {
	if len(raw) == 0 {
		return fullScaleWindow(bitsAllocated)
	}
	lo := floats.Min(raw)
	hi := floats.Max(raw)
	if hi <= lo {
		return fullScaleWindow(bitsAllocated)
	}
	return window{low: lo, high: hi}, nil
}

// apply maps one raw sample into [0, 1], clamping at the window edges.
func (w window) apply(raw float64) float32 {
	if raw <= w.low {
		return 0
	}
	if raw >= w.high {
		return 1
	}
	return float32((raw - w.low) / (w.high - w.low))
}
