// Package signal provides an API to manipulate digital signals. It allows to:
//	- convert non-interleaved data to interleaved and back
//	- convert bit depth for int signals
//	- allocate buffers of defined dimensions
package signal

import (
	"math"
)

// Float64 is a non-interleaved float64 signal, first dimension is
// per-channel.
type Float64 [][]float64

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// AsFloat64 converts interleaved int signal to float64.
func (ints InterInt) AsFloat64() Float64 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	floats := make([][]float64, ints.NumChannels)
	bufSize := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))

	devider := float64(ints.BitDepth.devider())

	for i := range floats {
		floats[i] = make([]float64, bufSize)
		pos := 0
		for j := i; j < len(ints.Data); j = j + ints.NumChannels {
			floats[i][pos] = float64(ints.Data[j]) / devider
			pos++
		}
	}
	return floats
}

// AsInterInt converts float64 signal to interleaved int.
func (floats Float64) AsInterInt(bitDepth BitDepth) []int {
	var numChannels int
	if numChannels = len(floats); numChannels == 0 {
		return nil
	}

	multiplier := float64(bitDepth.multiplier())

	ints := make([]int, len(floats[0])*numChannels)

	for j := range floats {
		for i := range floats[j] {
			ints[i*numChannels+j] = int(floats[j][i] * multiplier)
		}
	}
	return ints
}

// Interleave converts non-interleaved floats to an interleaved flat slice.
// Short channels are padded with zeros.
func (floats Float64) Interleave(out []float64) []float64 {
	numChannels := len(floats)
	if numChannels == 0 {
		return out[:0]
	}
	size := floats.Size()
	if cap(out) < size*numChannels {
		out = make([]float64, size*numChannels)
	}
	out = out[:size*numChannels]
	for i := 0; i < size; i++ {
		for j := 0; j < numChannels; j++ {
			if i < len(floats[j]) {
				out[i*numChannels+j] = floats[j][i]
			} else {
				out[i*numChannels+j] = 0
			}
		}
	}
	return out
}

// EmptyFloat64 returns an empty buffer of specified dimensions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns the number of channels in this sample slice.
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns the length of the longest channel.
func (floats Float64) Size() int {
	var size int
	for i := range floats {
		if len(floats[i]) > size {
			size = len(floats[i])
		}
	}
	return size
}

// Append appends data of the same dimensions to the buffer.
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make([][]float64, source.NumChannels())
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}
