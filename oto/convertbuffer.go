package oto

import (
	"encoding/binary"
	"math"

	"github.com/viterin/vek/vek32"
)

// SamplesToFloat converts 8-bit board samples to float32 and scales full
// scale (255) to gain.
func SamplesToFloat(dst []float32, src []uint8, gain float32) {
	for i, v := range src {
		dst[i] = float32(v)
	}
	vek32.MulNumber_Inplace(dst[:len(src)], gain/255)
}

// RMS returns the root mean square of x, using tmp (len(x) or longer) as
// scratch space.
func RMS(tmp, x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	power := vek32.Mul_Into(tmp[:len(x)], x, x)
	return float32(math.Sqrt(float64(vek32.Mean(power))))
}

// FloatBufferToLE writes src as 32-bit little-endian floats into dst, which
// must hold 4*len(src) bytes.
func FloatBufferToLE(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
}
