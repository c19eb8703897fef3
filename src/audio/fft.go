package audio

import (
	"log"
	"math"
	"math/cmplx"
)

// FFT computes forward transforms of a fixed power-of-two length.
type FFT struct {
	bitReverseTable []int
	wTable          []complex128
	work            []complex128
}

// NewFFT ...
func NewFFT(length int) *FFT {
	return &FFT{
		bitReverseTable: makeBitReverseTable(length),
		wTable:          makeWTable(length),
		work:            make([]complex128, length),
	}
}
func makeBitReverseTable(n int) []int {
	array := make([]int, n)
	for i := 0; i < n; i++ {
		array[i] = bitReverse(i, n)
	}
	return array
}
func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}
func makeWTable(n int) []complex128 {
	array := make([]complex128, n)
	w := -2.0 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		array[i] = cmplx.Exp(complex(0, w*float64(i)))
	}
	return array
}

// Calc transforms x in place (radix-2, decimation in time).
func (fft *FFT) Calc(x []complex128) {
	n := len(x)
	if n != len(fft.bitReverseTable) {
		log.Fatalf("length should be %v", len(fft.bitReverseTable))
	}
	for i, rev := range fft.bitReverseTable {
		if i < rev {
			x[i], x[rev] = x[rev], x[i]
		}
	}
	for half := 1; half < n; half <<= 1 {
		span := half << 1
		stride := n / span
		for k := 0; k < half; k++ {
			w := fft.wTable[stride*k]
			for i := k; i < n; i += span {
				j := i + half
				tmp := x[j] * w
				x[j] = x[i] - tmp
				x[i] = x[i] + tmp
			}
		}
	}
}

// CalcAbs replaces the real signal x with the magnitude of its spectrum.
func (fft *FFT) CalcAbs(x []float64) {
	cx := fft.work[:len(x)]
	for i, value := range x {
		cx[i] = complex(value, 0)
	}
	fft.Calc(cx)
	for i, value := range cx {
		x[i] = cmplx.Abs(value)
	}
}
