/*
DESCRIPTION
  atrous.go implements the stationary (à trous) wavelet transform with the
  B3 spline scaling kernel. The transform is separable; level j convolves
  with the 5-tap kernel spaced 2^j samples apart under mirror boundary
  extension. It backs both the multiresolution-support noise estimator and
  large-scale rejection growth.

AUTHORS
  Dan Kortschak <dan@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wavelet provides a stationary wavelet transform and the binary
// morphology used to grow rejection structures.
package wavelet

// B3 spline scaling kernel.
var kernel = [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// mirror reflects index i into [0,n).
func mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// smooth convolves src (w x h) with the à trous kernel at the given hole
// spacing, writing to dst. tmp must hold w*h samples.
func smooth(dst, tmp, src []float64, w, h, spacing int) {
	// Rows.
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		out := tmp[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var s float64
			for k := -2; k <= 2; k++ {
				s += kernel[k+2] * row[mirror(x+k*spacing, w)]
			}
			out[x] = s
		}
	}
	// Columns.
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var s float64
			for k := -2; k <= 2; k++ {
				s += kernel[k+2] * tmp[mirror(y+k*spacing, h)*w+x]
			}
			dst[y*w+x] = s
		}
	}
}

// Decompose performs a stationary wavelet decomposition of src (w x h)
// into levels detail layers plus a residual. The returned slice holds the
// detail layers d1..dlevels followed by the residual; summing all of them
// reconstructs src exactly.
func Decompose(src []float64, w, h, levels int) [][]float64 {
	cur := append([]float64(nil), src...)
	next := make([]float64, len(src))
	tmp := make([]float64, len(src))
	out := make([][]float64, 0, levels+1)
	spacing := 1
	for j := 0; j < levels; j++ {
		smooth(next, tmp, cur, w, h, spacing)
		detail := make([]float64, len(src))
		for i := range detail {
			detail[i] = cur[i] - next[i]
		}
		out = append(out, detail)
		cur, next = next, cur
		spacing *= 2
	}
	residual := append([]float64(nil), cur...)
	out = append(out, residual)
	return out
}

// LargeScale reconstructs src with its first protected small-scale detail
// layers removed. The result is the sum of detail layers
// d(protected+1).. plus the residual of a (protected+1)-level
// decomposition.
func LargeScale(src []float64, w, h, protected int) []float64 {
	layers := Decompose(src, w, h, protected+1)
	out := make([]float64, len(src))
	for _, l := range layers[protected:] {
		for i, v := range l {
			out[i] += v
		}
	}
	return out
}
