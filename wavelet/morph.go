/*
DESCRIPTION
  morph.go provides the binary morphology used after the large-scale
  wavelet reconstruction: 8-connected dilation of a boolean mask by an
  integer radius.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package wavelet

// Dilate returns mask (w x h) dilated by growth pixels under 8-connectivity,
// i.e. a pixel is set iff some set pixel of mask lies within Chebyshev
// distance growth. growth <= 0 returns a copy of mask.
func Dilate(mask []bool, w, h, growth int) []bool {
	out := make([]bool, len(mask))
	if growth <= 0 {
		copy(out, mask)
		return out
	}
	// Two-pass separable dilation: rows then columns.
	tmp := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			lo, hi := x-growth, x+growth
			if lo < 0 {
				lo = 0
			}
			if hi >= w {
				hi = w - 1
			}
			for i := lo; i <= hi; i++ {
				tmp[y*w+i] = true
			}
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if !tmp[y*w+x] {
				continue
			}
			lo, hi := y-growth, y+growth
			if lo < 0 {
				lo = 0
			}
			if hi >= h {
				hi = h - 1
			}
			for i := lo; i <= hi; i++ {
				out[i*w+x] = true
			}
		}
	}
	return out
}
