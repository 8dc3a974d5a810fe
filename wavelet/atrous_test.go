/*
DESCRIPTION
  atrous_test.go provides testing for the stationary wavelet transform
  and the binary morphology.

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

import (
	"math"
	"testing"
)

func TestDecomposeReconstructs(t *testing.T) {
	const w, h = 8, 8
	src := make([]float64, w*h)
	for i := range src {
		src[i] = float64(i%7) * 0.13
	}
	layers := Decompose(src, w, h, 3)
	if len(layers) != 4 {
		t.Fatalf("got %d layers, want 4", len(layers))
	}
	for i := range src {
		var sum float64
		for _, l := range layers {
			sum += l[i]
		}
		if math.Abs(sum-src[i]) > 1e-12 {
			t.Fatalf("reconstruction differs at %d: %v vs %v", i, sum, src[i])
		}
	}
}

func TestDecomposeConstant(t *testing.T) {
	const w, h = 6, 5
	src := make([]float64, w*h)
	for i := range src {
		src[i] = 0.4
	}
	layers := Decompose(src, w, h, 2)
	for li, l := range layers[:2] {
		for i, v := range l {
			if math.Abs(v) > 1e-12 {
				t.Fatalf("detail layer %d has nonzero coefficient %v at %d", li, v, i)
			}
		}
	}
}

func TestLargeScaleBlockLevels(t *testing.T) {
	// A 3x3 block with two protected layers: the reconstruction must stay
	// above the binarization level inside the block and fall below it
	// immediately outside, so the structure's extent survives intact.
	const w, h = 16, 16
	src := make([]float64, w*h)
	for y := 6; y <= 8; y++ {
		for x := 6; x <= 8; x++ {
			src[y*w+x] = 1
		}
	}
	rec := LargeScale(src, w, h, 2)
	const threshold = 0.1875
	for y := 6; y <= 8; y++ {
		for x := 6; x <= 8; x++ {
			if rec[y*w+x] <= threshold {
				t.Errorf("inside (%d,%d) = %v, want > %v", x, y, rec[y*w+x], threshold)
			}
		}
	}
	outside := [][2]int{{5, 7}, {9, 7}, {7, 5}, {7, 9}, {9, 9}, {5, 5}}
	for _, p := range outside {
		if rec[p[1]*w+p[0]] > threshold {
			t.Errorf("outside (%d,%d) = %v, want <= %v", p[0], p[1], rec[p[1]*w+p[0]], threshold)
		}
	}
}

func TestDilate(t *testing.T) {
	const w, h = 7, 7
	mask := make([]bool, w*h)
	mask[3*w+3] = true
	out := Dilate(mask, w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := x >= 2 && x <= 4 && y >= 2 && y <= 4
			if out[y*w+x] != want {
				t.Errorf("dilated(%d,%d) = %v, want %v", x, y, out[y*w+x], want)
			}
		}
	}
}

func TestDilateZeroGrowth(t *testing.T) {
	mask := []bool{true, false, false, true}
	out := Dilate(mask, 2, 2, 0)
	for i := range mask {
		if out[i] != mask[i] {
			t.Fatalf("zero growth altered the mask at %d", i)
		}
	}
}
