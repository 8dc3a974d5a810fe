/*
DESCRIPTION
  stats_test.go provides testing for the location, scale and line fit
  estimators.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package stats

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{1}, 1},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{0.1, 0.1, 0.1, 0.1, 0.5}, 0.1},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.want {
			t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMedianDoesNotModifyInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("Median modified its input: %v", in)
	}
}

func TestMAD(t *testing.T) {
	xs := []float64{1, 1, 2, 2, 4, 6, 9}
	m := Median(xs) // 2
	if got := MAD(xs, m); !almost(got, MADNormalization*1, 1e-12) {
		t.Errorf("MAD = %v, want %v", got, MADNormalization)
	}
	if got := MAD([]float64{5, 5, 5}, 5); got != 0 {
		t.Errorf("MAD of constant data = %v, want 0", got)
	}
}

func TestAvgDev(t *testing.T) {
	xs := []float64{0, 2}
	if got := AvgDev(xs, 1); got != 1 {
		t.Errorf("AvgDev = %v, want 1", got)
	}
}

func TestBWMVConstantData(t *testing.T) {
	if got := BWMV([]float64{2, 2, 2, 2}, 2); got != 0 {
		t.Errorf("BWMV of constant data = %v, want 0", got)
	}
}

func TestBWMVApproximatesSigma(t *testing.T) {
	// A symmetric, well-behaved sample: BWMV should land near the true
	// dispersion scale.
	var xs []float64
	for i := -50; i <= 50; i++ {
		xs = append(xs, float64(i)/25)
	}
	got := BWMV(xs, 0)
	if got <= 0.8 || got >= 1.6 {
		t.Errorf("BWMV = %v, want a value near the uniform sigma 1.16", got)
	}
}

func TestTwoSidedScale(t *testing.T) {
	// Asymmetric data: wider spread above the median than below.
	xs := []float64{9, 9.5, 10, 12, 14}
	lo, hi := TwoSidedScale(ScaleAvgDev, xs, 10)
	if lo >= hi {
		t.Errorf("expected low scale %v < high scale %v", lo, hi)
	}
}

func TestLineFitL1(t *testing.T) {
	// Perfect line y = 2x + 1.
	ys := []float64{1, 3, 5, 7, 9}
	a, b := LineFitL1(ys)
	if !almost(a, 2, 1e-12) || !almost(b, 1, 1e-12) {
		t.Errorf("LineFitL1 = (%v, %v), want (2, 1)", a, b)
	}
}

func TestLineFitL1Outlier(t *testing.T) {
	// One gross outlier must not drag the slope.
	ys := []float64{0, 1, 2, 3, 4, 5, 6, 7, 100}
	a, _ := LineFitL1(ys)
	if !almost(a, 1, 0.2) {
		t.Errorf("LineFitL1 slope = %v, want close to 1", a)
	}
}

func TestKSigmaNoise(t *testing.T) {
	// Constant data has no noise.
	if got := KSigmaNoise([]float64{1, 1, 1, 1}, 3); got != 0 {
		t.Errorf("KSigmaNoise of constant data = %v, want 0", got)
	}
	// Alternating data has the population sigma of its values.
	xs := make([]float64, 100)
	for i := range xs {
		if i%2 == 0 {
			xs[i] = -1
		} else {
			xs[i] = 1
		}
	}
	got := KSigmaNoise(xs, 3)
	if !almost(got, 1, 0.05) {
		t.Errorf("KSigmaNoise = %v, want about 1", got)
	}
}

func TestNStarNoise(t *testing.T) {
	xs := []float64{1, 1, 2, 2, 4, 6, 9}
	want := MAD(xs, Median(xs))
	if got := NStarNoise(xs); got != want {
		t.Errorf("NStarNoise = %v, want %v", got, want)
	}
}

func TestMRSNoiseFlat(t *testing.T) {
	// A flat image has a zero first detail layer; the estimator must fall
	// back rather than report a spurious sigma.
	data := make([]float64, 64*64)
	for i := range data {
		data[i] = 0.25
	}
	sigma, ok := MRSNoise(data, 64, 64, 0.01)
	if ok {
		t.Errorf("expected MRS fallback on flat data, got sigma=%v ok=%v", sigma, ok)
	}
	if sigma != 0 {
		t.Errorf("flat data noise = %v, want 0", sigma)
	}
}
