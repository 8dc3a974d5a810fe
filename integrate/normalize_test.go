/*
DESCRIPTION
  normalize_test.go provides testing for the normalization regimes and
  the thin-plate spline surfaces.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package integrate

import (
	"math"
	"testing"

	"github.com/ausocean/astro/image"
)

func frameWithStats(loc, sLo, sHi float64) *IntegrationFile {
	return &IntegrationFile{
		geom: image.Geometry{Width: 8, Height: 8, Channels: 1},
		stats: &FrameStats{
			Width: 8, Height: 8, Channels: 1,
			Location:  []float64{loc},
			Mean:      []float64{loc},
			ScaleLow:  []float64{sLo},
			ScaleHigh: []float64{sHi},
			Noise:     []float64{0.01},
		},
	}
}

func TestNormalizeAdditive(t *testing.T) {
	f := frameWithStats(0.3, 0.05, 0.05)
	ref := frameWithStats(0.2, 0.05, 0.05)
	n := newNormalizer(NormAdditive, false, f, ref, 0)
	if got := n.normalize(0.5, 0, 0); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("additive = %v, want 0.4", got)
	}
}

func TestNormalizeMultiplicative(t *testing.T) {
	f := frameWithStats(0.4, 0.05, 0.05)
	ref := frameWithStats(0.2, 0.05, 0.05)
	n := newNormalizer(NormMultiplicative, false, f, ref, 0)
	if got := n.normalize(0.8, 0, 0); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("multiplicative = %v, want 0.4", got)
	}
}

func TestNormalizeAdditiveScalingSides(t *testing.T) {
	// Distinct two-sided scales must be selected by sample side.
	f := frameWithStats(0.5, 0.1, 0.2)
	ref := frameWithStats(0.5, 0.2, 0.1)
	n := newNormalizer(NormAdditiveScaling, false, f, ref, 0)
	// Low side: factor 0.2/0.1 = 2.
	if got := n.normalize(0.4, 0, 0); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("low side = %v, want 0.3", got)
	}
	// High side: factor 0.1/0.2 = 0.5.
	if got := n.normalize(0.7, 0, 0); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("high side = %v, want 0.6", got)
	}
}

func TestNormalizeLocal(t *testing.T) {
	f := frameWithStats(0.5, 0.1, 0.1)
	w, h := f.geom.Width, f.geom.Height
	f.localA = [][]float32{make([]float32, w*h)}
	f.localB = [][]float32{make([]float32, w*h)}
	for i := range f.localA[0] {
		f.localA[0][i] = 2
		f.localB[0][i] = 0.1
	}
	ref := frameWithStats(0.5, 0.1, 0.1)
	n := newNormalizer(NormLocal, false, f, ref, 0)
	// The offset plane is stored as float32, so 0.1 enters at float32
	// precision.
	want := 2*0.2 + float64(float32(0.1))
	if got := n.normalize(0.2, 3, 4); math.Abs(got-want) > 1e-12 {
		t.Errorf("local = %v, want %v", got, want)
	}
}

func TestAdaptiveGridOneReducesToAdditiveScaling(t *testing.T) {
	// A 1x1 adaptive grid holding the global statistics must reproduce
	// additive normalization with scaling exactly.
	mk := func(loc, sLo, sHi float64) *IntegrationFile {
		f := frameWithStats(loc, sLo, sHi)
		f.stats.GridSize = 1
		f.stats.AdaptiveLocation = [][]float64{{loc}}
		f.stats.AdaptiveScaleLow = [][]float64{{sLo}}
		f.stats.AdaptiveScaleHigh = [][]float64{{sHi}}
		s, err := newAdaptiveSurface(f.stats, 0, 8, 8)
		if err != nil {
			t.Fatalf("surface: %v", err)
		}
		f.adaptive = []adaptiveSurface{s}
		return f
	}
	f := mk(0.3, 0.05, 0.08)
	ref := mk(0.25, 0.06, 0.04)

	na := newNormalizer(NormAdaptive, false, f, ref, 0)
	ns := newNormalizer(NormAdditiveScaling, false, f, ref, 0)
	for _, s := range []float64{0.1, 0.29, 0.3, 0.31, 0.9} {
		got, want := na.normalize(s, 2, 5), ns.normalize(s, 2, 5)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("sample %v: adaptive %v != additive scaling %v", s, got, want)
		}
	}
}

func TestTPSInterpolatesControlPoints(t *testing.T) {
	xs := []float64{0, 4, 8, 0, 4, 8, 0, 4, 8}
	ys := []float64{0, 0, 0, 4, 4, 4, 8, 8, 8}
	vs := []float64{0.1, 0.2, 0.3, 0.2, 0.4, 0.5, 0.3, 0.5, 0.9}
	s, err := fitTPS(xs, ys, vs)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	for i := range xs {
		got := s.eval(xs[i], ys[i])
		if math.Abs(got-vs[i]) > 1e-8 {
			t.Errorf("control point %d: %v, want %v", i, got, vs[i])
		}
	}
}
