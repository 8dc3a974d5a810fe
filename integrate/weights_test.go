/*
DESCRIPTION
  weights_test.go provides testing for the frame weight estimator.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

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

func weightFrame(loc, mean, noise float64, headers map[string]string) *IntegrationFile {
	g := image.Geometry{Width: 2, Height: 2, Channels: 1}
	src := image.NewMemSource(make([]float32, 4), g)
	src.Headers = headers
	return &IntegrationFile{
		geom: g,
		src:  src,
		stats: &FrameStats{
			Width: 2, Height: 2, Channels: 1,
			Location:  []float64{loc},
			Mean:      []float64{mean},
			ScaleLow:  []float64{0.01},
			ScaleHigh: []float64{0.01},
			Noise:     []float64{noise},
		},
	}
}

func TestInverseNoiseWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.WeightMode = WeightInverseNoise
	ref := weightFrame(0.2, 0.25, 0.01, nil)
	noisy := weightFrame(0.2, 0.25, 0.02, nil)
	files := []*IntegrationFile{ref, noisy}

	if err := estimateWeights(&cfg, files, ref); err != nil {
		t.Fatalf("estimateWeights failed: %v", err)
	}
	if ref.weight[0] != 1 {
		t.Errorf("reference weight = %v, want 1", ref.weight[0])
	}
	if math.Abs(noisy.weight[0]-0.25) > 1e-12 {
		t.Errorf("noisy frame weight = %v, want 0.25", noisy.weight[0])
	}
}

func TestKeywordWeightMissingFails(t *testing.T) {
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.WeightMode = WeightKeyword
	cfg.WeightKeyword = "SWWEIGHT"
	ref := weightFrame(0.2, 0.25, 0.01, map[string]string{"SWWEIGHT": "2.5"})
	missing := weightFrame(0.2, 0.25, 0.01, nil)

	err := estimateWeights(&cfg, []*IntegrationFile{ref, missing}, ref)
	if err == nil {
		t.Fatal("expected input-invalid error")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrInputInvalid {
		t.Errorf("error = %v, want input-invalid", err)
	}
}

func TestMinWeightFloor(t *testing.T) {
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.WeightMode = WeightMedian
	cfg.MinWeight = 0.25
	ref := weightFrame(0.4, 0.4, 0.01, nil)
	faint := weightFrame(0.004, 0.004, 0.01, nil)

	if err := estimateWeights(&cfg, []*IntegrationFile{ref, faint}, ref); err != nil {
		t.Fatalf("estimateWeights failed: %v", err)
	}
	if faint.weight[0] != 0.25 {
		t.Errorf("faint frame weight = %v, want the floor 0.25", faint.weight[0])
	}
}

func TestCSVWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.CSVWeights = []float64{1, 0.5}
	ref := weightFrame(0.2, 0.25, 0.01, nil)
	other := weightFrame(0.2, 0.25, 0.01, nil)

	if err := estimateWeights(&cfg, []*IntegrationFile{ref, other}, ref); err != nil {
		t.Fatalf("estimateWeights failed: %v", err)
	}
	if other.weight[0] != 0.5 {
		t.Errorf("CSV weight = %v, want 0.5", other.weight[0])
	}
}

func TestCSVWeightsLengthMismatch(t *testing.T) {
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.CSVWeights = []float64{1}
	ref := weightFrame(0.2, 0.25, 0.01, nil)
	other := weightFrame(0.2, 0.25, 0.01, nil)

	err := estimateWeights(&cfg, []*IntegrationFile{ref, other}, ref)
	if err == nil {
		t.Fatal("expected config-invalid error")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrConfigInvalid {
		t.Errorf("error = %v, want config-invalid", err)
	}
}

func TestPSFScaleSNRRequiresLocalNormalization(t *testing.T) {
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.WeightMode = WeightPSFScaleSNR
	ref := weightFrame(0.2, 0.25, 0.01, nil)
	ref.stats.PSFScaleSNR = []float64{1}

	err := estimateWeights(&cfg, []*IntegrationFile{ref}, ref)
	if err == nil {
		t.Fatal("expected config-invalid error")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrConfigInvalid {
		t.Errorf("error = %v, want config-invalid", err)
	}
}
