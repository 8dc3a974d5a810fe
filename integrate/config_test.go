/*
DESCRIPTION
  config_test.go provides testing for the Config Validate and Update
  methods.

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
	"testing"

	"github.com/ausocean/astro/stats"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidateDefaultsNumericFields(t *testing.T) {
	c := Config{Logger: &dumbLogger{}}
	if err := c.Validate(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if c.SigmaLow != defaultSigmaLow || c.SigmaHigh != defaultSigmaHigh {
		t.Errorf("sigma defaults not applied: %v %v", c.SigmaLow, c.SigmaHigh)
	}
	if c.AdaptiveGridSize != defaultAdaptiveGridSize {
		t.Errorf("AdaptiveGridSize = %d, want %d", c.AdaptiveGridSize, defaultAdaptiveGridSize)
	}
	if c.WinsorizationCutoff != defaultWinsorizationCutoff {
		t.Errorf("WinsorizationCutoff = %v, want %v", c.WinsorizationCutoff, defaultWinsorizationCutoff)
	}
	if c.ESDAlpha != defaultESDAlpha || c.ESDLowRelaxation != defaultESDLowRelaxation {
		t.Errorf("ESD defaults not applied: %v %v", c.ESDAlpha, c.ESDLowRelaxation)
	}
	if c.Opener == nil {
		t.Error("Validate must default the opener")
	}
}

func TestValidateKeywordModeRequiresKeyword(t *testing.T) {
	c := NewConfig()
	c.Logger = &dumbLogger{}
	c.WeightMode = WeightKeyword
	err := c.Validate()
	if err == nil {
		t.Fatal("expected config-invalid error")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrConfigInvalid {
		t.Errorf("error kind = %v, want config-invalid", err)
	}
}

func TestUpdate(t *testing.T) {
	c := NewConfig()
	c.Logger = &dumbLogger{}
	c.Update(map[string]string{
		"Combination":         "median",
		"Rejection":           "winsorized_sigma",
		"OutputNormalization": "multiplicative_scaling",
		"WeightMode":          "inverse_noise",
		"WeightScale":         "mad",
		"SigmaLow":            "2.5",
		"SigmaHigh":           "1.75",
		"MinMaxLow":           "3",
		"RangeClipHigh":       "true",
		"RangeHigh":           "0.95",
		"UseCache":            "false",
		"CSVWeights":          "1, 0.5, 0.25",
		"ROI":                 "2,3,10,12",
		"UseROI":              "true",
	})
	if c.Combination != CombineMedian {
		t.Errorf("Combination = %v", c.Combination)
	}
	if c.Rejection != RejectWinsorizedSigma {
		t.Errorf("Rejection = %v", c.Rejection)
	}
	if c.OutputNormalization != NormMultiplicativeScaling {
		t.Errorf("OutputNormalization = %v", c.OutputNormalization)
	}
	if c.WeightMode != WeightInverseNoise || c.WeightScale != stats.ScaleMAD {
		t.Errorf("weights = %v %v", c.WeightMode, c.WeightScale)
	}
	if c.SigmaLow != 2.5 || c.SigmaHigh != 1.75 {
		t.Errorf("sigmas = %v %v", c.SigmaLow, c.SigmaHigh)
	}
	if c.MinMaxLow != 3 {
		t.Errorf("MinMaxLow = %d", c.MinMaxLow)
	}
	if !c.RangeClipHigh || c.RangeHigh != 0.95 {
		t.Errorf("range high = %v %v", c.RangeClipHigh, c.RangeHigh)
	}
	if c.UseCache {
		t.Error("UseCache should be false")
	}
	if len(c.CSVWeights) != 3 || c.CSVWeights[1] != 0.5 {
		t.Errorf("CSVWeights = %v", c.CSVWeights)
	}
	if !c.UseROI || c.ROI != (ROI{X0: 2, Y0: 3, X1: 10, Y1: 12}) {
		t.Errorf("ROI = %+v", c.ROI)
	}
}

func TestUpdateIgnoresUnknownEnumValue(t *testing.T) {
	c := NewConfig()
	c.Logger = &dumbLogger{}
	c.Update(map[string]string{"Rejection": "bogus"})
	if c.Rejection != defaultRejection {
		t.Errorf("Rejection = %v, want default", c.Rejection)
	}
}
