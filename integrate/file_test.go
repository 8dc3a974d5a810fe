/*
DESCRIPTION
  file_test.go provides testing for the per-frame state: the row buffer,
  pedestal subtraction and on-demand statistics.

AUTHORS
  Trek Hopton <trek@ausocean.org>

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
	"github.com/ausocean/astro/stats"
)

func openTestFile(t *testing.T, cfg *Config, data []float32, g image.Geometry) *IntegrationFile {
	t.Helper()
	item := FileItem{Path: "mem", Enabled: true, Source: image.NewMemSource(data, g)}
	f, err := openIntegrationFile(cfg, item, 0)
	if err != nil {
		t.Fatalf("could not open file: %v", err)
	}
	return f
}

func TestRowBufferBlocksUntilFilled(t *testing.T) {
	g := image.Geometry{Width: 2, Height: 4, Channels: 1}
	data := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	f := openTestFile(t, &cfg, data, g)
	f.prepareBuffer(1<<20, 2)

	done := make(chan []float32)
	go func() {
		rows, err := f.buf.rows(1, 3)
		if err != nil {
			t.Errorf("rows failed: %v", err)
		}
		done <- rows
	}()
	f.buf.fill(f.src, 1, 3, 0)
	rows := <-done
	want := []float32{2, 3, 4, 5}
	for i, v := range rows {
		if v != want[i] {
			t.Errorf("row sample %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestPedestalSubtraction(t *testing.T) {
	g := image.Geometry{Width: 2, Height: 1, Channels: 1}
	src := image.NewMemSource([]float32{0.5, 0.25}, g)
	src.Ped = 6553.6 // 0.1 after division by 2^16
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.SubtractPedestals = true
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	item := FileItem{Path: "mem", Enabled: true, Source: src}
	f, err := openIntegrationFile(&cfg, item, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.prepareBuffer(1<<20, 1)
	f.buf.fill(f.src, 0, 1, f.pedestal)
	rows, err := f.buf.rows(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(rows[0])-0.4) > 1e-6 || math.Abs(float64(rows[1])-0.15) > 1e-6 {
		t.Errorf("pedestal not subtracted: %v", rows)
	}
}

func TestEnsureStatsComputesLocation(t *testing.T) {
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i) / 16
	}
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.UseCache = false
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	f := openTestFile(t, &cfg, data, g)
	if err := f.ensureStats(&cfg, nil, false); err != nil {
		t.Fatalf("ensureStats failed: %v", err)
	}
	want := (7.0/16 + 8.0/16) / 2
	if math.Abs(f.stats.Location[0]-want) > 1e-9 {
		t.Errorf("location = %v, want %v", f.stats.Location[0], want)
	}
	if f.stats.ScaleLow[0] <= 0 || f.stats.ScaleHigh[0] <= 0 {
		t.Errorf("scales = %v %v, want positive", f.stats.ScaleLow[0], f.stats.ScaleHigh[0])
	}
}

func TestNoiseKeywordTrusted(t *testing.T) {
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i%3) / 8
	}
	src := image.NewMemSource(data, g)
	src.Headers = map[string]string{"NOISE00": "0.0125"}
	cfg := NewConfig()
	cfg.Logger = &dumbLogger{}
	cfg.UseCache = false
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	item := FileItem{Path: "mem", Enabled: true, Source: src}
	f, err := openIntegrationFile(&cfg, item, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ensureStats(&cfg, nil, false); err != nil {
		t.Fatal(err)
	}
	if f.stats.Noise[0] != 0.0125 {
		t.Errorf("noise = %v, want the keyword value 0.0125", f.stats.Noise[0])
	}

	// With keywords ignored the estimator runs instead.
	cfg.IgnoreNoiseKeywords = true
	f2, err := openIntegrationFile(&cfg, item, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f2.ensureStats(&cfg, nil, false); err != nil {
		t.Fatal(err)
	}
	if f2.stats.Noise[0] == 0.0125 {
		t.Error("noise keyword used despite IgnoreNoiseKeywords")
	}
}

func TestAdaptiveGridStatistics(t *testing.T) {
	// Two vertical halves of distinct levels: a 2x2 grid must separate
	// their locations.
	data := make([]float32, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				data[y*8+x] = 0.25
			} else {
				data[y*8+x] = 0.5
			}
		}
	}
	loc, _, _ := adaptiveGrid(float64Slice(data), 8, 8, 2, stats.ScaleMAD)
	if loc[0] != 0.25 || loc[1] != 0.5 {
		t.Errorf("grid locations = %v %v, want 0.25 and 0.5", loc[0], loc[1])
	}
}

func float64Slice(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
