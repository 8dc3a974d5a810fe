/*
DESCRIPTION
  engine_test.go provides end-to-end testing of the streaming driver:
  deterministic integration scenarios, thread-count invariance, cache
  transparency and region-of-interest handling.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
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
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/astro/image"
)

// gradFrame builds a 4x4 mono frame with pixel (x+y)/16 + offset.
func gradFrame(offset float32) []float32 {
	data := make([]float32, 16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			data[y*4+x] = float32(x+y)/16 + offset
		}
	}
	return data
}

func memItems(g image.Geometry, frames ...[]float32) []FileItem {
	items := make([]FileItem, len(frames))
	for i, d := range frames {
		items[i] = FileItem{
			Path:    "mem",
			Enabled: true,
			Source:  image.NewMemSource(d, g),
		}
	}
	return items
}

// testEngineConfig returns a quiet deterministic configuration.
func testEngineConfig() Config {
	c := NewConfig()
	c.Logger = &dumbLogger{}
	c.Rejection = RejectNone
	c.RejectionNormalization = NormNone
	c.OutputNormalization = NormNone
	c.RangeClipLow = false
	c.RangeClipHigh = false
	c.UseCache = false
	c.EvaluateNoise = false
	c.AutoMemorySize = false
	c.FileThreads = 2
	c.BufferThreads = 2
	return c
}

func runEngine(t *testing.T, cfg Config, items []FileItem) (*Result, *image.MemSink) {
	t.Helper()
	eng, err := New(cfg, items)
	if err != nil {
		t.Fatalf("could not create engine: %v", err)
	}
	sink := image.NewMemSink()
	mapLow, mapHigh := image.NewMemSink(), image.NewMemSink()
	res, err := eng.Run(context.Background(), Sinks{
		Image:   sink,
		MapLow:  mapLow,
		MapHigh: mapHigh,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res, sink
}

func TestMeanAdditiveThreeFrames(t *testing.T) {
	// Spec scenario: gradients offset by 0, 0.01, 0.02 under additive
	// output normalization integrate to the gradient plus 0.01.
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	cfg := testEngineConfig()
	cfg.OutputNormalization = NormAdditive
	items := memItems(g, gradFrame(0), gradFrame(0.01), gradFrame(0.02))

	_, sink := runEngine(t, cfg, items)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := float64(x+y)/16 + 0.01
			got := sink.Pix[y*4+x]
			if math.Abs(got-want) > 1e-6 {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestThreadCountInvariance(t *testing.T) {
	// Spec scenario: bitwise identical outputs and counters for any
	// worker count.
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	var refPix []float64
	var refRes *Result
	for _, threads := range []int{1, 2, 4, 8} {
		cfg := testEngineConfig()
		cfg.OutputNormalization = NormAdditive
		cfg.Rejection = RejectSigma
		cfg.FileThreads = threads
		items := memItems(g, gradFrame(0), gradFrame(0.01), gradFrame(0.02))

		res, sink := runEngine(t, cfg, items)
		if refPix == nil {
			refPix, refRes = sink.Pix, res
			continue
		}
		if diff := cmp.Diff(refPix, sink.Pix); diff != "" {
			t.Fatalf("threads=%d changed pixels:\n%s", threads, diff)
		}
		if diff := cmp.Diff(refRes.PerFrame, res.PerFrame); diff != "" {
			t.Fatalf("threads=%d changed per-frame counters:\n%s", threads, diff)
		}
	}
}

func TestSingleFrameIdentity(t *testing.T) {
	// One frame with statistical rejection and no range clipping must
	// reproduce itself under output normalization.
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	for _, rej := range []Rejection{RejectNone, RejectSigma, RejectESD, RejectRCR} {
		cfg := testEngineConfig()
		cfg.Rejection = rej
		cfg.OutputNormalization = NormAdditive
		items := memItems(g, gradFrame(0.1))

		_, sink := runEngine(t, cfg, items)
		for i, v := range sink.Pix {
			want := float64(gradFrame(0.1)[i])
			if math.Abs(v-want) > 1e-6 {
				t.Fatalf("rejection %v: pixel %d = %v, want %v", rej, i, v, want)
			}
		}
	}
}

func TestIdenticalFramesNoRejection(t *testing.T) {
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	for _, rej := range []Rejection{RejectSigma, RejectLinearFit, RejectESD, RejectRCR} {
		cfg := testEngineConfig()
		cfg.Rejection = rej
		items := memItems(g, gradFrame(0.1), gradFrame(0.1), gradFrame(0.1),
			gradFrame(0.1), gradFrame(0.1))

		res, sink := runEngine(t, cfg, items)
		for c, n := range res.TotalRejectedLow {
			if n != 0 || res.TotalRejectedHigh[c] != 0 {
				t.Errorf("rejection %v: rejected %d/%d, want 0/0", rej, n, res.TotalRejectedHigh[c])
			}
		}
		for i, v := range sink.Pix {
			want := float64(gradFrame(0.1)[i])
			if math.Abs(v-want) > 1e-6 {
				t.Fatalf("rejection %v: pixel %d = %v, want %v", rej, i, v, want)
			}
		}
	}
}

func TestRejectionMapCounts(t *testing.T) {
	g := image.Geometry{Width: 3, Height: 3, Channels: 1}
	flat := func(v float32) []float32 {
		d := make([]float32, 9)
		for i := range d {
			d[i] = v
		}
		return d
	}
	hot := flat(0.1)
	hot[4] = 0.9 // single outlier pixel in the last frame

	cfg := testEngineConfig()
	cfg.Rejection = RejectSigma
	items := memItems(g, flat(0.1), flat(0.1), flat(0.1), flat(0.1), hot)

	eng, err := New(cfg, items)
	if err != nil {
		t.Fatal(err)
	}
	sink, mapHigh := image.NewMemSink(), image.NewMemSink()
	res, err := eng.Run(context.Background(), Sinks{Image: sink, MapHigh: mapHigh})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := mapHigh.Pix[4]; got != 0.2 {
		t.Errorf("high map at outlier pixel = %v, want 0.2", got)
	}
	if got := res.PerFrame[4].RejectedHigh[0]; got != 1 {
		t.Errorf("frame 4 rejected high = %d, want 1", got)
	}
	if got := sink.Pix[4]; math.Abs(got-0.1) > 1e-6 {
		t.Errorf("output at outlier pixel = %v, want 0.1", got)
	}
}

func TestMinMaxDegenerateRun(t *testing.T) {
	// Spec scenario: 2+2 min/max clipping over three frames leaves the
	// per-stack median and increments the degenerate counter.
	g := image.Geometry{Width: 2, Height: 2, Channels: 1}
	flat := func(v float32) []float32 { return []float32{v, v, v, v} }

	cfg := testEngineConfig()
	cfg.Rejection = RejectMinMax
	cfg.MinMaxLow, cfg.MinMaxHigh = 2, 2
	items := memItems(g, flat(0.2), flat(0.3), flat(0.4))

	res, sink := runEngine(t, cfg, items)
	for i, v := range sink.Pix {
		if math.Abs(v-0.3) > 1e-6 {
			t.Errorf("pixel %d = %v, want the median 0.3", i, v)
		}
	}
	if res.DegenerateStacks != 4 {
		t.Errorf("degenerate stacks = %d, want 4", res.DegenerateStacks)
	}
}

func TestCacheTransparency(t *testing.T) {
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	frames := [][]float32{gradFrame(0), gradFrame(0.01), gradFrame(0.02)}

	run := func(useCache bool, dir string) []float64 {
		cfg := testEngineConfig()
		cfg.OutputNormalization = NormAdditiveScaling
		cfg.Rejection = RejectSigma
		cfg.UseCache = useCache
		cfg.CacheDir = dir
		_, sink := runEngine(t, cfg, memItems(g, frames...))
		return sink.Pix
	}

	dir := t.TempDir()
	first := run(true, dir)
	second := run(true, dir)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached rerun changed pixels:\n%s", diff)
	}
	uncached := run(false, "")
	if diff := cmp.Diff(first, uncached); diff != "" {
		t.Errorf("disabling the cache changed pixels:\n%s", diff)
	}
}

func TestROI(t *testing.T) {
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	cfg := testEngineConfig()
	cfg.UseROI = true
	cfg.ROI = ROI{X0: 1, Y0: 1, X1: 3, Y1: 3}
	items := memItems(g, gradFrame(0))

	res, sink := runEngine(t, cfg, items)
	if res.Geometry.Width != 2 || res.Geometry.Height != 2 {
		t.Fatalf("ROI geometry = %+v, want 2x2", res.Geometry)
	}
	want := []float64{2.0 / 16, 3.0 / 16, 3.0 / 16, 4.0 / 16}
	for i, v := range sink.Pix {
		if math.Abs(v-want[i]) > 1e-6 {
			t.Errorf("ROI pixel %d = %v, want %v", i, v, want[i])
		}
	}
}

func Test64BitResult(t *testing.T) {
	g := image.Geometry{Width: 2, Height: 2, Channels: 1}
	cfg := testEngineConfig()
	cfg.Generate64BitResult = true
	items := memItems(g, []float32{0.1, 0.2, 0.3, 0.4})

	_, sink := runEngine(t, cfg, items)
	if sink.Bits != 64 {
		t.Errorf("sink depth = %d, want 64", sink.Bits)
	}
}

func TestTruncateOnOutOfRange(t *testing.T) {
	g := image.Geometry{Width: 2, Height: 1, Channels: 1}
	cfg := testEngineConfig()
	cfg.TruncateOnOutOfRange = true
	items := memItems(g, []float32{0.5, 1.5})

	res, sink := runEngine(t, cfg, items)
	if sink.Pix[1] != 1.0 {
		t.Errorf("truncated pixel = %v, want 1.0", sink.Pix[1])
	}
	if res.OutputRangeHigh != 1.5 {
		t.Errorf("reported range high = %v, want 1.5", res.OutputRangeHigh)
	}
}

func TestCancellation(t *testing.T) {
	g := image.Geometry{Width: 4, Height: 4, Channels: 1}
	cfg := testEngineConfig()
	items := memItems(g, gradFrame(0))
	eng, err := New(cfg, items)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Run(ctx, Sinks{Image: image.NewMemSink()})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrCancelled {
		t.Errorf("error = %v, want cancelled kind", err)
	}
}

func TestIncompatibleGeometry(t *testing.T) {
	cfg := testEngineConfig()
	items := []FileItem{
		{Path: "a", Enabled: true, Source: image.NewMemSource(make([]float32, 16), image.Geometry{Width: 4, Height: 4, Channels: 1})},
		{Path: "b", Enabled: true, Source: image.NewMemSource(make([]float32, 9), image.Geometry{Width: 3, Height: 3, Channels: 1})},
	}
	eng, err := New(cfg, items)
	if err != nil {
		t.Fatal(err)
	}
	_, err = eng.Run(context.Background(), Sinks{Image: image.NewMemSink()})
	if err == nil {
		t.Fatal("expected input-invalid error")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrInputInvalid {
		t.Errorf("error = %v, want input-invalid kind", err)
	}
}
