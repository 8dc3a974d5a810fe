/*
DESCRIPTION
  engine.go is the streaming driver of an integration run. Rows are
  sliced into bands sized by the stack budget, each band is loaded into
  the frame row buffers, pixel stacks are normalized, rejected, optionally
  grown by large-scale rejection, renormalized and combined, and the
  accumulated result is written with its reports when the final band
  retires. Band k fully retires before band k+1 begins, and all per-stack
  work is deterministic regardless of worker count.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>
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
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ausocean/astro/image"
	"github.com/ausocean/astro/stats"
)

// stackItemBytes is the per-sample stack cost charged by the band plan;
// together with the output accumulator it fixes the rows-per-band formula
// stackBudget / (width*channels*(12N+4)). A RejectionItem itself, with its
// four flag fields, occupies 16 bytes.
const stackItemBytes = 12

// FrameReport is the per-frame entry of the run report.
type FrameReport struct {
	Index        int
	Enabled      bool
	Path         string
	Weight       []float64
	RejectedLow  []uint64
	RejectedHigh []uint64
}

// Result is the pure-data output record of a run.
type Result struct {
	Geometry image.Geometry

	PerFrame []FrameReport

	TotalRejectedLow  []uint64
	TotalRejectedHigh []uint64
	RangeLow          uint64
	RangeHigh         uint64
	DegenerateStacks  uint64

	FinalLocation []float64
	FinalScale    []float64
	FinalNoise    []float64

	MeanNoiseReduction []float64
	SNRIncrementVsRef  []float64

	OutputRangeLow  float64
	OutputRangeHigh float64

	Description IntegrationDescription
}

// Engine drives one integration run.
type Engine struct {
	cfg   Config
	items []FileItem

	files []*IntegrationFile // enabled frames
	cache *Cache
	ref   *IntegrationFile
	rej   *Rejector

	// Output accumulators over the ROI.
	roi           ROI
	out           []float64
	mapLow, mapHi []float64
	slope         []float64
}

// New validates cfg and returns an engine over the given file items.
func New(cfg Config, items []FileItem) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		return nil, errf(ErrConfigInvalid, "new", "config has no logger")
	}
	n := 0
	for _, it := range items {
		if it.Enabled && it.IsDefined() {
			n++
		}
	}
	if n == 0 {
		return nil, errf(ErrInputInvalid, "new", "no enabled input frames")
	}
	return &Engine{cfg: cfg, items: items}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run executes the integration and writes results through sinks. The
// context is checked between bands; cancellation discards all outputs.
func (e *Engine) Run(ctx context.Context, sinks Sinks) (*Result, error) {
	cfg := &e.cfg
	e.rej = &Rejector{cfg: cfg}
	log := cfg.Logger

	log.Debug("opening input frames")
	if err := e.openFiles(); err != nil {
		return nil, err
	}
	defer e.closeFiles()
	log.Info("input frames open", "frames", len(e.files))

	e.setupCache()

	needAdaptive := cfg.RejectionNormalization == NormAdaptive || cfg.OutputNormalization == NormAdaptive
	log.Debug("computing frame statistics")
	if err := e.computeStats(needAdaptive); err != nil {
		return nil, err
	}
	if err := e.selectReference(); err != nil {
		return nil, err
	}
	if needAdaptive {
		if err := e.buildAdaptiveSurfaces(); err != nil {
			return nil, err
		}
	}
	log.Info("frame statistics ready", "reference", e.ref.item.Path)

	if err := estimateWeights(cfg, e.files, e.ref); err != nil {
		return nil, err
	}

	e.roi = e.effectiveROI()
	rowsPerBand, err := e.planMemory()
	if err != nil {
		return nil, err
	}
	log.Info("band plan", "rowsPerBand", rowsPerBand, "bands",
		(e.roi.Y1-e.roi.Y0+rowsPerBand-1)/rowsPerBand)

	res := e.newResult()
	if err := e.integrate(ctx, rowsPerBand, res); err != nil {
		return nil, err
	}

	e.finalizeRange(res)
	if cfg.EvaluateNoise {
		e.evaluateResult(res)
	}
	res.Description = describe(cfg, e.roi)

	if err := writeOutputs(cfg, e, sinks, res); err != nil {
		return nil, err
	}
	return res, nil
}

// openFiles opens every enabled item and checks geometry consistency.
func (e *Engine) openFiles() error {
	cfg := &e.cfg
	for i, it := range e.items {
		if !it.Enabled || !it.IsDefined() {
			continue
		}
		f, err := openIntegrationFile(cfg, it, i)
		if err != nil {
			return err
		}
		e.files = append(e.files, f)
	}
	g := e.files[0].geom
	for _, f := range e.files[1:] {
		if f.geom != g {
			return errf(ErrInputInvalid, "open",
				"frame %q geometry %dx%dx%d differs from %dx%dx%d",
				f.item.Path, f.geom.Width, f.geom.Height, f.geom.Channels,
				g.Width, g.Height, g.Channels)
		}
	}
	return nil
}

func (e *Engine) closeFiles() {
	for _, f := range e.files {
		if err := f.Close(); err != nil {
			e.cfg.Logger.Warning("could not close frame", "path", f.item.Path, "error", err.Error())
		}
	}
}

// setupCache opens the statistics cache. Failures only disable caching.
func (e *Engine) setupCache() {
	cfg := &e.cfg
	if !cfg.UseCache {
		return
	}
	dir := cfg.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "astro", "integration")
	}
	cache, err := NewCache(dir)
	if err != nil {
		cfg.Logger.Warning("could not open statistics cache; continuing without", "dir", dir, "error", err.Error())
		return
	}
	e.cache = cache
}

// computeStats materializes per-frame statistics, in parallel bounded by
// the file worker count.
func (e *Engine) computeStats(needAdaptive bool) error {
	cfg := &e.cfg
	workers := cfg.FileThreads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := make(chan bool, workers)
	errs := make([]error, len(e.files))
	var wg sync.WaitGroup
	for i, f := range e.files {
		wg.Add(1)
		sem <- true
		go func(i int, f *IntegrationFile) {
			defer func() { <-sem; wg.Done() }()
			errs[i] = f.ensureStats(cfg, e.cache, needAdaptive)
		}(i, f)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// selectReference resolves the frame whose statistics anchor
// normalization: the explicitly flagged frame, or the frame with the
// median location estimate.
func (e *Engine) selectReference() error {
	var ref *IntegrationFile
	for _, f := range e.files {
		if !f.reference {
			continue
		}
		if ref != nil {
			return errf(ErrInputInvalid, "reference", "more than one reference frame flagged")
		}
		ref = f
	}
	if ref == nil {
		idx := make([]int, len(e.files))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool {
			la, lb := e.files[idx[a]].stats.Location[0], e.files[idx[b]].stats.Location[0]
			if la != lb {
				return la < lb
			}
			return idx[a] < idx[b]
		})
		ref = e.files[idx[(len(idx)-1)/2]]
		ref.reference = true
	}
	e.ref = ref
	return nil
}

// buildAdaptiveSurfaces interpolates the cached grids of every frame.
func (e *Engine) buildAdaptiveSurfaces() error {
	for _, f := range e.files {
		f.adaptive = make([]adaptiveSurface, f.geom.Channels)
		for c := 0; c < f.geom.Channels; c++ {
			s, err := newAdaptiveSurface(f.stats, c, f.geom.Width, f.geom.Height)
			if err != nil {
				return wrapErr(ErrNumericDegenerate, "adaptive normalization", err)
			}
			f.adaptive[c] = s
		}
	}
	return nil
}

// effectiveROI clamps the configured region to the frame.
func (e *Engine) effectiveROI() ROI {
	g := e.files[0].geom
	full := ROI{X0: 0, Y0: 0, X1: g.Width, Y1: g.Height}
	if !e.cfg.UseROI || e.cfg.ROI.Empty() {
		return full
	}
	r := e.cfg.ROI
	if r.X0 < 0 {
		r.X0 = 0
	}
	if r.Y0 < 0 {
		r.Y0 = 0
	}
	if r.X1 > g.Width {
		r.X1 = g.Width
	}
	if r.Y1 > g.Height {
		r.Y1 = g.Height
	}
	if r.Empty() {
		return full
	}
	return r
}

// availableMemory reports usable physical memory in bytes, falling back
// to a conservative constant when the platform offers no answer.
func availableMemory() uint64 {
	const fallback = 4 << 30
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return fallback
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			break
		}
		return kb << 10
	}
	return fallback
}

// planMemory resolves the stack and buffer budgets into a band height,
// sizes the frame row buffers, and refuses runs whose smallest band
// exceeds the configured budget.
func (e *Engine) planMemory() (rowsPerBand int, err error) {
	cfg := &e.cfg
	n := len(e.files)
	g := e.files[0].geom
	width := e.roi.X1 - e.roi.X0
	rows := e.roi.Y1 - e.roi.Y0

	stackBytes := int64(cfg.StackSizeMB) << 20
	bufBytes := int64(cfg.BufferSizeMB) << 20
	if cfg.AutoMemorySize {
		avail := int64(float64(availableMemory()) * cfg.AutoMemoryLimit)
		stackBytes = avail * 4 / 5
		bufBytes = avail / 5 / int64(n)
	}
	if bufBytes < int64(g.RowBytes()) {
		bufBytes = int64(g.RowBytes())
	}

	denom := int64(width) * int64(g.Channels) * int64(stackItemBytes*n+4)
	rowsPerBand = int(stackBytes / denom)
	if rowsPerBand < 1 {
		// A zero budget explicitly selects one-row bands; any other budget
		// that cannot hold a single row refuses the run.
		if !cfg.AutoMemorySize && cfg.StackSizeMB != 0 {
			return 0, errf(ErrResourceExceeded, "memory plan",
				"stack budget %d MB cannot hold one row of %d frames", cfg.StackSizeMB, n)
		}
		rowsPerBand = 1
	}
	if rowsPerBand > rows {
		rowsPerBand = rows
	}

	for _, f := range e.files {
		f.prepareBuffer(int(bufBytes), rowsPerBand)
		if br := f.bufferRows(); br < rowsPerBand {
			rowsPerBand = br
		}
	}
	return rowsPerBand, nil
}

func (e *Engine) newResult() *Result {
	g := e.files[0].geom
	ch := g.Channels
	width, height := e.roi.X1-e.roi.X0, e.roi.Y1-e.roi.Y0

	res := &Result{
		Geometry:          image.Geometry{Width: width, Height: height, Channels: ch},
		TotalRejectedLow:  make([]uint64, ch),
		TotalRejectedHigh: make([]uint64, ch),
		FinalLocation:     make([]float64, ch),
		FinalScale:        make([]float64, ch),
		FinalNoise:        make([]float64, ch),
		MeanNoiseReduction: make([]float64, ch),
		SNRIncrementVsRef:  make([]float64, ch),
	}
	for i, it := range e.items {
		fr := FrameReport{
			Index:   i,
			Enabled: it.Enabled && it.IsDefined(),
			Path:    it.Path,
		}
		if fr.Enabled {
			fr.Weight = make([]float64, ch)
			fr.RejectedLow = make([]uint64, ch)
			fr.RejectedHigh = make([]uint64, ch)
		}
		res.PerFrame = append(res.PerFrame, fr)
	}
	for _, f := range e.files {
		copy(res.PerFrame[f.index].Weight, f.weight)
	}

	e.out = make([]float64, width*height*ch)
	if e.cfg.GenerateRejectionMaps {
		e.mapLow = make([]float64, width*height*ch)
		e.mapHi = make([]float64, width*height*ch)
	}
	if e.cfg.Rejection == RejectLinearFit && e.cfg.GenerateRejectionMaps {
		e.slope = make([]float64, width*height*ch)
	}
	return res
}

// bandTally accumulates the counters of one worker chunk.
type bandTally struct {
	rejLow, rejHigh   []uint64 // per enabled-frame
	rangeLow, rangeHi uint64
	degenerate        uint64
}

func newBandTally(n int) *bandTally {
	return &bandTally{rejLow: make([]uint64, n), rejHigh: make([]uint64, n)}
}

// integrate runs the band loop.
func (e *Engine) integrate(ctx context.Context, rowsPerBand int, res *Result) error {
	cfg := &e.cfg
	loader := newDataLoader(e.files, cfg.BufferThreads)
	for y0 := e.roi.Y0; y0 < e.roi.Y1; y0 += rowsPerBand {
		select {
		case <-ctx.Done():
			return errf(ErrCancelled, "integrate", "run cancelled before row %d", y0)
		default:
		}
		y1 := y0 + rowsPerBand
		if y1 > e.roi.Y1 {
			y1 = e.roi.Y1
		}
		cfg.Logger.Debug("integrating band", "rows", y1-y0, "y0", y0)
		loadWG := loader.load(y0, y1)
		for c := 0; c < e.files[0].geom.Channels; c++ {
			if err := e.processBand(c, y0, y1, res); err != nil {
				loadWG.Wait()
				return err
			}
		}
		loadWG.Wait()
	}
	return nil
}

// processBand integrates one channel of one band.
func (e *Engine) processBand(c, y0, y1 int, res *Result) error {
	cfg := &e.cfg
	n := len(e.files)
	g := e.files[0].geom
	bandW := e.roi.X1 - e.roi.X0
	bandH := y1 - y0

	// Per-frame channel normalizers for both stages.
	rejNorm := make([]normalizer, n)
	outNorm := make([]normalizer, n)
	for i, f := range e.files {
		rejNorm[i] = newNormalizer(cfg.RejectionNormalization, cfg.AdaptiveNoScale, f, e.ref, c)
		outNorm[i] = newNormalizer(cfg.OutputNormalization, cfg.AdaptiveNoScale, f, e.ref, c)
	}

	// Band rows of every frame; blocks until the loader materializes them.
	rowData := make([][]float32, n)
	for i, f := range e.files {
		rows, err := f.buf.rows(y0, y1)
		if err != nil {
			return wrapErr(ErrInputInvalid, "load band", err)
		}
		rowData[i] = rows
	}

	// Materialize the band's pixel stacks.
	items := make([]RejectionItem, bandW*bandH*n)
	stacks := make([][]RejectionItem, bandW*bandH)
	for p := range stacks {
		stacks[p] = items[p*n : (p+1)*n]
	}
	rowStride := g.Width * g.Channels
	for i := range e.files {
		nm := &rejNorm[i]
		data := rowData[i]
		for by := 0; by < bandH; by++ {
			y := y0 + by
			for bx := 0; bx < bandW; bx++ {
				x := e.roi.X0 + bx
				raw := float64(data[by*rowStride+x*g.Channels+c])
				it := &stacks[by*bandW+bx][i]
				it.Raw = float32(raw)
				it.Value = float32(nm.normalize(raw, x, y))
				it.Index = int32(i)
			}
		}
	}

	workers := cfg.FileThreads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Phase A: rejection over all stacks.
	kept := make([]int, len(stacks))
	slopes := make([]float32, len(stacks))
	degenerate := make([]bool, len(stacks))
	e.parallelStacks(workers, len(stacks), func(lo, hi int) {
		for p := lo; p < hi; p++ {
			k, s, d := e.rej.Reject(stacks[p])
			kept[p], slopes[p], degenerate[p] = k, s, d
		}
	})

	// Phase B: large-scale growth, then re-partition.
	if cfg.LargeScaleClipLow || cfg.LargeScaleClipHigh {
		largeScalePass(cfg, stacks, bandW, bandH, n, workers)
		e.parallelStacks(workers, len(stacks), func(lo, hi int) {
			for p := lo; p < hi; p++ {
				kept[p] = partition(stacks[p])
			}
		})
	}

	// Phase C: counting, maps, renormalization and combination.
	tallies := make([]*bandTally, workers)
	e.parallelStacksIndexed(workers, len(stacks), func(wi, lo, hi int) {
		t := newBandTally(n)
		tallies[wi] = t
		samples := make([]combineSample, 0, n)
		for p := lo; p < hi; p++ {
			stack := stacks[p]
			bx, by := p%bandW, p/bandW
			x, y := e.roi.X0+bx, y0+by
			outIdx := ((y-e.roi.Y0)*bandW + bx) * g.Channels
			outIdx += c

			var nLow, nHigh float64
			for i := range stack {
				it := &stack[i]
				if it.RejectLow {
					t.rejLow[it.Index]++
				}
				if it.RejectHigh {
					t.rejHigh[it.Index]++
				}
				if it.RejectRangeLow {
					t.rangeLow++
					if cfg.ReportRangeRejection {
						t.rejLow[it.Index]++
					}
				}
				if it.RejectRangeHigh {
					t.rangeHi++
					if cfg.ReportRangeRejection {
						t.rejHigh[it.Index]++
					}
				}
				if it.RejectLow || (cfg.MapRangeRejection && it.RejectRangeLow) {
					nLow++
				}
				if it.RejectHigh || (cfg.MapRangeRejection && it.RejectRangeHigh) {
					nHigh++
				}
			}
			if degenerate[p] {
				t.degenerate++
			}

			if e.mapLow != nil {
				e.mapLow[outIdx] = nLow / float64(n)
				e.mapHi[outIdx] = nHigh / float64(n)
			}
			if e.slope != nil {
				e.slope[outIdx] = float64(slopes[p])
			}

			// Combine the surviving prefix under output normalization. A
			// fully rejected stack degrades to no rejection.
			lim := kept[p]
			if lim == 0 {
				t.degenerate++
				lim = len(stack)
			}
			samples = samples[:0]
			for i := 0; i < lim; i++ {
				it := &stack[i]
				samples = append(samples, combineSample{
					value:  outNorm[it.Index].normalize(float64(it.Raw), x, y),
					index:  it.Index,
					weight: e.files[it.Index].weight[c],
				})
			}
			e.out[outIdx] = combine(cfg.Combination, samples, 0)
		}
	})
	for _, t := range tallies {
		if t == nil {
			continue
		}
		for i := range t.rejLow {
			fr := &res.PerFrame[e.files[i].index]
			fr.RejectedLow[c] += t.rejLow[i]
			fr.RejectedHigh[c] += t.rejHigh[i]
			res.TotalRejectedLow[c] += t.rejLow[i]
			res.TotalRejectedHigh[c] += t.rejHigh[i]
		}
		res.RangeLow += t.rangeLow
		res.RangeHigh += t.rangeHi
		res.DegenerateStacks += t.degenerate
	}
	return nil
}

// parallelStacks splits [0,n) into contiguous chunks across workers.
func (e *Engine) parallelStacks(workers, n int, fn func(lo, hi int)) {
	e.parallelStacksIndexed(workers, n, func(_, lo, hi int) { fn(lo, hi) })
}

func (e *Engine) parallelStacksIndexed(workers, n int, fn func(worker, lo, hi int)) {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, 0, n)
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			fn(w, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()
}

// finalizeRange applies the truncation policy: clamp when configured,
// otherwise rescale each channel into [0,1] when it strays outside.
func (e *Engine) finalizeRange(res *Result) {
	cfg := &e.cfg
	ch := res.Geometry.Channels
	lo, hi := e.out[0], e.out[0]
	for _, v := range e.out {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	res.OutputRangeLow, res.OutputRangeHigh = lo, hi
	if lo >= 0 && hi <= 1 {
		return
	}
	if cfg.TruncateOnOutOfRange {
		for i, v := range e.out {
			if v < 0 {
				e.out[i] = 0
			} else if v > 1 {
				e.out[i] = 1
			}
		}
		return
	}
	// Rescale per channel so the channel range becomes a subset of [0,1].
	np := len(e.out) / ch
	for c := 0; c < ch; c++ {
		cLo, cHi := e.out[c], e.out[c]
		for p := 0; p < np; p++ {
			v := e.out[p*ch+c]
			if v < cLo {
				cLo = v
			}
			if v > cHi {
				cHi = v
			}
		}
		if cLo >= 0 && cHi <= 1 {
			continue
		}
		d := cHi - cLo
		if d == 0 {
			d = 1
		}
		for p := 0; p < np; p++ {
			e.out[p*ch+c] = (e.out[p*ch+c] - cLo) / d
		}
	}
}

// evaluateResult computes the post-integration noise, scale, location and
// SNR reports over the output image.
func (e *Engine) evaluateResult(res *Result) {
	cfg := &e.cfg
	g := res.Geometry
	ch := g.Channels
	data := make([]float64, g.Width*g.Height)
	for c := 0; c < ch; c++ {
		for p := range data {
			data[p] = e.out[p*ch+c]
		}
		m := stats.Median(data)
		res.FinalLocation[c] = m
		sLo, sHi := stats.TwoSidedScale(cfg.WeightScale, data, m)
		res.FinalScale[c] = 0.5 * (sLo + sHi)
		noise, _ := stats.Noise(cfg.NoiseEstimator, data, g.Width, g.Height, cfg.MRSMinDataFraction)
		res.FinalNoise[c] = noise

		if noise > 0 {
			var sum float64
			var cnt int
			for _, f := range e.files {
				if f.stats.Noise[c] > 0 {
					sum += f.stats.Noise[c] / noise
					cnt++
				}
			}
			if cnt > 0 {
				res.MeanNoiseReduction[c] = sum / float64(cnt)
			}
		}
		refSNR := stats.SNR(0.5*(e.ref.stats.ScaleLow[c]+e.ref.stats.ScaleHigh[c]), e.ref.stats.Noise[c])
		outSNR := stats.SNR(res.FinalScale[c], noise)
		if refSNR > 0 {
			res.SNRIncrementVsRef[c] = outSNR / refSNR
		}
	}
}
