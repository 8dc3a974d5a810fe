/*
DESCRIPTION
  spfc.go implements spectrophotometric flux calibration: a streaming
  engine that, for batches of measured stars, synthesizes expected fluxes
  from catalog spectra through the instrument filter curves, forms
  per-star flux-scale samples against the measured instrumental fluxes,
  and reduces them with the same robust location/scale machinery as the
  pixel integration engine. Catalog access is an opaque spectrum source
  callback.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package spfc implements spectrophotometric flux calibration over star
// photometry, mirroring the streaming integration engine.
package spfc

import (
	"context"
	"runtime"
	"sync"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/astro/stats"
)

// Star is one measured star: its pixel position, catalog identifier and
// per-channel instrumental flux.
type Star struct {
	X, Y      float64
	CatalogID string
	Flux      []float64
}

// SpectrumSource resolves a catalog identifier to a flux-calibrated
// spectrum. It is the only catalog surface the engine sees.
type SpectrumSource func(id string) (Spectrum, error)

// Config parameterizes a calibration run.
type Config struct {
	// Filters holds one transmission curve per image channel.
	Filters []Spectrum

	// WhiteReference is the reference spectrum dividing catalog fluxes,
	// e.g. a spectrophotometric standard. Optional.
	WhiteReference Spectrum

	// Grid bounds and step in nanometres for spectral resampling.
	GridLow, GridHigh, GridStep float64

	// BroadeningSigma is the instrument line spread in grid steps.
	BroadeningSigma float64

	// SigmaLow/SigmaHigh clip scale samples around the median in units of
	// the MAD-estimated sigma.
	SigmaLow, SigmaHigh float64

	// BatchSize is the number of stars processed per batch; Workers bounds
	// batch parallelism. Zero values select defaults.
	BatchSize int
	Workers   int

	Logger logging.Logger
}

// Validate defaults unset fields.
func (c *Config) Validate() error {
	if len(c.Filters) == 0 {
		return errConfig("no filter curves")
	}
	for _, f := range c.Filters {
		if !f.Valid() {
			return errConfig("filter curve has fewer than two samples")
		}
	}
	if c.GridStep <= 0 {
		c.GridStep = 1
	}
	if c.GridHigh <= c.GridLow {
		c.GridLow, c.GridHigh = 300, 1100
	}
	if c.SigmaLow <= 0 {
		c.SigmaLow = 3
	}
	if c.SigmaHigh <= 0 {
		c.SigmaHigh = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

type configError string

func errConfig(s string) error        { return configError(s) }
func (e configError) Error() string   { return "spfc: " + string(e) }

// ScaleSample is one star's flux-scale measurement for one channel.
type ScaleSample struct {
	Star     int // index into the input star list
	Channel  int
	Scale    float64
	Rejected bool
}

// Result is the pure-data output of a calibration run.
type Result struct {
	// ScaleFactor and ScaleSigma are the robust per-channel flux scale
	// estimates and their dispersions.
	ScaleFactor []float64
	ScaleSigma  []float64

	// Samples holds every per-star sample with its rejection flag, in
	// star-major order.
	Samples []ScaleSample

	// Counts.
	StarsUsed    []int
	StarsDropped int
}

// Engine drives flux calibration runs.
type Engine struct {
	cfg     Config
	grid    []float64
	filters []Spectrum
	white   Spectrum
}

// New validates cfg, resamples the filter and reference curves onto the
// working grid, and returns an engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	e.grid = UniformGrid(cfg.GridLow, cfg.GridHigh, cfg.GridStep)
	for _, f := range cfg.Filters {
		rf, err := f.Resample(e.grid)
		if err != nil {
			return nil, err
		}
		e.filters = append(e.filters, rf)
	}
	if cfg.WhiteReference.Valid() {
		w, err := cfg.WhiteReference.Resample(e.grid)
		if err != nil {
			return nil, err
		}
		e.white = w
	}
	return e, nil
}

// Run streams the stars through the calibration pipeline. Stars whose
// spectra cannot be resolved are dropped; the context is checked between
// batches.
func (e *Engine) Run(ctx context.Context, stars []Star, source SpectrumSource) (*Result, error) {
	cfg := &e.cfg
	ch := len(e.filters)
	log := cfg.Logger

	// White reference flux per channel, used to normalize expected fluxes.
	whiteFlux := make([]float64, ch)
	for c := range e.filters {
		if e.white.Valid() {
			f, err := e.white.FluxThrough(e.filters[c])
			if err != nil {
				return nil, err
			}
			whiteFlux[c] = f
		} else {
			whiteFlux[c] = 1
		}
	}

	samples := make([]ScaleSample, len(stars)*ch)
	for i := range samples {
		samples[i].Star = i / ch
		samples[i].Channel = i % ch
		samples[i].Rejected = true // until measured
	}
	var dropped int64
	var droppedMu sync.Mutex

	// Batches of stars, processed by a bounded worker pool. Results land
	// at star-indexed positions, so worker interleaving cannot reorder
	// them.
	sem := make(chan bool, cfg.Workers)
	var wg sync.WaitGroup
	for lo := 0; lo < len(stars); lo += cfg.BatchSize {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		default:
		}
		hi := lo + cfg.BatchSize
		if hi > len(stars) {
			hi = len(stars)
		}
		wg.Add(1)
		sem <- true
		go func(lo, hi int) {
			defer func() { <-sem; wg.Done() }()
			nDropped := 0
			for si := lo; si < hi; si++ {
				star := stars[si]
				spec, err := source(star.CatalogID)
				if err != nil || !spec.Valid() {
					nDropped++
					continue
				}
				rs, err := spec.Resample(e.grid)
				if err != nil {
					nDropped++
					continue
				}
				rs = rs.Broaden(cfg.BroadeningSigma)
				for c := 0; c < ch; c++ {
					if c >= len(star.Flux) || star.Flux[c] <= 0 {
						continue
					}
					expected, err := rs.FluxThrough(e.filters[c])
					if err != nil || expected <= 0 || whiteFlux[c] <= 0 {
						continue
					}
					s := &samples[si*ch+c]
					s.Scale = (expected / whiteFlux[c]) / star.Flux[c]
					s.Rejected = false
				}
			}
			if nDropped > 0 {
				droppedMu.Lock()
				dropped += int64(nDropped)
				droppedMu.Unlock()
			}
		}(lo, hi)
	}
	wg.Wait()

	res := &Result{
		ScaleFactor: make([]float64, ch),
		ScaleSigma:  make([]float64, ch),
		StarsUsed:   make([]int, ch),
		Samples:     samples,
		StarsDropped: int(dropped),
	}
	for c := 0; c < ch; c++ {
		e.reduceChannel(c, ch, samples, res)
		if log != nil {
			log.Info("flux scale estimated", "channel", c,
				"scale", res.ScaleFactor[c], "sigma", res.ScaleSigma[c], "stars", res.StarsUsed[c])
		}
	}
	return res, nil
}

// reduceChannel sigma-clips the channel's scale samples about their
// median and stores the robust location and dispersion.
func (e *Engine) reduceChannel(c, ch int, samples []ScaleSample, res *Result) {
	cfg := &e.cfg
	vals := make([]float64, 0, len(samples)/ch)
	idx := make([]int, 0, len(samples)/ch)
	for i := c; i < len(samples); i += ch {
		if samples[i].Rejected {
			continue
		}
		vals = append(vals, samples[i].Scale)
		idx = append(idx, i)
	}
	if len(vals) == 0 {
		return
	}

	active := make([]bool, len(vals))
	for i := range active {
		active[i] = true
	}
	nActive := len(vals)
	for nActive >= 3 {
		cur := make([]float64, 0, nActive)
		for i, v := range vals {
			if active[i] {
				cur = append(cur, v)
			}
		}
		m := stats.Median(cur)
		sigma := stats.MAD(cur, m)
		if sigma == 0 {
			break
		}
		changed := false
		for i, v := range vals {
			if !active[i] {
				continue
			}
			if v < m-cfg.SigmaLow*sigma || v > m+cfg.SigmaHigh*sigma {
				active[i] = false
				samples[idx[i]].Rejected = true
				nActive--
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	kept := make([]float64, 0, nActive)
	for i, v := range vals {
		if active[i] {
			kept = append(kept, v)
		}
	}
	m := stats.Median(kept)
	res.ScaleFactor[c] = m
	res.ScaleSigma[c] = stats.MAD(kept, m)
	res.StarsUsed[c] = len(kept)
}
