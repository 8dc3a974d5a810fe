/*
DESCRIPTION
  file.go implements the per-frame loaded state: the image source reader,
  the bounded row buffer that workers pull band rows from, pedestal
  subtraction, and the location/scale/noise statistics pulled from the
  cache or computed on demand from the full frame.

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
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/ausocean/astro/image"
	"github.com/ausocean/astro/stats"
)

// pedestalScale is the format normalization constant dividing raw PEDESTAL
// header values.
const pedestalScale = 65536.0

// rowBuffer is the bounded circular row store of one frame. The loader
// fills a contiguous row window; workers block in rows until the window
// covers their request. The window never exceeds capRows rows.
type rowBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	data     []float32
	rowWidth int // samples per row
	capRows  int
	y0, y1   int // materialized range [y0,y1)
	err      error
}

func newRowBuffer(rowWidth, capRows int) *rowBuffer {
	b := &rowBuffer{
		data:     make([]float32, rowWidth*capRows),
		rowWidth: rowWidth,
		capRows:  capRows,
		y0:       -1,
		y1:       -1,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// fill reads rows [y0,y1) from src into the buffer, applying the pedestal,
// and publishes the window. y1-y0 must not exceed capRows.
func (b *rowBuffer) fill(src image.Source, y0, y1 int, pedestal float64) {
	n := (y1 - y0) * b.rowWidth
	err := src.ReadRows(y0, y1, b.data[:n])
	if err == nil && pedestal != 0 {
		p := float32(pedestal)
		for i := range b.data[:n] {
			b.data[i] -= p
		}
	}
	b.mu.Lock()
	b.y0, b.y1 = y0, y1
	b.err = err
	b.mu.Unlock()
	b.cond.Broadcast()
}

// rows blocks until rows [y0,y1) are materialized and returns them as a
// read-only view. The view is valid until the next fill.
func (b *rowBuffer) rows(y0, y1 int) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.err == nil && !(b.y0 <= y0 && y1 <= b.y1 && b.y0 >= 0) {
		b.cond.Wait()
	}
	if b.err != nil {
		return nil, b.err
	}
	off := (y0 - b.y0) * b.rowWidth
	return b.data[off : off+(y1-y0)*b.rowWidth], nil
}

// IntegrationFile is the loaded state of one enabled input frame.
type IntegrationFile struct {
	item  FileItem
	index int
	src   image.Source
	geom  image.Geometry

	id       FrameID
	pedestal float64 // normalized value subtracted on read
	exposure float64

	stats  *FrameStats
	weight []float64 // per channel, set by the weight estimator

	// Local normalization planes, per channel.
	localA, localB [][]float32

	// Interpolated adaptive surfaces, built lazily per frame.
	adaptive []adaptiveSurface // per channel

	buf       *rowBuffer
	reference bool
}

// openIntegrationFile opens item and derives its identity and geometry.
func openIntegrationFile(cfg *Config, item FileItem, index int) (*IntegrationFile, error) {
	src := item.Source
	if src == nil {
		var err error
		src, err = cfg.Opener(item.Path)
		if err != nil {
			return nil, wrapErr(ErrInputInvalid, "open", err)
		}
	}
	f := &IntegrationFile{
		item:  item,
		index: index,
		src:   src,
		geom: image.Geometry{
			Width:    src.Width(),
			Height:   src.Height(),
			Channels: src.Channels(),
		},
		exposure:  src.Exposure(),
		reference: item.Reference,
	}
	if f.geom.Width <= 0 || f.geom.Height <= 0 || f.geom.Channels <= 0 {
		return nil, errf(ErrInputInvalid, "open", "frame %q has empty geometry", item.Path)
	}
	if cfg.SubtractPedestals {
		f.pedestal = src.Pedestal() / pedestalScale
	}
	id, err := item.ID()
	if err != nil {
		return nil, wrapErr(ErrInputInvalid, "open", err)
	}
	f.id = id

	if item.LocalNormalizationPath != "" {
		if err := f.loadLocalNormalization(cfg); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// loadLocalNormalization reads the per-pixel linear function planes. The
// file carries 2*channels planes: plane 2c is the scale a and plane 2c+1
// the offset b of channel c.
func (f *IntegrationFile) loadLocalNormalization(cfg *Config) error {
	src, err := cfg.Opener(f.item.LocalNormalizationPath)
	if err != nil {
		return wrapErr(ErrInputInvalid, "local normalization", err)
	}
	defer src.Close()
	if src.Width() != f.geom.Width || src.Height() != f.geom.Height ||
		src.Channels() != 2*f.geom.Channels {
		return errf(ErrInputInvalid, "local normalization",
			"%q geometry %dx%dx%d does not match frame %dx%dx%d",
			f.item.LocalNormalizationPath, src.Width(), src.Height(), src.Channels(),
			f.geom.Width, f.geom.Height, 2*f.geom.Channels)
	}
	w, h, ch := f.geom.Width, f.geom.Height, f.geom.Channels
	all := make([]float32, w*h*2*ch)
	if err := src.ReadRows(0, h, all); err != nil {
		return wrapErr(ErrInputInvalid, "local normalization", err)
	}
	f.localA = make([][]float32, ch)
	f.localB = make([][]float32, ch)
	for c := 0; c < ch; c++ {
		f.localA[c] = make([]float32, w*h)
		f.localB[c] = make([]float32, w*h)
	}
	stride := 2 * ch
	for i := 0; i < w*h; i++ {
		for c := 0; c < ch; c++ {
			f.localA[c][i] = all[i*stride+2*c]
			f.localB[c][i] = all[i*stride+2*c+1]
		}
	}
	return nil
}

// readFullChannel loads one whole channel of the frame as float64, with
// pedestal applied. Statistics are always computed from the full frame,
// never from the band buffer.
func (f *IntegrationFile) readFullChannel(c int) ([]float64, error) {
	w, h, ch := f.geom.Width, f.geom.Height, f.geom.Channels
	rows := make([]float32, w*h*ch)
	if err := f.src.ReadRows(0, h, rows); err != nil {
		return nil, errors.Wrap(err, "could not read frame for statistics")
	}
	out := make([]float64, w*h)
	p := f.pedestal
	for i := 0; i < w*h; i++ {
		out[i] = float64(rows[i*ch+c]) - p
	}
	return out, nil
}

// ensureStats materializes location, scale, mean and noise estimates for
// every channel, consulting the cache first. needAdaptive additionally
// materializes the adaptive normalization grids. Cache errors are
// swallowed; computation always proceeds.
func (f *IntegrationFile) ensureStats(cfg *Config, cache *Cache, needAdaptive bool) error {
	if f.stats != nil && (!needAdaptive || f.stats.AdaptiveLocation != nil) {
		return nil
	}
	if f.stats == nil && cfg.UseCache {
		if st, ok := cache.Get(f.id); ok &&
			st.Width == f.geom.Width && st.Height == f.geom.Height && st.Channels == f.geom.Channels {
			if st.AdaptiveLocation != nil && st.GridSize != cfg.AdaptiveGridSize {
				// Grids cached under another grid size cannot serve.
				st.AdaptiveLocation = nil
				st.AdaptiveScaleLow = nil
				st.AdaptiveScaleHigh = nil
			}
			f.stats = st
		}
	}
	if f.stats != nil && (!needAdaptive || f.stats.AdaptiveLocation != nil) {
		return nil
	}

	w, h, ch := f.geom.Width, f.geom.Height, f.geom.Channels
	st := f.stats
	if st == nil {
		st = &FrameStats{
			Width: w, Height: h, Channels: ch,
			Location:  make([]float64, ch),
			Mean:      make([]float64, ch),
			ScaleLow:  make([]float64, ch),
			ScaleHigh: make([]float64, ch),
			Noise:     make([]float64, ch),
		}
	}
	grid := cfg.AdaptiveGridSize
	if needAdaptive && st.AdaptiveLocation == nil {
		st.GridSize = grid
		st.AdaptiveLocation = make([][]float64, ch)
		st.AdaptiveScaleLow = make([][]float64, ch)
		st.AdaptiveScaleHigh = make([][]float64, ch)
	}

	fresh := f.stats == nil
	for c := 0; c < ch; c++ {
		data, err := f.readFullChannel(c)
		if err != nil {
			return wrapErr(ErrInputInvalid, "statistics", err)
		}
		if fresh {
			m := stats.Median(data)
			st.Location[c] = m
			mean, _ := stats.MeanStdDev(data)
			st.Mean[c] = mean
			lo, hi := stats.TwoSidedScale(cfg.WeightScale, data, m)
			st.ScaleLow[c], st.ScaleHigh[c] = lo, hi
			st.Noise[c] = f.channelNoise(cfg, c, data)
			f.loadPSFWeights(st, c)
		}
		if needAdaptive && st.AdaptiveLocation[c] == nil {
			loc, sLo, sHi := adaptiveGrid(data, w, h, grid, cfg.WeightScale)
			st.AdaptiveLocation[c] = loc
			st.AdaptiveScaleLow[c] = sLo
			st.AdaptiveScaleHigh[c] = sHi
		}
	}
	f.stats = st
	if cfg.UseCache {
		if err := cache.Put(f.id, st); err != nil && cfg.Logger != nil {
			cfg.Logger.Warning("could not cache frame statistics", "path", f.item.Path, "error", err.Error())
		}
	}
	return nil
}

// channelNoise returns the Gaussian sigma estimate of channel c, trusting
// a NOISExx header unless the config says otherwise.
func (f *IntegrationFile) channelNoise(cfg *Config, c int, data []float64) float64 {
	if !cfg.IgnoreNoiseKeywords {
		if v, ok := f.src.Header(fmt.Sprintf("NOISE%02d", c)); ok {
			if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
				return n
			}
		}
	}
	sigma, _ := stats.Noise(cfg.NoiseEstimator, data, f.geom.Width, f.geom.Height, cfg.MRSMinDataFraction)
	return sigma
}

// loadPSFWeights copies the opaque PSF weight scalars from headers when
// present. They may equally arrive via a previously cached entry.
func (f *IntegrationFile) loadPSFWeights(st *FrameStats, c int) {
	read := func(key string, dst *[]float64) {
		v, ok := f.src.Header(fmt.Sprintf(key, c))
		if !ok {
			return
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return
		}
		if *dst == nil {
			*dst = make([]float64, st.Channels)
		}
		(*dst)[c] = x
	}
	read("PSFSW%02d", &st.PSFSignal)
	read("PSFSNR%02d", &st.PSFSNR)
	read("PSFSSNR%02d", &st.PSFScaleSNR)
}

// adaptiveGrid computes the location and two-sided scale matrices over a
// grid x grid cell division of one channel.
func adaptiveGrid(data []float64, w, h, grid int, est stats.ScaleEstimator) (loc, sLo, sHi []float64) {
	loc = make([]float64, grid*grid)
	sLo = make([]float64, grid*grid)
	sHi = make([]float64, grid*grid)
	for gy := 0; gy < grid; gy++ {
		y0, y1 := gy*h/grid, (gy+1)*h/grid
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for gx := 0; gx < grid; gx++ {
			x0, x1 := gx*w/grid, (gx+1)*w/grid
			if x1 <= x0 {
				x1 = x0 + 1
			}
			cell := make([]float64, 0, (y1-y0)*(x1-x0))
			for y := y0; y < y1 && y < h; y++ {
				for x := x0; x < x1 && x < w; x++ {
					cell = append(cell, data[y*w+x])
				}
			}
			m := stats.Median(cell)
			lo, hi := stats.TwoSidedScale(est, cell, m)
			loc[gy*grid+gx] = m
			sLo[gy*grid+gx] = lo
			sHi[gy*grid+gx] = hi
		}
	}
	return loc, sLo, sHi
}

// prepareBuffer sizes the frame's row buffer for band reads. The byte
// budget is min(bufferBytes, rowsToRead*rowBytes) with a floor of one row.
func (f *IntegrationFile) prepareBuffer(bufferBytes, rowsToRead int) {
	rowBytes := f.geom.RowBytes()
	capBytes := bufferBytes
	if rb := rowsToRead * rowBytes; rb < capBytes {
		capBytes = rb
	}
	capRows := capBytes / rowBytes
	if capRows < 1 {
		capRows = 1
	}
	f.buf = newRowBuffer(f.geom.Width*f.geom.Channels, capRows)
}

// bufferRows reports the row capacity of the prepared buffer.
func (f *IntegrationFile) bufferRows() int { return f.buf.capRows }

// Close releases the underlying source.
func (f *IntegrationFile) Close() error {
	if f.src == nil {
		return nil
	}
	return f.src.Close()
}
