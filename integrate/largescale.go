/*
DESCRIPTION
  largescale.go post-processes the per-frame rejection flags of a band:
  for each side it reconstructs the large-scale structure of the rejection
  mask by discarding the protected small-scale wavelet layers, binarizes
  the reconstruction, dilates it and unions the grown structure back into
  the flags. Frames are independent, so the pass parallelizes over frames.

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

package integrate

import (
	"sync"

	"github.com/ausocean/astro/wavelet"
)

// lsThreshold binarizes the large-scale reconstruction. The value sits
// between the interior and exterior levels of a structure whose scale just
// survives the protected layers.
const lsThreshold = 0.1875

// largeScalePass grows the rejection structures of one band channel.
// stacks holds bandH*bandW stacks of nFrames items each; the pass runs
// per frame and per enabled side, then the caller re-partitions.
func largeScalePass(cfg *Config, stacks [][]RejectionItem, bandW, bandH, nFrames, workers int) {
	if !cfg.LargeScaleClipLow && !cfg.LargeScaleClipHigh {
		return
	}
	if workers < 1 {
		workers = 1
	}
	sem := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < nFrames; i++ {
		wg.Add(1)
		sem <- true
		go func(frame int32) {
			defer func() { <-sem; wg.Done() }()
			if cfg.LargeScaleClipLow {
				growSide(stacks, bandW, bandH, frame, false,
					cfg.LargeScaleLowProtectedLayers, cfg.LargeScaleLowGrowth)
			}
			if cfg.LargeScaleClipHigh {
				growSide(stacks, bandW, bandH, frame, true,
					cfg.LargeScaleHighProtectedLayers, cfg.LargeScaleHighGrowth)
			}
		}(int32(i))
	}
	wg.Wait()
}

// growSide expands the rejection mask of one frame and side over the band.
func growSide(stacks [][]RejectionItem, w, h int, frame int32, high bool, protected, growth int) {
	mask := make([]float64, w*h)
	any := false
	for p, stack := range stacks {
		for i := range stack {
			if stack[i].Index != frame {
				continue
			}
			if (high && stack[i].RejectHigh) || (!high && stack[i].RejectLow) {
				mask[p] = 1
				any = true
			}
			break
		}
	}
	if !any {
		return
	}

	rec := wavelet.LargeScale(mask, w, h, protected)
	bin := make([]bool, len(rec))
	for i, v := range rec {
		bin[i] = v > lsThreshold
	}
	grown := wavelet.Dilate(bin, w, h, growth)

	for p, set := range grown {
		if !set {
			continue
		}
		stack := stacks[p]
		for i := range stack {
			if stack[i].Index != frame {
				continue
			}
			if high {
				stack[i].RejectHigh = true
			} else {
				stack[i].RejectLow = true
			}
			break
		}
	}
}
