/*
DESCRIPTION
  reject_robust.go implements the robust rejection algorithms: linear fit
  clipping over the sorted stack, Rosner's generalized extreme studentized
  deviate test, and robust Chauvenet rejection. Critical values for the
  ESD test come from Student's t quantiles.

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
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ausocean/astro/stats"
)

// rejectLinearFit fits value against stack position with an L1 line and
// rejects samples whose residual exceeds the clip factors times the MAD of
// the residuals. It returns the normalized absolute slope of the final
// fit for the slope map.
func (r *Rejector) rejectLinearFit(w []RejectionItem) (slope float32) {
	cfg := r.cfg
	n := len(w)
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}
	nActive := n
	var a float64

	for nActive >= 3 {
		ys := make([]float64, 0, nActive)
		pos := make([]int, 0, nActive)
		for i := 0; i < n; i++ {
			if active[i] {
				ys = append(ys, float64(w[i].Value))
				pos = append(pos, i)
			}
		}
		var b float64
		a, b = stats.LineFitL1(ys)

		res := make([]float64, len(ys))
		for i, y := range ys {
			res[i] = y - (a*float64(i) + b)
		}
		mad := stats.MAD(res, stats.Median(res))
		if mad == 0 {
			break
		}
		changed := false
		for i, rv := range res {
			j := pos[i]
			if cfg.ClipLow && rv < -cfg.LinearFitLow*mad {
				w[j].RejectLow = true
				active[j] = false
				nActive--
				changed = true
			} else if cfg.ClipHigh && rv > cfg.LinearFitHigh*mad {
				w[j].RejectHigh = true
				active[j] = false
				nActive--
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	s := math.Abs(a) * float64(n-1)
	if s > 1 {
		s = 1
	}
	return float32(s)
}

// esdLambda returns Rosner's critical value for a sample of size n at
// significance alpha.
func esdLambda(n int, alpha float64) float64 {
	if n < 3 {
		return math.Inf(1)
	}
	p := 1 - alpha/(2*float64(n))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}.Quantile(p)
	return float64(n-1) * t / math.Sqrt((float64(n-2)+t*t)*float64(n))
}

// rejectESD applies the generalized extreme studentized deviate test for
// up to outliersFraction*n iterations, removing the extreme deviate each
// round and finally rejecting through the largest significant round. The
// low-side critical value is relaxed by the configured factor.
func (r *Rejector) rejectESD(w []RejectionItem) {
	cfg := r.cfg
	n := len(w)
	kmax := int(cfg.ESDOutliersFraction * float64(n))
	if kmax < 1 {
		return
	}

	type removal struct {
		low bool // removed from the low end
		sig bool // R_i exceeded lambda_i
	}
	removals := make([]removal, 0, kmax)
	lo, hi := 0, n
	last := -1

	for i := 0; i < kmax && hi-lo >= 3; i++ {
		mean, sd := stats.MeanStdDev(values64(w, lo, hi))
		if sd == 0 {
			break
		}
		dLow := mean - float64(w[lo].Value)
		dHigh := float64(w[hi-1].Value) - mean

		// Pick the permitted extreme with the larger deviation.
		low := false
		switch {
		case cfg.ClipLow && cfg.ClipHigh:
			low = dLow > dHigh
		case cfg.ClipLow:
			low = true
		case cfg.ClipHigh:
			low = false
		default:
			return
		}
		d := dHigh
		if low {
			d = dLow
		}

		lambda := esdLambda(hi-lo, cfg.ESDAlpha)
		if low {
			lambda *= cfg.ESDLowRelaxation
		}
		sig := d/sd > lambda
		removals = append(removals, removal{low: low, sig: sig})
		if sig {
			last = i
		}
		if low {
			lo++
		} else {
			hi--
		}
	}

	// Reject the extrema removed through the last significant round.
	lo, hi = 0, n
	for i := 0; i <= last; i++ {
		if removals[i].low {
			w[lo].RejectLow = true
			lo++
		} else {
			w[hi-1].RejectHigh = true
			hi--
		}
	}
}

// rejectRCR iterates robust Chauvenet rejection: the worst permitted
// deviate is rejected while its expected occurrence count under the
// Gaussian model falls below the configured limit.
func (r *Rejector) rejectRCR(w []RejectionItem) {
	cfg := r.cfg
	lo, hi := 0, len(w)
	for hi-lo >= 3 {
		vals := values64(w, lo, hi)
		m := stats.Median(vals)
		scale := stats.MAD(vals, m)
		if scale == 0 {
			return
		}
		dLow := m - float64(w[lo].Value)
		dHigh := float64(w[hi-1].Value) - m

		low := false
		switch {
		case cfg.ClipLow && cfg.ClipHigh:
			low = dLow > dHigh
		case cfg.ClipLow:
			low = true
		case cfg.ClipHigh:
			low = false
		default:
			return
		}
		d := dHigh
		if low {
			d = dLow
		}
		if d <= 0 {
			return
		}
		expected := float64(hi-lo) * math.Erfc(d/(math.Sqrt2*scale))
		if expected >= cfg.RCRLimit {
			return
		}
		if low {
			w[lo].RejectLow = true
			lo++
		} else {
			w[hi-1].RejectHigh = true
			hi--
		}
	}
}
