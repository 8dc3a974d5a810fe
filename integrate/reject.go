/*
DESCRIPTION
  reject.go implements the stateless pixel-stack rejection operator: the
  common envelope (value sort, range rejection, statistical pass,
  partition) and the simpler statistical algorithms. The robust algorithms
  live in reject_robust.go. Every algorithm produces identical flag bits
  regardless of worker count; stacks are processed strictly sequentially
  and ties are broken by frame index.

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
	"sort"

	"github.com/ausocean/astro/stats"
)

// RejectionItem is one sample of a pixel stack. Value holds the current
// post-normalization sample; Raw preserves the post-pedestal sample for
// output renormalization.
type RejectionItem struct {
	Value float32
	Raw   float32
	Index int32

	RejectLow       bool
	RejectHigh      bool
	RejectRangeLow  bool
	RejectRangeHigh bool
}

// StatisticallyRejected reports rejection by the statistical pass.
func (it *RejectionItem) StatisticallyRejected() bool { return it.RejectLow || it.RejectHigh }

// RangeRejected reports rejection by the range pass.
func (it *RejectionItem) RangeRejected() bool { return it.RejectRangeLow || it.RejectRangeHigh }

// Rejected reports rejection by either pass.
func (it *RejectionItem) Rejected() bool { return it.StatisticallyRejected() || it.RangeRejected() }

// minFrames is the smallest stack each algorithm operates on; smaller
// stacks degrade to no rejection and are counted as degenerate.
func minFrames(r Rejection) int {
	switch r {
	case RejectNone:
		return 0
	case RejectPercentile, RejectSigma, RejectWinsorizedSigma, RejectAveragedSigma, RejectESD, RejectRCR:
		return 3
	case RejectLinearFit:
		return 5
	case RejectCCDNoise:
		return 2
	default:
		return 0
	}
}

// Rejector applies the configured rejection algorithm to pixel stacks.
type Rejector struct {
	cfg *Config
}

// sortStack orders the stack ascending by value, breaking ties by frame
// index so the order is stable across runs.
func sortStack(s []RejectionItem) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Value != s[j].Value {
			return s[i].Value < s[j].Value
		}
		return s[i].Index < s[j].Index
	})
}

// Reject runs the envelope over one stack: sort, range rejection,
// statistical pass, partition. It returns the count of surviving samples,
// the normalized absolute slope of the linear fit (zero for other
// algorithms), and whether the stack was degenerate for the selected
// algorithm: too small, so no statistical rejection was applied, or for
// min/max too small for the clip counts, which were then scaled down.
func (r *Rejector) Reject(s []RejectionItem) (kept int, slope float32, degenerate bool) {
	cfg := r.cfg
	sortStack(s)

	// Range rejection. Low-rejected samples form a prefix and
	// high-rejected ones a suffix of the sorted stack. The bounds are
	// compared at the stack's float32 precision.
	lo, hi := 0, len(s)
	if cfg.RangeClipLow {
		for lo < hi && s[lo].Value <= float32(cfg.RangeLow) {
			s[lo].RejectRangeLow = true
			lo++
		}
	}
	if cfg.RangeClipHigh {
		for hi > lo && s[hi-1].Value > float32(cfg.RangeHigh) {
			s[hi-1].RejectRangeHigh = true
			hi--
		}
	}
	window := s[lo:hi]

	switch {
	case cfg.Rejection == RejectNone:
		// Step 3 is a no-op.

	case cfg.Rejection == RejectMinMax:
		degenerate = r.rejectMinMax(window)

	case len(window) < minFrames(cfg.Rejection):
		degenerate = true

	default:
		switch cfg.Rejection {
		case RejectPercentile:
			r.rejectPercentile(window)
		case RejectSigma:
			r.rejectSigma(window)
		case RejectWinsorizedSigma:
			r.rejectWinsorized(window)
		case RejectAveragedSigma:
			degenerate = r.rejectAveragedSigma(window)
		case RejectLinearFit:
			slope = r.rejectLinearFit(window)
		case RejectCCDNoise:
			r.rejectCCD(window)
		case RejectESD:
			r.rejectESD(window)
		case RejectRCR:
			r.rejectRCR(window)
		}
	}

	kept = partition(s)
	return kept, slope, degenerate
}

// partition reorders the stack to surviving samples first, preserving
// ascending value order within both groups, and returns the survivor
// count.
func partition(s []RejectionItem) int {
	kept := 0
	rejected := make([]RejectionItem, 0, len(s))
	for i := range s {
		if s[i].Rejected() {
			rejected = append(rejected, s[i])
			continue
		}
		s[kept] = s[i]
		kept++
	}
	copy(s[kept:], rejected)
	return kept
}

// rejectMinMax unconditionally rejects the lowest and highest clip counts.
// When the counts meet or exceed the stack size they are scaled down to
// leave exactly one central survivor and the stack counts as degenerate.
func (r *Rejector) rejectMinMax(w []RejectionItem) (degenerate bool) {
	cfg := r.cfg
	kl, kh := 0, 0
	if cfg.ClipLow {
		kl = cfg.MinMaxLow
	}
	if cfg.ClipHigh {
		kh = cfg.MinMaxHigh
	}
	if kl+kh == 0 {
		return false
	}
	n := len(w)
	if kl+kh >= n {
		degenerate = true
		tot := kl + kh
		kl = (n - 1) * kl / tot
		kh = n - 1 - kl
	}
	for i := 0; i < kl; i++ {
		w[i].RejectLow = true
	}
	for i := n - kh; i < n; i++ {
		w[i].RejectHigh = true
	}
	return degenerate
}

// values64 extracts the active window values as float64.
func values64(w []RejectionItem, lo, hi int) []float64 {
	out := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		out[i-lo] = float64(w[i].Value)
	}
	return out
}

// windowMedian returns the median of the (sorted) active window.
func windowMedian(w []RejectionItem, lo, hi int) float64 {
	n := hi - lo
	if n <= 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(w[lo+n/2].Value)
	}
	return 0.5 * (float64(w[lo+n/2-1].Value) + float64(w[lo+n/2].Value))
}

// rejectPercentile rejects samples by their relative distance from the
// stack median in a single pass.
func (r *Rejector) rejectPercentile(w []RejectionItem) {
	cfg := r.cfg
	m := windowMedian(w, 0, len(w))
	if m == 0 {
		return
	}
	for i := range w {
		v := float64(w[i].Value)
		if cfg.ClipLow && v < m && (m-v)/m > cfg.PercentileLow {
			w[i].RejectLow = true
		}
		if cfg.ClipHigh && v > m && (v-m)/m > cfg.PercentileHigh {
			w[i].RejectHigh = true
		}
	}
}

// clipPass shrinks the active window [lo,hi) against the given bounds,
// flagging rejected extremes. It reports whether anything was rejected.
func clipPass(w []RejectionItem, lo, hi *int, lowBound, highBound float64, clipLow, clipHigh bool) bool {
	changed := false
	if clipLow {
		for *lo < *hi && float64(w[*lo].Value) < lowBound {
			w[*lo].RejectLow = true
			*lo++
			changed = true
		}
	}
	if clipHigh {
		for *hi > *lo && float64(w[*hi-1].Value) > highBound {
			w[*hi-1].RejectHigh = true
			*hi--
			changed = true
		}
	}
	return changed
}

// rejectSigma iterates median-centered clipping with the configured scale
// estimator until no sample moves out of bounds.
func (r *Rejector) rejectSigma(w []RejectionItem) {
	cfg := r.cfg
	lo, hi := 0, len(w)
	for hi-lo >= 3 {
		m := windowMedian(w, lo, hi)
		sigma := stats.Scale(cfg.WeightScale, values64(w, lo, hi), m)
		if !clipPass(w, &lo, &hi, m-cfg.SigmaLow*sigma, m+cfg.SigmaHigh*sigma, cfg.ClipLow, cfg.ClipHigh) {
			return
		}
	}
}

// rejectWinsorized performs Winsorized sigma clipping: the first scale
// estimate is taken after replacing samples beyond the Winsorization
// cutoff with the median; subsequent iterations are plain sigma clipping.
func (r *Rejector) rejectWinsorized(w []RejectionItem) {
	cfg := r.cfg
	lo, hi := 0, len(w)

	m := windowMedian(w, lo, hi)
	vals := values64(w, lo, hi)
	sigma0 := stats.Scale(cfg.WeightScale, vals, m)
	if sigma0 > 0 {
		cut := cfg.WinsorizationCutoff * sigma0
		winsorized := append([]float64(nil), vals...)
		for i, v := range winsorized {
			if v < m-cut || v > m+cut {
				winsorized[i] = m
			}
		}
		sigma := stats.Scale(cfg.WeightScale, winsorized, m)
		if !clipPass(w, &lo, &hi, m-cfg.SigmaLow*sigma, m+cfg.SigmaHigh*sigma, cfg.ClipLow, cfg.ClipHigh) {
			return
		}
	}

	for hi-lo >= 3 {
		m = windowMedian(w, lo, hi)
		sigma := stats.Scale(cfg.WeightScale, values64(w, lo, hi), m)
		if !clipPass(w, &lo, &hi, m-cfg.SigmaLow*sigma, m+cfg.SigmaHigh*sigma, cfg.ClipLow, cfg.ClipHigh) {
			return
		}
	}
}

// rejectAveragedSigma estimates the sensor gain from the cross-frame
// variance of the stack and clips with the Poisson noise model
// sigma = sqrt(max(median, mean)/gain).
func (r *Rejector) rejectAveragedSigma(w []RejectionItem) (degenerate bool) {
	cfg := r.cfg
	vals := values64(w, 0, len(w))
	m0 := windowMedian(w, 0, len(w))
	_, std := stats.MeanStdDev(vals)
	v0 := std * std
	if v0 <= 0 || m0 <= 0 {
		// Zero cross-frame variance carries no gain information.
		return true
	}
	gain := m0 / v0

	lo, hi := 0, len(w)
	for hi-lo >= 3 {
		m := windowMedian(w, lo, hi)
		mean, _ := stats.MeanStdDev(values64(w, lo, hi))
		level := m
		if mean > level {
			level = mean
		}
		if level < 0 {
			level = 0
		}
		sigma := math.Sqrt(level / gain)
		if !clipPass(w, &lo, &hi, m-cfg.SigmaLow*sigma, m+cfg.SigmaHigh*sigma, cfg.ClipLow, cfg.ClipHigh) {
			return false
		}
	}
	return false
}

// rejectCCD clips against the CCD noise model evaluated at the stack
// median, the expected signal level of the pixel.
func (r *Rejector) rejectCCD(w []RejectionItem) {
	cfg := r.cfg
	lo, hi := 0, len(w)
	for hi-lo >= 2 {
		m := windowMedian(w, lo, hi)
		sigma := ccdSigma(cfg, m)
		if !clipPass(w, &lo, &hi, m-cfg.SigmaLow*sigma, m+cfg.SigmaHigh*sigma, cfg.ClipLow, cfg.ClipHigh) {
			return
		}
	}
}

// ccdSigma evaluates the CCD noise model at sample value v.
func ccdSigma(cfg *Config, v float64) float64 {
	s := v
	if s < 0 {
		s = 0
	}
	g := cfg.CCDGain
	rn := cfg.CCDReadNoise
	sn := cfg.CCDScaleNoise * v
	return math.Sqrt((s*g+rn*rn)/(g*g) + sn*sn)
}
