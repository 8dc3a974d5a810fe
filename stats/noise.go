/*
DESCRIPTION
  noise.go implements the Gaussian noise estimators applied to frames and
  to the integrated result: iterative k-sigma clipping, the
  multiresolution-support (MRS) estimator over the first wavelet detail
  layer, and the N-star estimator. MRS falls back to k-sigma when too few
  samples remain in the support.

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

package stats

import (
	"math"

	"github.com/ausocean/astro/wavelet"
)

// Noise estimator kinds.
type NoiseEstimator int

const (
	NoiseKSigma NoiseEstimator = iota
	NoiseMRS
	NoiseNStar
)

// String returns the estimator name used in reports.
func (n NoiseEstimator) String() string {
	switch n {
	case NoiseKSigma:
		return "k-sigma"
	case NoiseMRS:
		return "MRS"
	case NoiseNStar:
		return "N-star"
	}
	return "unknown"
}

// Gaussian correction for the first B3 spline wavelet detail layer.
const mrsLayerSigma = 0.8908

// kSigmaIterations bounds the k-sigma clipping loop.
const kSigmaIterations = 10

// KSigmaNoise estimates the Gaussian noise sigma of xs by iteratively
// clipping samples outside k standard deviations of the mean until the
// estimate stabilizes.
func KSigmaNoise(xs []float64, k float64) float64 {
	cur := append([]float64(nil), xs...)
	var sigma float64
	for it := 0; it < kSigmaIterations; it++ {
		mean, std := MeanStdDev(cur)
		if std == 0 {
			return 0
		}
		lo, hi := mean-k*std, mean+k*std
		kept := cur[:0]
		for _, v := range cur {
			if v >= lo && v <= hi {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(cur) || len(kept) < 2 {
			return std
		}
		cur = kept
		sigma = std
	}
	return sigma
}

// MRSNoise estimates the Gaussian noise sigma of data (w x h, one channel)
// from the first à trous wavelet detail layer, iterating a 3-sigma
// multiresolution support. minDataFraction is the smallest fraction of
// samples allowed in the support for the estimate to be considered valid;
// below it the k-sigma estimate of the raw data is returned together with
// ok=false.
func MRSNoise(data []float64, w, h int, minDataFraction float64) (sigma float64, ok bool) {
	if len(data) == 0 || w <= 0 || h <= 0 {
		return 0, false
	}
	layers := wavelet.Decompose(data, w, h, 1)
	d1 := layers[0]

	support := make([]float64, len(d1))
	copy(support, d1)
	sigma = 0
	for it := 0; it < kSigmaIterations; it++ {
		_, std := MeanStdDev(support)
		if std == 0 {
			break
		}
		kept := support[:0]
		for _, v := range support {
			if math.Abs(v) <= 3*std {
				kept = append(kept, v)
			}
		}
		sigma = std
		if len(kept) == len(support) {
			break
		}
		support = kept
	}
	if float64(len(support)) < minDataFraction*float64(len(d1)) || sigma == 0 {
		return KSigmaNoise(data, 3), false
	}
	return sigma / mrsLayerSigma, true
}

// NStarNoise estimates the Gaussian noise sigma as the normalized MAD of
// the median-subtracted data.
func NStarNoise(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := Median(data)
	return MAD(data, m)
}

// Noise dispatches on the selected estimator. For NoiseMRS the geometry
// must be supplied; ok reports whether the selected estimator itself
// produced the value (false marks an MRS fallback).
func Noise(est NoiseEstimator, data []float64, w, h int, mrsMinDataFraction float64) (sigma float64, ok bool) {
	switch est {
	case NoiseMRS:
		return MRSNoise(data, w, h, mrsMinDataFraction)
	case NoiseNStar:
		return NStarNoise(data), true
	default:
		return KSigmaNoise(data, 3), true
	}
}
