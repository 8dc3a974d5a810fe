/*
DESCRIPTION
  stats.go provides the scalar statistics used by the integration engine:
  medians and robust scale estimators (average absolute deviation, MAD,
  biweight midvariance), each computable two-sided about the location
  estimate, plus mean/standard deviation and a robust L1 line fit.

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

// Package stats implements location, scale and noise estimators for
// astronomical image statistics.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Scale estimator kinds.
type ScaleEstimator int

const (
	ScaleAvgDev ScaleEstimator = iota
	ScaleMAD
	ScaleBWMV
)

// String returns the estimator name used in reports.
func (s ScaleEstimator) String() string {
	switch s {
	case ScaleAvgDev:
		return "average absolute deviation"
	case ScaleMAD:
		return "median absolute deviation"
	case ScaleBWMV:
		return "biweight midvariance"
	}
	return "unknown"
}

// MAD-to-sigma conversion for a Gaussian distribution.
const MADNormalization = 1.4826

// Median returns the median of xs. The input is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	tmp := append([]float64(nil), xs...)
	return medianInPlace(tmp)
}

// medianInPlace sorts tmp and returns its median.
func medianInPlace(tmp []float64) float64 {
	sort.Float64s(tmp)
	n := len(tmp)
	if n%2 == 1 {
		return tmp[n/2]
	}
	return 0.5 * (tmp[n/2-1] + tmp[n/2])
}

// MedianFloat32 returns the median of xs without modifying it.
func MedianFloat32(xs []float32) float64 {
	tmp := make([]float64, len(xs))
	for i, v := range xs {
		tmp[i] = float64(v)
	}
	return medianInPlace(tmp)
}

// MeanStdDev returns the arithmetic mean and the sample standard deviation.
func MeanStdDev(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean = stat.Mean(xs, nil)
	if len(xs) < 2 {
		return mean, 0
	}
	std = math.Sqrt(stat.Variance(xs, nil))
	return mean, std
}

// MAD returns the median absolute deviation about center, normalized to the
// Gaussian sigma equivalent.
func MAD(xs []float64, center float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	dev := make([]float64, len(xs))
	for i, v := range xs {
		dev[i] = math.Abs(v - center)
	}
	return MADNormalization * medianInPlace(dev)
}

// AvgDev returns the average absolute deviation about center.
func AvgDev(xs []float64, center float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += math.Abs(v - center)
	}
	return sum / float64(len(xs))
}

// BWMV returns the square root of the biweight midvariance about center,
// using the customary c=9 tuning constant over the MAD.
func BWMV(xs []float64, center float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mad := MAD(xs, center) / MADNormalization
	if mad == 0 {
		return 0
	}
	var num, den float64
	for _, v := range xs {
		u := (v - center) / (9 * mad)
		if u <= -1 || u >= 1 {
			continue
		}
		d := v - center
		t := 1 - u*u
		num += d * d * t * t * t * t
		den += t * (1 - 5*u*u)
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(float64(len(xs)) * num / (den * den))
}

// Scale returns the selected scale estimate of xs about center.
func Scale(est ScaleEstimator, xs []float64, center float64) float64 {
	switch est {
	case ScaleAvgDev:
		return AvgDev(xs, center)
	case ScaleBWMV:
		return BWMV(xs, center)
	default:
		return MAD(xs, center)
	}
}

// TwoSidedScale returns the selected scale estimate computed separately
// from the samples at or below center (low) and at or above center (high).
// A side with no samples reports zero.
func TwoSidedScale(est ScaleEstimator, xs []float64, center float64) (low, high float64) {
	var lo, hi []float64
	for _, v := range xs {
		if v <= center {
			lo = append(lo, v)
		}
		if v >= center {
			hi = append(hi, v)
		}
	}
	return Scale(est, lo, center), Scale(est, hi, center)
}

// LineFitL1 fits y = a*x + b over the points (i, ys[i]) by the Theil-Sen method:
// the slope is the median of all pairwise slopes and the intercept the
// median residual, which minimizes the absolute residual sum for the
// chosen slope. Inputs are not modified.
func LineFitL1(ys []float64) (a, b float64) {
	n := len(ys)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, ys[0]
	}
	slopes := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			slopes = append(slopes, (ys[j]-ys[i])/float64(j-i))
		}
	}
	a = medianInPlace(slopes)
	res := make([]float64, n)
	for i, y := range ys {
		res[i] = y - a*float64(i)
	}
	b = medianInPlace(res)
	return a, b
}

// SNR returns scale/noise, or 0 when noise is not positive.
func SNR(scale, noise float64) float64 {
	if noise <= 0 {
		return 0
	}
	return scale / noise
}
