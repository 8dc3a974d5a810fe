/*
DESCRIPTION
  combine.go reduces the surviving samples of a pixel stack to one output
  sample: weighted mean, weighted median, minimum or maximum. Sample
  values arrive renormalized for the output stage; ties in the weighted
  median break toward the lowest frame index.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package integrate

import "sort"

// combineSample is one surviving, output-normalized sample.
type combineSample struct {
	value  float64
	index  int32
	weight float64
}

// combine reduces the samples to one value under the selected reduction.
// An empty sample set returns fallback.
func combine(mode Combination, samples []combineSample, fallback float64) float64 {
	if len(samples) == 0 {
		return fallback
	}
	switch mode {
	case CombineMedian:
		return weightedMedian(samples)

	case CombineMin:
		min := samples[0].value
		for _, s := range samples[1:] {
			if s.value < min {
				min = s.value
			}
		}
		return min

	case CombineMax:
		max := samples[0].value
		for _, s := range samples[1:] {
			if s.value > max {
				max = s.value
			}
		}
		return max

	default: // CombineMean
		var num, den float64
		for _, s := range samples {
			num += s.weight * s.value
			den += s.weight
		}
		if den == 0 {
			return fallback
		}
		return num / den
	}
}

// weightedMedian returns the weighted median: the smallest sample whose
// cumulative weight reaches half the total, ties broken by frame index.
func weightedMedian(samples []combineSample) float64 {
	s := append([]combineSample(nil), samples...)
	sort.Slice(s, func(i, j int) bool {
		if s[i].value != s[j].value {
			return s[i].value < s[j].value
		}
		return s[i].index < s[j].index
	})
	var total float64
	for _, x := range s {
		total += x.weight
	}
	if total == 0 {
		// Degenerate weights reduce to the unweighted median.
		n := len(s)
		if n%2 == 1 {
			return s[n/2].value
		}
		return 0.5 * (s[n/2-1].value + s[n/2].value)
	}
	half := total / 2
	var cum float64
	for _, x := range s {
		cum += x.weight
		if cum >= half {
			return x.value
		}
	}
	return s[len(s)-1].value
}
