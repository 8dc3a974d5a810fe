/*
DESCRIPTION
  weights.go computes the per-frame, per-channel weights from the cached
  frame statistics under the selected mode. Statistic-derived weights are
  normalized so the reference frame weighs 1; weights below the configured
  floor are clipped to the floor.

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

import (
	"strconv"
)

// estimateWeights fills the weight vector of every file. ref is the
// reference frame whose statistics anchor the normalization.
func estimateWeights(cfg *Config, files []*IntegrationFile, ref *IntegrationFile) error {
	ch := ref.geom.Channels

	if cfg.CSVWeights != nil {
		if len(cfg.CSVWeights) != len(files) {
			return errf(ErrConfigInvalid, "weights",
				"%d CSV weights for %d frames", len(cfg.CSVWeights), len(files))
		}
		for i, f := range files {
			w := cfg.CSVWeights[i]
			if w <= 0 {
				return errf(ErrConfigInvalid, "weights", "non-positive CSV weight for frame %d", i)
			}
			f.weight = uniform(w, ch)
		}
		clipWeights(cfg, files)
		return nil
	}

	for _, f := range files {
		w := make([]float64, ch)
		for c := 0; c < ch; c++ {
			v, err := frameWeight(cfg, f, ref, c)
			if err != nil {
				return err
			}
			w[c] = v
		}
		f.weight = w
	}
	clipWeights(cfg, files)
	return nil
}

func uniform(v float64, n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = v
	}
	return w
}

func clipWeights(cfg *Config, files []*IntegrationFile) {
	for _, f := range files {
		for c, w := range f.weight {
			if w < cfg.MinWeight {
				f.weight[c] = cfg.MinWeight
			}
		}
	}
}

// frameWeight derives the channel-c weight of f under the selected mode.
func frameWeight(cfg *Config, f, ref *IntegrationFile, c int) (float64, error) {
	switch cfg.WeightMode {
	case WeightConstant:
		return 1, nil

	case WeightExposure:
		e := f.exposure
		if e <= 0 {
			if v, ok := f.src.Header("EXPTIME"); ok {
				e, _ = strconv.ParseFloat(v, 64)
			}
		}
		if e <= 0 {
			if v, ok := f.src.Header("EXPOSURE"); ok {
				e, _ = strconv.ParseFloat(v, 64)
			}
		}
		if e <= 0 {
			return 0, errf(ErrInputInvalid, "weights",
				"frame %q has no exposure information", f.item.Path)
		}
		return e, nil

	case WeightInverseNoise:
		ni, nr := f.stats.Noise[c], ref.stats.Noise[c]
		if ni <= 0 || nr <= 0 {
			return 0, errf(ErrNumericDegenerate, "weights",
				"inverse noise weighting requires positive noise estimates")
		}
		return (nr * nr) / (ni * ni), nil

	case WeightSignal:
		si := f.stats.Mean[c] - f.stats.Location[c]
		sr := ref.stats.Mean[c] - ref.stats.Location[c]
		if sr == 0 {
			return 0, errf(ErrNumericDegenerate, "weights",
				"signal weighting requires nonzero reference signal")
		}
		return si / sr, nil

	case WeightMedian:
		if ref.stats.Location[c] == 0 {
			return 0, errf(ErrNumericDegenerate, "weights",
				"median weighting requires nonzero reference median")
		}
		return f.stats.Location[c] / ref.stats.Location[c], nil

	case WeightMean:
		if ref.stats.Mean[c] == 0 {
			return 0, errf(ErrNumericDegenerate, "weights",
				"mean weighting requires nonzero reference mean")
		}
		return f.stats.Mean[c] / ref.stats.Mean[c], nil

	case WeightKeyword:
		v, ok := f.src.Header(cfg.WeightKeyword)
		if !ok {
			return 0, errf(ErrInputInvalid, "weights",
				"frame %q is missing weight keyword %q", f.item.Path, cfg.WeightKeyword)
		}
		w, err := strconv.ParseFloat(v, 64)
		if err != nil || w <= 0 {
			return 0, errf(ErrInputInvalid, "weights",
				"frame %q has non-positive weight keyword %q=%q", f.item.Path, cfg.WeightKeyword, v)
		}
		return w, nil

	case WeightPSFSignal:
		return psfWeight(f, ref, c, f.stats.PSFSignal, ref.stats.PSFSignal, "PSF signal")

	case WeightPSFSNR:
		return psfWeight(f, ref, c, f.stats.PSFSNR, ref.stats.PSFSNR, "PSF SNR")

	case WeightPSFScaleSNR:
		if f.item.LocalNormalizationPath == "" {
			return 0, errf(ErrConfigInvalid, "weights",
				"PSF scale SNR weighting requires local normalization data for frame %q", f.item.Path)
		}
		return psfWeight(f, ref, c, f.stats.PSFScaleSNR, ref.stats.PSFScaleSNR, "PSF scale SNR")

	default:
		return 1, nil
	}
}

// psfWeight normalizes an externally supplied PSF scalar by the reference.
func psfWeight(f, ref *IntegrationFile, c int, vals, refVals []float64, what string) (float64, error) {
	if vals == nil || refVals == nil {
		return 0, errf(ErrConfigInvalid, "weights",
			"%s weighting requires precomputed estimates for frame %q", what, f.item.Path)
	}
	if refVals[c] <= 0 {
		return 0, errf(ErrNumericDegenerate, "weights",
			"%s weighting requires a positive reference estimate", what)
	}
	return vals[c] / refVals[c], nil
}
