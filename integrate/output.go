/*
DESCRIPTION
  output.go writes the results of a run: the integrated image, optional
  rejection and slope maps, appended drizzle records, the per-frame
  textual report and the integration description properties.

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
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ausocean/astro/image"
)

// Sinks collects the writers of a run. Any sink may be nil, in which case
// the corresponding output is skipped.
type Sinks struct {
	Image    image.Sink
	MapLow   image.Sink
	MapHigh  image.Sink
	SlopeMap image.Sink
	Report   io.Writer
}

// IntegrationDescription is the structured description of the effective
// run options, attached to the integrated image's properties; the textual
// report does not include it.
type IntegrationDescription struct {
	PixelCombination       string
	OutputNormalization    string
	WeightMode             string
	ScaleEstimator         string
	RangeRejection         string
	PixelRejection         string
	RejectionNormalization string
	RejectionClippings     string
	RejectionParameters    string
	LargeScaleClippings    string
	RegionOfInterest       string
}

// describe renders the effective configuration.
func describe(cfg *Config, roi ROI) IntegrationDescription {
	d := IntegrationDescription{
		PixelCombination:       cfg.Combination.String(),
		OutputNormalization:    cfg.OutputNormalization.String(),
		WeightMode:             cfg.WeightMode.String(),
		ScaleEstimator:         cfg.WeightScale.String(),
		PixelRejection:         cfg.Rejection.String(),
		RejectionNormalization: cfg.RejectionNormalization.String(),
		RejectionClippings:     fmt.Sprintf("low=%v high=%v", cfg.ClipLow, cfg.ClipHigh),
		RegionOfInterest: fmt.Sprintf("x0=%d y0=%d x1=%d y1=%d",
			roi.X0, roi.Y0, roi.X1, roi.Y1),
	}
	switch {
	case cfg.RangeClipLow && cfg.RangeClipHigh:
		d.RangeRejection = fmt.Sprintf("range_low=%g range_high=%g", cfg.RangeLow, cfg.RangeHigh)
	case cfg.RangeClipLow:
		d.RangeRejection = fmt.Sprintf("range_low=%g", cfg.RangeLow)
	case cfg.RangeClipHigh:
		d.RangeRejection = fmt.Sprintf("range_high=%g", cfg.RangeHigh)
	default:
		d.RangeRejection = "disabled"
	}
	switch cfg.Rejection {
	case RejectMinMax:
		d.RejectionParameters = fmt.Sprintf("nlow=%d nhigh=%d", cfg.MinMaxLow, cfg.MinMaxHigh)
	case RejectPercentile:
		d.RejectionParameters = fmt.Sprintf("pc_low=%g pc_high=%g", cfg.PercentileLow, cfg.PercentileHigh)
	case RejectSigma, RejectAveragedSigma:
		d.RejectionParameters = fmt.Sprintf("sigma_low=%g sigma_high=%g", cfg.SigmaLow, cfg.SigmaHigh)
	case RejectWinsorizedSigma:
		d.RejectionParameters = fmt.Sprintf("sigma_low=%g sigma_high=%g cutoff=%g",
			cfg.SigmaLow, cfg.SigmaHigh, cfg.WinsorizationCutoff)
	case RejectLinearFit:
		d.RejectionParameters = fmt.Sprintf("lfit_low=%g lfit_high=%g", cfg.LinearFitLow, cfg.LinearFitHigh)
	case RejectCCDNoise:
		d.RejectionParameters = fmt.Sprintf("gain=%g read_noise=%g scale_noise=%g",
			cfg.CCDGain, cfg.CCDReadNoise, cfg.CCDScaleNoise)
	case RejectESD:
		d.RejectionParameters = fmt.Sprintf("outliers=%g alpha=%g low_relaxation=%g",
			cfg.ESDOutliersFraction, cfg.ESDAlpha, cfg.ESDLowRelaxation)
	case RejectRCR:
		d.RejectionParameters = fmt.Sprintf("limit=%g", cfg.RCRLimit)
	}
	switch {
	case cfg.LargeScaleClipLow && cfg.LargeScaleClipHigh:
		d.LargeScaleClippings = fmt.Sprintf("low(layers=%d growth=%d) high(layers=%d growth=%d)",
			cfg.LargeScaleLowProtectedLayers, cfg.LargeScaleLowGrowth,
			cfg.LargeScaleHighProtectedLayers, cfg.LargeScaleHighGrowth)
	case cfg.LargeScaleClipLow:
		d.LargeScaleClippings = fmt.Sprintf("low(layers=%d growth=%d)",
			cfg.LargeScaleLowProtectedLayers, cfg.LargeScaleLowGrowth)
	case cfg.LargeScaleClipHigh:
		d.LargeScaleClippings = fmt.Sprintf("high(layers=%d growth=%d)",
			cfg.LargeScaleHighProtectedLayers, cfg.LargeScaleHighGrowth)
	default:
		d.LargeScaleClippings = "disabled"
	}
	return d
}

// writeOutputs flushes the run's accumulators to the sinks.
func writeOutputs(cfg *Config, e *Engine, sinks Sinks, res *Result) error {
	g := res.Geometry
	bits := 32
	if cfg.Generate64BitResult {
		bits = 64
	}

	if cfg.GenerateIntegratedImage && sinks.Image != nil {
		if err := writeImage(sinks.Image, e.out, g, bits); err != nil {
			return wrapErr(ErrInputInvalid, "write image", err)
		}
		setDescription(sinks.Image, res)
		if err := sinks.Image.Close(); err != nil {
			return wrapErr(ErrInputInvalid, "write image", err)
		}
	}
	if cfg.GenerateRejectionMaps && e.mapLow != nil {
		if sinks.MapLow != nil {
			if err := writeImage(sinks.MapLow, e.mapLow, g, 32); err != nil {
				return wrapErr(ErrInputInvalid, "write low rejection map", err)
			}
			if err := sinks.MapLow.Close(); err != nil {
				return wrapErr(ErrInputInvalid, "write low rejection map", err)
			}
		}
		if sinks.MapHigh != nil {
			if err := writeImage(sinks.MapHigh, e.mapHi, g, 32); err != nil {
				return wrapErr(ErrInputInvalid, "write high rejection map", err)
			}
			if err := sinks.MapHigh.Close(); err != nil {
				return wrapErr(ErrInputInvalid, "write high rejection map", err)
			}
		}
	}
	if e.slope != nil && sinks.SlopeMap != nil {
		if err := writeImage(sinks.SlopeMap, e.slope, g, 32); err != nil {
			return wrapErr(ErrInputInvalid, "write slope map", err)
		}
		if err := sinks.SlopeMap.Close(); err != nil {
			return wrapErr(ErrInputInvalid, "write slope map", err)
		}
	}
	if sinks.Report != nil {
		writeReport(sinks.Report, res)
	}
	if cfg.GenerateDrizzleData {
		if err := appendDrizzleRecords(e, res); err != nil {
			cfg.Logger.Warning("could not append drizzle data", "error", err.Error())
		}
	}
	return nil
}

// writeImage allocates the sink and streams whole rows.
func writeImage(sink image.Sink, pix []float64, g image.Geometry, bits int) error {
	if err := sink.Allocate(g.Width, g.Height, g.Channels, bits); err != nil {
		return err
	}
	rw := g.Width * g.Channels
	for y := 0; y < g.Height; y++ {
		if err := sink.WriteRows(y, pix[y*rw:(y+1)*rw]); err != nil {
			return err
		}
	}
	return nil
}

// setDescription attaches the run description and global statistics to
// the integrated image.
func setDescription(sink image.Sink, res *Result) {
	d := res.Description
	sink.SetProperty("Integration:PixelCombination", d.PixelCombination)
	sink.SetProperty("Integration:OutputNormalization", d.OutputNormalization)
	sink.SetProperty("Integration:WeightMode", d.WeightMode)
	sink.SetProperty("Integration:ScaleEstimator", d.ScaleEstimator)
	sink.SetProperty("Integration:RangeRejection", d.RangeRejection)
	sink.SetProperty("Integration:PixelRejection", d.PixelRejection)
	sink.SetProperty("Integration:RejectionNormalization", d.RejectionNormalization)
	sink.SetProperty("Integration:RejectionClippings", d.RejectionClippings)
	sink.SetProperty("Integration:RejectionParameters", d.RejectionParameters)
	sink.SetProperty("Integration:LargeScaleClippings", d.LargeScaleClippings)
	sink.SetProperty("Integration:RegionOfInterest", d.RegionOfInterest)
	for c := range res.FinalNoise {
		sink.SetProperty(fmt.Sprintf("Integration:FinalNoise%02d", c), res.FinalNoise[c])
		sink.SetProperty(fmt.Sprintf("Integration:FinalScale%02d", c), res.FinalScale[c])
		sink.SetProperty(fmt.Sprintf("Integration:FinalLocation%02d", c), res.FinalLocation[c])
	}
}

// writeReport renders the per-frame table.
func writeReport(w io.Writer, res *Result) {
	fmt.Fprintf(w, "index enabled path weights rejected_low rejected_high\n")
	for _, fr := range res.PerFrame {
		if !fr.Enabled {
			fmt.Fprintf(w, "%5d false   %s - - -\n", fr.Index, fr.Path)
			continue
		}
		fmt.Fprintf(w, "%5d true    %s %s %s %s\n",
			fr.Index, fr.Path,
			floatList(fr.Weight), uintList(fr.RejectedLow), uintList(fr.RejectedHigh))
	}
	fmt.Fprintf(w, "range rejected: low %d high %d; degenerate stacks %d\n",
		res.RangeLow, res.RangeHigh, res.DegenerateStacks)
}

func floatList(v []float64) string {
	s := ""
	for i, x := range v {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%.6g", x)
	}
	return s
}

func uintList(v []uint64) string {
	s := ""
	for i, x := range v {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", x)
	}
	return s
}

// drizzleRecord is the per-frame record appended next to the frame's
// drizzle data.
type drizzleRecord struct {
	Path         string
	Weight       []float64
	RejectedLow  []uint64
	RejectedHigh []uint64
}

// appendDrizzleRecords appends integration records to a file beside each
// frame's drizzle data, named DrizzlePath+".int".
func appendDrizzleRecords(e *Engine, res *Result) error {
	for _, f := range e.files {
		if f.item.DrizzlePath == "" {
			continue
		}
		fr := res.PerFrame[f.index]
		rec := drizzleRecord{
			Path:         fr.Path,
			Weight:       fr.Weight,
			RejectedLow:  fr.RejectedLow,
			RejectedHigh: fr.RejectedHigh,
		}
		out, err := os.OpenFile(f.item.DrizzlePath+".int", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "could not open drizzle data")
		}
		err = gob.NewEncoder(out).Encode(&rec)
		cerr := out.Close()
		if err != nil {
			return errors.Wrap(err, "could not append drizzle record")
		}
		if cerr != nil {
			return errors.Wrap(cerr, "could not close drizzle data")
		}
	}
	return nil
}
