/*
DESCRIPTION
  graph.go renders the flux-scale samples of a calibration run as a
  scatter graph with the robust scale line, written to an SVG file. The
  graph is the formatted-report surface of the engine.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package spfc

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// WriteGraph renders the channel's scale samples to path. Accepted
// samples plot as the scatter; the robust scale draws as a horizontal
// line across the star range.
func WriteGraph(res *Result, channel int, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Flux scale, channel %d", channel)
	p.X.Label.Text = "star"
	p.Y.Label.Text = "scale"

	var accepted, rejected plotter.XYs
	for _, s := range res.Samples {
		if s.Channel != channel || s.Scale == 0 {
			continue
		}
		pt := plotter.XY{X: float64(s.Star), Y: s.Scale}
		if s.Rejected {
			rejected = append(rejected, pt)
		} else {
			accepted = append(accepted, pt)
		}
	}
	if len(accepted) > 0 {
		sc, err := plotter.NewScatter(accepted)
		if err != nil {
			return errors.Wrap(err, "could not build scatter")
		}
		p.Add(sc)
		p.Legend.Add("accepted", sc)
	}
	if len(rejected) > 0 {
		sc, err := plotter.NewScatter(rejected)
		if err != nil {
			return errors.Wrap(err, "could not build scatter")
		}
		sc.Shape = draw.CrossGlyph{}
		p.Add(sc)
		p.Legend.Add("rejected", sc)
	}

	scale := res.ScaleFactor[channel]
	line := plotter.XYs{
		{X: 0, Y: scale},
		{X: float64(len(res.Samples)/len(res.ScaleFactor) - 1), Y: scale},
	}
	ln, err := plotter.NewLine(line)
	if err != nil {
		return errors.Wrap(err, "could not build scale line")
	}
	p.Add(ln)
	p.Legend.Add(fmt.Sprintf("scale %.4g", scale), ln)

	return errors.Wrap(p.Save(16*vg.Centimeter, 10*vg.Centimeter, path),
		"could not save graph")
}
