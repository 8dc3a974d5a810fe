/*
DESCRIPTION
  spectrum.go provides the sampled-spectrum arithmetic of the flux
  calibration engine: piecewise-linear resampling onto a common wavelength
  grid, Gaussian broadening to the instrument resolution via FFT
  convolution, and synthetic photometry through a filter transmission
  curve.

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

package spfc

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// Spectrum is a sampled spectral curve: strictly increasing wavelengths in
// nanometres with their values (flux density or transmission).
type Spectrum struct {
	Wavelength []float64
	Value      []float64
}

// Valid reports whether the spectrum has matching, sufficient samples.
func (s Spectrum) Valid() bool {
	return len(s.Wavelength) >= 2 && len(s.Wavelength) == len(s.Value)
}

// Resample interpolates the spectrum onto grid by piecewise-linear
// interpolation, clamping outside the sampled range to zero.
func (s Spectrum) Resample(grid []float64) (Spectrum, error) {
	if !s.Valid() {
		return Spectrum{}, errors.New("spectrum has fewer than two samples")
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(s.Wavelength, s.Value); err != nil {
		return Spectrum{}, errors.Wrap(err, "could not fit spectrum")
	}
	lo, hi := s.Wavelength[0], s.Wavelength[len(s.Wavelength)-1]
	out := Spectrum{
		Wavelength: append([]float64(nil), grid...),
		Value:      make([]float64, len(grid)),
	}
	for i, w := range grid {
		if w < lo || w > hi {
			continue
		}
		out.Value[i] = pl.Predict(w)
	}
	return out, nil
}

// Broaden convolves the spectrum with a Gaussian line-spread function of
// the given standard deviation in grid steps. The spectrum must be on a
// uniform grid.
func (s Spectrum) Broaden(sigmaSteps float64) Spectrum {
	n := len(s.Value)
	if n == 0 || sigmaSteps <= 0 {
		return s
	}
	// Discrete Gaussian kernel, truncated at 4 sigma.
	half := int(math.Ceil(4 * sigmaSteps))
	if half < 1 {
		return s
	}
	// Both operands are zero-padded to the full linear convolution length
	// so the circular FFT convolution equals the linear one.
	kernel := make([]complex128, n+2*half)
	var sum float64
	for i := -half; i <= half; i++ {
		g := math.Exp(-float64(i*i) / (2 * sigmaSteps * sigmaSteps))
		kernel[i+half] = complex(g, 0)
		sum += g
	}
	for i := range kernel {
		kernel[i] /= complex(sum, 0)
	}
	x := make([]complex128, n+2*half)
	for i, v := range s.Value {
		x[i] = complex(v, 0)
	}
	conv := fft.Convolve(x, kernel)
	out := Spectrum{
		Wavelength: s.Wavelength,
		Value:      make([]float64, n),
	}
	// The linear convolution is longer by the kernel tail on each side;
	// the centered window aligns the output with the input grid.
	for i := 0; i < n; i++ {
		out.Value[i] = real(conv[i+half])
	}
	return out
}

// FluxThrough integrates the spectrum against a filter transmission curve
// on the same grid by the trapezoidal rule.
func (s Spectrum) FluxThrough(filter Spectrum) (float64, error) {
	if len(filter.Value) != len(s.Value) {
		return 0, errors.New("filter grid does not match spectrum grid")
	}
	var flux float64
	for i := 1; i < len(s.Value); i++ {
		a := s.Value[i-1] * filter.Value[i-1]
		b := s.Value[i] * filter.Value[i]
		flux += 0.5 * (a + b) * (s.Wavelength[i] - s.Wavelength[i-1])
	}
	return flux, nil
}

// UniformGrid returns a regular wavelength grid covering [lo,hi] with the
// given step.
func UniformGrid(lo, hi, step float64) []float64 {
	if step <= 0 || hi <= lo {
		return nil
	}
	n := int((hi-lo)/step) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}
