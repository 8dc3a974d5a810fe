/*
DESCRIPTION
  image.go defines the abstract image source and sink interfaces through
  which the integration engine reads input frames and writes results. File
  format concerns live entirely behind these interfaces; the engine sees
  rows of float32/float64 samples and named header values only.

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

// Package image provides the abstract image source and sink used by the
// integration engine, together with in-memory and flat raw-file
// implementations.
package image

import "github.com/pkg/errors"

// Sample layout: a row holds width*channels float32 samples with channels
// interleaved, i.e. sample (x,c) of a row sits at x*channels+c. ReadRows
// fills dst with rows [y0,y1) back to back.

// Source is an opaque reader over one input image.
type Source interface {
	// Width, Height and Channels describe the image geometry.
	Width() int
	Height() int
	Channels() int

	// BitsPerSample reports the storage depth of the underlying file.
	BitsPerSample() int

	// Exposure returns the exposure time in seconds, or 0 if unknown.
	Exposure() float64

	// Pedestal returns the raw pedestal value declared by the file header,
	// in data numbers, or 0 if none. Callers divide by the format's
	// normalization constant before subtracting.
	Pedestal() float64

	// Header looks up a named header value.
	Header(name string) (string, bool)

	// ReadRows reads rows [y0,y1) into dst, which must hold
	// (y1-y0)*Width()*Channels() samples.
	ReadRows(y0, y1 int, dst []float32) error

	Close() error
}

// Sink is a writer for one output image.
type Sink interface {
	// Allocate sets the output geometry and sample depth. It must be called
	// before WriteRows. bitsPerSample is 32 or 64.
	Allocate(width, height, channels, bitsPerSample int) error

	// WriteRows writes rows starting at y0. rows holds whole rows in the
	// same interleaved layout as Source.ReadRows, in float64 regardless of
	// the allocated depth.
	WriteRows(y0 int, rows []float64) error

	// SetProperty attaches a named property to the output.
	SetProperty(name string, value interface{}) error

	Close() error
}

// Geometry bundles the three dimensions shared by all frames of a run.
type Geometry struct {
	Width    int
	Height   int
	Channels int
}

// NumSamples returns the per-frame sample count.
func (g Geometry) NumSamples() int { return g.Width * g.Height * g.Channels }

// RowBytes returns the in-memory size of one row of float32 samples.
func (g Geometry) RowBytes() int { return g.Width * g.Channels * 4 }

// Check validates a source against an expected geometry.
func Check(s Source, g Geometry) error {
	if s.Width() != g.Width || s.Height() != g.Height || s.Channels() != g.Channels {
		return errors.Errorf("incompatible geometry %dx%dx%d, want %dx%dx%d",
			s.Width(), s.Height(), s.Channels(), g.Width, g.Height, g.Channels)
	}
	return nil
}
