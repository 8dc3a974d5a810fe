/*
DESCRIPTION
  mem.go provides in-memory image source and sink implementations. They are
  used throughout the test suites and wherever a caller already holds frame
  data as a sample slice.

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

package image

import (
	"github.com/pkg/errors"
)

// MemSource is an in-memory Source over a sample slice.
type MemSource struct {
	Geom     Geometry
	Bits     int
	Exp      float64
	Ped      float64
	Headers  map[string]string
	Data     []float32 // len = Geom.NumSamples()
}

// NewMemSource returns a MemSource over data with the given geometry.
func NewMemSource(data []float32, g Geometry) *MemSource {
	return &MemSource{Geom: g, Bits: 32, Data: data}
}

func (m *MemSource) Width() int          { return m.Geom.Width }
func (m *MemSource) Height() int         { return m.Geom.Height }
func (m *MemSource) Channels() int       { return m.Geom.Channels }
func (m *MemSource) BitsPerSample() int  { return m.Bits }
func (m *MemSource) Exposure() float64   { return m.Exp }
func (m *MemSource) Pedestal() float64   { return m.Ped }

func (m *MemSource) Header(name string) (string, bool) {
	v, ok := m.Headers[name]
	return v, ok
}

func (m *MemSource) ReadRows(y0, y1 int, dst []float32) error {
	if y0 < 0 || y1 > m.Geom.Height || y0 > y1 {
		return errors.Errorf("row range [%d,%d) out of bounds, height %d", y0, y1, m.Geom.Height)
	}
	rw := m.Geom.Width * m.Geom.Channels
	n := copy(dst, m.Data[y0*rw:y1*rw])
	if n != (y1-y0)*rw {
		return errors.Errorf("short row read: %d of %d samples", n, (y1-y0)*rw)
	}
	return nil
}

func (m *MemSource) Close() error { return nil }

// MemSink is an in-memory Sink. After the run the accumulated pixels are
// available in Pix and the properties in Props.
type MemSink struct {
	Geom  Geometry
	Bits  int
	Pix   []float64
	Props map[string]interface{}
}

// NewMemSink returns an empty MemSink; Allocate sets its geometry.
func NewMemSink() *MemSink {
	return &MemSink{Props: make(map[string]interface{})}
}

func (m *MemSink) Allocate(width, height, channels, bitsPerSample int) error {
	if width <= 0 || height <= 0 || channels <= 0 {
		return errors.Errorf("bad allocation %dx%dx%d", width, height, channels)
	}
	m.Geom = Geometry{Width: width, Height: height, Channels: channels}
	m.Bits = bitsPerSample
	m.Pix = make([]float64, m.Geom.NumSamples())
	return nil
}

func (m *MemSink) WriteRows(y0 int, rows []float64) error {
	rw := m.Geom.Width * m.Geom.Channels
	if rw == 0 {
		return errors.New("write before allocate")
	}
	if len(rows)%rw != 0 {
		return errors.Errorf("rows length %d is not a whole number of rows", len(rows))
	}
	end := y0*rw + len(rows)
	if y0 < 0 || end > len(m.Pix) {
		return errors.Errorf("row write at %d overflows image", y0)
	}
	copy(m.Pix[y0*rw:end], rows)
	return nil
}

func (m *MemSink) SetProperty(name string, value interface{}) error {
	m.Props[name] = value
	return nil
}

func (m *MemSink) Close() error { return nil }
