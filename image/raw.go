/*
DESCRIPTION
  raw.go implements the image Source and Sink over a flat binary file. The
  format is a small self-describing header (geometry, sample depth,
  exposure, pedestal, named header values) followed by row-major samples in
  little-endian order. It exists so the engine and the CLI can run against
  real files without binding to a full astronomical format library.

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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
)

var rawMagic = [4]byte{'A', 'R', 'W', '1'}

// RawSource reads a flat raw image file.
type RawSource struct {
	f       *os.File
	geom    Geometry
	bits    int
	exp     float64
	ped     float64
	headers map[string]string
	data0   int64 // file offset of the first sample
}

// OpenRaw opens path as a raw image source.
func OpenRaw(path string) (*RawSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open raw image")
	}
	s := &RawSource{f: f, headers: make(map[string]string)}
	if err := s.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *RawSource) readHeader() error {
	var magic [4]byte
	if _, err := io.ReadFull(s.f, magic[:]); err != nil {
		return errors.Wrap(err, "could not read magic")
	}
	if magic != rawMagic {
		return errors.New("not a raw image file")
	}
	var fixed struct {
		Width, Height, Channels, Bits uint32
		Exposure, Pedestal            float64
		NHeaders                      uint32
	}
	if err := binary.Read(s.f, binary.LittleEndian, &fixed); err != nil {
		return errors.Wrap(err, "could not read raw header")
	}
	if fixed.Bits != 32 && fixed.Bits != 64 {
		return errors.Errorf("unsupported sample depth %d", fixed.Bits)
	}
	s.geom = Geometry{Width: int(fixed.Width), Height: int(fixed.Height), Channels: int(fixed.Channels)}
	s.bits = int(fixed.Bits)
	s.exp = fixed.Exposure
	s.ped = fixed.Pedestal
	for i := uint32(0); i < fixed.NHeaders; i++ {
		k, err := readString(s.f)
		if err != nil {
			return err
		}
		v, err := readString(s.f)
		if err != nil {
			return err
		}
		s.headers[k] = v
	}
	off, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "could not locate sample data")
	}
	s.data0 = off
	return nil
}

func (s *RawSource) Width() int         { return s.geom.Width }
func (s *RawSource) Height() int        { return s.geom.Height }
func (s *RawSource) Channels() int      { return s.geom.Channels }
func (s *RawSource) BitsPerSample() int { return s.bits }
func (s *RawSource) Exposure() float64  { return s.exp }
func (s *RawSource) Pedestal() float64  { return s.ped }

func (s *RawSource) Header(name string) (string, bool) {
	v, ok := s.headers[name]
	return v, ok
}

func (s *RawSource) ReadRows(y0, y1 int, dst []float32) error {
	if y0 < 0 || y1 > s.geom.Height || y0 > y1 {
		return errors.Errorf("row range [%d,%d) out of bounds, height %d", y0, y1, s.geom.Height)
	}
	rw := s.geom.Width * s.geom.Channels
	n := (y1 - y0) * rw
	bps := s.bits / 8
	buf := make([]byte, n*bps)
	if _, err := s.f.ReadAt(buf, s.data0+int64(y0*rw*bps)); err != nil {
		return errors.Wrap(err, "could not read rows")
	}
	switch s.bits {
	case 32:
		for i := 0; i < n; i++ {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
	case 64:
		for i := 0; i < n; i++ {
			dst[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:])))
		}
	}
	return nil
}

func (s *RawSource) Close() error { return s.f.Close() }

// RawSink writes a flat raw image file. Properties are stored as header
// values; they are flushed with the fixed header on Close so the sink can
// receive properties at any point of the run.
type RawSink struct {
	path  string
	geom  Geometry
	bits  int
	pix   []float64
	props map[string]string
	exp   float64
	ped   float64
}

// NewRawSink returns a sink that will write path on Close.
func NewRawSink(path string) *RawSink {
	return &RawSink{path: path, props: make(map[string]string)}
}

func (s *RawSink) Allocate(width, height, channels, bitsPerSample int) error {
	if width <= 0 || height <= 0 || channels <= 0 {
		return errors.Errorf("bad allocation %dx%dx%d", width, height, channels)
	}
	if bitsPerSample != 32 && bitsPerSample != 64 {
		return errors.Errorf("unsupported sample depth %d", bitsPerSample)
	}
	s.geom = Geometry{Width: width, Height: height, Channels: channels}
	s.bits = bitsPerSample
	s.pix = make([]float64, s.geom.NumSamples())
	return nil
}

func (s *RawSink) WriteRows(y0 int, rows []float64) error {
	rw := s.geom.Width * s.geom.Channels
	if rw == 0 {
		return errors.New("write before allocate")
	}
	end := y0*rw + len(rows)
	if y0 < 0 || end > len(s.pix) {
		return errors.Errorf("row write at %d overflows image", y0)
	}
	copy(s.pix[y0*rw:end], rows)
	return nil
}

func (s *RawSink) SetProperty(name string, value interface{}) error {
	s.props[name] = toString(value)
	return nil
}

// Close writes the file. A temporary file is renamed into place so a
// cancelled run never leaves a half-written output.
func (s *RawSink) Close() error {
	if s.pix == nil {
		return errors.New("close before allocate")
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "could not create output")
	}
	err = writeRaw(f, s)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "could not close output")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "could not finalize output")
}

func writeRaw(w io.Writer, s *RawSink) error {
	if _, err := w.Write(rawMagic[:]); err != nil {
		return errors.Wrap(err, "could not write magic")
	}
	fixed := struct {
		Width, Height, Channels, Bits uint32
		Exposure, Pedestal            float64
		NHeaders                      uint32
	}{uint32(s.geom.Width), uint32(s.geom.Height), uint32(s.geom.Channels), uint32(s.bits),
		s.exp, s.ped, uint32(len(s.props))}
	if err := binary.Write(w, binary.LittleEndian, &fixed); err != nil {
		return errors.Wrap(err, "could not write header")
	}
	keys := make([]string, 0, len(s.props))
	for k := range s.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, s.props[k]); err != nil {
			return err
		}
	}
	var buf []byte
	switch s.bits {
	case 32:
		buf = make([]byte, len(s.pix)*4)
		for i, v := range s.pix {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		}
	case 64:
		buf = make([]byte, len(s.pix)*8)
		for i, v := range s.pix {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
		}
	}
	_, err := w.Write(buf)
	return errors.Wrap(err, "could not write samples")
}

// WriteRawFile writes a raw image file in one call. It is used by tests and
// tools that synthesize frames.
func WriteRawFile(path string, data []float32, g Geometry, exposure, pedestal float64, headers map[string]string) error {
	s := NewRawSink(path)
	if err := s.Allocate(g.Width, g.Height, g.Channels, 32); err != nil {
		return err
	}
	s.exp = exposure
	s.ped = pedestal
	for k, v := range headers {
		s.props[k] = v
	}
	rows := make([]float64, len(data))
	for i, v := range data {
		rows[i] = float64(v)
	}
	if err := s.WriteRows(0, rows); err != nil {
		return err
	}
	return s.Close()
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", errors.Wrap(err, "could not read string length")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errors.Wrap(err, "could not read string")
	}
	return string(b), nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return errors.Wrap(err, "could not write string length")
	}
	_, err := w.Write([]byte(s))
	return errors.Wrap(err, "could not write string")
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
