/*
DESCRIPTION
  image_test.go provides testing for the in-memory and raw-file image
  implementations.

AUTHORS
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
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemSourceReadRows(t *testing.T) {
	g := Geometry{Width: 3, Height: 2, Channels: 1}
	src := NewMemSource([]float32{1, 2, 3, 4, 5, 6}, g)
	dst := make([]float32, 3)
	if err := src.ReadRows(1, 2, dst); err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if diff := cmp.Diff([]float32{4, 5, 6}, dst); diff != "" {
		t.Errorf("row mismatch:\n%s", diff)
	}
	if err := src.ReadRows(1, 3, dst); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestMemSinkRoundTrip(t *testing.T) {
	sink := NewMemSink()
	if err := sink.Allocate(2, 2, 1, 32); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := sink.WriteRows(0, []float64{1, 2}); err != nil {
		t.Fatalf("WriteRows failed: %v", err)
	}
	if err := sink.WriteRows(1, []float64{3, 4}); err != nil {
		t.Fatalf("WriteRows failed: %v", err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4}, sink.Pix); diff != "" {
		t.Errorf("pixel mismatch:\n%s", diff)
	}
}

func TestRawRoundTrip(t *testing.T) {
	g := Geometry{Width: 4, Height: 3, Channels: 2}
	data := make([]float32, g.NumSamples())
	for i := range data {
		data[i] = float32(i) * 0.125
	}
	path := filepath.Join(t.TempDir(), "frame.arw")
	headers := map[string]string{"EXPTIME": "120", "NOISE00": "0.002"}
	if err := WriteRawFile(path, data, g, 120, 256, headers); err != nil {
		t.Fatalf("WriteRawFile failed: %v", err)
	}

	src, err := OpenRaw(path)
	if err != nil {
		t.Fatalf("OpenRaw failed: %v", err)
	}
	defer src.Close()

	if src.Width() != g.Width || src.Height() != g.Height || src.Channels() != g.Channels {
		t.Fatalf("geometry mismatch: %dx%dx%d", src.Width(), src.Height(), src.Channels())
	}
	if src.Exposure() != 120 || src.Pedestal() != 256 {
		t.Errorf("exposure/pedestal mismatch: %v %v", src.Exposure(), src.Pedestal())
	}
	if v, ok := src.Header("EXPTIME"); !ok || v != "120" {
		t.Errorf("header EXPTIME = %q, %v", v, ok)
	}

	got := make([]float32, g.NumSamples())
	if err := src.ReadRows(0, g.Height, got); err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("sample mismatch:\n%s", diff)
	}
}

func TestRawPartialRows(t *testing.T) {
	g := Geometry{Width: 2, Height: 4, Channels: 1}
	data := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	path := filepath.Join(t.TempDir(), "frame.arw")
	if err := WriteRawFile(path, data, g, 0, 0, nil); err != nil {
		t.Fatalf("WriteRawFile failed: %v", err)
	}
	src, err := OpenRaw(path)
	if err != nil {
		t.Fatalf("OpenRaw failed: %v", err)
	}
	defer src.Close()

	got := make([]float32, 4)
	if err := src.ReadRows(1, 3, got); err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if diff := cmp.Diff([]float32{2, 3, 4, 5}, got); diff != "" {
		t.Errorf("row mismatch:\n%s", diff)
	}
}

func TestOpenRawRejectsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	if err := WriteRawFile(path, []float32{0}, Geometry{Width: 1, Height: 1, Channels: 1}, 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenRaw(path + ".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}
