/*
DESCRIPTION
  cache_test.go provides testing for the content-addressed statistics
  store.

AUTHORS
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
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testID(b byte) FrameID {
	var id FrameID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("could not create cache: %v", err)
	}
	id := testID(1)
	st := &FrameStats{
		Width: 4, Height: 4, Channels: 1,
		Location:  []float64{0.1875},
		Mean:      []float64{0.1875},
		ScaleLow:  []float64{0.0625},
		ScaleHigh: []float64{0.0625},
		Noise:     []float64{0.001953125},
	}
	if err := c.Put(id, st); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, ok := c.Get(id)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if diff := cmp.Diff(st, got); diff != "" {
		t.Errorf("stored statistics differ:\n%s", diff)
	}
}

func TestCacheMiss(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(testID(9)); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	id := testID(2)
	if err := os.WriteFile(c.path(id), []byte("not a gob record"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(id); ok {
		t.Error("corrupt entry must read as a miss")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := testID(3)
	first := &FrameStats{Width: 1, Height: 1, Channels: 1, Location: []float64{0.5}}
	second := &FrameStats{Width: 1, Height: 1, Channels: 1, Location: []float64{0.75}}
	if err := c.Put(id, first); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(id, second); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get(id)
	if !ok || got.Location[0] != 0.75 {
		t.Errorf("overwrite not visible: %+v %v", got, ok)
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache
	if _, ok := c.Get(testID(4)); ok {
		t.Error("nil cache must miss")
	}
	if err := c.Put(testID(4), &FrameStats{}); err != nil {
		t.Errorf("nil cache put must be a no-op, got %v", err)
	}
}

func TestCacheClear(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(testID(5), &FrameStats{Width: 1, Height: 1, Channels: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := c.Get(testID(5)); ok {
		t.Error("entry survived clear")
	}
}
