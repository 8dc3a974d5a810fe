/*
DESCRIPTION
  loader.go refills the row buffers of all enabled frames for one band.
  Frames load in parallel up to the buffer worker bound; rows within one
  frame load sequentially. Workers consuming rows block in the frame's
  buffer until their range is materialized, so computation overlaps the
  remaining loads.

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

import "sync"

// dataLoader drives parallel row-buffer refills.
type dataLoader struct {
	files   []*IntegrationFile
	workers int
}

func newDataLoader(files []*IntegrationFile, workers int) *dataLoader {
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}
	return &dataLoader{files: files, workers: workers}
}

// load starts filling rows [y0,y1) of every frame's buffer and returns once
// every fill has been started (at most workers run at a time); consumers
// block in rowBuffer.rows until their frame is ready. Wait on the returned
// WaitGroup blocks until all fills of the band have finished.
func (l *dataLoader) load(y0, y1 int) *sync.WaitGroup {
	var wg sync.WaitGroup
	sem := make(chan bool, l.workers)
	for _, f := range l.files {
		wg.Add(1)
		sem <- true
		go func(f *IntegrationFile) {
			defer func() { <-sem; wg.Done() }()
			f.buf.fill(f.src, y0, y1, f.pedestal)
		}(f)
	}
	return &wg
}
