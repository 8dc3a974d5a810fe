/*
DESCRIPTION
  fileitem.go defines the opaque handle to one input frame: its source
  path, optional local-normalization and drizzle paths, and the enabled
  flag. The FrameID used as the cache key is a 128-bit hash of the file
  content combined with the associated data paths.

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
	"crypto/md5"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/ausocean/astro/image"
)

// FileItem describes one input frame of a run.
type FileItem struct {
	// Path locates the frame image.
	Path string

	// LocalNormalizationPath optionally locates the per-pixel linear
	// normalization data for the frame.
	LocalNormalizationPath string

	// DrizzlePath optionally locates the frame's drizzle data; rejection
	// and weight records are appended to DrizzlePath+".int".
	DrizzlePath string

	// Enabled excludes the frame from the run when false.
	Enabled bool

	// Reference marks the frame whose statistics anchor normalization.
	// When no item is marked, the engine selects the frame with the
	// median location estimate.
	Reference bool

	// Source optionally supplies an already-open image source, in which
	// case Path is only used for reporting and the frame id hashes the
	// source samples and the associated paths.
	Source image.Source
}

// IsDefined reports whether the item names an input.
func (fi *FileItem) IsDefined() bool { return fi.Path != "" || fi.Source != nil }

// ID derives the frame's cache key: an md5 hash over the frame file
// content and the associated normalization and drizzle paths. For items
// with an in-memory source the hash covers the source samples instead.
func (fi *FileItem) ID() (FrameID, error) {
	h := md5.New()
	if fi.Source == nil && fi.Path != "" {
		f, err := os.Open(fi.Path)
		if err != nil {
			return FrameID{}, errors.Wrap(err, "could not open frame for hashing")
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return FrameID{}, errors.Wrap(err, "could not hash frame content")
		}
	} else if fi.Source != nil {
		src := fi.Source
		g := image.Geometry{Width: src.Width(), Height: src.Height(), Channels: src.Channels()}
		row := make([]float32, g.Width*g.Channels)
		buf := make([]byte, 4*len(row))
		for y := 0; y < g.Height; y++ {
			if err := src.ReadRows(y, y+1, row); err != nil {
				return FrameID{}, errors.Wrap(err, "could not hash frame rows")
			}
			for i, v := range row {
				bits := math.Float32bits(v)
				buf[i*4] = byte(bits)
				buf[i*4+1] = byte(bits >> 8)
				buf[i*4+2] = byte(bits >> 16)
				buf[i*4+3] = byte(bits >> 24)
			}
			h.Write(buf)
		}
	} else {
		return FrameID{}, errors.New("file item has no path or source")
	}
	io.WriteString(h, "\x00"+fi.LocalNormalizationPath)
	io.WriteString(h, "\x00"+fi.DrizzlePath)

	var id FrameID
	copy(id[:], h.Sum(nil))
	return id, nil
}
