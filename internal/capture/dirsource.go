package capture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirProvider is a frame source backed by a directory of still images,
// standing in for a live camera. A subdirectory named after a facing mode
// ("user" or "environment") acts as a separate device; a flat directory is a
// single device with no facing constraint.
type DirProvider struct {
	root string
}

func NewDirProvider(root string) *DirProvider {
	return &DirProvider{root: root}
}

func (p *DirProvider) Devices() ([]Device, error) {
	if p.root == "" {
		return nil, fmt.Errorf("no camera directory configured")
	}

	var devices []Device
	for _, facing := range []Facing{FacingBack, FacingFront} {
		dir := filepath.Join(p.root, string(facing))
		if files, err := listImages(dir); err == nil && len(files) > 0 {
			devices = append(devices, Device{
				ID:     dir,
				Label:  string(facing) + " camera",
				Facing: facing,
			})
		}
	}
	if len(devices) > 0 {
		return devices, nil
	}

	files, err := listImages(p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera directory: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return []Device{{ID: p.root, Label: "camera", Facing: FacingAny}}, nil
}

func (p *DirProvider) Open(facing Facing) (Stream, error) {
	devices, err := p.Devices()
	if err != nil {
		return nil, err
	}

	var dir string
	switch {
	case facing != FacingAny:
		for _, d := range devices {
			if d.Facing == facing {
				dir = d.ID
			}
		}
		if dir == "" {
			return nil, fmt.Errorf("no %s-facing camera", facing)
		}
	case len(devices) > 0:
		dir = devices[0].ID
	default:
		return nil, fmt.Errorf("no camera device available")
	}

	files, err := listImages(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("camera directory %s holds no images", dir)
	}
	return &dirStream{files: files}, nil
}

// dirStream replays the directory's images in name order, wrapping around
// like a camera that never stops producing frames.
type dirStream struct {
	files  []string
	next   int
	closed bool
}

func (s *dirStream) Frame() (image.Image, error) {
	if s.closed {
		return nil, fmt.Errorf("stream closed")
	}

	path := s.files[s.next%len(s.files)]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *dirStream) Close() error {
	s.closed = true
	return nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
