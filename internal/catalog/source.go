package catalog

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// FromDir lists the images directly under dir, sorted by name. Each artwork
// is identified by its file name and sourced relative to dir.
func FromDir(dir string) ([]*Artwork, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var items []*Artwork
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		items = append(items, &Artwork{ID: e.Name(), Source: e.Name()})
	}
	return items, nil
}

// FromURLs lists remote images, identified by their URL's last path element
// prefixed with the position to keep ids unique.
func FromURLs(urls []string) []*Artwork {
	items := make([]*Artwork, 0, len(urls))
	for i, u := range urls {
		items = append(items, &Artwork{ID: fmt.Sprintf("url-%04d-%s", i, path.Base(u)), Source: u})
	}
	return items
}

// DuplicateEvery is the spacing of repeated images in a synthetic catalog.
const DuplicateEvery = 25

// Synthesize writes n noise images into dir and lists them. Every
// DuplicateEvery-th image repeats the previous one's pixels under a new name.
func Synthesize(dir string, n int) ([]*Artwork, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	items := make([]*Artwork, 0, n)
	for i := 0; i < n; i++ {
		seed := uint64(i)
		if i%DuplicateEvery == DuplicateEvery-1 {
			seed = uint64(i - 1)
		}

		name := fmt.Sprintf("art-%04d.png", i)
		if err := writeNoise(filepath.Join(dir, name), seed); err != nil {
			return nil, err
		}
		items = append(items, &Artwork{ID: name, Source: name})
	}
	return items, nil
}

func writeNoise(path string, seed uint64) error {
	const size = 32

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.UintN(256))})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("catalog: encode %s: %w", path, err)
	}
	return f.Close()
}
