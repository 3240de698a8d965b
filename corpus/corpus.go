// Package corpus loads and holds the categorized test images a benchmark
// runs against. A corpus is read once at startup and is read-only after.
package corpus

import (
	"errors"
	"fmt"
	"sort"

	"github.com/weiihann/qrbench/decoder"
)

var (
	// ErrNoImages is returned when a corpus would hold no images at all.
	ErrNoImages = errors.New("corpus has no images")
	// ErrEmptyCategory is returned for a category directory with no images.
	ErrEmptyCategory = errors.New("category has no images")
	// ErrUnknownCategory is returned when a selected category does not exist.
	ErrUnknownCategory = errors.New("unknown category")
)

// Image is one test image. It is immutable once loaded.
type Image struct {
	// ID is stable across runs: the slash separated path relative to the
	// corpus root, e.g. "blurred/image004.png".
	ID       string
	Category string
	Data     []byte

	// ExpectedText is the payload the image encodes, if known.
	ExpectedText string
	// ExpectedQuads holds hand-labelled code outlines for detection images.
	// Any one match counts as a correct detection.
	ExpectedQuads [][]decoder.Point
}

// HasGroundTruth reports whether the image carries an expected payload or
// expected outline.
func (img Image) HasGroundTruth() bool {
	return img.ExpectedText != "" || len(img.ExpectedQuads) > 0
}

// Corpus groups images by category. Categories and the images inside each
// are kept in lexical order so iteration is stable across runs.
type Corpus struct {
	categories []string
	byCategory map[string][]Image
}

// New builds a Corpus from images. Image IDs must be unique and every image
// must carry a category.
func New(images []Image) (*Corpus, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	c := &Corpus{byCategory: make(map[string][]Image)}
	seen := make(map[string]bool, len(images))

	for _, img := range images {
		if img.Category == "" {
			return nil, fmt.Errorf("image %q has no category", img.ID)
		}

		if seen[img.ID] {
			return nil, fmt.Errorf("duplicate image id %q", img.ID)
		}

		seen[img.ID] = true
		c.byCategory[img.Category] = append(c.byCategory[img.Category], img)
	}

	for category, imgs := range c.byCategory {
		sort.Slice(imgs, func(i, j int) bool { return imgs[i].ID < imgs[j].ID })
		c.categories = append(c.categories, category)
	}

	sort.Strings(c.categories)

	return c, nil
}

// Categories returns the category names in sorted order.
func (c *Corpus) Categories() []string {
	return append([]string(nil), c.categories...)
}

// ImagesIn returns the images of category in lexical ID order, or nil for
// an unknown category.
func (c *Corpus) ImagesIn(category string) []Image {
	return c.byCategory[category]
}

// Len returns the total number of images.
func (c *Corpus) Len() int {
	n := 0
	for _, imgs := range c.byCategory {
		n += len(imgs)
	}

	return n
}

// Select returns a corpus restricted to categories. An empty selection
// returns c unchanged.
func (c *Corpus) Select(categories []string) (*Corpus, error) {
	if len(categories) == 0 {
		return c, nil
	}

	out := &Corpus{byCategory: make(map[string][]Image, len(categories))}

	for _, category := range categories {
		if _, dup := out.byCategory[category]; dup {
			continue
		}

		imgs, ok := c.byCategory[category]
		if !ok {
			return nil, fmt.Errorf("%w %q (available: %v)",
				ErrUnknownCategory, category, c.categories)
		}

		out.byCategory[category] = imgs
		out.categories = append(out.categories, category)
	}

	sort.Strings(out.categories)

	return out, nil
}
