// Package workload generates deterministic synthetic QR corpora for
// benchmarking. Each corpus consists of one directory per distortion
// category holding PNG images and a sidecar .txt with the encoded payload.
package workload

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	mrand "math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/weiihann/qrbench/corpus"
)

// Distortion categories.
const (
	CategoryClean       = "clean"
	CategoryRotated     = "rotated"
	CategoryBlurred     = "blurred"
	CategoryNoisy       = "noisy"
	CategoryInverted    = "inverted"
	CategoryLowContrast = "low_contrast"
)

const payloadAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// KnownCategories returns every category the generator can produce.
func KnownCategories() []string {
	return []string{
		CategoryBlurred,
		CategoryClean,
		CategoryInverted,
		CategoryLowContrast,
		CategoryNoisy,
		CategoryRotated,
	}
}

// Summary contains statistics about the generated corpus.
type Summary struct {
	Categories int
	Images     int
	Bytes      int
}

// Size renders the corpus byte total with a binary unit, e.g. "1.5 MiB".
func (s Summary) Size() string {
	const unit = 1024

	if s.Bytes < unit {
		return fmt.Sprintf("%d B", s.Bytes)
	}

	div, exp := unit, 0
	for n := s.Bytes / unit; n >= unit && exp < 3; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(s.Bytes)/float64(div), "KMGT"[exp])
}

// Config controls corpus generation parameters.
type Config struct {
	Categories  []string
	PerCategory int
	Size        int
	PayloadLen  int
	Seed        int64
}

// Generator produces deterministic corpora from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config. Zero values fall
// back to every known category, 256px images and 24-byte payloads.
func NewGenerator(cfg Config) *Generator {
	if len(cfg.Categories) == 0 {
		cfg.Categories = KnownCategories()
	}
	if cfg.Size <= 0 {
		cfg.Size = 256
	}
	if cfg.PayloadLen <= 0 {
		cfg.PayloadLen = 24
	}

	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Build renders the corpus in memory.
func (g *Generator) Build() ([]corpus.Image, Summary, error) {
	var summary Summary

	categories := append([]string(nil), g.cfg.Categories...)
	sort.Strings(categories)

	images := make([]corpus.Image, 0, len(categories)*g.cfg.PerCategory)

	for _, category := range categories {
		for i := 1; i <= g.cfg.PerCategory; i++ {
			payload := g.randomPayload()

			data, err := g.render(category, payload)
			if err != nil {
				return nil, summary, fmt.Errorf("render %s #%d: %w",
					category, i, err)
			}

			images = append(images, corpus.Image{
				ID:           fmt.Sprintf("%s/image%03d.png", category, i),
				Category:     category,
				Data:         data,
				ExpectedText: payload,
			})

			summary.Images++
			summary.Bytes += len(data)
		}

		summary.Categories++
	}

	return images, summary, nil
}

// Generate renders the corpus and writes it under dir using the on-disk
// corpus layout.
func (g *Generator) Generate(dir string) (Summary, error) {
	images, summary, err := g.Build()
	if err != nil {
		return summary, err
	}

	for _, img := range images {
		path := filepath.Join(dir, filepath.FromSlash(img.ID))

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return summary, fmt.Errorf("create category dir: %w", err)
		}

		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return summary, fmt.Errorf("write image %s: %w", path, err)
		}

		sidecar := path[:len(path)-len(filepath.Ext(path))] + ".txt"
		if err := os.WriteFile(sidecar, []byte(img.ExpectedText+"\n"), 0o644); err != nil {
			return summary, fmt.Errorf("write ground truth %s: %w", sidecar, err)
		}
	}

	return summary, nil
}

// EncodePNG renders text as a size×size QR code with a four module quiet
// zone and returns it PNG encoded.
func EncodePNG(text string, size int) ([]byte, error) {
	img, err := encode(text, size)
	if err != nil {
		return nil, err
	}

	return encodePNG(img)
}

func encode(text string, size int) (*image.NRGBA, error) {
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_MARGIN: 4,
	}

	matrix, err := qrcode.NewQRCodeWriter().Encode(
		text, gozxing.BarcodeFormat_QR_CODE, size, size, hints,
	)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	return imaging.Clone(matrix), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *Generator) render(category, payload string) ([]byte, error) {
	img, err := encode(payload, g.cfg.Size)
	if err != nil {
		return nil, err
	}

	switch category {
	case CategoryClean:
	case CategoryRotated:
		angle := 5 + g.rng.Float64()*40
		img = imaging.Rotate(img, angle, color.White)
	case CategoryBlurred:
		img = imaging.Blur(img, 1+g.rng.Float64()*2)
	case CategoryNoisy:
		img = g.addNoise(img, 0.05+g.rng.Float64()*0.1)
	case CategoryInverted:
		img = imaging.Invert(img)
	case CategoryLowContrast:
		img = imaging.AdjustContrast(img, -60-g.rng.Float64()*20)
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}

	return encodePNG(img)
}

// addNoise flips a fraction of pixels to a random grey level.
func (g *Generator) addNoise(img *image.NRGBA, fraction float64) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if g.rng.Float64() >= fraction {
				continue
			}

			v := uint8(g.rng.Intn(256))
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	return out
}

func (g *Generator) randomPayload() string {
	buf := make([]byte, g.cfg.PayloadLen)
	for i := range buf {
		buf[i] = payloadAlphabet[g.rng.Intn(len(payloadAlphabet))]
	}

	return string(buf)
}
