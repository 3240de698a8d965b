package workload

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDeterministic(t *testing.T) {
	cfg := Config{
		Categories:  []string{CategoryClean, CategoryNoisy},
		PerCategory: 2,
		Size:        96,
		Seed:        42,
	}

	imgs1, sum1, err := NewGenerator(cfg).Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}

	imgs2, sum2, err := NewGenerator(cfg).Build()
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}

	if sum1 != sum2 {
		t.Errorf("summaries differ: %+v vs %+v", sum1, sum2)
	}

	if len(imgs1) != len(imgs2) {
		t.Fatalf("image counts differ: %d vs %d", len(imgs1), len(imgs2))
	}

	for i := range imgs1 {
		if imgs1[i].ID != imgs2[i].ID {
			t.Errorf("id %d = %q vs %q", i, imgs1[i].ID, imgs2[i].ID)
		}
		if imgs1[i].ExpectedText != imgs2[i].ExpectedText {
			t.Errorf("payload %d differs", i)
		}
		if !bytes.Equal(imgs1[i].Data, imgs2[i].Data) {
			t.Errorf("image %s not deterministic for same seed", imgs1[i].ID)
		}
	}
}

func TestBuildDifferentSeeds(t *testing.T) {
	build := func(seed int64) string {
		imgs, _, err := NewGenerator(Config{
			Categories:  []string{CategoryClean},
			PerCategory: 1,
			Size:        64,
			Seed:        seed,
		}).Build()
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		return imgs[0].ExpectedText
	}

	if build(1) == build(2) {
		t.Error("expected different payloads for different seeds")
	}
}

func TestBuildCounts(t *testing.T) {
	tests := []struct {
		name           string
		cfg            Config
		wantCategories int
		wantImages     int
	}{
		{
			name: "single category",
			cfg: Config{
				Categories:  []string{CategoryRotated},
				PerCategory: 3,
				Size:        64,
				Seed:        1,
			},
			wantCategories: 1,
			wantImages:     3,
		},
		{
			name: "all categories",
			cfg: Config{
				PerCategory: 1,
				Size:        64,
				Seed:        2,
			},
			wantCategories: len(KnownCategories()),
			wantImages:     len(KnownCategories()),
		},
		{
			name: "empty",
			cfg: Config{
				Categories: []string{CategoryClean},
				Seed:       3,
			},
			wantCategories: 1,
			wantImages:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imgs, sum, err := NewGenerator(tt.cfg).Build()
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}

			if sum.Categories != tt.wantCategories {
				t.Errorf("categories = %d, want %d", sum.Categories, tt.wantCategories)
			}
			if sum.Images != tt.wantImages || len(imgs) != tt.wantImages {
				t.Errorf("images = %d (%d returned), want %d",
					sum.Images, len(imgs), tt.wantImages)
			}

			total := 0
			for _, img := range imgs {
				total += len(img.Data)

				if !strings.HasPrefix(img.ID, img.Category+"/") {
					t.Errorf("id %q not under category %q", img.ID, img.Category)
				}
				if len(img.ExpectedText) != 24 {
					t.Errorf("payload length = %d, want 24", len(img.ExpectedText))
				}
			}

			if sum.Bytes != total {
				t.Errorf("bytes = %d, want %d", sum.Bytes, total)
			}
		})
	}
}

func TestBuildUnknownCategory(t *testing.T) {
	_, _, err := NewGenerator(Config{
		Categories:  []string{"smudged"},
		PerCategory: 1,
	}).Build()
	if err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestGenerateWritesLayout(t *testing.T) {
	dir := t.TempDir()

	sum, err := NewGenerator(Config{
		Categories:  []string{CategoryClean, CategoryInverted},
		PerCategory: 2,
		Size:        64,
		PayloadLen:  10,
		Seed:        7,
	}).Generate(dir)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if sum.Images != 4 {
		t.Errorf("images = %d, want 4", sum.Images)
	}

	for _, category := range []string{CategoryClean, CategoryInverted} {
		pngs, _ := filepath.Glob(filepath.Join(dir, category, "*.png"))
		txts, _ := filepath.Glob(filepath.Join(dir, category, "*.txt"))

		if len(pngs) != 2 || len(txts) != 2 {
			t.Errorf("%s: %d images, %d sidecars, want 2 each",
				category, len(pngs), len(txts))
		}
	}

	truth, err := os.ReadFile(filepath.Join(dir, CategoryClean, "image001.txt"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if len(strings.TrimSpace(string(truth))) != 10 {
		t.Errorf("sidecar = %q, want a 10 character payload", truth)
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG("hello", 128)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("size = %dx%d, want 128x128", b.Dx(), b.Dy())
	}
}

func TestSummarySize(t *testing.T) {
	tests := []struct {
		bytes int
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{3 << 20, "3.0 MiB"},
		{5 << 30, "5.0 GiB"},
	}

	for _, tt := range tests {
		got := Summary{Bytes: tt.bytes}.Size()
		if got != tt.want {
			t.Errorf("Size(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
