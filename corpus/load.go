package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// LoadOptions controls which images Load keeps.
type LoadOptions struct {
	// Categories restricts loading to the named categories. Empty means all.
	Categories []string
	// LimitPerCategory keeps only the first N images of each category in
	// lexical order. Zero means no limit.
	LimitPerCategory int
	// RequireGroundTruth skips images without a sidecar .txt file.
	RequireGroundTruth bool
	// Concurrency bounds parallel file reads. Zero means 8.
	Concurrency int
	Logger      *slog.Logger
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	return imageExts[strings.ToLower(path.Ext(name))]
}

// OpenSource returns the Source for loc: an azblob:// location or a local
// directory.
func OpenSource(loc string) (Source, error) {
	if IsAzureLocation(loc) {
		return NewAzureSource(loc)
	}

	return NewDirSource(loc), nil
}

type pending struct {
	src     Source
	label   string
	entry   Entry
	sidecar *Entry
}

// id is the image ID: the entry path, prefixed with the source label when
// several sources are merged.
func (p pending) id() string {
	if p.label == "" {
		return p.entry.ID()
	}

	return p.label + "/" + p.entry.ID()
}

// sourceLabels names each source by its base name when there is more than
// one, so equal file names under different roots stay distinct. Repeated
// base names get a numeric suffix.
func sourceLabels(sources []Source) []string {
	labels := make([]string, len(sources))
	if len(sources) < 2 {
		return labels
	}

	taken := make(map[string]bool, len(sources))

	for i, src := range sources {
		base := filepath.Base(strings.TrimRight(src.String(), "/"))
		if base == "." || base == "/" || base == "" {
			base = "root"
		}

		label := base
		for n := 2; taken[label]; n++ {
			label = fmt.Sprintf("%s-%d", base, n)
		}

		taken[label] = true
		labels[i] = label
	}

	return labels
}

// Load reads every selected image and its ground truth from sources. Any
// missing root, unreadable file or empty category fails the whole load.
func Load(ctx context.Context, sources []Source, opts LoadOptions) (*Corpus, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no corpus sources given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	byCategory := make(map[string][]pending)
	known := make(map[string]bool)
	labels := sourceLabels(sources)

	for i, src := range sources {
		entries, err := src.List(ctx)
		if err != nil {
			return nil, err
		}

		sidecars := make(map[string]Entry)
		for _, e := range entries {
			if strings.EqualFold(path.Ext(e.Name), ".txt") {
				sidecars[e.Category+"/"+stem(e.Name)] = e
			}
		}

		for _, e := range entries {
			known[e.Category] = true

			if !IsImageFile(e.Name) {
				continue
			}

			p := pending{src: src, label: labels[i], entry: e}
			if sc, ok := sidecars[e.Category+"/"+stem(e.Name)]; ok {
				p.sidecar = &sc
			}

			if opts.RequireGroundTruth && p.sidecar == nil {
				continue
			}

			byCategory[e.Category] = append(byCategory[e.Category], p)
		}

		logger.DebugContext(ctx, "listed corpus source",
			slog.String("source", src.String()),
			slog.Int("entries", len(entries)),
		)
	}

	categories := opts.Categories
	if len(categories) == 0 {
		for category := range known {
			categories = append(categories, category)
		}

		sort.Strings(categories)
	}

	var work []pending

	for _, category := range categories {
		if !known[category] {
			return nil, fmt.Errorf("%w %q", ErrUnknownCategory, category)
		}

		items := byCategory[category]
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyCategory, category)
		}

		sort.Slice(items, func(i, j int) bool {
			return items[i].id() < items[j].id()
		})

		if opts.LimitPerCategory > 0 && len(items) > opts.LimitPerCategory {
			items = items[:opts.LimitPerCategory]
		}

		work = append(work, items...)
	}

	if len(work) == 0 {
		return nil, ErrNoImages
	}

	images, err := readAll(ctx, work, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	c, err := New(images)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "corpus loaded",
		slog.Int("categories", len(c.Categories())),
		slog.Int("images", c.Len()),
	)

	return c, nil
}

func readAll(ctx context.Context, work []pending, concurrency int) ([]Image, error) {
	if concurrency <= 0 {
		concurrency = 8
	}

	images := make([]Image, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, p := range work {
		g.Go(func() error {
			data, err := p.src.Read(gctx, p.entry)
			if err != nil {
				return fmt.Errorf("corpus %s: %w", p.src, err)
			}

			img := Image{
				ID:       p.id(),
				Category: p.entry.Category,
				Data:     data,
			}

			if p.sidecar != nil {
				content, err := p.src.Read(gctx, *p.sidecar)
				if err != nil {
					return fmt.Errorf("corpus %s: %w", p.src, err)
				}

				img.ExpectedText, img.ExpectedQuads = ParseGroundTruth(string(content))
			}

			images[i] = img

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return images, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
