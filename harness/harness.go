package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/weiihann/qrbench/corpus"
	"github.com/weiihann/qrbench/decoder"
)

// DefaultIterations is the number of measured decodes per (decoder, image)
// pair when RunConfig.Iterations is zero.
const DefaultIterations = 5

// ErrInvalidConfig is returned for run parameters out of range.
var ErrInvalidConfig = errors.New("invalid run config")

// RunConfig holds parameters for a single benchmark run.
type RunConfig struct {
	// Decoders and Categories select subsets; empty means all.
	Decoders   []string
	Categories []string
	// Iterations is the number of recorded decodes per (decoder, image).
	Iterations int
	// Warmup decodes run before the recorded ones and are discarded.
	Warmup int
	// Timeout bounds a single decode. Zero means no bound.
	Timeout time.Duration
	// CornerTolerance is in pixels; zero means DefaultCornerTolerance.
	CornerTolerance float64
}

func (c RunConfig) withDefaults() (RunConfig, error) {
	if c.Iterations == 0 {
		c.Iterations = DefaultIterations
	}
	if c.CornerTolerance == 0 {
		c.CornerTolerance = DefaultCornerTolerance
	}

	switch {
	case c.Iterations < 1:
		return c, fmt.Errorf("%w: iterations must be >= 1 (got %d)",
			ErrInvalidConfig, c.Iterations)
	case c.Warmup < 0:
		return c, fmt.Errorf("%w: warmup must be >= 0 (got %d)",
			ErrInvalidConfig, c.Warmup)
	case c.Timeout < 0:
		return c, fmt.Errorf("%w: timeout must be >= 0 (got %s)",
			ErrInvalidConfig, c.Timeout)
	case c.CornerTolerance < 0:
		return c, fmt.Errorf("%w: corner tolerance must be >= 0 (got %g)",
			ErrInvalidConfig, c.CornerTolerance)
	}

	return c, nil
}

// Runner measures registered decoders against a corpus.
//
// All attempts run on the calling goroutine in a fixed order: categories
// sorted, images by ID, decoders in selection order, then iterations. The
// output order is therefore reproducible and no two decodes overlap.
type Runner struct {
	Registry *decoder.Registry
	Logger   *slog.Logger
}

// NewRunner creates a Runner over registry.
func NewRunner(registry *decoder.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Runner{
		Registry: registry,
		Logger:   logger,
	}
}

// Run executes the benchmark and streams every Attempt to sink. Decode
// failures are recorded and never stop the run; a sink error, a bad config
// or context cancellation does.
func (r *Runner) Run(
	ctx context.Context,
	c *corpus.Corpus,
	cfg RunConfig,
	sink Sink,
) (*RunSummary, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	decoders, err := r.Registry.Select(cfg.Decoders)
	if err != nil {
		return nil, err
	}

	selected, err := c.Select(cfg.Categories)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Images:  selected.Len(),
	}

	for _, d := range decoders {
		summary.Decoders = append(summary.Decoders, d.Name())
	}

	logger := r.Logger.With(slog.String("run_id", summary.ID))

	logger.InfoContext(ctx, "starting run",
		slog.Any("decoders", summary.Decoders),
		slog.Any("categories", selected.Categories()),
		slog.Int("images", summary.Images),
		slog.Int("iterations", cfg.Iterations),
		slog.Int("warmup", cfg.Warmup),
		slog.Int("expected_attempts",
			len(decoders)*summary.Images*cfg.Iterations),
	)

	for _, category := range selected.Categories() {
		for _, img := range selected.ImagesIn(category) {
			for _, d := range decoders {
				if err := r.runPair(ctx, d, img, cfg, sink, summary); err != nil {
					return nil, err
				}
			}
		}

		logger.InfoContext(ctx, "category finished",
			slog.String("category", category),
			slog.Int("attempts", summary.Attempts),
		)
	}

	summary.Wall = time.Since(summary.Started)

	logger.InfoContext(ctx, "run finished",
		slog.Int("attempts", summary.Attempts),
		slog.Int("failures", summary.Failures),
		slog.Duration("wall_time", summary.Wall),
	)

	return summary, nil
}

func (r *Runner) runPair(
	ctx context.Context,
	d decoder.Decoder,
	img corpus.Image,
	cfg RunConfig,
	sink Sink,
	summary *RunSummary,
) error {
	for i := 0; i < cfg.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		measure(d, img.Data, cfg.Timeout)
	}

	for i := 1; i <= cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, elapsed, decodeErr := measure(d, img.Data, cfg.Timeout)

		attempt := Attempt{
			Decoder:      d.Name(),
			Category:     img.Category,
			Image:        img.ID,
			Iteration:    i,
			Duration:     elapsed,
			Success:      decodeErr == nil,
			ExpectedText: img.ExpectedText,
			EditDistance: NoEditDistance,
		}

		if decodeErr != nil {
			attempt.Status = StatusFailed
			attempt.Failure = decoder.Classify(decodeErr)
			attempt.Error = decodeErr.Error()
			summary.Failures++

			r.Logger.DebugContext(ctx, "decode failed",
				slog.String("decoder", d.Name()),
				slog.String("image", img.ID),
				slog.Int("iteration", i),
				slog.String("error", attempt.Error),
			)
		} else {
			attempt.DecodedText = res.Text
			attempt.Status, attempt.EditDistance = verify(img, res, cfg.CornerTolerance)
			summary.Successes++
		}

		if err := sink.Record(attempt); err != nil {
			return fmt.Errorf("record %s/%s#%d: %w",
				d.Name(), img.ID, i, err)
		}

		summary.Attempts++
	}

	return nil
}

type outcome struct {
	res     decoder.Result
	elapsed time.Duration
	err     error
}

// measure times a single decode. The clock starts immediately before the
// call and stops as soon as it returns, whatever the outcome. With a
// timeout the decode runs on its own goroutine; on expiry the attempt is
// charged the full timeout and the goroutine is abandoned.
func measure(d decoder.Decoder, data []byte, timeout time.Duration) (decoder.Result, time.Duration, error) {
	if timeout <= 0 {
		o := timedDecode(d, data)

		return o.res, o.elapsed, o.err
	}

	done := make(chan outcome, 1)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		done <- timedDecode(d, data)
	}()

	select {
	case o := <-done:
		return o.res, o.elapsed, o.err
	case <-timer.C:
		return decoder.Result{}, timeout, fmt.Errorf("%s: after %s: %w",
			d.Name(), timeout, decoder.ErrTimeout)
	}
}

// timedDecode brackets exactly one decode call with the clock.
func timedDecode(d decoder.Decoder, data []byte) outcome {
	start := time.Now()
	res, err := safeDecode(d, data)
	elapsed := time.Since(start)

	return outcome{res: res, elapsed: elapsed, err: err}
}

// safeDecode turns a panicking backend into an internal decode failure.
func safeDecode(d decoder.Decoder, data []byte) (res decoder.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = decoder.Result{}
			err = fmt.Errorf("%s: panic: %v: %w", d.Name(), rec, decoder.ErrInternal)
		}
	}()

	return d.Decode(data)
}
