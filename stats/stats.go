// Package stats reduces raw attempts into per (decoder, category) summaries.
//
// Latency statistics only cover successful attempts: a failed decode has no
// comparable latency, though it still counts toward attempts and failures.
// The standard deviation is the sample (n-1) estimate; a single sample has
// a deviation of zero.
package stats

import (
	"sort"
	"time"

	"github.com/weiihann/qrbench/harness"
	"gonum.org/v1/gonum/stat"
)

// AllCategories is the Category of a per-decoder rollup.
const AllCategories = "all"

// Latency summarizes the successful decode durations of a group.
type Latency struct {
	Mean   time.Duration
	Median time.Duration
	Min    time.Duration
	Max    time.Duration
	StdDev time.Duration
}

// Summary aggregates the attempts of one (decoder, category) pair.
type Summary struct {
	Decoder  string
	Category string

	Images    int
	Attempts  int
	Successes int
	Failures  int
	Correct   int

	SuccessRate float64
	CorrectRate float64

	// Latency is nil when the group has no successful attempt.
	Latency *Latency
}

type groupKey struct {
	decoder  string
	category string
}

// Aggregate groups attempts by (decoder, category) and summarizes each
// group. The result is sorted by decoder, then category.
func Aggregate(attempts []harness.Attempt) []Summary {
	return group(attempts, func(a harness.Attempt) groupKey {
		return groupKey{decoder: a.Decoder, category: a.Category}
	})
}

// ByDecoder summarizes each decoder across every category. Category is set
// to AllCategories.
func ByDecoder(attempts []harness.Attempt) []Summary {
	return group(attempts, func(a harness.Attempt) groupKey {
		return groupKey{decoder: a.Decoder, category: AllCategories}
	})
}

func group(attempts []harness.Attempt, keyOf func(harness.Attempt) groupKey) []Summary {
	groups := make(map[groupKey][]harness.Attempt)
	for _, a := range attempts {
		k := keyOf(a)
		groups[k] = append(groups[k], a)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].decoder != keys[j].decoder {
			return keys[i].decoder < keys[j].decoder
		}

		return keys[i].category < keys[j].category
	})

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		out = append(out, Summarize(k.decoder, k.category, groups[k]))
	}

	return out
}

// Summarize computes the Summary of one group of attempts.
func Summarize(decoderName, category string, attempts []harness.Attempt) Summary {
	s := Summary{
		Decoder:  decoderName,
		Category: category,
		Attempts: len(attempts),
	}

	images := make(map[string]bool)
	var ok []float64

	for _, a := range attempts {
		images[a.Image] = true

		if !a.Success {
			s.Failures++

			continue
		}

		s.Successes++
		ok = append(ok, float64(a.Duration))

		if a.Correct() {
			s.Correct++
		}
	}

	s.Images = len(images)

	if s.Attempts > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		s.CorrectRate = float64(s.Correct) / float64(s.Attempts)
	}

	s.Latency = latency(ok)

	return s
}

// latency returns nil for an empty sample.
func latency(durations []float64) *Latency {
	if len(durations) == 0 {
		return nil
	}

	sorted := append([]float64(nil), durations...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}

	return &Latency{
		Mean:   time.Duration(mean),
		Median: time.Duration(median(sorted)),
		Min:    time.Duration(sorted[0]),
		Max:    time.Duration(sorted[len(sorted)-1]),
		StdDev: time.Duration(std),
	}
}

// median expects sorted input. Even-sized samples average the two middle
// values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}
