// Package report writes raw measurements and formats aggregated results
// into comparison tables, JSON and charts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/weiihann/qrbench/stats"
)

// Generate writes a markdown comparison table for the given summaries.
// Relative speed compares each median latency against the fastest median in
// the same category.
func Generate(w io.Writer, summaries []stats.Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := fastestMedians(summaries)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Decoder | Category | Attempts | Success | Correct "+
		"| Mean | Median | Min | Max | StdDev | Relative |")
	fmt.Fprintln(w, "|---------|----------|----------|---------|---------"+
		"|------|--------|-----|-----|--------|----------|")

	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %d | %s | %s | %s |\n",
			s.Decoder,
			s.Category,
			s.Attempts,
			formatRate(s.SuccessRate),
			formatRate(s.CorrectRate),
			strings.Join(latencyCells(s, fastest[s.Category]), " | "),
		)
	}

	return nil
}

// GenerateJSON writes summaries as JSON to w. Latency fields are null for
// groups without a successful attempt.
func GenerateJSON(w io.Writer, summaries []stats.Summary) error {
	out := make([]summaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toJSON(s))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

// SummaryColumns is the header of the summary CSV.
var SummaryColumns = []string{
	"decoder", "category", "images", "attempts", "successes", "failures",
	"correct", "success_rate", "correct_rate",
	"mean_ms", "median_ms", "min_ms", "max_ms", "stddev_ms",
}

// WriteSummaryCSV writes one row per summary. Latency cells are empty when
// there were no successes.
func WriteSummaryCSV(w io.Writer, summaries []stats.Summary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SummaryColumns); err != nil {
		return err
	}

	for _, s := range summaries {
		row := []string{
			s.Decoder,
			s.Category,
			strconv.Itoa(s.Images),
			strconv.Itoa(s.Attempts),
			strconv.Itoa(s.Successes),
			strconv.Itoa(s.Failures),
			strconv.Itoa(s.Correct),
			strconv.FormatFloat(s.SuccessRate, 'f', 4, 64),
			strconv.FormatFloat(s.CorrectRate, 'f', 4, 64),
		}

		if s.Latency == nil {
			row = append(row, "", "", "", "", "")
		} else {
			row = append(row,
				formatMillis(s.Latency.Mean),
				formatMillis(s.Latency.Median),
				formatMillis(s.Latency.Min),
				formatMillis(s.Latency.Max),
				formatMillis(s.Latency.StdDev),
			)
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

type summaryJSON struct {
	Decoder     string   `json:"decoder"`
	Category    string   `json:"category"`
	Images      int      `json:"images"`
	Attempts    int      `json:"attempts"`
	Successes   int      `json:"successes"`
	Failures    int      `json:"failures"`
	Correct     int      `json:"correct"`
	SuccessRate float64  `json:"success_rate"`
	CorrectRate float64  `json:"correct_rate"`
	MeanMs      *float64 `json:"mean_ms"`
	MedianMs    *float64 `json:"median_ms"`
	MinMs       *float64 `json:"min_ms"`
	MaxMs       *float64 `json:"max_ms"`
	StdDevMs    *float64 `json:"stddev_ms"`
}

func toJSON(s stats.Summary) summaryJSON {
	out := summaryJSON{
		Decoder:     s.Decoder,
		Category:    s.Category,
		Images:      s.Images,
		Attempts:    s.Attempts,
		Successes:   s.Successes,
		Failures:    s.Failures,
		Correct:     s.Correct,
		SuccessRate: s.SuccessRate,
		CorrectRate: s.CorrectRate,
	}

	if l := s.Latency; l != nil {
		out.MeanMs = millis(l.Mean)
		out.MedianMs = millis(l.Median)
		out.MinMs = millis(l.Min)
		out.MaxMs = millis(l.Max)
		out.StdDevMs = millis(l.StdDev)
	}

	return out
}

func millis(d time.Duration) *float64 {
	ms := float64(d) / float64(time.Millisecond)

	return &ms
}

func fastestMedians(summaries []stats.Summary) map[string]time.Duration {
	fastest := make(map[string]time.Duration)
	for _, s := range summaries {
		if s.Latency == nil || s.Latency.Median <= 0 {
			continue
		}

		if cur, ok := fastest[s.Category]; !ok || s.Latency.Median < cur {
			fastest[s.Category] = s.Latency.Median
		}
	}

	return fastest
}

// latencyCells renders mean, median, min, max, stddev and relative speed.
func latencyCells(s stats.Summary, fastest time.Duration) []string {
	if s.Latency == nil {
		return []string{"-", "-", "-", "-", "-", "-"}
	}

	relative := "-"
	if fastest > 0 && s.Latency.Median > 0 {
		relative = fmt.Sprintf("%.2fx",
			float64(s.Latency.Median)/float64(fastest))
	}

	return []string{
		formatDuration(s.Latency.Mean),
		formatDuration(s.Latency.Median),
		formatDuration(s.Latency.Min),
		formatDuration(s.Latency.Max),
		formatDuration(s.Latency.StdDev),
		relative,
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatRate(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}
