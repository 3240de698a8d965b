package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/weiihann/qrbench/harness"
	"github.com/weiihann/qrbench/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Chart file names written by WriteCharts.
const (
	SuccessChartFile     = "success_rates.png"
	PerformanceChartFile = "performance.png"
)

// WriteCharts renders a grouped bar chart of success rate per category and
// decoder, and a box plot of successful decode latency per decoder, into
// dir. It returns the paths written.
func WriteCharts(dir string, attempts []harness.Attempt) ([]string, error) {
	if len(attempts) == 0 {
		return nil, fmt.Errorf("no attempts to chart")
	}

	successPath := filepath.Join(dir, SuccessChartFile)
	if err := successChart(successPath, stats.Aggregate(attempts)); err != nil {
		return nil, fmt.Errorf("success chart: %w", err)
	}

	perfPath := filepath.Join(dir, PerformanceChartFile)
	if err := performanceChart(perfPath, attempts); err != nil {
		return nil, fmt.Errorf("performance chart: %w", err)
	}

	return []string{successPath, perfPath}, nil
}

func successChart(path string, summaries []stats.Summary) error {
	var decoders, categories []string
	rates := make(map[string]map[string]float64)

	for _, s := range summaries {
		if _, ok := rates[s.Decoder]; !ok {
			rates[s.Decoder] = make(map[string]float64)
			decoders = append(decoders, s.Decoder)
		}

		rates[s.Decoder][s.Category] = s.SuccessRate
		categories = appendUnique(categories, s.Category)
	}

	sort.Strings(categories)

	p := plot.New()
	p.Title.Text = "Decode success rate by category"
	p.Y.Label.Text = "Success rate"
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Legend.Top = true

	width := vg.Points(14)
	center := float64(len(decoders)-1) / 2

	for i, dec := range decoders {
		values := make(plotter.Values, len(categories))
		for j, category := range categories {
			values[j] = rates[dec][category]
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}

		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-center) * width

		p.Add(bars)
		p.Legend.Add(dec, bars)
	}

	p.NominalX(categories...)

	return p.Save(vg.Length(max(8, len(categories)*2))*vg.Inch, 6*vg.Inch, path)
}

func performanceChart(path string, attempts []harness.Attempt) error {
	byDecoder := make(map[string]plotter.Values)
	var decoders []string

	for _, a := range attempts {
		if _, ok := byDecoder[a.Decoder]; !ok {
			decoders = append(decoders, a.Decoder)
			byDecoder[a.Decoder] = nil
		}

		if a.Success {
			byDecoder[a.Decoder] = append(byDecoder[a.Decoder],
				float64(a.Duration)/float64(time.Millisecond))
		}
	}

	sort.Strings(decoders)

	p := plot.New()
	p.Title.Text = "Decode latency (successful decodes)"
	p.Y.Label.Text = "Duration (ms)"

	for i, dec := range decoders {
		values := byDecoder[dec]
		if len(values) == 0 {
			continue
		}

		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), values)
		if err != nil {
			return err
		}

		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}

	p.NominalX(decoders...)

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}

	return append(list, s)
}
