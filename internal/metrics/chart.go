package metrics

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes a standalone HTML bar chart of per-metric mean
// and standard deviation.
func (r Report) RenderChart(w io.Writer) error {
	labels := make([]string, 0, len(r.Summaries))
	means := make([]opts.BarData, 0, len(r.Summaries))
	stds := make([]opts.BarData, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		labels = append(labels, s.Metric)
		means = append(means, opts.BarData{Value: s.Mean})
		stds = append(stds, opts.BarData{Value: s.Std})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Segmentation Metrics", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Segmentation performance",
			Subtitle: fmt.Sprintf("subjects=%d skipped=%d", r.Subjects, r.Skipped),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("mean", means,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("std", stds)

	return bar.Render(w)
}

// SaveChart renders the chart into an HTML file.
func (r Report) SaveChart(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := r.RenderChart(file); err != nil {
		file.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return file.Close()
}
