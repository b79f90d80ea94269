// Package metrics aggregates ANIMA segmentation performance results.
// The analyzer writes one XML file per evaluated subject; this package
// parses them, drops degenerate entries, and reports per-metric mean
// and standard deviation across subjects.
package metrics

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// emptyReferenceEntries is the measure count the analyzer emits when
// the reference segmentation is empty: only the lesion counters, both
// zero. Such files carry no usable metrics.
const emptyReferenceEntries = 2

// Measure is one named value from an analyzer XML file.
type Measure struct {
	Name  string
	Value float64
}

// Summary aggregates one metric across subjects.
type Summary struct {
	Metric  string
	Mean    float64
	Std     float64
	Samples int
}

// Report is the aggregation over a set of analyzer XML files.
type Report struct {
	Summaries []Summary
	Subjects  int
	Skipped   int
}

type xmlMeasure struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlResult struct {
	XMLName  xml.Name
	Measures []xmlMeasure `xml:",any"`
}

// ParseFile reads one analyzer XML file. It returns nil measures for
// files produced against an empty reference segmentation, and silently
// drops individual Inf or NaN values the way downstream statistics
// expect.
func ParseFile(path string) ([]Measure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics file: %w", err)
	}

	var parsed xmlResult
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse metrics file %q: %w", path, err)
	}
	if len(parsed.Measures) == emptyReferenceEntries {
		return nil, nil
	}

	measures := make([]Measure, 0, len(parsed.Measures))
	for _, m := range parsed.Measures {
		value, err := strconv.ParseFloat(strings.TrimSpace(m.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("parse metric %q in %q: %w", m.Name, path, err)
		}
		if math.IsInf(value, 0) || math.IsNaN(value) {
			continue
		}
		measures = append(measures, Measure{Name: m.Name, Value: value})
	}
	return measures, nil
}

// CollectXML lists the analyzer XML files under dir, sorted by name.
func CollectXML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list metrics directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Aggregate parses every XML file and summarizes each metric with its
// mean and population standard deviation across subjects.
func Aggregate(paths []string) (Report, error) {
	values := make(map[string][]float64)
	var order []string
	report := Report{}

	for _, path := range paths {
		measures, err := ParseFile(path)
		if err != nil {
			return Report{}, err
		}
		if measures == nil {
			report.Skipped++
			continue
		}
		report.Subjects++
		for _, m := range measures {
			if _, seen := values[m.Name]; !seen {
				order = append(order, m.Name)
			}
			values[m.Name] = append(values[m.Name], m.Value)
		}
	}

	for _, name := range order {
		samples := values[name]
		report.Summaries = append(report.Summaries, Summary{
			Metric:  name,
			Mean:    stat.Mean(samples, nil),
			Std:     stat.PopStdDev(samples, nil),
			Samples: len(samples),
		})
	}
	return report, nil
}

// WriteLog renders the aggregation in the plain-text layout stored
// alongside the XML files.
func (r Report) WriteLog(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "Segmentation performance metrics:"); err != nil {
		return err
	}
	for _, s := range r.Summaries {
		if _, err := fmt.Fprintf(w, "\t%s --> Mean: %0.3f, Std: %0.3f\n", s.Metric, s.Mean, s.Std); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "subjects evaluated: %d, skipped (empty reference): %d\n", r.Subjects, r.Skipped)
	return err
}

// SaveLog writes the aggregation log file next to the XML output.
func (r Report) SaveLog(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics log: %w", err)
	}
	if err := r.WriteLog(file); err != nil {
		file.Close()
		return fmt.Errorf("write metrics log: %w", err)
	}
	return file.Close()
}
