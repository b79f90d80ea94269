package metrics_test

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/metrics"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/anima"
)

const fullResult = `<?xml version="1.0" encoding="UTF-8"?>
<image name="%s">
	<measure name="Jaccard">%g</measure>
	<measure name="Dice">%g</measure>
	<measure name="Hausdorff">%s</measure>
</image>
`

const emptyRefResult = `<?xml version="1.0" encoding="UTF-8"?>
<image name="%s">
	<measure name="NbTestedLesions">0</measure>
	<measure name="VolTestedLesions">0</measure>
</image>
`

func writeXML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestParseFileDropsInfValues(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "sub-01.xml", fmt.Sprintf(fullResult, "sub-01", 0.9, 0.95, "inf"))

	measures, err := metrics.ParseFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(measures) != 2 {
		t.Fatalf("expected inf metric dropped, got %d measures", len(measures))
	}
	for _, m := range measures {
		if m.Name == "Hausdorff" {
			t.Fatal("inf-valued metric should be dropped")
		}
	}
}

func TestParseFileEmptyReference(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "sub-02.xml", fmt.Sprintf(emptyRefResult, "sub-02"))

	measures, err := metrics.ParseFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if measures != nil {
		t.Fatalf("empty-reference file should yield no measures, got %v", measures)
	}
}

func TestAggregateMeanAndStd(t *testing.T) {
	dir := t.TempDir()
	writeXML(t, dir, "sub-01.xml", fmt.Sprintf(fullResult, "sub-01", 0.8, 0.9, "4.0"))
	writeXML(t, dir, "sub-02.xml", fmt.Sprintf(fullResult, "sub-02", 0.6, 0.7, "2.0"))
	writeXML(t, dir, "sub-03.xml", fmt.Sprintf(emptyRefResult, "sub-03"))

	paths, err := metrics.CollectXML(dir)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 xml files, got %d", len(paths))
	}

	report, err := metrics.Aggregate(paths)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if report.Subjects != 2 || report.Skipped != 1 {
		t.Fatalf("unexpected counts: subjects=%d skipped=%d", report.Subjects, report.Skipped)
	}

	var jaccard *metrics.Summary
	for i := range report.Summaries {
		if report.Summaries[i].Metric == "Jaccard" {
			jaccard = &report.Summaries[i]
		}
	}
	if jaccard == nil {
		t.Fatal("missing Jaccard summary")
	}
	if math.Abs(jaccard.Mean-0.7) > 1e-9 {
		t.Fatalf("unexpected mean: %v", jaccard.Mean)
	}
	if math.Abs(jaccard.Std-0.1) > 1e-9 {
		t.Fatalf("unexpected std: %v", jaccard.Std)
	}
	if jaccard.Samples != 2 {
		t.Fatalf("unexpected sample count: %d", jaccard.Samples)
	}
}

func TestWriteLogLayout(t *testing.T) {
	report := metrics.Report{
		Summaries: []metrics.Summary{{Metric: "Dice", Mean: 0.8, Std: 0.1, Samples: 2}},
		Subjects:  2,
	}
	var buf bytes.Buffer
	if err := report.WriteLog(&buf); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Dice --> Mean: 0.800, Std: 0.100") {
		t.Fatalf("unexpected log output:\n%s", out)
	}
}

func TestRenderChartProducesHTML(t *testing.T) {
	report := metrics.Report{
		Summaries: []metrics.Summary{
			{Metric: "Dice", Mean: 0.9, Std: 0.05, Samples: 3},
			{Metric: "Jaccard", Mean: 0.8, Std: 0.07, Samples: 3},
		},
		Subjects: 3,
	}
	var buf bytes.Buffer
	if err := report.RenderChart(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<html") || !strings.Contains(out, "Dice") {
		t.Fatalf("chart output does not look like HTML, length %d", len(out))
	}
}

type fakeAnalyzer struct {
	calls [][]string
}

func (f *fakeAnalyzer) Run(ctx context.Context, binary string, args []string) (string, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	// Write the XML file the analyzer would leave behind.
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			name := filepath.Base(args[i+1])
			content := fmt.Sprintf(fullResult, name, 0.9, 0.95, "3.0")
			if err := os.WriteFile(args[i+1]+"_global.xml", []byte(content), 0o644); err != nil {
				return "", err
			}
		}
	}
	return "", nil
}

func TestEvaluatorRunsAnalyzerPerPair(t *testing.T) {
	base := t.TempDir()
	predDir := filepath.Join(base, "pred")
	refDir := filepath.Join(base, "ref")
	outDir := filepath.Join(base, "anima_stats")
	for _, dir := range []string{predDir, refDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	for _, name := range []string{"sub-01", "sub-02"} {
		if err := os.WriteFile(filepath.Join(predDir, name+"_pred.nii.gz"), []byte("p"), 0o644); err != nil {
			t.Fatalf("write pred: %v", err)
		}
		if err := os.WriteFile(filepath.Join(refDir, name+"_gt.nii.gz"), []byte("g"), 0o644); err != nil {
			t.Fatalf("write ref: %v", err)
		}
	}

	animaCfg := filepath.Join(base, "config.txt")
	if err := os.WriteFile(animaCfg, []byte("[anima-scripts]\nanima = /opt/anima/\n"), 0o644); err != nil {
		t.Fatalf("write anima config: %v", err)
	}
	analyzer := &fakeAnalyzer{}
	client, err := anima.New(animaCfg, anima.WithExecutor(analyzer))
	if err != nil {
		t.Fatalf("anima client: %v", err)
	}

	pairs, err := metrics.DiscoverPairs(predDir, refDir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	report, err := metrics.NewEvaluator(client, nil).Evaluate(context.Background(), pairs, outDir)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(analyzer.calls) != 2 {
		t.Fatalf("expected 2 analyzer invocations, got %d", len(analyzer.calls))
	}
	if report.Subjects != 2 {
		t.Fatalf("unexpected subject count: %d", report.Subjects)
	}
	if _, err := os.Stat(filepath.Join(outDir, "log.txt")); err != nil {
		t.Fatalf("missing aggregation log: %v", err)
	}
}
