package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/anima"
)

// Pair matches a predicted segmentation with its reference.
type Pair struct {
	Name string
	Pred string
	Ref  string
}

// refSuffixes are tried in order when locating the reference volume
// for a prediction.
var refSuffixes = []string{"_gt", "", "_seg-manual"}

// DiscoverPairs walks the prediction directory and matches each volume
// to a reference in refDir. Prediction names may carry a "_pred"
// suffix; references may carry "_gt" or "_seg-manual".
func DiscoverPairs(predDir, refDir string) ([]Pair, error) {
	entries, err := os.ReadDir(predDir)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}

	var pairs []Pair
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".nii.gz") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".nii.gz")
		name := strings.TrimSuffix(base, "_pred")

		ref := ""
		for _, suffix := range refSuffixes {
			candidate := filepath.Join(refDir, name+suffix+".nii.gz")
			if _, err := os.Stat(candidate); err == nil {
				ref = candidate
				break
			}
		}
		if ref == "" {
			return nil, services.Wrap(services.ErrNotFound, "metrics", "pair",
				"no reference segmentation for "+name, nil)
		}
		pairs = append(pairs, Pair{
			Name: name,
			Pred: filepath.Join(predDir, entry.Name()),
			Ref:  ref,
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs, nil
}

// Evaluator drives the analyzer over prediction/reference pairs.
type Evaluator struct {
	client *anima.Client
	logger *slog.Logger
}

// NewEvaluator wraps an analyzer client.
func NewEvaluator(client *anima.Client, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Evaluator{client: client, logger: logger}
}

// Evaluate runs the analyzer for every pair, writing XML into outDir,
// then aggregates the results and stores the plain-text log alongside.
func (e *Evaluator) Evaluate(ctx context.Context, pairs []Pair, outDir string) (Report, error) {
	if len(pairs) == 0 {
		return Report{}, services.Wrap(services.ErrValidation, "metrics", "evaluate", "no prediction/reference pairs", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create metrics output directory: %w", err)
	}

	for _, pair := range pairs {
		e.logger.Info("evaluating segmentation",
			logging.String(logging.FieldSubject, pair.Name),
			logging.String("prediction", pair.Pred),
			logging.String("reference", pair.Ref),
		)
		prefix := filepath.Join(outDir, pair.Name)
		if err := e.client.Analyze(ctx, pair.Pred, pair.Ref, prefix); err != nil {
			return Report{}, err
		}
	}

	paths, err := CollectXML(outDir)
	if err != nil {
		return Report{}, err
	}
	report, err := Aggregate(paths)
	if err != nil {
		return Report{}, err
	}
	if err := report.SaveLog(filepath.Join(outDir, "log.txt")); err != nil {
		return Report{}, err
	}
	return report, nil
}
