package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/metrics"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/anima"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var predDir string
	var refDir string
	var outDir string
	var chartPath string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Evaluate segmentations against references with the ANIMA analyzer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(predDir) == "" || strings.TrimSpace(refDir) == "" {
				return fmt.Errorf("both --pred and --gt are required")
			}
			if strings.TrimSpace(outDir) == "" {
				outDir = filepath.Join(predDir, "anima_stats")
			}

			animaConfig, err := config.ExpandPath(cfg.Anima.ConfigPath)
			if err != nil {
				return fmt.Errorf("resolve anima config path: %w", err)
			}
			client, err := anima.New(animaConfig)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			pairs, err := metrics.DiscoverPairs(predDir, refDir)
			if err != nil {
				return err
			}

			report, err := metrics.NewEvaluator(client, logger).Evaluate(cmd.Context(), pairs, outDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := report.WriteLog(out); err != nil {
				return err
			}
			fmt.Fprintf(out, "XML results and log written to %s\n", outDir)

			if strings.TrimSpace(chartPath) != "" {
				if err := report.SaveChart(chartPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Chart written to %s\n", chartPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&predDir, "pred", "", "Directory holding predicted segmentations")
	cmd.Flags().StringVar(&refDir, "gt", "", "Directory holding reference segmentations")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for XML and the aggregation log (default <pred>/anima_stats)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write an HTML bar chart of per-metric mean and std to this path")
	return cmd
}
