package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/pipeline"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/preflight"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/runs"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/sct"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "process <subject>",
		Short: "Run the soft segmentation pipeline for one subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := strings.TrimSpace(args[0])

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()

			if !skipPreflight {
				results := preflight.RunAll(cfg, subject)
				if failed := preflight.Failed(results); len(failed) > 0 {
					rows := make([][]string, 0, len(failed))
					for _, r := range failed {
						rows = append(rows, []string{r.Name, r.Detail})
					}
					fmt.Fprintln(out, renderTable([]string{"Check", "Detail"}, rows, nil))
					return fmt.Errorf("preflight failed: %d check(s) did not pass", len(failed))
				}
			}

			format := cfg.Logging.Format
			if format == "console" && !stdoutIsTerminal() {
				format = "json"
			}
			logID := time.Now().UTC().Format("20060102T150405Z")
			logger, logPath, err := logging.NewForRun(cfg.Logging.Level, format, cfg.Paths.LogDir, logID)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			client, err := sct.New(cfg)
			if err != nil {
				return fmt.Errorf("toolbox client: %w", err)
			}
			client.SetLogger(logger)

			store, err := runs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer store.Close()

			p, err := pipeline.New(cfg, logger, client, store, subject)
			if err != nil {
				return err
			}

			summary, runErr := p.Run(signalCtx)
			if summary.Subject != "" {
				fmt.Fprintln(out, renderSummary(summary, logPath))
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip readiness checks before processing")
	return cmd
}

func renderSummary(summary pipeline.Summary, logPath string) string {
	rows := [][]string{
		{"Subject", summary.Subject},
		{"Run", summary.RunUUID},
		{"Status", string(summary.Status)},
		{"Duration", summary.Duration.Round(time.Second).String()},
		{"SCT version", summary.SCTVersion},
		{"Host", summary.Host},
		{"QC report", summary.QCDir},
		{"Log file", logPath},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}
