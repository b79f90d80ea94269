package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/runs"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(records)
			}

			now := time.Now().UTC()
			rows := make([][]string, 0, len(records))
			for _, run := range records {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					run.Subject,
					string(run.Status),
					run.Stage,
					run.Duration(now).Round(time.Second).String(),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Subject", "Status", "Stage", "Duration", "Started"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to display")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runs.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer store.Close()

			run, err := store.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(run)
			}

			finished := ""
			if run.FinishedAt != nil {
				finished = run.FinishedAt.Local().Format("2006-01-02 15:04:05")
			}
			rows := [][]string{
				{"ID", strconv.FormatInt(run.ID, 10)},
				{"UUID", run.UUID},
				{"Subject", run.Subject},
				{"Status", string(run.Status)},
				{"Stage", run.Stage},
				{"SCT version", run.SCTVersion},
				{"Host", run.Host},
				{"Started", run.StartedAt.Local().Format("2006-01-02 15:04:05")},
				{"Finished", finished},
				{"Duration", run.Duration(time.Now().UTC()).Round(time.Second).String()},
			}
			if run.ErrorMessage != "" {
				rows = append(rows,
					[]string{"Error", run.ErrorMessage},
					[]string{"Category", run.ErrorCategory},
				)
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
