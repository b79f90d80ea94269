package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/deps"
)

func newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "deps",
		Short:       "Check external tool availability",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := deps.CheckBinaries(deps.Toolkit())

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{
					status.Name,
					status.Command,
					yesNo(status.Available),
					yesNo(status.Optional),
					status.Detail,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Command", "Available", "Optional", "Detail"},
				rows, nil,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required binaries: %v", missing)
			}
			return nil
		},
	}
}
