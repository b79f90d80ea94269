package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/sct"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the softseg and toolbox versions",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "softseg %s\n", version)

			cfg, err := ctx.ensureConfig()
			if err != nil {
				fmt.Fprintf(out, "SCT: unavailable (%v)\n", err)
				return nil
			}
			client, err := sct.New(cfg)
			if err != nil {
				return err
			}
			sctVersion, err := client.Version(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "SCT: unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "SCT: %s\n", sctVersion)
			return nil
		},
	}
}
