package main

import (
	"os"

	"github.com/openbmc/ibm-logging/internal/cli"
	"github.com/openbmc/ibm-logging/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted callouts",
	Long: `Reads the persisted callout files without starting the daemon and prints
them as markdown (rendered when stdout is a terminal), JSON or a Mermaid
diagram of entries and the hardware they call out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		opts := cli.ShowOptions{
			PersistDir: cfg.PersistDir,
			Format:     format,
			Logger:     cli.NewLogger(cfg.LogLevel),
		}
		if tui.IsTerminal(os.Stdout) {
			opts.Renderer = tui.NewRenderer()
		}
		return cli.Show(cmd.Context(), os.Stdout, opts)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("format", "f", cli.FormatMarkdown, "Output format: markdown, json or mermaid")
}
