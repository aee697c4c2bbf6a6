package main

import (
	"os"

	"github.com/openbmc/ibm-logging/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon and its HTTP API",
	Long: `Starts the entry manager on the configured object transport and exposes the
policy and callout objects, the delete operations, an SSE event stream and
Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.Serve(sigCtx, cli.ServeOptions{
			Config: cfg,
			Logger: cli.NewLogger(cfg.LogLevel),
			Out:    os.Stdout,
			Quiet:  quiet,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the startup banner")
}
