package main

import (
	"fmt"
	"os"

	"github.com/openbmc/ibm-logging/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/ibm-logging/ibmlogd.yaml"

var rootCmd = &cobra.Command{
	Use:   "ibmlogd",
	Short: "ibmlogd attaches IBM policy and callout data to BMC error log entries",
	Long: `ibmlogd watches the error log for new entries, classifies each one with a
Common Event ID from the policy table and publishes the FRU asset data of
every hardware callout. Callouts are persisted so they survive restarts.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", defaultConfigPath, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("persist-dir", "", "Directory holding persisted callouts")
	rootCmd.PersistentFlags().String("policy", "", "Policy table file")
	rootCmd.PersistentFlags().String("backend", "", "Object transport: 'redis' or 'memory'")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address (host:port)")
	rootCmd.PersistentFlags().String("listen", "", "HTTP listen address")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("persist-dir", &cfg.PersistDir)
	override("policy", &cfg.Policy.Path)
	override("backend", &cfg.Transport.Backend)
	override("redis-addr", &cfg.Transport.Redis.Addr)
	override("listen", &cfg.HTTP.Addr)
	override("log-level", &cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
