package main

import (
	"fmt"
	"os"

	"github.com/openbmc/ibm-logging/internal/cli"
	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and build policy tables",
}

var policyLookupCmd = &cobra.Command{
	Use:   "lookup <error> [modifier]",
	Short: "Look up a policy table record",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(cmd)
		if err != nil {
			return err
		}
		modifier := ""
		if len(args) > 1 {
			modifier = args[1]
		}
		return cli.PolicyLookup(os.Stdout, table, args[0], modifier)
	},
}

var policyResolveCmd = &cobra.Command{
	Use:   "resolve <message>",
	Short: "Resolve the policy of a synthetic log entry",
	Long: `Runs the two-pass policy search for an entry with the given message and
additional data (--data KEY=VALUE, repeatable).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(cmd)
		if err != nil {
			return err
		}
		data, _ := cmd.Flags().GetStringArray("data")
		cli.PolicyResolve(os.Stdout, policy.NewResolver(table), args[0], data)
		return nil
	},
}

var policyCondenseCmd = &cobra.Command{
	Use:   "condense <full-table.json>",
	Short: "Condense a full policy table into the form ibmlogd loads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		indent, _ := cmd.Flags().GetBool("indent")
		return cli.PolicyCondense(os.Stdout, args[0], out, indent)
	},
}

// loadTable loads the configured policy table. Unlike the daemon, the
// policy commands fail on a table that cannot be loaded.
func loadTable(cmd *cobra.Command) (*policy.Table, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	table := policy.NewTable(
		policy.WithDefaults(cfg.Policy.DefaultEID, cfg.Policy.DefaultMsg),
		policy.WithTableLogger(cli.NewLogger(cfg.LogLevel)),
	)
	if err := table.Load(cfg.Policy.Path); err != nil {
		return nil, fmt.Errorf("policy table %s: %w", cfg.Policy.Path, err)
	}
	return table, nil
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyLookupCmd, policyResolveCmd, policyCondenseCmd)

	policyResolveCmd.Flags().StringArrayP("data", "d", nil, "Additional data item KEY=VALUE")
	policyCondenseCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	policyCondenseCmd.Flags().Bool("indent", false, "Indent the output")
}
