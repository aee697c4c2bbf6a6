package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/openbmc/ibm-logging/internal/cli"
	"github.com/spf13/cobra"
)

var emitCmd = &cobra.Command{
	Use:   "emit <id>",
	Short: "Publish a test log entry on the redis bus",
	Long: `Creates (or with --remove, deletes) a log entry object on the redis object
transport, as the logging service would. Useful against a running daemon.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var id uint32
		if _, err := fmt.Sscan(args[0], &id); err != nil {
			return fmt.Errorf("invalid entry id %q", args[0])
		}

		message, _ := cmd.Flags().GetString("message")
		timestamp, _ := cmd.Flags().GetUint64("timestamp")
		data, _ := cmd.Flags().GetStringArray("data")
		callouts, _ := cmd.Flags().GetStringArray("callout")
		remove, _ := cmd.Flags().GetBool("remove")

		return cli.Emit(cmd.Context(), os.Stdout, cli.EmitOptions{
			Redis:          cfg.Transport.Redis,
			ID:             id,
			Message:        message,
			Timestamp:      timestamp,
			AdditionalData: data,
			Callouts:       callouts,
			Remove:         remove,
		})
	},
}

var emitInventoryCmd = &cobra.Command{
	Use:   "inventory <path>",
	Short: "Publish an inventory item with asset data on the redis bus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		service, _ := cmd.Flags().GetString("service")
		pairs, _ := cmd.Flags().GetStringArray("asset")

		asset := make(map[string]string, len(pairs))
		for _, p := range pairs {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				return fmt.Errorf("invalid asset property %q, want KEY=VALUE", p)
			}
			asset[k] = v
		}
		return cli.EmitInventory(cmd.Context(), os.Stdout, cfg.Transport.Redis, service, args[0], asset)
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
	emitCmd.AddCommand(emitInventoryCmd)

	emitCmd.Flags().StringP("message", "m", "xyz.openbmc_project.Common.Error.InternalFailure", "Error name")
	emitCmd.Flags().Uint64("timestamp", 0, "Entry timestamp (default: now, in ms)")
	emitCmd.Flags().StringArrayP("data", "d", nil, "Additional data item KEY=VALUE")
	emitCmd.Flags().StringArray("callout", nil, "Inventory path to call out (repeatable)")
	emitCmd.Flags().Bool("remove", false, "Publish the entry's removal instead")

	emitInventoryCmd.Flags().String("service", "xyz.openbmc_project.Inventory.Manager", "Owning service")
	emitInventoryCmd.Flags().StringArray("asset", nil, "Asset property KEY=VALUE (repeatable)")
}
