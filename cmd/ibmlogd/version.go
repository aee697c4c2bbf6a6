package main

import (
	"fmt"

	ibmlogging "github.com/openbmc/ibm-logging"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ibmlogd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ibmlogd version %s\n", ibmlogging.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
