package main

import (
	"fmt"

	"github.com/picloud/picloud"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of picloud",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "picloud version %s\n", picloud.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
