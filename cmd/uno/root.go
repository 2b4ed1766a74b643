package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.4.0"

var rootCmd = &cobra.Command{
	Use:           "uno",
	Short:         "uno application server and tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the uno version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("uno " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
