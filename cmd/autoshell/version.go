package main

import (
	"fmt"
	"strings"

	"github.com/codrblog/autoshell"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of autoshell",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "autoshell version %s\n", strings.TrimSpace(autoshell.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
