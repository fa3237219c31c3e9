package main

import (
	"os"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/firetrans/internal/cli"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
