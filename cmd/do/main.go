package main

import (
	"os"

	"github.com/foodrescue/foodrescue/cmd/do/cmd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "do",
		Short:         "Operations and development tools for FoodRescue",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.DevCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.DigestCmd())
	rootCmd.AddCommand(cmd.SweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
