package main

import (
	"fmt"
	"os"

	"callroom/pkg/config"

	"github.com/spf13/cobra"
)

var flagConfigPath string

// rootCmd is the developer tool for a running callroom deployment.
var rootCmd = &cobra.Command{
	Use:   "roomctl",
	Short: "Developer tooling for the callroom signaling server",
	Long: `roomctl mints access tokens for local testing, hands out room codes and
inspects the live state of a room straight from the session store.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "configs/config.yaml", "Path to the server configuration file")
	rootCmd.AddCommand(tokenCmd, codeCmd, inspectCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfigPath)
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
