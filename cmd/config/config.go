// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tokenscope configuration",
	Long: "Manage tokenscope configuration.\n\n" +
		"Configuration is read from config.yaml in $TOKENSCOPE_CONFIG_DIR, " +
		"~/.config/tokenscope/ or the current directory, in that order. Every key can " +
		"also be set through a TOKENSCOPE_ environment variable, for example " +
		"TOKENSCOPE_SERVER_HTTP_PORT=8080.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
	ConfigCmd.AddCommand(subcommands.InitCmd)
	ConfigCmd.AddCommand(subcommands.EditCmd)
}
