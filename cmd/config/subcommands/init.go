package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/config"
)

var (
	initForce bool
	initPath  string
)

// InitCmd writes a config file populated with the defaults.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: "Write a configuration file populated with every default value.\n\n" +
		"The file is written to the default location unless --path is given. An existing " +
		"file is left alone unless --force is set.",
	Example: `  # Create ~/.config/tokenscope/config.yaml
  tokenscope config init

  # Overwrite an existing file
  tokenscope config init --force`,
	Args:    cobra.NoArgs,
	PreRunE: validateInit,
	RunE:    runInit,
}

func init() {
	InitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	InitCmd.Flags().StringVar(&initPath, "path", "", "Write to this path instead of the default location")
}

func validateInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if config.ConfigExistsAt(path) && !initForce {
		return fmt.Errorf("config file already exists at %s; use --force to overwrite", path)
	}

	cfg := config.NewDefaultConfig()
	if err := config.Write(&cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written: %s\n", path)
	return nil
}
