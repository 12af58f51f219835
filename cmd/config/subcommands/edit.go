package subcommands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/tokenscope/internal/config"
)

// EditCmd opens the configuration file in an editor.
var EditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in your editor",
	Long: "Open the configuration file in your editor.\n\n" +
		"Uses $VISUAL or $EDITOR, falling back to the first of vim, vi and nano found on " +
		"PATH. A default file is written first if none exists. The file is validated " +
		"after the editor exits.",
	Example: `  # Edit with the default editor
  tokenscope config edit

  # Edit with a specific editor
  EDITOR=code tokenscope config edit`,
	Args:    cobra.NoArgs,
	PreRunE: validateEdit,
	RunE:    runEdit,
}

func validateEdit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	if !config.ConfigExistsAt(path) {
		cfg := config.NewDefaultConfig()
		if err := config.Write(&cfg, path); err != nil {
			return err
		}
	}

	editor := findEditor()
	if editor == "" {
		return fmt.Errorf("no editor found; set EDITOR")
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error; %w", err)
	}

	if _, err := config.LoadFromPath(path); err != nil {
		fmt.Fprintf(out, "Saved, but the configuration is invalid:\n  %v\n", err)
		return fmt.Errorf("configuration is invalid")
	}
	fmt.Fprintf(out, "Configuration saved: %s\n", path)
	return nil
}

func findEditor() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if editor := os.Getenv(env); editor != "" {
			return editor
		}
	}
	for _, editor := range []string{"vim", "vi", "nano"} {
		if _, err := exec.LookPath(editor); err == nil {
			return editor
		}
	}
	return ""
}
