// Package models implements the models command for listing the catalog.
package models

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/cmdutil"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
)

// Flag variables for the models command.
var (
	modelsFormat  string
	modelsVerbose bool
)

// ModelsCmd lists the models that can be selected.
var ModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the supported models",
	Long: "List the supported models and the vocabulary each one uses.\n\n" +
		"Built-in vocabularies ship with tokenscope. Remote vocabularies are downloaded on " +
		"first use and cached in tokenizer.vocab_dir; the CACHED column shows whether that " +
		"has happened yet.",
	Example: `  # List models
  tokenscope models

  # Include vocabulary URLs
  tokenscope models --verbose

  # Machine-readable output
  tokenscope models --format json`,
	Args:    cobra.NoArgs,
	PreRunE: validateModels,
	RunE:    runModels,
}

func init() {
	registerFlags(ModelsCmd)
}

func registerFlags(c *cobra.Command) {
	c.Flags().StringVarP(&modelsFormat, "format", "F", "table", "Output format: table, json, yaml")
	c.Flags().BoolVarP(&modelsVerbose, "verbose", "v", false, "Show vocabulary URLs")
}

func validateModels(cmd *cobra.Command, args []string) error {
	switch modelsFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q; available: table, json, yaml", modelsFormat)
	}
	cmd.SilenceUsage = true
	return nil
}

type modelEntry struct {
	catalog.Model `yaml:",inline"`
	Default       bool `json:"default" yaml:"default"`
	Cached        bool `json:"cached" yaml:"cached"`
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cat, err := cmdutil.NewCatalog(cfg)
	if err != nil {
		return err
	}
	vocab, err := cmdutil.NewVocabLoader(cfg, nil)
	if err != nil {
		return err
	}

	entries := buildEntries(cat, vocab, cfg.Visualizer.DefaultModel)

	switch modelsFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to format models; %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	printTable(out, entries)
	return nil
}

func buildEntries(cat *catalog.Catalog, vocab *tokenizer.VocabLoader, defaultModel string) []modelEntry {
	models := cat.List()
	entries := make([]modelEntry, len(models))
	for i, m := range models {
		entries[i] = modelEntry{
			Model:   m,
			Default: m.ID == defaultModel,
			Cached:  m.Kind == catalog.KindBuiltin || vocab.Cached(m.VocabURL),
		}
	}
	return entries
}

func printTable(out io.Writer, entries []modelEntry) {
	fmt.Fprintf(out, "Supported models (%d):\n\n", len(entries))
	fmt.Fprintf(out, "  %-24s %-24s %-12s %-8s %s\n", "ID", "NAME", "ENCODING", "KIND", "CACHED")
	fmt.Fprintf(out, "  %-24s %-24s %-12s %-8s %s\n", strings.Repeat("-", 24), strings.Repeat("-", 24), strings.Repeat("-", 12), strings.Repeat("-", 8), strings.Repeat("-", 6))

	for _, e := range entries {
		id := e.ID
		if e.Default {
			id += " *"
		}
		cached := "yes"
		if !e.Cached {
			cached = "no"
		}
		fmt.Fprintf(out, "  %-24s %-24s %-12s %-8s %s\n", id, e.DisplayName, e.Encoding, e.Kind, cached)
		if modelsVerbose && e.VocabURL != "" {
			fmt.Fprintf(out, "    Vocabulary: %s\n", e.VocabURL)
		}
	}

	fmt.Fprintln(out, "\n  * default model (visualizer.default_model)")
}
