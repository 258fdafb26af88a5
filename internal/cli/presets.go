package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"promptgen/internal/adapter/tokenizer"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List tokenizer preset names",
	Long: `List the friendly tokenizer names accepted by -t and --tokenizers, with the
identifier each resolves to. Presets from the config file are included.`,
	Args: cobra.NoArgs,
	RunE: runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(cmd *cobra.Command, args []string) error {
	presets := newResolver().Presets()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tIDENTIFIER\tBACKEND")
	for _, name := range presets.Names() {
		id := presets.Lookup(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, id, backendOf(id))
	}
	return tw.Flush()
}

func backendOf(id string) string {
	switch {
	case id == tokenizer.IDByte || id == tokenizer.IDByteBOS:
		return "byte"
	case strings.HasPrefix(id, "tiktoken:"):
		return "tiktoken"
	default:
		return "huggingface"
	}
}
