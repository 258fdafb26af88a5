package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"promptgen/internal/diag"
	"promptgen/internal/usecase"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file-or-glob>...",
	Short: "Re-tokenize prompt files and check their token counts",
	Long: `Verify reads JSONL prompt files, re-encodes every prompt under the
tokenizer named by its model_id and checks that the token count matches
token_size and that the prompt decodes back to itself.

Examples:
  promptgen verify prompts.jsonl
  promptgen verify "prompts/**/*.jsonl"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	files, err := expandPromptFiles(args)
	if err != nil {
		return err
	}

	resolver := newResolver()
	defer resolver.Close()
	uc := usecase.NewVerifyUseCase(resolver, logger)

	out := cmd.OutOrStdout()
	var total, failed int
	for _, file := range files {
		checks, err := uc.VerifyFile(file)
		if err != nil {
			return err
		}
		for _, c := range checks {
			total++
			if c.OK() {
				continue
			}
			failed++
			fmt.Fprintf(out, "FAIL %s #%d [%s] %s: want %d tokens, got %d: %v\n",
				c.Path, c.Index, diag.Classify(c.Err), c.Record.ModelID, c.Record.TokenSize, c.Got, c.Err)
		}
	}

	fmt.Fprintf(out, "Verified %d records in %d files: %d ok, %d failed\n", total, len(files), total-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed verification", failed, total)
	}
	return nil
}

// expandPromptFiles resolves arguments that are not existing files as
// doublestar globs.
func expandPromptFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			if !seen[arg] {
				seen[arg] = true
				files = append(files, arg)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no prompt files match %q", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}
