package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"promptgen/internal/adapter/source"
	"promptgen/internal/adapter/writer"
	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/usecase"
)

var (
	genTokenizer string
	genLengths   []int
	genPrefix    string
	genFile      string
	genOutput    string
	genOverwrite bool
	genVerbose   bool
	genSilent    bool
	genKeepGoing bool
	genCache     bool
)

var generateCmd = &cobra.Command{
	Use:     "generate [length...]",
	Aliases: []string{"gen"},
	Short:   "Generate prompts of exact token lengths",
	Long: `Generate prompts that encode to exactly the requested number of tokens.
Lengths come from -n (repeatable, comma separated) and from positional
arguments. Every prompt is printed to stderr unless --silent is set. With -o
the records are written to a .jsonl file, or a .txt file for a single length;
without -o they are printed to stdout as JSON lines.

Examples:
  promptgen generate -t gpt-4 -n 16,64,256
  promptgen generate -t opt -n 128 -p "Summarize this text:" -o prompt.txt
  promptgen generate -t tiktoken:o200k_base 32 64 -f paper.pdf -o out.jsonl --overwrite`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genTokenizer, "tokenizer", "t", "", "tokenizer preset or identifier (default from config)")
	generateCmd.Flags().IntSliceVarP(&genLengths, "num-tokens", "n", nil, "target token lengths")
	generateCmd.Flags().StringVarP(&genPrefix, "prefix", "p", "", "text placed in front of the source")
	generateCmd.Flags().StringVarP(&genFile, "file", "f", "", "source file (.txt, .pdf, .html); default is the built-in text")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output file (.jsonl or .txt)")
	generateCmd.Flags().BoolVar(&genOverwrite, "overwrite", false, "replace an existing output file")
	generateCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "also print the token ids of every prompt")
	generateCmd.Flags().BoolVarP(&genSilent, "silent", "s", false, "do not print prompts to stderr")
	generateCmd.Flags().BoolVar(&genKeepGoing, "keep-going", false, "skip lengths that fail instead of stopping")
	generateCmd.Flags().BoolVar(&genCache, "cache", false, "reuse verified prompts from the prompt cache")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	lengths, err := collectLengths(genLengths, args, cfg.Generate.Lengths)
	if err != nil {
		return err
	}

	handle := genTokenizer
	if handle == "" {
		handle = cfg.Tokenizer.Default
	}
	prefix := cfg.Generate.Prefix
	if cmd.Flags().Changed("prefix") {
		prefix = genPrefix
	}
	file := cfg.Generate.Source
	if cmd.Flags().Changed("file") {
		file = genFile
	}
	overwrite := genOverwrite || cfg.Output.Overwrite
	mode := usecase.Strict
	if genKeepGoing || cfg.Generate.KeepGoing {
		mode = usecase.Tolerant
	}

	if genOutput != "" {
		if err := checkOutput(genOutput, len(lengths), overwrite); err != nil {
			return err
		}
	}

	resolver := newResolver()
	defer resolver.Close()

	cache, closeCache, err := openCache(genCache || cfg.Cache.Enabled)
	if err != nil {
		return err
	}
	defer closeCache()

	req := domain.PromptRequest{
		Tokenizer:  handle,
		Lengths:    lengths,
		Prefix:     prefix,
		SourceFile: file,
	}
	echo := diag.NewEcho(cmd.ErrOrStderr(), genVerbose)
	if genVerbose && !genSilent {
		echo.Dump(req)
	}

	uc := usecase.NewGenerateUseCase(resolver, source.NewReader(), cache, logger)
	gen, err := uc.Generate(req, mode)
	if err != nil {
		return err
	}

	if !genSilent {
		for _, o := range gen.Outcomes {
			if o.Err != nil {
				echo.Failure(o)
				continue
			}
			var ids domain.TokenSequence
			if genVerbose {
				ids, _ = gen.Tokenizer.Encode(o.Result.Prompt)
			}
			echo.Prompt(gen.ModelID, *o.Result, ids)
		}
	}

	records := gen.Records()
	if genOutput != "" {
		w := writer.New(writer.Options{Overwrite: overwrite, LockTimeout: cfg.Output.LockTimeout})
		if err := w.WritePrompts(genOutput, records); err != nil {
			return err
		}
		logger.Info("prompts written", "path", genOutput, "records", len(records))
	} else if err := writer.EncodeJSONL(cmd.OutOrStdout(), records); err != nil {
		return err
	}

	if failed := gen.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d lengths failed, first: %w", len(failed), len(lengths), failed[0].Err)
	}
	return nil
}

// collectLengths merges -n values with positional lengths, falling back to
// the configured defaults when neither is given.
func collectLengths(flagged []int, args []string, defaults []int) ([]int, error) {
	lengths := append([]int{}, flagged...)
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidLength, arg)
		}
		lengths = append(lengths, n)
	}
	if len(lengths) == 0 {
		lengths = append(lengths, defaults...)
	}
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: no target lengths given (use -n)", domain.ErrInvalidLength)
	}
	for _, n := range lengths {
		if n < 1 {
			return nil, fmt.Errorf("%w: %d, must be at least 1", domain.ErrInvalidLength, n)
		}
	}
	return lengths, nil
}

// checkOutput fails before any tokenizer is loaded when the output cannot
// be written.
func checkOutput(path string, lengths int, overwrite bool) error {
	if writer.FormatFor(path) == writer.FormatTXT && lengths != 1 {
		return fmt.Errorf("txt output holds exactly one prompt, got %d lengths; use a .jsonl file", lengths)
	}
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return &domain.OutputConflictError{Path: path}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check output file: %w", err)
	}
	return nil
}
