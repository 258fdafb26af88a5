package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"promptgen/internal/adapter/fs"
	"promptgen/internal/adapter/source"
	"promptgen/internal/adapter/writer"
	"promptgen/internal/diag"
	"promptgen/internal/usecase"
)

var (
	sweepOut        string
	sweepTokenizers []string
	sweepLengths    []int
	sweepSources    []string
	sweepFormats    []string
	sweepOverwrite  bool
	sweepCache      bool
	sweepQuiet      bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Generate a prompt file for every source, tokenizer and length",
	Long: `Generate one prompt file per source, tokenizer, length and format:

  <out>/<source>/<format>/<tokenizer>/prompt_<length>.<format>

Cells that fail (source too short, prompt does not survive re-encoding,
tokenizer unavailable, file exists) are skipped and summarized at the end.
Sources are files, directories or glob patterns; "alice" is the built-in text.
Defaults come from the sweep section of the config.

Examples:
  promptgen sweep
  promptgen sweep --out bench --tokenizers gpt-4,llama --lengths 128,1024
  promptgen sweep --sources "texts/**/*.txt" --format jsonl --overwrite`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepOut, "out", "", "output directory (default from config)")
	sweepCmd.Flags().StringSliceVar(&sweepTokenizers, "tokenizers", nil, "tokenizer presets or identifiers")
	sweepCmd.Flags().IntSliceVar(&sweepLengths, "lengths", nil, "target token lengths")
	sweepCmd.Flags().StringSliceVar(&sweepSources, "sources", nil, "source files, directories or globs")
	sweepCmd.Flags().StringSliceVar(&sweepFormats, "format", nil, "output formats: jsonl, txt")
	sweepCmd.Flags().BoolVar(&sweepOverwrite, "overwrite", false, "replace existing prompt files")
	sweepCmd.Flags().BoolVar(&sweepCache, "cache", false, "reuse verified prompts from the prompt cache")
	sweepCmd.Flags().BoolVarP(&sweepQuiet, "quiet", "q", false, "hide the progress bar")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	req := usecase.SweepRequest{
		Out:        pick(sweepOut, cfg.Sweep.Out),
		Tokenizers: pickSlice(sweepTokenizers, cfg.Sweep.Tokenizers),
		Lengths:    pickSlice(sweepLengths, cfg.Sweep.Lengths),
		Formats:    pickSlice(sweepFormats, cfg.Sweep.Formats),
		Prefixes:   cfg.Sweep.Prefixes,
	}
	if !filepath.IsAbs(req.Out) {
		req.Out = filepath.Join(GetRootDir(), req.Out)
	}
	req.Formats = normalizeFormats(req.Formats)
	for _, f := range req.Formats {
		if f != writer.FormatJSONL && f != writer.FormatTXT {
			return fmt.Errorf("unknown format %q (want jsonl or txt)", f)
		}
	}

	walker := fs.NewWalker(nil, cfg.Sweep.Excludes)
	sources, err := walker.Expand(pickSlice(sweepSources, cfg.Sweep.Sources), source.DefaultName)
	if err != nil {
		return err
	}
	req.Sources = sources

	resolver := newResolver()
	defer resolver.Close()

	cache, closeCache, err := openCache(sweepCache || cfg.Cache.Enabled)
	if err != nil {
		return err
	}
	defer closeCache()

	w := writer.New(writer.Options{
		Overwrite:   sweepOverwrite || cfg.Output.Overwrite,
		LockTimeout: cfg.Output.LockTimeout,
	})
	uc := usecase.NewSweepUseCase(resolver, source.NewReader(), w, cache, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sweeping %d sources x %d tokenizers x %d lengths into %s\n",
		len(req.Sources), len(req.Tokenizers), len(req.Lengths), req.Out)

	var progress usecase.SweepProgress
	if !sweepQuiet {
		progress = newSweepProgress(cmd)
	}

	start := time.Now()
	report, err := uc.Run(req, progress)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Fprintf(out, "\nSweep complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Fprintf(out, "  Files written:  %d\n", report.Written)
	fmt.Fprintf(out, "  Cells skipped:  %d\n", len(report.Failures))

	if len(report.Failures) > 0 {
		counts := report.FailuresByCode()
		codes := make([]string, 0, len(counts))
		for code := range counts {
			codes = append(codes, string(code))
		}
		sort.Strings(codes)
		fmt.Fprintf(out, "\nSkipped by class:\n")
		for _, code := range codes {
			fmt.Fprintf(out, "  %-14s %d\n", code+":", counts[diag.Code(code)])
		}
	}
	return nil
}

// newSweepProgress draws a progress bar with an ETA on stderr.
func newSweepProgress(cmd *cobra.Command) usecase.SweepProgress {
	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)

	return func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Sweeping[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(cmd.ErrOrStderr())
				}),
			)
		}

		bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			remaining := total - done
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Sweeping[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

func normalizeFormats(formats []string) []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return out
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func pickSlice[T any](flag, fallback []T) []T {
	if len(flag) > 0 {
		return flag
	}
	return fallback
}
