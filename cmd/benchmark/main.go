package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"promptgen/config"
	"promptgen/internal/adapter/source"
	"promptgen/internal/adapter/tokenizer"
	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding promptgen.yaml")
	tokenizers := flag.String("t", "byte-bos,gpt-4,gpt-4o", "Comma separated tokenizers")
	lengthList := flag.String("n", "16,128,1024,4096", "Comma separated target lengths")
	file := flag.String("f", "", "Source file (default is the built-in text)")
	rounds := flag.Int("r", 3, "Rounds per tokenizer")
	flag.Parse()

	lengths, err := parseLengths(*lengthList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *rounds < 1 {
		*rounds = 1
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	resolver := tokenizer.NewResolver(tokenizer.NewPresets(cfg.Presets), tokenizer.Options{
		ModelMaxLength: cfg.Tokenizer.ModelMaxLength,
		CacheDir:       cfg.TokenizerCacheDir(*dir),
		AuthToken:      cfg.AuthToken(),
		OfflineBPE:     cfg.Tokenizer.OfflineBPE,
	})
	defer resolver.Close()

	gen := usecase.NewGenerateUseCase(resolver, source.NewReader(), nil, nil)
	verify := usecase.NewVerifyUseCase(resolver, nil)

	fmt.Println("EXACT-LENGTH PROMPT BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Source:  %s\n", source.Name(*file))
	fmt.Printf("Lengths: %v\n", lengths)
	fmt.Printf("Rounds:  %d\n", *rounds)
	fmt.Println()

	failures := 0
	for _, handle := range strings.Split(*tokenizers, ",") {
		handle = strings.TrimSpace(handle)
		if handle == "" {
			continue
		}
		fmt.Printf("Tokenizer: %s\n", handle)
		fmt.Println(strings.Repeat("-", 70))

		req := domain.PromptRequest{Tokenizer: handle, Lengths: lengths, SourceFile: *file}

		var last *usecase.Generation
		var best, total time.Duration
		for i := 0; i < *rounds; i++ {
			start := time.Now()
			g, err := gen.Generate(req, usecase.Tolerant)
			elapsed := time.Since(start)
			if err != nil {
				fmt.Printf("  unavailable [%s]: %v\n\n", diag.Classify(err), err)
				failures++
				last = nil
				break
			}
			last = g
			total += elapsed
			if i == 0 || elapsed < best {
				best = elapsed
			}
		}
		if last == nil {
			continue
		}

		fmt.Printf("  Model:         %s\n", last.ModelID)
		fmt.Printf("  Source tokens: %d\n", last.TotalTokens)
		fmt.Printf("  Best round:    %s\n", best)
		fmt.Printf("  Mean round:    %s\n", total/time.Duration(*rounds))

		for _, o := range last.Outcomes {
			if o.Err != nil {
				fmt.Printf("  %6d  FAIL [%s] %v\n", o.Length, diag.Classify(o.Err), o.Err)
				failures++
				continue
			}
			check := verify.VerifyRecord(domain.NewPromptRecord(*o.Result, last.ModelID))
			status := "OK"
			if !check.OK() {
				status = "MISMATCH"
				failures++
			}
			fmt.Printf("  %6d  %-8s %d chars\n", o.Length, status, len(o.Result.Prompt))
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 70))
	if failures > 0 {
		fmt.Printf("Status: %d cells failed or did not verify\n", failures)
		os.Exit(1)
	}
	fmt.Println("Status: GOOD - every prompt re-encodes to its target length")
}

func parseLengths(list string) ([]int, error) {
	var lengths []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid length %q", part)
		}
		lengths = append(lengths, n)
	}
	if len(lengths) == 0 {
		return nil, fmt.Errorf("no lengths given")
	}
	return lengths, nil
}
