package usecase

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"promptgen/internal/adapter/source"
	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// SweepRequest describes a matrix of prompt files: every source under every
// tokenizer at every length, written once per format.
type SweepRequest struct {
	Out        string
	Sources    []string // file paths; source.DefaultName selects the built-in text
	Tokenizers []string
	Lengths    []int
	Formats    []string
	Prefixes   map[string]string // source name -> prefix
}

// SweepFailure is one cell of the matrix that produced no file.
type SweepFailure struct {
	Source    string
	Tokenizer string
	Length    int // 0 when the whole source or tokenizer failed
	Code      diag.Code
	Err       error
}

// SweepReport summarizes a sweep.
type SweepReport struct {
	Written  int
	Failures []SweepFailure
}

// FailuresByCode counts failures per error class.
func (r *SweepReport) FailuresByCode() map[diag.Code]int {
	counts := make(map[diag.Code]int)
	for _, f := range r.Failures {
		counts[f.Code]++
	}
	return counts
}

// SweepProgress is called after every source/tokenizer pair with the
// number of lengths processed so far and the total.
type SweepProgress func(done, total int)

// SweepUseCase generates and writes a prompt matrix, skipping what fails.
type SweepUseCase struct {
	gen    *GenerateUseCase
	writer port.PromptWriter
	logger *log.Logger
}

// NewSweepUseCase creates a sweep use case. cache may be nil.
func NewSweepUseCase(
	resolver port.TokenizerResolver,
	reader port.SourceReader,
	writer port.PromptWriter,
	cache port.PromptCache,
	logger *log.Logger,
) *SweepUseCase {
	logger = diag.OrDiscard(logger)
	return &SweepUseCase{
		gen:    NewGenerateUseCase(resolver, reader, cache, logger),
		writer: writer,
		logger: logger,
	}
}

// Run processes the whole matrix. Only an invalid request is an error;
// every other failure is recorded in the report.
func (u *SweepUseCase) Run(req SweepRequest, progress SweepProgress) (*SweepReport, error) {
	if len(req.Sources) == 0 || len(req.Tokenizers) == 0 || len(req.Lengths) == 0 || len(req.Formats) == 0 {
		return nil, fmt.Errorf("sweep needs at least one source, tokenizer, length and format")
	}
	for _, n := range req.Lengths {
		if n < 1 {
			return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLength, n)
		}
	}

	report := &SweepReport{}
	total := len(req.Sources) * len(req.Tokenizers) * len(req.Lengths)
	done := 0
	step := func() {
		done += len(req.Lengths)
		if progress != nil {
			progress(done, total)
		}
	}

	names := OutputNames(req.Sources)
	for i, src := range req.Sources {
		name := names[i]
		text, err := u.gen.sourceText(domain.PromptRequest{SourceFile: src, Prefix: req.Prefixes[source.Name(src)]})
		if err != nil {
			u.fail(report, SweepFailure{Source: name, Err: err})
			for range req.Tokenizers {
				step()
			}
			continue
		}

		for _, handle := range req.Tokenizers {
			u.runPair(report, req, name, text, handle)
			step()
		}
	}

	return report, nil
}

func (u *SweepUseCase) runPair(report *SweepReport, req SweepRequest, name, text, handle string) {
	tok, err := u.gen.resolver.Resolve(handle)
	if err != nil {
		u.fail(report, SweepFailure{Source: name, Tokenizer: handle, Err: err})
		return
	}

	result, err := u.gen.batch.Run(tok, text, req.Lengths, Tolerant)
	if err != nil {
		// An encode failure, or the failure of a single-length batch.
		u.fail(report, SweepFailure{Source: name, Tokenizer: handle, Length: singleLength(req.Lengths), Err: err})
		return
	}

	dir := SanitizeName(handle)
	for _, o := range result.Outcomes {
		if o.Err != nil {
			u.fail(report, SweepFailure{Source: name, Tokenizer: handle, Length: o.Length, Err: o.Err})
			continue
		}
		record := domain.NewPromptRecord(*o.Result, result.ModelID)
		for _, format := range req.Formats {
			format = strings.ToLower(format)
			path := filepath.Join(req.Out, name, format, dir, fmt.Sprintf("prompt_%d.%s", o.Length, format))
			if err := u.writer.WritePrompts(path, []domain.PromptRecord{record}); err != nil {
				u.fail(report, SweepFailure{Source: name, Tokenizer: handle, Length: o.Length, Err: err})
				continue
			}
			report.Written++
		}
	}
}

func (u *SweepUseCase) fail(report *SweepReport, f SweepFailure) {
	f.Code = diag.Classify(f.Err)
	report.Failures = append(report.Failures, f)
	u.logger.Warn("sweep cell skipped", "source", f.Source, "tokenizer", f.Tokenizer,
		"length", f.Length, "class", f.Code, "err", f.Err)
}

// OutputNames returns the directory name of every source: its base name,
// qualified by its parent directory when another source shares the base
// name, and numbered when that still collides.
func OutputNames(sources []string) []string {
	names := make([]string, len(sources))
	count := make(map[string]int)
	for i, src := range sources {
		names[i] = source.Name(src)
		count[names[i]]++
	}
	for i, src := range sources {
		if count[names[i]] > 1 {
			names[i] = qualifiedName(src)
		}
	}

	seen := make(map[string]int)
	for i, name := range names {
		seen[name]++
		if seen[name] > 1 {
			names[i] = fmt.Sprintf("%s-%d", name, seen[name])
		}
	}
	return names
}

func qualifiedName(src string) string {
	p := filepath.ToSlash(filepath.Clean(src))
	p = strings.TrimSuffix(p, path.Ext(p))
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return SanitizeName(strings.Join(parts, "_"))
}

func singleLength(lengths []int) int {
	if len(lengths) == 1 {
		return lengths[0]
	}
	return 0
}

// SanitizeName turns a tokenizer handle into a single path element.
func SanitizeName(handle string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(handle) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		return "_"
	}
	return name
}
