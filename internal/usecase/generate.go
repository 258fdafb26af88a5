package usecase

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"promptgen/internal/adapter/analyzer"
	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// GenerateUseCase turns a prompt request into verified prompts.
type GenerateUseCase struct {
	resolver port.TokenizerResolver
	reader   port.SourceReader
	batch    *BatchUseCase
	logger   *log.Logger
}

// NewGenerateUseCase creates a generate use case. cache may be nil.
func NewGenerateUseCase(
	resolver port.TokenizerResolver,
	reader port.SourceReader,
	cache port.PromptCache,
	logger *log.Logger,
) *GenerateUseCase {
	logger = diag.OrDiscard(logger)
	return &GenerateUseCase{
		resolver: resolver,
		reader:   reader,
		batch:    NewBatchUseCase(cache, logger),
		logger:   logger,
	}
}

// Generation is the outcome of one request.
type Generation struct {
	*domain.BatchResult
	Tokenizer port.Tokenizer
}

// Generate resolves the tokenizer, loads and normalizes the source, joins
// the prefix and runs the batch.
func (u *GenerateUseCase) Generate(req domain.PromptRequest, mode BatchMode) (*Generation, error) {
	if len(req.Lengths) == 0 {
		return nil, fmt.Errorf("%w: no target lengths requested", domain.ErrInvalidLength)
	}

	tok, err := u.resolver.Resolve(req.Tokenizer)
	if err != nil {
		return nil, err
	}

	text, err := u.sourceText(req)
	if err != nil {
		return nil, err
	}

	u.logger.Info("generating prompts",
		"tokenizer", req.Tokenizer, "model", tok.ModelID(),
		"lengths", len(req.Lengths), "mode", mode)

	result, err := u.batch.Run(tok, text, req.Lengths, mode)
	if err != nil {
		return nil, err
	}
	return &Generation{BatchResult: result, Tokenizer: tok}, nil
}

// sourceText returns the exact text a request encodes: the normalized
// source with the prefix joined in front.
func (u *GenerateUseCase) sourceText(req domain.PromptRequest) (string, error) {
	source := req.SourceText
	if source == "" {
		var err error
		source, err = u.reader.ReadSource(req.SourceFile)
		if err != nil {
			return "", err
		}
	}
	if !utf8.ValidString(source) {
		return "", fmt.Errorf("source text is not valid UTF-8")
	}

	source = analyzer.CollapseNewlines(source)
	u.logger.Debug("source loaded", "file", req.SourceFile, "bytes", len(source), "words", analyzer.CountWords(source))
	return CombinePrompt(req.Prefix, source), nil
}

// CombinePrompt puts prefix in front of source, separated by a single
// space unless either side already has whitespace at the seam.
func CombinePrompt(prefix, source string) string {
	if prefix == "" {
		return source
	}
	if source == "" {
		return prefix
	}
	last, _ := utf8.DecodeLastRuneInString(prefix)
	first, _ := utf8.DecodeRuneInString(source)
	if unicode.IsSpace(last) || unicode.IsSpace(first) {
		return prefix + source
	}
	return prefix + " " + source
}
