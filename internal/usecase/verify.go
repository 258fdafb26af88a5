package usecase

import (
	"fmt"

	"github.com/charmbracelet/log"

	"promptgen/internal/adapter/writer"
	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// RecordCheck is the verdict on one stored prompt record.
type RecordCheck struct {
	Path   string
	Index  int
	Record domain.PromptRecord
	Got    int
	Err    error
}

func (c RecordCheck) OK() bool {
	return c.Err == nil
}

// VerifyUseCase re-tokenizes previously written prompt files.
type VerifyUseCase struct {
	resolver port.TokenizerResolver
	logger   *log.Logger
}

func NewVerifyUseCase(resolver port.TokenizerResolver, logger *log.Logger) *VerifyUseCase {
	return &VerifyUseCase{
		resolver: resolver,
		logger:   diag.OrDiscard(logger),
	}
}

// VerifyFile checks every record of a JSONL prompt file. The error return
// is reserved for files that cannot be read; bad records are reported in
// their checks.
func (u *VerifyUseCase) VerifyFile(path string) ([]RecordCheck, error) {
	records, err := writer.ReadJSONL(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	checks := make([]RecordCheck, len(records))
	for i, r := range records {
		checks[i] = u.VerifyRecord(r)
		checks[i].Path = path
		checks[i].Index = i
		if checks[i].Err != nil {
			u.logger.Warn("record failed verification", "file", path, "record", i,
				"model", r.ModelID, "token_size", r.TokenSize, "got", checks[i].Got, "err", checks[i].Err)
		}
	}
	return checks, nil
}

// VerifyRecord re-encodes the prompt under the record's tokenizer and checks
// the count and the decoded text.
func (u *VerifyUseCase) VerifyRecord(r domain.PromptRecord) RecordCheck {
	check := RecordCheck{Record: r}

	tok, err := u.resolver.Resolve(r.ModelID)
	if err != nil {
		check.Err = err
		return check
	}

	ids, err := tok.Encode(r.Prompt)
	if err != nil {
		check.Err = err
		return check
	}
	check.Got = len(ids)
	if len(ids) != r.TokenSize {
		check.Err = &domain.VerificationError{
			Length: r.TokenSize,
			Got:    len(ids),
			Stage:  domain.StageCount,
			Prompt: r.Prompt,
		}
		return check
	}

	layout := tok.Layout()
	if len(ids) < layout.Reserved() {
		check.Err = fmt.Errorf("%w: %d tokens cannot hold the %d implicit tokens of %s",
			domain.ErrVerification, len(ids), layout.Reserved(), tok.ModelID())
		return check
	}
	reproduced, err := tok.Decode(ids[layout.Leading:len(ids)-layout.Trailing], false)
	if err != nil {
		check.Err = err
		return check
	}
	if reproduced != r.Prompt {
		check.Err = &domain.VerificationError{
			Length:     r.TokenSize,
			Got:        len(ids),
			Stage:      domain.StageText,
			Prompt:     r.Prompt,
			Reproduced: reproduced,
		}
	}
	return check
}
