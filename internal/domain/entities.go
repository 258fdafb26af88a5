package domain

// TokenSequence is the ordered list of token ids produced by one encode pass.
type TokenSequence []int

// SpecialLayout records how many implicit tokens a tokenizer adds around
// every encoded text.
type SpecialLayout struct {
	Leading  int `json:"leading"`
	Trailing int `json:"trailing"`
}

// Reserved returns the number of tokens the tokenizer adds on its own.
func (l SpecialLayout) Reserved() int {
	return l.Leading + l.Trailing
}

type PromptRequest struct {
	Tokenizer  string
	Lengths    []int
	Prefix     string
	SourceFile string
	SourceText string // overrides SourceFile when non-empty
}

type PromptResult struct {
	Length     int    `json:"length"`
	Prompt     string `json:"prompt"`
	TokenCount int    `json:"token_count"`
}

// PromptRecord is the persisted form of a PromptResult.
type PromptRecord struct {
	Prompt    string `json:"prompt"`
	TokenSize int    `json:"token_size"`
	ModelID   string `json:"model_id"`
}

// NewPromptRecord attaches the tokenizer identity to a result.
func NewPromptRecord(r PromptResult, modelID string) PromptRecord {
	return PromptRecord{
		Prompt:    r.Prompt,
		TokenSize: r.TokenCount,
		ModelID:   modelID,
	}
}

// Outcome is the per-length entry of a batch run. Exactly one of Result
// and Err is set.
type Outcome struct {
	Length int
	Result *PromptResult
	Err    error
}

type BatchResult struct {
	ModelID     string
	TotalTokens int
	Outcomes    []Outcome
}

// Results returns the successful results in request order.
func (b *BatchResult) Results() []PromptResult {
	results := make([]PromptResult, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.Result != nil {
			results = append(results, *o.Result)
		}
	}
	return results
}

// Failed returns the outcomes that carry an error.
func (b *BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Records converts the successful results into persistable records.
func (b *BatchResult) Records() []PromptRecord {
	results := b.Results()
	records := make([]PromptRecord, len(results))
	for i, r := range results {
		records[i] = NewPromptRecord(r, b.ModelID)
	}
	return records
}
