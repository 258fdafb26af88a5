package diag

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/k0kubun/pp"

	"promptgen/internal/domain"
)

var (
	echoHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	echoMetaStyle   = lipgloss.NewStyle().Faint(true)
)

// Echo prints generated prompts to a diagnostic stream.
type Echo struct {
	w       io.Writer
	verbose bool
}

func NewEcho(w io.Writer, verbose bool) *Echo {
	return &Echo{w: w, verbose: verbose}
}

// Prompt prints one result. ids are printed only in verbose mode.
func (e *Echo) Prompt(modelID string, r domain.PromptResult, ids domain.TokenSequence) {
	header := echoHeaderStyle.Render(fmt.Sprintf("── %d tokens ", r.TokenCount)) +
		echoMetaStyle.Render(modelID)
	fmt.Fprintln(e.w, header)
	fmt.Fprintln(e.w, r.Prompt)
	if e.verbose && ids != nil {
		fmt.Fprint(e.w, pp.Sprintln([]int(ids)))
	}
}

// Failure prints a per-length failure of a tolerant batch.
func (e *Echo) Failure(o domain.Outcome) {
	fmt.Fprintln(e.w, echoMetaStyle.Render(fmt.Sprintf("── %d tokens failed (%s): %v", o.Length, Classify(o.Err), o.Err)))
}

// Dump pretty-prints v, used for the resolved configuration in verbose mode.
func (e *Echo) Dump(v any) {
	fmt.Fprint(e.w, pp.Sprintln(v))
}
