package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/storage/query"
	"golang.org/x/term"
)

const promptPrefix = "friskstat> "

// REPL reads commands and writes their results.
type REPL struct {
	h      *Handler
	enc    report.Encoder
	in     io.Reader
	errOut io.Writer
}

// NewREPL creates a REPL reading from in. Results go to enc; errors go to
// errOut.
func NewREPL(h *Handler, enc report.Encoder, in io.Reader, errOut io.Writer) *REPL {
	return &REPL{h: h, enc: enc, in: in, errOut: errOut}
}

// Run starts an interactive prompt when in is a terminal and otherwise runs
// in script mode.
func (r *REPL) Run(ctx context.Context) error {
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.interactive(ctx)
		return nil
	}
	return r.Script(ctx)
}

// Script executes one command per input line. The first failing command
// stops the script and its error is returned with the line number.
func (r *REPL) Script(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if isExit(line) {
			return nil
		}
		if err := r.h.Execute(ctx, line, r.enc); err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
	}
	return scanner.Err()
}

// interactive runs the go-prompt loop. Command errors are printed and the
// session continues.
func (r *REPL) interactive(ctx context.Context) {
	fmt.Fprintf(r.errOut, "friskstat shell: %d records in %d years. Type help, or exit to leave.\n",
		r.h.db.Len(), len(r.h.db.Years()))

	executor := func(line string) {
		if isExit(line) {
			return
		}
		if err := r.h.Execute(ctx, line, r.enc); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
	}

	p := prompt.New(executor, r.h.Complete,
		prompt.OptionPrefix(promptPrefix),
		prompt.OptionTitle("friskstat"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExit(in)
		}),
	)
	p.Run()
}

func isExit(line string) bool {
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "exit", "quit", `\q`:
		return true
	}
	return false
}

// =============================================================================
// Completion
// =============================================================================

// Complete suggests command names for the first word, then years, race codes
// and breakdown columns where those arguments are expected.
func (h *Handler) Complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	words := strings.Fields(before)

	// pos is the index of the word being typed; 0 is the command.
	pos := len(words)
	if pos > 0 && !strings.HasSuffix(before, " ") {
		pos--
	}
	word := d.GetWordBeforeCursor()

	if pos == 0 {
		s := make([]prompt.Suggest, 0, len(commands)+1)
		for _, c := range commands {
			s = append(s, prompt.Suggest{Text: c.Name, Description: c.Help})
		}
		s = append(s, prompt.Suggest{Text: "exit", Description: "leave the shell"})
		return prompt.FilterHasPrefix(s, word, true)
	}

	name := strings.ToLower(words[0])
	switch {
	case yearArg(name, pos):
		return prompt.FilterHasPrefix(textSuggestions(yearSuggestions(h.db)), word, false)
	case name == "stopped" && pos == 2:
		return prompt.FilterHasPrefix([]prompt.Suggest{
			{Text: "B", Description: "Black"},
			{Text: "W", Description: "White"},
		}, word, true)
	case name == "count" && pos == 2:
		return prompt.FilterHasPrefix(textSuggestions([]string{"race", "description"}), word, true)
	case name == "breakdown" && pos == 2:
		return prompt.FilterHasPrefix(textSuggestions(query.BreakdownColumns()), word, true)
	case name == "help" && pos == 1:
		s := make([]prompt.Suggest, 0, len(commands))
		for _, c := range commands {
			s = append(s, prompt.Suggest{Text: c.Name})
		}
		return prompt.FilterHasPrefix(s, word, true)
	}
	return nil
}

func textSuggestions(values []string) []prompt.Suggest {
	s := make([]prompt.Suggest, len(values))
	for i, v := range values {
		s[i] = prompt.Suggest{Text: v}
	}
	return s
}
