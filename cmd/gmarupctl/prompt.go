package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// terminalPrompter answers console prompts from a line-oriented reader.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

var (
	_ console.Prompter  = (*terminalPrompter)(nil)
	_ console.Confirmer = (*terminalPrompter)(nil)
)

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed line. EOF counts as an empty answer.
func (p *terminalPrompter) Ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptStatus pre-fills the suggested status. An empty line accepts it and
// "-" aborts.
func (p *terminalPrompter) PromptStatus(_ context.Context, kind console.Collection, id console.RecordID, current, suggested string) (string, error) {
	answer, err := p.Ask(fmt.Sprintf("%s %s status (%s) [%s]: ", kind, id, current, suggested))
	if err != nil {
		return "", err
	}
	switch answer {
	case "":
		return suggested, nil
	case "-":
		return "", nil
	}
	return answer, nil
}

func (p *terminalPrompter) Confirm(_ context.Context, prompt string) (bool, error) {
	answer, err := p.Ask(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "כן":
		return true, nil
	}
	return false, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
