package advisor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user yes/no questions. The analysis never leaves the
// machine without an explicit yes.
type Prompter interface {
	Confirm(question string) bool
}

// TerminalPrompter reads answers from an interactive terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter reads from in and writes prompts to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

// Confirm prints the question and accepts y/yes, case-insensitive.
// Anything else, including EOF, is a no.
func (p *TerminalPrompter) Confirm(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// ScriptedPrompter returns canned answers in order, then no. Used in
// tests and non-interactive runs.
type ScriptedPrompter struct {
	answers []bool
	next    int
}

// NewScriptedPrompter replays the given answers.
func NewScriptedPrompter(answers ...bool) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

func (p *ScriptedPrompter) Confirm(string) bool {
	if p.next >= len(p.answers) {
		return false
	}
	answer := p.answers[p.next]
	p.next++
	return answer
}
