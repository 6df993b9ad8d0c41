// Package prompt implements the interactive confirmation gateway. Every
// irreversible action in the tool is guarded by a fresh prompt from this
// package, and the operator can bail out of the whole run by typing the
// exit keyword at any of them.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCancelled is returned when the operator types the exit keyword at a
// prompt. Stages propagate it upward; only the command layer turns it into
// a process exit, so every stage stays testable in isolation.
var ErrCancelled = errors.New("cancelled by operator")

// exitKeyword terminates the run from any prompt, at any stage.
const exitKeyword = "exit"

// Prompter asks questions on out and reads answers line by line from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Prompter reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Println writes a line of operator-facing text.
func (p *Prompter) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Printf writes formatted operator-facing text.
func (p *Prompter) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Text asks a free-form question and returns the trimmed answer. Empty
// answers re-prompt. An answer normalizing to the exit keyword returns
// ErrCancelled.
func (p *Prompter) Text(question string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s ", question)
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if strings.EqualFold(answer, exitKeyword) {
			return "", ErrCancelled
		}
		if answer == "" {
			continue
		}
		return answer, nil
	}
}

// YesNo asks a yes/no question. Input is case-insensitive; anything that is
// not yes, no, or the exit keyword re-prompts rather than defaulting.
func (p *Prompter) YesNo(question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [yes/no]: ", question)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case exitKeyword:
			return false, ErrCancelled
		default:
			fmt.Fprintln(p.out, "Please answer yes, no, or exit.")
		}
	}
}

// readLine reads one trimmed line of input. A read error with no buffered
// input (typically a closed stdin) is surfaced to the caller.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	trimmed := strings.TrimSpace(line)
	if err != nil && trimmed == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return trimmed, nil
}
