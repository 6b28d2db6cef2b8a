// Package console provides line-oriented terminal input and colored output
// for interactive menus.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI escape codes used by menus.
const (
	Reset     = "\033[0m"
	Bold      = "\033[1m"
	Underline = "\033[4m"
	Red       = "\033[91m"
	Green     = "\033[92m"
	Yellow    = "\033[93m"
	Blue      = "\033[94m"
	Header    = "\033[95m"
)

type readResult struct {
	line string
	err  error
}

// Prompter reads answers from an input stream and writes prompts to an output stream.
// Passwords are read without echo when the input is a terminal.
type Prompter struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
	color    bool

	// readPassword is term.ReadPassword, replaceable in tests
	readPassword func(fd int) ([]byte, error)

	// saveState captures the terminal mode so an abandoned password read
	// can put echo back on
	saveState func(fd int) (restore func(), err error)
}

// NewPrompter creates a Prompter. Colors are enabled when out is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	prompter := &Prompter{
		in:  bufio.NewReader(in),
		out: out,
		fd:  -1,

		readPassword: term.ReadPassword,
		saveState:    saveTerminalState,
	}

	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		prompter.fd = int(file.Fd())
		prompter.terminal = true
	}

	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		prompter.color = true
	}

	return prompter
}

// Colorize wraps text in the given ANSI code if colors are enabled.
func (p *Prompter) Colorize(text, code string) string {
	if !p.color {
		return text
	}

	return code + text + Reset
}

// Printf writes formatted text to the output.
func (p *Prompter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Println writes text followed by a newline, colored with code when code is not empty.
func (p *Prompter) Println(text, code string) {
	if code != "" {
		text = p.Colorize(text, code)
	}

	_, _ = fmt.Fprintln(p.out, text)
}

// ReadLine prints label and reads one line of input with surrounding whitespace trimmed.
// A final line without a newline is returned as-is; io.EOF is returned once input is exhausted.
// ReadLine returns ctx.Err() if ctx is cancelled while waiting for input.
func (p *Prompter) ReadLine(ctx context.Context, label string) (string, error) {
	p.Printf("%s", p.Colorize(label, Yellow))

	result := make(chan readResult, 1)

	go func() {
		line, err := p.in.ReadString('\n')
		if errors.Is(err, io.EOF) && len(line) > 0 {
			err = nil
		}

		result <- readResult{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-result:
		if r.err != nil {
			return "", fmt.Errorf("read line: %w", r.err)
		}

		return r.line, nil
	}
}

// ReadPassword prints label and reads a password. On a terminal the input is not echoed.
// Like ReadLine it returns ctx.Err() if ctx is cancelled while waiting, leaving
// the terminal in the mode it had before the prompt.
func (p *Prompter) ReadPassword(ctx context.Context, label string) (string, error) {
	if !p.terminal {
		return p.ReadLine(ctx, label)
	}

	p.Printf("%s", p.Colorize(label, Yellow))

	restore := func() {}

	if p.saveState != nil {
		if r, err := p.saveState(p.fd); err == nil {
			restore = r
		}
	}

	result := make(chan readResult, 1)

	go func() {
		password, err := p.readPassword(p.fd)
		result <- readResult{line: string(password), err: err}
	}()

	select {
	case <-ctx.Done():
		restore()
		p.Printf("\n")

		return "", ctx.Err()
	case r := <-result:
		p.Printf("\n")

		if r.err != nil {
			return "", fmt.Errorf("read password: %w", r.err)
		}

		return r.line, nil
	}
}

func saveTerminalState(fd int) (func(), error) {
	state, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("get terminal state: %w", err)
	}

	return func() { _ = term.Restore(fd, state) }, nil
}
