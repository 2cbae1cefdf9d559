package cli

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

// Prompter reads login input.
type Prompter interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	ReadPassword(ctx context.Context, prompt string) (string, error)
}

// TerminalPrompter prompts on stderr and reads from stdin. Passwords are read
// with echo disabled when stdin is a terminal, and as a plain line otherwise
// so they can be piped in.
type TerminalPrompter struct {
	stdin  io.Reader
	stderr io.Writer
	lines  *bufio.Reader
}

// NewTerminalPrompter creates a TerminalPrompter.
func NewTerminalPrompter(stdin io.Reader, stderr io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		stdin:  stdin,
		stderr: stderr,
		lines:  bufio.NewReader(stdin),
	}
}

func (p *TerminalPrompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(p.stderr, prompt)
	line, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *TerminalPrompter) ReadPassword(ctx context.Context, prompt string) (string, error) {
	if !p.IsInteractive() {
		return p.ReadLine(ctx, "")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(p.stderr, prompt)
	password, err := term.ReadPassword(int(p.stdin.(*os.File).Fd()))
	fmt.Fprintln(p.stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

// IsInteractive returns true if stdin is a terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	if file, ok := p.stdin.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}
