package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	questionColor = color.New(color.FgGreen, color.Bold)
	tokenColor    = color.New(color.FgGreen)
	detailColor   = color.New(color.FgRed)
	noticeColor   = color.New(color.FgBlue)
	warningColor  = color.New(color.FgYellow, color.Bold)
)

// Interactive asks an operator through a line-oriented terminal.
type Interactive struct {
	in  *bufio.Reader
	out io.Writer

	// pending carries the result of a read still in flight after a
	// cancelled prompt, so the next prompt receives that line.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewInteractive creates an Interactive controller reading from in and writing to out.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewReader(in), out: out}
}

// Interactive always reports true.
func (c *Interactive) Interactive() bool { return true }

// PromptChoice shows q and reads answers until one of q.Tokens is entered.
// Invalid input is reported and the question is asked again.
func (c *Interactive) PromptChoice(ctx context.Context, q Question) (Answer, error) {
	for _, line := range q.Details {
		_, _ = detailColor.Fprintln(c.out, line)
	}
	_, _ = questionColor.Fprintf(c.out, "%s %s\n", q.Text, tokenHint(q.Tokens))
	for _, opt := range q.Options {
		_, _ = tokenColor.Fprintf(c.out, "%s", opt.Token)
		_, _ = fmt.Fprintf(c.out, ": %s\n", opt.Description)
	}

	for {
		_, _ = questionColor.Fprintf(c.out, "[%s] Please enter your choice %s: ", q.Category, tokenHint(q.Tokens))

		input, err := c.readLine(ctx)
		if err != nil {
			return Answer{}, fmt.Errorf("prompt %s: %w", q.Category, err)
		}

		if token, ok := validToken(input, q.Tokens); ok {
			return Answer{Token: token}, nil
		}
		_, _ = noticeColor.Fprintf(c.out, "Invalid choice %q. Please try again. %s\n", strings.TrimSpace(input), tokenHint(q.Tokens))
	}
}

// PromptLine shows text and returns the next input line.
func (c *Interactive) PromptLine(ctx context.Context, category Category, text string) (string, bool, error) {
	_, _ = questionColor.Fprintln(c.out, text)

	line, err := c.readLine(ctx)
	if err != nil {
		return "", false, fmt.Errorf("prompt %s: %w", category, err)
	}
	return strings.TrimSpace(line), false, nil
}

// Warn prints a highlighted warning.
func (c *Interactive) Warn(msg string) {
	_, _ = warningColor.Fprintf(c.out, "Warning: %s\n", msg)
}

// readLine waits for one line of input or for ctx to be done. A line without
// a trailing newline at EOF is still returned; EOF with no input yields
// ErrNoOperator.
func (c *Interactive) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}

	var res lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-c.pending:
		c.pending = nil
	}

	if res.err != nil {
		if errors.Is(res.err, io.EOF) && res.line != "" {
			return res.line, nil
		}
		if errors.Is(res.err, io.EOF) {
			return "", ErrNoOperator
		}
		return "", res.err
	}
	return res.line, nil
}

// NonInteractive answers every question with its category's default.
type NonInteractive struct {
	out io.Writer
}

// NewNonInteractive creates a NonInteractive controller printing warnings to out.
func NewNonInteractive(out io.Writer) *NonInteractive {
	return &NonInteractive{out: out}
}

// Interactive always reports false.
func (c *NonInteractive) Interactive() bool { return false }

// PromptChoice returns the documented default without blocking.
func (c *NonInteractive) PromptChoice(ctx context.Context, q Question) (Answer, error) {
	token := Default(q.Category)
	if token == "" {
		return Answer{}, fmt.Errorf("no default answer for question category %q", q.Category)
	}
	return Answer{Token: token, Defaulted: true}, nil
}

// PromptLine returns an empty, defaulted line.
func (c *NonInteractive) PromptLine(ctx context.Context, category Category, text string) (string, bool, error) {
	return Default(category), true, nil
}

// Warn prints a highlighted warning.
func (c *NonInteractive) Warn(msg string) {
	_, _ = warningColor.Fprintf(c.out, "Warning: %s\n", msg)
}

// Mode selects how a Controller is built.
type Mode string

const (
	// ModeAuto is interactive when stdin is a terminal.
	ModeAuto Mode = "auto"

	// ModeAlways is always interactive.
	ModeAlways Mode = "always"

	// ModeNever is never interactive.
	ModeNever Mode = "never"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeAlways, ModeNever:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("invalid interactive mode %q (must be auto, always or never)", s)
	}
}

// New builds the Controller for mode. In ModeAuto, in is considered a
// terminal when it is an *os.File attached to one.
func New(mode Mode, in io.Reader, out io.Writer) Controller {
	switch mode {
	case ModeAlways:
		return NewInteractive(in, out)
	case ModeNever:
		return NewNonInteractive(out)
	}

	if f, ok := in.(*os.File); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return NewInteractive(in, out)
		}
	}
	return NewNonInteractive(out)
}
