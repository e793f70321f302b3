// Package prompt mediates every question pinrun asks the operator.
//
// The snapshot manager decides what to ask and what a decline means; a
// Controller only moves the question to the operator and the answer back.
// Interactive reads answers from a terminal, NonInteractive answers every
// question with a documented default, and Scripted replays canned answers
// in tests.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Category identifies a recurring question.
type Category string

const (
	// CategoryVersionManaging asks whether version managing is enabled for the context.
	CategoryVersionManaging Category = "vm"

	// CategoryCloning asks whether to run from a snapshot of the latest commit.
	CategoryCloning Category = "cloning"

	// CategoryUntracked asks whether to add untracked files before snapshotting.
	CategoryUntracked Category = "untracked"

	// CategoryCommit asks whether to create an automatic commit of all changes.
	CategoryCommit Category = "commit"

	// CategoryTrackFiles asks which untracked files to stage.
	CategoryTrackFiles Category = "track-files"
)

// Yes and No are the tokens accepted by every yes/no question.
const (
	Yes = "y"
	No  = "n"
)

// YesNo is the token set of a yes/no question.
var YesNo = []string{Yes, No}

// defaults maps each category to the answer used without an operator.
var defaults = map[Category]string{
	CategoryVersionManaging: Yes,
	CategoryCloning:         Yes,
	CategoryUntracked:       No,
	CategoryCommit:          No,
	CategoryTrackFiles:      "",
}

// Default returns the documented non-interactive answer for category.
func Default(category Category) string {
	return defaults[category]
}

// ErrNoOperator is returned when an interactive prompt cannot obtain input,
// for example because stdin reached EOF.
var ErrNoOperator = errors.New("no operator input available")

// Question is a single choice put to the operator.
type Question struct {
	Category Category

	// Text is the question itself.
	Text string

	// Details are extra lines shown before the question (e.g. file lists).
	Details []string

	// Options describe what each token means, in display order.
	Options []Option

	// Tokens are the accepted answers.
	Tokens []string
}

// Option describes one accepted token.
type Option struct {
	Token       string
	Description string
}

// Answer is the token selected for a question.
type Answer struct {
	Token string

	// Defaulted is true when no operator was asked and the category's
	// documented default was applied.
	Defaulted bool
}

// Is reports whether the answer selected token.
func (a Answer) Is(token string) bool {
	return a.Token == token
}

// Controller carries questions to the operator.
type Controller interface {
	// PromptChoice asks q and returns one of q.Tokens.
	PromptChoice(ctx context.Context, q Question) (Answer, error)

	// PromptLine asks for free-form input. defaulted is true when no operator was asked.
	PromptLine(ctx context.Context, category Category, text string) (line string, defaulted bool, err error)

	// Warn surfaces a non-fatal warning to the operator.
	Warn(msg string)

	// Interactive reports whether an operator answers the questions.
	Interactive() bool
}

// validToken normalizes input and reports whether it is one of tokens.
func validToken(input string, tokens []string) (string, bool) {
	token := strings.ToLower(strings.TrimSpace(input))
	return token, slices.Contains(tokens, token)
}

// tokenHint renders tokens as "(y/n)".
func tokenHint(tokens []string) string {
	return fmt.Sprintf("(%s)", strings.Join(tokens, "/"))
}
