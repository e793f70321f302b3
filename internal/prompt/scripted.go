package prompt

import (
	"context"
	"fmt"
)

// Scripted replays canned answers per category and records every question
// and warning. Invalid scripted tokens are skipped the way Interactive
// re-prompts on invalid input. It is intended for tests.
type Scripted struct {
	answers map[Category][]string
	lines   map[Category][]string

	// NonInteractive makes every question fall back to the category default.
	NonInteractive bool

	// Questions records every question asked, in order.
	Questions []Question

	// Invalid counts scripted answers rejected as invalid tokens.
	Invalid int

	// Warnings records every warning surfaced, in order.
	Warnings []string
}

// NewScripted creates an empty Scripted controller.
func NewScripted() *Scripted {
	return &Scripted{
		answers: make(map[Category][]string),
		lines:   make(map[Category][]string),
	}
}

// Answer queues answers for category.
func (s *Scripted) Answer(category Category, tokens ...string) *Scripted {
	s.answers[category] = append(s.answers[category], tokens...)
	return s
}

// Line queues free-form lines for category.
func (s *Scripted) Line(category Category, lines ...string) *Scripted {
	s.lines[category] = append(s.lines[category], lines...)
	return s
}

// Interactive reports whether answers come from the script.
func (s *Scripted) Interactive() bool { return !s.NonInteractive }

// PromptChoice pops the next valid scripted answer for q.Category.
func (s *Scripted) PromptChoice(ctx context.Context, q Question) (Answer, error) {
	if s.NonInteractive {
		return NewNonInteractive(nil).PromptChoice(ctx, q)
	}
	s.Questions = append(s.Questions, q)

	for {
		queue := s.answers[q.Category]
		if len(queue) == 0 {
			return Answer{}, fmt.Errorf("prompt %s: %w", q.Category, ErrNoOperator)
		}
		s.answers[q.Category] = queue[1:]

		if token, ok := validToken(queue[0], q.Tokens); ok {
			return Answer{Token: token}, nil
		}
		s.Invalid++
	}
}

// PromptLine pops the next scripted line for category.
func (s *Scripted) PromptLine(ctx context.Context, category Category, text string) (string, bool, error) {
	if s.NonInteractive {
		return Default(category), true, nil
	}
	s.Questions = append(s.Questions, Question{Category: category, Text: text})

	queue := s.lines[category]
	if len(queue) == 0 {
		return "", false, fmt.Errorf("prompt %s: %w", category, ErrNoOperator)
	}
	s.lines[category] = queue[1:]
	return queue[0], false, nil
}

// Warn records msg.
func (s *Scripted) Warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Asked returns how many questions of category were asked.
func (s *Scripted) Asked(category Category) int {
	n := 0
	for _, q := range s.Questions {
		if q.Category == category {
			n++
		}
	}
	return n
}
