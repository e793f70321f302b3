package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

var cloningQuestion = Question{
	Category: CategoryCloning,
	Text:     "Would you like to execute code from a snapshot of the latest commit?",
	Options: []Option{
		{Token: Yes, Description: "Yes (recommended)"},
		{Token: No, Description: "No, run from the main repository"},
	},
	Tokens: YesNo,
}

func TestInteractive_PromptChoice(t *testing.T) {
	t.Run("valid answer", func(t *testing.T) {
		var out bytes.Buffer
		c := NewInteractive(strings.NewReader("y\n"), &out)

		ans, err := c.PromptChoice(context.Background(), cloningQuestion)
		require.NoError(t, err)
		assert.Equal(t, Answer{Token: Yes}, ans)
		assert.Contains(t, out.String(), "latest commit? (y/n)")
		assert.Contains(t, out.String(), "y: Yes (recommended)")
	})

	t.Run("re-prompts on invalid input", func(t *testing.T) {
		var out bytes.Buffer
		c := NewInteractive(strings.NewReader("maybe\n\n N \n"), &out)

		ans, err := c.PromptChoice(context.Background(), cloningQuestion)
		require.NoError(t, err)
		assert.True(t, ans.Is(No))
		assert.False(t, ans.Defaulted)
		assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice"))
	})

	t.Run("last line without newline", func(t *testing.T) {
		c := NewInteractive(strings.NewReader("n"), &bytes.Buffer{})

		ans, err := c.PromptChoice(context.Background(), cloningQuestion)
		require.NoError(t, err)
		assert.True(t, ans.Is(No))
	})

	t.Run("EOF aborts", func(t *testing.T) {
		c := NewInteractive(strings.NewReader("bogus\n"), &bytes.Buffer{})

		_, err := c.PromptChoice(context.Background(), cloningQuestion)
		assert.True(t, errors.Is(err, ErrNoOperator))
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := NewInteractive(strings.NewReader("y\n"), &bytes.Buffer{})

		_, err := c.PromptChoice(ctx, cloningQuestion)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInteractive_CancelWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	c := NewInteractive(pr, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.PromptChoice(ctx, cloningQuestion)
		errc <- err
	}()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("prompt did not return after cancellation")
	}

	// The line that was being waited for goes to the next prompt.
	go func() {
		_, _ = pw.Write([]byte("n\n"))
	}()
	ans, err := c.PromptChoice(context.Background(), cloningQuestion)
	require.NoError(t, err)
	assert.True(t, ans.Is(No))
}

func TestInteractive_PromptLine(t *testing.T) {
	c := NewInteractive(strings.NewReader("  a.py, b.py  \n"), &bytes.Buffer{})

	line, defaulted, err := c.PromptLine(context.Background(), CategoryTrackFiles, "Select files")
	require.NoError(t, err)
	assert.False(t, defaulted)
	assert.Equal(t, "a.py, b.py", line)
}

func TestNonInteractive(t *testing.T) {
	var out bytes.Buffer
	c := NewNonInteractive(&out)
	ctx := context.Background()

	tests := []struct {
		category Category
		want     string
	}{
		{CategoryVersionManaging, Yes},
		{CategoryCloning, Yes},
		{CategoryUntracked, No},
		{CategoryCommit, No},
	}
	for _, tt := range tests {
		ans, err := c.PromptChoice(ctx, Question{Category: tt.category, Tokens: YesNo})
		require.NoError(t, err)
		assert.Equal(t, Answer{Token: tt.want, Defaulted: true}, ans, "category %s", tt.category)
	}

	line, defaulted, err := c.PromptLine(ctx, CategoryTrackFiles, "Select files")
	require.NoError(t, err)
	assert.True(t, defaulted)
	assert.Empty(t, line)

	assert.Empty(t, out.String(), "defaults must not print prompts")

	c.Warn("uncommitted changes will be ignored")
	assert.Equal(t, "Warning: uncommitted changes will be ignored\n", out.String())
}

func TestScripted(t *testing.T) {
	s := NewScripted().Answer(CategoryCommit, "x", "y")

	ans, err := s.PromptChoice(context.Background(), Question{Category: CategoryCommit, Tokens: YesNo})
	require.NoError(t, err)
	assert.True(t, ans.Is(Yes))
	assert.Equal(t, 1, s.Invalid)
	assert.Equal(t, 1, s.Asked(CategoryCommit))

	_, err = s.PromptChoice(context.Background(), Question{Category: CategoryCommit, Tokens: YesNo})
	assert.ErrorIs(t, err, ErrNoOperator)
}

func TestParseModeAndNew(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "AUTO": ModeAuto, "always": ModeAlways, "never": ModeNever} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)

	assert.True(t, New(ModeAlways, strings.NewReader(""), &bytes.Buffer{}).Interactive())
	assert.False(t, New(ModeNever, strings.NewReader(""), &bytes.Buffer{}).Interactive())
	assert.False(t, New(ModeAuto, strings.NewReader(""), &bytes.Buffer{}).Interactive(), "non-file input is never a terminal")
}
