package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	reply    string
	err      error
	gotModel string
	gotText  string
	deadline bool
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	_, f.deadline = ctx.Deadline()
	for _, c := range contents {
		for _, p := range c.Parts {
			f.gotText += p.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGenerateLine(t *testing.T) {
	f := &fakeModels{reply: "Here you go:\n\n\"The moon blinked twice.\"\n"}
	g := newGenerator(f, "", 0)

	line, err := g.GenerateLine(context.Background(), []string{"Once upon a time...", "A door opened."})
	require.NoError(t, err)
	assert.Equal(t, "The moon blinked twice.", line)
	assert.Equal(t, DefaultModel, f.gotModel)
	assert.True(t, f.deadline, "calls are bounded by a timeout")
	assert.True(t, strings.Contains(f.gotText, "A door opened."))
}

func TestGenerateLine_Errors(t *testing.T) {
	g := newGenerator(&fakeModels{err: errors.New("quota")}, "custom", time.Second)
	_, err := g.GenerateLine(context.Background(), nil)
	assert.ErrorContains(t, err, "quota")

	g = newGenerator(&fakeModels{reply: "  \n "}, "custom", time.Second)
	_, err = g.GenerateLine(context.Background(), nil)
	assert.ErrorContains(t, err, "empty response")
}

func TestNewGenAIGenerator_RequiresKey(t *testing.T) {
	_, err := NewGenAIGenerator(context.Background(), "", "", 0)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "b", lastLine("a\nb"))
	assert.Equal(t, "a", lastLine("a\n\n"))
	assert.Equal(t, "", lastLine(""))
}
