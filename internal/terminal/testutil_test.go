package terminal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echo returns a handler that answers with fixed lines.
func echo(kind Kind, lines ...string) Handler {
	return func(context.Context, *Session, string) (Response, error) {
		return Response{Lines: lines, Kind: kind}, nil
	}
}

// recordArgs returns a handler that stores the argument text it was given.
func recordArgs(dst *string) Handler {
	return func(_ context.Context, _ *Session, args string) (Response, error) {
		*dst = args
		return Response{Lines: []string{"ok"}, Kind: KindOutput}, nil
	}
}

func failing(err error) Handler {
	return func(context.Context, *Session, string) (Response, error) {
		return Response{}, err
	}
}

func searchHandler(_ context.Context, _ *Session, args string) (Response, error) {
	if args == "" {
		return Response{}, MissingArgument("Please provide a search term")
	}
	return Response{Lines: []string{"Found 0 matches"}, Kind: KindOutput}, nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		Command{Name: "help", Handler: echo(KindOutput, "h1")},
		Command{Name: "view story", Handler: echo(KindOutput, "h2-a", "h2-b")},
		Command{Name: "status", Handler: echo(KindSuccess, "h3")},
		Command{Name: "search", Handler: searchHandler},
		Command{Name: "clear", Handler: func(_ context.Context, s *Session, _ string) (Response, error) {
			s.ClearScrollback()
			return Response{Kind: KindOutput}, nil
		}},
		Command{Name: "boom", Handler: failing(errors.New("backend exploded"))},
	)
	require.NoError(t, err)
	return r
}

// newInteractive returns a started session with no boot script and no
// artificial delay.
func newInteractive(t *testing.T, r *Registry) *Session {
	t.Helper()
	s, err := NewSession(Options{Registry: r})
	require.NoError(t, err)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	require.True(t, s.Interactive())
	return s
}

func contents(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content
	}
	return out
}

func kinds(lines []Line) []Kind {
	out := make([]Kind, len(lines))
	for i, l := range lines {
		out[i] = l.Kind
	}
	return out
}

func waitInteractive(t *testing.T, s *Session) {
	t.Helper()
	require.Eventually(t, s.Interactive, 2*time.Second, 5*time.Millisecond)
}
