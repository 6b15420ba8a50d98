package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storyai/internal/story"
	"storyai/internal/terminal"
	"storyai/internal/wallet"
)

const (
	richAddr = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	poorAddr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

var fixedNow = time.Date(2024, 3, 14, 15, 4, 5, 0, time.UTC)

type fakeGenerator struct {
	line string
	err  error
	got  []string
}

func (g *fakeGenerator) GenerateLine(_ context.Context, lines []string) (string, error) {
	g.got = lines
	return g.line, g.err
}

type failingOracle struct{}

func (failingOracle) Balance(context.Context, string) (float64, error) {
	return 0, errors.New("rpc unreachable")
}

// newEnv returns an env over a seeded memory store where richAddr holds the
// default balance and poorAddr holds almost nothing.
func newEnv(t *testing.T) *Env {
	t.Helper()
	oracle := wallet.StaticOracle{Default: 150000, Overrides: map[string]float64{poorAddr: 5}}
	policy := story.DefaultPolicy()
	policy.Balances = oracle
	store := story.NewMemoryStore(policy)
	store.SetClock(func() time.Time { return fixedNow })
	t.Cleanup(func() { _ = store.Close() })
	return &Env{
		Story:     store,
		Wallet:    wallet.New(),
		Balances:  oracle,
		ExportDir: t.TempDir(),
		Now:       func() time.Time { return fixedNow },
	}
}

func newSession(t *testing.T, env *Env) *terminal.Session {
	t.Helper()
	reg, err := NewRegistry(env)
	require.NoError(t, err)
	s, err := terminal.NewSession(terminal.Options{Registry: reg})
	require.NoError(t, err)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

// run submits input and returns the lines it produced after the echo.
func run(t *testing.T, s *terminal.Session, input string) ([]terminal.Line, error) {
	t.Helper()
	n := s.Len()
	err := s.Submit(context.Background(), input)
	lines, _ := s.Since(n)
	require.NotEmpty(t, lines, "input echo missing")
	require.Equal(t, terminal.KindInput, lines[0].Kind)
	return lines[1:], err
}

func contents(lines []terminal.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content
	}
	return out
}

// output runs input, requires success and returns the produced text.
func output(t *testing.T, s *terminal.Session, input string) ([]string, terminal.Kind) {
	t.Helper()
	lines, err := run(t, s, input)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	return contents(lines), lines[0].Kind
}

// failure runs input, requires a failure of the given kind and returns the
// rendered error line.
func failure(t *testing.T, s *terminal.Session, input string, kind error) string {
	t.Helper()
	lines, err := run(t, s, input)
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	require.Len(t, lines, 1)
	require.Equal(t, terminal.KindError, lines[0].Kind)
	return lines[0].Content
}
