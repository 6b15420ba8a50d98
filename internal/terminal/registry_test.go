package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Validation(t *testing.T) {
	h := echo(KindOutput, "x")
	tests := []struct {
		name string
		cmds []Command
	}{
		{"empty name", []Command{{Name: " ", Handler: h}}},
		{"upper case", []Command{{Name: "Help", Handler: h}}},
		{"three words", []Command{{Name: "a b c", Handler: h}}},
		{"nil handler", []Command{{Name: "help"}}},
		{"duplicate", []Command{{Name: "help", Handler: h}, {Name: "help", Handler: h}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.cmds...)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	h := echo(KindOutput, "x")
	r := MustRegistry(
		Command{Name: "help", Handler: h},
		Command{Name: "view story", Handler: h},
		Command{Name: "view history", Handler: h},
		Command{Name: "submit line", Handler: h},
		Command{Name: "search", Handler: h},
	)

	tests := []struct {
		input    string
		want     string
		args     string
		notFound bool
	}{
		{input: "help", want: "help"},
		{input: "HELP", want: "help"},
		{input: "help search", want: "help", args: "search"},
		{input: "view story", want: "view story"},
		{input: "view history", want: "view history"},
		{input: "view", want: "view story"},
		{input: "view nonsense", want: "view story"},
		{input: "view nonsense trailing words", want: "view story", args: "trailing words"},
		{input: "submit The dragon woke", want: "submit line", args: "dragon woke"},
		{input: "submit line Once Upon A Time", want: "submit line", args: "Once Upon A Time"},
		{input: "Submit   Line   spaced    out", want: "submit line", args: "spaced out"},
		{input: "search Dragon", want: "search", args: "Dragon"},
		{input: "foo", notFound: true},
		{input: "story", notFound: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := r.Resolve(tt.input)
			if tt.notFound {
				assert.False(t, m.Found())
				assert.NotEmpty(t, m.Verb)
				return
			}
			require.True(t, m.Found())
			assert.Equal(t, tt.want, m.Command.Name)
			assert.Equal(t, tt.args, m.Args)
		})
	}
}

func TestRegistry_ResolveFirstDeclaredWins(t *testing.T) {
	h := echo(KindOutput, "x")
	r := MustRegistry(
		Command{Name: "view story", Handler: h},
		Command{Name: "view history", Handler: h},
	)
	m := r.Resolve("view")
	require.True(t, m.Found())
	assert.Equal(t, "view story", m.Command.Name)

	r = MustRegistry(
		Command{Name: "view history", Handler: h},
		Command{Name: "view story", Handler: h},
	)
	assert.Equal(t, "view history", r.Resolve("view").Command.Name)
}

func TestRegistry_ResolveEmpty(t *testing.T) {
	r := MustRegistry(Command{Name: "help", Handler: echo(KindOutput)})
	m := r.Resolve("   ")
	assert.False(t, m.Found())
	assert.Empty(t, m.Verb)
}

func TestRegistry_Complete(t *testing.T) {
	h := echo(KindOutput, "x")
	r := MustRegistry(
		Command{Name: "help", Handler: h},
		Command{Name: "view story", Handler: h},
		Command{Name: "view history", Handler: h},
		Command{Name: "status", Handler: h},
	)

	got, ok := r.Complete("view")
	assert.True(t, ok)
	assert.Equal(t, "view story", got)

	got, ok = r.Complete("ST")
	assert.True(t, ok)
	assert.Equal(t, "status", got)

	_, ok = r.Complete("zzz")
	assert.False(t, ok)

	assert.Equal(t, []string{"help", "view story", "view history", "status"}, r.Names())
}

func TestRegistry_Lookup(t *testing.T) {
	r := MustRegistry(Command{Name: "view story", Usage: "view story", Handler: echo(KindOutput)})
	c, ok := r.Lookup("View  Story")
	require.True(t, ok)
	assert.Equal(t, "view story", c.Name)
	_, ok = r.Lookup("view")
	assert.False(t, ok)
}
