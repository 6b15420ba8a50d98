package terminal

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Response is what a handler hands back to the dispatcher. Every entry of
// Lines becomes one scrollback line of the given Kind. Lines may be empty.
type Response struct {
	Lines    []string
	Kind     Kind
	Animated bool
}

// Handler runs one command. args is the argument text with the original
// casing, tokens rejoined by single spaces.
type Handler func(ctx context.Context, s *Session, args string) (Response, error)

// Command binds a name to its handler. Names are lower-case and hold one
// token ("status") or two ("view story").
type Command struct {
	Name        string
	Usage       string
	Description string
	Group       string
	Handler     Handler

	tokens []string
}

// Registry is the fixed, ordered command set of a session. Declaration
// order is significant: it breaks ties during resolution and completion.
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

// NewRegistry validates and freezes the command set.
func NewRegistry(commands ...Command) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Command, len(commands))}
	for i := range commands {
		cmd := commands[i]
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return nil, fmt.Errorf("command %d: empty name", i)
		}
		if name != strings.ToLower(name) {
			return nil, fmt.Errorf("command %q: name must be lower-case", name)
		}
		tokens := strings.Fields(name)
		if len(tokens) > 2 {
			return nil, fmt.Errorf("command %q: at most two words allowed", name)
		}
		if cmd.Handler == nil {
			return nil, fmt.Errorf("command %q: nil handler", name)
		}
		name = strings.Join(tokens, " ")
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("command %q registered twice", name)
		}
		cmd.Name = name
		cmd.tokens = tokens
		r.commands = append(r.commands, &cmd)
		r.byName[name] = &cmd
	}
	return r, nil
}

// MustRegistry is NewRegistry for static command tables.
func MustRegistry(commands ...Command) *Registry {
	r, err := NewRegistry(commands...)
	if err != nil {
		panic(err)
	}
	return r
}

// Commands returns the commands in declaration order.
func (r *Registry) Commands() []Command {
	out := make([]Command, len(r.commands))
	for i, c := range r.commands {
		out[i] = *c
	}
	return out
}

// Names returns the command names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = c.Name
	}
	return out
}

// Lookup finds a command by its exact name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.byName[strings.Join(strings.Fields(strings.ToLower(name)), " ")]
	if !ok {
		return Command{}, false
	}
	return *c, true
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Match is the outcome of resolving one input line: either NotFound (Command
// is nil) or a command plus the argument text that follows it.
type Match struct {
	Command *Command
	Verb    string
	Args    string
}

// Found reports whether a command matched.
func (m Match) Found() bool {
	return m.Command != nil
}

// Resolve maps a line of input onto a command.
//
// Matching is case-insensitive. A command whose every word equals the
// leading input words wins first (declaration order breaks ties). Failing
// that, the first declared command whose first word equals the verb is
// used, so "view" alone reaches "view story". Either way Args is the input
// after as many words as the command's name has, in their original casing.
func (r *Registry) Resolve(input string) Match {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Match{}
	}
	lower := make([]string, len(fields))
	for i, f := range fields {
		lower[i] = strings.ToLower(f)
	}
	verb := lower[0]

	for _, c := range r.commands {
		if len(c.tokens) > len(lower) {
			continue
		}
		if slices.Equal(c.tokens, lower[:len(c.tokens)]) {
			return Match{Command: c, Verb: verb, Args: strings.Join(fields[len(c.tokens):], " ")}
		}
	}
	for _, c := range r.commands {
		if c.tokens[0] == verb {
			return Match{Command: c, Verb: verb, Args: strings.Join(fields[min(len(c.tokens), len(fields)):], " ")}
		}
	}
	return Match{Verb: verb}
}

// Complete returns the first command name (in declaration order) that
// starts with the lower-cased buffer.
func (r *Registry) Complete(buffer string) (string, bool) {
	prefix := strings.ToLower(buffer)
	for _, c := range r.commands {
		if strings.HasPrefix(c.Name, prefix) {
			return c.Name, true
		}
	}
	return "", false
}
