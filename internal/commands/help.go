package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"storyai/internal/terminal"
)

// helpWrap is the word-wrap width for detailed help.
const helpWrap = 76

var helpGroups = []Group{GroupStory, GroupSystem, GroupUser, GroupAdvanced}

func (h *handlerSet) help(ctx context.Context, s *terminal.Session, args string) (terminal.Response, error) {
	topic := strings.ToLower(strings.TrimSpace(args))
	if topic == "" {
		return terminal.Response{Lines: renderListing(s.Registry()), Kind: terminal.KindOutput, Animated: true}, nil
	}

	cmd, ok := s.Registry().Lookup(topic)
	if !ok {
		return terminal.Response{}, &terminal.CommandError{
			Kind:    terminal.ErrUnknownCommand,
			Message: fmt.Sprintf("No help available for '%s'", topic),
		}
	}
	lines, err := renderDetails(cmd, h.env.HelpStyle)
	if err != nil {
		return terminal.Response{}, &terminal.CommandError{Kind: terminal.ErrInternalHandler, Message: "Failed to render help", Err: err}
	}
	return terminal.Response{Lines: lines, Kind: terminal.KindInfo}, nil
}

// renderListing lists the registered commands grouped by section.
func renderListing(reg *terminal.Registry) []string {
	lines := []string{"🌟 Available Commands:", ""}
	for _, g := range helpGroups {
		var section []string
		for _, cmd := range reg.Commands() {
			if cmd.Group != g.String() {
				continue
			}
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			section = append(section, fmt.Sprintf("  %-24s- %s", usage, cmd.Description))
		}
		if len(section) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s Commands:", g.icon(), g))
		lines = append(lines, section...)
		lines = append(lines, "")
	}
	return append(lines,
		"💡 Tips:",
		"  - Use arrow keys to navigate command history",
		"  - Press Tab for command completion",
		`  - Type "help <command>" for detailed help`,
	)
}

// detailsMarkdown builds the markdown page for one command.
func detailsMarkdown(cmd terminal.Command) string {
	var sb strings.Builder
	sb.WriteString("# " + cmd.Name + "\n\n")
	sb.WriteString(cmd.Description + ".\n\n")
	usage := cmd.Usage
	if usage == "" {
		usage = cmd.Name
	}
	sb.WriteString("**Usage:** `" + usage + "`\n\n")

	info, ok := FindInfo(cmd.Name)
	if !ok {
		return sb.String()
	}
	if info.Details != "" {
		sb.WriteString(info.Details + "\n\n")
	}
	if len(info.Examples) > 0 {
		sb.WriteString("## Examples\n\n```\n")
		for _, ex := range info.Examples {
			sb.WriteString(ex + "\n")
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}

func renderDetails(cmd terminal.Command, style string) ([]string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(helpWrap),
	)
	if err != nil {
		return nil, err
	}
	out, err := r.Render(detailsMarkdown(cmd))
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		lines = append(lines, strings.TrimRight(line, " "))
	}
	// Trim the blank margins glamour adds around the document.
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
