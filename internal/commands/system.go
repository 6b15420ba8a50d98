package commands

import (
	"context"
	"runtime"
	"strings"

	"storyai/internal/terminal"
)

func (h *handlerSet) clear(_ context.Context, s *terminal.Session, _ string) (terminal.Response, error) {
	s.ClearScrollback()
	return terminal.Response{}, nil
}

func (h *handlerSet) theme(_ context.Context, _ *terminal.Session, args string) (terminal.Response, error) {
	theme := strings.ToLower(strings.TrimSpace(args))
	if theme == "" {
		return terminal.Response{}, terminal.MissingArgument("%s", ErrInvalidTheme.Error())
	}
	if err := h.env.Prefs.SetTheme(theme); err != nil {
		return terminal.Response{}, terminal.PreconditionFailed("%s", err.Error())
	}
	return terminal.Response{
		Lines: []string{"Theme switched to " + theme + " mode"},
		Kind:  terminal.KindSuccess,
	}, nil
}

func (h *handlerSet) banner() []string {
	title := "StoryAI Terminal v" + h.env.Build.Version
	return []string{title, strings.Repeat("-", len(title))}
}

func (h *handlerSet) version(_ context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	out := append(h.banner(),
		"Build: "+h.env.Build.BuildDate,
		"Runtime: Go "+strings.TrimPrefix(runtime.Version(), "go"),
		"Protocol: v2.1",
		"Blockchain: Solana",
	)
	return terminal.Response{Lines: out, Kind: terminal.KindOutput}, nil
}

func (h *handlerSet) about(_ context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	out := append(h.banner(),
		"A collaborative storytelling platform powered by:",
		"- Quantum Storytelling Engine",
		"- Web3 Integration",
		"- Advanced AI Processing",
		"",
		"Created with ♥ by the StoryAI Team",
		strings.Repeat("-", 22),
	)
	return terminal.Response{Lines: out, Kind: terminal.KindOutput, Animated: true}, nil
}

func (h *handlerSet) time(_ context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	return terminal.Response{
		Lines: []string{"Current System Time: " + h.env.Now().Format("1/2/2006, 3:04:05 PM")},
		Kind:  terminal.KindOutput,
	}, nil
}
