package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storyai/internal/ai"
	"storyai/internal/logging"
	"storyai/internal/story"
	"storyai/internal/terminal"
	"storyai/internal/wallet"
)

const (
	historyPageSize   = 10
	shortIDLen        = 8
	defaultExportFile = "story.txt"
	timestampLayout   = "2006-01-02 15:04:05"
	maxContributors   = 10
)

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (h *handlerSet) storyLines(ctx context.Context) ([]string, error) {
	lines, err := h.env.Story.Lines(ctx)
	if err != nil {
		return nil, terminal.CollaboratorFailure(err, "Unable to load the story")
	}
	return lines, nil
}

func (h *handlerSet) viewStory(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	lines, err := h.storyLines(ctx)
	if err != nil {
		return terminal.Response{}, err
	}
	if len(lines) == 0 {
		return terminal.Response{
			Lines: []string{`The story is empty. Type "submit line <text>" to write the first line.`},
			Kind:  terminal.KindWarning,
		}, nil
	}
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		out = append(out, fmt.Sprintf("[%d] %s", i+1, line))
	}
	return terminal.Response{Lines: out, Kind: terminal.KindOutput, Animated: true}, nil
}

func (h *handlerSet) submitLine(ctx context.Context, _ *terminal.Session, args string) (terminal.Response, error) {
	text := strings.TrimSpace(args)
	if text == "" {
		return terminal.Response{}, terminal.MissingArgument("Please provide a line to submit")
	}
	author := h.env.Wallet.Address()
	if author == "" {
		return terminal.Response{}, terminal.PreconditionFailed("Please connect your wallet first")
	}

	c, err := h.env.Story.SubmitLine(ctx, author, text)
	if err != nil {
		logging.Commands("submit line by %s rejected: %v", author, err)
		return terminal.Response{}, terminal.CollaboratorFailure(err, story.Message(err))
	}
	return terminal.Response{
		Lines: []string{
			"Line submitted successfully!",
			fmt.Sprintf("%q", c.Text),
		},
		Kind: terminal.KindSuccess,
	}, nil
}

func (h *handlerSet) viewHistory(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	page, err := h.env.Story.History(ctx, 1, historyPageSize)
	if err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Unable to load story history")
	}
	if page.TotalVersions == 0 {
		return terminal.Response{Lines: []string{"No story history available"}, Kind: terminal.KindWarning}, nil
	}

	out := []string{
		fmt.Sprintf("📜 Story History (%s, newest first)", plural(page.TotalVersions, "version")),
		"",
	}
	for _, v := range page.Versions {
		out = append(out, fmt.Sprintf("#%s  %s  %s",
			shortID(v.ID), v.Timestamp.UTC().Format(timestampLayout), plural(len(v.Lines), "line")))
	}
	if page.TotalPages > 1 {
		out = append(out, "", fmt.Sprintf("Showing the latest %d of %d versions", len(page.Versions), page.TotalVersions))
	}
	out = append(out, "", `Type "rollback <version>" to restore a version.`)
	return terminal.Response{Lines: out, Kind: terminal.KindOutput}, nil
}

// findVersion resolves a full version ID or a unique prefix of one.
func (h *handlerSet) findVersion(ctx context.Context, prefix string) (story.Version, error) {
	var matches []story.Version
	for page := 1; ; page++ {
		hp, err := h.env.Story.History(ctx, page, 50)
		if err != nil {
			return story.Version{}, terminal.CollaboratorFailure(err, "Unable to load story history")
		}
		for _, v := range hp.Versions {
			if v.ID == prefix {
				return v, nil
			}
			if strings.HasPrefix(v.ID, prefix) {
				matches = append(matches, v)
			}
		}
		if page >= hp.TotalPages {
			break
		}
	}
	switch len(matches) {
	case 0:
		return story.Version{}, terminal.CollaboratorFailure(story.ErrNotFound, "Version not found")
	case 1:
		return matches[0], nil
	default:
		return story.Version{}, terminal.PreconditionFailed("Version %q is ambiguous, use more characters", prefix)
	}
}

func (h *handlerSet) rollback(ctx context.Context, _ *terminal.Session, args string) (terminal.Response, error) {
	id := strings.TrimPrefix(strings.TrimSpace(args), "#")
	if id == "" {
		return terminal.Response{}, terminal.MissingArgument("Please provide a version ID")
	}
	target, err := h.findVersion(ctx, id)
	if err != nil {
		return terminal.Response{}, err
	}
	v, err := h.env.Story.Rollback(ctx, target.ID)
	if err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, story.Message(err))
	}
	logging.Commands("rolled back to %s", target.ID)
	return terminal.Response{
		Lines: []string{
			fmt.Sprintf("Story rolled back to version #%s", shortID(target.ID)),
			fmt.Sprintf("New version #%s holds %s", shortID(v.ID), plural(len(v.Lines), "line")),
		},
		Kind: terminal.KindSuccess,
	}, nil
}

func (h *handlerSet) suggestLine(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	if h.env.Generator == nil {
		return terminal.Response{}, terminal.PreconditionFailed("AI suggestions are not configured")
	}
	lines, err := h.storyLines(ctx)
	if err != nil {
		return terminal.Response{}, err
	}
	line, err := h.env.Generator.GenerateLine(ctx, lines)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return terminal.Response{}, terminal.PreconditionFailed("AI suggestions are not configured")
		}
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Failed to generate a suggestion")
	}
	return terminal.Response{
		Lines: []string{
			"🤖 Suggested next line:",
			"",
			"  " + line,
			"",
			`Type "submit line <text>" to add it to the story.`,
		},
		Kind:     terminal.KindInfo,
		Animated: true,
	}, nil
}

func (h *handlerSet) exportStory(ctx context.Context, _ *terminal.Session, args string) (terminal.Response, error) {
	name := filepath.Base(strings.TrimSpace(args))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = defaultExportFile
	}
	lines, err := h.storyLines(ctx)
	if err != nil {
		return terminal.Response{}, err
	}

	if err := os.MkdirAll(h.env.ExportDir, 0755); err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Failed to export story")
	}
	path := filepath.Join(h.env.ExportDir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Failed to export story")
	}
	logging.Commands("exported %d lines to %s", len(lines), path)
	return terminal.Response{
		Lines: []string{"Story exported successfully to " + name},
		Kind:  terminal.KindSuccess,
	}, nil
}

func (h *handlerSet) search(ctx context.Context, _ *terminal.Session, args string) (terminal.Response, error) {
	term := strings.ToLower(strings.TrimSpace(args))
	if term == "" {
		return terminal.Response{}, terminal.MissingArgument("Please provide a search term")
	}
	lines, err := h.storyLines(ctx)
	if err != nil {
		return terminal.Response{}, err
	}

	var found []string
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), term) {
			found = append(found, fmt.Sprintf("[%d] %s", i+1, line))
		}
	}
	if len(found) == 0 {
		return terminal.Response{Lines: []string{"No matches found"}, Kind: terminal.KindWarning}, nil
	}
	out := append([]string{fmt.Sprintf("Found %d matches:", len(found)), ""}, found...)
	return terminal.Response{Lines: out, Kind: terminal.KindOutput}, nil
}

func (h *handlerSet) contributors(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	list, err := h.env.Story.Contributors(ctx)
	if err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Unable to load contributors")
	}
	if len(list) == 0 {
		return terminal.Response{Lines: []string{"No contributors yet"}, Kind: terminal.KindWarning}, nil
	}

	out := []string{"Top Contributors:", "---------------"}
	for i, c := range list {
		if i == maxContributors {
			break
		}
		out = append(out, fmt.Sprintf("%d. %s - %s", i+1, wallet.Shorten(c.Author), plural(c.Lines, "line")))
	}
	out = append(out, "", fmt.Sprintf("Total Contributors: %d", len(list)))
	return terminal.Response{Lines: out, Kind: terminal.KindOutput}, nil
}
