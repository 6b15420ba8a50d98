package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyai/internal/ai"
	"storyai/internal/story"
	"storyai/internal/terminal"
	"storyai/internal/wallet"
)

func TestNewRegistry_FollowsCatalogOrder(t *testing.T) {
	reg, err := NewRegistry(newEnv(t))
	require.NoError(t, err)

	var want []string
	for _, info := range Catalog {
		want = append(want, info.Name)
	}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Errorf("registry order mismatch (-want +got):\n%s", diff)
	}

	cmd, ok := reg.Lookup("submit line")
	require.True(t, ok)
	assert.Equal(t, "Story", cmd.Group)
	assert.Equal(t, "submit line <text>", cmd.Usage)
}

func TestNewRegistry_RequiresCollaborators(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)

	_, err = NewRegistry(&Env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "story store is required")
	assert.Contains(t, err.Error(), "balance oracle is required")

	env := newEnv(t)
	env.Prefs = nil
	_, err = NewRegistry(env)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, env.Prefs.Theme())
	assert.Equal(t, "mainnet-beta", env.Network)
}

func TestVerbResolution_TwoWordCommands(t *testing.T) {
	s := newSession(t, newEnv(t))

	// "view" alone resolves to the first declared "view ..." command.
	out, _ := output(t, s, "view")
	assert.Equal(t, "[1] Once upon a time in a digital realm...", out[0])

	out, _ = output(t, s, "view history")
	assert.Contains(t, out[0], "Story History")
}

// =============================================================================
// HELP
// =============================================================================

func TestHelp_Listing(t *testing.T) {
	s := newSession(t, newEnv(t))
	lines, err := run(t, s, "help")
	require.NoError(t, err)
	out := contents(lines)

	assert.Equal(t, "🌟 Available Commands:", out[0])
	assert.True(t, lines[0].Animated)
	assert.Contains(t, out, "📖 Story Commands:")
	assert.Contains(t, out, "🔧 System Commands:")
	assert.Contains(t, out, "👤 User Commands:")
	assert.Contains(t, out, "⚙️ Advanced Commands:")
	assert.Contains(t, out, fmt.Sprintf("  %-24s- %s", "view story", "Display the current story"))
	assert.Contains(t, out, fmt.Sprintf("  %-24s- %s", "submit line <text>", "Submit a new line to the story"))
	assert.Equal(t, `  - Type "help <command>" for detailed help`, out[len(out)-1])

	storyAt := indexOf(out, "📖 Story Commands:")
	systemAt := indexOf(out, "🔧 System Commands:")
	userAt := indexOf(out, "👤 User Commands:")
	advancedAt := indexOf(out, "⚙️ Advanced Commands:")
	assert.True(t, storyAt < systemAt && systemAt < userAt && userAt < advancedAt, "groups out of order")
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func TestHelp_CommandDetails(t *testing.T) {
	s := newSession(t, newEnv(t))
	out, kind := output(t, s, "help submit line")
	assert.Equal(t, terminal.KindInfo, kind)

	text := strings.Join(out, "\n")
	assert.Contains(t, text, "submit line <text>")
	assert.Contains(t, text, "Appends one line")
	assert.Contains(t, text, "Examples")
	assert.NotEmpty(t, strings.TrimSpace(out[0]))
}

func TestHelp_UnknownTopic(t *testing.T) {
	s := newSession(t, newEnv(t))
	line := failure(t, s, "help dance", terminal.ErrUnknownCommand)
	assert.Equal(t, "Error: No help available for 'dance'", line)
}

// =============================================================================
// STORY
// =============================================================================

func TestViewStory(t *testing.T) {
	s := newSession(t, newEnv(t))
	out, kind := output(t, s, "view story")
	assert.Equal(t, terminal.KindOutput, kind)
	assert.Equal(t, []string{
		"[1] Once upon a time in a digital realm...",
		"[2] A group of creative minds gathered to tell a story...",
		"[3] Each contributing their unique perspective...",
	}, out)
}

func TestSubmitLine(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	line := failure(t, s, "submit line", terminal.ErrMissingArgument)
	assert.Equal(t, "Error: Please provide a line to submit", line)

	line = failure(t, s, "submit line The robots sang.", terminal.ErrPreconditionFailed)
	assert.Equal(t, "Error: Please connect your wallet first", line)

	output(t, s, "connect "+richAddr)
	out, kind := output(t, s, "submit line The Robots Sang.")
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Equal(t, []string{"Line submitted successfully!", `"The Robots Sang."`}, out)

	out, _ = output(t, s, "view story")
	require.Len(t, out, 4)
	assert.Equal(t, "[4] The Robots Sang.", out[3])

	line = failure(t, s, "submit line Again!", terminal.ErrCollaboratorFailure)
	assert.Equal(t, "Error: Please wait 24 hours before submitting another line", line)
}

func TestSubmitLine_InsufficientBalance(t *testing.T) {
	s := newSession(t, newEnv(t))
	output(t, s, "connect "+poorAddr)

	lines, err := run(t, s, "submit line I am poor.")
	require.ErrorIs(t, err, terminal.ErrCollaboratorFailure)
	assert.ErrorIs(t, err, story.ErrForbidden)
	assert.Equal(t, "Error: Insufficient token balance. Required: 100,000", lines[0].Content)
}

func TestViewHistoryAndRollback(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)
	output(t, s, "connect "+richAddr)
	output(t, s, "submit line A fourth line.")

	out, _ := output(t, s, "view history")
	assert.Equal(t, "📜 Story History (2 versions, newest first)", out[0])
	assert.Contains(t, out[2], "4 lines")
	assert.Contains(t, out[3], "3 lines")
	assert.True(t, strings.HasPrefix(out[2], "#"))

	page, err := env.Story.History(context.Background(), 1, 10)
	require.NoError(t, err)
	seed := page.Versions[len(page.Versions)-1]

	out, kind := output(t, s, "rollback "+seed.ID[:8])
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Equal(t, "Story rolled back to version #"+seed.ID[:8], out[0])
	assert.Contains(t, out[1], "3 lines")

	lines, err := env.Story.Lines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, story.SeedLines(), lines)

	line := failure(t, s, "rollback", terminal.ErrMissingArgument)
	assert.Equal(t, "Error: Please provide a version ID", line)

	lines2, err := run(t, s, "rollback zzzzzzzz")
	require.ErrorIs(t, err, story.ErrNotFound)
	assert.Equal(t, "Error: Version not found", lines2[0].Content)
}

func TestSearch(t *testing.T) {
	s := newSession(t, newEnv(t))

	out, _ := output(t, s, "search DIGITAL")
	assert.Equal(t, []string{"Found 1 matches:", "", "[1] Once upon a time in a digital realm..."}, out)

	out, kind := output(t, s, "search dragons")
	assert.Equal(t, terminal.KindWarning, kind)
	assert.Equal(t, []string{"No matches found"}, out)

	line := failure(t, s, "search", terminal.ErrMissingArgument)
	assert.Equal(t, "Error: Please provide a search term", line)
}

func TestContributors(t *testing.T) {
	s := newSession(t, newEnv(t))
	output(t, s, "connect "+richAddr)
	output(t, s, "submit line Mine.")

	out, _ := output(t, s, "contributors")
	assert.Equal(t, []string{
		"Top Contributors:",
		"---------------",
		"1. storyai - 3 lines",
		"2. " + wallet.Shorten(richAddr) + " - 1 line",
		"",
		"Total Contributors: 2",
	}, out)
}

func TestExportStory(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	out, kind := output(t, s, "export story")
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Equal(t, []string{"Story exported successfully to story.txt"}, out)

	data, err := os.ReadFile(filepath.Join(env.ExportDir, "story.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(story.SeedLines(), "\n"), string(data))

	// Only the base name is honored.
	output(t, s, "export story ../../escape.txt")
	_, err = os.Stat(filepath.Join(env.ExportDir, "escape.txt"))
	assert.NoError(t, err)
}

func TestSuggestLine(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)
	line := failure(t, s, "suggest line", terminal.ErrPreconditionFailed)
	assert.Equal(t, "Error: AI suggestions are not configured", line)

	gen := &fakeGenerator{line: "The servers hummed a lullaby."}
	env.Generator = gen
	out, kind := output(t, s, "suggest line")
	assert.Equal(t, terminal.KindInfo, kind)
	assert.Contains(t, out, "  The servers hummed a lullaby.")
	assert.Equal(t, story.SeedLines(), gen.got)

	gen.err = errors.New("quota exceeded")
	line = failure(t, s, "suggest line", terminal.ErrCollaboratorFailure)
	assert.Equal(t, "Error: Failed to generate a suggestion", line)

	gen.err = ai.ErrNotConfigured
	failure(t, s, "suggest line", terminal.ErrPreconditionFailed)
}

// =============================================================================
// WALLET
// =============================================================================

func TestConnect(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	line := failure(t, s, "connect", terminal.ErrMissingArgument)
	assert.Equal(t, "Error: Please provide a wallet address", line)

	line = failure(t, s, "connect 0xNOTSOLANA", terminal.ErrPreconditionFailed)
	assert.Equal(t, "Error: Invalid wallet address: 0xNOTSOLANA", line)
	assert.False(t, env.Wallet.Connected())

	lines, err := run(t, s, "connect "+richAddr)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"> WALLET CONNECTED SUCCESSFULLY",
		"> ADDRESS: 7xKX...gAsU",
		`> Type "status" for more details`,
	}, contents(lines))
	assert.Equal(t, terminal.KindSuccess, lines[0].Kind)
	assert.True(t, lines[0].Animated)
	assert.Equal(t, richAddr, env.Wallet.Address())

	out, kind := output(t, s, "connect "+poorAddr)
	assert.Equal(t, terminal.KindWarning, kind)
	assert.Equal(t, "> WALLET ALREADY CONNECTED", out[0])
	assert.Equal(t, richAddr, env.Wallet.Address())
}

func TestLogout(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	out, kind := output(t, s, "logout")
	assert.Equal(t, terminal.KindWarning, kind)
	assert.Equal(t, []string{"No wallet connected"}, out)

	output(t, s, "connect "+richAddr)
	out, kind = output(t, s, "logout")
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Equal(t, []string{"Successfully logged out"}, out)
	assert.False(t, env.Wallet.Connected())
	assert.False(t, env.Wallet.Authenticated())
}

func TestBalance(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	line := failure(t, s, "balance", terminal.ErrPreconditionFailed)
	assert.Equal(t, "Error: Please connect your wallet first", line)

	output(t, s, "connect "+richAddr)
	out, kind := output(t, s, "balance")
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Equal(t, "Tokens: 150,000 STORY", out[2])

	env.Balances = failingOracle{}
	line = failure(t, s, "balance", terminal.ErrCollaboratorFailure)
	assert.Equal(t, "Error: Unable to fetch token balance", line)
}

func TestStatus(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	out, kind := output(t, s, "status")
	assert.Equal(t, terminal.KindWarning, kind)
	assert.Equal(t, offlineStatus, out)

	output(t, s, "connect "+richAddr)
	out, kind = output(t, s, "status")
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Contains(t, out, "> WALLET ID: 7xKX...gAsU")
	assert.Contains(t, out, "> BALANCE: 150,000 $STORY")
	assert.Contains(t, out, "> NETWORK: MAINNET-BETA")
	assert.Contains(t, out, "> STORY: 3 lines")
	assert.Contains(t, out, "> SESSION: AUTHENTICATED")
}

func TestStatus_BalanceFailureStaysInSession(t *testing.T) {
	env := newEnv(t)
	env.Balances = failingOracle{}
	s := newSession(t, env)
	output(t, s, "connect "+richAddr)

	lines, err := run(t, s, "status")
	require.NoError(t, err)
	assert.Equal(t, terminal.KindError, lines[0].Kind)
	assert.Contains(t, contents(lines), "> BALANCE: Error fetching balance")
	assert.Contains(t, contents(lines), "> ERROR: Unable to fetch token balance")
	assert.True(t, env.Wallet.Connected())
}

func TestStats(t *testing.T) {
	env := newEnv(t)
	s := newSession(t, env)

	out, _ := output(t, s, "stats")
	assert.Equal(t, "📊 Guest Statistics", out[0])
	assert.Contains(t, out, "Story Lines: 3")
	assert.Contains(t, out, "Contributors: 1")

	output(t, s, "connect "+richAddr)
	out, _ = output(t, s, "stats")
	assert.Contains(t, out, "Lines Contributed: 0")
	assert.Contains(t, out, "Last Contribution: Never")
	assert.Contains(t, out, "- None yet. Submit a line to earn your first!")

	output(t, s, "submit line Counted.")
	out, _ = output(t, s, "stats")
	assert.Contains(t, out, "Lines Contributed: 1")
	assert.Contains(t, out, "Last Contribution: Just now")
	assert.Contains(t, out, "Token Balance: 150,000")
	assert.Contains(t, out, "- First Line Writer")
	assert.NotContains(t, out, "- Regular Contributor")
}

func TestAgo(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{-time.Hour, "Just now"},
		{10 * time.Second, "Just now"},
		{61 * time.Second, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{3*time.Hour + 5*time.Minute, "3 hours ago"},
		{25 * time.Hour, "1 day ago"},
		{49 * time.Hour, "2 days ago"},
		{400 * 24 * time.Hour, "400 days ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ago(fixedNow.Add(-tt.elapsed), fixedNow), "%s", tt.elapsed)
	}
}

// =============================================================================
// SYSTEM
// =============================================================================

func TestClear(t *testing.T) {
	s := newSession(t, newEnv(t))
	output(t, s, "view story")
	require.NoError(t, s.Submit(context.Background(), "clear"))
	assert.Zero(t, s.Len())
}

func TestTheme(t *testing.T) {
	env := newEnv(t)
	var seen []string
	env.Prefs = NewPreferences(ThemeDark)
	env.Prefs.OnThemeChange(func(theme string) { seen = append(seen, theme) })
	s := newSession(t, env)

	line := failure(t, s, "theme neon", terminal.ErrPreconditionFailed)
	assert.Equal(t, `Error: Invalid theme. Use "light" or "dark"`, line)
	failure(t, s, "theme", terminal.ErrMissingArgument)

	out, kind := output(t, s, "theme LIGHT")
	assert.Equal(t, terminal.KindSuccess, kind)
	assert.Equal(t, []string{"Theme switched to light mode"}, out)
	assert.Equal(t, ThemeLight, env.Prefs.Theme())
	assert.Equal(t, []string{ThemeLight}, seen)
}

func TestVersionAboutTime(t *testing.T) {
	s := newSession(t, newEnv(t))

	out, _ := output(t, s, "version")
	assert.Equal(t, "StoryAI Terminal v1.0.0", out[0])
	assert.Equal(t, strings.Repeat("-", len(out[0])), out[1])
	assert.Contains(t, out, "Build: 2024.03.14")
	assert.Contains(t, out, "Blockchain: Solana")

	out, _ = output(t, s, "about")
	assert.Contains(t, out, "Created with ♥ by the StoryAI Team")

	out, _ = output(t, s, "time")
	assert.Equal(t, []string{"Current System Time: 3/14/2024, 3:04:05 PM"}, out)
}

func TestPreferences(t *testing.T) {
	assert.Equal(t, ThemeLight, NewPreferences(" Light ").Theme())
	assert.Equal(t, ThemeDark, NewPreferences("sepia").Theme())

	p := NewPreferences(ThemeDark)
	assert.ErrorIs(t, p.SetTheme("sepia"), ErrInvalidTheme)
	assert.Equal(t, ThemeDark, p.Theme())
}

func TestCatalog(t *testing.T) {
	info, ok := FindInfo("rollback")
	require.True(t, ok)
	assert.Equal(t, GroupStory, info.Group)
	_, ok = FindInfo("dance")
	assert.False(t, ok)

	var names []string
	for _, info := range ByGroup(GroupUser) {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"balance", "stats", "connect", "logout"}, names)
	assert.Equal(t, "Unknown", Group(42).String())
}
