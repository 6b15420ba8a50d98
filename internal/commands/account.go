package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"storyai/internal/logging"
	"storyai/internal/story"
	"storyai/internal/terminal"
	"storyai/internal/wallet"
)

// =============================================================================
// WALLET COMMANDS
// =============================================================================

func (h *handlerSet) connect(_ context.Context, _ *terminal.Session, args string) (terminal.Response, error) {
	if conn, ok := h.env.Wallet.Connection(); ok {
		return alreadyConnected(conn), nil
	}
	address := strings.TrimSpace(args)
	if address == "" {
		return terminal.Response{}, terminal.MissingArgument("Please provide a wallet address")
	}

	conn, err := h.env.Wallet.Connect(address)
	switch {
	case errors.Is(err, wallet.ErrAlreadyConnected):
		return alreadyConnected(conn), nil
	case errors.Is(err, wallet.ErrInvalidAddress):
		return terminal.Response{}, terminal.PreconditionFailed("Invalid wallet address: %s", address)
	case err != nil:
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Failed to connect wallet")
	}

	return terminal.Response{
		Lines: []string{
			"> WALLET CONNECTED SUCCESSFULLY",
			"> ADDRESS: " + wallet.Shorten(conn.Address),
			`> Type "status" for more details`,
		},
		Kind:     terminal.KindSuccess,
		Animated: true,
	}, nil
}

func alreadyConnected(conn wallet.Connection) terminal.Response {
	return terminal.Response{
		Lines: []string{
			"> WALLET ALREADY CONNECTED",
			"> ADDRESS: " + wallet.Shorten(conn.Address),
			`> Use "status" command for more details`,
		},
		Kind: terminal.KindWarning,
	}
}

// invalidator is implemented by oracles that cache balances.
type invalidator interface {
	Invalidate(address string)
}

func (h *handlerSet) logout(_ context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	address := h.env.Wallet.Address()
	if !h.env.Wallet.Disconnect() {
		return terminal.Response{Lines: []string{"No wallet connected"}, Kind: terminal.KindWarning}, nil
	}
	if inv, ok := h.env.Balances.(invalidator); ok {
		inv.Invalidate(address)
	}
	return terminal.Response{Lines: []string{"Successfully logged out"}, Kind: terminal.KindSuccess}, nil
}

func (h *handlerSet) balance(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	address := h.env.Wallet.Address()
	if address == "" {
		return terminal.Response{}, terminal.PreconditionFailed("Please connect your wallet first")
	}
	amount, err := h.env.Balances.Balance(ctx, address)
	if err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Unable to fetch token balance")
	}
	return terminal.Response{
		Lines: []string{
			"💰 Wallet Balance",
			"---------------",
			fmt.Sprintf("Tokens: %s STORY", story.FormatAmount(amount)),
			"Last Updated: Just now",
		},
		Kind: terminal.KindSuccess,
	}, nil
}

// =============================================================================
// STATUS
// =============================================================================

var offlineStatus = []string{
	"> CONNECTION STATUS: OFFLINE",
	"> SECURE TUNNEL: NOT ESTABLISHED",
	`> ACTION REQUIRED: Type "connect" to initialize wallet connection`,
}

func (h *handlerSet) status(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	conn, ok := h.env.Wallet.Connection()
	if !ok {
		return terminal.Response{Lines: offlineStatus, Kind: terminal.KindWarning}, nil
	}

	var (
		amount     float64
		balanceErr error
		lines      []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A balance failure is reported in the status block, not as a failed command.
		amount, balanceErr = h.env.Balances.Balance(gctx, conn.Address)
		return nil
	})
	g.Go(func() error {
		var err error
		lines, err = h.env.Story.Lines(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Unable to fetch wallet status")
	}

	if balanceErr != nil {
		logging.Commands("status: balance for %s failed: %v", wallet.Shorten(conn.Address), balanceErr)
		return terminal.Response{
			Lines: []string{
				"> CONNECTION STATUS: ACTIVE",
				"> SECURE TUNNEL: ESTABLISHED",
				"> ENCRYPTION: ENABLED",
				"> WALLET ID: " + wallet.Shorten(conn.Address),
				"> BALANCE: Error fetching balance",
				"> NETWORK: " + strings.ToUpper(h.env.Network),
				"> ERROR: Unable to fetch token balance",
				"> QUANTUM ENCRYPTION: ENABLED",
			},
			Kind: terminal.KindError,
		}, nil
	}

	session := "GUEST"
	if h.env.Wallet.Authenticated() {
		session = "AUTHENTICATED"
	}
	return terminal.Response{
		Lines: []string{
			"> CONNECTION STATUS: ACTIVE",
			"> SECURE TUNNEL: ESTABLISHED",
			"> ENCRYPTION: ENABLED",
			"> WALLET ID: " + wallet.Shorten(conn.Address),
			fmt.Sprintf("> BALANCE: %s $STORY", story.FormatAmount(amount)),
			"> NETWORK: " + strings.ToUpper(h.env.Network),
			fmt.Sprintf("> STORY: %s", plural(len(lines), "line")),
			"> SESSION: " + session,
			"> QUANTUM ENCRYPTION: ENABLED",
		},
		Kind: terminal.KindSuccess,
	}, nil
}

// =============================================================================
// STATS
// =============================================================================

type achievement struct {
	name  string
	lines int
}

var achievements = []achievement{
	{"First Line Writer", 1},
	{"Regular Contributor", 5},
	{"Creative Spark", 10},
	{"Master Storyteller", 25},
}

func (h *handlerSet) stats(ctx context.Context, _ *terminal.Session, _ string) (terminal.Response, error) {
	address := h.env.Wallet.Address()
	if address == "" {
		return h.guestStats(ctx)
	}

	var (
		count   int
		last    story.Contribution
		hasLast bool
		amount  float64
		balErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := h.env.Story.Contributors(gctx)
		if err != nil {
			return err
		}
		for _, c := range list {
			if c.Author == address {
				count = c.Lines
				break
			}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		last, hasLast, err = h.env.Story.LastContribution(gctx, address)
		return err
	})
	g.Go(func() error {
		amount, balErr = h.env.Balances.Balance(gctx, address)
		return nil
	})
	if err := g.Wait(); err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Unable to load contribution statistics")
	}

	lastText := "Never"
	if hasLast {
		lastText = ago(last.Timestamp, h.env.Now())
	}
	balanceText := "Unavailable"
	if balErr == nil {
		balanceText = story.FormatAmount(amount)
	}

	out := []string{
		"📊 Your Statistics",
		"----------------",
		fmt.Sprintf("Lines Contributed: %d", count),
		"Last Contribution: " + lastText,
		"Token Balance: " + balanceText,
		"",
		"🏆 Achievements:",
	}
	earned := 0
	for _, a := range achievements {
		if count >= a.lines {
			out = append(out, "- "+a.name)
			earned++
		}
	}
	if earned == 0 {
		out = append(out, "- None yet. Submit a line to earn your first!")
	}
	return terminal.Response{Lines: out, Kind: terminal.KindOutput, Animated: true}, nil
}

func (h *handlerSet) guestStats(ctx context.Context) (terminal.Response, error) {
	lines, err := h.storyLines(ctx)
	if err != nil {
		return terminal.Response{}, err
	}
	list, err := h.env.Story.Contributors(ctx)
	if err != nil {
		return terminal.Response{}, terminal.CollaboratorFailure(err, "Unable to load contributors")
	}
	return terminal.Response{
		Lines: []string{
			"📊 Guest Statistics",
			"----------------",
			"Story Lines: " + fmt.Sprint(len(lines)),
			"Contributors: " + fmt.Sprint(len(list)),
			"",
			`Type "connect <address>" to track your own contributions.`,
		},
		Kind: terminal.KindOutput,
	}, nil
}

var agoMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "Just now", DivBy: 1},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: humanize.Day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "1 day %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d days %s", DivBy: humanize.Day},
}

// ago renders how long before now then was, the way the stats panel shows
// it. Times in the future read as "Just now".
func ago(then, now time.Time) string {
	if then.After(now) {
		then = now
	}
	return humanize.CustomRelTime(then, now, "ago", "from now", agoMagnitudes)
}
