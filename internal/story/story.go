// Package story holds the collaborative story: its lines, the version
// snapshots taken on every change, and the contribution policy that decides
// who may add a line and when.
package story

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Version is a snapshot of the story taken after a change.
type Version struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Lines        []string       `json:"lines"`
	Contributors []string       `json:"contributors"`
	Credits      []Contribution `json:"credits,omitempty"` // author of each line, parallel to Lines
}

// Contribution is one accepted line.
type Contribution struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Contributor is an author and how many lines they wrote.
type Contributor struct {
	Author string    `json:"author"`
	Lines  int       `json:"lines"`
	Last   time.Time `json:"last"`
}

// HistoryPage is one page of versions, newest first.
type HistoryPage struct {
	Versions      []Version `json:"history"`
	CurrentPage   int       `json:"currentPage"`
	TotalPages    int       `json:"totalPages"`
	TotalVersions int       `json:"totalVersions"`
}

// Store is the story collaborator.
type Store interface {
	// Lines returns the current story.
	Lines(ctx context.Context) ([]string, error)
	// SubmitLine appends text on behalf of author after the policy allows it.
	SubmitLine(ctx context.Context, author, text string) (Contribution, error)
	// History pages through versions, newest first. page is 1-based.
	History(ctx context.Context, page, limit int) (HistoryPage, error)
	// Rollback restores the lines of versionID and records a new version.
	Rollback(ctx context.Context, versionID string) (Version, error)
	// Contributors ranks the authors of the current story by line count.
	Contributors(ctx context.Context) ([]Contributor, error)
	// LastContribution returns the most recent line by author, if any.
	LastContribution(ctx context.Context, author string) (Contribution, bool, error)
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrBadRequest  = errors.New("bad request")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
	ErrNotFound    = errors.New("not found")
)

// Status maps a store error onto the HTTP status the story API used for it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// CONTRIBUTION POLICY
// =============================================================================

// Default policy values.
const (
	DefaultMinTokenBalance = 100000
	DefaultCooldown        = 24 * time.Hour
)

// BalanceChecker reports an address's token balance. wallet.BalanceOracle
// satisfies it.
type BalanceChecker interface {
	Balance(ctx context.Context, address string) (float64, error)
}

// Policy gates SubmitLine.
type Policy struct {
	MinTokenBalance float64
	Cooldown        time.Duration
	Balances        BalanceChecker // nil skips the balance check
}

// DefaultPolicy returns the stock policy without a balance checker.
func DefaultPolicy() Policy {
	return Policy{MinTokenBalance: DefaultMinTokenBalance, Cooldown: DefaultCooldown}
}

// Check validates a submission. last is the author's previous contribution
// time (zero when there is none).
func (p Policy) Check(ctx context.Context, author, text string, last, now time.Time) error {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(author) == "" {
		return fmt.Errorf("%w: missing required fields", ErrBadRequest)
	}

	if p.Balances != nil && p.MinTokenBalance > 0 {
		balance, err := p.Balances.Balance(ctx, author)
		if err != nil {
			return fmt.Errorf("failed to check token balance: %w", err)
		}
		if balance < p.MinTokenBalance {
			return fmt.Errorf("%w: Insufficient token balance. Required: %s", ErrForbidden, FormatAmount(p.MinTokenBalance))
		}
	}

	return p.CheckCooldown(last, now)
}

// CheckCooldown reports ErrRateLimited while the author's cooldown runs. The
// wait is rounded up to whole hours.
func (p Policy) CheckCooldown(last, now time.Time) error {
	if last.IsZero() || p.Cooldown <= 0 {
		return nil
	}
	if since := now.Sub(last); since < p.Cooldown {
		hours := int(math.Ceil((p.Cooldown - since).Hours()))
		return fmt.Errorf("%w: Please wait %d hours before submitting another line", ErrRateLimited, hours)
	}
	return nil
}

// Message strips the taxonomy prefix from a store error for display.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrBadRequest, ErrForbidden, ErrRateLimited, ErrNotFound} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

// FormatAmount renders a token amount with thousands separators and up to
// two decimals, e.g. 150000 -> "150,000".
func FormatAmount(v float64) string {
	return humanize.Commaf(math.Round(v*100) / 100)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// SeedLines is the opening of the shared story.
func SeedLines() []string {
	return []string{
		"Once upon a time in a digital realm...",
		"A group of creative minds gathered to tell a story...",
		"Each contributing their unique perspective...",
	}
}

// SeedAuthor is credited with the seed lines.
const SeedAuthor = "storyai"

func paginate(versions []Version, page, limit int) HistoryPage {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := len(versions)
	out := HistoryPage{
		CurrentPage:   page,
		TotalPages:    (total + limit - 1) / limit,
		TotalVersions: total,
		Versions:      []Version{},
	}
	start := (page - 1) * limit
	if start >= total {
		return out
	}
	end := min(start+limit, total)
	out.Versions = append(out.Versions, versions[start:end]...)
	return out
}

// tally ranks the authors credited with the lines of one version.
func tally(credits []Contribution) []Contributor {
	counts := map[string]*Contributor{}
	for _, c := range credits {
		e, ok := counts[c.Author]
		if !ok {
			e = &Contributor{Author: c.Author}
			counts[c.Author] = e
		}
		e.Lines++
		if c.Timestamp.After(e.Last) {
			e.Last = c.Timestamp
		}
	}
	out := make([]Contributor, 0, len(counts))
	for _, e := range counts {
		out = append(out, *e)
	}
	rank(out)
	return out
}

func uniqueAppend(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
