package story

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"storyai/internal/logging"

	"github.com/google/uuid"
)

// MemoryStore keeps the story in process memory. It is the default backend
// and starts from the seed story.
type MemoryStore struct {
	mu           sync.RWMutex
	policy       Policy
	now          func() time.Time
	lines        []string
	contributors []string
	credits      []Contribution // one per line of the current story
	versions     []Version      // oldest first
	log          []Contribution
}

// NewMemoryStore returns a store seeded with SeedLines.
func NewMemoryStore(policy Policy) *MemoryStore {
	s := &MemoryStore{policy: policy, now: time.Now}
	s.lines = SeedLines()
	s.contributors = []string{SeedAuthor}
	seeded := s.now().UTC()
	for _, line := range s.lines {
		s.log = append(s.log, Contribution{Author: SeedAuthor, Text: line, Timestamp: seeded})
	}
	s.credits = slices.Clone(s.log)
	s.snapshotLocked()
	return s
}

// SetClock overrides the time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) snapshotLocked() Version {
	v := Version{
		ID:           uuid.NewString(),
		Timestamp:    s.now().UTC(),
		Lines:        slices.Clone(s.lines),
		Contributors: slices.Clone(s.contributors),
		Credits:      slices.Clone(s.credits),
	}
	s.versions = append(s.versions, v)
	return v
}

func (s *MemoryStore) Lines(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines), nil
}

func (s *MemoryStore) SubmitLine(ctx context.Context, author, text string) (Contribution, error) {
	text = strings.TrimSpace(text)
	last, _, err := s.LastContribution(ctx, author)
	if err != nil {
		return Contribution{}, err
	}

	// The balance check may block on the network; run it unlocked.
	if err := s.policy.Check(ctx, author, text, last.Timestamp, s.clock()); err != nil {
		logging.StoreDebug("submit rejected for %s: %v", author, err)
		return Contribution{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check the cooldown in case a concurrent submission won the race.
	if prev, ok := s.lastLocked(author); ok {
		if err := s.policy.CheckCooldown(prev.Timestamp, s.now()); err != nil {
			return Contribution{}, err
		}
	}

	c := Contribution{Author: author, Text: text, Timestamp: s.now().UTC()}
	s.lines = append(s.lines, text)
	s.contributors = uniqueAppend(s.contributors, author)
	s.log = append(s.log, c)
	s.credits = append(s.credits, c)
	s.snapshotLocked()
	logging.Store("line %d submitted by %s", len(s.lines), author)
	return c, nil
}

func (s *MemoryStore) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *MemoryStore) History(ctx context.Context, page, limit int) (HistoryPage, error) {
	if err := ctx.Err(); err != nil {
		return HistoryPage{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	newest := make([]Version, len(s.versions))
	for i, v := range s.versions {
		newest[len(s.versions)-1-i] = v
	}
	return paginate(newest, page, limit), nil
}

func (s *MemoryStore) Rollback(ctx context.Context, versionID string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	if strings.TrimSpace(versionID) == "" {
		return Version{}, fmt.Errorf("%w: Version ID is required", ErrBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.ID == versionID {
			s.lines = slices.Clone(v.Lines)
			s.contributors = slices.Clone(v.Contributors)
			s.credits = slices.Clone(v.Credits)
			nv := s.snapshotLocked()
			logging.Store("rolled back to version %s as %s", versionID, nv.ID)
			return nv, nil
		}
	}
	return Version{}, fmt.Errorf("%w: Version not found", ErrNotFound)
}

// Contributors ranks the authors of the current story, so a rollback drops
// the credit for lines it removed.
func (s *MemoryStore) Contributors(ctx context.Context) ([]Contributor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tally(s.credits), nil
}

func (s *MemoryStore) LastContribution(ctx context.Context, author string) (Contribution, bool, error) {
	if err := ctx.Err(); err != nil {
		return Contribution{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.lastLocked(author)
	return c, ok, nil
}

func (s *MemoryStore) lastLocked(author string) (Contribution, bool) {
	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i].Author == author {
			return s.log[i], true
		}
	}
	return Contribution{}, false
}

func (s *MemoryStore) Close() error { return nil }

// rank orders contributors by line count, then most recent, then name.
func rank(cs []Contributor) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Lines != cs[j].Lines {
			return cs[i].Lines > cs[j].Lines
		}
		if !cs[i].Last.Equal(cs[j].Last) {
			return cs[i].Last.After(cs[j].Last)
		}
		return cs[i].Author < cs[j].Author
	})
}
