package story

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"storyai/internal/logging"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the story, its versions and every contribution.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex // serializes writers
	policy Policy
	now    func() time.Time
	dbPath string
}

// NewSQLiteStore opens (or creates) the database at path and seeds an empty
// story with SeedLines.
func NewSQLiteStore(path string, policy Policy) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStore")
	defer timer.Stop()

	logging.Store("Initializing SQLiteStore at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &SQLiteStore{db: db, policy: policy, now: time.Now, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	if err := s.seed(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock overrides the time source.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS versions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		lines_json TEXT NOT NULL,
		contributors_json TEXT NOT NULL,
		credits_json TEXT NOT NULL DEFAULT '[]'
	);
	CREATE TABLE IF NOT EXISTS contributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contributions_author ON contributions(author, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create story schema: %w", err)
	}

	// Databases created before per-line credits were recorded.
	if !columnExists(s.db, "versions", "credits_json") {
		logging.Store("Migrating versions table: adding credits_json")
		if _, err := s.db.Exec("ALTER TABLE versions ADD COLUMN credits_json TEXT NOT NULL DEFAULT '[]'"); err != nil {
			return fmt.Errorf("failed to add versions.credits_json: %w", err)
		}
	}
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dfltValue        any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func (s *SQLiteStore) seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM versions").Scan(&n); err != nil {
		return fmt.Errorf("failed to count versions: %w", err)
	}
	if n > 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	var credits []Contribution
	for _, line := range SeedLines() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO contributions (author, text, created_at) VALUES (?, ?, ?)",
			SeedAuthor, line, now.UnixNano()); err != nil {
			return fmt.Errorf("failed to seed contributions: %w", err)
		}
		credits = append(credits, Contribution{Author: SeedAuthor, Text: line, Timestamp: now})
	}
	if _, err := insertVersion(ctx, tx, now, SeedLines(), []string{SeedAuthor}, credits); err != nil {
		return err
	}
	logging.Store("Seeded empty story database")
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const versionColumns = "id, created_at, lines_json, contributors_json, credits_json"

func insertVersion(ctx context.Context, q queryer, at time.Time, lines, contributors []string, credits []Contribution) (Version, error) {
	v := Version{ID: uuid.NewString(), Timestamp: at, Lines: lines, Contributors: contributors, Credits: credits}
	lj, err := json.Marshal(lines)
	if err != nil {
		return Version{}, err
	}
	cj, err := json.Marshal(contributors)
	if err != nil {
		return Version{}, err
	}
	if credits == nil {
		credits = []Contribution{}
	}
	crj, err := json.Marshal(credits)
	if err != nil {
		return Version{}, err
	}
	if _, err := q.ExecContext(ctx,
		"INSERT INTO versions ("+versionColumns+") VALUES (?, ?, ?, ?, ?)",
		v.ID, at.UnixNano(), string(lj), string(cj), string(crj)); err != nil {
		return Version{}, fmt.Errorf("failed to insert version: %w", err)
	}
	return v, nil
}

func scanVersion(scan func(dest ...any) error) (Version, error) {
	var (
		v           Version
		nanos       int64
		lj, cj, crj string
	)
	if err := scan(&v.ID, &nanos, &lj, &cj, &crj); err != nil {
		return Version{}, err
	}
	v.Timestamp = time.Unix(0, nanos).UTC()
	if err := json.Unmarshal([]byte(lj), &v.Lines); err != nil {
		return Version{}, fmt.Errorf("corrupt version %s lines: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(cj), &v.Contributors); err != nil {
		return Version{}, fmt.Errorf("corrupt version %s contributors: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(crj), &v.Credits); err != nil {
		return Version{}, fmt.Errorf("corrupt version %s credits: %w", v.ID, err)
	}
	return v, nil
}

func latestVersion(ctx context.Context, q queryer) (Version, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM versions ORDER BY seq DESC LIMIT 1")
	v, err := scanVersion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{Lines: []string{}}, nil
	}
	return v, err
}

func (s *SQLiteStore) Lines(ctx context.Context) ([]string, error) {
	v, err := latestVersion(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	return v.Lines, nil
}

func (s *SQLiteStore) SubmitLine(ctx context.Context, author, text string) (Contribution, error) {
	text = strings.TrimSpace(text)
	last, _, err := s.LastContribution(ctx, author)
	if err != nil {
		return Contribution{}, err
	}
	if err := s.policy.Check(ctx, author, text, last.Timestamp, s.clock()); err != nil {
		logging.StoreDebug("submit rejected for %s: %v", author, err)
		return Contribution{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Contribution{}, err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	if prev, ok, err := lastContribution(ctx, tx, author); err != nil {
		return Contribution{}, err
	} else if ok {
		if err := s.policy.CheckCooldown(prev.Timestamp, now); err != nil {
			return Contribution{}, err
		}
	}

	cur, err := latestVersion(ctx, tx)
	if err != nil {
		return Contribution{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO contributions (author, text, created_at) VALUES (?, ?, ?)",
		author, text, now.UnixNano()); err != nil {
		return Contribution{}, fmt.Errorf("failed to save line: %w", err)
	}
	c := Contribution{Author: author, Text: text, Timestamp: now}
	lines := append(slices.Clone(cur.Lines), text)
	credits := append(slices.Clone(cur.Credits), c)
	if _, err := insertVersion(ctx, tx, now, lines, uniqueAppend(slices.Clone(cur.Contributors), author), credits); err != nil {
		return Contribution{}, err
	}
	if err := tx.Commit(); err != nil {
		return Contribution{}, err
	}
	logging.Store("line %d submitted by %s", len(lines), author)
	return c, nil
}

func (s *SQLiteStore) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *SQLiteStore) History(ctx context.Context, page, limit int) (HistoryPage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM versions ORDER BY seq DESC")
	if err != nil {
		return HistoryPage{}, fmt.Errorf("failed to fetch story history: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := scanVersion(rows.Scan)
		if err != nil {
			return HistoryPage{}, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return HistoryPage{}, err
	}
	return paginate(versions, page, limit), nil
}

func (s *SQLiteStore) Rollback(ctx context.Context, versionID string) (Version, error) {
	if strings.TrimSpace(versionID) == "" {
		return Version{}, fmt.Errorf("%w: Version ID is required", ErrBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE id = ?", versionID)
	target, err := scanVersion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("%w: Version not found", ErrNotFound)
	}
	if err != nil {
		return Version{}, err
	}
	nv, err := insertVersion(ctx, tx, s.now().UTC(), target.Lines, target.Contributors, target.Credits)
	if err != nil {
		return Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return Version{}, err
	}
	logging.Store("rolled back to version %s as %s", versionID, nv.ID)
	return nv, nil
}

// Contributors ranks the authors credited in the latest version.
func (s *SQLiteStore) Contributors(ctx context.Context) ([]Contributor, error) {
	v, err := latestVersion(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contributors: %w", err)
	}
	return tally(v.Credits), nil
}

func (s *SQLiteStore) LastContribution(ctx context.Context, author string) (Contribution, bool, error) {
	return lastContribution(ctx, s.db, author)
}

func lastContribution(ctx context.Context, q queryer, author string) (Contribution, bool, error) {
	var (
		c     Contribution
		nanos int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT author, text, created_at FROM contributions WHERE author = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		author).Scan(&c.Author, &c.Text, &nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return Contribution{}, false, nil
	}
	if err != nil {
		return Contribution{}, false, fmt.Errorf("failed to check last contribution: %w", err)
	}
	c.Timestamp = time.Unix(0, nanos).UTC()
	return c, true, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
