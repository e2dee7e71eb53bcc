package queue

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reelqueue/reelqueue/internal/domain"
)

const moviesTable = "movies"

// ErrEmptyTitle rejects a draft before any network call is made.
var ErrEmptyTitle = errors.New("queue: draft title is required")

// TableClient is the remote persistence surface the store depends on.
type TableClient interface {
	ListAll(ctx context.Context, table, orderField string, ascending bool, dest any) error
	Insert(ctx context.Context, table string, row, created any) error
	DeleteWhere(ctx context.Context, table, field, value string) error
}

// Store holds the in-memory queue list and reconciles it against the table
// store. The list is kept in ascending createdAt order as returned by the
// server; the first element is the current item, the rest are upcoming.
// A mutex guards shared access, but the error and loading flags deliberately
// keep last-write-wins semantics for overlapping operations.
type Store struct {
	table  TableClient
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []domain.MovieEntry
	loading bool
	lastErr string
}

// New constructs a Store around a table client.
func New(table TableClient, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{table: table, logger: logger, now: time.Now}
}

// movieRow is the persistence-schema shape of a queue entry. The json tags
// are the canonical camel-to-snake field mapping; createdAt keeps its camel
// name in the remote schema.
type movieRow struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre"`
	Runtime     string    `json:"runtime"`
	AddedBy     string    `json:"added_by"`
	Priority    string    `json:"priority"`
	PosterURL   string    `json:"poster_url"`
	TmdbID      string    `json:"tmdb_id"`
	ReleaseYear string    `json:"release_year"`
	CreatedAt   time.Time `json:"createdAt"`
}

func draftToRow(draft domain.DraftEntry, createdAt time.Time) movieRow {
	priority := draft.Priority
	if priority == "" {
		priority = string(domain.PriorityMedium)
	}
	return movieRow{
		Title:       strings.TrimSpace(draft.Title),
		Genre:       draft.Genre,
		Runtime:     draft.Runtime,
		AddedBy:     draft.AddedBy,
		Priority:    priority,
		PosterURL:   draft.PosterURL,
		TmdbID:      draft.TmdbID,
		ReleaseYear: draft.ReleaseYear,
		CreatedAt:   createdAt,
	}
}

func rowToEntry(row movieRow) domain.MovieEntry {
	return domain.MovieEntry{
		ID:          row.ID,
		Title:       row.Title,
		Genre:       row.Genre,
		Runtime:     row.Runtime,
		AddedBy:     row.AddedBy,
		Priority:    row.Priority,
		PosterURL:   row.PosterURL,
		TmdbID:      row.TmdbID,
		ReleaseYear: row.ReleaseYear,
		CreatedAt:   row.CreatedAt,
	}
}

// Reload replaces the in-memory list wholesale with the remote state, ordered
// ascending by createdAt. The loading flag clears even when the call fails,
// and a failure never touches the current list.
func (s *Store) Reload(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var rows []movieRow
	if err := s.table.ListAll(ctx, moviesTable, "createdAt", true, &rows); err != nil {
		s.recordError("reload", err)
		return err
	}

	entries := make([]domain.MovieEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}

	s.mu.Lock()
	s.entries = entries
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// Add validates the draft locally, stamps createdAt at submission time,
// inserts, and appends exactly the row the server returned. Stamping at
// submission time is what keeps the append consistent with createdAt order.
func (s *Store) Add(ctx context.Context, draft domain.DraftEntry) (domain.MovieEntry, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return domain.MovieEntry{}, ErrEmptyTitle
	}

	row := draftToRow(draft, s.now().UTC())
	var created movieRow
	if err := s.table.Insert(ctx, moviesTable, row, &created); err != nil {
		s.recordError("add", err)
		return domain.MovieEntry{}, err
	}

	entry := rowToEntry(created)
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.lastErr = ""
	s.mu.Unlock()
	return entry, nil
}

// Remove deletes the entry remotely by id, then drops the matching entry from
// the local list. A failed delete leaves the entry visible.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.table.DeleteWhere(ctx, moviesTable, "id", strconv.FormatInt(id, 10)); err != nil {
		s.recordError("remove", err)
		return err
	}

	s.mu.Lock()
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

// Current returns the earliest-queued entry, if any.
func (s *Store) Current() (domain.MovieEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return domain.MovieEntry{}, false
	}
	return s.entries[0], true
}

// Upcoming returns every entry after the current one.
func (s *Store) Upcoming() []domain.MovieEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) <= 1 {
		return nil
	}
	upcoming := make([]domain.MovieEntry, len(s.entries)-1)
	copy(upcoming, s.entries[1:])
	return upcoming
}

// Snapshot returns a copy of the full ordered list.
func (s *Store) Snapshot() []domain.MovieEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]domain.MovieEntry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// Loading reports whether a reload is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the most recent failure message, or empty after a
// successful operation.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) recordError(op string, err error) {
	s.logger.Printf("queue: %s failed: %v", op, err)
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}
