package domain

import "time"

// Priority buckets a queue entry for display emphasis.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NormalizePriority maps a raw stored value onto a known bucket. Unrecognized
// values degrade to medium so rendering never fails on a dirty row.
func NormalizePriority(raw string) Priority {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(raw)
	default:
		return PriorityMedium
	}
}

// MovieEntry represents one persisted queue item. ID and CreatedAt are
// assigned by the table store on insert, never by clients.
type MovieEntry struct {
	ID          int64
	Title       string
	Genre       string
	Runtime     string
	AddedBy     string
	Priority    string
	PosterURL   string
	TmdbID      string
	ReleaseYear string
	CreatedAt   time.Time
}

// DraftEntry is the in-progress state of a new entry before submission. It
// carries the MovieEntry fields minus the server-assigned ones.
type DraftEntry struct {
	Title       string
	Genre       string
	Runtime     string
	AddedBy     string
	Priority    string
	PosterURL   string
	TmdbID      string
	ReleaseYear string
}
