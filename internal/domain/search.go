package domain

// SearchCandidate is a transient hit from the metadata provider. Candidates
// live only for the duration of a search and are never persisted.
type SearchCandidate struct {
	ExternalID  string
	Title       string
	PosterPath  string // relative path, resolved against the image CDN by callers
	ReleaseDate string // ISO date, may be empty
	Overview    string
}

// ReleaseYear extracts the year portion of the candidate's release date for
// draft prefill. Returns empty when no usable date is present.
func (c SearchCandidate) ReleaseYear() string {
	if len(c.ReleaseDate) < 4 {
		return ""
	}
	return c.ReleaseDate[:4]
}
