package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MoviesRepository provides persistence helpers for the movies table.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

// MovieRow mirrors one row of the movies table in its wire shape. The
// createdAt column keeps its camel name, matching the hosted store's schema.
type MovieRow struct {
	ID          int64     `json:"id"`
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

const movieColumns = `
    id,
    title,
    genre,
    runtime,
    added_by,
    priority,
    poster_url,
    tmdb_id,
    release_year,
    "createdAt"
`

// orderColumns whitelists client-facing order fields against quoted
// identifiers, so a caller-supplied field name never reaches SQL verbatim.
var orderColumns = map[string]string{
	"id":           "id",
	"title":        "title",
	"priority":     "priority",
	"release_year": "release_year",
	"createdAt":    `"createdAt"`,
}

// OrderableColumn reports whether rows can be ordered by the given
// client-facing field name.
func OrderableColumn(field string) bool {
	_, ok := orderColumns[field]
	return ok
}

// ListAll returns every movie row ordered by the given column. The id column
// breaks ties so the order is stable.
func (r *MoviesRepository) ListAll(ctx context.Context, orderField string, ascending bool) ([]MovieRow, error) {
	column, ok := orderColumns[orderField]
	if !ok {
		return nil, fmt.Errorf("repository: cannot order by %q", orderField)
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM movies ORDER BY %s %s, id %s`, movieColumns, column, direction, direction)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]MovieRow, 0)
	for rows.Next() {
		row, err := scanMovieRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Insert stores a row and returns the created representation, including the
// assigned id, in the same round trip. A zero CreatedAt falls back to the
// column default; an empty priority falls back to medium.
func (r *MoviesRepository) Insert(ctx context.Context, row MovieRow) (MovieRow, error) {
	var createdAt *time.Time
	if !row.CreatedAt.IsZero() {
		stamped := row.CreatedAt.UTC()
		createdAt = &stamped
	}

	query := fmt.Sprintf(`
        INSERT INTO movies (title, genre, runtime, added_by, priority, poster_url, tmdb_id, release_year, "createdAt")
        VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), 'medium'), $6, $7, $8, COALESCE($9, now()))
        RETURNING %s
    `, movieColumns)

	created := r.pool.QueryRow(ctx, query,
		row.Title, row.Genre, row.Runtime, row.AddedBy, row.Priority,
		row.PosterURL, row.TmdbID, row.ReleaseYear, createdAt)
	return scanMovieRow(created)
}

// DeleteByID removes at most one row and reports how many went away.
// Deleting an absent id is not an error.
func (r *MoviesRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMovieRow(row pgx.Row) (MovieRow, error) {
	var out MovieRow
	err := row.Scan(
		&out.ID,
		&out.Title,
		&out.Genre,
		&out.Runtime,
		&out.AddedBy,
		&out.Priority,
		&out.PosterURL,
		&out.TmdbID,
		&out.ReleaseYear,
		&out.CreatedAt,
	)
	if err != nil {
		return MovieRow{}, err
	}
	return out, nil
}
