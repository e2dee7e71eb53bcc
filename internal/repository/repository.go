package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelqueue/reelqueue/internal/store"
)

// Repository aggregates the table-specific repositories backing the
// self-hosted table endpoint.
type Repository struct {
	Movies *MoviesRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies: &MoviesRepository{pool: pool},
	}
}
