package store

import (
	"database/sql"

	"github.com/imspidey6989/MediBridge/pkg/logger"
)

// Store is the single access point for all database reads and writes.
// Every other component goes through it; no SQL lives elsewhere.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// New creates a store over an established connection pool
func New(db *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log,
	}
}
