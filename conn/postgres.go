package conn

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

// NewPostgres opens a Postgres connection from DATABASE_URL.
func NewPostgres(url string) (*sql.DB, error) {
	if url == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := pingWithRetry(db, "postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
