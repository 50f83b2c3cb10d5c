package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/mysql/*.sql sql/postgres/*.sql
var files embed.FS

// Up applies every pending migration for the given driver ("mysql" or "postgres").
// An up-to-date schema is not an error.
func Up(db *sql.DB, driver string) error {
	if db == nil {
		return errors.New("db is not initialized")
	}

	var (
		dir string
		drv database.Driver
		err error
	)
	switch driver {
	case "mysql":
		dir = "sql/mysql"
		drv, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case "postgres":
		dir = "sql/postgres"
		drv, err = migratepg.WithInstance(db, &migratepg.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	src, err := iofs.New(files, dir)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	// m.Close is not called: it would close db, which the caller still owns.
	m, err := migrate.NewWithInstance("iofs", src, driver, drv)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, _ := m.Version()
	log.Printf("[migrations] driver=%s version=%d dirty=%v", driver, v, dirty)
	return nil
}
