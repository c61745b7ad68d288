package database

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mbolis/surveyflow/log"
)

//go:embed migrations/*.sql
var schema embed.FS

// upgrade applies pending migrations and reports the resulting schema version.
func upgrade(db *sql.DB) (uint, error) {
	src, err := iofs.New(schema, "migrations")
	if err != nil {
		return 0, err
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return 0, err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, errors.New("database schema is dirty, fix it by hand")
	}
	log.Debugf("db.schema: version %d", version)
	return version, nil
}
