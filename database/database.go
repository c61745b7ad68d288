package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mbolis/surveyflow/config"
)

// Open connects to the SQLite file of cfg.DBUrl and brings its schema up to
// date. ":memory:" gives a private in-memory database.
func Open(cfg config.Config) (db *sql.DB, err error) {
	db, err = sql.Open("sqlite3", dsn(cfg.DBUrl))
	if err != nil {
		return
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		db.Close()
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)
	if cfg.DBUrl == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	_, err = upgrade(db)
	if err != nil {
		db.Close()
		return
	}

	return
}

func dsn(url string) string {
	if url == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return "file:" + url + "?_foreign_keys=on&_busy_timeout=5000"
}
