package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type DB struct {
	*sql.DB
}

// New opens (creating if needed) the history database at path and makes sure
// the schema exists.
func New(path string) (*DB, error) {
	database, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := database.Exec("PRAGMA journal_mode = WAL"); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := database.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{database}
	if err := db.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return db, nil
}
