package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// OpenForTesting opens a uniquely named in-memory database with the full
// schema applied. Each call gets an isolated database; cache=shared keeps it
// alive across the connections in the pool.
func OpenForTesting() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping test database: %w", err)
	}
	if err := runMigrations(database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}
