// Package db holds the DuckDB connection and the commit history table.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Open opens a DuckDB database at <DataDir>/duckdb/<DBName>.duckdb. An empty
// DataDir opens an in-memory database.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.DataDir == "" {
		return sql.Open("duckdb", "")
	}
	duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(duckdbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
	}
	if cfg.DBName == "" {
		cfg.DBName = "wfs"
	}
	conn, err := sql.Open("duckdb", filepath.Join(duckdbDir, cfg.DBName+".duckdb"))
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return conn, nil
}
