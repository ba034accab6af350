// Package metrics computes gameplay metrics (pacing, aggression, rotation
// efficiency) as DuckDB queries over event relations. A relation is any SQL
// table expression: a table or view name, or a read_parquet(...) call built
// with ParquetRelation.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2" // duckdb driver
)

// ConnectDuckDB opens a DuckDB database. An empty path opens an in-memory
// instance.
func ConnectDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

// ParquetRelation builds a relation scanning one parquet file.
func ParquetRelation(path string) string {
	return "read_parquet('" + strings.ReplaceAll(path, "'", "''") + "')"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// relationColumns reads the column names of a relation without scanning it.
func relationColumns(ctx context.Context, db *sql.DB, relation string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+relation+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}
