// Package migrations applies the embedded schema for the mint ledger (PostgreSQL)
// and the analytics event log (ClickHouse).
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// Migration is one schema file.
type Migration struct {
	Name string
	SQL  string
}

// PostgresMigrations lists the ledger migrations in apply order.
func PostgresMigrations() ([]Migration, error) {
	return load(postgresFS, "postgres")
}

// ClickhouseMigrations lists the event log migrations in apply order.
func ClickhouseMigrations() ([]Migration, error) {
	return load(clickhouseFS, "clickhouse")
}

// load reads every non-empty .sql file under dir in lexical order.
func load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Name: name, SQL: string(data)})
	}
	return out, nil
}
