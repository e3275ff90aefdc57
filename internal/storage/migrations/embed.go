package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// Migration is one embedded schema file. Name is the file name and
// determines apply order.
type Migration struct {
	Name string
	SQL  string
}

// Postgres returns the trade_events schema migrations in apply order.
func Postgres() ([]Migration, error) {
	return load(postgresFS, "postgres")
}

// ClickHouse returns the sandwich_detections schema migrations in apply order.
func ClickHouse() ([]Migration, error) {
	return load(clickhouseFS, "clickhouse")
}

func load(fsys fs.FS, dir string) ([]Migration, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dir, err)
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sql := strings.TrimSpace(string(data))
		if sql == "" {
			continue
		}
		out = append(out, Migration{Name: path.Base(name), SQL: sql})
	}
	return out, nil
}
