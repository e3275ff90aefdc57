package migrations

import (
	"context"
	"fmt"
	"strings"
)

// Execer runs a single statement. The clickhouse-go driver.Conn satisfies it.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ApplyClickHouse runs every embedded ClickHouse migration one statement at a
// time, since the native protocol rejects multi-statement queries. Statements
// use IF NOT EXISTS, so reapplying is a no-op.
func ApplyClickHouse(ctx context.Context, conn Execer) error {
	migs, err := ClickHouse()
	if err != nil {
		return err
	}
	for _, m := range migs {
		for i, stmt := range splitStatements(m.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s statement %d: %w", m.Name, i+1, err)
			}
		}
	}
	return nil
}

// splitStatements splits on semicolons outside single-quoted literals
// and drops -- comments.
func splitStatements(sql string) []string {
	var (
		stmts    []string
		cur      strings.Builder
		inString bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inString:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inString = false
				}
			}
		case ch == '\'':
			inString = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()

	return stmts
}
