package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect is the SQL flavour of a relational target.
type Dialect string

const (
	Postgres  Dialect = "postgres"
	SQLServer Dialect = "sqlserver"
)

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(name)); d {
	case Postgres, SQLServer:
		return d, nil
	case "pgx", "postgresql":
		return Postgres, nil
	case "mssql":
		return SQLServer, nil
	default:
		return "", fmt.Errorf("unsupported SQL dialect %q", name)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLServer {
		return "sqlserver"
	}
	return "pgx"
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == SQLServer {
		return "@p" + strconv.Itoa(n)
	}
	return "$" + strconv.Itoa(n)
}

// maxParams is the bind parameter limit of one statement.
func (d Dialect) maxParams() int {
	if d == SQLServer {
		return 2100 - 1
	}
	return 65535
}

// rowsPerStatement caps batchSize so one statement stays under the parameter limit.
func (d Dialect) rowsPerStatement(batchSize, columns int) int {
	limit := d.maxParams() / columns
	if batchSize <= 0 || batchSize > limit {
		return limit
	}
	return batchSize
}

// valuesList renders "(p1, p2), (p3, p4)" for rows×columns parameters.
func (d Dialect) valuesList(rows, columns int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < columns; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// InsertIgnoreSQL builds a multi-row insert that leaves rows whose key already
// exists untouched.
func (d Dialect) InsertIgnoreSQL(table, key string, columns []string, rows int) string {
	cols := strings.Join(columns, ", ")
	values := d.valuesList(rows, len(columns))

	if d == SQLServer {
		selectCols := make([]string, len(columns))
		for i, c := range columns {
			selectCols[i] = "v." + c
		}
		return fmt.Sprintf(
			"INSERT INTO %s (%s) SELECT %s FROM (VALUES %s) AS v (%s) WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE t.%s = v.%s)",
			table, cols, strings.Join(selectCols, ", "), values, cols, table, key, key,
		)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO NOTHING", table, cols, values, key)
}

// InsertSQL builds a plain multi-row insert.
func (d Dialect) InsertSQL(table string, columns []string, rows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(columns, ", "), d.valuesList(rows, len(columns)))
}

// currentSchema is the expression naming the session's default schema.
func (d Dialect) currentSchema() string {
	if d == SQLServer {
		return "SCHEMA_NAME()"
	}
	return "current_schema()"
}
