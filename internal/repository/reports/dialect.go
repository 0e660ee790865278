package reports

import (
	"database/sql"
	"fmt"
	"strings"
)

// Dialect adapts the report queries to a database engine.
type Dialect interface {
	// Name is the database/sql driver name.
	Name() string
	// Table returns the FROM reference of a partition of schema.table.
	Table(schema, table, partition string) string
	// Bind returns the placeholder for the n-th distinct (1-based) parameter.
	Bind(name string, n int) string
	// Args converts named parameters, in bind order, to query arguments.
	Args(params []namedParam) []any
}

type namedParam struct {
	Name  string
	Value any
}

// Oracle addresses partitions with the PARTITION clause and binds by name.
type Oracle struct{}

func (Oracle) Name() string { return "oracle" }

func (Oracle) Table(schema, table, partition string) string {
	return fmt.Sprintf("%s.%s PARTITION (%s)", schema, table, partition)
}

func (Oracle) Bind(name string, _ int) string { return ":" + name }

func (Oracle) Args(params []namedParam) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

// Postgres treats each partition as its own child table and binds by position.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Table(schema, _, partition string) string {
	return fmt.Sprintf("%s.%s", strings.ToLower(schema), strings.ToLower(partition))
}

func (Postgres) Bind(_ string, n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) Args(params []namedParam) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Value
	}
	return args
}

// DialectFor returns the dialect registered under driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "oracle":
		return Oracle{}, nil
	case "postgres":
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
