// Package reports fetches transaction report rows from the reporting
// database.
package reports

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/ignite/report-runner/internal/config"
	"github.com/ignite/report-runner/internal/domain"
)

// Repo runs report queries, one scoped connection per fetch.
type Repo struct {
	db      *sqlx.DB
	dialect Dialect
	schema  string
	timeout time.Duration
}

// NewRepo wraps an open handle. A zero timeout disables the per-query limit.
func NewRepo(db *sqlx.DB, dialect Dialect, schema string, timeout time.Duration) *Repo {
	return &Repo{db: db, dialect: dialect, schema: schema, timeout: timeout}
}

// Open builds the DSN for cfg and opens a pooled handle. The handle is not
// pinged: connectivity problems surface as per-job query failures.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlx.Open(dialect.Name(), DSN(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, dialect, nil
}

// DSN returns cfg.URL when set, otherwise a DSN assembled from the discrete
// fields in the driver's format.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	switch cfg.Driver {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
			Path:     "/" + cfg.Service,
			RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
		}
		return u.String()
	default:
		return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Service, cfg.User, cfg.Password, nil)
	}
}

// Fetch returns the rows of p's report, in the order the query produced
// them. An empty result is not an error.
func (r *Repo) Fetch(ctx context.Context, p domain.JobParams) ([]domain.ReportRow, error) {
	q, err := buildQuery(r.dialect, r.schema, p)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", domain.ErrQuery, err)
	}
	defer conn.Close()

	rows, err := conn.QueryxContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s report for %s: %v", domain.ErrQuery, p.ReportType, p.ND, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: columns: %v", domain.ErrQuery, err)
	}

	var out []domain.ReportRow
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrQuery, err)
		}
		row := make(domain.ReportRow, len(cols))
		for i, c := range cols {
			row[i] = domain.Field{Name: c, Value: normalize(vals[i])}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", domain.ErrQuery, err)
	}
	return out, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
