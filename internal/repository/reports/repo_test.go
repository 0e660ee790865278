package reports

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/report-runner/internal/config"
	"github.com/ignite/report-runner/internal/domain"
)

func setupRepo(t *testing.T, d Dialect) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(sqlx.NewDb(db, "sqlmock"), d, "MCOMMADM", time.Minute), mock
}

func jobParams(rt domain.ReportType) domain.JobParams {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.JobParams{
		Index:      1,
		ReportType: rt,
		ND:         "0341234567",
		Start:      start,
		End:        start.Add(31*24*time.Hour - time.Second),
		Partition:  "P_202401",
	}
}

func TestFetch_OracleRemit(t *testing.T) {
	repo, mock := setupRepo(t, Oracle{})
	p := jobParams(domain.ReportRemit)

	mock.ExpectQuery(regexp.QuoteMeta("FROM MCOMMADM.TRANS_REPORT PARTITION (P_202401) tr")).
		WithArgs(
			sql.Named("nd", p.ND),
			sql.Named("date_debut", p.Start),
			sql.Named("date_fin", p.End),
		).
		WillReturnRows(sqlmock.NewRows([]string{"MODIFIED", "REFMVOLA", "AMOUNT", "DESCRIPTION"}).
			AddRow(p.Start, []byte("TX1"), 1500.5, nil).
			AddRow(p.Start.Add(time.Hour), []byte("TX2"), 20, "cash"))

	rows, err := repo.Fetch(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"MODIFIED", "REFMVOLA", "AMOUNT", "DESCRIPTION"}, rows[0].Keys())
	v, ok := rows[0].Get("REFMVOLA")
	assert.True(t, ok)
	assert.Equal(t, "TX1", v)
	v, _ = rows[0].Get("DESCRIPTION")
	assert.Nil(t, v)
	v, _ = rows[1].Get("DESCRIPTION")
	assert.Equal(t, "cash", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_PostgresUp(t *testing.T) {
	repo, mock := setupRepo(t, Postgres{})
	p := jobParams(domain.ReportUp)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mcommadm.p_202401 tr")).
		WithArgs(p.ND, p.Start, p.End).
		WillReturnRows(sqlmock.NewRows([]string{"DATE_TRANS", "N_TRANSACTION"}).
			AddRow(p.Start, "TX9"))

	rows, err := repo.Fetch(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_EmptyResultIsNotAnError(t *testing.T) {
	repo, mock := setupRepo(t, Postgres{})
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"DATE_TRANS"}))

	rows, err := repo.Fetch(context.Background(), jobParams(domain.ReportUp))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetch_QueryError(t *testing.T) {
	repo, mock := setupRepo(t, Oracle{})
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("ORA-14108: illegal partition-extended table name"))

	_, err := repo.Fetch(context.Background(), jobParams(domain.ReportRemit))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuery))
	assert.Contains(t, err.Error(), "ORA-14108")
}

func TestFetch_MalformedPartitionNeverReachesDatabase(t *testing.T) {
	repo, mock := setupRepo(t, Oracle{})
	p := jobParams(domain.ReportRemit)
	p.Partition = "P1) tr; DROP TABLE x --"

	_, err := repo.Fetch(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuery))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildQuery_Ordering(t *testing.T) {
	remit, err := buildQuery(Oracle{}, "MCOMMADM", jobParams(domain.ReportRemit))
	require.NoError(t, err)
	assert.Contains(t, remit.SQL, "ORDER BY tr.MODIFIED ASC")
	assert.Contains(t, remit.SQL, "GROUP BY")
	assert.Contains(t, remit.SQL, "LEFT JOIN MCOMMADM.TRANS_DATA td")

	up, err := buildQuery(Oracle{}, "MCOMMADM", jobParams(domain.ReportUp))
	require.NoError(t, err)
	assert.Contains(t, up.SQL, "ORDER BY tr.MODIFIED DESC")
	assert.NotContains(t, up.SQL, "TRANS_DATA")
}

func TestBuildQuery_ExcludesAdministrativeTypes(t *testing.T) {
	for _, rt := range domain.ReportTypes {
		q, err := buildQuery(Postgres{}, "MCOMMADM", jobParams(rt))
		require.NoError(t, err)
		for _, excluded := range ExcludedTransTypes {
			assert.Contains(t, q.SQL, "'"+excluded+"'", rt)
		}
		assert.Equal(t, 3, strings.Count(q.SQL, "$1"), "nd bound against initiator, creditor and debtor")
		assert.Len(t, q.Args, 3)
	}
}

func TestValidPartition(t *testing.T) {
	for _, ok := range []string{"P_202401", "SYS_P123", "p1", "P$1#"} {
		assert.True(t, ValidPartition(ok), ok)
	}
	for _, bad := range []string{"", "1P", "P 1", "P-1", "P1;", "P1)"} {
		assert.False(t, ValidPartition(bad), bad)
	}
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("oracle")
	require.NoError(t, err)
	assert.Equal(t, "oracle", d.Name())

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@localhost:5432/reports?sslmode=disable", DSN(config.DatabaseConfig{
		Driver: "postgres", Host: "localhost", Port: 5432, Service: "reports",
		User: "u", Password: "p", SSLMode: "disable",
	}))
	assert.Equal(t, "oracle://x", DSN(config.DatabaseConfig{Driver: "oracle", URL: "oracle://x"}))

	ora := DSN(config.DatabaseConfig{Driver: "oracle", Host: "db", Port: 1521, Service: "ORCL", User: "u", Password: "p"})
	assert.True(t, strings.HasPrefix(ora, "oracle://"), ora)
	assert.Contains(t, ora, "db:1521/ORCL")
}
