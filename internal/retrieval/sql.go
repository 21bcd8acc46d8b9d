package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/models"
)

// Dialect selects the placeholder style of the SQL store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const recordColumns = "metric_name, value, year, region, source, unit, domain"

type SQLRetriever struct {
	db      *sql.DB
	table   string
	dialect Dialect
	limit   int
	logger  logger.Logger
}

func NewSQLRetriever(db *sql.DB, table string, dialect Dialect, limit int, log logger.Logger) (*SQLRetriever, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &SQLRetriever{
		db:      db,
		table:   table,
		dialect: dialect,
		limit:   limit,
		logger:  logger.ForComponent(log, "retriever."+string(dialect)),
	}, nil
}

type argList struct {
	dialect Dialect
	args    []interface{}
}

func (a *argList) add(v interface{}) string {
	a.args = append(a.args, v)
	if a.dialect == DialectPostgres {
		return "$" + strconv.Itoa(len(a.args))
	}
	return "?"
}

// buildQuery renders the SELECT for q. Keyword and location matching is case
// insensitive.
func (r *SQLRetriever) buildQuery(q Query) (string, []interface{}) {
	args := &argList{dialect: r.dialect}
	var where []string

	if kws := q.MetricKeywords(); len(kws) > 0 {
		ors := make([]string, len(kws))
		for i, kw := range kws {
			ors[i] = "LOWER(metric_name) LIKE " + args.add("%"+kw+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if len(q.Locations) > 0 {
		ph := make([]string, len(q.Locations))
		for i, loc := range q.Locations {
			ph[i] = args.add(strings.ToLower(loc))
		}
		where = append(where, "LOWER(region) IN ("+strings.Join(ph, ", ")+")")
	}
	if tr := q.TimeRange; tr != nil {
		where = append(where, "year IS NOT NULL")
		if tr.From != 0 {
			where = append(where, "year >= "+args.add(tr.From))
		}
		if tr.To != 0 {
			where = append(where, "year <= "+args.add(tr.To))
		}
	}

	query := "SELECT " + recordColumns + " FROM " + r.table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// newest first so LIMIT drops the oldest years; Query re-sorts ascending
	query += " ORDER BY year IS NULL, year DESC, metric_name, region"

	limit := r.limit
	if q.Limit > 0 && (limit <= 0 || q.Limit < limit) {
		limit = q.Limit
	}
	if limit > 0 {
		query += " LIMIT " + args.add(limit)
	}
	return query, args.args
}

func (r *SQLRetriever) Query(ctx context.Context, q Query) ([]models.DataRecord, error) {
	query, args := r.buildQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryExecutionFailed, r.table, err)
	}
	defer rows.Close()

	var records []models.DataRecord
	for rows.Next() {
		var (
			rec                  models.DataRecord
			year                 sql.NullInt64
			region, unit, domain sql.NullString
		)
		if err := rows.Scan(&rec.MetricName, &rec.Value, &year, &region, &rec.Source, &unit, &domain); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrQueryExecutionFailed, err)
		}
		if year.Valid {
			rec.Year = models.YearOf(int(year.Int64))
		}
		rec.Region, rec.Unit, rec.Domain = region.String, unit.String, domain.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	SortRecords(records)
	r.logger.Debug("records fetched", map[string]interface{}{
		"table": r.table,
		"count": len(records),
	})
	return records, nil
}

// EnsureSchema creates the record table when it is missing.
func (r *SQLRetriever) EnsureSchema(ctx context.Context) error {
	valueType := "DOUBLE PRECISION"
	if r.dialect == DialectSQLite {
		valueType = "REAL"
	}
	ddl := "CREATE TABLE IF NOT EXISTS " + r.table + ` (
	metric_name TEXT NOT NULL,
	value ` + valueType + ` NOT NULL,
	year INTEGER,
	region TEXT,
	source TEXT NOT NULL,
	unit TEXT,
	domain TEXT
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

// Seed inserts records in one transaction.
func (r *SQLRetriever) Seed(ctx context.Context, records []models.DataRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := &argList{dialect: r.dialect}
	ph := make([]string, 7)
	for i := range ph {
		ph[i] = args.add(nil)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+r.table+" ("+recordColumns+") VALUES ("+strings.Join(ph, ", ")+")")
	if err != nil {
		return fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var year interface{}
		if rec.Year != nil {
			year = *rec.Year
		}
		if _, err := stmt.ExecContext(ctx, rec.MetricName, rec.Value, year, nullable(rec.Region), rec.Source, nullable(rec.Unit), nullable(rec.Domain)); err != nil {
			return fmt.Errorf("insert %s: %w", rec.MetricName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	r.logger.Info("records seeded", map[string]interface{}{
		"table": r.table,
		"count": len(records),
	})
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
