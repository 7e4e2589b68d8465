package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"studio-insights/models"
	"studio-insights/utils"
)

const insertBatchSize = 50

// dialect captures what differs between the SQL backends.
type dialect struct {
	name        string
	placeholder func(n int) string
	tableExists string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`,
	}
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
		tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	}
)

// SQLStore reads datasets from, and writes datasets to, one table per
// dataset in a SQL database. Tables are named after the dataset in
// snake_case (lateCancellations -> late_cancellations).
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *utils.Logger
}

// NewPostgresStore connects to PostgreSQL, retrying the initial ping with
// exponential back-off.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &SQLStore{db: db, dialect: postgresDialect, logger: logger}, nil
}

// NewSQLiteStore opens (creating if needed) the sqlite database at path.
func NewSQLiteStore(path string, logger *utils.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &SQLStore{db: db, dialect: sqliteDialect, logger: logger}, nil
}

// TableName returns the table a dataset is stored in.
func TableName(ds models.Dataset) string {
	var b strings.Builder
	for i, r := range string(ds) {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Load reads every dataset whose table exists. Column names in snake_case
// become camelCase record keys.
func (s *SQLStore) Load(ctx context.Context) (models.DataSources, error) {
	sources := make(models.DataSources)
	for _, ds := range models.AllDatasets() {
		table := TableName(ds)

		var n int
		if err := s.db.QueryRowContext(ctx, s.dialect.tableExists, table).Scan(&n); err != nil {
			return nil, fmt.Errorf("%s: look up table %s: %w", s.dialect.name, table, err)
		}
		if n == 0 {
			s.logger.Debug("[source] No %s table for dataset %s", s.dialect.name, ds)
			continue
		}

		records, err := s.loadTable(ctx, table)
		if err != nil {
			return nil, err
		}
		sources[ds] = records
		s.logger.Info("[source] Loaded %d %s records from %s table %s", len(records), ds, s.dialect.name, table)
	}
	return sources, nil
}

func (s *SQLStore) loadTable(ctx context.Context, table string) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", s.dialect.name, table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s: columns of %s: %w", s.dialect.name, table, err)
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = camelCase(c)
	}

	records := []models.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan %s row: %w", s.dialect.name, table, err)
		}

		rec := make(models.Record, len(cols))
		for i, v := range values {
			if v = sqlValue(v); v != nil {
				rec[keys[i]] = v
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// WriteDataset replaces the dataset's table contents with records. Columns
// are the union of record keys, stored as TEXT.
func (s *SQLStore) WriteDataset(ctx context.Context, ds models.Dataset, records []models.Record) error {
	table := TableName(ds)
	cols := recordColumns(records)
	if len(cols) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("%s: clear %s: %w", s.dialect.name, table, err)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c) + " TEXT"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("%s: create %s: %w", s.dialect.name, table, err)
	}

	for i := 0; i < len(records); i += insertBatchSize {
		end := min(i+insertBatchSize, len(records))
		if err := s.insertBatch(ctx, tx, table, cols, records[i:end]); err != nil {
			return fmt.Errorf("%s: insert into %s: %w", s.dialect.name, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit %s: %w", s.dialect.name, table, err)
	}
	s.logger.Info("[source] Stored %d %s records in %s table %s", len(records), ds, s.dialect.name, table)
	return nil
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, table string, cols []string, batch []models.Record) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*len(cols))
	n := 0
	for _, r := range batch {
		ph := make([]string, len(cols))
		for i, c := range cols {
			n++
			ph[i] = s.dialect.placeholder(n)
			if v, ok := r[c]; ok && v != nil {
				valueArgs = append(valueArgs, utils.Stringify(v))
			} else {
				valueArgs = append(valueArgs, nil)
			}
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(valueStrings, ","))
	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func recordColumns(records []models.Record) []string {
	set := utils.NewStringSet()
	for _, r := range records {
		for k := range r {
			set.Add(k)
		}
	}
	return set.Sorted()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// camelCase converts snake_case column names to record keys; names without
// underscores are kept as they are.
func camelCase(col string) string {
	if !strings.Contains(col, "_") {
		return col
	}
	parts := strings.Split(strings.ToLower(col), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

func sqlValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case int64:
		return float64(val)
	}
	return v
}
