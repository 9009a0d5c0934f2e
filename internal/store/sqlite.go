package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tidder/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ CompanyStore = (*SQLiteStore)(nil)
var _ QuoteStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS companies (
	symbol   TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	sector   TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS quotes (
	symbol         TEXT PRIMARY KEY,
	price          REAL NOT NULL,
	prev_close     REAL NOT NULL,
	day_high       REAL NOT NULL,
	day_low        REAL NOT NULL,
	year_high      REAL NOT NULL,
	year_low       REAL NOT NULL,
	volume         INTEGER NOT NULL,
	avg_volume     INTEGER NOT NULL,
	market_cap     REAL,
	pe             REAL,
	eps            REAL,
	dividend_yield REAL,
	book_value     REAL,
	updated_at     INTEGER NOT NULL
);
`

// SQLiteStore implements CompanyStore and QuoteStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// CompanyStore implementation
// ---------------------------------------------------------------------------

// UpsertCompanies replaces the given companies in one transaction.
func (s *SQLiteStore) UpsertCompanies(ctx context.Context, companies []domain.Company) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO companies
		(symbol, name, sector, industry, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range companies {
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Name, c.Sector, c.Industry, i); err != nil {
			return fmt.Errorf("upserting company %s: %w", c.Symbol, err)
		}
	}
	return tx.Commit()
}

// ListCompanies returns all companies in listing order.
func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, name, sector, industry FROM companies ORDER BY position, symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.Symbol, &c.Name, &c.Sector, &c.Industry); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCompany returns the company with the given symbol.
func (s *SQLiteStore) GetCompany(ctx context.Context, symbol string) (domain.Company, error) {
	var c domain.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, name, sector, industry FROM companies WHERE symbol = ?`, symbol).
		Scan(&c.Symbol, &c.Name, &c.Sector, &c.Industry)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ---------------------------------------------------------------------------
// QuoteStore implementation
// ---------------------------------------------------------------------------

const quoteColumns = `symbol, price, prev_close, day_high, day_low, year_high, year_low,
	volume, avg_volume, market_cap, pe, eps, dividend_yield, book_value, updated_at`

// UpsertQuote inserts or replaces the latest quote for a symbol.
func (s *SQLiteStore) UpsertQuote(ctx context.Context, q domain.QuoteRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO quotes (`+quoteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Symbol, q.Price, q.PrevClose, q.DayHigh, q.DayLow, q.YearHigh, q.YearLow,
		q.Volume, q.AvgVolume,
		nullFloat(q.MarketCap), nullFloat(q.PE), nullFloat(q.EPS),
		nullFloat(q.DividendYield), nullFloat(q.BookValue),
		q.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upserting quote %s: %w", q.Symbol, err)
	}
	return nil
}

// GetQuote returns the latest quote for a symbol.
func (s *SQLiteStore) GetQuote(ctx context.Context, symbol string) (domain.QuoteRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE symbol = ?`, symbol)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return q, ErrNotFound
	}
	return q, err
}

// ListQuotes returns every stored quote keyed by symbol.
func (s *SQLiteStore) ListQuotes(ctx context.Context) (map[string]domain.QuoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.QuoteRecord)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out[q.Symbol] = q
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(sc scanner) (domain.QuoteRecord, error) {
	var (
		q                     domain.QuoteRecord
		mcap, pe, eps, dy, bv sql.NullFloat64
		updated               int64
	)
	err := sc.Scan(&q.Symbol, &q.Price, &q.PrevClose, &q.DayHigh, &q.DayLow,
		&q.YearHigh, &q.YearLow, &q.Volume, &q.AvgVolume,
		&mcap, &pe, &eps, &dy, &bv, &updated)
	if err != nil {
		return q, err
	}
	q.MarketCap = fromNull(mcap)
	q.PE = fromNull(pe)
	q.EPS = fromNull(eps)
	q.DividendYield = fromNull(dy)
	q.BookValue = fromNull(bv)
	q.UpdatedAt = time.UnixMilli(updated)
	return q, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}
