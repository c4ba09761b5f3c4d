package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

// timestamps are stored fixed-width so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

func (r *SQLiteRepository) AddEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (kind, description, category, amount_cents, entry_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.Description, e.Category, e.Amount.Cents, nullDate(e.Date), r.stamp())
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Entry{}, fmt.Errorf("entry id: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"kind", e.Kind,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) AddDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (description, amount_cents, due_date, created_date) VALUES (?, ?, ?, ?)`,
		d.Description, d.Amount.Cents, nullDate(d.DueDate), d.CreatedDate.String())
	if err != nil {
		return core.Debt{}, fmt.Errorf("insert debt: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return core.Debt{}, fmt.Errorf("debt id: %w", err)
	}

	slog.InfoContext(ctx, "Debt saved to SQLite", "id", d.ID, "amount_cents", d.Amount.Cents, "due_date", d.DueDate.String())
	return d, nil
}

func (r *SQLiteRepository) UpsertFixedCharge(ctx context.Context, f core.FixedCharge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fixed_charges (name, amount_cents, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = excluded.updated_at`,
		f.Name, f.Monthly.Cents, r.stamp())
	if err != nil {
		return fmt.Errorf("upsert fixed charge %s: %w", f.Name, err)
	}
	return nil
}

const entryColumns = `id, kind, description, category, amount_cents, entry_date`

func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, &core.NotFoundError{Resource: "entry", ID: id}
	}
	return e, err
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, "entries", id)
}

const debtColumns = `id, description, amount_cents, due_date, created_date`

func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+debtColumns+` FROM debts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetDebt(ctx context.Context, id int64) (core.Debt, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Debt{}, &core.NotFoundError{Resource: "debt", ID: id}
	}
	return d, err
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, "debts", id)
}

func (r *SQLiteRepository) ListFixedCharges(ctx context.Context) ([]core.FixedCharge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, amount_cents FROM fixed_charges ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list fixed charges: %w", err)
	}
	defer rows.Close()

	var out []core.FixedCharge
	for rows.Next() {
		var f core.FixedCharge
		if err := rows.Scan(&f.Name, &f.Monthly.Cents); err != nil {
			return nil, fmt.Errorf("scan fixed charge: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// deleteByID removes one row from a table owned by this package.
func (r *SQLiteRepository) deleteByID(ctx context.Context, table string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Row deleted from SQLite", "table", table, "id", id)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (core.Entry, error) {
	var (
		e    core.Entry
		kind string
		date sql.NullString
	)
	if err := s.Scan(&e.ID, &kind, &e.Description, &e.Category, &e.Amount.Cents, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan entry: %w", err)
	}
	e.Kind = core.EntryKind(kind)
	e.Date = parseNullDate(date)
	return e, nil
}

func scanDebt(s scanner) (core.Debt, error) {
	var (
		d       core.Debt
		due     sql.NullString
		created sql.NullString
	)
	if err := s.Scan(&d.ID, &d.Description, &d.Amount.Cents, &due, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scan debt: %w", err)
	}
	d.DueDate = parseNullDate(due)
	d.CreatedDate = parseNullDate(created)
	return d, nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) core.Date {
	if !s.Valid || s.String == "" {
		return core.Date{}
	}
	t, err := time.Parse(time.DateOnly, s.String)
	if err != nil {
		return core.Date{}
	}
	return core.DateOf(t)
}
