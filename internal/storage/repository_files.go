package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
)

func (r *SQLiteRepository) AddAttachment(ctx context.Context, a core.Attachment) (core.Attachment, error) {
	if a.UploadedAt.IsZero() {
		a.UploadedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attachments (owner_kind, description, period, file_name, data, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(a.Owner), a.Description, a.Period, a.FileName, a.Data, a.UploadedAt.UTC().Format(timeLayout))
	if err != nil {
		return core.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return core.Attachment{}, fmt.Errorf("attachment id: %w", err)
	}

	slog.InfoContext(ctx, "Attachment saved to SQLite", "id", a.ID, "period", a.Period, "bytes", len(a.Data))
	return a, nil
}

func (r *SQLiteRepository) ListAttachments(ctx context.Context, period string) ([]core.Attachment, error) {
	query := `SELECT id, owner_kind, description, period, file_name, uploaded_at FROM attachments`
	var args []any
	if period != "" {
		query += ` WHERE period = ?`
		args = append(args, period)
	}
	query += ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []core.Attachment
	for rows.Next() {
		var (
			a        core.Attachment
			owner    string
			uploaded string
		)
		if err := rows.Scan(&a.ID, &owner, &a.Description, &a.Period, &a.FileName, &uploaded); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		a.Owner = core.OwnerKind(owner)
		a.UploadedAt = parseStamp(uploaded)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetAttachment(ctx context.Context, id int64) (core.Attachment, error) {
	var (
		a        core.Attachment
		owner    string
		uploaded string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_kind, description, period, file_name, data, uploaded_at FROM attachments WHERE id = ?`, id).
		Scan(&a.ID, &owner, &a.Description, &a.Period, &a.FileName, &a.Data, &uploaded)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Attachment{}, &core.NotFoundError{Resource: "attachment", ID: id}
	}
	if err != nil {
		return core.Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	a.Owner = core.OwnerKind(owner)
	a.UploadedAt = parseStamp(uploaded)
	return a, nil
}

func (r *SQLiteRepository) AddPayslip(ctx context.Context, p core.Payslip) (core.Payslip, error) {
	if p.UploadedAt.IsZero() {
		p.UploadedAt = r.now()
	}
	if p.Status == "" {
		p.Status = core.PayslipAnalyzed
	}
	cols, err := analysisColumns(p.Analysis)
	if err != nil {
		return core.Payslip{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payslips (month_label, file_name, data, uploaded_at, status, net_cents, gross_cents, detected_date, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MonthLabel, p.FileName, p.Data, p.UploadedAt.UTC().Format(timeLayout), string(p.Status),
		cols.net, cols.gross, cols.date, cols.warnings)
	if err != nil {
		return core.Payslip{}, fmt.Errorf("insert payslip: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.Payslip{}, fmt.Errorf("payslip id: %w", err)
	}

	slog.InfoContext(ctx, "Payslip saved to SQLite", "id", p.ID, "month", p.MonthLabel, "bytes", len(p.Data))
	return p, nil
}

func (r *SQLiteRepository) UpdatePayslipAnalysis(ctx context.Context, id int64, status core.PayslipStatus, a core.PayslipAnalysis) error {
	cols, err := analysisColumns(a)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE payslips SET status = ?, net_cents = ?, gross_cents = ?, detected_date = ?, warnings = ? WHERE id = ?`,
		string(status), cols.net, cols.gross, cols.date, cols.warnings, id)
	if err != nil {
		return fmt.Errorf("update payslip analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Resource: "payslip", ID: id}
	}
	return nil
}

const payslipMetaColumns = `id, month_label, file_name, uploaded_at, status, net_cents, gross_cents, detected_date, warnings`

func (r *SQLiteRepository) ListPayslips(ctx context.Context) ([]core.Payslip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+payslipMetaColumns+` FROM payslips ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payslips: %w", err)
	}
	defer rows.Close()

	var out []core.Payslip
	for rows.Next() {
		p, err := scanPayslipMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetPayslip(ctx context.Context, id int64) (core.Payslip, error) {
	p, err := scanPayslipMeta(r.db.QueryRowContext(ctx,
		`SELECT `+payslipMetaColumns+` FROM payslips WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payslip{}, &core.NotFoundError{Resource: "payslip", ID: id}
	}
	if err != nil {
		return core.Payslip{}, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT data FROM payslips WHERE id = ?`, id).Scan(&p.Data); err != nil {
		return core.Payslip{}, fmt.Errorf("read payslip data: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) DeletePayslip(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, "payslips", id)
}

type payslipColumns struct {
	net, gross sql.NullInt64
	date       sql.NullString
	warnings   string
}

func analysisColumns(a core.PayslipAnalysis) (payslipColumns, error) {
	var c payslipColumns
	if a.NetAmount != nil {
		c.net = sql.NullInt64{Int64: a.NetAmount.Cents, Valid: true}
	}
	if a.GrossAmount != nil {
		c.gross = sql.NullInt64{Int64: a.GrossAmount.Cents, Valid: true}
	}
	if a.DetectedDate != nil {
		c.date = nullDate(*a.DetectedDate)
	}
	warnings := a.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	b, err := json.Marshal(warnings)
	if err != nil {
		return c, fmt.Errorf("encode payslip warnings: %w", err)
	}
	c.warnings = string(b)
	return c, nil
}

func scanPayslipMeta(s scanner) (core.Payslip, error) {
	var (
		p        core.Payslip
		uploaded string
		status   string
		cols     payslipColumns
	)
	if err := s.Scan(&p.ID, &p.MonthLabel, &p.FileName, &uploaded, &status,
		&cols.net, &cols.gross, &cols.date, &cols.warnings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan payslip: %w", err)
	}
	p.UploadedAt = parseStamp(uploaded)
	p.Status = core.PayslipStatus(status)
	if cols.net.Valid {
		m := core.FromCents(cols.net.Int64)
		p.Analysis.NetAmount = &m
	}
	if cols.gross.Valid {
		m := core.FromCents(cols.gross.Int64)
		p.Analysis.GrossAmount = &m
	}
	if d := parseNullDate(cols.date); !d.IsEmpty() {
		p.Analysis.DetectedDate = &d
	}
	if err := json.Unmarshal([]byte(cols.warnings), &p.Analysis.Warnings); err != nil {
		return p, fmt.Errorf("decode payslip warnings: %w", err)
	}
	return p, nil
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
