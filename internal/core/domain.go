package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	KindIncome  EntryKind = "entrada"
	KindExpense EntryKind = "gasto"
	KindDebt    EntryKind = "divida"

	OwnerFixed OwnerKind = "fixa"
	OwnerDebt  OwnerKind = "divida"

	// DefaultCategory is assigned to expenses submitted without a category.
	DefaultCategory = "outros"

	// MaxUploadBytes bounds every stored file.
	MaxUploadBytes = 10 << 20

	maxDescriptionLen = 200
)

type (
	EntryKind string
	OwnerKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Entry is an income or expense line. Category is only meaningful for expenses.
	Entry struct {
		ID          int64
		Kind        EntryKind
		Description string
		Amount      Money
		Category    string
		Date        Date
	}

	Debt struct {
		ID          int64
		Description string
		Amount      Money
		DueDate     Date
		CreatedDate Date
	}

	FixedCharge struct {
		Name    string
		Monthly Money
	}

	Attachment struct {
		ID          int64
		Owner       OwnerKind
		Description string
		Period      string
		FileName    string
		Data        []byte
		UploadedAt  time.Time
	}

	PayslipStatus string

	PayslipAnalysis struct {
		NetAmount    *Money
		GrossAmount  *Money
		DetectedDate *Date
		Warnings     []string
	}

	Payslip struct {
		ID         int64
		MonthLabel string
		FileName   string
		Data       []byte
		UploadedAt time.Time
		Status     PayslipStatus
		Analysis   PayslipAnalysis
	}

	// Ledger is a point-in-time copy of every dated record plus the fixed charges.
	Ledger struct {
		Incomes  []Entry
		Expenses []Entry
		Debts    []Debt
		Fixed    []FixedCharge
	}
)

// A payslip is Stored before it is analyzed, then moves to Analyzed or
// AnalysisFailed and stays there.
const (
	PayslipStored         PayslipStatus = "stored"
	PayslipAnalyzed       PayslipStatus = "analyzed"
	PayslipAnalysisFailed PayslipStatus = "analysis_failed"
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// IsEmpty reports whether the record carries no date.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" when empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// DaysUntil returns the number of whole calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// RecordDate implements Dated.
func (e Entry) RecordDate() Date { return e.Date }

// RecordDate implements Dated. Debts are placed on their due date when one
// was given, otherwise on the day they were registered.
func (d Debt) RecordDate() Date {
	if !d.DueDate.IsEmpty() {
		return d.DueDate
	}
	return d.CreatedDate
}

func (k EntryKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (k OwnerKind) Valid() bool {
	return k == OwnerFixed || k == OwnerDebt
}

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return &ValidationError{Field: "descricao", Err: ErrEmptyDescription}
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return &ValidationError{Field: "descricao", Err: ErrDescriptionTooLong}
	}
	return nil
}

func (e Entry) Validate() error {
	if !e.Kind.Valid() {
		return &ValidationError{Field: "tipo", Err: ErrUnknownEntryKind}
	}
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return &ValidationError{Field: "valor", Err: err}
	}
	return nil
}

func (d Debt) Validate() error {
	if err := validateDescription(d.Description); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return &ValidationError{Field: "valor", Err: err}
	}
	return nil
}

func (a Attachment) Validate() error {
	if !a.Owner.Valid() {
		return &ValidationError{Field: "tipo", Err: ErrUnknownOwnerKind}
	}
	if err := validateDescription(a.Description); err != nil {
		return err
	}
	if strings.TrimSpace(a.Period) == "" {
		return &ValidationError{Field: "mes_ano", Err: ErrEmptyPeriod}
	}
	return CheckUploadSize(len(a.Data))
}

// CheckUploadSize rejects blobs larger than MaxUploadBytes.
func CheckUploadSize(n int) error {
	if n > MaxUploadBytes {
		return &FileTooLargeError{Size: int64(n), Limit: MaxUploadBytes}
	}
	return nil
}

// AllEntries returns incomes followed by expenses.
func (l Ledger) AllEntries() []Entry {
	out := make([]Entry, 0, len(l.Incomes)+len(l.Expenses))
	out = append(out, l.Incomes...)
	return append(out, l.Expenses...)
}
