// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/storage"
)

// Run exercises s through the storage ports. s must start empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	t.Run("entries", func(t *testing.T) { entries(t, s) })
	t.Run("debts", func(t *testing.T) { debts(t, s) })
	t.Run("fixed charges", func(t *testing.T) { fixedCharges(t, s) })
	t.Run("attachments", func(t *testing.T) { attachments(t, s) })
	t.Run("payslips", func(t *testing.T) { payslips(t, s) })
}

func entries(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first, err := s.AddEntry(ctx, core.Entry{
		Kind: core.KindExpense, Description: "Aluguel", Amount: core.FromCents(1000_00),
		Category: "moradia", Date: core.NewDate(2025, 4, 5),
	})
	if err != nil || first.ID == 0 {
		t.Fatalf("AddEntry: id=%d err=%v", first.ID, err)
	}
	second, err := s.AddEntry(ctx, core.Entry{
		Kind: core.KindIncome, Description: "Salário", Amount: core.FromCents(3000_00),
	})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	list, err := s.ListEntries(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListEntries: %v err=%v", list, err)
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("entries not in insertion order: %v", list)
	}
	if list[1].Date.IsEmpty() != true {
		t.Errorf("undated entry came back with date %s", list[1].Date)
	}

	got, err := s.GetEntry(ctx, first.ID)
	if err != nil || got.Description != "Aluguel" || got.Category != "moradia" ||
		got.Amount.Cents != 1000_00 || got.Date.String() != "2025-04-05" || got.Kind != core.KindExpense {
		t.Fatalf("GetEntry = %+v err=%v", got, err)
	}

	ok, err := s.DeleteEntry(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteEntry: ok=%v err=%v", ok, err)
	}
	ok, err = s.DeleteEntry(ctx, first.ID)
	if err != nil || ok {
		t.Fatalf("second DeleteEntry: ok=%v err=%v", ok, err)
	}
	if _, err := s.GetEntry(ctx, first.ID); !core.IsNotFound(err) {
		t.Fatalf("GetEntry after delete: %v", err)
	}
	if _, err := s.DeleteEntry(ctx, second.ID); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func debts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	d, err := s.AddDebt(ctx, core.Debt{
		Description: "Cartão", Amount: core.FromCents(250_00),
		DueDate: core.NewDate(2025, 4, 20), CreatedDate: core.NewDate(2025, 4, 1),
	})
	if err != nil {
		t.Fatalf("AddDebt: %v", err)
	}
	got, err := s.GetDebt(ctx, d.ID)
	if err != nil || got.DueDate.String() != "2025-04-20" || got.CreatedDate.String() != "2025-04-01" {
		t.Fatalf("GetDebt = %+v err=%v", got, err)
	}
	list, err := s.ListDebts(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListDebts = %v err=%v", list, err)
	}
	if ok, err := s.DeleteDebt(ctx, d.ID); err != nil || !ok {
		t.Fatalf("DeleteDebt: ok=%v err=%v", ok, err)
	}
	if _, err := s.GetDebt(ctx, d.ID); !core.IsNotFound(err) {
		t.Fatalf("GetDebt after delete: %v", err)
	}
}

func fixedCharges(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.UpsertFixedCharge(ctx, core.FixedCharge{Name: "Internet", Monthly: core.FromCents(100_00)}); err != nil {
		t.Fatalf("UpsertFixedCharge: %v", err)
	}
	if err := s.UpsertFixedCharge(ctx, core.FixedCharge{Name: "Energia", Monthly: core.FromCents(80_00)}); err != nil {
		t.Fatalf("UpsertFixedCharge: %v", err)
	}
	if err := s.UpsertFixedCharge(ctx, core.FixedCharge{Name: "Internet", Monthly: core.FromCents(120_00)}); err != nil {
		t.Fatalf("UpsertFixedCharge overwrite: %v", err)
	}
	list, err := s.ListFixedCharges(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListFixedCharges = %v err=%v", list, err)
	}
	got := map[string]int64{}
	for _, f := range list {
		got[f.Name] = f.Monthly.Cents
	}
	if got["Internet"] != 120_00 || got["Energia"] != 80_00 {
		t.Fatalf("fixed charges = %v", got)
	}
}

func attachments(t *testing.T, s storage.Store) {
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	add := func(period, desc string, at time.Time) core.Attachment {
		a, err := s.AddAttachment(ctx, core.Attachment{
			Owner: core.OwnerFixed, Description: desc, Period: period,
			FileName: desc + ".pdf", Data: []byte("%PDF-" + desc), UploadedAt: at,
		})
		if err != nil {
			t.Fatalf("AddAttachment: %v", err)
		}
		return a
	}
	older := add("03/2025", "luz", base)
	newer := add("03/2025", "agua", base.Add(time.Hour))
	other := add("04/2025", "gas", base.Add(2*time.Hour))

	march, err := s.ListAttachments(ctx, "03/2025")
	if err != nil || len(march) != 2 {
		t.Fatalf("ListAttachments(03/2025) = %v err=%v", march, err)
	}
	if march[0].ID != newer.ID || march[1].ID != older.ID {
		t.Fatalf("attachments not newest first: %v", march)
	}
	if march[0].Data != nil {
		t.Errorf("list should not carry file bytes")
	}

	all, err := s.ListAttachments(ctx, "")
	if err != nil || len(all) != 3 || all[0].ID != other.ID {
		t.Fatalf("ListAttachments(all) = %v err=%v", all, err)
	}

	got, err := s.GetAttachment(ctx, older.ID)
	if err != nil || !bytes.Equal(got.Data, []byte("%PDF-luz")) || got.Owner != core.OwnerFixed {
		t.Fatalf("GetAttachment = %+v err=%v", got, err)
	}
	if _, err := s.GetAttachment(ctx, 9999); !core.IsNotFound(err) {
		t.Fatalf("GetAttachment(unknown) = %v", err)
	}
}

func payslips(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p, err := s.AddPayslip(ctx, core.Payslip{
		MonthLabel: "03/2025", FileName: "holerite.pdf", Data: []byte("%PDF-1.4"),
		UploadedAt: time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddPayslip: %v", err)
	}

	net := core.FromCents(3250_00)
	date := core.NewDate(2025, 4, 5)
	analysis := core.PayslipAnalysis{NetAmount: &net, DetectedDate: &date, Warnings: []string{"valor bruto não encontrado"}}
	if err := s.UpdatePayslipAnalysis(ctx, p.ID, core.PayslipAnalyzed, analysis); err != nil {
		t.Fatalf("UpdatePayslipAnalysis: %v", err)
	}
	if err := s.UpdatePayslipAnalysis(ctx, 9999, core.PayslipAnalyzed, analysis); !core.IsNotFound(err) {
		t.Fatalf("UpdatePayslipAnalysis(unknown) = %v", err)
	}

	got, err := s.GetPayslip(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPayslip: %v", err)
	}
	if got.Analysis.NetAmount == nil || got.Analysis.NetAmount.Cents != 3250_00 ||
		got.Analysis.GrossAmount != nil || got.Analysis.DetectedDate == nil ||
		len(got.Analysis.Warnings) != 1 || !bytes.Equal(got.Data, []byte("%PDF-1.4")) {
		t.Fatalf("GetPayslip = %+v", got)
	}

	list, err := s.ListPayslips(ctx)
	if err != nil || len(list) != 1 || list[0].Data != nil {
		t.Fatalf("ListPayslips = %v err=%v", list, err)
	}

	if ok, err := s.DeletePayslip(ctx, p.ID); err != nil || !ok {
		t.Fatalf("DeletePayslip: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.DeletePayslip(ctx, p.ID); ok {
		t.Fatal("deleting twice should report false")
	}
	if _, err := s.GetPayslip(ctx, p.ID); !core.IsNotFound(err) {
		t.Fatalf("GetPayslip after delete: %v", err)
	}
}
