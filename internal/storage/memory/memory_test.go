package memory

import (
	"context"
	"testing"

	"financas/internal/core"
	"financas/internal/storage"
	"financas/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, New())
}

func TestListEntriesReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.AddEntry(ctx, core.Entry{Kind: core.KindIncome, Description: "x", Amount: core.FromCents(1)}); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListEntries(ctx)
	list[0].Description = "changed"
	again, _ := s.ListEntries(ctx)
	if again[0].Description != "x" {
		t.Fatalf("store state leaked through returned slice")
	}
}

func TestLedgerSplitsByKind(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.AddEntry(ctx, core.Entry{Kind: core.KindIncome, Description: "in", Amount: core.FromCents(1)})
	s.AddEntry(ctx, core.Entry{Kind: core.KindExpense, Description: "out", Amount: core.FromCents(2)})
	s.UpsertFixedCharge(ctx, core.FixedCharge{Name: "Internet", Monthly: core.FromCents(3)})

	l, err := storage.Ledger(ctx, s)
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if len(l.Incomes) != 1 || len(l.Expenses) != 1 || len(l.Fixed) != 1 {
		t.Fatalf("unexpected ledger: %+v", l)
	}
}
