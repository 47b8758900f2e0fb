package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partita-dev/partita/internal/documents"
	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

func TestFileStore_Empty(t *testing.T) {
	s := New(t.TempDir())

	accts, err := s.LoadAccounts()
	require.NoError(t, err)
	assert.Nil(t, accts)

	moves, err := s.LoadMovements()
	require.NoError(t, err)
	assert.Nil(t, moves)

	docs, err := s.LoadDocuments()
	require.NoError(t, err)
	assert.Nil(t, docs)
}

func TestFileStore_Accounts(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	c := ledger.NewChart(ledger.WithAccountStore(s))
	_, err := c.AddAccount("1", "Assets", model.KindAsset, "", ledger.Grouping())
	require.NoError(t, err)
	_, err = c.AddAccount("11", "Cash", model.KindAsset, "1")
	require.NoError(t, err)
	_, err = c.AddAccount("12", "Bank", model.KindAsset, "1")
	require.NoError(t, err)
	require.NoError(t, c.RemoveAccount("11"))

	assert.FileExists(t, filepath.Join(dir, "accounts", "chart-of-accounts.csv"))

	got, err := s.LoadAccounts()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Code)
	assert.False(t, got[0].Postable)
	assert.Equal(t, "12", got[1].Code)
	assert.Equal(t, "1", got[1].ParentCode)

	require.NoError(t, s.UpsertAccount(model.Account{Code: "12", Name: "Main Bank", Kind: model.KindAsset, ParentCode: "1", Postable: true}))
	got, err = s.LoadAccounts()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Main Bank", got[1].Name)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "accounts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Movements(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	c := ledger.NewChart()
	require.NoError(t, c.Restore(ledger.DefaultChart()))
	l := ledger.New(c, ledger.WithMovementStore(s), ledger.WithNow(func() time.Time { return testTime }))

	b1, err := l.PostBatch([]model.Entry{
		model.Debit("111", dec("500"), "capital"),
		model.Credit("31", dec("500"), "capital"),
	})
	require.NoError(t, err)
	_, err = l.ReverseBatch(b1)
	require.NoError(t, err)
	_, err = l.PostBatch([]model.Entry{
		model.Debit("52", dec("0.333"), ""),
		model.Credit("111", dec("0.333"), ""),
	})
	require.NoError(t, err)

	moves, err := s.LoadMovements()
	require.NoError(t, err)
	require.Len(t, moves, 6)
	assert.Equal(t, l.Movements()[5].Amount.String(), moves[5].Amount.String())

	// A fresh ledger restored from disk carries on where the first stopped.
	c2 := ledger.NewChart()
	require.NoError(t, c2.Restore(ledger.DefaultChart()))
	l2 := ledger.New(c2, ledger.WithMovementStore(s), ledger.WithNow(func() time.Time { return testTime }))
	require.NoError(t, l2.Restore(moves))

	_, err = l2.ReverseBatch(b1)
	var done *model.BatchReversedError
	require.ErrorAs(t, err, &done)

	cash, err := c2.Balance("111")
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("-0.333")))

	next, err := l2.PostBatch([]model.Entry{
		model.Debit("111", dec("1"), ""),
		model.Credit("31", dec("1"), ""),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	moves, err = s.LoadMovements()
	require.NoError(t, err)
	assert.Len(t, moves, 8)
}

func TestFileStore_AppendFailureLeavesNoRows(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.AppendMovements(testMovements()))

	// A directory where the file should be makes the open fail.
	bad := New(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(bad.Root(), "ledger", "movements.csv"), 0o755))
	assert.Error(t, bad.AppendMovements(testMovements()))

	moves, err := s.LoadMovements()
	require.NoError(t, err)
	assert.Len(t, moves, 3)
}

func TestFileStore_Documents(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	c := ledger.NewChart()
	require.NoError(t, c.Restore(ledger.DefaultChart()))
	l := ledger.New(c)

	accts := documents.PostingAccounts{
		Receivables: "113", Revenue: "41", VATPayable: "212",
		Payables: "211", Expense: "52", VATReceivable: "114",
	}
	now := func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	svc := documents.NewService(l, accts, documents.WithStore(s), documents.WithNow(now))

	d, err := svc.Create(documents.CreateParams{
		Type:         model.DocSalesInvoice,
		Counterparty: "IT01234567890",
		Notes:        "first order",
		Lines: []documents.Line{
			{Description: "Widget", Quantity: dec("2"), UnitPrice: dec("50.00"), TaxRate: dec("0.22")},
			{Description: "Setup", Quantity: dec("1"), UnitPrice: dec("80"), TaxRate: dec("0.22"), Discount: dec("0.25"), CreditAccount: "42"},
		},
	})
	require.NoError(t, err)
	_, err = svc.Issue(d.Number)
	require.NoError(t, err)
	_, err = svc.Post(d.Number)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "documents", "FV20250001.yaml"))

	docs, err := s.LoadDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	got := docs[0]

	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, "FV20250001", got.Number)
	assert.Equal(t, model.DocSalesInvoice, got.Type)
	assert.Equal(t, model.StatusPosted, got.Status())
	assert.Equal(t, int64(1), got.PostedBatch())
	assert.Equal(t, "first order", got.Notes)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got.IssueDate)
	assert.Equal(t, time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), got.DueDate)
	require.Len(t, got.Lines(), 2)
	assert.Equal(t, "42", got.Lines()[1].CreditAccount)
	assert.True(t, got.Lines()[1].Discount.Equal(dec("0.25")))
	assert.True(t, got.GrandTotal().Equal(dec("195.20")), "totals recomputed from stored lines: %s", got.GrandTotal())

	svc2 := documents.NewService(l, accts, documents.WithStore(s), documents.WithNow(now))
	require.NoError(t, svc2.Restore(docs))
	next, err := svc2.Create(documents.CreateParams{Type: model.DocSalesInvoice})
	require.NoError(t, err)
	assert.Equal(t, "FV20250002", next.Number)
}

func TestFileStore_BadDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "documents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "documents", "FV20250001.yaml"), []byte("id: nope\n"), 0o644))

	_, err := New(dir).LoadDocuments()
	assert.ErrorContains(t, err, "FV20250001.yaml")
}
