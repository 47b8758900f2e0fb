package ledger

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partita-dev/partita/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var epoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return epoch }
}

// steppingClock returns start on the first call and advances by step on each
// later call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func defaultChart(t *testing.T) *Chart {
	t.Helper()
	c := NewChart()
	require.NoError(t, c.Restore(DefaultChart()))
	return c
}

// scenarioBooks builds Assets > Receivables and a Revenue root.
func scenarioBooks(t *testing.T) (*Chart, *Ledger) {
	t.Helper()
	return scenarioBooksWith(t, WithNow(fixedClock()))
}

func scenarioBooksWith(t *testing.T, opts ...Option) (*Chart, *Ledger) {
	t.Helper()
	c := NewChart()
	_, err := c.AddAccount("Assets", "Assets", model.KindAsset, "")
	require.NoError(t, err)
	_, err = c.AddAccount("Receivables", "Receivables", model.KindAsset, "Assets")
	require.NoError(t, err)
	_, err = c.AddAccount("Revenue", "Revenue", model.KindRevenue, "")
	require.NoError(t, err)
	return c, New(c, opts...)
}

func TestPostBatch(t *testing.T) {
	_, l := scenarioBooks(t)

	batch, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("100.00"), "invoice 1"),
		model.Credit("Revenue", dec("100.00"), "invoice 1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), batch)

	moves, err := l.Batch(batch)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, int64(1), moves[0].ID)
	assert.Equal(t, int64(2), moves[1].ID)
	assert.Equal(t, "Receivables", moves[0].AccountCode)
	assert.Equal(t, model.SideDebit, moves[0].Side)
	assert.Equal(t, model.SideCredit, moves[1].Side)
	assert.Equal(t, epoch, moves[0].Timestamp)
	assert.Equal(t, "invoice 1", moves[1].Description)
	assert.Nil(t, moves[0].DocumentRef)

	batch2, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("1.00"), ""),
		model.Credit("Revenue", dec("1.00"), ""),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), batch2)
	moves, err = l.Batch(batch2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), moves[0].ID, "ids continue across batches")
}

func TestPostBatch_Unbalanced(t *testing.T) {
	_, l := scenarioBooks(t)
	before := l.Len()

	_, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("100.00"), ""),
		model.Credit("Revenue", dec("90.00"), ""),
	})
	var unbal *model.UnbalancedBatchError
	require.ErrorAs(t, err, &unbal)
	assert.True(t, unbal.Debits.Equal(dec("100.00")))
	assert.True(t, unbal.Credits.Equal(dec("90.00")))
	assert.True(t, unbal.Difference().Equal(dec("10.00")))
	assert.Equal(t, before, l.Len())
}

func TestPostBatch_NoTolerance(t *testing.T) {
	_, l := scenarioBooks(t)

	_, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("100.001"), ""),
		model.Credit("Revenue", dec("100.00"), ""),
	})
	var unbal *model.UnbalancedBatchError
	require.ErrorAs(t, err, &unbal)
	assert.Zero(t, l.Len())
}

func TestPostBatch_NegativeAmount(t *testing.T) {
	_, l := scenarioBooks(t)
	_, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("10.00"), ""),
		model.Credit("Revenue", dec("10.00"), ""),
	})
	require.NoError(t, err)
	before := l.Len()

	_, err = l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("-10.00"), ""),
		model.Credit("Revenue", dec("-10.00"), ""),
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
	assert.Equal(t, 0, verr.Entry)
	assert.Equal(t, before, l.Len())
}

func TestPostBatch_UnknownAccount(t *testing.T) {
	_, l := scenarioBooks(t)

	_, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("10.00"), ""),
		model.Debit("Missing", dec("5.00"), ""),
		model.Credit("AlsoMissing", dec("15.00"), ""),
	})
	var unk *model.UnknownAccountError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, []string{"Missing", "AlsoMissing"}, unk.Codes)
	assert.Equal(t, []int{1, 2}, unk.Entries)
	assert.Contains(t, err.Error(), "entry 1: Missing")
	assert.Zero(t, l.Len())
}

func TestPostBatch_NotPostable(t *testing.T) {
	c := defaultChart(t)
	l := New(c, WithNow(fixedClock()))

	_, err := l.PostBatch([]model.Entry{
		model.Debit("1", dec("10.00"), ""),
		model.Credit("41", dec("10.00"), ""),
	})
	var np *model.NotPostableError
	require.ErrorAs(t, err, &np)
	assert.Equal(t, "1", np.Code)
	assert.Zero(t, l.Len())
}

func TestPostBatch_WithDocument(t *testing.T) {
	_, l := scenarioBooks(t)
	docID := uuid.New()

	batch, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("3.00"), ""),
		model.Credit("Revenue", dec("3.00"), ""),
	}, WithDocument(docID))
	require.NoError(t, err)

	moves, err := l.Batch(batch)
	require.NoError(t, err)
	for _, m := range moves {
		require.NotNil(t, m.DocumentRef)
		assert.Equal(t, docID, *m.DocumentRef)
	}
}

func TestDocumentBatches(t *testing.T) {
	_, l := scenarioBooks(t)
	docID, other := uuid.New(), uuid.New()
	post := func(opts ...BatchOption) int64 {
		batch, err := l.PostBatch([]model.Entry{
			model.Debit("Receivables", dec("1.00"), ""),
			model.Credit("Revenue", dec("1.00"), ""),
		}, opts...)
		require.NoError(t, err)
		return batch
	}

	first := post(WithDocument(docID))
	post(WithDocument(other))
	post()
	second := post(WithDocument(docID))
	assert.Equal(t, []int64{first, second}, l.DocumentBatches(docID))

	_, err := l.ReverseBatch(first)
	require.NoError(t, err)
	assert.Equal(t, []int64{second}, l.DocumentBatches(docID), "reversed batch and its reversal are out")
	assert.Empty(t, l.DocumentBatches(uuid.New()))
}

type failingMovementStore struct {
	calls int
	err   error
}

func (s *failingMovementStore) AppendMovements([]model.Movement) error {
	s.calls++
	return s.err
}

func TestPostBatch_StoreFailure(t *testing.T) {
	store := &failingMovementStore{err: errors.New("disk full")}
	c, l := scenarioBooksWith(t, WithNow(fixedClock()), WithMovementStore(store))

	_, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("10.00"), ""),
		model.Credit("Revenue", dec("10.00"), ""),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)
	assert.Equal(t, 1, store.calls)
	assert.Zero(t, l.Len())

	// Nothing committed: the account is still removable.
	require.NoError(t, c.RemoveAccount("Receivables"))

	// The failed batch does not consume ids.
	store.err = nil
	_, err = c.AddAccount("Receivables", "Receivables", model.KindAsset, "Assets")
	require.NoError(t, err)
	batch, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("10.00"), ""),
		model.Credit("Revenue", dec("10.00"), ""),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), batch)
}

func TestInvariant_DebitsEqualCredits(t *testing.T) {
	c := defaultChart(t)
	l := New(c, WithNow(fixedClock()))

	batches := [][]model.Entry{
		{model.Debit("113", dec("122.00"), ""), model.Credit("41", dec("100.00"), ""), model.Credit("212", dec("22.00"), "")},
		{model.Debit("113", dec("1.00"), ""), model.Credit("41", dec("2.00"), "")}, // rejected
		{model.Debit("112", dec("0.01"), ""), model.Debit("111", dec("0.02"), ""), model.Credit("31", dec("0.03"), "")},
	}
	for _, b := range batches {
		_, _ = l.PostBatch(b)
		debits, credits := l.Totals()
		assert.True(t, debits.Equal(credits), "debits %s != credits %s", debits, credits)
	}
	assert.Equal(t, 6, l.Len())
}

func TestReverseBatch(t *testing.T) {
	c, l := scenarioBooks(t)
	docID := uuid.New()

	batch, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("100.00"), "invoice"),
		model.Credit("Revenue", dec("100.00"), "invoice"),
	}, WithDocument(docID))
	require.NoError(t, err)

	rev, err := l.ReverseBatch(batch)
	require.NoError(t, err)
	assert.NotEqual(t, batch, rev)

	moves, err := l.Batch(rev)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, model.SideCredit, moves[0].Side)
	assert.Equal(t, "Receivables", moves[0].AccountCode)
	assert.Equal(t, model.SideDebit, moves[1].Side)
	assert.Equal(t, batch, moves[0].ReversalOf)
	assert.Equal(t, docID, *moves[0].DocumentRef)
	assert.Contains(t, moves[0].Description, "reversal of batch 1")

	for _, code := range []string{"Assets", "Receivables", "Revenue"} {
		bal, err := c.Balance(code)
		require.NoError(t, err)
		assert.True(t, bal.IsZero(), "%s should net to zero, got %s", code, bal)
	}

	by, ok := l.ReversedBy(batch)
	assert.True(t, ok)
	assert.Equal(t, rev, by)
}

func TestReverseBatch_Errors(t *testing.T) {
	_, l := scenarioBooks(t)

	_, err := l.ReverseBatch(42)
	var unk *model.UnknownBatchError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, int64(42), unk.BatchID)

	batch, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("1.00"), ""),
		model.Credit("Revenue", dec("1.00"), ""),
	})
	require.NoError(t, err)
	rev, err := l.ReverseBatch(batch)
	require.NoError(t, err)

	_, err = l.ReverseBatch(batch)
	var done *model.BatchReversedError
	require.ErrorAs(t, err, &done)
	assert.Equal(t, rev, done.ReversedBy)
	assert.Equal(t, 4, l.Len())
}

func TestMovementsFor(t *testing.T) {
	clock := steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour)
	c, l := scenarioBooksWith(t, WithNow(clock))
	_, err := c.AddAccount("Assets.Bank", "Bank", model.KindAsset, "Assets")
	require.NoError(t, err)

	post := func(code, amt string) {
		_, err := l.PostBatch([]model.Entry{
			model.Debit(code, dec(amt), ""),
			model.Credit("Revenue", dec(amt), ""),
		})
		require.NoError(t, err)
	}
	post("Receivables", "1.00") // Jan 1
	post("Assets.Bank", "2.00") // Jan 2
	post("Receivables", "3.00") // Jan 3
	post("Assets", "4.00")      // Jan 4

	amounts := func(code string, q Query) []string {
		seq, err := l.MovementsFor(code, q)
		require.NoError(t, err)
		var out []string
		for m := range seq {
			out = append(out, m.Amount.StringFixed(2))
		}
		return out
	}

	assert.Equal(t, []string{"1.00", "3.00"}, amounts("Receivables", Query{}))
	assert.Equal(t, []string{"4.00"}, amounts("Assets", Query{}))
	assert.Equal(t, []string{"1.00", "2.00", "3.00", "4.00"}, amounts("Assets", Query{Descendants: true}))
	assert.Equal(t, []string{"2.00", "3.00"}, amounts("Assets", Query{
		Descendants: true,
		From:        time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}))
	assert.Empty(t, amounts("Receivables", Query{From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}))

	_, err = l.MovementsFor("Nope", Query{})
	var unk *model.UnknownAccountError
	assert.ErrorAs(t, err, &unk)
}

func TestMovementsFor_OrderAndRestart(t *testing.T) {
	// The clock runs backwards: posting order differs from timestamp order.
	clock := steppingClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), -time.Hour)
	_, l := scenarioBooksWith(t, WithNow(clock))

	for _, amt := range []string{"1.00", "2.00"} {
		_, err := l.PostBatch([]model.Entry{
			model.Debit("Receivables", dec(amt), ""),
			model.Credit("Revenue", dec(amt), ""),
		})
		require.NoError(t, err)
	}

	seq, err := l.MovementsFor("Receivables", Query{})
	require.NoError(t, err)

	var first []int64
	for m := range seq {
		first = append(first, m.ID)
	}
	assert.Equal(t, []int64{3, 1}, first, "ascending timestamp, then id")

	// Early break stops iteration.
	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)

	// Ranging again observes later postings.
	_, err = l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("3.00"), ""),
		model.Credit("Revenue", dec("3.00"), ""),
	})
	require.NoError(t, err)
	var second []int64
	for m := range seq {
		second = append(second, m.ID)
	}
	assert.Equal(t, []int64{5, 3, 1}, second)
}

func TestRunningBalance(t *testing.T) {
	clock := steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour)
	_, l := scenarioBooksWith(t, WithNow(clock))

	post := func(debit, credit, amt string) {
		_, err := l.PostBatch([]model.Entry{
			model.Debit(debit, dec(amt), ""),
			model.Credit(credit, dec(amt), ""),
		})
		require.NoError(t, err)
	}
	post("Receivables", "Revenue", "100.00") // Jan 1
	post("Revenue", "Receivables", "30.00")  // Jan 2
	post("Receivables", "Revenue", "5.00")   // Jan 3

	balances := func(code string, q Query) []string {
		seq, err := l.RunningBalance(code, q)
		require.NoError(t, err)
		var out []string
		for _, bal := range seq {
			out = append(out, bal.StringFixed(2))
		}
		return out
	}

	assert.Equal(t, []string{"100.00", "70.00", "75.00"}, balances("Receivables", Query{}))
	assert.Equal(t, []string{"100.00", "70.00", "75.00"}, balances("Revenue", Query{}), "credit-normal")
	assert.Equal(t, []string{"70.00", "75.00"}, balances("Receivables", Query{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}), "starts from the balance before From")
	assert.Equal(t, []string{"70.00"}, balances("Receivables", Query{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 2, 23, 59, 59, 0, time.UTC),
	}))
	assert.Empty(t, balances("Assets", Query{}))
	assert.Equal(t, []string{"100.00", "70.00", "75.00"}, balances("Assets", Query{Descendants: true}))

	seq, err := l.RunningBalance("Receivables", Query{})
	require.NoError(t, err)
	for m, bal := range seq {
		assert.Equal(t, int64(1), m.ID)
		assert.Equal(t, "100.00", bal.StringFixed(2))
		break
	}

	_, err = l.RunningBalance("Nope", Query{})
	var unk *model.UnknownAccountError
	assert.ErrorAs(t, err, &unk)
}

func TestRestoreLedger(t *testing.T) {
	_, src := scenarioBooks(t)
	b1, err := src.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("10.00"), ""),
		model.Credit("Revenue", dec("10.00"), ""),
	})
	require.NoError(t, err)
	_, err = src.ReverseBatch(b1)
	require.NoError(t, err)

	c, l := scenarioBooks(t)
	require.NoError(t, l.Restore(src.Movements()))
	assert.Equal(t, 4, l.Len())

	_, err = l.ReverseBatch(b1)
	var done *model.BatchReversedError
	assert.ErrorAs(t, err, &done, "reversal links survive a restore")

	next, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("1.00"), ""),
		model.Credit("Revenue", dec("1.00"), ""),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), next)
	moves, err := l.Batch(next)
	require.NoError(t, err)
	assert.Equal(t, int64(5), moves[0].ID)

	bal, err := c.Balance("Assets")
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("1.00")))
}

func TestRestoreLedger_Unbalanced(t *testing.T) {
	_, l := scenarioBooks(t)
	err := l.Restore([]model.Movement{
		{ID: 1, BatchID: 1, AccountCode: "Receivables", Amount: dec("5.00"), Side: model.SideDebit, Timestamp: epoch},
		{ID: 2, BatchID: 1, AccountCode: "Revenue", Amount: dec("4.00"), Side: model.SideCredit, Timestamp: epoch},
	})
	var unbal *model.UnbalancedBatchError
	require.ErrorAs(t, err, &unbal)
	assert.Zero(t, l.Len())
}

func TestNew_PanicsOnSecondLedger(t *testing.T) {
	c := NewChart()
	New(c)
	assert.Panics(t, func() { New(c) })
}

func TestMovements_ReturnsCopy(t *testing.T) {
	_, l := scenarioBooks(t)
	_, err := l.PostBatch([]model.Entry{
		model.Debit("Receivables", dec("1.00"), ""),
		model.Credit("Revenue", dec("1.00"), ""),
	})
	require.NoError(t, err)

	moves := l.Movements()
	moves[0].Amount = dec("999")
	assert.True(t, slices.ContainsFunc(l.Movements(), func(m model.Movement) bool {
		return m.Amount.Equal(dec("1.00"))
	}))
	assert.False(t, slices.ContainsFunc(l.Movements(), func(m model.Movement) bool {
		return m.Amount.Equal(dec("999"))
	}))
}
