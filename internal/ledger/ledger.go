package ledger

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/partita-dev/partita/internal/model"
)

// MovementStore durably appends committed movements. AppendMovements must
// write all movements or none.
type MovementStore interface {
	AppendMovements(moves []model.Movement) error
}

// Ledger is the append-only sequence of movements posted against a Chart.
type Ledger struct {
	chart     *Chart
	movements []model.Movement
	batches   map[int64]span
	reversed  map[int64]int64 // batch -> reversing batch
	refs      map[string]int  // account code -> movements ever posted
	nextID    int64
	nextBatch int64
	store     MovementStore
	now       func() time.Time
	log       logrus.FieldLogger
}

// span is a half-open index range into Ledger.movements.
type span struct{ start, end int }

// Option configures a Ledger.
type Option func(*Ledger)

// WithMovementStore persists every committed batch through s.
func WithMovementStore(s MovementStore) Option {
	return func(l *Ledger) { l.store = s }
}

// WithNow overrides the clock used to timestamp movements.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a Ledger posting against chart. Panics if chart already has a
// ledger.
func New(chart *Chart, opts ...Option) *Ledger {
	l := &Ledger{
		chart:     chart,
		batches:   make(map[int64]span),
		reversed:  make(map[int64]int64),
		refs:      make(map[string]int),
		nextID:    1,
		nextBatch: 1,
		now:       time.Now,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	chart.mu.Lock()
	defer chart.mu.Unlock()
	if chart.ledger != nil {
		panic("ledger: chart already has a ledger")
	}
	chart.ledger = l
	return l
}

// Chart returns the chart this ledger posts against.
func (l *Ledger) Chart() *Chart {
	return l.chart
}

// BatchOption adjusts a batch being posted.
type BatchOption func(*batchParams)

type batchParams struct {
	documentRef *uuid.UUID
	reversalOf  int64
}

// WithDocument records id as the source document of every movement.
func WithDocument(id uuid.UUID) BatchOption {
	return func(p *batchParams) { p.documentRef = &id }
}

// PostBatch validates entries and commits them atomically as one batch. On
// failure nothing is committed. Movements receive increasing ids in input
// order and share the returned batch id.
func (l *Ledger) PostBatch(entries []model.Entry, opts ...BatchOption) (int64, error) {
	var p batchParams
	for _, opt := range opts {
		opt(&p)
	}

	l.chart.mu.Lock()
	defer l.chart.mu.Unlock()

	return l.commitLocked(entries, p)
}

func (l *Ledger) commitLocked(entries []model.Entry, p batchParams) (int64, error) {
	if err := ValidateEntries(entries, lockedChart{l.chart}); err != nil {
		return 0, err
	}

	batchID := l.nextBatch
	at := l.now()
	moves := make([]model.Movement, len(entries))
	for i, e := range entries {
		moves[i] = model.Movement{
			ID:          l.nextID + int64(i),
			BatchID:     batchID,
			AccountCode: e.AccountCode,
			Amount:      e.Amount,
			Side:        e.Side,
			Timestamp:   at,
			DocumentRef: p.documentRef,
			ReversalOf:  p.reversalOf,
			Description: e.Description,
		}
	}

	if l.store != nil {
		if err := l.store.AppendMovements(moves); err != nil {
			return 0, fmt.Errorf("persisting batch %d: %w", batchID, err)
		}
	}
	l.appendLocked(moves)

	l.log.WithFields(logrus.Fields{
		"batch_id":  batchID,
		"movements": len(moves),
	}).Debug("batch committed")
	return batchID, nil
}

func (l *Ledger) appendLocked(moves []model.Movement) {
	batchID := moves[0].BatchID
	start := len(l.movements)
	l.movements = append(l.movements, moves...)
	l.batches[batchID] = span{start: start, end: len(l.movements)}
	for _, m := range moves {
		l.refs[m.AccountCode]++
	}
	if orig := moves[0].ReversalOf; orig != 0 {
		l.reversed[orig] = batchID
	}
	l.nextID = moves[len(moves)-1].ID + 1
	l.nextBatch = batchID + 1
}

// ReverseBatch posts a new batch with every movement of batchID on the
// opposite side, same accounts and amounts. A batch can be reversed once.
func (l *Ledger) ReverseBatch(batchID int64) (int64, error) {
	l.chart.mu.Lock()
	defer l.chart.mu.Unlock()

	sp, ok := l.batches[batchID]
	if !ok {
		return 0, &model.UnknownBatchError{BatchID: batchID}
	}
	if by, done := l.reversed[batchID]; done {
		return 0, &model.BatchReversedError{BatchID: batchID, ReversedBy: by}
	}

	orig := l.movements[sp.start:sp.end]
	entries := make([]model.Entry, len(orig))
	for i, m := range orig {
		entries[i] = model.Entry{
			AccountCode: m.AccountCode,
			Amount:      m.Amount,
			Side:        m.Side.Opposite(),
			Description: fmt.Sprintf("reversal of batch %d: %s", batchID, m.Description),
		}
	}
	return l.commitLocked(entries, batchParams{documentRef: orig[0].DocumentRef, reversalOf: batchID})
}

// ReversedBy returns the batch that reversed batchID, if any.
func (l *Ledger) ReversedBy(batchID int64) (int64, bool) {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()
	by, ok := l.reversed[batchID]
	return by, ok
}

// DocumentBatches returns, in posting order, the batches tagged with docID
// that are still in effect: reversals and reversed batches are left out.
func (l *Ledger) DocumentBatches(docID uuid.UUID) []int64 {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()

	var out []int64
	for i := 0; i < len(l.movements); i = l.batches[l.movements[i].BatchID].end {
		first := l.movements[i]
		if first.DocumentRef == nil || *first.DocumentRef != docID || first.ReversalOf != 0 {
			continue
		}
		if _, undone := l.reversed[first.BatchID]; undone {
			continue
		}
		out = append(out, first.BatchID)
	}
	return out
}

// Batch returns the movements of a committed batch in posting order.
func (l *Ledger) Batch(batchID int64) ([]model.Movement, error) {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()

	sp, ok := l.batches[batchID]
	if !ok {
		return nil, &model.UnknownBatchError{BatchID: batchID}
	}
	return slices.Clone(l.movements[sp.start:sp.end]), nil
}

// Movements returns every movement in posting order.
func (l *Ledger) Movements() []model.Movement {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()
	return slices.Clone(l.movements)
}

// Len returns the number of committed movements.
func (l *Ledger) Len() int {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()
	return len(l.movements)
}

// Totals returns the sum of all debits and all credits. They are always equal.
func (l *Ledger) Totals() (debits, credits decimal.Decimal) {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()

	for _, m := range l.movements {
		if m.Side == model.SideDebit {
			debits = debits.Add(m.Amount)
		} else {
			credits = credits.Add(m.Amount)
		}
	}
	return debits, credits
}

// Query restricts MovementsFor. Zero From/To leave that end open; both ends
// are inclusive.
type Query struct {
	From        time.Time
	To          time.Time
	Descendants bool
}

func (q Query) match(m model.Movement) bool {
	if !q.From.IsZero() && m.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && m.Timestamp.After(q.To) {
		return false
	}
	return true
}

// MovementsFor returns a lazy sequence of the movements of code (and its
// descendants when q.Descendants is set) ordered by timestamp then id. Each
// iteration reads the ledger afresh, so the sequence can be ranged over again
// to observe later postings.
func (l *Ledger) MovementsFor(code string, q Query) (iter.Seq[model.Movement], error) {
	if !l.chart.Exists(code) {
		return nil, &model.UnknownAccountError{Codes: []string{code}}
	}
	return func(yield func(model.Movement) bool) {
		for _, m := range l.collect(code, q) {
			if !yield(m) {
				return
			}
		}
	}, nil
}

// RunningBalance is MovementsFor paired with the balance of code after each
// movement, signed by the account's normal side. The first balance builds on
// everything posted before q.From.
func (l *Ledger) RunningBalance(code string, q Query) (iter.Seq2[model.Movement, decimal.Decimal], error) {
	acct, err := l.chart.Account(code)
	if err != nil {
		return nil, err
	}
	return func(yield func(model.Movement, decimal.Decimal) bool) {
		bal, moves := l.window(code, q)
		for _, m := range moves {
			bal = bal.Add(m.Signed(acct.Kind))
			if !yield(m, bal) {
				return
			}
		}
	}, nil
}

func (l *Ledger) collect(code string, q Query) []model.Movement {
	_, out := l.window(code, q)
	return out
}

// window returns the signed balance of code before q.From together with the
// movements matching q, in timestamp then id order.
func (l *Ledger) window(code string, q Query) (decimal.Decimal, []model.Movement) {
	l.chart.mu.RLock()
	defer l.chart.mu.RUnlock()

	n, ok := l.chart.nodes[code]
	if !ok {
		return decimal.Zero, nil
	}
	codes := map[string]bool{code: true}
	if q.Descendants {
		codes = l.chart.descendantsLocked(code)
	}
	kind := n.Kind

	opening := decimal.Zero
	var out []model.Movement
	for _, m := range l.movements {
		if !codes[m.AccountCode] {
			continue
		}
		if !q.From.IsZero() && m.Timestamp.Before(q.From) {
			opening = opening.Add(m.Signed(kind))
			continue
		}
		if q.match(m) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Movement) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return opening, out
}

// Restore replays persisted movements without writing them back. Each batch
// is re-validated and the id sequences resume after the highest restored ids.
func (l *Ledger) Restore(moves []model.Movement) error {
	l.chart.mu.Lock()
	defer l.chart.mu.Unlock()

	for start := 0; start < len(moves); {
		end := start + 1
		for end < len(moves) && moves[end].BatchID == moves[start].BatchID {
			end++
		}
		batch := moves[start:end]
		if err := l.restoreBatchLocked(batch); err != nil {
			return fmt.Errorf("restoring batch %d: %w", batch[0].BatchID, err)
		}
		start = end
	}
	return nil
}

func (l *Ledger) restoreBatchLocked(batch []model.Movement) error {
	if _, dup := l.batches[batch[0].BatchID]; dup || batch[0].BatchID < l.nextBatch {
		return fmt.Errorf("batch id %d out of sequence", batch[0].BatchID)
	}
	entries := make([]model.Entry, len(batch))
	for i, m := range batch {
		if m.ID < l.nextID+int64(i) {
			return fmt.Errorf("movement id %d out of sequence", m.ID)
		}
		entries[i] = model.Entry{AccountCode: m.AccountCode, Amount: m.Amount, Side: m.Side, Description: m.Description}
	}
	if err := ValidateEntries(entries, lockedChart{l.chart}); err != nil {
		return err
	}
	l.appendLocked(slices.Clone(batch))
	return nil
}
