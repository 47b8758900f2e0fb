package documents

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/partita-dev/partita/internal/id"
	"github.com/partita-dev/partita/internal/model"
)

// DefaultDueDays is the payment term applied when a document has no due date.
const DefaultDueDays = 30

// Store durably upserts documents.
type Store interface {
	SaveDocument(d *Document) error
}

// BatchLookup finds the ledger batches recorded for a document.
// *ledger.Ledger implements it.
type BatchLookup interface {
	DocumentBatches(docID uuid.UUID) []int64
	Batch(batchID int64) ([]model.Movement, error)
}

// Service owns the set of documents: it assigns numbers and due dates,
// drives lifecycle transitions against the ledger and persists every change.
type Service struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*Document
	order   []uuid.UUID
	poster  BatchPoster
	batches BatchLookup // nil unless poster implements it
	accts   PostingAccounts
	store   Store
	check   CounterpartyValidator
	dueDays int
	now     func() time.Time
	log     logrus.FieldLogger
	valid   *validator.Validate
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore persists documents through s.
func WithStore(s Store) ServiceOption {
	return func(svc *Service) { svc.store = s }
}

// WithCounterpartyValidator checks counterparties on issue.
func WithCounterpartyValidator(v CounterpartyValidator) ServiceOption {
	return func(svc *Service) { svc.check = v }
}

// WithDueDays sets the default payment term in days.
func WithDueDays(days int) ServiceOption {
	return func(svc *Service) {
		if days > 0 {
			svc.dueDays = days
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) ServiceOption {
	return func(svc *Service) {
		if log != nil {
			svc.log = log
		}
	}
}

// NewService creates a Service posting through poster.
func NewService(poster BatchPoster, accts PostingAccounts, opts ...ServiceOption) *Service {
	s := &Service{
		docs:    make(map[uuid.UUID]*Document),
		poster:  poster,
		accts:   accts,
		dueDays: DefaultDueDays,
		now:     time.Now,
		log:     logrus.StandardLogger(),
		valid:   validator.New(validator.WithRequiredStructEnabled()),
	}
	s.batches, _ = poster.(BatchLookup)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads persisted documents. A document whose saved state lags the
// ledger (its batch was committed but saving the document failed) is moved
// forward to match the batches found there and saved again.
func (s *Service) Restore(docs []*Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range docs {
		if _, dup := s.docs[d.ID]; dup {
			return fmt.Errorf("duplicate document id %s", d.ID)
		}
		if d.Number != "" && s.byNumberLocked(d.Number) != nil {
			return fmt.Errorf("duplicate document number %s", d.Number)
		}
		next := d.Clone()
		if s.reconcileLocked(next) {
			s.logTransition(next, "document reconciled with ledger")
			if s.store != nil {
				if err := s.store.SaveDocument(next); err != nil {
					s.log.WithError(err).WithField("document", next.Ref()).Warn("saving reconciled document")
				}
			}
		}
		s.docs[d.ID] = next
		s.order = append(s.order, d.ID)
	}
	return nil
}

// reconcileLocked applies the posting and settlement batches the ledger
// holds for d but d does not reference yet. It reports whether d changed.
func (s *Service) reconcileLocked(d *Document) bool {
	if s.batches == nil {
		return false
	}
	var pending []int64
	for _, b := range s.batches.DocumentBatches(d.ID) {
		if b != d.postedBatch && b != d.settlementBatch {
			pending = append(pending, b)
		}
	}
	changed := false
	if d.status == model.StatusIssued && len(pending) > 0 {
		d.postedBatch, pending = pending[0], pending[1:]
		d.status = model.StatusPosted
		changed = true
	}
	if d.status == model.StatusPosted && d.Type != model.DocJournalEntry && len(pending) > 0 {
		moves, err := s.batches.Batch(pending[0])
		if err != nil || len(moves) == 0 {
			return changed
		}
		d.settlementBatch = pending[0]
		d.paidAt = moves[0].Timestamp
		d.status = model.StatusPaid
		changed = true
	}
	return changed
}

// CreateParams holds the header of a new document.
type CreateParams struct {
	Type         model.DocumentType `validate:"required,oneof=sales_invoice purchase_invoice credit_note journal_entry"`
	Counterparty string             `validate:"max=200"`
	IssueDate    time.Time
	DueDate      time.Time
	Corrects     string `validate:"omitempty,len=10"`
	Notes        string `validate:"max=1000"`
	Lines        []Line `validate:"dive"`
}

// Create builds a DRAFT document, assigns its number and persists it. The
// issue date defaults to today and the due date to issue date + due days.
func (s *Service) Create(p CreateParams) (*Document, error) {
	if err := s.valid.Struct(p); err != nil {
		return nil, createValidationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Corrects != "" {
		if p.Type != model.DocCreditNote {
			return nil, &model.ValidationError{Field: "corrects", Entry: -1, Value: p.Corrects, Reason: "only credit notes correct another document"}
		}
		orig := s.byNumberLocked(p.Corrects)
		if orig == nil || orig.Type != model.DocSalesInvoice {
			return nil, &model.ValidationError{Field: "corrects", Entry: -1, Value: p.Corrects, Reason: "must be the number of an existing sales invoice"}
		}
	}

	issue := p.IssueDate
	if issue.IsZero() {
		issue = dateOf(s.now())
	}
	due := p.DueDate
	if due.IsZero() {
		due = issue.AddDate(0, 0, s.dueDays)
	}
	if due.Before(issue) {
		return nil, &model.ValidationError{Field: "due_date", Entry: -1, Value: formatDate(due), Reason: "must not precede the issue date"}
	}

	number, err := id.NextDocNumber(p.Type, issue.Year(), s.numbersLocked())
	if err != nil {
		return nil, err
	}

	d := NewDocument(p.Type)
	d.Number = number
	d.Counterparty = p.Counterparty
	d.IssueDate = issue
	d.DueDate = due
	d.Corrects = p.Corrects
	d.Notes = p.Notes
	for _, l := range p.Lines {
		if err := d.AddLine(l); err != nil {
			return nil, err
		}
	}

	if err := s.commitLocked(d); err != nil {
		return nil, err
	}
	s.order = append(s.order, d.ID)
	s.logTransition(d, "document created")
	return d.Clone(), nil
}

// Get resolves a document by number or id.
func (s *Service) Get(ref string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(ref)
	if err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// List returns every document in creation order.
func (s *Service) List() []*Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Document, 0, len(s.order))
	for _, docID := range s.order {
		out = append(out, s.docs[docID].Clone())
	}
	return out
}

// Overdue returns ISSUED and POSTED documents past their due date on now,
// most overdue first.
func (s *Service) Overdue(now time.Time) []*Document {
	var out []*Document
	for _, d := range s.List() {
		if d.IsOverdue(now) {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b *Document) int {
		return a.DueDate.Compare(b.DueDate)
	})
	return out
}

// AddLine appends a line to a DRAFT document.
func (s *Service) AddLine(ref string, l Line) (*Document, error) {
	return s.apply(ref, "line added", func(d *Document) error { return d.AddLine(l) })
}

// SetLine replaces line i of a DRAFT document.
func (s *Service) SetLine(ref string, i int, l Line) (*Document, error) {
	return s.apply(ref, "line changed", func(d *Document) error { return d.SetLine(i, l) })
}

// RemoveLine deletes line i of a DRAFT document.
func (s *Service) RemoveLine(ref string, i int) (*Document, error) {
	return s.apply(ref, "line removed", func(d *Document) error { return d.RemoveLine(i) })
}

// Issue moves a document DRAFT → ISSUED.
func (s *Service) Issue(ref string) (*Document, error) {
	return s.apply(ref, "document issued", func(d *Document) error { return d.Issue(s.check) })
}

// Post commits the document's batch to the ledger and moves it to POSTED.
// It refuses when the ledger already holds a batch for the document.
func (s *Service) Post(ref string) (*Document, error) {
	return s.apply(ref, "document posted", func(d *Document) error {
		if s.batches != nil && d.status == model.StatusIssued {
			if live := s.batches.DocumentBatches(d.ID); len(live) > 0 {
				return &model.InvalidStateError{
					Document: d.Ref(), Op: "post", Current: d.status,
					Reason: fmt.Sprintf("ledger already holds batch %d for this document", live[0]),
				}
			}
		}
		return d.Post(s.poster, s.accts)
	})
}

// Void moves a DRAFT or ISSUED document to VOID.
func (s *Service) Void(ref string) (*Document, error) {
	return s.apply(ref, "document voided", func(d *Document) error { return d.Void() })
}

// Pay marks a POSTED document PAID at paidAt. With a cash account the
// settlement batch is posted first.
func (s *Service) Pay(ref string, paidAt time.Time, cash string) (*Document, error) {
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	return s.apply(ref, "document paid", func(d *Document) error {
		if cash == "" {
			return d.MarkPaid(paidAt)
		}
		return d.Settle(s.poster, s.accts, cash, paidAt)
	})
}

// apply runs fn on a copy of the document and keeps the copy only if fn
// succeeds. Once fn has touched the ledger the new state is kept in memory
// even when persisting it fails, since the movements are already committed.
func (s *Service) apply(ref, msg string, fn func(*Document) error) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.lookupLocked(ref)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := s.commitLocked(next); err != nil {
		return nil, err
	}
	s.logTransition(next, msg)
	return next.Clone(), nil
}

func (s *Service) commitLocked(d *Document) error {
	prev := s.docs[d.ID]
	if s.store != nil {
		if err := s.store.SaveDocument(d); err != nil {
			if prev != nil && touchedLedger(prev, d) {
				s.docs[d.ID] = d
			}
			return fmt.Errorf("saving document %s: %w", d.Ref(), err)
		}
	}
	s.docs[d.ID] = d
	return nil
}

func touchedLedger(prev, next *Document) bool {
	return prev.postedBatch != next.postedBatch || prev.settlementBatch != next.settlementBatch
}

func (s *Service) lookupLocked(ref string) (*Document, error) {
	if d := s.byNumberLocked(ref); d != nil {
		return d, nil
	}
	if docID, err := uuid.Parse(ref); err == nil {
		if d, ok := s.docs[docID]; ok {
			return d, nil
		}
	}
	return nil, &model.UnknownDocumentError{Ref: ref}
}

func (s *Service) byNumberLocked(number string) *Document {
	for _, d := range s.docs {
		if strings.EqualFold(d.Number, number) {
			return d
		}
	}
	return nil
}

func (s *Service) numbersLocked() []string {
	out := make([]string, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d.Number)
	}
	return out
}

func (s *Service) logTransition(d *Document, msg string) {
	s.log.WithFields(logrus.Fields{
		"document": d.Ref(),
		"type":     d.Type,
		"status":   d.status,
		"total":    d.GrandTotal().String(),
	}).Info(msg)
}

func createValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &model.ValidationError{
		Field:  toSnake(fe.Field()),
		Entry:  -1,
		Value:  fmt.Sprint(fe.Value()),
		Reason: "failed " + fe.Tag() + " check",
	}
}
