package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DuplicateCodeError is returned when an account code already exists.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("account %s already exists", e.Code)
}

// InvalidHierarchyError is returned when a parent is unknown or its kind does
// not match the child's.
type InvalidHierarchyError struct {
	Code       string
	ParentCode string
	Reason     string
}

func (e *InvalidHierarchyError) Error() string {
	return fmt.Sprintf("account %s under %s: %s", e.Code, e.ParentCode, e.Reason)
}

// UnknownAccountError names every code that did not resolve. Entries holds
// the batch index of each offending entry when raised by a posting.
type UnknownAccountError struct {
	Codes   []string
	Entries []int
}

func (e *UnknownAccountError) Error() string {
	if len(e.Entries) == 0 {
		return fmt.Sprintf("unknown account %s", strings.Join(e.Codes, ", "))
	}
	parts := make([]string, len(e.Codes))
	for i, c := range e.Codes {
		parts[i] = fmt.Sprintf("entry %d: %s", e.Entries[i], c)
	}
	return "unknown account in batch (" + strings.Join(parts, "; ") + ")"
}

// AccountInUseError is returned when removing an account that movements or
// child accounts still reference.
type AccountInUseError struct {
	Code      string
	Movements int
	Children  int
}

func (e *AccountInUseError) Error() string {
	if e.Children > 0 {
		return fmt.Sprintf("account %s has %d child accounts", e.Code, e.Children)
	}
	return fmt.Sprintf("account %s is referenced by %d movements", e.Code, e.Movements)
}

// NotPostableError is returned when a batch targets a grouping-only account.
type NotPostableError struct {
	Code  string
	Entry int
}

func (e *NotPostableError) Error() string {
	return fmt.Sprintf("entry %d: account %s is a grouping account and cannot be posted to", e.Entry, e.Code)
}

// UnbalancedBatchError reports the debit and credit totals of a rejected batch.
type UnbalancedBatchError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Difference returns debits minus credits.
func (e *UnbalancedBatchError) Difference() decimal.Decimal {
	return e.Debits.Sub(e.Credits)
}

func (e *UnbalancedBatchError) Error() string {
	return fmt.Sprintf("unbalanced batch: debits (%s) != credits (%s), difference %s",
		e.Debits.String(), e.Credits.String(), e.Difference().String())
}

// UnknownBatchError is returned for a batch id that was never committed.
type UnknownBatchError struct {
	BatchID int64
}

func (e *UnknownBatchError) Error() string {
	return fmt.Sprintf("unknown batch %d", e.BatchID)
}

// BatchReversedError is returned when a batch has already been reversed.
type BatchReversedError struct {
	BatchID    int64
	ReversedBy int64
}

func (e *BatchReversedError) Error() string {
	return fmt.Sprintf("batch %d already reversed by batch %d", e.BatchID, e.ReversedBy)
}

// InvalidStateError is a document lifecycle violation.
type InvalidStateError struct {
	Document string
	Op       string
	Current  DocumentStatus
	Required []DocumentStatus
	Reason   string
}

func (e *InvalidStateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot %s document %s in status %s", e.Op, e.Document, e.Current)
	if len(e.Required) > 0 {
		req := make([]string, len(e.Required))
		for i, s := range e.Required {
			req[i] = string(s)
		}
		fmt.Fprintf(&b, " (requires %s)", strings.Join(req, " or "))
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// ValidationError describes an input constraint violation. Entry is the
// batch or line index, or -1 when not applicable.
type ValidationError struct {
	Field  string
	Entry  int
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("entry %d: %s %q: %s", e.Entry, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// UnknownDocumentError is returned when a document id or number does not resolve.
type UnknownDocumentError struct {
	Ref string
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("unknown document %s", e.Ref)
}
