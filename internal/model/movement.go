package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the debit or credit column of a posting.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// ParseSide converts a string to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideDebit, SideCredit:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// Movement is a single committed posting against one account. Movements are
// never edited; corrections are new movements on the opposite side.
type Movement struct {
	ID          int64
	BatchID     int64
	AccountCode string
	Amount      decimal.Decimal // always > 0
	Side        Side
	Timestamp   time.Time
	DocumentRef *uuid.UUID
	ReversalOf  int64 // batch this movement reverses; 0 = none
	Description string
}

// Signed returns the amount signed by the natural side of kind: positive
// when the movement increases an account of that kind.
func (m Movement) Signed(kind AccountKind) decimal.Decimal {
	if m.Side == kind.NormalSide() {
		return m.Amount
	}
	return m.Amount.Neg()
}

// Entry is one requested posting in a batch, before it is committed.
type Entry struct {
	AccountCode string
	Amount      decimal.Decimal
	Side        Side
	Description string
}

// Debit builds a debit Entry.
func Debit(code string, amount decimal.Decimal, desc string) Entry {
	return Entry{AccountCode: code, Amount: amount, Side: SideDebit, Description: desc}
}

// Credit builds a credit Entry.
func Credit(code string, amount decimal.Decimal, desc string) Entry {
	return Entry{AccountCode: code, Amount: amount, Side: SideCredit, Description: desc}
}
