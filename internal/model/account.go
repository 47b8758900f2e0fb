package model

import "fmt"

// AccountKind classifies accounts in the chart of accounts.
type AccountKind string

const (
	KindAsset     AccountKind = "asset"
	KindLiability AccountKind = "liability"
	KindEquity    AccountKind = "equity"
	KindRevenue   AccountKind = "revenue"
	KindExpense   AccountKind = "expense"
)

// Kinds lists every account kind in chart order.
var Kinds = []AccountKind{KindAsset, KindLiability, KindEquity, KindRevenue, KindExpense}

// ParseAccountKind converts a string to an AccountKind.
func ParseAccountKind(s string) (AccountKind, error) {
	k := AccountKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown account kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the five account kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case KindAsset, KindLiability, KindEquity, KindRevenue, KindExpense:
		return true
	}
	return false
}

// DebitNormal reports whether debits increase accounts of this kind.
// Assets and expenses are debit-normal; liabilities, equity and revenue are
// credit-normal.
func (k AccountKind) DebitNormal() bool {
	return k == KindAsset || k == KindExpense
}

// NormalSide returns the side that increases an account of this kind.
func (k AccountKind) NormalSide() Side {
	if k.DebitNormal() {
		return SideDebit
	}
	return SideCredit
}

// Account is one node of the chart of accounts. Parent and children are held
// as codes; the chart resolves them.
type Account struct {
	Code        string
	Name        string
	Kind        AccountKind
	ParentCode  string   // "" = root
	Children    []string // insertion order
	Postable    bool     // false = grouping-only
	Description string
}

// IsRoot reports whether the account has no parent.
func (a Account) IsRoot() bool {
	return a.ParentCode == ""
}

// IsLeaf reports whether the account has no children.
func (a Account) IsLeaf() bool {
	return len(a.Children) == 0
}
