// Package ledger holds the chart of accounts and the movement ledger posted
// against it. Both share one lock: a batch commit and an account change are
// never interleaved, and readers see all or none of a batch.
package ledger

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

// AccountStore persists chart changes. It is called before the in-memory
// chart is modified, so a failed write leaves the chart untouched.
type AccountStore interface {
	UpsertAccount(acct model.Account) error
	DeleteAccount(code string) error
}

// Chart owns every account node, indexed by code.
type Chart struct {
	mu       sync.RWMutex
	nodes    map[string]*model.Account
	order    []string
	store    AccountStore
	ledger   *Ledger
	validate *validator.Validate
}

// ChartOption configures a Chart.
type ChartOption func(*Chart)

// WithAccountStore persists every add and remove through s.
func WithAccountStore(s AccountStore) ChartOption {
	return func(c *Chart) { c.store = s }
}

// NewChart creates an empty chart.
func NewChart(opts ...ChartOption) *Chart {
	c := &Chart{
		nodes:    make(map[string]*model.Account),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccountOption adjusts an account being added.
type AccountOption func(*model.Account)

// Grouping marks the account as grouping-only: it aggregates its children and
// rejects direct postings.
func Grouping() AccountOption {
	return func(a *model.Account) { a.Postable = false }
}

// WithDescription sets the account description.
func WithDescription(desc string) AccountOption {
	return func(a *model.Account) { a.Description = desc }
}

type accountInput struct {
	Code        string `validate:"required,max=20,account_code"`
	Name        string `validate:"required,max=200"`
	Kind        string `validate:"required,oneof=asset liability equity revenue expense"`
	ParentCode  string `validate:"omitempty,max=20,account_code"`
	Description string `validate:"max=500"`
}

// AddAccount adds an account under parentCode ("" for a root). The kind must
// match the parent's kind.
func (c *Chart) AddAccount(code, name string, kind model.AccountKind, parentCode string, opts ...AccountOption) (model.Account, error) {
	acct := model.Account{
		Code:       code,
		Name:       name,
		Kind:       kind,
		ParentCode: parentCode,
		Postable:   true,
	}
	for _, opt := range opts {
		opt(&acct)
	}

	if err := c.validate.Struct(accountInput{
		Code:        acct.Code,
		Name:        acct.Name,
		Kind:        string(acct.Kind),
		ParentCode:  acct.ParentCode,
		Description: acct.Description,
	}); err != nil {
		return model.Account{}, toValidationError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkAddLocked(acct); err != nil {
		return model.Account{}, err
	}
	if c.store != nil {
		if err := c.store.UpsertAccount(acct); err != nil {
			return model.Account{}, fmt.Errorf("persisting account %s: %w", code, err)
		}
	}
	c.insertLocked(acct)
	return cloneAccount(&acct), nil
}

func (c *Chart) checkAddLocked(acct model.Account) error {
	if _, ok := c.nodes[acct.Code]; ok {
		return &model.DuplicateCodeError{Code: acct.Code}
	}
	if acct.ParentCode == "" {
		return nil
	}
	if acct.ParentCode == acct.Code {
		return &model.InvalidHierarchyError{Code: acct.Code, ParentCode: acct.ParentCode, Reason: "account cannot be its own parent"}
	}
	parent, ok := c.nodes[acct.ParentCode]
	if !ok {
		return &model.InvalidHierarchyError{Code: acct.Code, ParentCode: acct.ParentCode, Reason: "unknown parent"}
	}
	if parent.Kind != acct.Kind {
		return &model.InvalidHierarchyError{
			Code:       acct.Code,
			ParentCode: acct.ParentCode,
			Reason:     fmt.Sprintf("kind %s does not match parent kind %s", acct.Kind, parent.Kind),
		}
	}
	return nil
}

func (c *Chart) insertLocked(acct model.Account) {
	acct.Children = nil
	c.nodes[acct.Code] = &acct
	c.order = append(c.order, acct.Code)
	if acct.ParentCode != "" {
		parent := c.nodes[acct.ParentCode]
		parent.Children = append(parent.Children, acct.Code)
	}
}

// Restore loads persisted accounts without writing them back to the store.
// Parents must precede their children.
func (c *Chart) Restore(accounts []model.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, acct := range accounts {
		if !acct.Kind.Valid() {
			return &model.ValidationError{Field: "kind", Entry: -1, Value: string(acct.Kind), Reason: "unknown account kind"}
		}
		if err := c.checkAddLocked(acct); err != nil {
			return fmt.Errorf("restoring account %s: %w", acct.Code, err)
		}
		c.insertLocked(acct)
	}
	return nil
}

// Account returns the account with the given code.
func (c *Chart) Account(code string) (model.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[code]
	if !ok {
		return model.Account{}, &model.UnknownAccountError{Codes: []string{code}}
	}
	return cloneAccount(n), nil
}

// Exists reports whether an account code exists.
func (c *Chart) Exists(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.nodes[code]
	return ok
}

// Accounts returns all accounts in insertion order.
func (c *Chart) Accounts() []model.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountsLocked()
}

func (c *Chart) accountsLocked() []model.Account {
	out := make([]model.Account, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, cloneAccount(c.nodes[code]))
	}
	return out
}

// Roots returns the top-level accounts in insertion order.
func (c *Chart) Roots() []model.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Account
	for _, code := range c.order {
		if n := c.nodes[code]; n.IsRoot() {
			out = append(out, cloneAccount(n))
		}
	}
	return out
}

// ByKind returns all accounts of the given kind.
func (c *Chart) ByKind(kind model.AccountKind) []model.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Account
	for _, code := range c.order {
		if n := c.nodes[code]; n.Kind == kind {
			out = append(out, cloneAccount(n))
		}
	}
	return out
}

// Children returns the direct children of code in insertion order.
func (c *Chart) Children(code string) ([]model.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[code]
	if !ok {
		return nil, &model.UnknownAccountError{Codes: []string{code}}
	}
	out := make([]model.Account, 0, len(n.Children))
	for _, ch := range n.Children {
		out = append(out, cloneAccount(c.nodes[ch]))
	}
	return out, nil
}

// Path returns the chain of accounts from the root down to code.
func (c *Chart) Path(code string) ([]model.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[code]
	if !ok {
		return nil, &model.UnknownAccountError{Codes: []string{code}}
	}
	var path []model.Account
	for n != nil {
		path = append(path, cloneAccount(n))
		n = c.nodes[n.ParentCode]
	}
	slices.Reverse(path)
	return path, nil
}

// FullName joins the names along the account's path, e.g.
// "Assets > Current Assets > Cash".
func (c *Chart) FullName(code string) (string, error) {
	path, err := c.Path(code)
	if err != nil {
		return "", err
	}
	name := ""
	for i, a := range path {
		if i > 0 {
			name += " > "
		}
		name += a.Name
	}
	return name, nil
}

// Level returns the depth of code; roots are level 1.
func (c *Chart) Level(code string) (int, error) {
	path, err := c.Path(code)
	if err != nil {
		return 0, err
	}
	return len(path), nil
}

// RemoveAccount deletes an account. It fails if any movement has ever
// referenced it or if it still has children.
func (c *Chart) RemoveAccount(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[code]
	if !ok {
		return &model.UnknownAccountError{Codes: []string{code}}
	}
	if c.ledger != nil {
		if refs := c.ledger.refs[code]; refs > 0 {
			return &model.AccountInUseError{Code: code, Movements: refs}
		}
	}
	if len(n.Children) > 0 {
		return &model.AccountInUseError{Code: code, Children: len(n.Children)}
	}
	if c.store != nil {
		if err := c.store.DeleteAccount(code); err != nil {
			return fmt.Errorf("deleting account %s: %w", code, err)
		}
	}

	if n.ParentCode != "" {
		parent := c.nodes[n.ParentCode]
		parent.Children = slices.DeleteFunc(parent.Children, func(s string) bool { return s == code })
	}
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == code })
	delete(c.nodes, code)
	return nil
}

// Balance returns the balance of code including all descendants, signed by
// the account's normal side: for assets and expenses debits minus credits,
// for liabilities, equity and revenue credits minus debits.
func (c *Chart) Balance(code string) (decimal.Decimal, error) {
	return c.BalanceAsOf(code, time.Time{})
}

// BalanceAsOf is Balance restricted to movements with timestamp <= asOf.
// A zero asOf includes every movement.
func (c *Chart) BalanceAsOf(code string, asOf time.Time) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.nodes[code]; !ok {
		return decimal.Zero, &model.UnknownAccountError{Codes: []string{code}}
	}
	return newBalanceFold(c, asOf).total(code), nil
}

// OwnBalance is the balance of movements posted directly to code, excluding
// descendants.
func (c *Chart) OwnBalance(code string, asOf time.Time) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.nodes[code]; !ok {
		return decimal.Zero, &model.UnknownAccountError{Codes: []string{code}}
	}
	return newBalanceFold(c, asOf).own[code], nil
}

// Balances returns the recursive balance of every account as of asOf.
func (c *Chart) Balances(asOf time.Time) map[string]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f := newBalanceFold(c, asOf)
	out := make(map[string]decimal.Decimal, len(c.nodes))
	for code := range c.nodes {
		out[code] = f.total(code)
	}
	return out
}

// Snapshot is a consistent view of the chart and the ledger taken under one
// read lock.
type Snapshot struct {
	Accounts  []model.Account
	Movements []model.Movement
}

// Snapshot returns every account and committed movement.
func (c *Chart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{Accounts: c.accountsLocked()}
	if c.ledger != nil {
		s.Movements = slices.Clone(c.ledger.movements)
	}
	return s
}

// balanceFold computes recursive balances for one query. Results are
// memoized for the duration of the query only.
type balanceFold struct {
	c    *Chart
	own  map[string]decimal.Decimal
	memo map[string]decimal.Decimal
}

func newBalanceFold(c *Chart, asOf time.Time) *balanceFold {
	f := &balanceFold{
		c:    c,
		own:  make(map[string]decimal.Decimal),
		memo: make(map[string]decimal.Decimal),
	}
	if c.ledger == nil {
		return f
	}
	for _, m := range c.ledger.movements {
		if !asOf.IsZero() && m.Timestamp.After(asOf) {
			continue
		}
		n, ok := c.nodes[m.AccountCode]
		if !ok {
			continue
		}
		f.own[m.AccountCode] = f.own[m.AccountCode].Add(m.Signed(n.Kind))
	}
	return f
}

func (f *balanceFold) total(code string) decimal.Decimal {
	if v, ok := f.memo[code]; ok {
		return v
	}
	sum := f.own[code]
	for _, ch := range f.c.nodes[code].Children {
		sum = sum.Add(f.total(ch))
	}
	f.memo[code] = sum
	return sum
}

// lookupLocked resolves a code while the caller holds the lock.
func (c *Chart) lookupLocked(code string) (model.Account, bool) {
	n, ok := c.nodes[code]
	if !ok {
		return model.Account{}, false
	}
	return *n, true
}

// descendantsLocked returns code and every account below it.
func (c *Chart) descendantsLocked(code string) map[string]bool {
	set := map[string]bool{code: true}
	stack := []string{code}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := c.nodes[cur]
		if !ok {
			continue
		}
		for _, ch := range n.Children {
			set[ch] = true
			stack = append(stack, ch)
		}
	}
	return set
}

func cloneAccount(a *model.Account) model.Account {
	out := *a
	out.Children = slices.Clone(a.Children)
	return out
}
