package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

// AccountChecker resolves account codes for batch validation.
type AccountChecker interface {
	Lookup(code string) (model.Account, bool)
}

// Lookup resolves a code. It implements AccountChecker.
func (c *Chart) Lookup(code string) (model.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(code)
}

// lockedChart is an AccountChecker for callers already holding the chart lock.
type lockedChart struct{ c *Chart }

func (l lockedChart) Lookup(code string) (model.Account, bool) {
	return l.c.lookupLocked(code)
}

// ValidateEntries checks a batch before it is committed. Checks run in order
// and the first failing group is returned:
//
//  1. the batch is non-empty, every side is debit or credit and every amount > 0
//     (ValidationError)
//  2. every account code resolves (UnknownAccountError naming all offenders)
//  3. every account accepts postings (NotPostableError)
//  4. sum(debits) == sum(credits) exactly (UnbalancedBatchError)
func ValidateEntries(entries []model.Entry, accounts AccountChecker) error {
	if len(entries) == 0 {
		return &model.ValidationError{Field: "batch", Entry: -1, Value: "", Reason: "batch has no entries"}
	}

	for i, e := range entries {
		if e.Side != model.SideDebit && e.Side != model.SideCredit {
			return &model.ValidationError{Field: "side", Entry: i, Value: string(e.Side), Reason: "must be debit or credit"}
		}
		if !e.Amount.IsPositive() {
			return &model.ValidationError{Field: "amount", Entry: i, Value: e.Amount.String(), Reason: "must be greater than zero"}
		}
	}

	var unknown model.UnknownAccountError
	resolved := make([]model.Account, len(entries))
	for i, e := range entries {
		acct, ok := accounts.Lookup(e.AccountCode)
		if !ok {
			unknown.Codes = append(unknown.Codes, e.AccountCode)
			unknown.Entries = append(unknown.Entries, i)
			continue
		}
		resolved[i] = acct
	}
	if len(unknown.Codes) > 0 {
		return &unknown
	}

	for i, acct := range resolved {
		if !acct.Postable {
			return &model.NotPostableError{Code: acct.Code, Entry: i}
		}
	}

	debits, credits := sumSides(entries)
	if !debits.Equal(credits) {
		return &model.UnbalancedBatchError{Debits: debits, Credits: credits}
	}
	return nil
}

func sumSides(entries []model.Entry) (debits, credits decimal.Decimal) {
	for _, e := range entries {
		if e.Side == model.SideDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("account_code", validAccountCode)
	return v
}

// validAccountCode allows letters, digits, '.', '-' and '_'.
func validAccountCode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// toValidationError converts the first validator failure into a
// model.ValidationError.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &model.ValidationError{
		Field:  strings.ToLower(fe.Field()),
		Entry:  -1,
		Value:  fmt.Sprint(fe.Value()),
		Reason: describeTag(fe),
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "account_code":
		return "may only contain letters, digits, '.', '-' and '_'"
	}
	return "failed " + fe.Tag() + " check"
}
