package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/partita-dev/partita/internal/model"
)

// AccountsHeader is the CSV header for chart-of-accounts.csv.
const AccountsHeader = "code,name,kind,parent_code,postable,description"

const (
	numAccountFields = 6
	colCode          = 0
	colName          = 1
	colKind          = 2
	colParent        = 3
	colPostable      = 4
	colAcctDesc      = 5
)

// ReadAccounts reads chart-of-accounts.csv. Rows are returned in file order,
// which keeps parents ahead of their children.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numAccountFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv including the header.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(AccountsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row. Children are not stored;
// they are rebuilt from parent codes on load.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numAccountFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colKind] = string(acct.Kind)
	row[colParent] = acct.ParentCode
	row[colPostable] = strconv.FormatBool(acct.Postable)
	row[colAcctDesc] = acct.Description
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numAccountFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numAccountFields, len(record))
	}

	if record[colCode] == "" {
		return model.Account{}, fmt.Errorf("empty account code")
	}

	kind, err := model.ParseAccountKind(record[colKind])
	if err != nil {
		return model.Account{}, err
	}

	postable, err := strconv.ParseBool(record[colPostable])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing postable %q: %w", record[colPostable], err)
	}

	return model.Account{
		Code:        record[colCode],
		Name:        record[colName],
		Kind:        kind,
		ParentCode:  record[colParent],
		Postable:    postable,
		Description: record[colAcctDesc],
	}, nil
}
