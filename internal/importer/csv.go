package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GenericParser reads "date,description,amount[,reference]" with ISO dates
// and a header row.
type GenericParser struct{}

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads a generic statement CSV.
func (p *GenericParser) Parse(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	return readRows(cr, "generic", func(rec []string) (Transaction, error) {
		if len(rec) != 3 && len(rec) != 4 {
			return Transaction{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(rec))
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing date %q: %w", rec[0], err)
		}
		amount, err := decimal.NewFromString(rec[2])
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[2], err)
		}
		tx := Transaction{Date: date, Description: rec[1], Amount: amount}
		if len(rec) == 4 {
			tx.Reference = rec[3]
		}
		return tx, nil
	})
}

// ChaseParser parses Chase checking CSV exports.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV.
func (p *ChaseParser) Parse(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	return readRows(cr, "chase", func(rec []string) (Transaction, error) {
		date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
		}
		amount, err := decimal.NewFromString(rec[chaseColAmount])
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
		}
		desc := rec[chaseColDesc]
		return Transaction{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Reference:   makeRef("chase", date, desc),
		}, nil
	})
}

// readRows skips the header and converts every remaining record.
func readRows(cr *csv.Reader, name string, row func([]string) (Transaction, error)) ([]Transaction, error) {
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", name, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	txns := make([]Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		tx, err := row(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

// makeRef creates a reference like chase_20250103_GITHUBPRO.
func makeRef(bank string, date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s_%s_%s", bank, date.Format("20060102"), prefix)
}
