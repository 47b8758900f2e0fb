package id

import (
	"fmt"
	"strconv"

	"github.com/partita-dev/partita/internal/model"
)

const (
	prefixLen = 2
	yearLen   = 4
	seqLen    = 4

	// MaxSeq is the last sequence number that fits a document number.
	MaxSeq = 9999
)

var prefixes = map[model.DocumentType]string{
	model.DocSalesInvoice:    "FV",
	model.DocPurchaseInvoice: "FA",
	model.DocCreditNote:      "NC",
	model.DocJournalEntry:    "PN",
}

// PrefixFor returns the two-letter number prefix for a document type.
func PrefixFor(t model.DocumentType) (string, error) {
	p, ok := prefixes[t]
	if !ok {
		return "", fmt.Errorf("no number prefix for document type %q", t)
	}
	return p, nil
}

// TypeForPrefix is the inverse of PrefixFor.
func TypeForPrefix(prefix string) (model.DocumentType, error) {
	for t, p := range prefixes {
		if p == prefix {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown document prefix %q", prefix)
}

// FormatDocNumber returns a document number like "FV20250001". The year and
// sequence must fit four digits each.
func FormatDocNumber(prefix string, year, seq int) (string, error) {
	if year < 0 || year > 9999 {
		return "", fmt.Errorf("year %d does not fit a document number", year)
	}
	if seq < 1 || seq > MaxSeq {
		return "", fmt.Errorf("%s numbering for %d exhausted: sequence %d exceeds %d", prefix, year, seq, MaxSeq)
	}
	return fmt.Sprintf("%s%04d%04d", prefix, year, seq), nil
}

// ParseDocNumber parses "FV20250001" into prefix, year, seq.
func ParseDocNumber(number string) (prefix string, year, seq int, err error) {
	if len(number) != prefixLen+yearLen+seqLen {
		return "", 0, 0, fmt.Errorf("invalid document number format: %q", number)
	}

	prefix = number[:prefixLen]
	if _, err := TypeForPrefix(prefix); err != nil {
		return "", 0, 0, fmt.Errorf("invalid document number %q: %w", number, err)
	}

	year, err = strconv.Atoi(number[prefixLen : prefixLen+yearLen])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid year in document number %q: %w", number, err)
	}

	seq, err = strconv.Atoi(number[prefixLen+yearLen:])
	if err != nil || seq < 1 {
		return "", 0, 0, fmt.Errorf("invalid sequence in document number %q", number)
	}

	return prefix, year, seq, nil
}

// NextDocNumber returns the number following the highest existing number of
// the same type and year. Numbers of other types or years are ignored.
func NextDocNumber(t model.DocumentType, year int, existing []string) (string, error) {
	prefix, err := PrefixFor(t)
	if err != nil {
		return "", err
	}

	maxSeq := 0
	for _, n := range existing {
		p, y, seq, err := ParseDocNumber(n)
		if err != nil || p != prefix || y != year {
			continue
		}
		maxSeq = max(maxSeq, seq)
	}
	return FormatDocNumber(prefix, year, maxSeq+1)
}
