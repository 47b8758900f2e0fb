// Package importer turns bank statement CSV exports into ledger batches: one
// balanced batch per statement row, between the bank account and an income or
// expense account.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

// Transaction is one row of a bank statement. Positive amounts are money in.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string
}

// Parser converts a bank CSV file into Transactions.
type Parser interface {
	Parse(r io.Reader) ([]Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file waiting in the import directory.
type FileInfo struct {
	Name string
	Path string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&GenericParser{})
	r.Register(&ChaseParser{})
	return r
}

// Accounts are the chart codes an import posts against.
type Accounts struct {
	Bank    string // debited for money in, credited for money out
	Income  string // credited for money in
	Expense string // debited for money out
}

// Entries returns the balanced batch recording tx, or nil for a zero amount.
func Entries(tx Transaction, accts Accounts) []model.Entry {
	desc := tx.Date.Format("2006-01-02") + " " + tx.Description
	if tx.Reference != "" {
		desc += " [" + tx.Reference + "]"
	}
	amount := tx.Amount.Abs()
	switch {
	case tx.Amount.IsPositive():
		return []model.Entry{
			model.Debit(accts.Bank, amount, desc),
			model.Credit(accts.Income, amount, desc),
		}
	case tx.Amount.IsNegative():
		return []model.Entry{
			model.Debit(accts.Expense, amount, desc),
			model.Credit(accts.Bank, amount, desc),
		}
	}
	return nil
}

const (
	importDir    = "import"
	processedDir = "processed"
)

// Scan returns the CSV files in <root>/import/, sorted by name.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	dstDir := filepath.Join(root, importDir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(root, importDir, fileName)
	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
