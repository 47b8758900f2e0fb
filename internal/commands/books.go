package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/partita-dev/partita/internal/auditlog"
	"github.com/partita-dev/partita/internal/config"
	"github.com/partita-dev/partita/internal/documents"
	"github.com/partita-dev/partita/internal/format"
	"github.com/partita-dev/partita/internal/gitops"
	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
	"github.com/partita-dev/partita/internal/store"
)

var headingStyle = lipgloss.NewStyle().Bold(true)

// books is everything a command needs, restored from a books directory.
type books struct {
	dir    string
	cfg    *config.Config
	chart  *ledger.Chart
	ledger *ledger.Ledger
	docs   *documents.Service
	fmt    *format.Formatter
	audit  *auditlog.Log
	repo   *gitops.Repo // nil unless git is enabled
	log    *logrus.Logger
}

// openBooks loads partita.yaml and replays the chart, the ledger and the
// documents from dir.
func openBooks(dir string, logOut io.Writer) (*books, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(absDir, config.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s is not a books directory (run partita init)", absDir)
	}
	if err != nil {
		return nil, err
	}

	log, err := config.NewLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	f, err := format.New(cfg.Locale.Language, cfg.Locale.CurrencySymbol, cfg.Locale.DecimalPlaces)
	if err != nil {
		return nil, err
	}

	fs := store.New(absDir)
	chart := ledger.NewChart(ledger.WithAccountStore(fs))
	accts, err := fs.LoadAccounts()
	if err != nil {
		return nil, err
	}
	if err := chart.Restore(accts); err != nil {
		return nil, err
	}

	l := ledger.New(chart, ledger.WithMovementStore(fs), ledger.WithLogger(log))
	moves, err := fs.LoadMovements()
	if err != nil {
		return nil, err
	}
	if err := l.Restore(moves); err != nil {
		return nil, err
	}

	svc := documents.NewService(l, cfg.Posting.Accounts(),
		documents.WithStore(fs),
		documents.WithDueDays(cfg.Documents.DefaultDueDays),
		documents.WithLogger(log),
	)
	docs, err := fs.LoadDocuments()
	if err != nil {
		return nil, err
	}
	if err := svc.Restore(docs); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"dir":       absDir,
		"accounts":  len(accts),
		"movements": len(moves),
		"documents": len(docs),
	}).Debug("books opened")

	var repo *gitops.Repo
	if cfg.Git.Enabled {
		repo = gitops.Open(absDir, gitAuthor(cfg))
		if repo == nil {
			return nil, fmt.Errorf("git is enabled but %s is not a git repository", absDir)
		}
	}

	return &books{
		dir:    absDir,
		cfg:    cfg,
		chart:  chart,
		ledger: l,
		docs:   svc,
		fmt:    f,
		audit:  auditlog.New(absDir),
		repo:   repo,
		log:    log,
	}, nil
}

// record appends to the audit log and, with git enabled, commits the books.
// The change itself is already on disk, so a failure here is reported but
// nothing is rolled back.
func (b *books) record(command, action, details, ref string) error {
	if err := b.audit.Record(command, action, details, ref); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	if b.repo == nil {
		return nil
	}
	msg := command + ": " + details
	if ref != "" {
		msg = command + " " + ref + ": " + details
	}
	hash, err := b.repo.Commit(msg)
	if err != nil {
		return fmt.Errorf("committing books: %w", err)
	}
	b.log.WithField("commit", hash).Debug("books committed")
	return nil
}

func gitAuthor(cfg *config.Config) gitops.Author {
	return gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
}

// parseLeg parses CODE=AMOUNT.
func parseLeg(s string) (string, decimal.Decimal, error) {
	code, amount, ok := strings.Cut(s, "=")
	if !ok || code == "" || amount == "" {
		return "", decimal.Zero, fmt.Errorf("invalid leg %q, want CODE=AMOUNT", s)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid amount in %q: %w", s, err)
	}
	return code, d, nil
}

// parseDate parses a YYYY-MM-DD flag value; empty means the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(format.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// endOfDay turns a date into an inclusive upper bound.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func describeEntries(entries []model.Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		side := "D"
		if e.Side == model.SideCredit {
			side = "C"
		}
		parts[i] = fmt.Sprintf("%s %s %s", side, e.AccountCode, e.Amount)
	}
	return strings.Join(parts, ", ")
}

func heading(w io.Writer, s string) {
	fmt.Fprintln(w, headingStyle.Render(s))
}
