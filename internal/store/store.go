// Package store persists the books as plain files under one directory:
//
//	accounts/chart-of-accounts.csv   the chart, parents before children
//	ledger/movements.csv             append-only movements
//	documents/<number>.yaml          one file per document
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/partita-dev/partita/internal/documents"
	"github.com/partita-dev/partita/internal/model"
)

const (
	accountsFile  = "accounts/chart-of-accounts.csv"
	movementsFile = "ledger/movements.csv"
	documentsDir  = "documents"
)

// FileStore implements ledger.AccountStore, ledger.MovementStore and
// documents.Store on top of a books directory.
type FileStore struct {
	root string
}

// New returns a FileStore rooted at dir. Nothing is created until the first
// write.
func New(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the books directory.
func (s *FileStore) Root() string {
	return s.root
}

// LoadAccounts reads the chart. A missing file yields no accounts.
func (s *FileStore) LoadAccounts() ([]model.Account, error) {
	f, err := os.Open(s.path(accountsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return accts, nil
}

// SaveAccounts replaces the chart file with accounts.
func (s *FileStore) SaveAccounts(accounts []model.Account) error {
	var buf bytes.Buffer
	if err := WriteAccounts(&buf, accounts); err != nil {
		return fmt.Errorf("encoding chart of accounts: %w", err)
	}
	return s.replace(accountsFile, buf.Bytes())
}

// UpsertAccount replaces the row with the same code or appends a new one.
func (s *FileStore) UpsertAccount(acct model.Account) error {
	accts, err := s.LoadAccounts()
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(accts, func(a model.Account) bool { return a.Code == acct.Code }); i >= 0 {
		accts[i] = acct
	} else {
		accts = append(accts, acct)
	}
	return s.SaveAccounts(accts)
}

// DeleteAccount removes the row with code. Deleting a missing code is a no-op.
func (s *FileStore) DeleteAccount(code string) error {
	accts, err := s.LoadAccounts()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(accts, func(a model.Account) bool { return a.Code == code })
	return s.SaveAccounts(kept)
}

// LoadMovements reads every movement in posting order. A missing file yields
// no movements.
func (s *FileStore) LoadMovements() ([]model.Movement, error) {
	f, err := os.Open(s.path(movementsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening movements: %w", err)
	}
	defer f.Close()

	moves, err := ReadMovements(f)
	if err != nil {
		return nil, fmt.Errorf("reading movements: %w", err)
	}
	return moves, nil
}

// AppendMovements appends one batch in a single write. If the write fails
// the file is truncated back to its previous size, so a batch is stored
// whole or not at all.
func (s *FileStore) AppendMovements(moves []model.Movement) error {
	path := s.path(movementsFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening movements: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat movements: %w", err)
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		buf.WriteString(MovementsHeader + "\n")
	}
	if err := AppendMovementRows(&buf, moves); err != nil {
		return fmt.Errorf("encoding movements: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		if terr := f.Truncate(info.Size()); terr != nil {
			return fmt.Errorf("appending movements: %w (truncate failed: %v)", err, terr)
		}
		return fmt.Errorf("appending movements: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing movements: %w", err)
	}
	return nil
}

// SaveDocument writes documents/<number>.yaml.
func (s *FileStore) SaveDocument(d *documents.Document) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", d.Ref(), err)
	}
	return s.replace(filepath.Join(documentsDir, d.Ref()+".yaml"), data)
}

// LoadDocuments reads every document, ordered by file name.
func (s *FileStore) LoadDocuments() ([]*documents.Document, error) {
	entries, err := os.ReadDir(s.path(documentsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]*documents.Document, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(s.path(filepath.Join(documentsDir, name)))
		if err != nil {
			return nil, fmt.Errorf("reading document %s: %w", name, err)
		}
		var d documents.Document
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parsing document %s: %w", name, err)
		}
		docs = append(docs, &d)
	}
	return docs, nil
}

// replace writes data to rel through a temp file and rename, so readers see
// either the old or the new content.
func (s *FileStore) replace(rel string, data []byte) error {
	path := s.path(rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", rel, err)
	}
	return nil
}

func (s *FileStore) path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}
