package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Biz")
	cfg.Business.TaxID = "IT01234567890"
	cfg.Locale.Language = "it-IT"
	cfg.Posting.Cash = "112"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, "en-US", cfg.Locale.Language)
	assert.Equal(t, int32(2), cfg.Locale.DecimalPlaces)
	assert.Equal(t, 30, cfg.Documents.DefaultDueDays)
	assert.Equal(t, "113", cfg.Posting.Receivables)
	assert.Equal(t, "111", cfg.Posting.Cash)
	assert.Equal(t, "31", cfg.Posting.Equity)
	assert.False(t, cfg.Git.Enabled)
	assert.Equal(t, "Partita", cfg.Git.AuthorName)

	accts := cfg.Posting.Accounts()
	assert.Equal(t, "41", accts.Revenue)
	assert.Equal(t, "114", accts.VATReceivable)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("business:\n  name: Bottega\ndocuments:\n  default_due_days: 60\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Bottega", cfg.Business.Name)
	assert.Equal(t, 60, cfg.Documents.DefaultDueDays)
	assert.Equal(t, "212", cfg.Posting.VATPayable)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("business: [unclosed\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test Biz")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "posting_accounts:")
	assert.Contains(t, contents, "vat_payable: \"212\"")
	assert.Contains(t, contents, "opening_equity: \"31\"")
	assert.Contains(t, contents, "default_due_days: 30")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PARTITA_LOG_LEVEL", "debug")
	t.Setenv("PARTITA_LOG_FORMAT", "json")
	t.Setenv("PARTITA_LANGUAGE", "de-DE")

	cfg := Default("x")
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "de-DE", cfg.Locale.Language)
}

func TestApplyEnv_UnsetLeavesFile(t *testing.T) {
	cfg := Default("x")
	cfg.Log.Level = "info"
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.WithField("batch_id", 3).Info("batch committed")
	assert.Contains(t, buf.String(), `"batch_id":3`)

	_, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, err = NewLogger(LogConfig{Format: "xml"}, &buf)
	assert.Error(t, err)

	log, err = NewLogger(LogConfig{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
}
