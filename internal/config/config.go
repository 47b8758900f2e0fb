package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/partita-dev/partita/internal/documents"
	"github.com/partita-dev/partita/internal/ledger"
)

// FileName is the config file inside a books directory.
const FileName = "partita.yaml"

// Config represents the top-level partita.yaml configuration.
type Config struct {
	Business  BusinessConfig  `yaml:"business"`
	Locale    LocaleConfig    `yaml:"locale"`
	Posting   PostingConfig   `yaml:"posting_accounts"`
	Documents DocumentsConfig `yaml:"documents"`
	Log       LogConfig       `yaml:"log"`
	Git       GitConfig       `yaml:"git"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name  string `yaml:"name"`
	TaxID string `yaml:"tax_id,omitempty"`
}

// LocaleConfig controls how amounts are displayed.
type LocaleConfig struct {
	Language       string `yaml:"language"` // BCP 47 tag, e.g. "it-IT"
	CurrencySymbol string `yaml:"currency_symbol"`
	DecimalPlaces  int32  `yaml:"decimal_places"`
}

// PostingConfig maps document postings onto chart codes.
type PostingConfig struct {
	Receivables   string `yaml:"receivables"`
	Revenue       string `yaml:"revenue"`
	VATPayable    string `yaml:"vat_payable"`
	Payables      string `yaml:"payables"`
	Expense       string `yaml:"expense"`
	VATReceivable string `yaml:"vat_receivable"`
	Cash          string `yaml:"cash"`
	Equity        string `yaml:"opening_equity"` // counterpart of opening balances
}

// Accounts converts the posting config for the documents package.
func (p PostingConfig) Accounts() documents.PostingAccounts {
	return documents.PostingAccounts{
		Receivables:   p.Receivables,
		Revenue:       p.Revenue,
		VATPayable:    p.VATPayable,
		Payables:      p.Payables,
		Expense:       p.Expense,
		VATReceivable: p.VATReceivable,
	}
}

// DocumentsConfig holds document defaults.
type DocumentsConfig struct {
	DefaultDueDays int `yaml:"default_due_days"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // "text" or "json"
}

// GitConfig controls versioning of the books directory.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a partita.yaml file from disk and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for new books, posting
// against the default chart.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name: businessName,
		},
		Locale: LocaleConfig{
			Language:       "en-US",
			CurrencySymbol: "€",
			DecimalPlaces:  2,
		},
		Posting: PostingConfig{
			Receivables:   "113",
			Revenue:       "41",
			VATPayable:    "212",
			Payables:      "211",
			Expense:       "52",
			VATReceivable: "114",
			Cash:          "111",
			Equity:        ledger.DefaultEquityCode,
		},
		Documents: DocumentsConfig{
			DefaultDueDays: documents.DefaultDueDays,
		},
		Log: LogConfig{
			Level:  "warning",
			Format: "text",
		},
		Git: GitConfig{
			AuthorName:  "Partita",
			AuthorEmail: "partita@localhost",
		},
	}
}

// envOverrides are read from PARTITA_* variables. Unset variables leave the
// file value alone.
type envOverrides struct {
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`
	Language  string `envconfig:"LANGUAGE"`
}

// ApplyEnv overlays PARTITA_LOG_LEVEL, PARTITA_LOG_FORMAT and
// PARTITA_LANGUAGE onto cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("partita", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.Language != "" {
		cfg.Locale.Language = env.Language
	}
	return nil
}
