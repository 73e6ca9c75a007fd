package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"ledger-reconciliation-service/internal/api"
	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/ledger/fixture"
	"ledger-reconciliation-service/internal/ledger/snapshot"
	"ledger-reconciliation-service/internal/ledger/ynab"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. RECONCILER_LEDGER_TOKEN
const EnvPrefix = "RECONCILER"

// Ledger source kinds
const (
	SourceYNAB     = "ynab"
	SourceSnapshot = "snapshot"
	SourceFixture  = "fixture"
)

// Settings is the resolved configuration file / environment
type Settings struct {
	Ledger   LedgerSettings   `mapstructure:"ledger"`
	Matching MatchingSettings `mapstructure:"matching"`
	Report   ReportSettings   `mapstructure:"report"`
	Server   ServerSettings   `mapstructure:"server"`
	Log      LogSettings      `mapstructure:"log"`
}

// LedgerSettings selects and configures the ledger source
type LedgerSettings struct {
	Source       string        `mapstructure:"source"`
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	BudgetID     string        `mapstructure:"budget_id"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
	FixturePath  string        `mapstructure:"fixture_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
}

// MatchingSettings holds matching overrides
type MatchingSettings struct {
	Tolerance      string `mapstructure:"tolerance"`
	LookbackMonths int    `mapstructure:"lookback_months"`
}

// ReportSettings holds report defaults
type ReportSettings struct {
	Format         string `mapstructure:"format"`
	CharacterLimit int    `mapstructure:"character_limit"`
}

// ServerSettings holds HTTP server settings
type ServerSettings struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogSettings holds logger settings
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key so environment overrides resolve on Unmarshal
func SetDefaults(v *viper.Viper) {
	ynabDefaults := ynab.DefaultConfig()
	serverDefaults := api.DefaultConfig()
	reconcilerDefaults := reconciler.DefaultConfig()

	v.SetDefault("ledger.source", SourceYNAB)
	v.SetDefault("ledger.base_url", ynabDefaults.BaseURL)
	v.SetDefault("ledger.token", "")
	v.SetDefault("ledger.budget_id", ledger.DefaultBudgetID)
	v.SetDefault("ledger.snapshot_path", "")
	v.SetDefault("ledger.fixture_path", "")
	v.SetDefault("ledger.timeout", ynabDefaults.Timeout)
	v.SetDefault("ledger.retry_max", ynabDefaults.RetryMax)

	v.SetDefault("matching.tolerance", reconcilerDefaults.Matching.Tolerance.String())
	v.SetDefault("matching.lookback_months", reconcilerDefaults.LookbackMonths)

	v.SetDefault("report.format", string(reporter.FormatMarkdown))
	v.SetDefault("report.character_limit", reporter.DefaultCharacterLimit)

	v.SetDefault("server.port", serverDefaults.Port)
	v.SetDefault("server.allowed_origins", serverDefaults.AllowedOrigins)

	v.SetDefault("log.level", string(logger.InfoLevel))
	v.SetDefault("log.format", string(logger.TextFormat))
}

// NewKeyReplacer maps nested keys to environment names: ledger.token -> LEDGER_TOKEN
func NewKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Load resolves Settings from v. Defaults must already be registered.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", v.ConfigFileUsed(), err)
	}
	s.Ledger.Source = strings.ToLower(strings.TrimSpace(s.Ledger.Source))
	return &s, nil
}

// CreateLedgerSource opens the configured ledger source. The returned close
// function is never nil.
func CreateLedgerSource(s *Settings) (ledger.Source, func() error, error) {
	noop := func() error { return nil }

	switch s.Ledger.Source {
	case SourceYNAB:
		client, err := ynab.NewClient(CreateYNABConfig(s))
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil

	case SourceSnapshot:
		if strings.TrimSpace(s.Ledger.SnapshotPath) == "" {
			return nil, noop, errors.ConfigurationError(errors.CodeMissingConfig, "ledger.snapshot_path", nil, nil)
		}
		store, err := snapshot.Open(s.Ledger.SnapshotPath)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case SourceFixture:
		if strings.TrimSpace(s.Ledger.FixturePath) == "" {
			return nil, noop, errors.ConfigurationError(errors.CodeMissingConfig, "ledger.fixture_path", nil, nil)
		}
		src, err := fixture.Load(s.Ledger.FixturePath)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	}

	return nil, noop, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.source", s.Ledger.Source,
		fmt.Errorf("expected %s, %s or %s", SourceYNAB, SourceSnapshot, SourceFixture)).
		WithSuggestion("set ledger.source (or RECONCILER_LEDGER_SOURCE) to ynab, snapshot or fixture")
}

// CreateYNABConfig creates the REST client configuration
func CreateYNABConfig(s *Settings) *ynab.Config {
	config := ynab.DefaultConfig()
	if s.Ledger.BaseURL != "" {
		config.BaseURL = s.Ledger.BaseURL
	}
	config.Token = s.Ledger.Token
	if s.Ledger.Timeout > 0 {
		config.Timeout = s.Ledger.Timeout
	}
	config.RetryMax = s.Ledger.RetryMax
	return config
}

// CreateReconcilerConfig creates the reconciliation service configuration
func CreateReconcilerConfig(s *Settings) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()

	if s.Ledger.BudgetID != "" {
		config.DefaultBudgetID = s.Ledger.BudgetID
	}
	if s.Matching.LookbackMonths != 0 {
		config.LookbackMonths = s.Matching.LookbackMonths
	}
	if s.Matching.Tolerance != "" {
		tolerance, err := ParseTolerance(s.Matching.Tolerance)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching.tolerance", s.Matching.Tolerance, err)
		}
		config.Matching.Tolerance = tolerance
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}
	return config, nil
}

// ParseTolerance parses a non-negative decimal amount
func ParseTolerance(s string) (decimal.Decimal, error) {
	tolerance, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if tolerance.IsNegative() {
		return decimal.Zero, fmt.Errorf("tolerance cannot be negative: %s", tolerance)
	}
	return tolerance, nil
}

// CreateReportConfig creates a report configuration. format overrides report.format when set.
func CreateReportConfig(s *Settings, format string) (*reporter.ReportConfig, error) {
	if format == "" {
		format = s.Report.Format
	}
	parsed, err := reporter.ParseFormat(format)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidFormat, "format", format, err).
			WithSuggestion("use markdown, json, console or csv")
	}

	config := reporter.DefaultReportConfig().WithFormat(parsed)
	config.CharacterLimit = s.Report.CharacterLimit

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", nil, err)
	}
	return config, nil
}

// CreateServerConfig creates the HTTP server configuration
func CreateServerConfig(s *Settings) (*api.Config, error) {
	config := api.DefaultConfig()
	if s.Server.Port != 0 {
		config.Port = s.Server.Port
	}
	if len(s.Server.AllowedOrigins) > 0 {
		config.AllowedOrigins = s.Server.AllowedOrigins
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "server", nil, err)
	}
	return config, nil
}

// CreateLoggerConfig creates the logger configuration. verbose forces debug level.
func CreateLoggerConfig(s *Settings, verbose bool) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if s.Log.Level != "" {
		level, err := logger.ParseLevel(s.Log.Level)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log.level", s.Log.Level, err)
		}
		config.Level = level
	}
	if s.Log.Format != "" {
		format, err := logger.ParseFormat(s.Log.Format)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log.format", s.Log.Format, err)
		}
		config.Format = format
	}
	if verbose {
		config.Level = logger.DebugLevel
	}
	return config, nil
}
