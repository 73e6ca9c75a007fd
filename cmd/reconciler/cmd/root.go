package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger-reconciliation-service/cmd/reconciler/config"
	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app carries state shared by every command of one invocation
type app struct {
	cfgFile  string
	verbose  bool
	viper    *viper.Viper
	settings *config.Settings
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "reconciler",
		Short: "Ledger reconciliation tool",
		Long: `Reconciler compares the transactions in a budgeting ledger with a bank
statement export, pairs them up, classifies what does not line up and scores
the account as balanced, needing review, or unbalanced.

The ledger is read from the YNAB API, an offline SQLite snapshot, or a
YAML fixture file (ledger.source). Settings come from --config, a .env file
and RECONCILER_* environment variables.

Examples:
  reconciler reconcile --statement january.csv --balance=-1326.44 --date 2024-01-31 --account-name checking
  reconciler accounts --budget last-used
  reconciler serve --port 8080
  reconciler version`,
		Version:           getVersionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (optional, YAML)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newReconcileCmd(a),
		newBudgetsCmd(a),
		newAccountsCmd(a),
		newUnapprovedCmd(a),
		newServeCmd(a),
		newSnapshotCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		return NewCLIErrorHandler(os.Stderr, verbose).HandleError(err)
	}
	return 0
}

// initConfig reads .env, the config file and RECONCILER_* variables, then
// installs the global logger
func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.ConfigurationError(errors.CodeInvalidConfig, ".env", nil, err)
	}

	config.SetDefaults(a.viper)
	if a.cfgFile != "" {
		a.viper.SetConfigFile(a.cfgFile)
		if err := a.viper.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", a.cfgFile, err).
				WithSuggestion("check the --config path and YAML syntax")
		}
	}
	a.viper.SetEnvPrefix(config.EnvPrefix)
	a.viper.SetEnvKeyReplacer(config.NewKeyReplacer())
	a.viper.AutomaticEnv()

	settings, err := config.Load(a.viper)
	if err != nil {
		return err
	}
	a.settings = settings

	logConfig, err := config.CreateLoggerConfig(settings, a.verbose)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", nil, err)
	}
	logger.SetGlobalLogger(log)

	if a.cfgFile != "" {
		log.WithComponent("cli").WithField("config", a.viper.ConfigFileUsed()).Debug("Using config file")
	}
	return nil
}

// openSource opens the configured ledger source; callers must run the returned close
func (a *app) openSource() (ledger.Source, func() error, error) {
	return config.CreateLedgerSource(a.settings)
}

// newService builds a reconciliation service over source
func (a *app) newService(source ledger.Source) (*reconciler.ReconciliationService, error) {
	serviceConfig, err := config.CreateReconcilerConfig(a.settings)
	if err != nil {
		return nil, err
	}
	return reconciler.NewReconciliationService(source, serviceConfig)
}

// newGenerator builds a report generator. format overrides report.format when set.
func (a *app) newGenerator(format string) (*reporter.ReportGenerator, error) {
	reportConfig, err := config.CreateReportConfig(a.settings, format)
	if err != nil {
		return nil, err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", nil, err)
	}
	return generator, nil
}

// budgetID returns the --budget flag, falling back to ledger.budget_id
func (a *app) budgetID(flag string) string {
	if flag != "" {
		return flag
	}
	return ledger.ResolveBudgetID(a.settings.Ledger.BudgetID)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// skips config loading
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reconciler %s\n", getVersionString())
		},
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
