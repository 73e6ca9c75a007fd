package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledger-reconciliation-service/cmd/reconciler/config"
	"ledger-reconciliation-service/internal/api"
	"ledger-reconciliation-service/pkg/errors"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation HTTP API",
		Long: `Serve exposes reconciliation and the read-only ledger views over HTTP:

  GET  /health
  POST /api/reconcile[?format=markdown|json|console|csv]
  GET  /api/budgets
  GET  /api/budgets/:budget_id/accounts
  GET  /api/budgets/:budget_id/transactions/unapproved

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.settings.Server.Port = port
			}
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")
	return cmd
}

func (a *app) runServe(parent context.Context) error {
	serverConfig, err := config.CreateServerConfig(a.settings)
	if err != nil {
		return err
	}
	reportConfig, err := config.CreateReportConfig(a.settings, "")
	if err != nil {
		return err
	}

	source, closeSource, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeSource()

	service, err := a.newService(source)
	if err != nil {
		return err
	}

	server, err := api.NewServer(serverConfig, service, source, reportConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server", nil, err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "serve", err)
	}
	return nil
}
