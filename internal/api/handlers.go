package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/errors"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// reconcile handles POST /api/reconcile. The body mirrors reconciler.Request;
// ?format= (or response_format) selects json (default), markdown, console or csv.
func (s *Server) reconcile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxBodyBytes)

	var request reconciler.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		s.writeError(c, errors.ValidationError(errors.CodeInvalidFormat, "body", "", err).
			WithSuggestion("send a JSON object with statement_data, statement_balance, statement_date and account_id or account_name"))
		return
	}

	format, err := s.format(c, request.ReportFormat, reporter.FormatJSON)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.service.Reconcile(c.Request.Context(), &request)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if format == reporter.FormatJSON {
		c.JSON(http.StatusOK, result)
		return
	}

	generator, err := s.generator(format)
	if err != nil {
		s.writeError(c, err)
		return
	}
	text, err := generator.Render(result)
	if err != nil {
		s.writeError(c, errors.InternalError(errors.CodeUnexpectedError, "render report", err))
		return
	}
	c.Data(http.StatusOK, format.ContentType(), []byte(text))
}

func (s *Server) listBudgets(c *gin.Context) {
	budgets, err := s.source.ListBudgets(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.renderView(c, gin.H{"budgets": budgets}, func(g *reporter.ReportGenerator) (string, error) {
		return g.RenderBudgets(budgets)
	})
}

// listAccounts returns the budget's open accounts, the ones a reconciliation can target
func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.source.ListAccounts(c.Request.Context(), c.Param("budget_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	open := reconciler.OpenAccounts(accounts)
	s.renderView(c, gin.H{"accounts": open}, func(g *reporter.ReportGenerator) (string, error) {
		return g.RenderAccounts(open)
	})
}

func (s *Server) listUnapproved(c *gin.Context) {
	txns, err := s.source.ListUnapprovedTransactions(c.Request.Context(), c.Param("budget_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if txns == nil {
		txns = []models.LedgerTransaction{}
	}
	s.renderView(c, gin.H{"transactions": txns, "transaction_count": len(txns)}, func(g *reporter.ReportGenerator) (string, error) {
		return g.RenderUnapproved(txns)
	})
}

// renderView writes data as JSON, or the text rendering when another format is requested
func (s *Server) renderView(c *gin.Context, data gin.H, render func(*reporter.ReportGenerator) (string, error)) {
	format, err := s.format(c, "", reporter.FormatJSON)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if format == reporter.FormatJSON {
		c.JSON(http.StatusOK, data)
		return
	}

	generator, err := s.generator(format)
	if err != nil {
		s.writeError(c, err)
		return
	}
	text, err := render(generator)
	if err != nil {
		s.writeError(c, errors.InternalError(errors.CodeUnexpectedError, "render view", err))
		return
	}
	c.Data(http.StatusOK, format.ContentType(), []byte(text))
}

// format resolves ?format=, then the body's response_format, then fallback
func (s *Server) format(c *gin.Context, bodyFormat string, fallback reporter.OutputFormat) (reporter.OutputFormat, error) {
	name := c.Query("format")
	if name == "" {
		name = bodyFormat
	}
	if name == "" {
		return fallback, nil
	}
	format, err := reporter.ParseFormat(name)
	if err != nil {
		return "", errors.ValidationError(errors.CodeInvalidFormat, "format", name, err).
			WithSuggestion("use json, markdown, console or csv")
	}
	return format, nil
}

func (s *Server) generator(format reporter.OutputFormat) (*reporter.ReportGenerator, error) {
	config := s.reports.WithFormat(format)
	config.UseColors = false
	generator, err := reporter.NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", string(format), err)
	}
	return generator, nil
}
