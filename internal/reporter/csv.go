package reporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"ledger-reconciliation-service/internal/reconciler"
)

var csvHeaders = []string{
	"Match_Type",
	"Confidence",
	"Ledger_ID",
	"Ledger_Date",
	"Ledger_Payee",
	"Ledger_Amount",
	"Statement_Date",
	"Statement_Description",
	"Statement_Amount",
	"Amount_Difference",
}

// writeCSV writes one row per match in match order
func (rg *ReportGenerator) writeCSV(r *reconciler.Result, w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for i, m := range r.Matches {
		record := make([]string, len(csvHeaders))
		record[0] = m.Type.String()
		record[1] = fmt.Sprintf("%.3f", m.Confidence)
		if m.Ledger != nil {
			record[2] = m.Ledger.ID
			record[3] = m.Ledger.Date.String()
			record[4] = m.Ledger.PayeeOrUnknown()
			record[5] = m.Ledger.Amount.StringFixed(2)
		}
		if m.Statement != nil {
			record[6] = m.Statement.Date.String()
			record[7] = m.Statement.Description
			record[8] = m.Statement.Amount.StringFixed(2)
		}
		if m.Discrepancy != nil {
			record[9] = m.Discrepancy.StringFixed(2)
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write match record %d: %w", i+1, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
