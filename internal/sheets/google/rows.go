package google

import (
	"fmt"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
)

// Column layouts of the exported sheets.
var (
	scheduleHeader = []any{"Payment", "Project", "Description", "Number", "Due date", "Amount", "Status", "Paid date", "Method"}
	summaryHeader  = []any{"As of", "Project", "Total cost", "Paid", "Remaining", "Percent paid", "Next due", "Overdue", "Months remaining", "Last due"}
)

func scheduleRows(p core.Payment, installments []core.Installment) [][]any {
	rows := make([][]any, 0, len(installments))
	for _, inst := range installments {
		paid := ""
		if inst.PaidDate != nil {
			paid = inst.PaidDate.String()
		}
		rows = append(rows, []any{
			p.ID,
			p.ProjectID,
			p.Description,
			inst.Number,
			inst.DueDate.String(),
			inst.Amount.String(),
			string(inst.Status),
			paid,
			inst.PaymentMethod,
		})
	}
	return rows
}

func summaryRow(s core.FinancialSummary, asOf core.Date) []any {
	return []any{
		asOf.String(),
		s.ProjectID,
		s.TotalCost.String(),
		s.TotalPaid.String(),
		s.TotalRemaining.String(),
		s.PercentPaid.StringFixed(2),
		optionalDate(s.NextDueDate),
		s.OverdueCount,
		s.MonthsRemaining,
		optionalDate(s.LastDueDate),
	}
}

// withHeader prepends header to rows when the sheet has no used rows yet.
func withHeader(header []any, rows [][]any, usedRows int) [][]any {
	if usedRows > 0 || len(header) == 0 {
		return rows
	}
	return append([][]any{header}, rows...)
}

func optionalDate(d *core.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// blockRange is the A1 range covering rows starting at firstRow.
func blockRange(sheet string, firstRow int, rows [][]any) string {
	width := 1
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	last := firstRow + len(rows) - 1
	if last < firstRow {
		last = firstRow
	}
	return fmt.Sprintf("%s!A%d:%s%d", sheet, firstRow, columnName(width), last)
}

// columnName converts a 1-based column index to its letter form.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}
