package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
)

const (
	defaultScheduleSheet = "Installments"
	defaultSummarySheet  = "Summary"
)

// Exporter mirrors payment schedules and project summaries into a
// spreadsheet. The ledger remains the source of truth.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	scheduleSheet string
	summarySheet  string
}

// NewFromEnv creates an Exporter using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_SHEET_NAME (default "Installments"),
// GOOGLE_SUMMARY_SHEET_NAME (default "Summary").
func NewFromEnv(ctx context.Context) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	scheduleSheet, summarySheet := sheetNamesFromEnv()
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		scheduleSheet: scheduleSheet,
		summarySheet:  summarySheet,
	}, nil
}

func sheetNamesFromEnv() (string, string) {
	schedule := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if schedule == "" {
		schedule = defaultScheduleSheet
	}
	summary := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summary == "" {
		summary = defaultSummarySheet
	}
	return schedule, summary
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportSchedule appends one row per installment of p and returns the
// written range.
func (e *Exporter) ExportSchedule(ctx context.Context, p core.Payment, installments []core.Installment) (string, error) {
	if len(installments) == 0 {
		return "", nil
	}
	ref, err := e.appendRows(ctx, e.scheduleSheet, scheduleHeader, scheduleRows(p, installments))
	if err != nil {
		return "", fmt.Errorf("export schedule of payment %s: %w", p.ID, err)
	}
	slog.InfoContext(ctx, "Schedule exported to Google Sheets",
		"payment_id", p.ID,
		"installments", len(installments),
		"sheets_ref", ref)
	return ref, nil
}

// ExportSummary appends a snapshot row of the project summary.
func (e *Exporter) ExportSummary(ctx context.Context, s core.FinancialSummary, asOf core.Date) (string, error) {
	ref, err := e.appendRows(ctx, e.summarySheet, summaryHeader, [][]any{summaryRow(s, asOf)})
	if err != nil {
		return "", fmt.Errorf("export summary of project %s: %w", s.ProjectID, err)
	}
	slog.InfoContext(ctx, "Summary exported to Google Sheets",
		"project_id", s.ProjectID,
		"sheets_ref", ref)
	return ref, nil
}

// appendRows writes rows below the last used row of sheet, preceded by
// header when the sheet is still empty.
func (e *Exporter) appendRows(ctx context.Context, sheet string, header []any, rows [][]any) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}

	used := len(resp.Values)
	rows = withHeader(header, rows, used)
	target := blockRange(sheet, used+1, rows)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, target, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", target, err)
	}
	return target, nil
}
