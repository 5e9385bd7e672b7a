package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
)

const (
	summarySheet = "Form"
	ledgerSheet  = "Ledger"
	timeLayout   = "2006-01-02 15:04:05"
)

var ledgerHeader = []interface{}{
	"#", "Date", "Reviewer", "Role", "Action", "From", "To", "Score", "Comments", "Signature URL", "Signature date",
}

// LedgerExporter renders a form and its approval ledger as an XLSX workbook
type LedgerExporter struct {
	logger *zap.Logger
}

// NewLedgerExporter creates a new XLSX ledger exporter
func NewLedgerExporter(logger *zap.Logger) *LedgerExporter {
	return &LedgerExporter{logger: logger}
}

func (e *LedgerExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *LedgerExporter) FileExtension() string {
	return ".xlsx"
}

// Export writes a two-sheet workbook: form summary, then one row per ledger entry
func (e *LedgerExporter) Export(w io.Writer, form *entity.Form, entries []*entity.ApprovalLedgerEntry, admins map[int64]*entity.Admin) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return fmt.Errorf("failed to create ledger sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	summary := [][]interface{}{
		{"Form", form.ID},
		{"Kind", string(form.Kind)},
		{"Title", form.Title},
		{"Status", string(form.Status)},
		{"Region", form.RegionCode},
		{"Business unit", form.SBUCode},
		{"Created", form.CreatedAt.Format(timeLayout)},
		{"Last updated", form.UpdatedAt.Format(timeLayout)},
	}
	if form.CreatedByAdminID != nil {
		summary = append(summary, []interface{}{"Created by", adminName(admins, *form.CreatedByAdminID)})
	}
	for i, row := range summary {
		e.setRow(f, summarySheet, i+1, row)
	}
	if err := f.SetColStyle(summarySheet, "A", bold); err != nil {
		e.logger.Warn("Failed to style summary labels", zap.Error(err))
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 40); err != nil {
		e.logger.Warn("Failed to size summary column", zap.Error(err))
	}

	e.setRow(f, ledgerSheet, 1, ledgerHeader)
	if err := f.SetRowStyle(ledgerSheet, 1, 1, bold); err != nil {
		e.logger.Warn("Failed to style ledger header", zap.Error(err))
	}

	for i, entry := range entries {
		score := ""
		if entry.Score != nil {
			score = strconv.Itoa(*entry.Score)
		}
		signed := ""
		if entry.SignatureDate != nil {
			signed = entry.SignatureDate.Format("2006-01-02")
		}

		e.setRow(f, ledgerSheet, i+2, []interface{}{
			i + 1,
			entry.CreatedAt.Format(timeLayout),
			adminName(admins, entry.AdminID),
			string(entry.ActorRole),
			string(entry.Action),
			string(entry.FromStatus),
			string(entry.ToStatus),
			score,
			entry.Comments,
			entry.SignatureURL,
			signed,
		})
	}
	if err := f.SetColWidth(ledgerSheet, "B", "K", 22); err != nil {
		e.logger.Warn("Failed to size ledger columns", zap.Error(err))
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (e *LedgerExporter) setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		e.logger.Warn("Invalid row", zap.Int("row", row), zap.Error(err))
		return
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		e.logger.Warn("Failed to set row",
			zap.String("sheet", sheet),
			zap.Int("row", row),
			zap.Error(err))
	}
}

// adminName labels a reviewer as "Name (#id)", or "#id" when the admin is gone
func adminName(admins map[int64]*entity.Admin, id int64) string {
	if a := admins[id]; a != nil && a.Name != "" {
		return fmt.Sprintf("%s (#%d)", a.Name, id)
	}
	return fmt.Sprintf("#%d", id)
}

var _ port.LedgerExporter = (*LedgerExporter)(nil)
