package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

// ReportService renders approval ledgers for download
type ReportService interface {
	// ExportLedger writes the ledger report of a form to w and returns a file name for it
	ExportLedger(ctx context.Context, kind entity.FormKind, id int64, w io.Writer) (string, error)
	ContentType() string
}

type reportServiceImpl struct {
	formRepo   port.FormRepository
	ledgerRepo port.LedgerRepository
	directory  port.AdminDirectory
	exporter   port.LedgerExporter
	logger     Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	formRepo port.FormRepository,
	ledgerRepo port.LedgerRepository,
	directory port.AdminDirectory,
	exporter port.LedgerExporter,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		formRepo:   formRepo,
		ledgerRepo: ledgerRepo,
		directory:  directory,
		exporter:   exporter,
		logger:     logger,
	}
}

func (s *reportServiceImpl) ContentType() string {
	return s.exporter.ContentType()
}

// ExportLedger renders one form's ledger with reviewer names resolved
func (s *reportServiceImpl) ExportLedger(ctx context.Context, kind entity.FormKind, id int64, w io.Writer) (string, error) {
	form, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get form: %w", err)
	}
	if form == nil || form.Kind != kind {
		return "", domainwf.NotFound("Form %d was not found", id)
	}

	entries, err := s.ledgerRepo.ListByFormID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get ledger: %w", err)
	}

	// Admins are looked up once each; a missing admin keeps the id only.
	admins := make(map[int64]*entity.Admin)
	for _, e := range entries {
		if _, seen := admins[e.AdminID]; seen {
			continue
		}
		admin, err := s.directory.GetAdmin(ctx, e.AdminID)
		if err != nil {
			s.logger.Error("Failed to resolve ledger admin", "error", err, "admin_id", e.AdminID)
		}
		admins[e.AdminID] = admin
	}

	if err := s.exporter.Export(w, form, entries, admins); err != nil {
		s.logger.Error("Failed to export ledger", "error", err, "form_id", id)
		return "", fmt.Errorf("export ledger: %w", err)
	}

	s.logger.Info("Ledger exported", "form_id", id, "entries", len(entries))
	return fmt.Sprintf("%s-%d-ledger%s", kind, id, s.exporter.FileExtension()), nil
}
