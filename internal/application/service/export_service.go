package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// LedgerSheet is the worksheet written by ExportLedger
const LedgerSheet = "Ledger"

var ledgerHeader = []interface{}{
	"Kind", "ID", "Title", "Status", "Created", "Last decision", "Vacation days", "Decisions",
}

// ExportService renders request ledgers to spreadsheets
type ExportService interface {
	// ExportLedger returns an xlsx workbook of every request owned by the identity
	ExportLedger(ctx context.Context, owner string) ([]byte, error)
}

type exportServiceImpl struct {
	store  port.DocumentStore
	logger Logger
}

// NewExportService creates a new ExportService
func NewExportService(store port.DocumentStore, logger Logger) ExportService {
	return &exportServiceImpl{
		store:  store,
		logger: logger,
	}
}

// ExportLedger writes one row per request, oldest first
func (s *exportServiceImpl) ExportLedger(ctx context.Context, owner string) ([]byte, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", approval.ErrInvalidInput)
	}

	var reqs []*entity.Request
	for _, coll := range requestCollections {
		found, err := queryRequests(ctx, s.store, s.logger, port.Query{Collection: coll, Owner: owner})
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, found...)
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &ledgerHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(LedgerSheet, "A1", "H1", bold)
	}
	_ = f.SetColWidth(LedgerSheet, "C", "C", 40)
	_ = f.SetColWidth(LedgerSheet, "H", "H", 60)

	for i, req := range reqs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := ledgerRow(req)
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Ledger exported", "owner", owner, "rows", len(reqs))
	return buf.Bytes(), nil
}

func ledgerRow(req *entity.Request) []interface{} {
	lastDecision := ""
	if req.LastApprovedAt != nil {
		lastDecision = req.LastApprovedAt.Format("2006-01-02 15:04")
	}

	var days interface{} = ""
	if req.Vacation != nil {
		days = req.Vacation.Days
	}

	decisions := make([]string, 0, len(req.History))
	for _, h := range req.History {
		d := fmt.Sprintf("%s %s %s", h.ApprovedAt.Format("2006-01-02"), h.Approver, h.Decision)
		if h.Comment != "" {
			d += " (" + h.Comment + ")"
		}
		decisions = append(decisions, d)
	}

	return []interface{}{
		string(req.Kind),
		req.ID,
		req.Title,
		req.Status.String(),
		req.CreatedAt.Format("2006-01-02 15:04"),
		lastDecision,
		days,
		strings.Join(decisions, "; "),
	}
}
