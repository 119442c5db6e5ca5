package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
)

// SheetsFetcher reads a spreadsheet range as a table.
type SheetsFetcher interface {
	Fetch(ctx context.Context, spreadsheetID, readRange string) (ingest.Table, error)
}

// IngestService runs uploaded files and shared sheets through the
// ingestion pipeline.
type IngestService struct {
	pipeline *ingest.Pipeline
	sheets   SheetsFetcher
}

// NewIngestService constructs an IngestService. sheets may be nil, which
// disables sheet imports.
func NewIngestService(p *ingest.Pipeline, sheets SheetsFetcher) *IngestService {
	return &IngestService{pipeline: p, sheets: sheets}
}

// Upload parses a file and ingests it. A file that cannot be parsed yields
// an unsuccessful summary and an error wrapping ingest.ErrFileFormat; no row
// is written in that case.
func (s *IngestService) Upload(ctx context.Context, filename string, r io.Reader) (ingest.Summary, error) {
	tbl, err := ingest.ParseFile(filename, r)
	if err != nil {
		return ingest.Failure(ingest.Result{}, err), fmt.Errorf("service.IngestService.Upload: %w", err)
	}
	return s.run(ctx, tbl, "service.IngestService.Upload")
}

// ImportSheet ingests a range of a shared spreadsheet.
func (s *IngestService) ImportSheet(ctx context.Context, spreadsheetID, readRange string) (ingest.Summary, error) {
	if s.sheets == nil {
		return ingest.Summary{}, fmt.Errorf("service.IngestService.ImportSheet: %w", ingest.ErrSheetsDisabled)
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return ingest.Summary{}, fmt.Errorf("service.IngestService.ImportSheet: %w: spreadsheet_id required", domain.ErrValidation)
	}

	tbl, err := s.sheets.Fetch(ctx, spreadsheetID, readRange)
	if err != nil {
		if errors.Is(err, ingest.ErrFileFormat) {
			return ingest.Failure(ingest.Result{}, err), fmt.Errorf("service.IngestService.ImportSheet: %w", err)
		}
		return ingest.Summary{}, fmt.Errorf("service.IngestService.ImportSheet: %w", err)
	}
	return s.run(ctx, tbl, "service.IngestService.ImportSheet")
}

func (s *IngestService) run(ctx context.Context, tbl ingest.Table, op string) (ingest.Summary, error) {
	res, err := s.pipeline.Run(ctx, tbl)
	if err != nil {
		return ingest.Failure(res, err), fmt.Errorf("%s: %w", op, err)
	}
	return ingest.Summarize(res), nil
}
