package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// ErrSheetsDisabled is returned when no service account is configured.
var ErrSheetsDisabled = errors.New("google sheets import is not configured")

// DefaultSheetRange is read when a request names no range.
const DefaultSheetRange = "A:Z"

// SheetsSource reads survey responses straight from the response sheet.
type SheetsSource struct {
	srv *sheetsv4.Service
}

// NewSheetsSource authenticates with a service account key file.
func NewSheetsSource(ctx context.Context, serviceAccountJSONPath string, opts ...option.ClientOption) (*SheetsSource, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsReadonlyScope),
	}, opts...)
	return newSheetsSource(ctx, opts...)
}

func newSheetsSource(ctx context.Context, opts ...option.ClientOption) (*SheetsSource, error) {
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ingest.NewSheetsSource: %w", err)
	}
	return &SheetsSource{srv: srv}, nil
}

// Fetch reads readRange of a spreadsheet as a Table. The first non-blank
// row is the header.
func (s *SheetsSource) Fetch(ctx context.Context, spreadsheetID, readRange string) (Table, error) {
	if readRange == "" {
		readRange = DefaultSheetRange
	}
	resp, err := s.srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return Table{}, fmt.Errorf("ingest.SheetsSource.Fetch: %w", apiError(err, spreadsheetID))
	}
	return valuesToTable(resp.Values)
}

// apiError turns the Sheets API refusals a user can act on into domain
// errors. Anything else is returned unchanged.
func apiError(err error, spreadsheetID string) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%v: %w: spreadsheet %s", gerr, domain.ErrNotFound, spreadsheetID)
	case http.StatusForbidden:
		return fmt.Errorf("%v: %w: spreadsheet %s is not shared with the service account", gerr, domain.ErrValidation, spreadsheetID)
	case http.StatusBadRequest:
		msg := gerr.Message
		if msg == "" {
			msg = "the spreadsheet rejected the request"
		}
		return fmt.Errorf("%v: %w: %s", gerr, domain.ErrValidation, msg)
	}
	return err
}

// valuesToTable stringifies the API's loosely typed cells.
func valuesToTable(values [][]interface{}) (Table, error) {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return newTable(rows)
}
