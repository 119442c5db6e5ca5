package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
	"github.com/xinlong-d2/signup-admin/internal/repo/memstore"
	"github.com/xinlong-d2/signup-admin/internal/service"
)

const rollCSV = "填答時間,以下活動請擇一,姓名,電子郵件,聯絡電話,雜湊值\n" +
	"2025-06-20 13:45:37,編織手工書,林玟琳,a@example.com,0935973588,h1\n" +
	"2025-06-20 14:00:00,編織手工書,,b@example.com,0988992069,h2\n"

type fakeSheets struct {
	table ingest.Table
	err   error
	calls []string
}

func (f *fakeSheets) Fetch(_ context.Context, id, rng string) (ingest.Table, error) {
	f.calls = append(f.calls, id+"!"+rng)
	return f.table, f.err
}

func newIngestService(s *memstore.Store, sheets service.SheetsFetcher) *service.IngestService {
	p := ingest.NewPipeline(s.Registrants(), s.Registrations(), ingest.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return service.NewIngestService(p, sheets)
}

func TestIngestService_Upload(t *testing.T) {
	s := memstore.New(nil)
	svc := newIngestService(s, nil)

	sum, err := svc.Upload(context.Background(), "roll.csv", strings.NewReader(rollCSV))

	require.NoError(t, err)
	assert.True(t, sum.Success)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Contains(t, sum.Message, "成功處理 1 筆資料")
}

func TestIngestService_Upload_FileFormat(t *testing.T) {
	s := memstore.New(nil)
	svc := newIngestService(s, nil)

	sum, err := svc.Upload(context.Background(), "roll.xls", strings.NewReader("binary"))

	require.ErrorIs(t, err, ingest.ErrFileFormat)
	assert.False(t, sum.Success)
	assert.Zero(t, sum.Processed)
	n, _ := s.Registrants().Count(context.Background())
	assert.Zero(t, n, "nothing is written for an unreadable file")
}

func TestIngestService_ImportSheet(t *testing.T) {
	s := memstore.New(nil)
	tbl, err := ingest.ParseFile("roll.csv", strings.NewReader(rollCSV))
	require.NoError(t, err)
	sheets := &fakeSheets{table: tbl}
	svc := newIngestService(s, sheets)

	sum, err := svc.ImportSheet(context.Background(), "sheet-1", "表單回應 1!A:P")

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, []string{"sheet-1!表單回應 1!A:P"}, sheets.calls)
}

func TestIngestService_ImportSheet_Errors(t *testing.T) {
	s := memstore.New(nil)

	_, err := newIngestService(s, nil).ImportSheet(context.Background(), "sheet-1", "")
	assert.ErrorIs(t, err, ingest.ErrSheetsDisabled)

	_, err = newIngestService(s, &fakeSheets{}).ImportSheet(context.Background(), " ", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	boom := errors.New("403 forbidden")
	_, err = newIngestService(s, &fakeSheets{err: boom}).ImportSheet(context.Background(), "sheet-1", "")
	assert.ErrorIs(t, err, boom)
}
