package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
	"github.com/xinlong-d2/signup-admin/internal/repo/memstore"
)

var header = []string{
	ingest.ColSubmittedAt, ingest.ColActivity, ingest.ColName, ingest.ColEmail,
	ingest.ColPhone, ingest.ColResident, ingest.ColDedupHash,
}

func row(name, email, phone, hash string) []string {
	return []string{"2025-06-20 13:45:37", "編織手工書", name, email, phone, "是", hash}
}

func newPipeline(t *testing.T, s *memstore.Store, opts ingest.Options) *ingest.Pipeline {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Clock == nil {
		opts.Clock = clock.NewManual(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	}
	return ingest.NewPipeline(s.Registrants(), s.Registrations(), opts)
}

func TestRun_SecondIngestionIsAllDuplicates(t *testing.T) {
	s := memstore.New(nil)
	p := newPipeline(t, s, ingest.Options{})
	ctx := context.Background()
	tbl := ingest.Table{Header: header, Rows: [][]string{
		row("林玟琳", "a@example.com", "0935973588", "h1"),
		row("張聿昕", "b@example.com", "0988992069", "h2"),
		row("蔡孟錦", "c@example.com", "0930431331", "h3"),
	}}

	first, err := p.Run(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Processed)
	assert.Zero(t, first.Duplicates)

	second, err := p.Run(ctx, tbl)
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
	assert.Equal(t, first.Processed, second.Duplicates)

	n, err := s.Registrations().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n, "no new inserts on the second run")
}

func TestRun_SecondIngestionWithoutHashesDedupsByContent(t *testing.T) {
	s := memstore.New(nil)
	p := newPipeline(t, s, ingest.Options{})
	ctx := context.Background()
	tbl := ingest.Table{Header: header, Rows: [][]string{
		row("林玟琳", "a@example.com", "0935973588", ""),
		row("張聿昕", "b@example.com", "0988992069", ""),
	}}

	_, err := p.Run(ctx, tbl)
	require.NoError(t, err)
	second, err := p.Run(ctx, tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Duplicates)
}

func TestRun_InvalidRowAnywhereIsSkippedAlone(t *testing.T) {
	valid := [][]string{
		row("a", "a@example.com", "01", "h1"),
		row("b", "b@example.com", "02", "h2"),
		row("c", "c@example.com", "03", "h3"),
	}
	invalid := row("", "x@example.com", "09", "hx")

	for pos := 0; pos <= len(valid); pos++ {
		t.Run(fmt.Sprintf("invalid at %d", pos), func(t *testing.T) {
			rows := append([][]string{}, valid[:pos]...)
			rows = append(rows, invalid)
			rows = append(rows, valid[pos:]...)

			s := memstore.New(nil)
			res, err := newPipeline(t, s, ingest.Options{}).Run(context.Background(), ingest.Table{Header: header, Rows: rows})
			require.NoError(t, err)

			assert.Equal(t, 3, res.Processed)
			assert.Equal(t, 1, res.Skipped)
			assert.Equal(t, ingest.Skipped, res.Outcomes[pos].Kind)
			assert.ErrorIs(t, res.Outcomes[pos].Err, ingest.ErrMissingField)

			n, err := s.Registrants().Count(context.Background())
			require.NoError(t, err)
			assert.EqualValues(t, 3, n)
		})
	}
}

func TestRun_SameNameAndPhoneIsOnePerson(t *testing.T) {
	s := memstore.New(nil)
	ctx := context.Background()
	first := row("林玟琳", "old@example.com", "0935973588", "h1")
	second := row("林玟琳", "new@example.com", "0935973588", "h2")
	second[0] = "2025-06-27 09:00:00"

	res, err := newPipeline(t, s, ingest.Options{}).Run(ctx, ingest.Table{Header: header, Rows: [][]string{first, second}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.True(t, res.Outcomes[0].NewRegistrant)
	assert.False(t, res.Outcomes[1].NewRegistrant)
	assert.Equal(t, res.Outcomes[0].RegistrantID, res.Outcomes[1].RegistrantID)

	n, err := s.Registrants().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	who, err := s.Registrants().GetByID(ctx, res.Outcomes[0].RegistrantID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", who.Email, "existing registrant is never overwritten")
	assert.True(t, who.UpdatedAt.Equal(time.Date(2025, 6, 27, 9, 0, 0, 0, time.UTC)), "updated_at follows the latest submission")

	history, err := s.Registrations().ListByRegistrant(ctx, who.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRun_MapsRowFields(t *testing.T) {
	s := memstore.New(nil)
	ctx := context.Background()
	hdr := append([]string{}, header...)
	hdr = append(hdr, ingest.ColLineID, ingest.ColSuggestions, ingest.ColChildrenCount)
	cells := row(" 林玟琳 ", "a@example.com", "0935973588", "h1")
	cells[5] = "否，我是其他臺北市社會住宅住戶"
	cells = append(cells, "yeah8505", "謝謝辦理活動", "2")

	res, err := newPipeline(t, s, ingest.Options{Location: time.FixedZone("CST", 8*3600)}).
		Run(ctx, ingest.Table{Header: hdr, Rows: [][]string{cells}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Processed)

	who, err := s.Registrants().GetByID(ctx, res.Outcomes[0].RegistrantID)
	require.NoError(t, err)
	assert.Equal(t, "林玟琳", who.Name)
	assert.Equal(t, "yeah8505", who.LineID)
	assert.Equal(t, domain.ResidentOtherSocialHousing, who.ResidentStatus)

	reg, err := s.Registrations().FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "2", reg.ChildrenCount)
	assert.Equal(t, "謝謝辦理活動", reg.Suggestions)
	assert.True(t, reg.SubmittedAt.Equal(time.Date(2025, 6, 20, 5, 45, 37, 0, time.UTC)))
}

func TestRun_UnparseableTimeUsesProcessingTime(t *testing.T) {
	s := memstore.New(nil)
	now := time.Date(2025, 7, 1, 8, 30, 0, 0, time.UTC)
	cells := row("a", "a@example.com", "01", "h1")
	cells[0] = "不知道"

	res, err := newPipeline(t, s, ingest.Options{Clock: clock.NewManual(now)}).
		Run(context.Background(), ingest.Table{Header: header, Rows: [][]string{cells}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Processed, "a bad timestamp never fails the row")

	reg, err := s.Registrations().FindByHash(context.Background(), "h1")
	require.NoError(t, err)
	assert.True(t, reg.SubmittedAt.Equal(now))
}

// flakyRegistrations fails Create for selected hashes.
type flakyRegistrations struct {
	repo.RegistrationRepo
	fail map[string]error
}

func (f flakyRegistrations) Create(ctx context.Context, r domain.Registration) (domain.Registration, error) {
	if err, ok := f.fail[r.DedupHash]; ok {
		return domain.Registration{}, err
	}
	return f.RegistrationRepo.Create(ctx, r)
}

func TestRun_StoreErrorsAreTheirOwnOutcome(t *testing.T) {
	s := memstore.New(nil)
	boom := errors.New("quota exceeded")
	regs := flakyRegistrations{RegistrationRepo: s.Registrations(), fail: map[string]error{"h2": boom}}
	p := ingest.NewPipeline(s.Registrants(), regs, ingest.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	tbl := ingest.Table{Header: header, Rows: [][]string{
		row("a", "a@example.com", "01", "h1"),
		row("b", "b@example.com", "02", "h2"),
		row("c", "c@example.com", "03", "h3"),
	}}

	res, err := p.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Skipped, "store failures are not counted as invalid data")
	assert.ErrorIs(t, res.Outcomes[1].Err, boom)
	assert.NotEmpty(t, res.Outcomes[1].RegistrantID)
}

func TestRun_StopOnStoreError(t *testing.T) {
	s := memstore.New(nil)
	boom := errors.New("network down")
	regs := flakyRegistrations{RegistrationRepo: s.Registrations(), fail: map[string]error{"h2": boom}}
	p := ingest.NewPipeline(s.Registrants(), regs, ingest.Options{StopOnStoreError: true})

	tbl := ingest.Table{Header: header, Rows: [][]string{
		row("a", "a@example.com", "01", "h1"),
		row("b", "b@example.com", "02", "h2"),
		row("c", "c@example.com", "03", "h3"),
	}}

	res, err := p.Run(context.Background(), tbl)
	require.ErrorIs(t, err, boom)
	var storeErr *ingest.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 2, storeErr.Line)

	assert.Len(t, res.Outcomes, 2, "rows after the failure are not attempted")
	n, err := s.Registrations().Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "rows before the failure stay written")
}

func TestRun_InsertRaceCountsAsDuplicate(t *testing.T) {
	s := memstore.New(nil)
	regs := flakyRegistrations{RegistrationRepo: s.Registrations(), fail: map[string]error{"h1": domain.ErrDuplicate}}
	p := ingest.NewPipeline(s.Registrants(), regs, ingest.Options{})

	res, err := p.Run(context.Background(), ingest.Table{Header: header, Rows: [][]string{row("a", "a@example.com", "01", "h1")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Zero(t, res.Failed)
}

func TestRun_CancelledContext(t *testing.T) {
	s := memstore.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newPipeline(t, s, ingest.Options{}).Run(ctx, ingest.Table{Header: header, Rows: [][]string{row("a", "a@example.com", "01", "h1")}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Outcomes)
}

func TestSummarize(t *testing.T) {
	s := ingest.Summarize(ingest.Result{Processed: 5, Skipped: 1, Duplicates: 2})
	assert.True(t, s.Success)
	assert.Equal(t, "成功處理 5 筆資料，跳過 1 筆無效資料，重複 2 筆", s.Message)

	s = ingest.Summarize(ingest.Result{Processed: 1, Failed: 3})
	assert.Contains(t, s.Message, "3 筆寫入失敗")

	f := ingest.Failure(ingest.Result{}, fmt.Errorf("wrap: %w", ingest.ErrFileFormat))
	assert.False(t, f.Success)
	assert.Equal(t, ingest.FileFormatMessage, f.Message)
	assert.Zero(t, f.Processed)
}
