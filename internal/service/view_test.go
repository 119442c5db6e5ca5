package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/pager"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
	"github.com/xinlong-d2/signup-admin/internal/repo/memstore"
	"github.com/xinlong-d2/signup-admin/internal/service"
)

// countingRegistrants counts List round trips.
type countingRegistrants struct {
	repo.RegistrantRepo
	lists int
}

func (c *countingRegistrants) List(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error) {
	c.lists++
	return c.RegistrantRepo.List(ctx, p, prefix)
}

var viewEpoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func seedRegistrants(t *testing.T, s *memstore.Store, names ...string) {
	t.Helper()
	for i, n := range names {
		_, err := s.Registrants().Create(context.Background(), domain.Registrant{
			Name:      n,
			Email:     fmt.Sprintf("%d@example.com", i),
			Phone:     fmt.Sprintf("09%08d", i),
			UpdatedAt: viewEpoch.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func newViews(s *memstore.Store, regs repo.RegistrantRepo, clk clock.Clock) *service.ViewService {
	return service.NewViewService(regs, s.Registrations(), service.ViewOptions{
		Clock:    clk,
		Debounce: 300 * time.Millisecond,
		TTL:      time.Hour,
	})
}

func TestViewService_RevisitedPagesCostNothing(t *testing.T) {
	s := memstore.New(nil)
	var names []string
	for i := 0; i < 25; i++ {
		names = append(names, fmt.Sprintf("p%02d", i))
	}
	seedRegistrants(t, s, names...)
	counting := &countingRegistrants{RegistrantRepo: s.Registrants()}
	views := newViews(s, counting, clock.NewManual(viewEpoch))
	ctx := context.Background()

	v, err := views.Create(service.ViewRegistrants, 10)
	require.NoError(t, err)

	p3, err := views.Page(ctx, v.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, counting.lists)
	require.Len(t, p3.Registrants, 5)
	assert.False(t, p3.HasNext)
	assert.Equal(t, 3, p3.LastPage)

	_, err = views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	again, err := views.Page(ctx, v.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, counting.lists, "no store round trips for cached pages")
	assert.Equal(t, p3.Registrants, again.Registrants)
	assert.Equal(t, 3, again.CurrentPage)
}

func TestViewService_CommittedSearchResetsPaging(t *testing.T) {
	s := memstore.New(nil)
	var names []string
	for i := 0; i < 12; i++ {
		names = append(names, fmt.Sprintf("a%02d", i))
	}
	for i := 0; i < 7; i++ {
		names = append(names, fmt.Sprintf("王%02d", i))
	}
	seedRegistrants(t, s, names...)
	clk := clock.NewManual(viewEpoch)
	views := newViews(s, s.Registrants(), clk)
	ctx := context.Background()

	v, err := views.Create(service.ViewRegistrants, 5)
	require.NoError(t, err)
	_, err = views.Page(ctx, v.ID, 3)
	require.NoError(t, err)

	snap, err := views.Search(v.ID, "王", false)
	require.NoError(t, err)
	assert.Equal(t, "王", snap.RawSearch)
	assert.Equal(t, "", snap.CommittedSearch, "nothing is committed before the quiet period")
	assert.True(t, snap.SearchPending)
	assert.Equal(t, 3, snap.CurrentPage)

	clk.Advance(300 * time.Millisecond)

	snap, err = views.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "王", snap.CommittedSearch)
	assert.Equal(t, 0, snap.CurrentPage, "a new term starts over")
	assert.Equal(t, 1, snap.KnownPages)

	p2, err := views.Page(ctx, v.ID, 2)
	require.NoError(t, err)
	require.Len(t, p2.Registrants, 2)
	for _, r := range p2.Registrants {
		assert.True(t, strings.HasPrefix(r.Name, "王"), "page 2 must only hold matches, got %s", r.Name)
	}
	assert.Equal(t, "王05", p2.Registrants[0].Name)

	_, err = views.Page(ctx, v.ID, 3)
	assert.ErrorIs(t, err, pager.ErrPageOutOfRange)
}

func TestViewService_WhitespaceTermStillResetsPaging(t *testing.T) {
	s := memstore.New(nil)
	var names []string
	for i := 0; i < 12; i++ {
		names = append(names, fmt.Sprintf("a%02d", i))
	}
	seedRegistrants(t, s, names...)
	clk := clock.NewManual(viewEpoch)
	views := newViews(s, s.Registrants(), clk)
	ctx := context.Background()

	v, err := views.Create(service.ViewRegistrants, 5)
	require.NoError(t, err)
	_, err = views.Page(ctx, v.ID, 2)
	require.NoError(t, err)

	_, err = views.Search(v.ID, "   ", false)
	require.NoError(t, err)
	clk.Advance(time.Second)

	snap, err := views.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "   ", snap.CommittedSearch)
	assert.Equal(t, 0, snap.CurrentPage, "a committed term always starts over")
	assert.Equal(t, 1, snap.KnownPages)

	p1, err := views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.Len(t, p1.Registrants, 5, "an all-whitespace term lists everyone")
}

func TestViewService_ImmediateSearchAndClear(t *testing.T) {
	s := memstore.New(nil)
	seedRegistrants(t, s, "a", "王", "b")
	views := newViews(s, s.Registrants(), clock.NewManual(viewEpoch))
	ctx := context.Background()

	v, err := views.Create(service.ViewRegistrants, 10)
	require.NoError(t, err)

	_, err = views.Search(v.ID, "王", true)
	require.NoError(t, err)
	p, err := views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	require.Len(t, p.Registrants, 1)

	_, err = views.Search(v.ID, "", true)
	require.NoError(t, err)
	p, err = views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	require.Len(t, p.Registrants, 3, "empty term lists everyone")
	assert.Equal(t, "b", p.Registrants[0].Name, "by last update, newest first")
}

func TestViewService_Registrations(t *testing.T) {
	s := memstore.New(nil)
	seedRegistrants(t, s, "a")
	list, _, err := s.Registrants().List(context.Background(), domain.CursorParams{Limit: 1}, "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Registrations().Create(context.Background(), domain.Registration{
			RegistrantID: list[0].ID,
			ActivityName: "射箭",
			SubmittedAt:  viewEpoch.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	views := newViews(s, s.Registrants(), clock.NewManual(viewEpoch))

	v, err := views.Create(service.ViewRegistrations, 2)
	require.NoError(t, err)
	p, err := views.Page(context.Background(), v.ID, 2)
	require.NoError(t, err)
	assert.Len(t, p.Registrations, 1)
	assert.Nil(t, p.Registrants)

	_, err = views.Search(v.ID, "x", true)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestViewService_RefreshSeesNewRecords(t *testing.T) {
	s := memstore.New(nil)
	seedRegistrants(t, s, "a")
	views := newViews(s, s.Registrants(), clock.NewManual(viewEpoch))
	ctx := context.Background()

	v, err := views.Create(service.ViewRegistrants, 10)
	require.NoError(t, err)
	p, err := views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	require.Len(t, p.Registrants, 1)

	_, err = s.Registrants().Create(ctx, domain.Registrant{Name: "b", Email: "b@x", Phone: "2", UpdatedAt: viewEpoch.Add(time.Hour)})
	require.NoError(t, err)

	p, err = views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.Len(t, p.Registrants, 1, "cached page until refresh")

	_, err = views.Refresh(v.ID)
	require.NoError(t, err)
	p, err = views.Page(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.Len(t, p.Registrants, 2)
}

func TestViewService_Lifecycle(t *testing.T) {
	s := memstore.New(nil)
	clk := clock.NewManual(viewEpoch)
	views := newViews(s, s.Registrants(), clk)

	_, err := views.Create("teams", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)

	v, err := views.Create(service.ViewRegistrants, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPageSize, v.PageSize)
	assert.Equal(t, 1, views.Len())

	_, err = views.Page(context.Background(), v.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, views.Delete(v.ID))
	_, err = views.Get(v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, views.Delete(v.ID), domain.ErrNotFound)

	idle, err := views.Create(service.ViewRegistrants, 10)
	require.NoError(t, err)
	clk.Advance(59 * time.Minute)
	_, err = views.Get(idle.ID)
	require.NoError(t, err, "access renews the lease")
	clk.Advance(61 * time.Minute)
	_, err = views.Get(idle.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "idle views are evicted")
}
