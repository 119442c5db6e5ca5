package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/pager"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
	"github.com/xinlong-d2/signup-admin/internal/search"
)

// ViewKind selects the collection a listing view pages through.
type ViewKind string

const (
	// ViewRegistrants lists registrants and accepts search input.
	ViewRegistrants ViewKind = "registrants"
	// ViewRegistrations lists the registration history.
	ViewRegistrations ViewKind = "registrations"
)

// DefaultViewTTL evicts views nobody touched for this long.
const DefaultViewTTL = 30 * time.Minute

// ViewSnapshot describes a view without fetching anything.
type ViewSnapshot struct {
	ID              string
	Kind            ViewKind
	PageSize        int
	RawSearch       string
	CommittedSearch string
	SearchPending   bool
	CurrentPage     int
	KnownPages      int
	// LastPage is 0 until the end of the listing has been reached.
	LastPage int
}

// ViewPage is one page of a view. Exactly one of the item slices is set,
// matching the view's kind.
type ViewPage struct {
	ViewSnapshot
	Page          int
	HasNext       bool
	Registrants   []domain.Registrant
	Registrations []domain.Registration
}

// ViewOptions configures a ViewService. Zero fields take defaults.
type ViewOptions struct {
	Clock    clock.Clock
	Debounce time.Duration
	TTL      time.Duration
}

// ViewService keeps server-side listing views: the cursor stack and search
// state of one dashboard table. Each view serializes its own operations.
// The store itself is never locked.
type ViewService struct {
	registrants   repo.RegistrantRepo
	registrations repo.RegistrationRepo
	clk           clock.Clock
	debounce      time.Duration
	ttl           time.Duration

	mu    sync.Mutex
	views map[string]*view
}

type view struct {
	id       string
	kind     ViewKind
	pageSize int
	search   *search.Controller
	// lastUsed is unix nanoseconds; eviction reads it without v.mu.
	lastUsed atomic.Int64

	mu            sync.Mutex
	registrants   pager.State[domain.Registrant]
	registrations pager.State[domain.Registration]
}

// NewViewService constructs a ViewService backed by the provided repos.
func NewViewService(registrants repo.RegistrantRepo, registrations repo.RegistrationRepo, opts ViewOptions) *ViewService {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystemClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = search.DefaultDebounce
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultViewTTL
	}
	return &ViewService{
		registrants:   registrants,
		registrations: registrations,
		clk:           opts.Clock,
		debounce:      opts.Debounce,
		ttl:           opts.TTL,
		views:         make(map[string]*view),
	}
}

// Create opens a view on page zero; nothing is fetched until Page.
func (s *ViewService) Create(kind ViewKind, pageSize int) (ViewSnapshot, error) {
	if kind != ViewRegistrants && kind != ViewRegistrations {
		return ViewSnapshot{}, fmt.Errorf("service.ViewService.Create: %w: unknown view kind %q", domain.ErrValidation, kind)
	}

	v := &view{
		id:            uuid.NewString(),
		kind:          kind,
		pageSize:      domain.ClampPageSize(pageSize),
		registrants:   pager.New[domain.Registrant](""),
		registrations: pager.New[domain.Registration](""),
	}
	v.lastUsed.Store(s.clk.Now().UnixNano())
	// The pager is keyed on the committed term as typed, so every commit
	// starts over even when two terms query the same prefix.
	v.search = search.New(s.clk, s.debounce, func(term string) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.registrants = v.registrants.WithKey(term)
	})

	s.mu.Lock()
	s.evictLocked()
	s.views[v.id] = v
	s.mu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot(), nil
}

// Get returns a view's snapshot.
func (s *ViewService) Get(id string) (ViewSnapshot, error) {
	v, err := s.lookup(id)
	if err != nil {
		return ViewSnapshot{}, fmt.Errorf("service.ViewService.Get: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot(), nil
}

// Delete discards a view and any pending search commit.
func (s *ViewService) Delete(id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("service.ViewService.Delete: view %s: %w", id, domain.ErrNotFound)
	}
	v.search.Stop()
	return nil
}

// Page resolves page n of a view with the last committed search term.
// Revisiting a page fetched earlier in the same search context costs no
// store round trip.
func (s *ViewService) Page(ctx context.Context, id string, n int) (ViewPage, error) {
	v, err := s.lookup(id)
	if err != nil {
		return ViewPage{}, fmt.Errorf("service.ViewService.Page: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	out := ViewPage{Page: n}
	switch v.kind {
	case ViewRegistrants:
		term := v.search.Committed()
		prefix := search.Prefix(term)
		state := v.registrants.WithKey(term)
		fetch := func(ctx context.Context, after domain.Cursor) ([]domain.Registrant, domain.Cursor, error) {
			return s.registrants.List(ctx, domain.CursorParams{Limit: v.pageSize, After: after}, prefix)
		}
		next, page, err := pager.Goto(ctx, state, n, fetch)
		v.registrants = next
		if err != nil {
			return ViewPage{}, fmt.Errorf("service.ViewService.Page: %w", err)
		}
		out.Registrants, out.HasNext = page.Items, page.HasNext

	case ViewRegistrations:
		fetch := func(ctx context.Context, after domain.Cursor) ([]domain.Registration, domain.Cursor, error) {
			return s.registrations.List(ctx, domain.CursorParams{Limit: v.pageSize, After: after})
		}
		next, page, err := pager.Goto(ctx, v.registrations, n, fetch)
		v.registrations = next
		if err != nil {
			return ViewPage{}, fmt.Errorf("service.ViewService.Page: %w", err)
		}
		out.Registrations, out.HasNext = page.Items, page.HasNext
	}

	out.ViewSnapshot = v.snapshot()
	return out, nil
}

// Search buffers raw search input. The term takes effect after the
// debounce period, or at once when immediate is set; committing a new term
// sends the view back to page 1 with no cursors.
func (s *ViewService) Search(id, raw string, immediate bool) (ViewSnapshot, error) {
	v, err := s.lookup(id)
	if err != nil {
		return ViewSnapshot{}, fmt.Errorf("service.ViewService.Search: %w", err)
	}
	if v.kind != ViewRegistrants {
		return ViewSnapshot{}, fmt.Errorf("service.ViewService.Search: %w: %s views are not searchable", domain.ErrValidation, v.kind)
	}

	// The controller calls back into v.mu on commit, so it is driven
	// without holding the view lock.
	v.search.Input(raw)
	if immediate {
		v.search.Flush()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot(), nil
}

// Refresh drops every cached page and cursor of a view, keeping its search.
func (s *ViewService) Refresh(id string) (ViewSnapshot, error) {
	v, err := s.lookup(id)
	if err != nil {
		return ViewSnapshot{}, fmt.Errorf("service.ViewService.Refresh: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.registrants = v.registrants.Refresh()
	v.registrations = v.registrations.Refresh()
	return v.snapshot(), nil
}

// Len returns the number of live views.
func (s *ViewService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.views)
}

func (s *ViewService) lookup(id string) (*view, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	v, ok := s.views[id]
	if !ok {
		return nil, fmt.Errorf("view %s: %w", id, domain.ErrNotFound)
	}
	v.lastUsed.Store(s.clk.Now().UnixNano())
	return v, nil
}

// evictLocked drops views idle longer than the TTL. The caller holds s.mu.
func (s *ViewService) evictLocked() {
	cutoff := s.clk.Now().Add(-s.ttl).UnixNano()
	for id, v := range s.views {
		if v.lastUsed.Load() < cutoff {
			v.search.Stop()
			delete(s.views, id)
		}
	}
}

// snapshot reads the view. The caller holds v.mu.
func (v *view) snapshot() ViewSnapshot {
	snap := ViewSnapshot{
		ID:              v.id,
		Kind:            v.kind,
		PageSize:        v.pageSize,
		RawSearch:       v.search.Raw(),
		CommittedSearch: v.search.Committed(),
		SearchPending:   v.search.Pending(),
	}
	switch v.kind {
	case ViewRegistrants:
		// A commit that has not been applied yet still means page 1.
		state := v.registrants.WithKey(snap.CommittedSearch)
		snap.CurrentPage, snap.KnownPages = state.Current(), state.KnownPages()
		snap.LastPage, _ = state.LastPage()
	case ViewRegistrations:
		snap.CurrentPage, snap.KnownPages = v.registrations.Current(), v.registrations.KnownPages()
		snap.LastPage, _ = v.registrations.LastPage()
	}
	return snap
}
