// Package memstore is an in-memory Record Store. It backs local runs
// without a database (STORE_DRIVER=memory) and the unit tests of the
// packages above the repo layer.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

// Store holds both collections behind one lock so the registrant reference
// of a registration can be checked atomically. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	clk clock.Clock

	registrants   map[string]domain.Registrant
	registrations map[string]domain.Registration
	byHash        map[string]string
	// seq records insertion order; it breaks created_at ties.
	seq map[string]int
	n   int
}

// New returns an empty store. A nil clock means the system clock.
func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Store{
		clk:           clk,
		registrants:   make(map[string]domain.Registrant),
		registrations: make(map[string]domain.Registration),
		byHash:        make(map[string]string),
		seq:           make(map[string]int),
	}
}

// Registrants returns the registrant collection.
func (s *Store) Registrants() repo.RegistrantRepo { return registrantRepo{s} }

// Registrations returns the registration history collection.
func (s *Store) Registrations() repo.RegistrationRepo { return registrationRepo{s} }

type registrantRepo struct{ s *Store }

func (r registrantRepo) List(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Registrant, 0, len(r.s.registrants))
	if prefix != "" {
		hi := prefix + domain.NameRangeEnd
		for _, v := range r.s.registrants {
			if v.Name >= prefix && v.Name < hi {
				all = append(all, v)
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].Name != all[j].Name {
				return all[i].Name < all[j].Name
			}
			return all[i].ID < all[j].ID
		})
		if p.After != "" {
			k, err := domain.DecodeCursor(p.After, domain.OrderRegistrantsByName)
			if err != nil {
				return nil, "", fmt.Errorf("memstore.RegistrantRepo.List: %w", err)
			}
			all = dropThrough(all, func(v domain.Registrant) bool {
				return v.Name > k.Key || (v.Name == k.Key && v.ID > k.ID)
			})
		}
	} else {
		for _, v := range r.s.registrants {
			all = append(all, v)
		}
		sort.Slice(all, func(i, j int) bool { return newerFirst(all[i].UpdatedAt, all[i].ID, all[j].UpdatedAt, all[j].ID) })
		if p.After != "" {
			k, err := domain.DecodeCursor(p.After, domain.OrderRegistrantsByUpdated)
			if err != nil {
				return nil, "", fmt.Errorf("memstore.RegistrantRepo.List: %w", err)
			}
			ts, err := k.TimeKey()
			if err != nil {
				return nil, "", fmt.Errorf("memstore.RegistrantRepo.List: %w", err)
			}
			all = dropThrough(all, func(v domain.Registrant) bool {
				return newerFirst(ts, k.ID, v.UpdatedAt, v.ID)
			})
		}
	}

	page := limit(all, p.Limit)
	var next domain.Cursor
	if len(page) > 0 && len(page) >= p.Limit {
		next = domain.RegistrantCursor(page[len(page)-1], prefix != "")
	}
	return page, next, nil
}

func (r registrantRepo) Count(ctx context.Context) (int64, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.registrants)), nil
}

func (r registrantRepo) GetByID(ctx context.Context, id string) (domain.Registrant, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.registrants[id]
	if !ok {
		return domain.Registrant{}, fmt.Errorf("memstore.RegistrantRepo.GetByID: %w", domain.ErrNotFound)
	}
	return v, nil
}

func (r registrantRepo) FindByIdentity(ctx context.Context, name, phone string) (domain.Registrant, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var (
		found domain.Registrant
		best  = -1
	)
	for id, v := range r.s.registrants {
		if v.Name != name || v.Phone != phone {
			continue
		}
		if seq := r.s.seq[id]; best < 0 || seq < best {
			found, best = v, seq
		}
	}
	if best < 0 {
		return domain.Registrant{}, fmt.Errorf("memstore.RegistrantRepo.FindByIdentity: %w", domain.ErrNotFound)
	}
	return found, nil
}

func (r registrantRepo) Create(ctx context.Context, v domain.Registrant) (domain.Registrant, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.clk.Now()
	v.ID = uuid.NewString()
	v.CreatedAt = now
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}
	if v.ResidentStatus == "" {
		v.ResidentStatus = domain.ResidentGeneralPublic
	}
	r.s.registrants[v.ID] = v
	r.s.n++
	r.s.seq[v.ID] = r.s.n
	return v, nil
}

func (r registrantRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.registrants[id]
	if !ok {
		return fmt.Errorf("memstore.RegistrantRepo.Touch: %w", domain.ErrNotFound)
	}
	if at.After(v.UpdatedAt) {
		v.UpdatedAt = at
		r.s.registrants[id] = v
	}
	return nil
}

type registrationRepo struct{ s *Store }

func (r registrationRepo) List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Registration, 0, len(r.s.registrations))
	for _, v := range r.s.registrations {
		all = append(all, v)
	}
	sortHistory(all)
	if p.After != "" {
		k, err := domain.DecodeCursor(p.After, domain.OrderRegistrationsBySubmitted)
		if err != nil {
			return nil, "", fmt.Errorf("memstore.RegistrationRepo.List: %w", err)
		}
		ts, err := k.TimeKey()
		if err != nil {
			return nil, "", fmt.Errorf("memstore.RegistrationRepo.List: %w", err)
		}
		all = dropThrough(all, func(v domain.Registration) bool {
			return newerFirst(ts, k.ID, v.SubmittedAt, v.ID)
		})
	}

	page := limit(all, p.Limit)
	var next domain.Cursor
	if len(page) > 0 && len(page) >= p.Limit {
		next = domain.RegistrationCursor(page[len(page)-1])
	}
	return page, next, nil
}

func (r registrationRepo) Count(ctx context.Context) (int64, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.registrations)), nil
}

func (r registrationRepo) ListByRegistrant(ctx context.Context, registrantID string) ([]domain.Registration, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Registration{}
	for _, v := range r.s.registrations {
		if v.RegistrantID == registrantID {
			out = append(out, v)
		}
	}
	sortHistory(out)
	return out, nil
}

func (r registrationRepo) FindByHash(ctx context.Context, hash string) (domain.Registration, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byHash[hash]
	if hash == "" || !ok {
		return domain.Registration{}, fmt.Errorf("memstore.RegistrationRepo.FindByHash: %w", domain.ErrNotFound)
	}
	return r.s.registrations[id], nil
}

func (r registrationRepo) FindByContent(ctx context.Context, registrantID, activity string, submittedAt time.Time) (domain.Registration, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, v := range r.s.registrations {
		if v.RegistrantID == registrantID && v.ActivityName == activity && v.SubmittedAt.Equal(submittedAt) {
			return v, nil
		}
	}
	return domain.Registration{}, fmt.Errorf("memstore.RegistrationRepo.FindByContent: %w", domain.ErrNotFound)
}

func (r registrationRepo) Create(ctx context.Context, v domain.Registration) (domain.Registration, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.registrants[v.RegistrantID]; !ok {
		return domain.Registration{}, fmt.Errorf("memstore.RegistrationRepo.Create: registrant: %w", domain.ErrNotFound)
	}
	if v.DedupHash != "" {
		if _, taken := r.s.byHash[v.DedupHash]; taken {
			return domain.Registration{}, fmt.Errorf("memstore.RegistrationRepo.Create: %w", domain.ErrDuplicate)
		}
	}

	v.ID = uuid.NewString()
	v.CreatedAt = r.s.clk.Now()
	if v.ResidentStatus == "" {
		v.ResidentStatus = domain.ResidentGeneralPublic
	}
	r.s.registrations[v.ID] = v
	if v.DedupHash != "" {
		r.s.byHash[v.DedupHash] = v.ID
	}
	return v, nil
}

// newerFirst reports whether (at, aID) sorts before (bt, bID) in a
// descending (time, id) ordering.
func newerFirst(at time.Time, aID string, bt time.Time, bID string) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return strings.Compare(aID, bID) > 0
}

func sortHistory(rs []domain.Registration) {
	sort.Slice(rs, func(i, j int) bool { return newerFirst(rs[i].SubmittedAt, rs[i].ID, rs[j].SubmittedAt, rs[j].ID) })
}

// dropThrough returns the suffix of a sorted slice starting at the first
// element for which after is true.
func dropThrough[T any](sorted []T, after func(T) bool) []T {
	for i, v := range sorted {
		if after(v) {
			return sorted[i:]
		}
	}
	return sorted[:0]
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
