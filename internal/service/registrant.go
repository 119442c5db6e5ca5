// Package service contains the business logic of the registration admin
// backend. Services validate inputs, enforce business rules, and orchestrate
// repo calls. No queries live here: services depend on repo interfaces,
// not implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/repo"
	"github.com/xinlong-d2/signup-admin/internal/search"
)

// RegistrantService implements business logic for Registrant operations.
type RegistrantService struct {
	registrants   repo.RegistrantRepo
	registrations repo.RegistrationRepo
}

// NewRegistrantService constructs a RegistrantService backed by the provided repos.
func NewRegistrantService(registrants repo.RegistrantRepo, registrations repo.RegistrationRepo) *RegistrantService {
	return &RegistrantService{registrants: registrants, registrations: registrations}
}

// List returns one page of registrants. A non-blank q switches to the
// case-sensitive name prefix ordering.
func (s *RegistrantService) List(ctx context.Context, p domain.CursorParams, q string) ([]domain.Registrant, domain.Cursor, error) {
	p.Limit = domain.ClampPageSize(p.Limit)
	items, next, err := s.registrants.List(ctx, p, search.Prefix(q))
	if err != nil {
		return nil, "", fmt.Errorf("service.RegistrantService.List: %w", err)
	}
	return items, next, nil
}

// Count returns the number of registrants, ignoring any search.
func (s *RegistrantService) Count(ctx context.Context) (int64, error) {
	n, err := s.registrants.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.RegistrantService.Count: %w", err)
	}
	return n, nil
}

// Get returns a registrant together with their registration history.
func (s *RegistrantService) Get(ctx context.Context, id string) (domain.RegistrantWithHistory, error) {
	r, err := s.registrants.GetByID(ctx, id)
	if err != nil {
		return domain.RegistrantWithHistory{}, fmt.Errorf("service.RegistrantService.Get: %w", err)
	}
	history, err := s.registrations.ListByRegistrant(ctx, id)
	if err != nil {
		return domain.RegistrantWithHistory{}, fmt.Errorf("service.RegistrantService.Get: history: %w", err)
	}
	return domain.RegistrantWithHistory{Registrant: r, History: history}, nil
}

// History returns the registrations of one registrant, newest first.
// Unknown ids are domain.ErrNotFound rather than an empty list.
func (s *RegistrantService) History(ctx context.Context, id string) ([]domain.Registration, error) {
	if _, err := s.registrants.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("service.RegistrantService.History: %w", err)
	}
	history, err := s.registrations.ListByRegistrant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.RegistrantService.History: %w", err)
	}
	return history, nil
}

// Create adds a registrant by hand. The identity key must be unused;
// existing registrants are never overwritten.
func (s *RegistrantService) Create(ctx context.Context, r domain.Registrant) (domain.Registrant, error) {
	if r.ResidentStatus == "" {
		r.ResidentStatus = domain.ResidentGeneralPublic
	}
	if err := r.Validate(); err != nil {
		return domain.Registrant{}, fmt.Errorf("service.RegistrantService.Create: %w", err)
	}

	name, phone := r.IdentityKey()
	_, err := s.registrants.FindByIdentity(ctx, name, phone)
	switch {
	case err == nil:
		return domain.Registrant{}, fmt.Errorf("service.RegistrantService.Create: %w: %s / %s already registered", domain.ErrDuplicate, name, phone)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Registrant{}, fmt.Errorf("service.RegistrantService.Create: %w", err)
	}

	created, err := s.registrants.Create(ctx, r)
	if err != nil {
		return domain.Registrant{}, fmt.Errorf("service.RegistrantService.Create: %w", err)
	}
	return created, nil
}
