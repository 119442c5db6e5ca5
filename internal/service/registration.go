package service

import (
	"context"
	"fmt"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

// RegistrationService exposes the registration history collection.
type RegistrationService struct {
	registrations repo.RegistrationRepo
}

// NewRegistrationService constructs a RegistrationService backed by the provided repo.
func NewRegistrationService(r repo.RegistrationRepo) *RegistrationService {
	return &RegistrationService{registrations: r}
}

// List returns one page of registrations, newest submission first.
func (s *RegistrationService) List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error) {
	p.Limit = domain.ClampPageSize(p.Limit)
	items, next, err := s.registrations.List(ctx, p)
	if err != nil {
		return nil, "", fmt.Errorf("service.RegistrationService.List: %w", err)
	}
	return items, next, nil
}

// Count returns the size of the history collection.
func (s *RegistrationService) Count(ctx context.Context) (int64, error) {
	n, err := s.registrations.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.RegistrationService.Count: %w", err)
	}
	return n, nil
}
