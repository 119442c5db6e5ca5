package service_test

import (
	"context"
	"time"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

// mockRegistrantRepo is a hand-written test double for repo.RegistrantRepo.
// Each method is a function field; set only the ones your test needs.
type mockRegistrantRepo struct {
	list           func(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error)
	count          func(ctx context.Context) (int64, error)
	getByID        func(ctx context.Context, id string) (domain.Registrant, error)
	findByIdentity func(ctx context.Context, name, phone string) (domain.Registrant, error)
	create         func(ctx context.Context, r domain.Registrant) (domain.Registrant, error)
	touch          func(ctx context.Context, id string, at time.Time) error
}

func (m *mockRegistrantRepo) List(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error) {
	return m.list(ctx, p, prefix)
}
func (m *mockRegistrantRepo) Count(ctx context.Context) (int64, error) {
	return m.count(ctx)
}
func (m *mockRegistrantRepo) GetByID(ctx context.Context, id string) (domain.Registrant, error) {
	return m.getByID(ctx, id)
}
func (m *mockRegistrantRepo) FindByIdentity(ctx context.Context, name, phone string) (domain.Registrant, error) {
	return m.findByIdentity(ctx, name, phone)
}
func (m *mockRegistrantRepo) Create(ctx context.Context, r domain.Registrant) (domain.Registrant, error) {
	return m.create(ctx, r)
}
func (m *mockRegistrantRepo) Touch(ctx context.Context, id string, at time.Time) error {
	return m.touch(ctx, id, at)
}

// mockRegistrationRepo is a hand-written test double for repo.RegistrationRepo.
type mockRegistrationRepo struct {
	list             func(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error)
	count            func(ctx context.Context) (int64, error)
	listByRegistrant func(ctx context.Context, registrantID string) ([]domain.Registration, error)
	findByHash       func(ctx context.Context, hash string) (domain.Registration, error)
	findByContent    func(ctx context.Context, registrantID, activity string, submittedAt time.Time) (domain.Registration, error)
	create           func(ctx context.Context, r domain.Registration) (domain.Registration, error)
}

func (m *mockRegistrationRepo) List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error) {
	return m.list(ctx, p)
}
func (m *mockRegistrationRepo) Count(ctx context.Context) (int64, error) {
	return m.count(ctx)
}
func (m *mockRegistrationRepo) ListByRegistrant(ctx context.Context, registrantID string) ([]domain.Registration, error) {
	return m.listByRegistrant(ctx, registrantID)
}
func (m *mockRegistrationRepo) FindByHash(ctx context.Context, hash string) (domain.Registration, error) {
	return m.findByHash(ctx, hash)
}
func (m *mockRegistrationRepo) FindByContent(ctx context.Context, registrantID, activity string, submittedAt time.Time) (domain.Registration, error) {
	return m.findByContent(ctx, registrantID, activity, submittedAt)
}
func (m *mockRegistrationRepo) Create(ctx context.Context, r domain.Registration) (domain.Registration, error) {
	return m.create(ctx, r)
}

// compile-time checks: the mocks must satisfy the repo interfaces.
var (
	_ repo.RegistrantRepo   = (*mockRegistrantRepo)(nil)
	_ repo.RegistrationRepo = (*mockRegistrationRepo)(nil)
)
