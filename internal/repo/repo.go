// Package repo contains the Record Store Adapter: the persistence interfaces
// the rest of the application depends on, plus the Postgres implementation.
// Alternative stores live in subpackages (memstore, mongostore) and are
// held to the same behaviour by the repotest contract suite.
// No business logic lives here, only queries and type mapping.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// RegistrantRepo defines the persistence operations for Registrants.
// The service layer and the ingestion pipeline depend on this interface,
// not on a concrete store.
type RegistrantRepo interface {
	// List returns one page of registrants and the cursor for the next page.
	// With an empty prefix the page is ordered by updated_at descending.
	// With a prefix only names in [prefix, prefix+domain.NameRangeEnd) are
	// returned, ordered by name ascending. The returned cursor is empty when
	// fewer than p.Limit records came back.
	List(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error)

	// Count returns the size of the whole collection, ignoring any filter.
	Count(ctx context.Context) (int64, error)

	// GetByID returns domain.ErrNotFound if no registrant has that id.
	GetByID(ctx context.Context, id string) (domain.Registrant, error)

	// FindByIdentity looks a registrant up by its (name, phone) identity key.
	// Returns domain.ErrNotFound if there is none. If a race produced
	// several, the oldest is returned.
	FindByIdentity(ctx context.Context, name, phone string) (domain.Registrant, error)

	// Create appends a registrant and returns it with id and timestamps set.
	// A zero UpdatedAt defaults to the creation time.
	Create(ctx context.Context, r domain.Registrant) (domain.Registrant, error)

	// Touch raises updated_at to at if at is later than the stored value.
	// Returns domain.ErrNotFound if no registrant has that id.
	Touch(ctx context.Context, id string, at time.Time) error
}

// RegistrationRepo defines the persistence operations for the registration
// history collection.
type RegistrationRepo interface {
	// List returns one page of registrations ordered by submitted_at
	// descending and the cursor for the next page.
	List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error)

	// Count returns the size of the whole collection.
	Count(ctx context.Context) (int64, error)

	// ListByRegistrant returns every registration of one registrant, newest
	// first. Unpaginated: one person's history is small.
	ListByRegistrant(ctx context.Context, registrantID string) ([]domain.Registration, error)

	// FindByHash returns the registration carrying the dedup hash, or
	// domain.ErrNotFound.
	FindByHash(ctx context.Context, hash string) (domain.Registration, error)

	// FindByContent matches on (registrant, activity, submission time).
	// It is the dedup check for rows that carry no hash.
	FindByContent(ctx context.Context, registrantID, activity string, submittedAt time.Time) (domain.Registration, error)

	// Create appends a registration. Returns domain.ErrDuplicate when the
	// dedup hash is already stored, domain.ErrNotFound when the registrant
	// does not exist (stores that enforce the reference).
	Create(ctx context.Context, r domain.Registration) (domain.Registration, error)
}

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Postgres error codes the adapters translate into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateErr maps driver errors onto domain sentinels.
func translateErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrDuplicate
		case pgForeignKeyViolation:
			return domain.ErrNotFound
		}
	}
	return err
}

// parseID converts an opaque id into the uuid primary key used by Postgres.
// ok is false for strings that cannot be a key; callers treat that as
// "no such record".
func parseID(id string) (uuid.UUID, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, false
	}
	return u, true
}

// nullTime turns the zero time into NULL so column defaults apply.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
