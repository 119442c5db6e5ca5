package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

const registrationColumns = `id, registrant_id, activity_name, submitted_at, age,
	children_count, sports_experience, injury_history, info_source, suggestions,
	resident_status, dedup_hash, created_at`

// pgRegistrationRepo is the Postgres implementation of RegistrationRepo.
type pgRegistrationRepo struct {
	db db
}

// NewRegistrationRepo constructs a RegistrationRepo backed by the provided db connection.
func NewRegistrationRepo(db db) RegistrationRepo {
	return &pgRegistrationRepo{db: db}
}

// List pages through the history ordered by submitted_at descending.
func (r *pgRegistrationRepo) List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error) {
	args := pgx.NamedArgs{"limit": p.Limit}
	q := `SELECT ` + registrationColumns + ` FROM registration_history`

	if p.After != "" {
		k, err := domain.DecodeCursor(p.After, domain.OrderRegistrationsBySubmitted)
		if err != nil {
			return nil, "", fmt.Errorf("repo.RegistrationRepo.List: %w", err)
		}
		ts, err := k.TimeKey()
		if err != nil {
			return nil, "", fmt.Errorf("repo.RegistrationRepo.List: %w", err)
		}
		id, ok := parseID(k.ID)
		if !ok {
			return nil, "", fmt.Errorf("repo.RegistrationRepo.List: %w: cursor id", domain.ErrValidation)
		}
		q += ` WHERE (submitted_at, id) < (@after_ts, @after_id)`
		args["after_ts"] = ts
		args["after_id"] = id
	}
	q += ` ORDER BY submitted_at DESC, id DESC LIMIT @limit`

	out, err := r.queryAll(ctx, q, args)
	if err != nil {
		return nil, "", fmt.Errorf("repo.RegistrationRepo.List: %w", err)
	}

	var next domain.Cursor
	if len(out) > 0 && len(out) >= p.Limit {
		next = domain.RegistrationCursor(out[len(out)-1])
	}
	return out, next, nil
}

// Count returns the number of stored registrations.
func (r *pgRegistrationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM registration_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.RegistrationRepo.Count: %w", err)
	}
	return n, nil
}

// ListByRegistrant returns one person's registrations, newest first.
func (r *pgRegistrationRepo) ListByRegistrant(ctx context.Context, registrantID string) ([]domain.Registration, error) {
	key, ok := parseID(registrantID)
	if !ok {
		return []domain.Registration{}, nil
	}
	q := `SELECT ` + registrationColumns + ` FROM registration_history
		WHERE registrant_id = @registrant_id
		ORDER BY submitted_at DESC, id DESC`

	out, err := r.queryAll(ctx, q, pgx.NamedArgs{"registrant_id": key})
	if err != nil {
		return nil, fmt.Errorf("repo.RegistrationRepo.ListByRegistrant: %w", err)
	}
	return out, nil
}

// FindByHash looks a registration up by its dedup hash.
func (r *pgRegistrationRepo) FindByHash(ctx context.Context, hash string) (domain.Registration, error) {
	if hash == "" {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.FindByHash: %w", domain.ErrNotFound)
	}
	q := `SELECT ` + registrationColumns + ` FROM registration_history WHERE dedup_hash = @hash`

	result, err := scanRegistration(r.db.QueryRow(ctx, q, pgx.NamedArgs{"hash": hash}))
	if err != nil {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.FindByHash: %w", translateErr(err))
	}
	return result, nil
}

// FindByContent looks a registration up by registrant, activity and submission time.
func (r *pgRegistrationRepo) FindByContent(ctx context.Context, registrantID, activity string, submittedAt time.Time) (domain.Registration, error) {
	key, ok := parseID(registrantID)
	if !ok {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.FindByContent: %w", domain.ErrNotFound)
	}
	q := `SELECT ` + registrationColumns + ` FROM registration_history
		WHERE registrant_id = @registrant_id
		  AND activity_name = @activity
		  AND submitted_at = @submitted_at
		LIMIT 1`

	args := pgx.NamedArgs{"registrant_id": key, "activity": activity, "submitted_at": submittedAt}
	result, err := scanRegistration(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.FindByContent: %w", translateErr(err))
	}
	return result, nil
}

// Create inserts a registration. A hash already covered by the partial
// unique index inserts nothing and comes back as domain.ErrDuplicate, without
// aborting the surrounding transaction.
func (r *pgRegistrationRepo) Create(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	key, ok := parseID(reg.RegistrantID)
	if !ok {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.Create: %w", domain.ErrNotFound)
	}
	q := `
		INSERT INTO registration_history (registrant_id, activity_name, submitted_at, age,
			children_count, sports_experience, injury_history, info_source, suggestions,
			resident_status, dedup_hash)
		VALUES (@registrant_id, @activity_name, @submitted_at, @age,
			@children_count, @sports_experience, @injury_history, @info_source, @suggestions,
			@resident_status, @dedup_hash)
		ON CONFLICT (dedup_hash) WHERE dedup_hash <> '' DO NOTHING
		RETURNING ` + registrationColumns

	status := reg.ResidentStatus
	if status == "" {
		status = domain.ResidentGeneralPublic
	}
	args := pgx.NamedArgs{
		"registrant_id":     key,
		"activity_name":     reg.ActivityName,
		"submitted_at":      reg.SubmittedAt,
		"age":               reg.Age,
		"children_count":    reg.ChildrenCount,
		"sports_experience": reg.SportsExperience,
		"injury_history":    reg.InjuryHistory,
		"info_source":       reg.InfoSource,
		"suggestions":       reg.Suggestions,
		"resident_status":   string(status),
		"dedup_hash":        reg.DedupHash,
	}

	result, err := scanRegistration(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.Create: %w", domain.ErrDuplicate)
	}
	if err != nil {
		return domain.Registration{}, fmt.Errorf("repo.RegistrationRepo.Create: %w", translateErr(err))
	}
	return result, nil
}

func (r *pgRegistrationRepo) queryAll(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Registration, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// scanRegistration maps a single database row into a domain.Registration.
func scanRegistration(s scanner) (domain.Registration, error) {
	var (
		r            domain.Registration
		id           pgtype.UUID
		registrantID pgtype.UUID
		status       string
	)
	err := s.Scan(&id, &registrantID, &r.ActivityName, &r.SubmittedAt, &r.Age,
		&r.ChildrenCount, &r.SportsExperience, &r.InjuryHistory, &r.InfoSource, &r.Suggestions,
		&status, &r.DedupHash, &r.CreatedAt)
	if err != nil {
		return domain.Registration{}, err
	}
	r.ID = uuid.UUID(id.Bytes).String()
	r.RegistrantID = uuid.UUID(registrantID.Bytes).String()
	r.ResidentStatus = domain.ResidentStatus(status)
	return r, nil
}
