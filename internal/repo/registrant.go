package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

const registrantColumns = `id, name, email, phone, gender, age, line_id,
	resident_status, housing_location, created_at, updated_at`

// pgRegistrantRepo is the Postgres implementation of RegistrantRepo.
type pgRegistrantRepo struct {
	db db
}

// NewRegistrantRepo constructs a RegistrantRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewRegistrantRepo(db db) RegistrantRepo {
	return &pgRegistrantRepo{db: db}
}

// List pages through registrants with keyset pagination.
// The name range compares with COLLATE "C" so ordering is by code point,
// which is what makes the U+F8FF upper bound work as a prefix match.
func (r *pgRegistrantRepo) List(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error) {
	var (
		where []string
		order string
		args  = pgx.NamedArgs{"limit": p.Limit}
	)

	if prefix != "" {
		where = append(where, `name COLLATE "C" >= @lo`, `name COLLATE "C" < @hi`)
		args["lo"] = prefix
		args["hi"] = prefix + domain.NameRangeEnd
		order = `name COLLATE "C" ASC, id ASC`
		if p.After != "" {
			k, err := domain.DecodeCursor(p.After, domain.OrderRegistrantsByName)
			if err != nil {
				return nil, "", fmt.Errorf("repo.RegistrantRepo.List: %w", err)
			}
			id, ok := parseID(k.ID)
			if !ok {
				return nil, "", fmt.Errorf("repo.RegistrantRepo.List: %w: cursor id", domain.ErrValidation)
			}
			where = append(where, `(name COLLATE "C" > @after_key OR (name = @after_key AND id > @after_id))`)
			args["after_key"] = k.Key
			args["after_id"] = id
		}
	} else {
		order = `updated_at DESC, id DESC`
		if p.After != "" {
			k, err := domain.DecodeCursor(p.After, domain.OrderRegistrantsByUpdated)
			if err != nil {
				return nil, "", fmt.Errorf("repo.RegistrantRepo.List: %w", err)
			}
			ts, err := k.TimeKey()
			if err != nil {
				return nil, "", fmt.Errorf("repo.RegistrantRepo.List: %w", err)
			}
			id, ok := parseID(k.ID)
			if !ok {
				return nil, "", fmt.Errorf("repo.RegistrantRepo.List: %w: cursor id", domain.ErrValidation)
			}
			where = append(where, `(updated_at, id) < (@after_ts, @after_id)`)
			args["after_ts"] = ts
			args["after_id"] = id
		}
	}

	q := `SELECT ` + registrantColumns + ` FROM registrants`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY ` + order + ` LIMIT @limit`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, "", fmt.Errorf("repo.RegistrantRepo.List: %w", err)
	}
	defer rows.Close()

	out := []domain.Registrant{}
	for rows.Next() {
		reg, err := scanRegistrant(rows)
		if err != nil {
			return nil, "", fmt.Errorf("repo.RegistrantRepo.List: scan: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("repo.RegistrantRepo.List: rows: %w", err)
	}

	return out, registrantNextCursor(out, p.Limit, prefix), nil
}

// Count returns the number of registrants.
func (r *pgRegistrantRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM registrants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.RegistrantRepo.Count: %w", err)
	}
	return n, nil
}

// GetByID retrieves a registrant by primary key.
func (r *pgRegistrantRepo) GetByID(ctx context.Context, id string) (domain.Registrant, error) {
	key, ok := parseID(id)
	if !ok {
		return domain.Registrant{}, fmt.Errorf("repo.RegistrantRepo.GetByID: %w", domain.ErrNotFound)
	}
	q := `SELECT ` + registrantColumns + ` FROM registrants WHERE id = @id`

	result, err := scanRegistrant(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": key}))
	if err != nil {
		return domain.Registrant{}, fmt.Errorf("repo.RegistrantRepo.GetByID: %w", translateErr(err))
	}
	return result, nil
}

// FindByIdentity retrieves the oldest registrant with the given name and phone.
func (r *pgRegistrantRepo) FindByIdentity(ctx context.Context, name, phone string) (domain.Registrant, error) {
	q := `SELECT ` + registrantColumns + ` FROM registrants
		WHERE name = @name AND phone = @phone
		ORDER BY created_at, id
		LIMIT 1`

	result, err := scanRegistrant(r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name, "phone": phone}))
	if err != nil {
		return domain.Registrant{}, fmt.Errorf("repo.RegistrantRepo.FindByIdentity: %w", translateErr(err))
	}
	return result, nil
}

// Create inserts a new registrant row and returns the full persisted record.
func (r *pgRegistrantRepo) Create(ctx context.Context, reg domain.Registrant) (domain.Registrant, error) {
	q := `
		INSERT INTO registrants (name, email, phone, gender, age, line_id,
			resident_status, housing_location, updated_at)
		VALUES (@name, @email, @phone, @gender, @age, @line_id,
			@resident_status, @housing_location, COALESCE(@updated_at::timestamptz, now()))
		RETURNING ` + registrantColumns

	status := reg.ResidentStatus
	if status == "" {
		status = domain.ResidentGeneralPublic
	}
	args := pgx.NamedArgs{
		"name":             reg.Name,
		"email":            reg.Email,
		"phone":            reg.Phone,
		"gender":           reg.Gender,
		"age":              reg.Age,
		"line_id":          reg.LineID,
		"resident_status":  string(status),
		"housing_location": reg.HousingLocation,
		"updated_at":       nullTime(reg.UpdatedAt),
	}

	result, err := scanRegistrant(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Registrant{}, fmt.Errorf("repo.RegistrantRepo.Create: %w", translateErr(err))
	}
	return result, nil
}

// Touch moves updated_at forward, never backward.
func (r *pgRegistrantRepo) Touch(ctx context.Context, id string, at time.Time) error {
	key, ok := parseID(id)
	if !ok {
		return fmt.Errorf("repo.RegistrantRepo.Touch: %w", domain.ErrNotFound)
	}
	const q = `UPDATE registrants SET updated_at = GREATEST(updated_at, @at) WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": key, "at": at})
	if err != nil {
		return fmt.Errorf("repo.RegistrantRepo.Touch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.RegistrantRepo.Touch: %w", domain.ErrNotFound)
	}
	return nil
}

// registrantNextCursor mints the cursor after the last record of a full page.
// A short page means the end of the result set and yields no cursor.
func registrantNextCursor(page []domain.Registrant, limit int, prefix string) domain.Cursor {
	if len(page) == 0 || len(page) < limit {
		return ""
	}
	return domain.RegistrantCursor(page[len(page)-1], prefix != "")
}

// scanRegistrant maps a single database row into a domain.Registrant.
func scanRegistrant(s scanner) (domain.Registrant, error) {
	var (
		r      domain.Registrant
		id     pgtype.UUID
		status string
	)
	err := s.Scan(&id, &r.Name, &r.Email, &r.Phone, &r.Gender, &r.Age, &r.LineID,
		&status, &r.HousingLocation, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.Registrant{}, err
	}
	r.ID = uuid.UUID(id.Bytes).String()
	r.ResidentStatus = domain.ResidentStatus(status)
	return r, nil
}
