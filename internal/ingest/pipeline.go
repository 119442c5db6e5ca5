package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

// OutcomeKind tags what happened to one row.
type OutcomeKind int

const (
	// Inserted means a new registration was written.
	Inserted OutcomeKind = iota
	// Skipped means the row failed validation and nothing was written.
	Skipped
	// Duplicate means the registration was already stored.
	Duplicate
	// Failed means the store could not be reached or refused the write.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Skipped:
		return "skipped"
	case Duplicate:
		return "duplicate"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of one data row.
type Outcome struct {
	// Line is the 1-based position of the row among the data rows.
	Line   int
	Kind   OutcomeKind
	Reason string
	Err    error

	RegistrantID   string
	RegistrationID string

	// NewRegistrant is true when this row created the registrant.
	NewRegistrant bool
}

// Result accumulates outcomes. It is built by folding rows in order.
type Result struct {
	Outcomes   []Outcome
	Processed  int
	Skipped    int
	Duplicates int
	Failed     int
}

// add is the fold step.
func (r Result) add(o Outcome) Result {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Kind {
	case Inserted:
		r.Processed++
	case Skipped:
		r.Skipped++
	case Duplicate:
		r.Duplicates++
	case Failed:
		r.Failed++
	}
	return r
}

// Options tunes a Pipeline. The zero value is usable.
type Options struct {
	// Location is the zone for timestamps without one. Defaults to UTC.
	Location *time.Location

	// Clock supplies the processing time. Defaults to the system clock.
	Clock clock.Clock

	// StopOnStoreError ends the batch at the first store failure. Rows
	// already written stay written.
	StopOnStoreError bool

	Logger *slog.Logger
}

// Pipeline writes tables through the record store, one row at a time.
type Pipeline struct {
	registrants   repo.RegistrantRepo
	registrations repo.RegistrationRepo
	opts          Options
}

// NewPipeline builds a Pipeline over the two collections.
func NewPipeline(registrants repo.RegistrantRepo, registrations repo.RegistrationRepo, opts Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{registrants: registrants, registrations: registrations, opts: opts}
}

// StoreError is returned by Run when StopOnStoreError ended the batch.
type StoreError struct {
	Line int
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Run folds every data row of t into a Result. Rows run strictly in order,
// so a registrant created by one row is found by the next.
//
// The returned error is non-nil only when ctx is done or, with
// StopOnStoreError, when a store call failed. The Result then covers the
// rows handled so far.
func (p *Pipeline) Run(ctx context.Context, t Table) (Result, error) {
	cols := NewColumns(t.Header)
	if missing := MissingColumns(cols); len(missing) > 0 {
		p.opts.Logger.WarnContext(ctx, "ingest: required columns missing", "columns", missing)
	}

	var res Result
	for i, cells := range t.Rows {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ingest.Pipeline.Run: %w", err)
		}

		o := p.row(ctx, cols, cells)
		o.Line = i + 1
		res = res.add(o)

		switch o.Kind {
		case Skipped:
			p.opts.Logger.DebugContext(ctx, "ingest: row skipped", "line", o.Line, "reason", o.Reason)
		case Failed:
			p.opts.Logger.WarnContext(ctx, "ingest: row failed", "line", o.Line, "error", o.Err)
			if p.opts.StopOnStoreError {
				return res, fmt.Errorf("ingest.Pipeline.Run: %w", &StoreError{Line: o.Line, Err: o.Err})
			}
		}
	}

	p.opts.Logger.InfoContext(ctx, "ingest: batch done",
		"rows", len(t.Rows),
		"processed", res.Processed,
		"skipped", res.Skipped,
		"duplicates", res.Duplicates,
		"failed", res.Failed,
	)
	return res, nil
}

// row handles one data row. It never panics the batch: every path ends in
// an Outcome.
func (p *Pipeline) row(ctx context.Context, cols Columns, cells []string) Outcome {
	mapped, err := MapRow(cols, cells, p.opts.Clock.Now(), p.opts.Location)
	if err != nil {
		return Outcome{Kind: Skipped, Reason: err.Error(), Err: err}
	}
	if err := mapped.Registrant.Validate(); err != nil {
		return Outcome{Kind: Skipped, Reason: err.Error(), Err: err}
	}

	who, created, err := p.findOrCreate(ctx, mapped.Registrant)
	if err != nil {
		return failed("registrant", err)
	}
	out := Outcome{RegistrantID: who.ID, NewRegistrant: created}

	reg := mapped.Registration
	reg.RegistrantID = who.ID

	existing, err := p.existing(ctx, reg)
	switch {
	case err == nil:
		out.Kind = Duplicate
		out.RegistrationID = existing.ID
		out.Reason = "registration already stored"
		return out
	case !errors.Is(err, domain.ErrNotFound):
		f := failed("dedup lookup", err)
		f.RegistrantID, f.NewRegistrant = out.RegistrantID, out.NewRegistrant
		return f
	}

	stored, err := p.registrations.Create(ctx, reg)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		// Another ingestion stored the same hash between lookup and insert.
		out.Kind = Duplicate
		out.Reason = "registration already stored"
		return out
	case err != nil:
		f := failed("registration", err)
		f.RegistrantID, f.NewRegistrant = out.RegistrantID, out.NewRegistrant
		return f
	}

	out.Kind = Inserted
	out.RegistrationID = stored.ID
	return out
}

// findOrCreate resolves the registrant by identity key. An existing
// registrant is never overwritten; only its updated_at moves forward.
func (p *Pipeline) findOrCreate(ctx context.Context, r domain.Registrant) (domain.Registrant, bool, error) {
	found, err := p.registrants.FindByIdentity(ctx, r.Name, r.Phone)
	switch {
	case err == nil:
		if err := p.registrants.Touch(ctx, found.ID, r.UpdatedAt); err != nil {
			return domain.Registrant{}, false, err
		}
		return found, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Registrant{}, false, err
	}

	created, err := p.registrants.Create(ctx, r)
	if err != nil {
		return domain.Registrant{}, false, err
	}
	return created, true, nil
}

// existing looks for an already stored copy of reg: by hash when the row
// carries one, else by (registrant, activity, submission time).
func (p *Pipeline) existing(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	if reg.DedupHash != "" {
		return p.registrations.FindByHash(ctx, reg.DedupHash)
	}
	return p.registrations.FindByContent(ctx, reg.RegistrantID, reg.ActivityName, reg.SubmittedAt)
}

func failed(step string, err error) Outcome {
	return Outcome{Kind: Failed, Reason: step + ": " + err.Error(), Err: err}
}
