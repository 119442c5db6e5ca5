package domain

const (
	// DefaultPageSize matches the dashboard's table size.
	DefaultPageSize = 10
	// MaxPageSize caps any single store query.
	MaxPageSize = 100
)

// CursorParams carries limit/cursor values from the HTTP layer to the repo
// layer. After is empty for the first page.
type CursorParams struct {
	// Limit is the maximum number of items to return.
	Limit int
	// After positions the query just past the record the cursor was minted for.
	After Cursor
}

// NewCursorParams builds a CursorParams from optional HTTP query params.
// Nil pointers fall back to defaults (limit=10, first page).
// The limit is capped at MaxPageSize to prevent runaway queries.
func NewCursorParams(limit *int, after *string) CursorParams {
	p := CursorParams{Limit: DefaultPageSize}
	if limit != nil && *limit >= 1 {
		p.Limit = *limit
		if p.Limit > MaxPageSize {
			p.Limit = MaxPageSize
		}
	}
	if after != nil {
		p.After = Cursor(*after)
	}
	return p
}

// ClampPageSize applies the same default and cap as NewCursorParams to a
// bare page size.
func ClampPageSize(n int) int {
	switch {
	case n < 1:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}
