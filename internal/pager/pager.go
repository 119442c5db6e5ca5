// Package pager turns a store that can only answer "next page after cursor"
// into random access by page number.
//
// State is an immutable value. Goto is a pure function of a state and a
// fetch primitive; it returns the next state instead of mutating the old
// one, so a caller can keep, compare or throw away states freely.
package pager

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// ErrPageOutOfRange is returned when the requested page lies past the end
// of the result set.
var ErrPageOutOfRange = fmt.Errorf("%w: page out of range", domain.ErrNotFound)

// Fetch is the only store primitive the pager needs: one page after a
// cursor, plus the cursor for the page after that ("" at the end).
type Fetch[T any] func(ctx context.Context, after domain.Cursor) ([]T, domain.Cursor, error)

// Page is one resolved page.
type Page[T any] struct {
	Number  int
	Items   []T
	HasNext bool
}

// State is the cursor stack of one filter/ordering context.
//
// cursors[i] is the cursor that starts page i+1; cursors[0] is always the
// empty cursor. A cursor is present only once every page before it has been
// fetched in this context.
type State[T any] struct {
	key     string
	cursors []domain.Cursor
	pages   map[int][]T
	current int
	// last is the final page number once a fetch has reached the end, else 0.
	last int
}

// New returns the empty state for a filter/ordering key.
func New[T any](key string) State[T] {
	return State[T]{
		key:     key,
		cursors: []domain.Cursor{""},
		pages:   map[int][]T{},
	}
}

// Key returns the filter/ordering context the cursors belong to.
func (s State[T]) Key() string { return s.key }

// Current returns the page last resolved by Goto, or 0 before the first call.
func (s State[T]) Current() int { return s.current }

// KnownPages returns how many page-start cursors are recorded.
func (s State[T]) KnownPages() int { return len(s.cursors) }

// LastPage returns the final page number if the end has been reached.
func (s State[T]) LastPage() (int, bool) { return s.last, s.last > 0 }

// WithKey returns s unchanged if key matches, otherwise a fresh state for
// the new key. Cursors minted under one key are never applied to another.
func (s State[T]) WithKey(key string) State[T] {
	if key == s.key && s.cursors != nil {
		return s
	}
	return New[T](key)
}

// Refresh drops every cached page and cursor but keeps the key.
func (s State[T]) Refresh() State[T] {
	return New[T](s.key)
}

// Cached returns page n if it has been fetched in this context.
func (s State[T]) Cached(n int) (Page[T], bool) {
	items, ok := s.pages[n]
	if !ok {
		return Page[T]{}, false
	}
	return s.page(n, items), true
}

func (s State[T]) page(n int, items []T) Page[T] {
	return Page[T]{Number: n, Items: items, HasNext: len(s.cursors) > n}
}

func (s State[T]) clone() State[T] {
	s.cursors = slices.Clone(s.cursors)
	s.pages = maps.Clone(s.pages)
	return s
}

// Goto resolves page n.
//
// A page already fetched in this context costs no store call. A page whose
// start cursor is known costs one. Anything further walks forward from the
// highest known cursor, one call per page, recording cursors on the way.
// A failed fetch returns s unchanged. Running past the end returns
// ErrPageOutOfRange together with a state that remembers where the end is.
func Goto[T any](ctx context.Context, s State[T], n int, fetch Fetch[T]) (State[T], Page[T], error) {
	if n < 1 {
		return s, Page[T]{}, fmt.Errorf("pager.Goto: %w: page must be >= 1, got %d", domain.ErrValidation, n)
	}
	if s.cursors == nil {
		s = New[T](s.key)
	}
	if items, ok := s.pages[n]; ok {
		next := s.clone()
		next.current = n
		return next, next.page(n, items), nil
	}
	if s.last > 0 && n > s.last {
		return s, Page[T]{}, fmt.Errorf("pager.Goto: page %d of %d: %w", n, s.last, ErrPageOutOfRange)
	}

	next := s.clone()
	for k := min(n, len(next.cursors)); k <= n; k++ {
		if _, ok := next.pages[k]; ok && k < n {
			continue
		}
		items, after, err := fetch(ctx, next.cursors[k-1])
		if err != nil {
			return s, Page[T]{}, fmt.Errorf("pager.Goto: page %d: %w", k, err)
		}
		if len(items) == 0 && k > 1 {
			// The previous page was exactly full; it was the last one.
			next.last = k - 1
			next.cursors = next.cursors[:k-1]
			return next, Page[T]{}, fmt.Errorf("pager.Goto: page %d of %d: %w", n, next.last, ErrPageOutOfRange)
		}
		next.pages[k] = items
		switch {
		case after == "":
			next.last = k
			if k < n {
				return next, Page[T]{}, fmt.Errorf("pager.Goto: page %d of %d: %w", n, k, ErrPageOutOfRange)
			}
		case len(next.cursors) == k:
			next.cursors = append(next.cursors, after)
		}
	}

	next.current = n
	return next, next.page(n, next.pages[n]), nil
}
