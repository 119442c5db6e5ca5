// Package repotest holds the behavioural contract every Record Store
// implementation must satisfy. Each store package runs these suites from
// its own tests with a factory that hands out an empty store.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

// Stores is one empty pair of collections.
type Stores struct {
	Registrants   repo.RegistrantRepo
	Registrations repo.RegistrationRepo
}

// Factory returns empty stores. Cleanup is registered by the factory on t.
type Factory func(t *testing.T) Stores

// base is a whole-second timestamp so every backend stores it exactly.
var base = time.Date(2025, 6, 20, 13, 0, 0, 0, time.UTC)

func registrant(name, phone string, updated time.Time) domain.Registrant {
	return domain.Registrant{
		Name:           name,
		Email:          name + "@example.com",
		Phone:          phone,
		ResidentStatus: domain.ResidentGeneralPublic,
		UpdatedAt:      updated,
	}
}

// RunRegistrantRepo runs the RegistrantRepo contract.
func RunRegistrantRepo(t *testing.T, newStores Factory) {
	t.Run("CreateAndGet", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()

		in := registrant("林玟琳", "0935973588", time.Time{})
		in.Gender = "女"
		in.LineID = "yeah8505"
		in.ResidentStatus = domain.ResidentInComplex

		created, err := r.Create(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.IsZero(), "zero UpdatedAt defaults to creation time")

		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "林玟琳", got.Name)
		assert.Equal(t, "yeah8505", got.LineID)
		assert.Equal(t, domain.ResidentInComplex, got.ResidentStatus)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		r := newStores(t).Registrants
		_, err := r.GetByID(context.Background(), "no-such-id")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FindByIdentity", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()

		first, err := r.Create(ctx, registrant("張聿昕", "0988992069", base))
		require.NoError(t, err)
		_, err = r.Create(ctx, registrant("張聿昕", "0911000000", base))
		require.NoError(t, err)

		got, err := r.FindByIdentity(ctx, "張聿昕", "0988992069")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = r.FindByIdentity(ctx, "張聿昕", "0000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("List_UpdatedDescending_Paged", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()

		for i := 0; i < 25; i++ {
			_, err := r.Create(ctx, registrant(fmt.Sprintf("person-%02d", i), fmt.Sprintf("09%08d", i), base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		var (
			seen  []string
			after domain.Cursor
			sizes []int
			pages int
		)
		for {
			page, next, err := r.List(ctx, domain.CursorParams{Limit: 10, After: after}, "")
			require.NoError(t, err)
			sizes = append(sizes, len(page))
			for _, p := range page {
				seen = append(seen, p.Name)
			}
			pages++
			if next == "" || pages > 5 {
				break
			}
			after = next
		}

		assert.Equal(t, []int{10, 10, 5}, sizes)
		require.Len(t, seen, 25)
		assert.Equal(t, "person-24", seen[0], "most recently updated first")
		assert.Equal(t, "person-00", seen[24])
	})

	t.Run("List_ExactMultipleEndsWithEmptyPage", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			_, err := r.Create(ctx, registrant(fmt.Sprintf("p%d", i), "0900", base.Add(time.Duration(i)*time.Second)))
			require.NoError(t, err)
		}

		page, next, err := r.List(ctx, domain.CursorParams{Limit: 2}, "")
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.NotEmpty(t, next)

		page, next, err = r.List(ctx, domain.CursorParams{Limit: 2, After: next}, "")
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.NotEmpty(t, next, "a full page always yields a cursor")

		page, next, err = r.List(ctx, domain.CursorParams{Limit: 2, After: next}, "")
		require.NoError(t, err)
		assert.Empty(t, page)
		assert.Empty(t, next)
	})

	t.Run("List_PrefixSearch", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()
		for _, name := range []string{"王小明", "李四", "王", "王大華", "汪洋", "Wang", "wang"} {
			_, err := r.Create(ctx, registrant(name, "0900", base))
			require.NoError(t, err)
		}

		page, next, err := r.List(ctx, domain.CursorParams{Limit: 2}, "王")
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.NotEmpty(t, next)
		rest, last, err := r.List(ctx, domain.CursorParams{Limit: 2, After: next}, "王")
		require.NoError(t, err)
		assert.Empty(t, last)

		var names []string
		for _, p := range append(page, rest...) {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"王", "王大華", "王小明"}, names, "name ascending by code point")

		page, _, err = r.List(ctx, domain.CursorParams{Limit: 10}, "W")
		require.NoError(t, err)
		require.Len(t, page, 1, "prefix match is case-sensitive")
		assert.Equal(t, "Wang", page[0].Name)

		page, next, err = r.List(ctx, domain.CursorParams{Limit: 10}, "趙")
		require.NoError(t, err)
		assert.Empty(t, page)
		assert.Empty(t, next)
	})

	t.Run("List_RejectsCursorFromOtherOrdering", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			_, err := r.Create(ctx, registrant(fmt.Sprintf("王%d", i), "0900", base))
			require.NoError(t, err)
		}
		_, searchCursor, err := r.List(ctx, domain.CursorParams{Limit: 1}, "王")
		require.NoError(t, err)
		require.NotEmpty(t, searchCursor)

		_, _, err = r.List(ctx, domain.CursorParams{Limit: 1, After: searchCursor}, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Touch_OnlyMovesForward", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()
		created, err := r.Create(ctx, registrant("陳", "0900", base))
		require.NoError(t, err)

		require.NoError(t, r.Touch(ctx, created.ID, base.Add(-time.Hour)))
		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.Equal(base), "earlier time must not move updated_at back")

		require.NoError(t, r.Touch(ctx, created.ID, base.Add(time.Hour)))
		got, err = r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

		assert.ErrorIs(t, r.Touch(ctx, "missing", base), domain.ErrNotFound)
	})

	t.Run("Count", func(t *testing.T) {
		r := newStores(t).Registrants
		ctx := context.Background()
		n, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		for i := 0; i < 3; i++ {
			_, err := r.Create(ctx, registrant(fmt.Sprintf("c%d", i), "0900", base))
			require.NoError(t, err)
		}
		n, err = r.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})
}

// RunRegistrationRepo runs the RegistrationRepo contract.
func RunRegistrationRepo(t *testing.T, newStores Factory) {
	setup := func(t *testing.T) (Stores, domain.Registrant) {
		t.Helper()
		s := newStores(t)
		who, err := s.Registrants.Create(context.Background(), registrant("蔡孟錦", "0930431331", base))
		require.NoError(t, err)
		return s, who
	}

	registration := func(registrantID, hash string, at time.Time) domain.Registration {
		return domain.Registration{
			RegistrantID:   registrantID,
			ActivityName:   "《手作「興」生活—編織手工書》",
			SubmittedAt:    at,
			ResidentStatus: domain.ResidentNearbyDistrict,
			DedupHash:      hash,
		}
	}

	t.Run("CreateAndFindByHash", func(t *testing.T) {
		s, who := setup(t)
		ctx := context.Background()

		in := registration(who.ID, "h-1", base)
		in.Suggestions = "謝謝辦理活動 辛苦了"
		created, err := s.Registrations.Create(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, who.ID, created.RegistrantID)

		got, err := s.Registrations.FindByHash(ctx, "h-1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "謝謝辦理活動 辛苦了", got.Suggestions)
		assert.Equal(t, domain.ResidentNearbyDistrict, got.ResidentStatus)
		assert.True(t, got.SubmittedAt.Equal(base))

		_, err = s.Registrations.FindByHash(ctx, "h-2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.Registrations.FindByHash(ctx, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Create_DuplicateHash", func(t *testing.T) {
		s, who := setup(t)
		ctx := context.Background()

		_, err := s.Registrations.Create(ctx, registration(who.ID, "same", base))
		require.NoError(t, err)
		_, err = s.Registrations.Create(ctx, registration(who.ID, "same", base.Add(time.Minute)))
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		n, err := s.Registrations.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("Create_EmptyHashIsNotUnique", func(t *testing.T) {
		s, who := setup(t)
		ctx := context.Background()

		_, err := s.Registrations.Create(ctx, registration(who.ID, "", base))
		require.NoError(t, err)
		_, err = s.Registrations.Create(ctx, registration(who.ID, "", base.Add(time.Minute)))
		require.NoError(t, err)
	})

	t.Run("FindByContent", func(t *testing.T) {
		s, who := setup(t)
		ctx := context.Background()

		created, err := s.Registrations.Create(ctx, registration(who.ID, "", base))
		require.NoError(t, err)

		got, err := s.Registrations.FindByContent(ctx, who.ID, created.ActivityName, base)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = s.Registrations.FindByContent(ctx, who.ID, created.ActivityName, base.Add(time.Second))
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.Registrations.FindByContent(ctx, who.ID, "other", base)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListByRegistrant", func(t *testing.T) {
		s, who := setup(t)
		ctx := context.Background()
		other, err := s.Registrants.Create(ctx, registrant("other", "0900", base))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := s.Registrations.Create(ctx, registration(who.ID, fmt.Sprintf("w%d", i), base.Add(time.Duration(i)*time.Hour)))
			require.NoError(t, err)
		}
		_, err = s.Registrations.Create(ctx, registration(other.ID, "o", base))
		require.NoError(t, err)

		got, err := s.Registrations.ListByRegistrant(ctx, who.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "w2", got[0].DedupHash, "newest first")

		none, err := s.Registrations.ListByRegistrant(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("List_SubmittedDescending_Paged", func(t *testing.T) {
		s, who := setup(t)
		ctx := context.Background()
		for i := 0; i < 7; i++ {
			_, err := s.Registrations.Create(ctx, registration(who.ID, fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}

		first, next, err := s.Registrations.List(ctx, domain.CursorParams{Limit: 5})
		require.NoError(t, err)
		require.Len(t, first, 5)
		require.NotEmpty(t, next)
		assert.Equal(t, "r6", first[0].DedupHash)

		second, last, err := s.Registrations.List(ctx, domain.CursorParams{Limit: 5, After: next})
		require.NoError(t, err)
		require.Len(t, second, 2)
		assert.Empty(t, last)
		assert.Equal(t, "r0", second[1].DedupHash)

		n, err := s.Registrations.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 7, n)
	})

	t.Run("List_RejectsForeignCursor", func(t *testing.T) {
		s, _ := setup(t)
		foreign := domain.RegistrantCursor(domain.Registrant{ID: "x", UpdatedAt: base}, false)
		_, _, err := s.Registrations.List(context.Background(), domain.CursorParams{Limit: 5, After: foreign})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
