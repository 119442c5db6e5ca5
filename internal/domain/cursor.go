package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is an opaque position marker pointing just after one record of one
// ordering. The empty Cursor means "start of the result set".
type Cursor string

// Ordering names one sort order of one collection. A cursor is only valid
// for the ordering that minted it.
type Ordering string

const (
	// OrderRegistrantsByUpdated is the unfiltered registrant listing,
	// updated_at descending.
	OrderRegistrantsByUpdated Ordering = "registrants.updated_desc"
	// OrderRegistrantsByName is the prefix search listing, name ascending.
	OrderRegistrantsByName Ordering = "registrants.name_asc"
	// OrderRegistrationsBySubmitted is the history listing, submitted_at descending.
	OrderRegistrationsBySubmitted Ordering = "registrations.submitted_desc"
)

// CursorKey is the decoded form of a Cursor: the sort key and id of the
// last record on a page.
type CursorKey struct {
	Ordering Ordering `json:"o"`
	Key      string   `json:"k"`
	ID       string   `json:"id"`
}

// TimeKey returns Key parsed as an RFC 3339 timestamp.
func (k CursorKey) TimeKey() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, k.Key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed cursor time", ErrValidation)
	}
	return t, nil
}

// EncodeCursor turns a key into an opaque Cursor.
func EncodeCursor(k CursorKey) Cursor {
	b, _ := json.Marshal(k)
	return Cursor(base64.RawURLEncoding.EncodeToString(b))
}

// TimeCursor mints a cursor for a time-ordered collection.
func TimeCursor(o Ordering, t time.Time, id string) Cursor {
	return EncodeCursor(CursorKey{Ordering: o, Key: t.UTC().Format(time.RFC3339Nano), ID: id})
}

// DecodeCursor parses c and checks that it belongs to ordering o.
// Returns a wrapped ErrValidation for anything that did not come out of
// EncodeCursor for the same ordering, so stale cursors from another
// filter context are never applied.
func DecodeCursor(c Cursor, o Ordering) (CursorKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return CursorKey{}, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	var k CursorKey
	if err := json.Unmarshal(raw, &k); err != nil {
		return CursorKey{}, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	if k.Ordering != o {
		return CursorKey{}, fmt.Errorf("%w: cursor belongs to %s, not %s", ErrValidation, k.Ordering, o)
	}
	if k.ID == "" {
		return CursorKey{}, fmt.Errorf("%w: cursor has no id", ErrValidation)
	}
	return k, nil
}

// NameRangeEnd is appended to a search prefix to form the exclusive upper
// bound of a prefix range query.
const NameRangeEnd = "\uf8ff"

// RegistrantCursor returns the cursor that resumes a registrant listing just
// after r. searching selects the name ordering used by prefix searches.
func RegistrantCursor(r Registrant, searching bool) Cursor {
	if searching {
		return EncodeCursor(CursorKey{Ordering: OrderRegistrantsByName, Key: r.Name, ID: r.ID})
	}
	return TimeCursor(OrderRegistrantsByUpdated, r.UpdatedAt, r.ID)
}

// RegistrationCursor returns the cursor that resumes the history listing
// just after r.
func RegistrationCursor(r Registration) Cursor {
	return TimeCursor(OrderRegistrationsBySubmitted, r.SubmittedAt, r.ID)
}
