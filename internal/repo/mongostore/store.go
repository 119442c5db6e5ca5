// Package mongostore is the MongoDB Record Store, selected with
// STORE_DRIVER=mongo. It keeps the same two collections and cursor
// semantics as the Postgres store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

const (
	registrantsCollection   = "registrants"
	registrationsCollection = "registration_history"
)

// Store wraps one Mongo database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	// clk stamps created_at and the initial updated_at.
	clk clock.Clock
}

// Connect dials uri, verifies the connection and ensures indexes. A nil clk
// means the system clock.
func Connect(ctx context.Context, uri, database string, clk clock.Clock) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore.Connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore.Connect: ping: %w", err)
	}

	s := New(client.Database(database), clk)
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps an already connected database. Close is a no-op for it.
func New(db *mongo.Database, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Store{db: db, clk: clk}
}

// EnsureIndexes creates the listing, identity and dedup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	registrants := s.db.Collection(registrantsCollection)
	_, err := registrants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "phone", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongostore.EnsureIndexes: registrants: %w", err)
	}

	history := s.db.Collection(registrationsCollection)
	_, err = history.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "dedup_hash", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"dedup_hash": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "registrant_id", Value: 1}}},
		{Keys: bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongostore.EnsureIndexes: registration_history: %w", err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects a client opened by Connect.
func (s *Store) Close(ctx context.Context) error {
	if s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}

// Registrants returns the registrant collection.
func (s *Store) Registrants() repo.RegistrantRepo {
	return &registrantRepo{coll: s.db.Collection(registrantsCollection), clk: s.clk}
}

// Registrations returns the registration history collection.
func (s *Store) Registrations() repo.RegistrationRepo {
	return &registrationRepo{
		coll:        s.db.Collection(registrationsCollection),
		registrants: s.db.Collection(registrantsCollection),
		clk:         s.clk,
	}
}

// mongoTime truncates to the millisecond precision BSON dates carry, so the
// value handed back to callers is exactly what a later read returns.
func mongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func translateErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrDuplicate
	}
	return err
}

// afterDesc is the keyset predicate for a (field DESC, _id DESC) ordering.
func afterDesc(field string, key any, id primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$lt": key}},
		bson.M{field: key, "_id": bson.M{"$lt": id}},
	}}
}

// afterAsc is the keyset predicate for a (field ASC, _id ASC) ordering.
func afterAsc(field string, key any, id primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$gt": key}},
		bson.M{field: key, "_id": bson.M{"$gt": id}},
	}}
}

// decodeTimeCursor unpacks a time-keyed cursor into its Mongo key parts.
func decodeTimeCursor(c domain.Cursor, o domain.Ordering) (time.Time, primitive.ObjectID, error) {
	k, err := domain.DecodeCursor(c, o)
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}
	ts, err := k.TimeKey()
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}
	id, ok := objectID(k.ID)
	if !ok {
		return time.Time{}, primitive.NilObjectID, fmt.Errorf("%w: cursor id", domain.ErrValidation)
	}
	return ts, id, nil
}
