package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
)

type registrationDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	RegistrantID     primitive.ObjectID `bson:"registrant_id"`
	ActivityName     string             `bson:"activity_name"`
	SubmittedAt      time.Time          `bson:"submitted_at"`
	Age              string             `bson:"age"`
	ChildrenCount    string             `bson:"children_count"`
	SportsExperience string             `bson:"sports_experience"`
	InjuryHistory    string             `bson:"injury_history"`
	InfoSource       string             `bson:"info_source"`
	Suggestions      string             `bson:"suggestions"`
	ResidentStatus   string             `bson:"resident_status"`
	DedupHash        string             `bson:"dedup_hash"`
	CreatedAt        time.Time          `bson:"created_at"`
}

func (d registrationDoc) toDomain() domain.Registration {
	return domain.Registration{
		ID:               d.ID.Hex(),
		RegistrantID:     d.RegistrantID.Hex(),
		ActivityName:     d.ActivityName,
		SubmittedAt:      d.SubmittedAt.UTC(),
		Age:              d.Age,
		ChildrenCount:    d.ChildrenCount,
		SportsExperience: d.SportsExperience,
		InjuryHistory:    d.InjuryHistory,
		InfoSource:       d.InfoSource,
		Suggestions:      d.Suggestions,
		ResidentStatus:   domain.ResidentStatus(d.ResidentStatus),
		DedupHash:        d.DedupHash,
		CreatedAt:        d.CreatedAt.UTC(),
	}
}

type registrationRepo struct {
	coll        *mongo.Collection
	registrants *mongo.Collection
	clk         clock.Clock
}

var newestFirst = bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *registrationRepo) List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error) {
	filter := bson.M{}
	if p.After != "" {
		ts, id, err := decodeTimeCursor(p.After, domain.OrderRegistrationsBySubmitted)
		if err != nil {
			return nil, "", fmt.Errorf("mongostore.RegistrationRepo.List: %w", err)
		}
		filter = afterDesc("submitted_at", ts, id)
	}

	out, err := r.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(p.Limit)))
	if err != nil {
		return nil, "", fmt.Errorf("mongostore.RegistrationRepo.List: %w", err)
	}
	var next domain.Cursor
	if len(out) > 0 && len(out) >= p.Limit {
		next = domain.RegistrationCursor(out[len(out)-1])
	}
	return out, next, nil
}

func (r *registrationRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongostore.RegistrationRepo.Count: %w", err)
	}
	return n, nil
}

func (r *registrationRepo) ListByRegistrant(ctx context.Context, registrantID string) ([]domain.Registration, error) {
	oid, ok := objectID(registrantID)
	if !ok {
		return []domain.Registration{}, nil
	}
	out, err := r.find(ctx, bson.M{"registrant_id": oid}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongostore.RegistrationRepo.ListByRegistrant: %w", err)
	}
	return out, nil
}

func (r *registrationRepo) FindByHash(ctx context.Context, hash string) (domain.Registration, error) {
	if hash == "" {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.FindByHash: %w", domain.ErrNotFound)
	}
	var d registrationDoc
	if err := r.coll.FindOne(ctx, bson.M{"dedup_hash": hash}).Decode(&d); err != nil {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.FindByHash: %w", translateErr(err))
	}
	return d.toDomain(), nil
}

func (r *registrationRepo) FindByContent(ctx context.Context, registrantID, activity string, submittedAt time.Time) (domain.Registration, error) {
	oid, ok := objectID(registrantID)
	if !ok {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.FindByContent: %w", domain.ErrNotFound)
	}
	filter := bson.M{
		"registrant_id": oid,
		"activity_name": activity,
		"submitted_at":  mongoTime(submittedAt),
	}
	var d registrationDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.FindByContent: %w", translateErr(err))
	}
	return d.toDomain(), nil
}

func (r *registrationRepo) Create(ctx context.Context, reg domain.Registration) (domain.Registration, error) {
	owner, ok := objectID(reg.RegistrantID)
	if !ok {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.Create: registrant: %w", domain.ErrNotFound)
	}
	n, err := r.registrants.CountDocuments(ctx, bson.M{"_id": owner})
	if err != nil {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.Create: %w", err)
	}
	if n == 0 {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.Create: registrant: %w", domain.ErrNotFound)
	}

	d := registrationDoc{
		ID:               primitive.NewObjectID(),
		RegistrantID:     owner,
		ActivityName:     reg.ActivityName,
		SubmittedAt:      mongoTime(reg.SubmittedAt),
		Age:              reg.Age,
		ChildrenCount:    reg.ChildrenCount,
		SportsExperience: reg.SportsExperience,
		InjuryHistory:    reg.InjuryHistory,
		InfoSource:       reg.InfoSource,
		Suggestions:      reg.Suggestions,
		ResidentStatus:   string(reg.ResidentStatus),
		DedupHash:        reg.DedupHash,
		CreatedAt:        mongoTime(r.clk.Now()),
	}
	if d.ResidentStatus == "" {
		d.ResidentStatus = string(domain.ResidentGeneralPublic)
	}

	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return domain.Registration{}, fmt.Errorf("mongostore.RegistrationRepo.Create: %w", translateErr(err))
	}
	return d.toDomain(), nil
}

func (r *registrationRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Registration, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []registrationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Registration, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
