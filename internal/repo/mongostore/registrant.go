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

type registrantDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	Email           string             `bson:"email"`
	Phone           string             `bson:"phone"`
	Gender          string             `bson:"gender"`
	Age             string             `bson:"age"`
	LineID          string             `bson:"line_id"`
	ResidentStatus  string             `bson:"resident_status"`
	HousingLocation string             `bson:"housing_location"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (d registrantDoc) toDomain() domain.Registrant {
	return domain.Registrant{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Gender:          d.Gender,
		Age:             d.Age,
		LineID:          d.LineID,
		ResidentStatus:  domain.ResidentStatus(d.ResidentStatus),
		HousingLocation: d.HousingLocation,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

type registrantRepo struct {
	coll *mongo.Collection
	clk  clock.Clock
}

func (r *registrantRepo) List(ctx context.Context, p domain.CursorParams, prefix string) ([]domain.Registrant, domain.Cursor, error) {
	filter := bson.M{}
	var sort bson.D

	if prefix != "" {
		filter["name"] = bson.M{"$gte": prefix, "$lt": prefix + domain.NameRangeEnd}
		sort = bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
		if p.After != "" {
			k, err := domain.DecodeCursor(p.After, domain.OrderRegistrantsByName)
			if err != nil {
				return nil, "", fmt.Errorf("mongostore.RegistrantRepo.List: %w", err)
			}
			id, ok := objectID(k.ID)
			if !ok {
				return nil, "", fmt.Errorf("mongostore.RegistrantRepo.List: %w: cursor id", domain.ErrValidation)
			}
			filter = bson.M{"$and": bson.A{filter, afterAsc("name", k.Key, id)}}
		}
	} else {
		sort = bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}
		if p.After != "" {
			ts, id, err := decodeTimeCursor(p.After, domain.OrderRegistrantsByUpdated)
			if err != nil {
				return nil, "", fmt.Errorf("mongostore.RegistrantRepo.List: %w", err)
			}
			filter = afterDesc("updated_at", ts, id)
		}
	}

	opts := options.Find().SetSort(sort).SetLimit(int64(p.Limit))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", fmt.Errorf("mongostore.RegistrantRepo.List: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []registrantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, "", fmt.Errorf("mongostore.RegistrantRepo.List: %w", err)
	}

	out := make([]domain.Registrant, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	var next domain.Cursor
	if len(out) > 0 && len(out) >= p.Limit {
		next = domain.RegistrantCursor(out[len(out)-1], prefix != "")
	}
	return out, next, nil
}

func (r *registrantRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongostore.RegistrantRepo.Count: %w", err)
	}
	return n, nil
}

func (r *registrantRepo) GetByID(ctx context.Context, id string) (domain.Registrant, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.Registrant{}, fmt.Errorf("mongostore.RegistrantRepo.GetByID: %w", domain.ErrNotFound)
	}
	var d registrantDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return domain.Registrant{}, fmt.Errorf("mongostore.RegistrantRepo.GetByID: %w", translateErr(err))
	}
	return d.toDomain(), nil
}

func (r *registrantRepo) FindByIdentity(ctx context.Context, name, phone string) (domain.Registrant, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	var d registrantDoc
	if err := r.coll.FindOne(ctx, bson.M{"name": name, "phone": phone}, opts).Decode(&d); err != nil {
		return domain.Registrant{}, fmt.Errorf("mongostore.RegistrantRepo.FindByIdentity: %w", translateErr(err))
	}
	return d.toDomain(), nil
}

func (r *registrantRepo) Create(ctx context.Context, reg domain.Registrant) (domain.Registrant, error) {
	now := mongoTime(r.clk.Now())
	d := registrantDoc{
		ID:              primitive.NewObjectID(),
		Name:            reg.Name,
		Email:           reg.Email,
		Phone:           reg.Phone,
		Gender:          reg.Gender,
		Age:             reg.Age,
		LineID:          reg.LineID,
		ResidentStatus:  string(reg.ResidentStatus),
		HousingLocation: reg.HousingLocation,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.ResidentStatus == "" {
		d.ResidentStatus = string(domain.ResidentGeneralPublic)
	}
	if !reg.UpdatedAt.IsZero() {
		d.UpdatedAt = mongoTime(reg.UpdatedAt)
	}

	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return domain.Registrant{}, fmt.Errorf("mongostore.RegistrantRepo.Create: %w", translateErr(err))
	}
	return d.toDomain(), nil
}

func (r *registrantRepo) Touch(ctx context.Context, id string, at time.Time) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("mongostore.RegistrantRepo.Touch: %w", domain.ErrNotFound)
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$max": bson.M{"updated_at": mongoTime(at)}})
	if err != nil {
		return fmt.Errorf("mongostore.RegistrantRepo.Touch: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongostore.RegistrantRepo.Touch: %w", domain.ErrNotFound)
	}
	return nil
}
