package bootcamps

import (
	"context"
	"time"

	"devcamper-backend/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EarthRadiusKm converts a search distance into radians for $centerSphere.
const EarthRadiusKm = 6371.0

type Store interface {
	Create(ctx context.Context, b *Bootcamp) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Bootcamp, error)
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, changes Changes) (*Bootcamp, error)
	SetPhoto(ctx context.Context, id primitive.ObjectID, photo string) error
	// SetAggregate writes a derived average; nil removes the field.
	SetAggregate(ctx context.Context, id primitive.ObjectID, field string, value *float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	WithinRadius(ctx context.Context, lng, lat, distanceKm float64) ([]Bootcamp, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) Store {
	return &mongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique name and slug indexes and the geo index used by radius search.
func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	_, err := db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	})
	return err
}

func (s *mongoStore) Create(ctx context.Context, b *Bootcamp) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Photo == "" {
		b.Photo = DefaultPhoto
	}
	if _, err := s.coll.InsertOne(ctx, b); err != nil {
		return apperror.FromMongo(err, "Bootcamp")
	}
	return nil
}

func (s *mongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*Bootcamp, error) {
	var b Bootcamp
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, apperror.FromMongo(err, "Bootcamp")
	}
	return &b, nil
}

func (s *mongoStore) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, apperror.FromMongo(err, "Bootcamp")
	}
	return n, nil
}

func (c Changes) set() bson.M {
	set := bson.M{}
	put := func(key string, present bool, v any) {
		if present {
			set[key] = v
		}
	}
	put("name", c.Name != nil, deref(c.Name))
	put("slug", c.Slug != nil, deref(c.Slug))
	put("description", c.Description != nil, deref(c.Description))
	put("website", c.Website != nil, deref(c.Website))
	put("phone", c.Phone != nil, deref(c.Phone))
	put("email", c.Email != nil, deref(c.Email))
	put("location", c.Location != nil, c.Location)
	put("careers", c.Careers != nil, deref(c.Careers))
	put("housing", c.Housing != nil, deref(c.Housing))
	put("jobAssistance", c.JobAssistance != nil, deref(c.JobAssistance))
	put("jobGuarantee", c.JobGuarantee != nil, deref(c.JobGuarantee))
	put("acceptGi", c.AcceptGi != nil, deref(c.AcceptGi))
	return set
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (s *mongoStore) Update(ctx context.Context, id primitive.ObjectID, changes Changes) (*Bootcamp, error) {
	set := changes.set()
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	var b Bootcamp
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		return nil, apperror.FromMongo(err, "Bootcamp")
	}
	return &b, nil
}

func (s *mongoStore) SetPhoto(ctx context.Context, id primitive.ObjectID, photo string) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"photo": photo}})
	if err != nil {
		return apperror.FromMongo(err, "Bootcamp")
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("Bootcamp not found")
	}
	return nil
}

func (s *mongoStore) SetAggregate(ctx context.Context, id primitive.ObjectID, field string, value *float64) error {
	update := bson.M{"$unset": bson.M{field: ""}}
	if value != nil {
		update = bson.M{"$set": bson.M{field: *value}}
	}
	if _, err := s.coll.UpdateByID(ctx, id, update); err != nil {
		return apperror.FromMongo(err, "Bootcamp")
	}
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperror.FromMongo(err, "Bootcamp")
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("Bootcamp not found")
	}
	return nil
}

func (s *mongoStore) WithinRadius(ctx context.Context, lng, lat, distanceKm float64) ([]Bootcamp, error) {
	filter := bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, distanceKm / EarthRadiusKm},
			},
		},
	}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, apperror.FromMongo(err, "Bootcamp")
	}
	defer cursor.Close(ctx)

	out := make([]Bootcamp, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperror.FromMongo(err, "Bootcamp")
	}
	return out, nil
}
