package reviews

import (
	"context"
	"time"

	"devcamper-backend/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store interface {
	// Create fails with DuplicateKey when the user already reviewed the bootcamp.
	Create(ctx context.Context, review *Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Review, error)
	ListByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) ([]Review, error)
	Update(ctx context.Context, id primitive.ObjectID, req UpdateReviewRequest) (*Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) (int64, error)
	// AverageRating is nil when the bootcamp has no reviews.
	AverageRating(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error)
}

const duplicateReview = "You have already reviewed this bootcamp"

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) Store {
	return &mongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes enforces one review per user per bootcamp.
func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	_, err := db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bootcamp", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *mongoStore) Create(ctx context.Context, review *Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewDuplicateKey(duplicateReview, err)
		}
		return apperror.FromMongo(err, "Review")
	}
	return nil
}

func (s *mongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*Review, error) {
	var review Review
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&review); err != nil {
		return nil, apperror.FromMongo(err, "Review")
	}
	return &review, nil
}

func (s *mongoStore) ListByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) ([]Review, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"bootcamp": bootcampID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, apperror.FromMongo(err, "Review")
	}
	defer cursor.Close(ctx)

	out := make([]Review, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperror.FromMongo(err, "Review")
	}
	return out, nil
}

func (s *mongoStore) Update(ctx context.Context, id primitive.ObjectID, req UpdateReviewRequest) (*Review, error) {
	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Text != nil {
		set["text"] = *req.Text
	}
	if req.Rating != nil {
		set["rating"] = *req.Rating
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	var review Review
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&review)
	if err != nil {
		return nil, apperror.FromMongo(err, "Review")
	}
	return &review, nil
}

func (s *mongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperror.FromMongo(err, "Review")
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("Review not found")
	}
	return nil
}

func (s *mongoStore) DeleteByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"bootcamp": bootcampID})
	if err != nil {
		return 0, apperror.FromMongo(err, "Review")
	}
	return res.DeletedCount, nil
}

func (s *mongoStore) AverageRating(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error) {
	cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"bootcamp": bootcampID}}},
		{{Key: "$group", Value: bson.M{"_id": "$bootcamp", "averageRating": bson.M{"$avg": "$rating"}}}},
	})
	if err != nil {
		return nil, apperror.FromMongo(err, "Review")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		AverageRating float64 `bson:"averageRating"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperror.FromMongo(err, "Review")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].AverageRating, nil
}
