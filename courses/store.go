package courses

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
	Create(ctx context.Context, course *Course) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Course, error)
	ListByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) ([]Course, error)
	Update(ctx context.Context, id primitive.ObjectID, req UpdateCourseRequest) (*Course, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) (int64, error)
	// AverageTuition is nil when the bootcamp has no courses.
	AverageTuition(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) Store {
	return &mongoStore{coll: db.Collection(collection)}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	_, err := db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "bootcamp", Value: 1}},
	})
	return err
}

func (s *mongoStore) Create(ctx context.Context, course *Course) error {
	if course.ID.IsZero() {
		course.ID = primitive.NewObjectID()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, course); err != nil {
		return apperror.FromMongo(err, "Course")
	}
	return nil
}

func (s *mongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*Course, error) {
	var course Course
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&course); err != nil {
		return nil, apperror.FromMongo(err, "Course")
	}
	return &course, nil
}

func (s *mongoStore) ListByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) ([]Course, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"bootcamp": bootcampID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, apperror.FromMongo(err, "Course")
	}
	defer cursor.Close(ctx)

	out := make([]Course, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperror.FromMongo(err, "Course")
	}
	return out, nil
}

func (s *mongoStore) Update(ctx context.Context, id primitive.ObjectID, req UpdateCourseRequest) (*Course, error) {
	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Weeks != nil {
		set["weeks"] = *req.Weeks
	}
	if req.Tuition != nil {
		set["tuition"] = *req.Tuition
	}
	if req.MinimumSkill != nil {
		set["minimumSkill"] = *req.MinimumSkill
	}
	if req.ScholarshipAvailable != nil {
		set["scholarshipAvailable"] = *req.ScholarshipAvailable
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	var course Course
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&course)
	if err != nil {
		return nil, apperror.FromMongo(err, "Course")
	}
	return &course, nil
}

func (s *mongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperror.FromMongo(err, "Course")
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("Course not found")
	}
	return nil
}

func (s *mongoStore) DeleteByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"bootcamp": bootcampID})
	if err != nil {
		return 0, apperror.FromMongo(err, "Course")
	}
	return res.DeletedCount, nil
}

func (s *mongoStore) AverageTuition(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error) {
	cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"bootcamp": bootcampID}}},
		{{Key: "$group", Value: bson.M{"_id": "$bootcamp", "averageCost": bson.M{"$avg": "$tuition"}}}},
	})
	if err != nil {
		return nil, apperror.FromMongo(err, "Course")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		AverageCost float64 `bson:"averageCost"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperror.FromMongo(err, "Course")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].AverageCost, nil
}
