package users

import (
	"context"
	"strings"
	"time"

	"devcamper-backend/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the user persistence used by the auth flows and the admin handlers.
type Store interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByResetToken only matches a pending reset whose expiry is after now.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	Update(ctx context.Context, id primitive.ObjectID, params UpdateParams) (*User, error)
	// SetPassword replaces the hash and clears any pending reset.
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) Store {
	return &mongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique email index.
func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	_, err := db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *mongoStore) Create(ctx context.Context, user *User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = normalizeEmail(user.Email)

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewDuplicateKey("Email already registered", err)
		}
		return apperror.FromMongo(err, "User")
	}
	return nil
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, apperror.FromMongo(err, "User")
	}
	return &user, nil
}

func (s *mongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *mongoStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	return s.findOne(ctx, bson.M{
		"resetPasswordToken":  tokenHash,
		"resetPasswordExpire": bson.M{"$gt": now},
	})
}

func (s *mongoStore) Update(ctx context.Context, id primitive.ObjectID, params UpdateParams) (*User, error) {
	set := bson.M{}
	if params.Name != nil {
		set["name"] = strings.TrimSpace(*params.Name)
	}
	if params.Email != nil {
		set["email"] = normalizeEmail(*params.Email)
	}
	if params.Role != nil {
		set["role"] = *params.Role
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	var user User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.NewDuplicateKey("Email already registered", err)
		}
		return nil, apperror.FromMongo(err, "User")
	}
	return &user, nil
}

func (s *mongoStore) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return apperror.FromMongo(err, "User")
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}

func (s *mongoStore) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
}

func (s *mongoStore) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error {
	return s.updateByID(ctx, id, bson.M{
		"$set": bson.M{"resetPasswordToken": tokenHash, "resetPasswordExpire": expire},
	})
}

func (s *mongoStore) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
}

func (s *mongoStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"resetPasswordExpire": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""}},
	)
	if err != nil {
		return 0, apperror.FromMongo(err, "User")
	}
	return res.ModifiedCount, nil
}

func (s *mongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperror.FromMongo(err, "User")
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}
