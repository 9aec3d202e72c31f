package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collUsers = "users"

// MongoStore is a MongoDB-backed user store.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoDB-backed user store and ensures its unique indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	s := &MongoStore{coll: db.Collection(collUsers)}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "verifyToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u User) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "_id", id)
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var users []User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *MongoStore) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return s.findOne(ctx, "googleId", googleID)
}

func (s *MongoStore) GetUserByVerifyToken(ctx context.Context, token string) (*User, error) {
	return s.findOne(ctx, "verifyToken", token)
}

func (s *MongoStore) UpdateUser(ctx context.Context, u User) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	old, err := s.findOne(ctx, "_id", u.ID)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = old.CreatedAt

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("update user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	return &u, nil
}

func (s *MongoStore) findOne(ctx context.Context, field, value string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if value == "" {
		return nil, fmt.Errorf("user by empty %s: %w", field, ErrNotFound)
	}
	var u User
	err := s.coll.FindOne(ctx, bson.M{field: value}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user by %s %q: %w", field, value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
