package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	// ErrNotFound is returned when no account matches the filter.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned when a create would violate email/mobile uniqueness.
	ErrDuplicate = errors.New("account already exists")
)

// Filter selects an account by exact match; non-empty fields are ANDed.
type Filter struct {
	Email  string
	Mobile string
	ID     string
}

// Store persists accounts.
type Store interface {
	Find(ctx context.Context, f Filter) (Account, error)
	Create(ctx context.Context, a Account) (string, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type accountDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email,omitempty"`
	Mobile       string        `bson:"mobileNumber,omitempty"`
	PasswordHash string        `bson:"password,omitempty"`
	Roles        []string      `bson:"roles"`
	CreatedAt    time.Time     `bson:"createdAt,omitempty"`
}

// MongoStore implements Store against a MongoDB collection.
type MongoStore struct {
	users *mongo.Collection
}

// NewMongoStore builds a Mongo-backed account store over the users collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{users: db.Collection("users")}
}

// EnsureIndexes creates the unique sparse indexes backing contact uniqueness.
// Sparse so that accounts missing one of the contacts do not collide on null.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "mobileNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Find fetches the first account matching the filter.
func (s *MongoStore) Find(ctx context.Context, f Filter) (Account, error) {
	filter := bson.D{}
	if f.ID != "" {
		oid, err := bson.ObjectIDFromHex(f.ID)
		if err != nil {
			return Account{}, ErrNotFound
		}
		filter = append(filter, bson.E{Key: "_id", Value: oid})
	}
	if f.Email != "" {
		filter = append(filter, bson.E{Key: "email", Value: f.Email})
	}
	if f.Mobile != "" {
		filter = append(filter, bson.E{Key: "mobileNumber", Value: f.Mobile})
	}
	if len(filter) == 0 {
		return Account{}, ErrNotFound
	}

	var doc accountDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	return doc.toAccount(), nil
}

// Create inserts a new account and returns the store-assigned identifier.
func (s *MongoStore) Create(ctx context.Context, a Account) (string, error) {
	doc := accountDoc{
		ID:           bson.NewObjectID(),
		Email:        a.Email,
		Mobile:       a.Mobile,
		PasswordHash: a.PasswordHash,
		Roles:        a.Roles,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert account: %w", err)
	}
	return doc.ID.Hex(), nil
}

// UpdatePassword replaces the stored password hash for the account.
func (s *MongoStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "password", Value: passwordHash}}}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d accountDoc) toAccount() Account {
	return Account{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Mobile:       d.Mobile,
		PasswordHash: d.PasswordHash,
		Roles:        d.Roles,
		CreatedAt:    d.CreatedAt,
	}
}
