package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the user mirror collection name.
const Collection = "users"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Profile is what the identity provider tells us at sign-in.
type Profile struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

var errNoUID = errors.New("user profile has no uid")

// Upsert records a sign-in. Profile fields and last_login are overwritten;
// created_at is only set the first time the uid is seen.
func (s *Store) Upsert(ctx context.Context, p Profile) (models.User, error) {
	uid := strings.TrimSpace(p.UID)
	if uid == "" {
		return models.User{}, errNoUID
	}
	now := time.Now().UTC()

	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{
			"$set": bson.M{
				"display_name": normalize.Name(p.DisplayName),
				"email":        normalize.Email(p.Email),
				"photo_url":    strings.TrimSpace(p.PhotoURL),
				"last_login":   now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// GetByID loads a user by provider uid.
func (s *Store) GetByID(ctx context.Context, uid string) (models.User, bool, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

// List returns every mirrored user, most recent sign-in first.
func (s *Store) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_login", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

// Count returns the number of mirrored users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// Delete removes a mirror entry. The user can sign in again, which
// recreates it.
func (s *Store) Delete(ctx context.Context, uid string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": uid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("user", uid)
	}
	return nil
}
