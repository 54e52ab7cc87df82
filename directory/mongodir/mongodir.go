// Package mongodir implements the mailauth user directory on MongoDB
// through the official mongo-go driver.
package mongodir

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mailauth-io/mailauth"
)

const (
	// DefaultCollectionName is the collection used when Config leaves
	// CollectionName empty.
	DefaultCollectionName = "users"
)

// Config defines a public type used by mailauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// DatabaseName selects the database holding the user collection.
	DatabaseName string

	// CollectionName overrides DefaultCollectionName when non-empty.
	CollectionName string
}

// Directory defines a public type used by mailauth APIs.
//
// Directory instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Directory struct {
	users *mongo.Collection
}

type userDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	LoginCode      string             `bson:"loginCode,omitempty"`
	EmailConfirmed bool               `bson:"emailConfirmed"`
}

func (d userDoc) record() *mailauth.UserRecord {
	return &mailauth.UserRecord{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		LoginCode:      d.LoginCode,
		EmailConfirmed: d.EmailConfirmed,
	}
}

// NewDirectory describes the newdirectory operation and its observable behavior.
//
// NewDirectory may return an error when input validation, dependency calls, or security checks fail.
// NewDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewDirectory(client *mongo.Client, cfg Config) (*Directory, error) {
	if client == nil {
		return nil, errors.New("mongodir: client must be provided")
	}
	if cfg.DatabaseName == "" {
		return nil, errors.New("mongodir: database name must be provided")
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = DefaultCollectionName
	}
	return &Directory{
		users: client.Database(cfg.DatabaseName).Collection(cfg.CollectionName),
	}, nil
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*mailauth.UserRecord, error) {
	var doc userDoc
	err := d.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return doc.record(), nil
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByID(ctx context.Context, id string) (*mailauth.UserRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mailauth.ErrUserNotFound
	}

	var doc userDoc
	err = d.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mailauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return doc.record(), nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Create(ctx context.Context, email string) (*mailauth.UserRecord, error) {
	doc := userDoc{Email: email}
	res, err := d.users.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected inserted id type %T", mailauth.ErrDirectoryUnavailable, res.InsertedID)
	}
	doc.ID = oid
	return doc.record(), nil
}

// Update describes the update operation and its observable behavior.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Update(ctx context.Context, id string, update mailauth.UserUpdate) (*mailauth.UserRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mailauth.ErrUserNotFound
	}

	set := bson.M{}
	if update.LoginCode != nil {
		set["loginCode"] = *update.LoginCode
	}
	if update.EmailConfirmed != nil {
		set["emailConfirmed"] = *update.EmailConfirmed
	}
	if len(set) == 0 {
		return d.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err = d.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mailauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return doc.record(), nil
}
