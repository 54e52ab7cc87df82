// Package redisdir implements the mailauth user directory on Redis.
//
// Each user is a hash at {prefix}:user:{id}; a string key at
// {prefix}:email:{email} indexes the unique email to the user id.
package redisdir

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mailauth-io/mailauth"
)

const defaultPrefix = "ma"

const (
	fieldEmail          = "email"
	fieldLoginCode      = "login_code"
	fieldEmailConfirmed = "email_confirmed"
)

// Directory defines a public type used by mailauth APIs.
//
// Directory instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Directory struct {
	redis  *redis.Client
	prefix string
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(client *redis.Client, prefix string) *Directory {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Directory{
		redis:  client,
		prefix: prefix,
	}
}

func (d *Directory) userKey(id string) string {
	return d.prefix + ":user:" + id
}

func (d *Directory) emailKey(email string) string {
	return d.prefix + ":email:" + email
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*mailauth.UserRecord, error) {
	id, err := d.redis.Get(ctx, d.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return d.FindByID(ctx, id)
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByID(ctx context.Context, id string) (*mailauth.UserRecord, error) {
	fields, err := d.redis.HGetAll(ctx, d.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, mailauth.ErrUserNotFound
	}
	return decodeRecord(id, fields), nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Create(ctx context.Context, email string) (*mailauth.UserRecord, error) {
	id := uuid.NewString()

	pipe := d.redis.TxPipeline()
	pipe.HSet(ctx, d.userKey(id),
		fieldEmail, email,
		fieldLoginCode, "",
		fieldEmailConfirmed, "0",
	)
	pipe.Set(ctx, d.emailKey(email), id, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}

	return &mailauth.UserRecord{ID: id, Email: email}, nil
}

// Update describes the update operation and its observable behavior.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Update(ctx context.Context, id string, update mailauth.UserUpdate) (*mailauth.UserRecord, error) {
	exists, err := d.redis.Exists(ctx, d.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	if exists == 0 {
		return nil, mailauth.ErrUserNotFound
	}

	values := make([]interface{}, 0, 4)
	if update.LoginCode != nil {
		values = append(values, fieldLoginCode, *update.LoginCode)
	}
	if update.EmailConfirmed != nil {
		values = append(values, fieldEmailConfirmed, boolField(*update.EmailConfirmed))
	}
	if len(values) > 0 {
		if err := d.redis.HSet(ctx, d.userKey(id), values...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
		}
	}

	return d.FindByID(ctx, id)
}

func decodeRecord(id string, fields map[string]string) *mailauth.UserRecord {
	confirmed, _ := strconv.ParseBool(fields[fieldEmailConfirmed])
	return &mailauth.UserRecord{
		ID:             id,
		Email:          fields[fieldEmail],
		LoginCode:      fields[fieldLoginCode],
		EmailConfirmed: confirmed,
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
