// Package memdir provides an in-memory UserDirectory for examples and
// tests. Records are lost on process exit; do not use it as a store of
// record.
package memdir

import (
	"context"
	"strconv"
	"sync"

	"github.com/mailauth-io/mailauth"
)

// Directory is a mutex-guarded in-memory implementation of
// [mailauth.UserDirectory]. The zero value is not usable; call [New].
type Directory struct {
	mu      sync.Mutex
	byID    map[string]*mailauth.UserRecord
	byEmail map[string]string
	nextID  int
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Directory {
	return &Directory{
		byID:    map[string]*mailauth.UserRecord{},
		byEmail: map[string]string{},
	}
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByEmail(_ context.Context, email string) (*mailauth.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *d.byID[id]
	return &cp, nil
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByID(_ context.Context, id string) (*mailauth.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, mailauth.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Create(_ context.Context, email string) (*mailauth.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	user := &mailauth.UserRecord{
		ID:    "user-" + strconv.Itoa(d.nextID),
		Email: email,
	}
	d.byID[user.ID] = user
	d.byEmail[email] = user.ID

	cp := *user
	return &cp, nil
}

// Update describes the update operation and its observable behavior.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Update(_ context.Context, id string, update mailauth.UserUpdate) (*mailauth.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, mailauth.ErrUserNotFound
	}
	if update.LoginCode != nil {
		user.LoginCode = *update.LoginCode
	}
	if update.EmailConfirmed != nil {
		user.EmailConfirmed = *update.EmailConfirmed
	}

	cp := *user
	return &cp, nil
}
