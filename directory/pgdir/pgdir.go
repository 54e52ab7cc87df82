// Package pgdir implements the mailauth user directory on PostgreSQL
// through database/sql and the pgx stdlib driver.
package pgdir

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mailauth-io/mailauth"
)

// Schema is the table the directory expects. It is provided for
// migration tooling; the package never runs DDL itself.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email           TEXT NOT NULL UNIQUE,
    login_code      TEXT,
    email_confirmed BOOLEAN NOT NULL DEFAULT FALSE
);`

// Directory defines a public type used by mailauth APIs.
//
// Directory instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Directory struct {
	db *sql.DB
}

// Open connects to PostgreSQL with the pgx stdlib driver and returns a
// directory backed by the connection pool.
func Open(dsn string) (*Directory, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return NewDirectory(db), nil
}

// NewDirectory wraps an existing pool, which the caller owns and closes.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Close() error {
	return d.db.Close()
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*mailauth.UserRecord, error) {
	query :=
		`SELECT id, email, login_code, email_confirmed FROM users
		 WHERE email = $1
		 `

	user, err := scanUser(d.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return user, nil
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) FindByID(ctx context.Context, id string) (*mailauth.UserRecord, error) {
	query :=
		`SELECT id, email, login_code, email_confirmed FROM users
		 WHERE id = $1
		 `

	user, err := scanUser(d.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, mailauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return user, nil
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Create(ctx context.Context, email string) (*mailauth.UserRecord, error) {
	query :=
		`INSERT INTO users (email)
		 VALUES ($1)
		 RETURNING id
		 `

	user := &mailauth.UserRecord{Email: email}
	if err := d.db.QueryRowContext(ctx, query, email).Scan(&user.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return user, nil
}

// Update describes the update operation and its observable behavior.
//
// Update may return an error when input validation, dependency calls, or security checks fail.
// Update does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Directory) Update(ctx context.Context, id string, update mailauth.UserUpdate) (*mailauth.UserRecord, error) {
	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)

	if update.LoginCode != nil {
		args = append(args, *update.LoginCode)
		sets = append(sets, fmt.Sprintf("login_code = $%d", len(args)))
	}
	if update.EmailConfirmed != nil {
		args = append(args, *update.EmailConfirmed)
		sets = append(sets, fmt.Sprintf("email_confirmed = $%d", len(args)))
	}
	if len(sets) == 0 {
		return d.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING id, email, login_code, email_confirmed`,
		strings.Join(sets, ", "), len(args),
	)

	user, err := scanUser(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, mailauth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mailauth.ErrDirectoryUnavailable, err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*mailauth.UserRecord, error) {
	var (
		user mailauth.UserRecord
		code sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Email, &code, &user.EmailConfirmed); err != nil {
		return nil, err
	}
	user.LoginCode = code.String
	return &user, nil
}
