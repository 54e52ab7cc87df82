package redisdir

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mailauth-io/mailauth"
)

func newTestDirectory(t *testing.T) (*Directory, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "matest"), mr
}

func TestCreateAssignsID(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Create(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("empty id")
	}
	if user.LoginCode != "" || user.EmailConfirmed {
		t.Fatalf("fresh user = %+v", user)
	}
}

func TestFindByEmail(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	created, err := dir.Create(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := dir.FindByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("FindByEmail = %+v, want id %q", found, created.ID)
	}

	missing, err := dir.FindByEmail(ctx, "nobody@b.com")
	if err != nil || missing != nil {
		t.Fatalf("FindByEmail missing = %+v, %v; want nil, nil", missing, err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	dir, _ := newTestDirectory(t)

	if _, err := dir.FindByID(context.Background(), "missing"); !errors.Is(err, mailauth.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateFields(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Create(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	code := "54321"
	updated, err := dir.Update(ctx, user.ID, mailauth.UserUpdate{LoginCode: &code})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.LoginCode != "54321" {
		t.Fatalf("LoginCode = %q", updated.LoginCode)
	}

	confirmed := true
	updated, err = dir.Update(ctx, user.ID, mailauth.UserUpdate{EmailConfirmed: &confirmed})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.EmailConfirmed || updated.LoginCode != "54321" {
		t.Fatalf("updated = %+v; partial update clobbered a field", updated)
	}

	if _, err := dir.Update(ctx, "missing", mailauth.UserUpdate{LoginCode: &code}); !errors.Is(err, mailauth.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestBackendUnavailable(t *testing.T) {
	dir, mr := newTestDirectory(t)
	mr.Close()

	if _, err := dir.FindByEmail(context.Background(), "a@b.com"); !errors.Is(err, mailauth.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
	if _, err := dir.Create(context.Background(), "a@b.com"); !errors.Is(err, mailauth.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestEngineOnRedisDirectory(t *testing.T) {
	dir, _ := newTestDirectory(t)

	var delivered []mailauth.Notification
	cfg := mailauth.DefaultConfig()
	cfg.API.BaseURL = "https://auth.example.com"
	cfg.JWT.Secret = []byte("redis-e2e-secret-32-bytes-long!!")

	engine, err := mailauth.New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithNotifier(func(_ context.Context, n mailauth.Notification) error {
			delivered = append(delivered, n)
			return nil
		}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.SendAuthenticationEmail(ctx, "a@b.com", "https://app/cb"); err != nil {
		t.Fatalf("SendAuthenticationEmail: %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("notifications = %d, want 1", len(delivered))
	}

	match, err := engine.VerifyLoginCode(ctx, "a@b.com", delivered[0].LoginCode)
	if err != nil {
		t.Fatalf("VerifyLoginCode: %v", err)
	}
	if match == nil {
		t.Fatal("no match for freshly issued code")
	}
}
