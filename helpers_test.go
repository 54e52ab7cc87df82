package mailauth

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// stubDirectory is a minimal in-memory UserDirectory for engine tests.
// Individual operations can be forced to fail.
type stubDirectory struct {
	mu     sync.Mutex
	users  map[string]*UserRecord
	nextID int

	failFindByEmail error
	failFindByID    error
	failCreate      error
	failUpdate      error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{users: map[string]*UserRecord{}}
}

func (d *stubDirectory) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFindByEmail != nil {
		return nil, d.failFindByEmail
	}
	for _, u := range d.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *stubDirectory) FindByID(_ context.Context, id string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFindByID != nil {
		return nil, d.failFindByID
	}
	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *stubDirectory) Create(_ context.Context, email string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate != nil {
		return nil, d.failCreate
	}
	d.nextID++
	u := &UserRecord{ID: fmt.Sprintf("user-%d", d.nextID), Email: email}
	d.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (d *stubDirectory) Update(_ context.Context, id string, update UserUpdate) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failUpdate != nil {
		return nil, d.failUpdate
	}
	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if update.LoginCode != nil {
		u.LoginCode = *update.LoginCode
	}
	if update.EmailConfirmed != nil {
		u.EmailConfirmed = *update.EmailConfirmed
	}
	cp := *u
	return &cp, nil
}

func (d *stubDirectory) userCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

func (d *stubDirectory) mustGet(t *testing.T, id string) UserRecord {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		t.Fatalf("user %q not in directory", id)
	}
	return *u
}

// captureNotifier records every notification it is handed.
type captureNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail error
}

func (n *captureNotifier) notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *captureNotifier) last(t *testing.T) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no notification captured")
	}
	return n.sent[len(n.sent)-1]
}

const testBaseURL = "https://auth.example.com"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = testBaseURL
	cfg.JWT.Secret = []byte("engine-test-secret-32-bytes-long")
	return cfg
}

func newTestEngine(t *testing.T, dir UserDirectory, notifier *captureNotifier) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(testConfig()).
		WithDirectory(dir).
		WithNotifier(notifier.notify).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
