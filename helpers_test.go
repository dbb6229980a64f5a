package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kiratremon/authcore/authz"
)

const (
	testAdminID       = "u-admin-1"
	testAdminUsername = "sysadmin"
	alicePassword     = "correct-password-123"
)

// testConfig keeps argon2 at its minimum cost so the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.BufferSize = 32
	cfg.Guard.Reserved = []ReservedIdentity{
		{UserID: testAdminID, Username: testAdminUsername},
	}
	return cfg
}

type stubUserProvider struct {
	mu   sync.Mutex
	byID map[string]UserRecord
}

func newStubUserProvider() *stubUserProvider {
	return &stubUserProvider{byID: make(map[string]UserRecord)}
}

func (p *stubUserProvider) put(user UserRecord) {
	p.mu.Lock()
	p.byID[user.UserID] = user
	p.mu.Unlock()
}

func (p *stubUserProvider) remove(userID string) {
	p.mu.Lock()
	delete(p.byID, userID)
	p.mu.Unlock()
}

func (p *stubUserProvider) GetUserByUsername(_ context.Context, username string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, user := range p.byID {
		if user.Username == username {
			return user, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (p *stubUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func newTestEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *stubUserProvider, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	up := newStubUserProvider()
	builder := New().WithConfig(cfg).WithRedis(rdb).WithUserProvider(up)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}
	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("engine build failed: %v", err)
	}

	seedUser(t, engine, up, UserRecord{
		UserID:      "u-100",
		Username:    "alice",
		Status:      AccountActive,
		TenantID:    "t-1",
		DeptID:      "d-10",
		Roles:       []string{"editor"},
		Permissions: []string{"doc:read", "doc:write"},
		DataScope:   authz.ScopeDept,
	}, alicePassword)

	return engine, up, mr, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func seedUser(t *testing.T, engine *Engine, up *stubUserProvider, user UserRecord, plaintext string) {
	t.Helper()
	hash, err := engine.PasswordHasher().Hash(plaintext)
	if err != nil {
		t.Fatalf("seed hash failed: %v", err)
	}
	user.PasswordHash = hash
	up.put(user)
}

func waitForAudit(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected audit event %q", eventType)
			return AuditEvent{}
		}
	}
}
