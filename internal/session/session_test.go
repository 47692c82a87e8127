package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanhub/stockport/internal/db"
	"github.com/cleanhub/stockport/internal/store"
)

// testClock is a manually advanced clock for deadline tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *testClock) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	m := NewManager(cfg, store.NewSessionStore(d), slog.Default())
	t.Cleanup(m.Close)

	clock := newTestClock()
	m.now = clock.Now
	return m, clock
}

func TestLoginRequiresToken(t *testing.T) {
	m, _ := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})
	assert.Error(t, m.Login(context.Background(), "", ""))
}

func TestCurrentNilWithoutLogin(t *testing.T) {
	m, _ := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})

	rec, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLoginStoresTokenAndTimestamp(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "tok-1", "site-7"))

	rec, err := m.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "tok-1", rec.Token)
	assert.Equal(t, "site-7", rec.ScopeID)
	assert.Equal(t, clock.Now().UnixMilli(), rec.IssuedAt.UnixMilli())
}

func TestSiteSessionExpiresAfterTTL(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "tok-1", "site-7"))

	clock.Advance(61 * time.Minute)

	rec, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.True(t, m.Expired())

	// The credential is gone from durable storage too.
	rec, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSessionSurvivesWithinTTL(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceAdmin, TTL: 6 * time.Hour})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "tok-a", ""))
	clock.Advance(5 * time.Hour)

	rec, err := m.Current(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.False(t, m.Expired())
}

func TestWatcherExpiresSession(t *testing.T) {
	expired := make(chan struct{})
	m, clock := newTestManager(t, Config{
		Namespace:     NamespaceSite,
		TTL:           time.Hour,
		CheckInterval: 10 * time.Millisecond,
		OnExpire:      func() { close(expired) },
	})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "tok-1", "site-7"))
	clock.Advance(61 * time.Minute)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not expire the session")
	}
	assert.True(t, m.Expired())
}

func TestLogoutDoesNotInvokeOnExpire(t *testing.T) {
	called := false
	m, _ := newTestManager(t, Config{
		Namespace: NamespaceAdmin,
		TTL:       6 * time.Hour,
		OnExpire:  func() { called = true },
	})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "tok-a", ""))
	require.NoError(t, m.Logout(ctx))

	rec, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, called)
	assert.False(t, m.Expired())
}

func TestLoginResetsExpiredFlag(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "tok-1", "site-7"))
	clock.Advance(2 * time.Hour)
	_, err := m.Current(ctx)
	require.NoError(t, err)
	require.True(t, m.Expired())

	require.NoError(t, m.Login(ctx, "tok-2", "site-7"))
	assert.False(t, m.Expired())
}

func TestJWTExpClampsDeadline(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceAdmin, TTL: 6 * time.Hour})
	ctx := context.Background()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clock.Now().Add(10 * time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	require.NoError(t, m.Login(ctx, signed, ""))

	clock.Advance(11 * time.Minute)
	rec, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec, "deadline should honour the token's own exp claim")
	assert.True(t, m.Expired())
}

func TestOpaqueTokenUsesPlainTTL(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "not-a-jwt", "site-7"))

	clock.Advance(59 * time.Minute)
	rec, err := m.Current(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestResume(t *testing.T) {
	m, clock := newTestManager(t, Config{Namespace: NamespaceSite, TTL: time.Hour})
	ctx := context.Background()

	ok, err := m.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Login(ctx, "tok-1", "site-7"))
	m.Close()

	ok, err = m.Resume(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	ok, err = m.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
