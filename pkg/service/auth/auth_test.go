package auth_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/ledgerstore"
	"github.com/gokcenbank/ledger/pkg/service/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu    sync.Mutex
	saves int
}

func (f *fakeGateway) Load() (map[string]*ledger.UserRecord, error) { return nil, nil }

func (f *fakeGateway) Save(map[string]*ledger.UserRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return nil
}

func (f *fakeGateway) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// fakeClock lets tests move through lockout windows without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T) (*auth.Service, *ledgerstore.Store, *fakeGateway, *fakeClock) {
	t.Helper()
	gw := &fakeGateway{}
	store := ledgerstore.New(gw, slog.Default())
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	cfg := &config.Jwt{Secret: "test-secret", Expiry: time.Hour}
	svc := auth.New(store, cfg, slog.Default(), auth.WithClock(clock.Now))
	return svc, store, gw, clock
}

func register(t *testing.T, svc *auth.Service, username, password string) {
	t.Helper()
	require.NoError(t, svc.Register(context.Background(), username, password, "pet?", "rex"))
}

func TestRegister(t *testing.T) {
	t.Parallel()
	svc, store, _, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "Secret1", "pet?", "rex"))
	err := store.View("alice", func(rec *ledger.UserRecord) error {
		checking, err := rec.Account(ledger.CheckingAccount)
		require.NoError(t, err)
		assert.True(t, checking.Balance.Equals(ledger.DefaultCheckingBalance))
		savings, err := rec.Account(ledger.SavingsAccount)
		require.NoError(t, err)
		assert.True(t, savings.Balance.IsZero())
		assert.True(t, rec.DailyWithdrawalLimit.Equals(ledger.DefaultDailyWithdrawalLimit))
		assert.NotEqual(t, "Secret1", rec.PasswordHash, "password is stored hashed")
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Register(ctx, "alice", "Other1xx", "q", "a"), ledger.ErrDuplicateUser)
	assert.ErrorIs(t, svc.Register(ctx, "", "Secret1", "q", "a"), ledger.ErrEmptyUsername)
	assert.ErrorIs(t, svc.Register(ctx, "bob", "", "q", "a"), ledger.ErrEmptyPassword)
	assert.ErrorIs(t, svc.Register(ctx, "bob", "alllower1", "q", "a"), ledger.ErrWeakPassword)
	assert.ErrorIs(t, svc.Register(ctx, "bob", "NoDigits", "q", "a"), ledger.ErrWeakPassword)
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()
	svc, store, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")

	sess, err := svc.Authenticate(ctx, "alice", "Secret1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Username)

	err = store.View("alice", func(rec *ledger.UserRecord) error {
		require.NotEmpty(t, rec.UserHistory)
		assert.Contains(t, rec.UserHistory[len(rec.UserHistory)-1], "Successful login.")
		return nil
	})
	require.NoError(t, err)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestAuthenticate_ProgressiveLockout(t *testing.T) {
	t.Parallel()
	svc, store, gw, clock := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")

	// Two wrong passwords are plain rejections.
	for i := 0; i < 2; i++ {
		_, err := svc.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
	}

	// Third failure trips the lockout: 2^3 minutes.
	_, err := svc.Authenticate(ctx, "alice", "wrong")
	var locked *ledger.LockedError
	require.ErrorAs(t, err, &locked)
	assert.ErrorIs(t, err, ledger.ErrAccountLocked)
	assert.Equal(t, 8*time.Minute, locked.Remaining)

	// Attempts while locked are rejected without consuming anything.
	saves := gw.saveCount()
	_, err = svc.Authenticate(ctx, "alice", "Secret1")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, saves, gw.saveCount(), "locked attempts leave no trace")
	err = store.View("alice", func(rec *ledger.UserRecord) error {
		assert.Equal(t, 3, rec.FailedAttempts)
		return nil
	})
	require.NoError(t, err)

	// After the window passes, one more failure locks for 2^4 minutes:
	// the counter is cumulative until a fully successful login.
	clock.Advance(8*time.Minute + time.Second)
	_, err = svc.Authenticate(ctx, "alice", "wrong")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 16*time.Minute, locked.Remaining)

	// A successful login after expiry clears counter and lockout.
	clock.Advance(16*time.Minute + time.Second)
	_, err = svc.Authenticate(ctx, "alice", "Secret1")
	require.NoError(t, err)
	err = store.View("alice", func(rec *ledger.UserRecord) error {
		assert.Equal(t, 0, rec.FailedAttempts)
		assert.Nil(t, rec.LockoutUntil)
		return nil
	})
	require.NoError(t, err)
}

func TestAuthenticate_FailuresAreAuditedAndPersisted(t *testing.T) {
	t.Parallel()
	svc, store, gw, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")
	saves := gw.saveCount()

	_, err := svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
	assert.Equal(t, saves+1, gw.saveCount(), "failed attempts write through")

	err = store.View("alice", func(rec *ledger.UserRecord) error {
		require.NotEmpty(t, rec.UserHistory)
		assert.Contains(t, rec.UserHistory[len(rec.UserHistory)-1], "Failed login attempt.")
		return nil
	})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")
	sess, err := svc.Authenticate(ctx, "alice", "Secret1")
	require.NoError(t, err)

	// Weak replacement is rejected, correct current password verified.
	err = svc.ChangePassword(ctx, sess, "Secret1", "weak")
	assert.ErrorIs(t, err, ledger.ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, sess, "Secret1", "Newpass2"))

	_, err = svc.Authenticate(ctx, "alice", "Secret1")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials, "old password no longer works")
	_, err = svc.Authenticate(ctx, "alice", "Newpass2")
	assert.NoError(t, err)
}

func TestChangePassword_SessionAttemptCap(t *testing.T) {
	t.Parallel()
	svc, store, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")
	sess, err := svc.Authenticate(ctx, "alice", "Secret1")
	require.NoError(t, err)

	for i := 0; i < auth.MaxChangePasswordAttempts-1; i++ {
		err = svc.ChangePassword(ctx, sess, "wrong", "Newpass2")
		assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
	}

	// The capping try locks the account and kills the session.
	err = svc.ChangePassword(ctx, sess, "wrong", "Newpass2")
	var locked *ledger.LockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, sess.Revoked())

	err = svc.ChangePassword(ctx, sess, "Secret1", "Newpass2")
	assert.ErrorIs(t, err, ledger.ErrSessionInvalid)

	err = store.View("alice", func(rec *ledger.UserRecord) error {
		assert.NotNil(t, rec.LockoutUntil)
		return nil
	})
	require.NoError(t, err)
}

func TestChangePassword_CorrectPasswordResetsSessionCounter(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")
	sess, err := svc.Authenticate(ctx, "alice", "Secret1")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, sess, "wrong", "Newpass2")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
	err = svc.ChangePassword(ctx, sess, "wrong", "Newpass2")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)

	// Getting the current password right resets the per-session counter,
	// so two more wrong tries fit before the cap again.
	require.NoError(t, svc.ChangePassword(ctx, sess, "Secret1", "Newpass2"))

	err = svc.ChangePassword(ctx, sess, "wrong", "Another3")
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)
	assert.False(t, sess.Revoked())
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	svc, _, _, clock := newService(t)
	ctx := context.Background()
	register(t, svc, "alice", "Secret1")
	sess, err := svc.Authenticate(ctx, "alice", "Secret1")
	require.NoError(t, err)

	signed, err := svc.GenerateToken(sess)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(clock.Now))
	require.NoError(t, err)

	got, err := svc.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	svc.Logout(sess)
	_, err = svc.SessionFromToken(token)
	assert.ErrorIs(t, err, ledger.ErrSessionInvalid, "token dies with the session")
}
