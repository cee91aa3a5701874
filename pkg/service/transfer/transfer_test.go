package transfer_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/domain/money"
	"github.com/gokcenbank/ledger/pkg/ledgerstore"
	"github.com/gokcenbank/ledger/pkg/service/auth"
	"github.com/gokcenbank/ledger/pkg/service/transfer"
	"github.com/google/uuid"
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

func newService(t *testing.T) (*transfer.Service, *ledgerstore.Store, *fakeGateway, *auth.Session) {
	t.Helper()
	gw := &fakeGateway{}
	store := ledgerstore.New(gw, slog.Default())
	require.NoError(t, store.Create(ledger.NewUserRecord("alice", "hash", "pet?", "rex")))
	require.NoError(t, store.Create(ledger.NewUserRecord("bob", "hash", "pet?", "rex")))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, err := transfer.New(store, &config.Bank{TransferFee: "6.39"}, slog.Default(),
		transfer.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	sess := &auth.Session{ID: uuid.New(), Username: "alice", CreatedAt: now}
	return svc, store, gw, sess
}

func balanceOf(t *testing.T, store *ledgerstore.Store, username, accountName string) money.Money {
	t.Helper()
	var balance money.Money
	err := store.View(username, func(rec *ledger.UserRecord) error {
		balance = rec.Accounts[accountName].Balance
		return nil
	})
	require.NoError(t, err)
	return balance
}

func TestNew_MalformedFee(t *testing.T) {
	t.Parallel()
	store := ledgerstore.New(&fakeGateway{}, slog.Default())
	_, err := transfer.New(store, &config.Bank{TransferFee: "six"}, slog.Default())
	assert.ErrorIs(t, err, money.ErrInvalidAmountFormat)
}

func TestTransferInternal(t *testing.T) {
	t.Parallel()
	svc, store, gw, sess := newService(t)
	ctx := context.Background()
	saves := gw.saveCount()

	require.NoError(t, svc.TransferInternal(ctx, sess, ledger.CheckingAccount, ledger.SavingsAccount, money.FromMajor(1200)))
	assert.Equal(t, saves+1, gw.saveCount(), "one snapshot write for the whole move")

	assert.True(t, balanceOf(t, store, "alice", ledger.CheckingAccount).Equals(money.FromMajor(48800)))
	assert.True(t, balanceOf(t, store, "alice", ledger.SavingsAccount).Equals(money.FromMajor(1200)))

	err := store.View("alice", func(rec *ledger.UserRecord) error {
		src := rec.Accounts[ledger.CheckingAccount]
		dst := rec.Accounts[ledger.SavingsAccount]
		assert.Contains(t, src.TransactionHistory[len(src.TransactionHistory)-1],
			"Transfer out: 1200.00 to 'Savings'. New balance: 48800.00")
		assert.Contains(t, dst.TransactionHistory[len(dst.TransactionHistory)-1],
			"Transfer in: 1200.00 from 'Checking'. New balance: 1200.00")
		assert.Contains(t, rec.UserHistory[len(rec.UserHistory)-1],
			"Transferred 1200.00 from 'Checking' to 'Savings'.")
		return nil
	})
	require.NoError(t, err)
}

func TestTransferInternal_Rejections(t *testing.T) {
	t.Parallel()
	svc, store, gw, sess := newService(t)
	ctx := context.Background()
	saves := gw.saveCount()

	err := svc.TransferInternal(ctx, sess, ledger.CheckingAccount, ledger.CheckingAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrSameAccountTransfer)

	err = svc.TransferInternal(ctx, sess, "Golden", ledger.SavingsAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	err = svc.TransferInternal(ctx, sess, ledger.CheckingAccount, "Golden", money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	err = svc.TransferInternal(ctx, sess, ledger.CheckingAccount, ledger.SavingsAccount, money.FromMajor(0))
	assert.ErrorIs(t, err, ledger.ErrNonPositiveAmount)

	err = svc.TransferInternal(ctx, sess, ledger.SavingsAccount, ledger.CheckingAccount, money.FromMajor(1))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, saves, gw.saveCount(), "rejections leave no trace")
	assert.True(t, balanceOf(t, store, "alice", ledger.CheckingAccount).Equals(ledger.DefaultCheckingBalance))

	err = svc.TransferInternal(ctx, nil, ledger.CheckingAccount, ledger.SavingsAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrSessionInvalid)
}

func TestTransferInternal_Locked(t *testing.T) {
	t.Parallel()
	svc, store, _, sess := newService(t)
	ctx := context.Background()

	until := time.Date(2025, 6, 1, 9, 5, 0, 0, time.UTC)
	err := store.Update("alice", func(rec *ledger.UserRecord) error {
		rec.LockoutUntil = &until
		return ledgerstore.ErrSkipPersist
	})
	require.NoError(t, err)

	err = svc.TransferInternal(ctx, sess, ledger.CheckingAccount, ledger.SavingsAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrAccountLocked)
}

func TestTransferExternal(t *testing.T) {
	t.Parallel()
	svc, store, gw, sess := newService(t)
	ctx := context.Background()
	saves := gw.saveCount()

	require.NoError(t, svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.CheckingAccount, money.FromMajor(1000)))
	assert.Equal(t, saves+1, gw.saveCount(), "both records persist in one write")

	// Sender pays amount plus the flat fee; the fee is credited to no one.
	wantSender := ledger.DefaultCheckingBalance.Sub(money.FromMajor(1000)).Sub(money.FromMinor(639))
	assert.True(t, balanceOf(t, store, "alice", ledger.CheckingAccount).Equals(wantSender))
	wantRecipient := ledger.DefaultCheckingBalance.Add(money.FromMajor(1000))
	assert.True(t, balanceOf(t, store, "bob", ledger.CheckingAccount).Equals(wantRecipient))

	err := store.View("bob", func(rec *ledger.UserRecord) error {
		dst := rec.Accounts[ledger.CheckingAccount]
		assert.Contains(t, dst.TransactionHistory[len(dst.TransactionHistory)-1],
			"Transfer in: 1000.00 from user 'alice'.")
		assert.Empty(t, rec.UserHistory, "receiving does not touch the recipient's user history")
		return nil
	})
	require.NoError(t, err)

	err = store.View("alice", func(rec *ledger.UserRecord) error {
		src := rec.Accounts[ledger.CheckingAccount]
		assert.Contains(t, src.TransactionHistory[len(src.TransactionHistory)-1],
			"Transfer out: 1000.00 to user 'bob' (fee: 6.39).")
		assert.Contains(t, rec.UserHistory[len(rec.UserHistory)-1],
			"Sent 1000.00 to 'bob' (fee 6.39).")
		return nil
	})
	require.NoError(t, err)
}

func TestTransferExternal_ToSavings(t *testing.T) {
	t.Parallel()
	svc, store, _, sess := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.SavingsAccount, money.FromMajor(100)))
	assert.True(t, balanceOf(t, store, "bob", ledger.SavingsAccount).Equals(money.FromMajor(100)))
	assert.True(t, balanceOf(t, store, "bob", ledger.CheckingAccount).Equals(ledger.DefaultCheckingBalance),
		"checking untouched when savings is the named destination")
}

func TestTransferExternal_ExactBalanceWithFee(t *testing.T) {
	t.Parallel()
	svc, store, _, sess := newService(t)
	ctx := context.Background()

	// 106.39 covers a 100.00 transfer plus the 6.39 fee to the cent.
	err := store.Update("alice", func(rec *ledger.UserRecord) error {
		rec.Accounts[ledger.CheckingAccount].Balance = money.FromMinor(10639)
		return ledgerstore.ErrSkipPersist
	})
	require.NoError(t, err)

	require.NoError(t, svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.CheckingAccount, money.FromMajor(100)))
	assert.True(t, balanceOf(t, store, "alice", ledger.CheckingAccount).IsZero())
	assert.True(t, balanceOf(t, store, "bob", ledger.CheckingAccount).Equals(
		ledger.DefaultCheckingBalance.Add(money.FromMajor(100))))

	// One cent less and the same transfer is rejected.
	err = store.Update("alice", func(rec *ledger.UserRecord) error {
		rec.Accounts[ledger.CheckingAccount].Balance = money.FromMinor(10638)
		return ledgerstore.ErrSkipPersist
	})
	require.NoError(t, err)
	err = svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.CheckingAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestTransferExternal_Rejections(t *testing.T) {
	t.Parallel()
	svc, store, gw, sess := newService(t)
	ctx := context.Background()
	saves := gw.saveCount()

	err := svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "alice", ledger.CheckingAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrSelfTransfer)

	err = svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "ghost", ledger.CheckingAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrRecipientNotFound)

	err = svc.TransferExternal(ctx, sess, "Golden", "bob", ledger.CheckingAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	err = svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", "Golden", money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrRecipientAccountNotFound)

	err = svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.CheckingAccount, money.FromMajor(-5))
	assert.ErrorIs(t, err, ledger.ErrNonPositiveAmount)

	// The whole checking balance is not enough once the fee is added on top.
	err = svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.CheckingAccount, ledger.DefaultCheckingBalance)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, saves, gw.saveCount(), "rejections leave no trace")
	assert.True(t, balanceOf(t, store, "alice", ledger.CheckingAccount).Equals(ledger.DefaultCheckingBalance))
	assert.True(t, balanceOf(t, store, "bob", ledger.CheckingAccount).Equals(ledger.DefaultCheckingBalance))
}

func TestTransferExternal_LockedSender(t *testing.T) {
	t.Parallel()
	svc, store, _, sess := newService(t)
	ctx := context.Background()

	until := time.Date(2025, 6, 1, 9, 5, 0, 0, time.UTC)
	err := store.Update("alice", func(rec *ledger.UserRecord) error {
		rec.LockoutUntil = &until
		return ledgerstore.ErrSkipPersist
	})
	require.NoError(t, err)

	err = svc.TransferExternal(ctx, sess, ledger.CheckingAccount, "bob", ledger.CheckingAccount, money.FromMajor(100))
	assert.ErrorIs(t, err, ledger.ErrAccountLocked)
}
