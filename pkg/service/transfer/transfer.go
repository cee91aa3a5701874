// Package transfer implements moving funds between a user's own accounts and
// to other users, the latter carrying a flat fee that leaves the ledger.
package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/domain/money"
	"github.com/gokcenbank/ledger/pkg/ledgerstore"
	"github.com/gokcenbank/ledger/pkg/service/auth"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

// Service is the transfer engine.
type Service struct {
	store  *ledgerstore.Store
	fee    money.Money
	logger *slog.Logger
	clock  func() time.Time
}

// New creates the transfer engine. The external-transfer fee comes from
// configuration; a malformed fee string is a deployment error.
func New(store *ledgerstore.Store, cfg *config.Bank, logger *slog.Logger, opts ...Option) (*Service, error) {
	fee, err := money.Parse(cfg.TransferFee)
	if err != nil {
		return nil, err
	}
	s := &Service{store: store, fee: fee, logger: logger, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fee returns the flat fee charged on external transfers.
func (s *Service) Fee() money.Money { return s.fee }

// TransferInternal moves amount between two of the caller's own accounts.
// No fee and no denomination rule apply; the amount just has to be positive
// and covered. Both account histories and the user history get one entry
// each, and the whole move persists as a single snapshot write.
func (s *Service) TransferInternal(ctx context.Context, sess *auth.Session, fromAccount, toAccount string, amount money.Money) error {
	if sess == nil || sess.Revoked() {
		return ledger.ErrSessionInvalid
	}
	log := s.logger.With("context", "TransferInternal", "username", sess.Username,
		"from", fromAccount, "to", toAccount)

	err := s.store.Update(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if remaining, locked := rec.LockedRemaining(now); locked {
			return ledgerstore.Reject(&ledger.LockedError{Remaining: remaining})
		}
		if fromAccount == toAccount {
			return ledgerstore.Reject(ledger.ErrSameAccountTransfer)
		}
		src, err := rec.Account(fromAccount)
		if err != nil {
			return ledgerstore.Reject(err)
		}
		dst, err := rec.Account(toAccount)
		if err != nil {
			return ledgerstore.Reject(err)
		}
		if !amount.IsPositive() {
			return ledgerstore.Reject(ledger.ErrNonPositiveAmount)
		}
		// Both sides are validated before either mutates, so a rejected
		// transfer leaves both balances untouched.
		if _, err := dst.Balance.AddChecked(amount); err != nil {
			return ledgerstore.Reject(err)
		}
		if err := src.Debit(amount); err != nil {
			return ledgerstore.Reject(err)
		}
		if err := dst.Credit(amount); err != nil {
			return ledgerstore.Reject(err)
		}

		src.AppendEntry(now, "Transfer out: %s to '%s'. New balance: %s", amount, toAccount, src.Balance)
		dst.AppendEntry(now, "Transfer in: %s from '%s'. New balance: %s", amount, fromAccount, dst.Balance)
		rec.AppendHistory(now, "Transferred %s from '%s' to '%s'.", amount, fromAccount, toAccount)
		return nil
	})
	if err != nil {
		log.Warn("internal transfer rejected", "error", err)
		return err
	}
	log.Info("internal transfer applied", "amount", amount.String())
	return nil
}

// TransferExternal moves amount from one of the caller's accounts into the
// named account of another user. A flat fee is debited from the sender on
// top of the amount and credited to no one. The sender's balance must cover
// amount plus fee. Both user records mutate inside one store critical
// section and persist in one snapshot write.
func (s *Service) TransferExternal(ctx context.Context, sess *auth.Session, fromAccount, toUsername, toAccount string, amount money.Money) error {
	if sess == nil || sess.Revoked() {
		return ledger.ErrSessionInvalid
	}
	log := s.logger.With("context", "TransferExternal", "username", sess.Username,
		"from", fromAccount, "recipient", toUsername, "recipient_account", toAccount)

	if toUsername == sess.Username {
		return ledger.ErrSelfTransfer
	}

	err := s.store.UpdatePair(sess.Username, toUsername, func(sender, recipient *ledger.UserRecord) error {
		now := s.clock()
		if remaining, locked := sender.LockedRemaining(now); locked {
			return ledgerstore.Reject(&ledger.LockedError{Remaining: remaining})
		}
		src, err := sender.Account(fromAccount)
		if err != nil {
			return ledgerstore.Reject(err)
		}
		dst, err := recipient.Account(toAccount)
		if err != nil {
			return ledgerstore.Reject(ledger.ErrRecipientAccountNotFound)
		}
		if !amount.IsPositive() {
			return ledgerstore.Reject(ledger.ErrNonPositiveAmount)
		}
		if _, err := dst.Balance.AddChecked(amount); err != nil {
			return ledgerstore.Reject(err)
		}
		total, err := amount.AddChecked(s.fee)
		if err != nil {
			return ledgerstore.Reject(err)
		}
		if err := src.Debit(total); err != nil {
			return ledgerstore.Reject(err)
		}
		if err := dst.Credit(amount); err != nil {
			return ledgerstore.Reject(err)
		}

		src.AppendEntry(now, "Transfer out: %s to user '%s' (fee: %s). New balance: %s",
			amount, toUsername, s.fee, src.Balance)
		sender.AppendHistory(now, "Sent %s to '%s' (fee %s).", amount, toUsername, s.fee)
		dst.AppendEntry(now, "Transfer in: %s from user '%s'. New balance: %s",
			amount, sender.Username, dst.Balance)
		return nil
	})
	if err != nil {
		// UpdatePair reports a missing second record as user-not-found;
		// from the sender's point of view that is an unknown recipient.
		if errors.Is(err, ledger.ErrUserNotFound) && s.store.Exists(sess.Username) {
			err = ledger.ErrRecipientNotFound
		}
		log.Warn("external transfer rejected", "error", err)
		return err
	}
	log.Info("external transfer applied", "amount", amount.String(), "fee", s.fee.String())
	return nil
}
