// Package memory provides the process-local storage backend. It is the
// degraded mode used when no database is configured: nothing survives a
// restart. It is safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashbridge/ledger-gateway/internal/domain/price"
	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	"github.com/hashbridge/ledger-gateway/internal/domain/user"
	"github.com/hashbridge/ledger-gateway/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[string]user.User
	usersByName  map[string]string
	transactions []transaction.Record
	prices       map[string]price.Snapshot
}

var _ storage.Backend = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		users:       make(map[string]user.User),
		usersByName: make(map[string]string),
		prices:      make(map[string]price.Snapshot),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// Ping always succeeds; the process-local store cannot be unreachable.
func (s *Store) Ping(_ context.Context) error { return nil }

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[u.Username]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.Username, storage.ErrConflict)
	}
	if u.Passphrase != "" {
		for _, existing := range s.users {
			if existing.Passphrase == u.Passphrase {
				return user.User{}, storage.ErrPassphraseConflict
			}
		}
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user id %s: %w", u.ID, storage.ErrConflict)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Accounts = cloneAccounts(u.Accounts)

	s.users[u.ID] = u
	s.usersByName[u.Username] = u.ID
	return cloneUser(u), nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.usersByName[username]; ok {
		return cloneUser(s.users[id]), nil
	}
	return user.User{}, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
}

func (s *Store) GetUserByPassphrase(_ context.Context, passphrase string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Exact-match scan. First match wins; CreateUser enforces uniqueness
	// so a collision cannot exist.
	for _, u := range s.users {
		if u.Passphrase == passphrase {
			return cloneUser(u), nil
		}
	}
	return user.User{}, fmt.Errorf("user by passphrase: %w", storage.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}

	u.Username = original.Username
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	u.Accounts = cloneAccounts(u.Accounts)

	s.users[u.ID] = u
	return cloneUser(u), nil
}

// TransactionStore implementation ---------------------------------------------

func (s *Store) RecordTransaction(_ context.Context, rec transaction.Record) (transaction.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	rec.CreatedAt = time.Now().UTC()
	rec.Metadata = cloneMap(rec.Metadata)

	s.transactions = append(s.transactions, rec)
	return rec, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID string, limit int) ([]transaction.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Records are append-only and stamped at insert, so walking the slice
	// backwards yields newest-first even for same-instant writes.
	result := make([]transaction.Record, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		rec := s.transactions[i]
		if rec.AccountID != accountID {
			continue
		}
		rec.Metadata = cloneMap(rec.Metadata)
		result = append(result, rec)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// PriceStore implementation ---------------------------------------------------

func (s *Store) UpsertPrice(_ context.Context, snap price.Snapshot) (price.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	s.prices[snap.AssetID] = snap
	return snap, nil
}

func (s *Store) ReplacePrices(_ context.Context, snaps []price.Snapshot) error {
	next := make(map[string]price.Snapshot, len(snaps))
	now := time.Now().UTC()
	for _, snap := range snaps {
		if snap.UpdatedAt.IsZero() {
			snap.UpdatedAt = now
		}
		next[snap.AssetID] = snap
	}

	s.mu.Lock()
	s.prices = next
	s.mu.Unlock()
	return nil
}

func (s *Store) ListPrices(_ context.Context) ([]price.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]price.Snapshot, 0, len(s.prices))
	for _, snap := range s.prices {
		result = append(result, snap)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AssetID < result[j].AssetID
	})
	return result, nil
}

// Helpers ----------------------------------------------------------------------

func cloneMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneAccounts(src []user.Account) []user.Account {
	if len(src) == 0 {
		return nil
	}
	dst := make([]user.Account, len(src))
	for i, acct := range src {
		acct.Metadata = cloneMap(acct.Metadata)
		dst[i] = acct
	}
	return dst
}

func cloneUser(u user.User) user.User {
	u.Accounts = cloneAccounts(u.Accounts)
	return u
}
