// Package storage declares the persistence contracts shared by the durable
// and in-memory backends. One concrete implementation is selected at startup
// and injected everywhere; the choice is fixed for the process lifetime.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashbridge/ledger-gateway/internal/domain/price"
	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	"github.com/hashbridge/ledger-gateway/internal/domain/user"
)

// Sentinel errors every backend maps its driver failures onto.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")

	// ErrPassphraseConflict narrows ErrConflict to the passphrase
	// uniqueness constraint so callers can report the right field.
	ErrPassphraseConflict = fmt.Errorf("passphrase already in use: %w", ErrConflict)
)

// UserStore persists identity records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByPassphrase(ctx context.Context, passphrase string) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
}

// TransactionStore persists the local record of ledger activity.
// Records are append-only; there is no update path.
type TransactionStore interface {
	RecordTransaction(ctx context.Context, rec transaction.Record) (transaction.Record, error)
	ListTransactions(ctx context.Context, accountID string, limit int) ([]transaction.Record, error)
}

// PriceStore persists the latest price snapshot per tracked asset.
type PriceStore interface {
	UpsertPrice(ctx context.Context, snap price.Snapshot) (price.Snapshot, error)
	// ReplacePrices swaps the whole snapshot set in one step so concurrent
	// readers never observe a partially-updated set.
	ReplacePrices(ctx context.Context, snaps []price.Snapshot) error
	ListPrices(ctx context.Context) ([]price.Snapshot, error)
}

// Backend bundles the three collections a gateway process needs.
type Backend interface {
	UserStore
	TransactionStore
	PriceStore
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
