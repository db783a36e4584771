package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/hashbridge/ledger-gateway/internal/domain/price"
	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	"github.com/hashbridge/ledger-gateway/internal/domain/user"
	"github.com/hashbridge/ledger-gateway/internal/storage"
)

func TestStore_UserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Username: "alice", PasswordHash: "h", Passphrase: "p1"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}

	if _, err := s.CreateUser(ctx, user.User{Username: "alice", PasswordHash: "h2", Passphrase: "p2"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil || byName.ID != created.ID {
		t.Fatalf("lookup by username failed: %v", err)
	}
	byPhrase, err := s.GetUserByPassphrase(ctx, "p1")
	if err != nil || byPhrase.ID != created.ID {
		t.Fatalf("lookup by passphrase failed: %v", err)
	}
	if _, err := s.GetUserByPassphrase(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PassphraseUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, user.User{Username: "alice", PasswordHash: "h", Passphrase: "shared"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := s.CreateUser(ctx, user.User{Username: "bob", PasswordHash: "h2", Passphrase: "shared"})
	if !errors.Is(err, storage.ErrPassphraseConflict) {
		t.Fatalf("expected ErrPassphraseConflict, got %v", err)
	}
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("passphrase conflict must also match ErrConflict, got %v", err)
	}
}

func TestStore_UpdateUserPreservesIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Username: "bob", PasswordHash: "h", Passphrase: "p"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	created.Username = "mallory"
	created.Accounts = []user.Account{{AccountID: "0.0.1", HbarBalance: 5}}
	updated, err := s.UpdateUser(ctx, created)
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Username != "bob" {
		t.Fatalf("username must be immutable, got %s", updated.Username)
	}
	if len(updated.Accounts) != 1 || updated.Accounts[0].AccountID != "0.0.1" {
		t.Fatalf("accounts not persisted: %#v", updated.Accounts)
	}
}

func TestStore_ListTransactionsOrderAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.RecordTransaction(ctx, transaction.Record{
			AccountID: "0.0.1",
			Type:      transaction.TypeTransfer,
			Amount:    int64(i),
			Status:    transaction.StatusSuccess,
		}); err != nil {
			t.Fatalf("record transaction: %v", err)
		}
	}
	if _, err := s.RecordTransaction(ctx, transaction.Record{
		AccountID: "0.0.9",
		Type:      transaction.TypeMint,
		Status:    transaction.StatusSuccess,
	}); err != nil {
		t.Fatalf("record transaction: %v", err)
	}

	recs, err := s.ListTransactions(ctx, "0.0.1", 3)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.AccountID != "0.0.1" {
			t.Fatalf("record for wrong account: %s", rec.AccountID)
		}
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].CreatedAt.After(recs[i-1].CreatedAt) {
			t.Fatalf("records not newest-first")
		}
	}
	// Ordering must hold even when the clock does not advance between
	// writes, so the exact reverse-insertion sequence is asserted.
	for i, want := range []int64{4, 3, 2} {
		if recs[i].Amount != want {
			t.Fatalf("record %d: amount %d, want %d", i, recs[i].Amount, want)
		}
	}
}

func TestStore_ReplacePricesSwapsWholeSet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertPrice(ctx, price.Snapshot{AssetID: "old", PriceUSD: 1}); err != nil {
		t.Fatalf("upsert price: %v", err)
	}
	if err := s.ReplacePrices(ctx, []price.Snapshot{
		{AssetID: "btc", PriceUSD: 2},
		{AssetID: "eth", PriceUSD: 3},
	}); err != nil {
		t.Fatalf("replace prices: %v", err)
	}

	snaps, err := s.ListPrices(ctx)
	if err != nil {
		t.Fatalf("list prices: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected replaced set of 2, got %d", len(snaps))
	}
	if snaps[0].AssetID != "btc" || snaps[1].AssetID != "eth" {
		t.Fatalf("unexpected ordering: %#v", snaps)
	}
}
