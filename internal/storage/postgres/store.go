// Package postgres provides the durable storage backend.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hashbridge/ledger-gateway/internal/domain/price"
	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	"github.com/hashbridge/ledger-gateway/internal/domain/user"
	"github.com/hashbridge/ledger-gateway/internal/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.Backend = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database, verifies the connection, and ensures the
// schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the three gateway tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			passphrase TEXT NOT NULL,
			accounts JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_passphrase_idx ON users (passphrase)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			account_id TEXT NOT NULL,
			type TEXT NOT NULL,
			token_id TEXT,
			amount BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			transaction_id TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS prices (
			asset_id TEXT PRIMARY KEY,
			usd DOUBLE PRECISION NOT NULL,
			usd_24h_change DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping reports database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// translate maps driver errors onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "users_passphrase_idx" {
			return storage.ErrPassphraseConflict
		}
		return storage.ErrConflict
	}
	return err
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	accountsJSON, err := json.Marshal(u.Accounts)
	if err != nil {
		return user.User{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, passphrase, accounts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.PasswordHash, u.Passphrase, accountsJSON, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, fmt.Errorf("create user: %w", translate(err))
	}
	return u, nil
}

const userColumns = `id, username, password_hash, passphrase, accounts, created_at, updated_at`

func (s *Store) scanUser(row *sql.Row) (user.User, error) {
	var (
		u           user.User
		accountsRaw []byte
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Passphrase, &accountsRaw, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, translate(err)
	}
	if len(accountsRaw) > 0 {
		if err := json.Unmarshal(accountsRaw, &u.Accounts); err != nil {
			return user.User{}, fmt.Errorf("decode accounts: %w", err)
		}
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := s.scanUser(row)
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := s.scanUser(row)
	if err != nil {
		return user.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByPassphrase(ctx context.Context, passphrase string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE passphrase = $1 ORDER BY created_at LIMIT 1
	`, passphrase)
	u, err := s.scanUser(row)
	if err != nil {
		return user.User{}, fmt.Errorf("get user by passphrase: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()

	accountsJSON, err := json.Marshal(u.Accounts)
	if err != nil {
		return user.User{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, passphrase = $3, accounts = $4, updated_at = $5
		WHERE id = $1
	`, u.ID, u.PasswordHash, u.Passphrase, accountsJSON, u.UpdatedAt)
	if err != nil {
		return user.User{}, fmt.Errorf("update user: %w", translate(err))
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, fmt.Errorf("update user: %w", storage.ErrNotFound)
	}
	return u, nil
}

// TransactionStore implementation ---------------------------------------------

func (s *Store) RecordTransaction(ctx context.Context, rec transaction.Record) (transaction.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return transaction.Record{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, type, token_id, amount, status, transaction_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.AccountID, rec.Type, nullString(rec.TokenID), rec.Amount, rec.Status,
		nullString(rec.TransactionID), metadataJSON, rec.CreatedAt)
	if err != nil {
		return transaction.Record{}, fmt.Errorf("record transaction: %w", translate(err))
	}
	return rec, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int) ([]transaction.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, type, token_id, amount, status, transaction_id, metadata, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", translate(err))
	}
	defer rows.Close()

	result := make([]transaction.Record, 0)
	for rows.Next() {
		var (
			rec         transaction.Record
			tokenID     sql.NullString
			externalID  sql.NullString
			metadataRaw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Type, &tokenID, &rec.Amount,
			&rec.Status, &externalID, &metadataRaw, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.TokenID = tokenID.String
		rec.TransactionID = externalID.String
		if len(metadataRaw) > 0 {
			_ = json.Unmarshal(metadataRaw, &rec.Metadata)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// PriceStore implementation ---------------------------------------------------

func (s *Store) UpsertPrice(ctx context.Context, snap price.Snapshot) (price.Snapshot, error) {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prices (asset_id, usd, usd_24h_change, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asset_id) DO UPDATE
		SET usd = EXCLUDED.usd, usd_24h_change = EXCLUDED.usd_24h_change, updated_at = EXCLUDED.updated_at
	`, snap.AssetID, snap.PriceUSD, snap.Change24h, snap.UpdatedAt)
	if err != nil {
		return price.Snapshot{}, fmt.Errorf("upsert price: %w", translate(err))
	}
	return snap, nil
}

func (s *Store) ReplacePrices(ctx context.Context, snaps []price.Snapshot) error {
	for _, snap := range snaps {
		if _, err := s.UpsertPrice(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListPrices(ctx context.Context) ([]price.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, usd, usd_24h_change, updated_at
		FROM prices
		ORDER BY asset_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", translate(err))
	}
	defer rows.Close()

	result := make([]price.Snapshot, 0)
	for rows.Next() {
		var snap price.Snapshot
		if err := rows.Scan(&snap.AssetID, &snap.PriceUSD, &snap.Change24h, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
