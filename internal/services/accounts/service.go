// Package accounts implements registration, login and passphrase recovery.
package accounts

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hashbridge/ledger-gateway/internal/auth"
	"github.com/hashbridge/ledger-gateway/internal/domain/user"
	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/storage"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// Service manages user identities and credential issuance.
type Service struct {
	store  storage.UserStore
	issuer *auth.TokenIssuer
	log    *logger.Logger
}

// New constructs an accounts service.
func New(store storage.UserStore, issuer *auth.TokenIssuer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, issuer: issuer, log: log}
}

// Register creates a user and returns a bearer token. Both the username and
// the recovery passphrase must be unused: the passphrase is a credential, so
// a duplicate would make recovery ambiguous.
func (s *Service) Register(ctx context.Context, username, password, passphrase string) (string, error) {
	username = strings.TrimSpace(username)
	passphrase = strings.TrimSpace(passphrase)

	if username == "" || password == "" {
		return "", svcerr.InvalidRequest("username and password are required")
	}
	if passphrase == "" {
		return "", svcerr.InvalidRequest("passphrase is required")
	}

	if _, err := s.store.GetUserByPassphrase(ctx, passphrase); err == nil {
		return "", svcerr.Conflict("passphrase already in use")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", svcerr.StorageUnavailable(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", svcerr.Internal("hash password", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Username:     username,
		PasswordHash: string(hash),
		Passphrase:   passphrase,
	})
	if err != nil {
		if errors.Is(err, storage.ErrPassphraseConflict) {
			return "", svcerr.Conflict("passphrase already in use")
		}
		if errors.Is(err, storage.ErrConflict) {
			return "", svcerr.Conflict("username already taken")
		}
		return "", svcerr.StorageUnavailable(err)
	}

	s.log.WithField("user_id", created.ID).Info("user registered")
	return s.issuer.Issue(created.ID, created.Username)
}

// Login verifies a password credential and returns a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", svcerr.InvalidRequest("username and password are required")
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", svcerr.Unauthorized("invalid username or password")
		}
		return "", svcerr.StorageUnavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", svcerr.Unauthorized("invalid username or password")
	}
	return s.issuer.Issue(u.ID, u.Username)
}

// Recover resolves a user by recovery passphrase and returns a bearer token.
func (s *Service) Recover(ctx context.Context, passphrase string) (string, error) {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return "", svcerr.InvalidRequest("passphrase is required")
	}

	u, err := s.store.GetUserByPassphrase(ctx, passphrase)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", svcerr.Unauthorized("no account matches that passphrase")
		}
		return "", svcerr.StorageUnavailable(err)
	}

	s.log.WithField("user_id", u.ID).Info("account recovered by passphrase")
	return s.issuer.Issue(u.ID, u.Username)
}

// Get returns the user record for a resolved principal.
func (s *Service) Get(ctx context.Context, userID string) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, svcerr.NotFound("user not found")
		}
		return user.User{}, svcerr.StorageUnavailable(err)
	}
	return u, nil
}
