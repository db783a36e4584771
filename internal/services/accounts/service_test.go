package accounts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/hashbridge/ledger-gateway/internal/auth"
	"github.com/hashbridge/ledger-gateway/internal/domain/user"
	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/storage"
	"github.com/hashbridge/ledger-gateway/internal/storage/memory"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

func newTestService() *Service {
	log := logger.NewDefault("accounts-test")
	log.SetOutput(io.Discard)
	return New(memory.New(), auth.NewTokenIssuer("test-secret", time.Hour), log)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "pw123", "phraseA")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	if _, err := svc.Register(ctx, "alice", "other", "phraseB"); !svcerr.Is(err, svcerr.CodeConflict) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}
	if _, err := svc.Register(ctx, "carol", "pw", "phraseA"); !svcerr.Is(err, svcerr.CodeConflict) {
		t.Fatalf("expected conflict for duplicate passphrase, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "pw", "p"); !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if _, err := svc.Register(ctx, "user", "pw", ""); !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw123", "phraseA"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "alice", "pw123")
	if err != nil || token == "" {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !svcerr.Is(err, svcerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "pw123"); !svcerr.Is(err, svcerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestRecover(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw123", "phraseA"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Recover(ctx, "phraseA")
	if err != nil || token == "" {
		t.Fatalf("recover failed: %v", err)
	}
	if _, err := svc.Recover(ctx, "unknown"); !svcerr.Is(err, svcerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown passphrase, got %v", err)
	}
}

// racingStore simulates a concurrent registration: the passphrase pre-check
// sees nothing, but the insert itself hits the uniqueness constraint.
type racingStore struct {
	storage.UserStore
}

func (racingStore) GetUserByPassphrase(context.Context, string) (user.User, error) {
	return user.User{}, storage.ErrNotFound
}

func (racingStore) CreateUser(context.Context, user.User) (user.User, error) {
	return user.User{}, storage.ErrPassphraseConflict
}

func TestRegisterMapsConcurrentPassphraseConflict(t *testing.T) {
	log := logger.NewDefault("accounts-test")
	log.SetOutput(io.Discard)
	svc := New(racingStore{}, auth.NewTokenIssuer("test-secret", time.Hour), log)

	_, err := svc.Register(context.Background(), "bob", "pw123", "shared")
	if !svcerr.Is(err, svcerr.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	svcErr := svcerr.GetServiceError(err)
	if svcErr == nil || svcErr.Message != "passphrase already in use" {
		t.Fatalf("expected passphrase conflict message, got %#v", svcErr)
	}
}
