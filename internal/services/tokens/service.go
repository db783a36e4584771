// Package tokens is the ledger-operation orchestration core. It validates
// requests, selects signing material, invokes the ledger client, and keeps a
// local transaction record of every operation that reaches the point of
// ledger submission, whatever the outcome.
package tokens

import (
	"context"
	"strings"

	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/ledger"
	"github.com/hashbridge/ledger-gateway/internal/storage"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// Service orchestrates token operations against the external ledger.
type Service struct {
	ledger ledger.Submitter
	store  storage.TransactionStore
	log    *logger.Logger
}

// New constructs the orchestration service.
func New(submitter ledger.Submitter, store storage.TransactionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tokens")
	}
	if submitter == nil {
		submitter = ledger.Disabled()
	}
	return &Service{ledger: submitter, store: store, log: log}
}

// Result is the normalized outcome of a token operation.
type Result struct {
	TokenID       string `json:"tokenId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status"`
}

// CreateTokenRequest defines a new fungible token.
type CreateTokenRequest struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      int    `json:"decimals"`
	InitialSupply int64  `json:"initialSupply"`
	Treasury      string `json:"treasuryAccountId"`
}

// AssociateRequest links an account to a token. The account owner must
// supply their own signing key; association is not an operator action.
type AssociateRequest struct {
	AccountID  string `json:"accountId"`
	SigningKey string `json:"accountPrivateKey"`
	TokenID    string `json:"tokenId"`
}

// MintRequest adds supply to a token.
type MintRequest struct {
	TokenID string `json:"tokenId"`
	Amount  int64  `json:"amount"`
}

// TransferRequest moves tokens between accounts. SigningKey must belong to
// the sender; the gateway refuses to authorize a transfer alone.
type TransferRequest struct {
	TokenID    string `json:"tokenId"`
	From       string `json:"fromAccountId"`
	SigningKey string `json:"fromPrivateKey"`
	To         string `json:"toAccountId"`
	Amount     int64  `json:"amount"`
}

// CreateToken validates and submits a token creation signed by the operator.
func (s *Service) CreateToken(ctx context.Context, req CreateTokenRequest) (Result, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Name == "" || req.Symbol == "" {
		return Result{}, svcerr.InvalidRequest("name and symbol are required")
	}
	if req.Decimals < 0 || req.InitialSupply < 0 {
		return Result{}, svcerr.InvalidRequest("decimals and initialSupply must not be negative")
	}

	treasury := strings.TrimSpace(req.Treasury)
	if treasury == "" {
		treasury = s.ledger.OperatorAccount()
	}

	receipt, err := s.ledger.CreateToken(ctx, ledger.CreateTokenParams{
		Name:          req.Name,
		Symbol:        req.Symbol,
		Decimals:      req.Decimals,
		InitialSupply: req.InitialSupply,
		Treasury:      treasury,
	})
	s.record(ctx, transaction.Record{
		AccountID:     treasury,
		Type:          transaction.TypeCreate,
		TokenID:       receipt.TokenID,
		Amount:        req.InitialSupply,
		Status:        outcomeStatus(receipt, err),
		TransactionID: receipt.TransactionID,
		Metadata:      map[string]string{"name": req.Name, "symbol": req.Symbol},
	}, err)
	if err != nil {
		return Result{TransactionID: receipt.TransactionID, Status: receipt.Status}, err
	}
	return Result{TokenID: receipt.TokenID, TransactionID: receipt.TransactionID, Status: receipt.Status}, nil
}

// Associate validates and submits a token association signed by the target
// account's own key.
func (s *Service) Associate(ctx context.Context, req AssociateRequest) (Result, error) {
	req.AccountID = strings.TrimSpace(req.AccountID)
	req.TokenID = strings.TrimSpace(req.TokenID)
	if req.AccountID == "" || req.TokenID == "" {
		return Result{}, svcerr.InvalidRequest("accountId and tokenId are required")
	}
	if strings.TrimSpace(req.SigningKey) == "" {
		return Result{}, svcerr.InvalidRequest("accountPrivateKey is required: association must be signed by the account owner")
	}

	receipt, err := s.ledger.AssociateToken(ctx, ledger.AssociateParams{
		AccountID:  req.AccountID,
		SigningKey: req.SigningKey,
		TokenID:    req.TokenID,
	})
	s.record(ctx, transaction.Record{
		AccountID:     req.AccountID,
		Type:          transaction.TypeAssociate,
		TokenID:       req.TokenID,
		Status:        outcomeStatus(receipt, err),
		TransactionID: receipt.TransactionID,
	}, err)
	if err != nil {
		return Result{TransactionID: receipt.TransactionID, Status: receipt.Status}, err
	}
	return Result{TokenID: req.TokenID, TransactionID: receipt.TransactionID, Status: receipt.Status}, nil
}

// Mint adds supply to a token using the operator's supply authority.
func (s *Service) Mint(ctx context.Context, req MintRequest) (Result, error) {
	req.TokenID = strings.TrimSpace(req.TokenID)
	if req.TokenID == "" {
		return Result{}, svcerr.InvalidRequest("tokenId is required")
	}
	if req.Amount <= 0 {
		return Result{}, svcerr.InvalidRequest("amount must be positive")
	}

	receipt, err := s.ledger.MintToken(ctx, ledger.MintParams{TokenID: req.TokenID, Amount: req.Amount})
	s.record(ctx, transaction.Record{
		AccountID:     s.ledger.OperatorAccount(),
		Type:          transaction.TypeMint,
		TokenID:       req.TokenID,
		Amount:        req.Amount,
		Status:        outcomeStatus(receipt, err),
		TransactionID: receipt.TransactionID,
	}, err)
	if err != nil {
		return Result{TransactionID: receipt.TransactionID, Status: receipt.Status}, err
	}
	return Result{TokenID: req.TokenID, TransactionID: receipt.TransactionID, Status: receipt.Status}, nil
}

// Transfer validates and submits a balanced transfer signed by the sender.
// A request without the sender's key is rejected before any network call and
// leaves no local record.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (Result, error) {
	req.TokenID = strings.TrimSpace(req.TokenID)
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	if req.TokenID == "" || req.From == "" || req.To == "" {
		return Result{}, svcerr.InvalidRequest("tokenId, fromAccountId and toAccountId are required")
	}
	if req.Amount <= 0 {
		return Result{}, svcerr.InvalidRequest("amount must be positive")
	}
	if strings.TrimSpace(req.SigningKey) == "" {
		return Result{}, svcerr.InvalidRequest("fromPrivateKey is required: the gateway cannot authorize a transfer alone")
	}

	receipt, err := s.ledger.TransferToken(ctx, ledger.TransferParams{
		TokenID:    req.TokenID,
		From:       req.From,
		SigningKey: req.SigningKey,
		To:         req.To,
		Amount:     req.Amount,
	})
	s.record(ctx, transaction.Record{
		AccountID:     req.From,
		Type:          transaction.TypeTransfer,
		TokenID:       req.TokenID,
		Amount:        req.Amount,
		Status:        outcomeStatus(receipt, err),
		TransactionID: receipt.TransactionID,
		Metadata:      map[string]string{"to": req.To},
	}, err)
	if err != nil {
		return Result{TransactionID: receipt.TransactionID, Status: receipt.Status}, err
	}
	return Result{TransactionID: receipt.TransactionID, Status: receipt.Status}, nil
}

// TokenInfo returns ledger token metadata.
func (s *Service) TokenInfo(ctx context.Context, tokenID string) (ledger.TokenInfo, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return ledger.TokenInfo{}, svcerr.InvalidRequest("tokenId is required")
	}
	return s.ledger.TokenInfo(ctx, tokenID)
}

// Balance returns hbar and token balances for an account.
func (s *Service) Balance(ctx context.Context, accountID string) (ledger.Balance, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ledger.Balance{}, svcerr.InvalidRequest("accountId is required")
	}
	return s.ledger.AccountBalance(ctx, accountID)
}

// ListTransactions returns the newest-first local history for an account.
func (s *Service) ListTransactions(ctx context.Context, accountID string, limit int) ([]transaction.Record, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, svcerr.InvalidRequest("accountId is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	recs, err := s.store.ListTransactions(ctx, accountID, limit)
	if err != nil {
		return nil, svcerr.StorageUnavailable(err)
	}
	return recs, nil
}

// RecordEntry stores a client-reported transaction log entry, distinct from
// the records this service writes for its own submissions.
func (s *Service) RecordEntry(ctx context.Context, rec transaction.Record) (transaction.Record, error) {
	rec.AccountID = strings.TrimSpace(rec.AccountID)
	if rec.AccountID == "" {
		return transaction.Record{}, svcerr.InvalidRequest("accountId is required")
	}
	if !rec.Type.Valid() {
		return transaction.Record{}, svcerr.InvalidRequest("type must be one of CREATE, ASSOCIATE, MINT, TRANSFER")
	}
	if rec.Status == "" {
		rec.Status = transaction.StatusSuccess
	}
	stored, err := s.store.RecordTransaction(ctx, rec)
	if err != nil {
		return transaction.Record{}, svcerr.StorageUnavailable(err)
	}
	return stored, nil
}

// record persists the local account of a submission outcome. It is
// best-effort: a storage failure is logged, never allowed to mask the
// primary outcome. Operations that never reached the point of submission
// (validation failures, unconfigured ledger) leave no record.
func (s *Service) record(ctx context.Context, rec transaction.Record, opErr error) {
	if svcerr.Is(opErr, svcerr.CodeLedgerUnavailable) {
		return
	}
	if _, err := s.store.RecordTransaction(ctx, rec); err != nil {
		s.log.WithError(err).
			WithField("account_id", rec.AccountID).
			WithField("type", string(rec.Type)).
			Error("persist transaction record failed")
	}
	if opErr != nil {
		s.log.WithError(opErr).
			WithField("account_id", rec.AccountID).
			WithField("type", string(rec.Type)).
			WithField("status", string(rec.Status)).
			Warn("ledger operation did not succeed")
	}
}

// outcomeStatus maps an operation outcome onto the local record status.
func outcomeStatus(_ ledger.Receipt, err error) transaction.Status {
	switch {
	case err == nil:
		return transaction.StatusSuccess
	case svcerr.Is(err, svcerr.CodeAmbiguousOutcome):
		return transaction.StatusPending
	default:
		return transaction.StatusFailed
	}
}
