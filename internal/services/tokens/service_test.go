package tokens

import (
	"context"
	"io"
	"testing"

	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/ledger"
	"github.com/hashbridge/ledger-gateway/internal/storage/memory"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// stubSubmitter scripts ledger outcomes for the orchestration layer.
type stubSubmitter struct {
	receipt ledger.Receipt
	err     error
	calls   int
}

func (s *stubSubmitter) Enabled() bool           { return true }
func (s *stubSubmitter) OperatorAccount() string { return "0.0.99" }

func (s *stubSubmitter) submit() (ledger.Receipt, error) {
	s.calls++
	return s.receipt, s.err
}

func (s *stubSubmitter) CreateToken(context.Context, ledger.CreateTokenParams) (ledger.Receipt, error) {
	return s.submit()
}
func (s *stubSubmitter) AssociateToken(context.Context, ledger.AssociateParams) (ledger.Receipt, error) {
	return s.submit()
}
func (s *stubSubmitter) MintToken(context.Context, ledger.MintParams) (ledger.Receipt, error) {
	return s.submit()
}
func (s *stubSubmitter) TransferToken(context.Context, ledger.TransferParams) (ledger.Receipt, error) {
	return s.submit()
}
func (s *stubSubmitter) AccountBalance(context.Context, string) (ledger.Balance, error) {
	return ledger.Balance{Hbars: 10, Tokens: map[string]string{"0.0.100": "5"}}, nil
}
func (s *stubSubmitter) TokenInfo(context.Context, string) (ledger.TokenInfo, error) {
	return ledger.TokenInfo{TokenID: "0.0.100", Name: "Test", Symbol: "TST"}, nil
}

func newTestService(sub ledger.Submitter) (*Service, *memory.Store) {
	store := memory.New()
	log := logger.NewDefault("tokens-test")
	log.SetOutput(io.Discard)
	return New(sub, store, log), store
}

func TestTransferSuccessPersistsRecord(t *testing.T) {
	stub := &stubSubmitter{receipt: ledger.Receipt{TransactionID: "0.0.1@123", Status: "SUCCESS"}}
	svc, store := newTestService(stub)
	ctx := context.Background()

	result, err := svc.Transfer(ctx, TransferRequest{
		TokenID:    "0.0.100",
		From:       "0.0.1",
		SigningKey: "sender-key",
		To:         "0.0.2",
		Amount:     10,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.TransactionID != "0.0.1@123" || result.Status != "SUCCESS" {
		t.Fatalf("unexpected result: %#v", result)
	}

	recs, err := store.ListTransactions(ctx, "0.0.1", 50)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Type != transaction.TypeTransfer || rec.Status != transaction.StatusSuccess ||
		rec.TransactionID != "0.0.1@123" || rec.Amount != 10 {
		t.Fatalf("unexpected record: %#v", rec)
	}
}

func TestTransferMissingKeyRejectedBeforeSubmission(t *testing.T) {
	stub := &stubSubmitter{receipt: ledger.Receipt{Status: "SUCCESS"}}
	svc, store := newTestService(stub)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferRequest{
		TokenID: "0.0.100",
		From:    "0.0.1",
		To:      "0.0.2",
		Amount:  10,
	})
	if !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("ledger must not be called, got %d calls", stub.calls)
	}
	recs, _ := store.ListTransactions(ctx, "0.0.1", 50)
	if len(recs) != 0 {
		t.Fatalf("no record may be written, got %d", len(recs))
	}
}

func TestTransferAmbiguousOutcomePersistsPendingRecord(t *testing.T) {
	stub := &stubSubmitter{
		receipt: ledger.Receipt{TransactionID: "0.0.1@456", Status: "PENDING"},
		err:     svcerr.Ambiguous("0.0.1@456", context.DeadlineExceeded),
	}
	svc, store := newTestService(stub)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferRequest{
		TokenID:    "0.0.100",
		From:       "0.0.1",
		SigningKey: "sender-key",
		To:         "0.0.2",
		Amount:     10,
	})
	if !svcerr.Is(err, svcerr.CodeAmbiguousOutcome) {
		t.Fatalf("expected ambiguous_outcome, got %v", err)
	}

	recs, _ := store.ListTransactions(ctx, "0.0.1", 50)
	if len(recs) != 1 {
		t.Fatalf("ambiguous transfer must still be recorded, got %d records", len(recs))
	}
	if recs[0].Status != transaction.StatusPending {
		t.Fatalf("expected PENDING record, got %s", recs[0].Status)
	}
	if recs[0].TransactionID != "0.0.1@456" {
		t.Fatalf("expected known transaction id on record, got %q", recs[0].TransactionID)
	}
}

func TestTransferRejectedPersistsFailedRecord(t *testing.T) {
	stub := &stubSubmitter{
		receipt: ledger.Receipt{TransactionID: "0.0.1@789", Status: "INSUFFICIENT_TOKEN_BALANCE"},
		err:     svcerr.LedgerRejected("INSUFFICIENT_TOKEN_BALANCE", "0.0.1@789"),
	}
	svc, store := newTestService(stub)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferRequest{
		TokenID:    "0.0.100",
		From:       "0.0.1",
		SigningKey: "sender-key",
		To:         "0.0.2",
		Amount:     10,
	})
	if !svcerr.Is(err, svcerr.CodeLedgerRejected) {
		t.Fatalf("expected ledger_rejected, got %v", err)
	}
	recs, _ := store.ListTransactions(ctx, "0.0.1", 50)
	if len(recs) != 1 || recs[0].Status != transaction.StatusFailed {
		t.Fatalf("expected one FAILED record, got %#v", recs)
	}
}

func TestCreateMintAssociateAreRecorded(t *testing.T) {
	stub := &stubSubmitter{receipt: ledger.Receipt{TransactionID: "0.0.99@1", Status: "SUCCESS", TokenID: "0.0.200"}}
	svc, store := newTestService(stub)
	ctx := context.Background()

	created, err := svc.CreateToken(ctx, CreateTokenRequest{Name: "Token", Symbol: "TKN", InitialSupply: 100})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if created.TokenID != "0.0.200" {
		t.Fatalf("expected token id from receipt, got %q", created.TokenID)
	}
	if _, err := svc.Mint(ctx, MintRequest{TokenID: "0.0.200", Amount: 5}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.Associate(ctx, AssociateRequest{AccountID: "0.0.5", SigningKey: "k", TokenID: "0.0.200"}); err != nil {
		t.Fatalf("associate: %v", err)
	}

	operatorRecs, _ := store.ListTransactions(ctx, "0.0.99", 50)
	if len(operatorRecs) != 2 {
		t.Fatalf("expected create+mint records for operator, got %d", len(operatorRecs))
	}
	assocRecs, _ := store.ListTransactions(ctx, "0.0.5", 50)
	if len(assocRecs) != 1 || assocRecs[0].Type != transaction.TypeAssociate {
		t.Fatalf("expected associate record, got %#v", assocRecs)
	}
}

func TestMintValidation(t *testing.T) {
	stub := &stubSubmitter{receipt: ledger.Receipt{Status: "SUCCESS"}}
	svc, _ := newTestService(stub)
	ctx := context.Background()

	if _, err := svc.Mint(ctx, MintRequest{TokenID: "", Amount: 5}); !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if _, err := svc.Mint(ctx, MintRequest{TokenID: "0.0.1", Amount: 0}); !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("ledger must not be called on validation failure")
	}
}

func TestRecordEntryValidation(t *testing.T) {
	svc, _ := newTestService(&stubSubmitter{})
	ctx := context.Background()

	if _, err := svc.RecordEntry(ctx, transaction.Record{AccountID: "", Type: transaction.TypeMint}); !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request for missing account, got %v", err)
	}
	if _, err := svc.RecordEntry(ctx, transaction.Record{AccountID: "0.0.1", Type: "BOGUS"}); !svcerr.Is(err, svcerr.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request for bad type, got %v", err)
	}

	stored, err := svc.RecordEntry(ctx, transaction.Record{AccountID: "0.0.1", Type: transaction.TypeTransfer, Amount: 3})
	if err != nil {
		t.Fatalf("record entry: %v", err)
	}
	if stored.Status != transaction.StatusSuccess {
		t.Fatalf("expected default SUCCESS status, got %s", stored.Status)
	}
}

func TestOperationsWithDisabledLedger(t *testing.T) {
	svc, store := newTestService(ledger.Disabled())
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferRequest{
		TokenID: "0.0.100", From: "0.0.1", SigningKey: "k", To: "0.0.2", Amount: 1,
	})
	if !svcerr.Is(err, svcerr.CodeLedgerUnavailable) {
		t.Fatalf("expected ledger_unavailable, got %v", err)
	}
	recs, _ := store.ListTransactions(ctx, "0.0.1", 50)
	if len(recs) != 0 {
		t.Fatalf("unconfigured ledger must not produce records, got %d", len(recs))
	}
}
