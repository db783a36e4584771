package ledger

import (
	"context"

	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
)

// disabled is the Submitter used when no ledger endpoint or operator is
// configured. Every operation fails with the same configuration fault, so
// callers never need to branch on "is the ledger configured".
type disabled struct{}

// Disabled returns a Submitter that rejects every operation.
func Disabled() Submitter { return disabled{} }

func (disabled) Enabled() bool { return false }

func (disabled) OperatorAccount() string { return "" }

func (disabled) CreateToken(context.Context, CreateTokenParams) (Receipt, error) {
	return Receipt{}, svcerr.LedgerUnavailable()
}

func (disabled) AssociateToken(context.Context, AssociateParams) (Receipt, error) {
	return Receipt{}, svcerr.LedgerUnavailable()
}

func (disabled) MintToken(context.Context, MintParams) (Receipt, error) {
	return Receipt{}, svcerr.LedgerUnavailable()
}

func (disabled) TransferToken(context.Context, TransferParams) (Receipt, error) {
	return Receipt{}, svcerr.LedgerUnavailable()
}

func (disabled) AccountBalance(context.Context, string) (Balance, error) {
	return Balance{}, svcerr.LedgerUnavailable()
}

func (disabled) TokenInfo(context.Context, string) (TokenInfo, error) {
	return TokenInfo{}, svcerr.LedgerUnavailable()
}
