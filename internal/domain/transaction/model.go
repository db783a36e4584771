package transaction

import "time"

// Type enumerates the ledger operations the gateway records locally.
type Type string

const (
	TypeCreate    Type = "CREATE"
	TypeAssociate Type = "ASSOCIATE"
	TypeMint      Type = "MINT"
	TypeTransfer  Type = "TRANSFER"
)

// Valid reports whether t is one of the known operation types.
func (t Type) Valid() bool {
	switch t {
	case TypeCreate, TypeAssociate, TypeMint, TypeTransfer:
		return true
	}
	return false
}

// Status mirrors the terminal receipt status of the external ledger.
// PENDING covers submissions whose receipt could not be confirmed.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Record is the gateway's local account of one attempted or completed
// operation against the external ledger. Records are append-only.
type Record struct {
	ID            string            `json:"id"`
	AccountID     string            `json:"accountId"`
	Type          Type              `json:"type"`
	TokenID       string            `json:"tokenId,omitempty"`
	Amount        int64             `json:"amount"`
	Status        Status            `json:"status"`
	TransactionID string            `json:"transactionId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
