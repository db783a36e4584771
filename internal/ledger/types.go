package ledger

import (
	"encoding/json"
	"fmt"
)

// Operator is the gateway's own ledger account and signing key. It signs
// operations the gateway is authorized to perform itself (create, mint) and
// pays network fees for submissions.
type Operator struct {
	AccountID  string
	PrivateKey string
}

// Configured reports whether a complete operator identity is present.
func (o Operator) Configured() bool {
	return o.AccountID != "" && o.PrivateKey != ""
}

// Receipt is the ledger's terminal confirmation of a submitted operation.
// Status is PENDING when the receipt could not be confirmed.
type Receipt struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	TokenID       string `json:"tokenId,omitempty"`
}

// Balance is the result of an account balance query.
type Balance struct {
	Hbars  float64           `json:"hbars"`
	Tokens map[string]string `json:"tokens"`
}

// TokenInfo is the result of a token metadata query.
type TokenInfo struct {
	TokenID     string `json:"tokenId"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Treasury    string `json:"treasuryAccountId"`
}

// CreateTokenParams describe a new fungible token. The operator key is used
// as both admin and supply key.
type CreateTokenParams struct {
	Name          string
	Symbol        string
	Decimals      int
	InitialSupply int64
	Treasury      string
}

// AssociateParams link an account to a token. Association is an
// account-owner action, so the caller supplies that account's key.
type AssociateParams struct {
	AccountID  string
	SigningKey string
	TokenID    string
}

// MintParams add supply to an existing token. The operator must hold the
// token's supply authority.
type MintParams struct {
	TokenID string
	Amount  int64
}

// TransferParams move tokens between two accounts. SigningKey must belong
// to the sending account.
type TransferParams struct {
	TokenID    string
	From       string
	SigningKey string
	To         string
	Amount     int64
}

// transferLeg is one side of a balanced transfer. The ledger rejects any
// transfer whose legs do not sum to zero.
type transferLeg struct {
	AccountID string `json:"accountId"`
	Amount    int64  `json:"amount"`
}

// RPC envelope -----------------------------------------------------------------

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is a failure reported by the ledger node itself.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}
