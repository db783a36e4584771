// Package ledger adapts the external distributed ledger node behind typed
// token operations. Mutating operations are submit-then-wait: the node
// assigns a transaction id on submission and a second bounded call resolves
// the terminal receipt. A receipt wait that fails after submission is an
// ambiguous outcome, never silently retried.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// Submitter is the operation surface the orchestration layer depends on.
type Submitter interface {
	CreateToken(ctx context.Context, params CreateTokenParams) (Receipt, error)
	AssociateToken(ctx context.Context, params AssociateParams) (Receipt, error)
	MintToken(ctx context.Context, params MintParams) (Receipt, error)
	TransferToken(ctx context.Context, params TransferParams) (Receipt, error)
	AccountBalance(ctx context.Context, accountID string) (Balance, error)
	TokenInfo(ctx context.Context, tokenID string) (TokenInfo, error)
	Enabled() bool
	OperatorAccount() string
}

// Config holds client configuration.
type Config struct {
	RPCURL   string
	Operator Operator
	Timeout  time.Duration
}

// Client talks to a ledger node over JSON-RPC. The connection handle and
// operator identity are read-only after construction.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	operator   Operator
	log        *logger.Logger
}

var _ Submitter = (*Client)(nil)

// NewClient creates a ledger client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ledger rpc url required")
	}
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: &http.Client{Timeout: timeout},
		operator:   cfg.Operator,
		log:        log,
	}, nil
}

// Enabled reports whether the client can sign and pay for submissions.
func (c *Client) Enabled() bool { return c.operator.Configured() }

// OperatorAccount returns the gateway's own ledger account id.
func (c *Client) OperatorAccount() string { return c.operator.AccountID }

// call makes one bounded RPC call to the ledger node.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// submitAndWait submits a signed transaction, then resolves its receipt.
func (c *Client) submitAndWait(ctx context.Context, method string, params interface{}) (Receipt, error) {
	if !c.operator.Configured() {
		return Receipt{}, svcerr.LedgerUnavailable()
	}

	result, err := c.call(ctx, method, params)
	if err != nil {
		// Nothing was accepted; this is a plain failure, safe to surface.
		return Receipt{}, svcerr.Internal("ledger submission failed", err)
	}

	var submitted struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(result, &submitted); err != nil || submitted.TransactionID == "" {
		return Receipt{}, svcerr.Internal("ledger returned no transaction id", err)
	}

	receipt, err := c.waitReceipt(ctx, submitted.TransactionID)
	if err != nil {
		// Submitted but unconfirmed. Retrying here could double-spend, so
		// the outcome is surfaced as ambiguous with the known id attached.
		c.log.WithError(err).
			WithField("transaction_id", submitted.TransactionID).
			Warn("receipt wait failed after submission")
		return Receipt{TransactionID: submitted.TransactionID, Status: "PENDING"},
			svcerr.Ambiguous(submitted.TransactionID, err)
	}

	receipt.TransactionID = submitted.TransactionID
	if receipt.Status != "SUCCESS" {
		return receipt, svcerr.LedgerRejected(receipt.Status, receipt.TransactionID)
	}
	return receipt, nil
}

func (c *Client) waitReceipt(ctx context.Context, transactionID string) (Receipt, error) {
	result, err := c.call(ctx, "get_receipt", map[string]string{"transactionId": transactionID})
	if err != nil {
		return Receipt{}, err
	}
	var receipt Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("unmarshal receipt: %w", err)
	}
	if receipt.Status == "" {
		return Receipt{}, fmt.Errorf("receipt missing status")
	}
	return receipt, nil
}

// CreateToken defines a new fungible token with the operator as admin and
// supply authority.
func (c *Client) CreateToken(ctx context.Context, params CreateTokenParams) (Receipt, error) {
	treasury := params.Treasury
	if treasury == "" {
		treasury = c.operator.AccountID
	}
	return c.submitAndWait(ctx, "token_create", map[string]interface{}{
		"name":          params.Name,
		"symbol":        params.Symbol,
		"decimals":      params.Decimals,
		"initialSupply": params.InitialSupply,
		"treasury":      treasury,
		"adminKey":      c.operator.PrivateKey,
		"supplyKey":     c.operator.PrivateKey,
		"payer":         c.operator.AccountID,
	})
}

// AssociateToken links an account to a token, signed with the account
// owner's key supplied by the caller.
func (c *Client) AssociateToken(ctx context.Context, params AssociateParams) (Receipt, error) {
	return c.submitAndWait(ctx, "token_associate", map[string]interface{}{
		"accountId": params.AccountID,
		"tokenId":   params.TokenID,
		"signers":   []string{params.SigningKey},
		"payer":     c.operator.AccountID,
	})
}

// MintToken adds supply to a token using the operator's supply authority.
func (c *Client) MintToken(ctx context.Context, params MintParams) (Receipt, error) {
	return c.submitAndWait(ctx, "token_mint", map[string]interface{}{
		"tokenId":   params.TokenID,
		"amount":    params.Amount,
		"supplyKey": c.operator.PrivateKey,
		"payer":     c.operator.AccountID,
	})
}

// TransferToken moves tokens from one account to another. The debit and
// credit legs always sum to zero.
func (c *Client) TransferToken(ctx context.Context, params TransferParams) (Receipt, error) {
	legs := []transferLeg{
		{AccountID: params.From, Amount: -params.Amount},
		{AccountID: params.To, Amount: params.Amount},
	}
	var sum int64
	for _, leg := range legs {
		sum += leg.Amount
	}
	if sum != 0 {
		return Receipt{}, svcerr.Internal("unbalanced transfer constructed", nil)
	}
	return c.submitAndWait(ctx, "token_transfer", map[string]interface{}{
		"tokenId": params.TokenID,
		"legs":    legs,
		"signers": []string{params.SigningKey},
		"payer":   c.operator.AccountID,
	})
}

// AccountBalance queries hbar and token balances. Read-only, no signing.
func (c *Client) AccountBalance(ctx context.Context, accountID string) (Balance, error) {
	result, err := c.call(ctx, "account_balance", map[string]string{"accountId": accountID})
	if err != nil {
		return Balance{}, svcerr.Internal("balance query failed", err)
	}
	var balance Balance
	if err := json.Unmarshal(result, &balance); err != nil {
		return Balance{}, svcerr.Internal("unmarshal balance", err)
	}
	if balance.Tokens == nil {
		balance.Tokens = map[string]string{}
	}
	return balance, nil
}

// TokenInfo queries token metadata. Read-only, no signing.
func (c *Client) TokenInfo(ctx context.Context, tokenID string) (TokenInfo, error) {
	result, err := c.call(ctx, "token_info", map[string]string{"tokenId": tokenID})
	if err != nil {
		return TokenInfo{}, svcerr.Internal("token info query failed", err)
	}
	var info TokenInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return TokenInfo{}, svcerr.Internal("unmarshal token info", err)
	}
	return info, nil
}
