// Package httpapi exposes the gateway's REST surface.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hashbridge/ledger-gateway/internal/auth"
	"github.com/hashbridge/ledger-gateway/internal/domain/transaction"
	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/httputil"
	"github.com/hashbridge/ledger-gateway/internal/ledger"
	"github.com/hashbridge/ledger-gateway/internal/metrics"
	"github.com/hashbridge/ledger-gateway/internal/middleware"
	"github.com/hashbridge/ledger-gateway/internal/services/accounts"
	"github.com/hashbridge/ledger-gateway/internal/services/prices"
	"github.com/hashbridge/ledger-gateway/internal/services/tokens"
	"github.com/hashbridge/ledger-gateway/internal/storage"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// publicPaths are served without a bearer credential.
var publicPaths = []string{
	"/health",
	"/metrics",
	"/auth/register",
	"/auth/login",
	"/auth/recover",
	"/prices",
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Accounts *accounts.Service
	Tokens   *tokens.Service
	Prices   *prices.Service
	Ledger   ledger.Submitter
	Store    storage.Backend
	Issuer   *auth.TokenIssuer
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Limiter  *middleware.RateLimiter
	Log      *logger.Logger
}

type handler struct {
	deps Deps
}

// NewRouter builds the gateway router with its middleware chain.
func NewRouter(deps Deps) *mux.Router {
	if deps.Log == nil {
		deps.Log = logger.NewDefault("httpapi")
	}
	h := &handler{deps: deps}

	r := mux.NewRouter()
	r.Use(middleware.CORS)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Auth(deps.Issuer, deps.Log, publicPaths))
	if deps.Limiter != nil {
		r.Use(deps.Limiter.Handler)
	}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/recover", h.recover).Methods(http.MethodPost)

	r.HandleFunc("/transactions/{accountId}", h.listTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.recordTransaction).Methods(http.MethodPost)

	r.HandleFunc("/token/create", h.createToken).Methods(http.MethodPost)
	r.HandleFunc("/token/associate", h.associateToken).Methods(http.MethodPost)
	r.HandleFunc("/token/mint", h.mintToken).Methods(http.MethodPost)
	r.HandleFunc("/token/transfer", h.transferToken).Methods(http.MethodPost)
	r.HandleFunc("/token/info/{tokenId}", h.tokenInfo).Methods(http.MethodGet)

	r.HandleFunc("/account/balance/{accountId}", h.accountBalance).Methods(http.MethodGet)
	r.HandleFunc("/prices", h.listPrices).Methods(http.MethodGet)

	return r
}

// Health & auth ----------------------------------------------------------------

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storageConnected := h.deps.Store.Ping(ctx) == nil
	status := "ok"
	if !storageConnected {
		status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":           status,
		"ledgerEnabled":    h.deps.Ledger.Enabled(),
		"storageConnected": storageConnected,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		Passphrase string `json:"passphrase"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	token, err := h.deps.Accounts.Register(r.Context(), payload.Username, payload.Password, payload.Passphrase)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	token, err := h.deps.Accounts.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *handler) recover(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Passphrase string `json:"passphrase"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	token, err := h.deps.Accounts.Recover(r.Context(), payload.Passphrase)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Transactions -----------------------------------------------------------------

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, svcerr.InvalidRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	recs, err := h.deps.Tokens.ListTransactions(r.Context(), accountID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recs)
}

func (h *handler) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccountID     string            `json:"accountId"`
		Type          string            `json:"type"`
		TokenID       string            `json:"tokenId"`
		Amount        int64             `json:"amount"`
		Status        string            `json:"status"`
		TransactionID string            `json:"transactionId"`
		Metadata      map[string]string `json:"metadata"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}

	stored, err := h.deps.Tokens.RecordEntry(r.Context(), transaction.Record{
		AccountID:     payload.AccountID,
		Type:          transaction.Type(payload.Type),
		TokenID:       payload.TokenID,
		Amount:        payload.Amount,
		Status:        transaction.Status(payload.Status),
		TransactionID: payload.TransactionID,
		Metadata:      payload.Metadata,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, stored)
}

// Token operations -------------------------------------------------------------

func (h *handler) createToken(w http.ResponseWriter, r *http.Request) {
	var req tokens.CreateTokenRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	result, err := h.deps.Tokens.CreateToken(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *handler) associateToken(w http.ResponseWriter, r *http.Request) {
	var req tokens.AssociateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	result, err := h.deps.Tokens.Associate(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) mintToken(w http.ResponseWriter, r *http.Request) {
	var req tokens.MintRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	result, err := h.deps.Tokens.Mint(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) transferToken(w http.ResponseWriter, r *http.Request) {
	var req tokens.TransferRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, svcerr.InvalidRequest(err.Error()))
		return
	}
	result, err := h.deps.Tokens.Transfer(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) tokenInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.Tokens.TokenInfo(r.Context(), mux.Vars(r)["tokenId"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// Balances & prices ------------------------------------------------------------

func (h *handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.deps.Tokens.Balance(r.Context(), mux.Vars(r)["accountId"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"hbarEquivalent": balance.Hbars,
		"tokens":         balance.Tokens,
	})
}

func (h *handler) listPrices(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.deps.Prices.ReadAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snaps)
}
