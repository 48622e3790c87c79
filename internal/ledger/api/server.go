// Package api exposes the deposit-webhook HTTP surface.
//
// The handlers are collaborator plumbing: they decode the asynchronous
// transfer notifications and hand them to the ledger. All validation and
// routing decisions live in the vault allocator.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/louisbranch/questline/internal/ledger/domain"
	apperrors "github.com/louisbranch/questline/internal/platform/errors"
)

// Ledger is the deposit surface the webhook serves.
type Ledger interface {
	FungibleDeposit(ctx context.Context, from domain.Identity, amount domain.TokenBalance, memo string) error
	NFTDeposit(ctx context.Context, from domain.Identity, assetIDs []string, memo string) error
}

// Server serves the deposit-webhook routes.
type Server struct {
	ledger Ledger
}

// NewServer creates the webhook server over the given ledger.
func NewServer(ledger Ledger) *Server {
	return &Server{ledger: ledger}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/deposits/token", requirePost(s.handleTokenDeposit))
	mux.HandleFunc("/v1/deposits/nft", requirePost(s.handleNFTDeposit))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

type tokenDepositRequest struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
	Symbol string `json:"symbol"`
	Memo   string `json:"memo"`
}

type nftDepositRequest struct {
	From     string   `json:"from"`
	AssetIDs []string `json:"asset_ids"`
	Memo     string   `json:"memo"`
}

func (s *Server) handleTokenDeposit(w http.ResponseWriter, r *http.Request) {
	var req tokenDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json payload")
		return
	}

	amount := domain.TokenBalance{Amount: req.Amount, Symbol: req.Symbol}
	if err := s.ledger.FungibleDeposit(r.Context(), domain.Identity(req.From), amount, req.Memo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (s *Server) handleNFTDeposit(w http.ResponseWriter, r *http.Request) {
	var req nftDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json payload")
		return
	}

	if err := s.ledger.NFTDeposit(r.Context(), domain.Identity(req.From), req.AssetIDs, req.Memo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSONError(w, httpStatus(err), fmt.Sprintf("%v", err))
}

// httpStatus maps coded ledger errors onto HTTP statuses.
func httpStatus(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists:
		return http.StatusConflict
	case apperrors.CodeIdentityRejected:
		return http.StatusUnauthorized
	case apperrors.CodeNotOwner:
		return http.StatusForbidden
	case apperrors.CodeMemoMalformed,
		apperrors.CodeIDNotFixedWidth,
		apperrors.CodeIdentityEmpty:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
