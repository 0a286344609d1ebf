// Package api serves the operator HTTP surface: health, metrics, refresh
// status and read access to holders and transactions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/observability"
	"solana-holder-tracker/internal/orchestrator"
	"solana-holder-tracker/internal/storage"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 1000

// Service is the subset of the orchestrator the HTTP surface reads from.
type Service interface {
	Status(ctx context.Context) orchestrator.StatusReport
	TriggerRefresh(ctx context.Context) bool
	Holders(ctx context.Context, limit int) ([]*domain.Holder, error)
	Transactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	Stats(ctx context.Context, filter domain.TransactionFilter) (*orchestrator.Stats, error)
}

var _ Service = (*orchestrator.Orchestrator)(nil)

// Server handles HTTP requests.
type Server struct {
	svc    Service
	logger *zap.Logger
}

// NewServer creates a Server backed by svc.
func NewServer(svc Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger.Named("api")}
}

// Router returns a router with every route registered.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	s.Register(router)
	return router
}

// Register registers the routes on router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	router.HandleFunc("/holders", s.handleHolders).Methods(http.MethodGet)
	router.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
}

// HolderResponse is the JSON form of a holder.
type HolderResponse struct {
	Rank          int             `json:"rank"`
	Address       string          `json:"address"`
	TokenAmount   decimal.Decimal `json:"tokenAmount"`
	NativeBalance decimal.Decimal `json:"solBalance"`
	LastUpdated   int64           `json:"lastUpdated"`
}

// TransactionResponse is the JSON form of a transaction.
type TransactionResponse struct {
	Signature     string          `json:"signature"`
	WalletAddress *string         `json:"walletAddress"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     string          `json:"type"`
	Protocol      string          `json:"protocol"`
	Timestamp     int64           `json:"timestamp"`
	Success       bool            `json:"success"`
}

// RefreshResponse is returned by POST /refresh.
type RefreshResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Status(r.Context()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.svc.TriggerRefresh(r.Context()) {
		s.writeJSON(w, http.StatusConflict, RefreshResponse{Message: "refresh already in progress"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, RefreshResponse{Accepted: true, Message: "refresh started"})
}

func (s *Server) handleHolders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	holders, err := s.svc.Holders(r.Context(), limit)
	if err != nil {
		s.internalError(w, "list holders", err)
		return
	}

	resp := make([]HolderResponse, 0, len(holders))
	for _, h := range holders {
		resp = append(resp, HolderResponse{
			Rank:          h.Rank,
			Address:       h.Address,
			TokenAmount:   h.TokenAmount,
			NativeBalance: h.NativeBalance,
			LastUpdated:   h.LastUpdated,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	txs, err := s.svc.Transactions(r.Context(), filter)
	if errors.Is(err, storage.ErrInvalidInput) {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.internalError(w, "query transactions", err)
		return
	}

	resp := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		item := TransactionResponse{
			Signature: tx.Signature,
			Amount:    tx.Amount,
			Direction: string(tx.Direction),
			Protocol:  tx.Protocol,
			Timestamp: tx.Timestamp,
			Success:   tx.Success,
		}
		if tx.WalletAddress != "" {
			wallet := tx.WalletAddress
			item.WalletAddress = &wallet
		}
		resp = append(resp, item)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, err := s.svc.Stats(r.Context(), filter)
	if errors.Is(err, storage.ErrInvalidInput) {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.internalError(w, "aggregate stats", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// parseFilter reads direction, protocol, wallet, from, to and limit.
// from and to accept Unix milliseconds or RFC 3339 times.
func parseFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Protocol:      q.Get("protocol"),
		WalletAddress: q.Get("wallet"),
	}

	if v := q.Get("direction"); v != "" {
		d, err := domain.ParseDirection(v)
		if err != nil {
			return filter, err
		}
		filter.Direction = d
	}

	var err error
	if filter.From, err = parseTime("from", q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime("to", q.Get("to")); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseLimit(q.Get("limit")); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseTime(name, v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("%s must not be negative", name)
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, fmt.Errorf("%s: want unix milliseconds or RFC 3339, got %q", name, v)
	}
	return t.UnixMilli(), nil
}

func parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", v)
	}
	return min(n, MaxLimit), nil
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, errors.New(op+" failed"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}
