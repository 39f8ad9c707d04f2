package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jobflick/backend/internal/middleware"
	"github.com/jobflick/backend/internal/wallet"
)

type FailRequest struct {
	Reason string `json:"reason"`
}

type TopUpRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// ListTransactions lists ledger entries across all users, optionally
// filtered by ?status=.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	list, err := h.svc.Transactions(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "list transactions failed", http.StatusInternalServerError)
		return
	}
	resp := make([]wallet.EntryResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, wallet.EntryToResponse(e))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// CompleteTransaction settles a pending or processing entry.
func (h *Handler) CompleteTransaction(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	p := middleware.PrincipalFromCtx(r.Context())
	res, err := h.svc.CompleteEntry(r.Context(), entryID, p.UserID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(wallet.EntryToResponse(res.Entry))
}

// FailTransaction marks a non-terminal entry failed.
func (h *Handler) FailTransaction(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req FailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	entry, err := h.svc.FailEntry(r.Context(), entryID, req.Reason)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(wallet.EntryToResponse(entry))
}

// TopUp credits a user's wallet from the platform wallet.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	p := middleware.PrincipalFromCtx(r.Context())
	res, err := h.svc.TopUp(r.Context(), userID, req.Amount, req.Note, p.UserID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(wallet.EntryToResponse(res.Entry))
}

// GetOverview reports platform balance and subscription totals.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.GetOverview(r.Context())
	if err != nil {
		h.log.Error("overview failed", "error", err)
		http.Error(w, "overview failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ov)
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallet.ErrEntryNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, wallet.ErrInvalidStateTransition):
		http.Error(w, "transaction already finalized", http.StatusConflict)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		http.Error(w, "insufficient user balance", http.StatusConflict)
	case errors.Is(err, wallet.ErrInsufficientPlatformBalance):
		http.Error(w, "insufficient platform balance", http.StatusConflict)
	case errors.Is(err, wallet.ErrInvalidAmount):
		http.Error(w, "amount must be positive", http.StatusBadRequest)
	default:
		h.log.Error("settlement failed", "error", err)
		http.Error(w, "settlement failed", http.StatusInternalServerError)
	}
}
