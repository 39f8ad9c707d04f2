package payouts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jobflick/backend/internal/middleware"
	"github.com/jobflick/backend/internal/wallet"
)

type RequestPayoutRequest struct {
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

// RequestPayout opens a pending payout for staff review. No balance moves
// until a staff member completes the entry.
func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req RequestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	entry, err := h.svc.Request(r.Context(), p.UserID, req.Amount, req.Note)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			http.Error(w, "amount must be positive", http.StatusBadRequest)
			return
		}
		h.log.Error("payout request failed", "error", err)
		http.Error(w, "payout request failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(wallet.EntryToResponse(entry))
}
