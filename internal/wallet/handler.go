package wallet

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jobflick/backend/internal/middleware"
	"github.com/jobflick/backend/internal/models"
)

type WalletResponse struct {
	UserID                string  `json:"user_id"`
	WalletBalance         int64   `json:"wallet_balance"`
	SubscriptionPlan      string  `json:"subscription_plan"`
	SubscriptionExpiresAt *string `json:"subscription_expires_at,omitempty"`
}

type EntryResponse struct {
	ID                    string  `json:"id"`
	Reference             string  `json:"reference"`
	UserID                string  `json:"user_id"`
	InitiatedBy           *string `json:"initiated_by,omitempty"`
	Direction             string  `json:"direction"`
	Category              string  `json:"category"`
	Amount                int64   `json:"amount"`
	BalanceBefore         *int64  `json:"balance_before"`
	BalanceAfter          *int64  `json:"balance_after"`
	PlatformBalanceBefore *int64  `json:"platform_balance_before"`
	PlatformBalanceAfter  *int64  `json:"platform_balance_after"`
	Note                  string  `json:"note"`
	Status                string  `json:"status"`
	CreatedAt             string  `json:"created_at"`
	ProcessedAt           *string `json:"processed_at,omitempty"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// GetWallet returns the caller's balance and subscription state.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	profile, err := h.svc.Balance(r.Context(), p.UserID)
	if err != nil {
		h.log.Error("get wallet failed", "error", err)
		http.Error(w, "get wallet failed", http.StatusInternalServerError)
		return
	}
	resp := WalletResponse{
		UserID:           profile.UserID.String(),
		WalletBalance:    profile.WalletBalance,
		SubscriptionPlan: profile.SubscriptionPlan,
	}
	if profile.SubscriptionExpiresAt != nil {
		s := profile.SubscriptionExpiresAt.Format("2006-01-02")
		resp.SubscriptionExpiresAt = &s
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ListTransactions returns the caller's ledger history, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit, offset := pagination(r)
	list, err := h.svc.History(r.Context(), p.UserID, limit, offset)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "list transactions failed", http.StatusInternalServerError)
		return
	}
	resp := make([]EntryResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, EntryToResponse(e))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// EntryToResponse converts a ledger entry into its wire shape. Shared with
// the admin handler.
func EntryToResponse(e *models.WalletTransaction) EntryResponse {
	out := EntryResponse{
		ID:                    e.ID.String(),
		Reference:             e.Reference,
		UserID:                e.UserID.String(),
		Direction:             string(e.Direction),
		Category:              string(e.Category),
		Amount:                e.Amount,
		BalanceBefore:         e.BalanceBefore,
		BalanceAfter:          e.BalanceAfter,
		PlatformBalanceBefore: e.PlatformBalanceBefore,
		PlatformBalanceAfter:  e.PlatformBalanceAfter,
		Note:                  e.Note,
		Status:                string(e.Status),
		CreatedAt:             e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if e.InitiatedBy != nil {
		s := e.InitiatedBy.String()
		out.InitiatedBy = &s
	}
	if e.ProcessedAt != nil {
		s := e.ProcessedAt.Format("2006-01-02T15:04:05Z07:00")
		out.ProcessedAt = &s
	}
	return out
}
