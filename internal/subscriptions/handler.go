package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jobflick/backend/internal/middleware"
	"github.com/jobflick/backend/internal/models"
	"github.com/jobflick/backend/internal/wallet"
)

// ReceiptLister is the read side the handler needs beyond Purchase.
type ReceiptLister interface {
	ListReceiptsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SubscriptionReceipt, error)
}

type PurchaseRequest struct {
	Plan string `json:"plan"`
}

type PurchaseResponse struct {
	Plan          string `json:"plan"`
	ExpiresAt     string `json:"expires_at"`
	Reference     string `json:"reference"`
	AmountCharged int64  `json:"amount_charged"`
	WalletBalance int64  `json:"wallet_balance"`
}

type ReceiptResponse struct {
	ID           string `json:"id"`
	Plan         string `json:"plan"`
	Amount       int64  `json:"amount"`
	WalletBefore int64  `json:"wallet_before"`
	WalletAfter  int64  `json:"wallet_after"`
	CreatedAt    string `json:"created_at"`
}

type Handler struct {
	svc      *Service
	receipts ReceiptLister
	log      *slog.Logger
}

func NewHandler(svc *Service, receipts ReceiptLister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, receipts: receipts, log: log}
}

// ListPlans returns the static plan catalog.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Plans())
}

// PurchasePlan activates a plan for the caller, debiting the wallet.
func (h *Handler) PurchasePlan(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Plan == "" {
		http.Error(w, "missing plan", http.StatusBadRequest)
		return
	}
	res, err := h.svc.Purchase(r.Context(), p.UserID, req.Plan)
	if err != nil {
		if errors.Is(err, ErrUnknownPlan) {
			http.Error(w, "unknown plan", http.StatusBadRequest)
			return
		}
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			http.Error(w, "insufficient wallet balance", http.StatusPaymentRequired)
			return
		}
		h.log.Error("purchase failed", "plan", req.Plan, "error", err)
		http.Error(w, "purchase failed", http.StatusInternalServerError)
		return
	}
	resp := PurchaseResponse{
		Plan:          res.Plan.Key,
		ExpiresAt:     res.ExpiresAt.Format("2006-01-02"),
		Reference:     res.Entry.Reference,
		AmountCharged: res.Entry.Amount,
	}
	if res.Entry.BalanceAfter != nil {
		resp.WalletBalance = *res.Entry.BalanceAfter
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

// ListReceipts returns the caller's purchase history, newest first.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.receipts.ListReceiptsByUser(r.Context(), p.UserID, 50)
	if err != nil {
		h.log.Error("list receipts failed", "error", err)
		http.Error(w, "list receipts failed", http.StatusInternalServerError)
		return
	}
	resp := make([]ReceiptResponse, 0, len(list))
	for _, rec := range list {
		resp = append(resp, ReceiptResponse{
			ID:           rec.ID.String(),
			Plan:         rec.Plan,
			Amount:       rec.Amount,
			WalletBefore: rec.WalletBefore,
			WalletAfter:  rec.WalletAfter,
			CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
