package router

import (
	"net/http"

	"github.com/jobflick/backend/internal/admin"
	"github.com/jobflick/backend/internal/auth"
	"github.com/jobflick/backend/internal/metrics"
	"github.com/jobflick/backend/internal/middleware"
	"github.com/jobflick/backend/internal/notifications"
	"github.com/jobflick/backend/internal/payouts"
	"github.com/jobflick/backend/internal/subscriptions"
	"github.com/jobflick/backend/internal/wallet"
)

// Handlers bundles the per-package HTTP handlers the router mounts.
type Handlers struct {
	Auth          *auth.Handler
	Wallet        *wallet.Handler
	Payouts       *payouts.Handler
	Subscriptions *subscriptions.Handler
	Notifications *notifications.Handler
	Admin         *admin.Handler
}

// New returns an http.Handler serving the API under /api/v1.
// Middleware chain: RequireAuth -> (RequireStaff on /admin) -> handler.
func New(h Handlers, tokens middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)

	authn := middleware.RequireAuth(tokens)
	member := func(hf http.HandlerFunc) http.Handler { return authn(hf) }
	staff := func(hf http.HandlerFunc) http.Handler { return authn(middleware.RequireStaff(hf)) }

	mux.Handle("GET "+base+"/wallet", member(h.Wallet.GetWallet))
	mux.Handle("GET "+base+"/wallet/transactions", member(h.Wallet.ListTransactions))
	mux.Handle("POST "+base+"/wallet/payout-requests", member(h.Payouts.RequestPayout))

	mux.Handle("GET "+base+"/subscription/plans", member(h.Subscriptions.ListPlans))
	mux.Handle("POST "+base+"/subscription/purchase", member(h.Subscriptions.PurchasePlan))
	mux.Handle("GET "+base+"/subscription/receipts", member(h.Subscriptions.ListReceipts))

	mux.Handle("GET "+base+"/notifications", member(h.Notifications.List))
	mux.Handle("POST "+base+"/notifications/read-all", member(h.Notifications.MarkAllRead))

	mux.Handle("GET "+base+"/admin/overview", staff(h.Admin.GetOverview))
	mux.Handle("GET "+base+"/admin/transactions", staff(h.Admin.ListTransactions))
	mux.Handle("POST "+base+"/admin/transactions/{id}/complete", staff(h.Admin.CompleteTransaction))
	mux.Handle("POST "+base+"/admin/transactions/{id}/fail", staff(h.Admin.FailTransaction))
	mux.Handle("POST "+base+"/admin/top-ups", staff(h.Admin.TopUp))

	return mux
}
