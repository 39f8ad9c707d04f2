package notifications

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jobflick/backend/internal/middleware"
	"github.com/jobflick/backend/internal/models"
)

type NotificationResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Link      string `json:"link"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

type Handler struct {
	repo *Repository
	log  *slog.Logger
}

func NewHandler(repo *Repository, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

// List returns the caller's notifications, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.repo.ListByUser(r.Context(), p.UserID, 100)
	if err != nil {
		h.log.Error("list notifications failed", "error", err)
		http.Error(w, "list notifications failed", http.StatusInternalServerError)
		return
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toResponse(n))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// MarkAllRead marks every notification of the caller as read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.repo.MarkAllRead(r.Context(), p.UserID); err != nil {
		h.log.Error("mark notifications read failed", "error", err)
		http.Error(w, "mark read failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
