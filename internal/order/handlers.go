package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/videoshop/internal/common"
)

// Reader is the read side of Store.
type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByStatus(ctx context.Context, status Status) ([]*Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
}

// Handler exposes the authenticated user's own orders.
type Handler struct {
	Orders Reader
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uID, ok := userUUID(w, r)
	if !ok {
		return
	}
	orders, err := h.Orders.FindByUser(r.Context(), uID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, orders)
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uID, ok := userUUID(w, r)
	if !ok {
		return
	}
	oID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Orders.FindByID(r.Context(), oID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	if o.UserID != uID {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	common.Data(w, http.StatusOK, o)
}

func userUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	uID, err := uuid.Parse(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return uuid.Nil, false
	}
	return uID, true
}
