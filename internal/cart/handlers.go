package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/voucher"
)

// Handler wires cart services to HTTP. All routes require an authenticated user.
type Handler struct {
	Svc *Service
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Number    int    `json:"number"`
}

type redeemRequest struct {
	ID  string `json:"id" validate:"required"`
	Pwd string `json:"pwd" validate:"required"`
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := owner(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := owner(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.Validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.AddItem(r.Context(), owner, uuid.MustParse(req.ProductID), req.Number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := owner(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Remove(r.Context(), owner, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), owner); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redeem handles POST /api/v1/cart/redeem. Rejections are reported per field:
// id.empty, pwd.empty, id.invalid, id.used or pwd.invalid.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	owner, ok := owner(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.Validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, _, err := h.Svc.Redeem(r.Context(), owner, req.ID, req.Pwd)
	if err != nil {
		if field, ok := redeemFieldError(err); ok {
			common.WriteError(w, common.ValidationError("voucher cannot be redeemed", field))
			return
		}
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

func redeemFieldError(err error) (common.FieldError, bool) {
	switch {
	case errors.Is(err, voucher.ErrNotFound):
		return common.FieldError{Field: "id", Reason: "id.invalid"}, true
	case errors.Is(err, voucher.ErrAlreadyUsed):
		return common.FieldError{Field: "id", Reason: "id.used"}, true
	case errors.Is(err, voucher.ErrInvalidPassword):
		return common.FieldError{Field: "pwd", Reason: "pwd.invalid"}, true
	case errors.Is(err, voucher.ErrInvalidArgument):
		return common.FieldError{Field: "id", Reason: "id.empty"}, true
	}
	return common.FieldError{}, false
}

func (h *Handler) render(w http.ResponseWriter, status int, c *Cart) {
	view, err := c.View(h.Svc.Currency())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, status, view)
}

func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.UserID(r.Context())
	if !ok || id == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart line not found", nil)
	case errors.Is(err, ErrInvalidArgument):
		common.JSONError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
