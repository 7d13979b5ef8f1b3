package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/videoshop/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// DVDs handles GET /api/v1/catalog/dvds.
func (h *Handler) DVDs(w http.ResponseWriter, r *http.Request) { h.list(w, r, DVD) }

// BluRays handles GET /api/v1/catalog/blurays.
func (h *Handler) BluRays(w http.ResponseWriter, r *http.Request) { h.list(w, r, BluRay) }

// Vouchers handles GET /api/v1/catalog/vouchers.
func (h *Handler) Vouchers(w http.ResponseWriter, r *http.Request) { h.list(w, r, Voucher) }

func (h *Handler) list(w http.ResponseWriter, r *http.Request, t BuyableType) {
	items, err := h.service.ListByType(r.Context(), t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Item handles GET /api/v1/catalog/items/{id}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
		return
	}
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, detail)
}

type commentRequest struct {
	Text   string `json:"text" validate:"required,max=2000"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
}

// AddComment handles POST /api/v1/catalog/items/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
		return
	}
	var req commentRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.Validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.service.AddComment(r.Context(), id, req.Text, req.Rating)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, c)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
	case errors.Is(err, ErrInvalidArgument):
		common.JSONError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
