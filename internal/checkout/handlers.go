package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/lock"
)

// Handler exposes POST /api/v1/checkout.
type Handler struct {
	Svc *Service
}

// Checkout completes the caller's cart and returns the order together with
// any vouchers bought (passes included) and the vouchers redeemed.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	res, err := h.Svc.Checkout(r.Context(), userID, common.UserEmail(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, res)
}

// RedactPasses drops the sold-voucher passes from a checkout body kept for
// idempotent replay; the passes reach the customer through the order email.
// It returns nil for bodies it cannot read.
func RedactPasses(body []byte) []byte {
	var env struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return nil
	}
	if raw, ok := env.Data["soldVouchers"]; ok {
		var sold []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &sold); err != nil {
			return nil
		}
		for _, sv := range sold {
			delete(sv, "pass")
		}
		redacted, err := json.Marshal(sold)
		if err != nil {
			return nil
		}
		env.Data["soldVouchers"] = redacted
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, inventory.ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "an item is out of stock", nil)
	case errors.Is(err, ErrVoucherUnavailable):
		common.JSONError(w, http.StatusConflict, "VOUCHER_UNAVAILABLE", "a redeemed voucher is no longer available", nil)
	case errors.Is(err, ErrConflict), errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "checkout is busy, please retry", nil)
	default:
		common.WriteError(w, err)
	}
}
