package order

import (
	"context"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/money"
	"github.com/noah-isme/videoshop/internal/voucher"
)

// ActiveVouchers lists sold vouchers that still carry value.
type ActiveVouchers interface {
	FindActive(ctx context.Context) ([]voucher.SoldVoucher, error)
}

// AdminHandler serves the shop owner's order overview.
type AdminHandler struct {
	Store    Reader
	Vouchers ActiveVouchers
}

type voucherView struct {
	Identifier string      `json:"identifier"`
	Value      money.Money `json:"value"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Orders handles GET /api/v1/admin/orders: completed orders and every sold
// voucher with value left. Passes are never included.
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.FindByStatus(r.Context(), StatusCompleted)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	active, err := h.Vouchers.FindActive(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	vouchers := lo.FilterMap(active, func(v voucher.SoldVoucher, _ int) (voucherView, bool) {
		return voucherView{Identifier: v.Identifier, Value: v.Value, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}, v.Value.IsPositive()
	})
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"orders":   orders,
			"vouchers": vouchers,
		},
	})
}
