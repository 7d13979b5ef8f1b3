package inventory

import (
	"context"
	"net/http"

	"github.com/noah-isme/videoshop/internal/common"
)

// Lister is the read side used by the admin view.
type Lister interface {
	List(ctx context.Context) ([]Item, error)
}

// AdminHandler serves the BOSS stock overview.
type AdminHandler struct {
	Store Lister
}

// Stock handles GET /api/v1/admin/stock. Redeemed vouchers never enter stock,
// so the listing holds only sellable catalog entries.
func (h AdminHandler) Stock(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}
