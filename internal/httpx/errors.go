package httpx

import (
	"errors"
	"net/http"

	"github.com/sondv/phone-orders/internal/catalog"
	"github.com/sondv/phone-orders/internal/discount"
	"github.com/sondv/phone-orders/internal/identity"
	"github.com/sondv/phone-orders/internal/inventory"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/payments"
)

// errStatus memetakan sentinel domain ke HTTP status. Pesan error domain
// sudah actionable (produk mana yang kurang stok, aturan diskon mana yang
// gagal), jadi body cukup meneruskan err.Error().
func errStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrNoPrincipal):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, payments.ErrNotFound),
		errors.Is(err, payments.ErrOrderNotFound),
		errors.Is(err, discount.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, discount.ErrAlreadyUsed),
		errors.Is(err, discount.ErrNotStackable),
		errors.Is(err, payments.ErrAlreadyExists),
		errors.Is(err, payments.ErrInvalidTransition),
		errors.Is(err, orders.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, orders.ErrValidation),
		errors.Is(err, discount.ErrExpired),
		errors.Is(err, discount.ErrNotYetActive),
		errors.Is(err, discount.ErrMinimumNotMet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}
