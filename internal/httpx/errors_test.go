package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sondv/phone-orders/internal/discount"
	"github.com/sondv/phone-orders/internal/identity"
	"github.com/sondv/phone-orders/internal/inventory"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/payments"
)

func TestErrStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{identity.ErrNoPrincipal, http.StatusUnauthorized},
		{orders.ErrForbidden, http.StatusForbidden},
		{orders.ErrNotFound, http.StatusNotFound},
		{payments.ErrNotFound, http.StatusNotFound},
		{discount.ErrNotFound, http.StatusNotFound},
		{inventory.ErrInsufficientStock, http.StatusConflict},
		{discount.ErrAlreadyUsed, http.StatusConflict},
		{discount.ErrNotStackable, http.StatusConflict},
		{payments.ErrAlreadyExists, http.StatusConflict},
		{payments.ErrInvalidTransition, http.StatusConflict},
		{orders.ErrNotPending, http.StatusConflict},
		{orders.ErrValidation, http.StatusBadRequest},
		{discount.ErrMinimumNotMet, http.StatusBadRequest},
		{errors.New("sesuatu yang lain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errStatus(tc.err); got != tc.want {
			t.Errorf("errStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}

	// sentinel yang dibungkus %w tetap terpetakan
	wrapped := fmt.Errorf("insufficient stock for \"Phone X\": %w", inventory.ErrInsufficientStock)
	if got := errStatus(wrapped); got != http.StatusConflict {
		t.Errorf("wrapped errStatus = %d, want %d", got, http.StatusConflict)
	}
}
