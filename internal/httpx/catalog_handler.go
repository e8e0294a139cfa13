package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/catalog"
)

type ProductStore interface {
	Get(ctx context.Context, id int64) (*catalog.Product, error)
}

// CatalogHandler melayani jalur baca katalog (publik, tanpa principal).
// Lewat Store yang cache-first; transaksi order tetap baca fresh dari DB.
type CatalogHandler struct {
	Products ProductStore
	Log      *zap.Logger
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
