package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/catalog"
)

type fakeProducts struct{ byID map[int64]*catalog.Product }

func (f *fakeProducts) Get(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func newCatalogRouter(f *fakeProducts) http.Handler {
	r := NewRouter()
	h := &CatalogHandler{Products: f, Log: zap.NewNop()}
	h.Register(r)
	return r
}

func TestGetProduct(t *testing.T) {
	router := newCatalogRouter(&fakeProducts{byID: map[int64]*catalog.Product{
		5: {ID: 5, Name: "Phone X", PriceCents: 10000},
	}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/products/5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var p catalog.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != 5 || p.Name != "Phone X" || p.PriceCents != 10000 {
		t.Errorf("unexpected body: %+v", p)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	router := newCatalogRouter(&fakeProducts{byID: nil})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/products/99", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetProduct_BadID(t *testing.T) {
	router := newCatalogRouter(&fakeProducts{byID: nil})

	for _, path := range []string{"/products/abc", "/products/-1", "/products/0"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}
