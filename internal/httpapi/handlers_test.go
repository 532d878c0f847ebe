package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/domain"
	"stocktrack/backend/internal/insight"
	"stocktrack/backend/internal/service"
	"stocktrack/backend/internal/store/memory"
)

func newTestAPI(t *testing.T, insightSvc *insight.Service) *API {
	t.Helper()
	svc := service.New(memory.New(), zerolog.Nop())
	return New(svc, insightSvc, "http://127.0.0.1:3000", zerolog.Nop())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createProduct(t *testing.T, handler http.Handler, name string, quantity int) domain.Product {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", map[string]any{
		"name":     name,
		"category": "Test",
		"price":    "19.99",
		"quantity": quantity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Product domain.Product `json:"product"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.Product
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProductLifecycle(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	created := createProduct(t, handler, "Tondeuse Pro", 12)
	if created.Status != domain.StatusInStock {
		t.Fatalf("expected derived in-stock status, got %s", created.Status)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var listResp struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Products) != 1 || listResp.Products[0].ID != created.ID {
		t.Fatalf("unexpected catalog: %+v", listResp.Products)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/products/"+created.ID, map[string]any{
		"name": "Tondeuse Pro X",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/products/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreateProductValidation(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", map[string]any{
		"category": "Test",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "X", "category": "Test", "bogus": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestRecordSaleEndpoint(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	created := createProduct(t, handler, "Casque", 10)

	rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/sales", created.ID), map[string]any{
		"quantity":  3,
		"unitPrice": "59.90",
		"date":      "2025-11-02",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Product domain.Product `json:"product"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode sale response: %v", err)
	}
	if resp.Product.Quantity != 7 || resp.Product.Stats.TotalSales != 3 {
		t.Fatalf("sale not applied: %+v", resp.Product)
	}
	if !resp.Product.Stats.Revenue.Equal(decimal.RequireFromString("179.70")) {
		t.Fatalf("unexpected revenue: %s", resp.Product.Stats.Revenue)
	}

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/sales", created.ID), map[string]any{
		"quantity": 0, "unitPrice": "1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products/prod-nope/sales", map[string]any{
		"quantity": 1, "unitPrice": "1",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rec.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	created := createProduct(t, handler, "Vedette", 20)

	rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/products/%s/sales", created.ID), map[string]any{
		"quantity": 4, "unitPrice": "10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale returned %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d", rec.Code)
	}
	var view domain.DashboardView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if view.Stats.ProductsSold != 4 || view.Stats.TotalStock != 16 {
		t.Fatalf("unexpected aggregates: %+v", view.Stats)
	}
	if len(view.TopProducts) != 1 || len(view.RecentSales) != 1 {
		t.Fatalf("unexpected dashboard lists: %+v", view)
	}
}

type staticGenerator struct {
	text string
}

func (g staticGenerator) Generate(context.Context, string) (string, error) {
	return g.text, nil
}

func TestInsightEndpoint(t *testing.T) {
	insightSvc := insight.New(staticGenerator{text: "Analyse."}, nil, time.Minute, zerolog.Nop())
	handler := newTestAPI(t, insightSvc).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/insight", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insight returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Analysis string `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode insight: %v", err)
	}
	if resp.Analysis != "Analyse." {
		t.Fatalf("unexpected analysis: %q", resp.Analysis)
	}
}

func TestInsightEndpointWithoutGenerator(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/insight", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected allowed origin: %q", origin)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
