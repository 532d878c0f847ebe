package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/cache"
	"stocktrack/backend/internal/domain"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", cache.ErrMiss
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func testStats() domain.GlobalStats {
	return domain.GlobalStats{
		TotalStock:      194,
		TotalStockValue: decimal.NewFromInt(5000),
		ProductsSold:    11,
		TotalSalesValue: decimal.RequireFromString("1234.50"),
	}
}

func TestSummarizeCallsGeneratorWithBusinessPrompt(t *testing.T) {
	var gotPrompt string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode prompt: %v", err)
		}
		gotPrompt = req.Prompt
		json.NewEncoder(w).Encode(map[string]string{"text": "Performance solide ce mois-ci."})
	}))
	defer upstream.Close()

	svc := New(NewHTTPGenerator(upstream.URL, "test-key"), nil, time.Minute, zerolog.Nop())

	top := []domain.Product{{
		Name: "Vedette", Category: "Divers",
		Stats: domain.Stats{TotalSales: 9, Revenue: decimal.NewFromInt(90)},
	}}
	text, err := svc.Summarize(context.Background(), testStats(), top)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if text != "Performance solide ce mois-ci." {
		t.Fatalf("unexpected text: %q", text)
	}

	for _, fragment := range []string{"1234.5 €", "Produits vendus : 11", "Stock restant : 194", "Vedette"} {
		if !strings.Contains(gotPrompt, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, gotPrompt)
		}
	}
}

func TestSummarizeServesFromCache(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]string{"text": "Analyse."})
	}))
	defer upstream.Close()

	svc := New(NewHTTPGenerator(upstream.URL, ""), newMemoryCache(), time.Minute, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Summarize(ctx, testStats(), nil); err != nil {
			t.Fatalf("summarize %d failed: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}

	// Different aggregates must bypass the cached text.
	changed := testStats()
	changed.ProductsSold = 99
	if _, err := svc.Summarize(ctx, changed, nil); err != nil {
		t.Fatalf("summarize with changed stats failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected second upstream call for changed stats, got %d", calls)
	}
}

func TestSummarizeWithoutGenerator(t *testing.T) {
	svc := New(nil, nil, time.Minute, zerolog.Nop())

	_, err := svc.Summarize(context.Background(), testStats(), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSummarizeUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer upstream.Close()

	svc := New(NewHTTPGenerator(upstream.URL, ""), nil, time.Minute, zerolog.Nop())

	_, err := svc.Summarize(context.Background(), testStats(), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
