package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/domain"
	"stocktrack/backend/internal/stats"
	"stocktrack/backend/internal/store"
	"stocktrack/backend/internal/xid"
)

const (
	topProductsLimit = 5
	recentSalesLimit = 20
)

// Service owns every product mutation. Mutations on one record are
// serialized through a per-id lock so two concurrent sales on the same
// product cannot lose a stats update; operations on different products
// run independently.
type Service struct {
	repo  store.ProductStore
	log   zerolog.Logger
	locks recordLocks
}

func New(repo store.ProductStore, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		locks: recordLocks{
			byID: make(map[string]*sync.Mutex),
		},
	}
}

type recordLocks struct {
	mu   sync.Mutex
	byID map[string]*sync.Mutex
}

func (l *recordLocks) of(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.byID[id]
	if !ok {
		lock = &sync.Mutex{}
		l.byID[id] = lock
	}
	return lock
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.SKU = strings.TrimSpace(req.SKU)

	if req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.Price.IsNegative() || req.Quantity < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		ID:          req.ID,
		Name:        req.Name,
		SKU:         req.SKU,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusForQuantity(req.Quantity),
		Sales:       []domain.Sale{},
		Stats:       domain.Stats{Revenue: decimal.Zero},
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.SKU == "" {
		product.SKU = xid.New("SKU")
	}

	if _, err := s.repo.GetProduct(ctx, product.ID); err == nil {
		return domain.Product{}, fmt.Errorf("product %s already exists: %w", product.ID, store.ErrValidation)
	}

	saved, err := s.repo.PutProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.log.Info().Str("product_id", saved.ID).Str("name", saved.Name).Int("quantity", saved.Quantity).Msg("product created")
	return *saved, nil
}

// UpdateProduct merges the provided scalar fields onto the stored record.
// The sales history and cached stats are never touched here: a payload
// lacking them must not reset them.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, store.ErrValidation
	}

	lock := s.locks.of(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.SKU = sku
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Category = category
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Product{}, store.ErrValidation
		}
		updated.Price = *req.Price
	}
	if req.Quantity != nil {
		updated.Quantity = *req.Quantity
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	switch {
	case req.Status != nil:
		updated.Status = *req.Status
	case req.Quantity != nil && updated.Status != domain.StatusDiscontinued:
		updated.Status = domain.StatusForQuantity(updated.Quantity)
	}

	saved, err := s.repo.PutProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

// DeleteProduct removes the record permanently, its embedded sales with
// it. There is no soft delete: history of deleted products only survives
// through the reconciliation engine's legacy placeholders.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return store.ErrValidation
	}

	lock := s.locks.of(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// RecordSale appends a sale to the product, folds it into the cached
// stats, and decrements stock, persisting all of it as one record write.
// Validation happens before any mutation so a rejected sale leaves the
// store untouched.
//
// Overselling is allowed: the quantity may go negative, which reads as a
// backorder. Callers wanting a hard stock check enforce it before calling.
func (s *Service) RecordSale(ctx context.Context, productID string, req domain.SaleRequest) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, store.ErrValidation
	}
	if req.Quantity <= 0 {
		return domain.Product{}, fmt.Errorf("quantity must be positive: %w", store.ErrValidation)
	}
	if req.UnitPrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("unit price must not be negative: %w", store.ErrValidation)
	}
	date, err := normalizeSaleDate(req.Date)
	if err != nil {
		return domain.Product{}, err
	}

	lock := s.locks.of(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	sale := domain.Sale{
		ID:          xid.New("sale"),
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Date:        date,
	}

	updated := *product
	updated.Sales = append(append([]domain.Sale{}, product.Sales...), sale)
	updated.Stats = stats.Apply(product.Stats, sale)
	updated.Quantity = product.Quantity - sale.Quantity
	if updated.Status != domain.StatusDiscontinued {
		updated.Status = domain.StatusForQuantity(updated.Quantity)
	}

	saved, err := s.repo.PutProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	if saved.Quantity < 0 {
		s.log.Warn().Str("product_id", saved.ID).Int("quantity", saved.Quantity).Msg("stock driven negative by sale (backorder)")
	}
	s.log.Info().Str("product_id", saved.ID).Str("sale_id", sale.ID).Int("quantity", sale.Quantity).Msg("sale recorded")
	return *saved, nil
}

// Dashboard assembles the read-only derived view: global aggregates, the
// best sellers, and the most recent sales across the whole catalog.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.DashboardView{}, err
	}

	view := domain.DashboardView{
		Stats:       stats.Global(products),
		TopProducts: make([]domain.Product, 0, topProductsLimit),
		RecentSales: make([]domain.Sale, 0, recentSalesLimit),
	}

	ranked := make([]domain.Product, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Stats.TotalSales > ranked[j].Stats.TotalSales
	})
	for _, p := range ranked {
		if len(view.TopProducts) == topProductsLimit {
			break
		}
		if p.Stats.TotalSales == 0 {
			continue
		}
		view.TopProducts = append(view.TopProducts, p)
	}

	for _, p := range products {
		view.RecentSales = append(view.RecentSales, p.Sales...)
	}
	sort.SliceStable(view.RecentSales, func(i, j int) bool {
		if view.RecentSales[i].Date == view.RecentSales[j].Date {
			return view.RecentSales[i].ID > view.RecentSales[j].ID
		}
		return view.RecentSales[i].Date > view.RecentSales[j].Date
	})
	if len(view.RecentSales) > recentSalesLimit {
		view.RecentSales = view.RecentSales[:recentSalesLimit]
	}

	return view, nil
}

// normalizeSaleDate accepts RFC 3339 timestamps or plain dates; an empty
// date defaults to now.
func normalizeSaleDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC().Format(time.RFC3339), nil
	}
	if _, err := time.Parse(time.RFC3339, raw); err == nil {
		return raw, nil
	}
	if _, err := time.Parse("2006-01-02", raw); err == nil {
		return raw, nil
	}
	return "", fmt.Errorf("malformed sale date %q: %w", raw, store.ErrValidation)
}
