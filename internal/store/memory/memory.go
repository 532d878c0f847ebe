package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/domain"
	"stocktrack/backend/internal/store"
)

// Store keeps product records in memory, preserving insertion order for
// listings. All records are deep-copied on the way in and out so callers
// can never mutate shared state behind the lock.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	order    []string
}

func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
	}
}

// NewSeeded returns a store preloaded with a small demo catalog.
func NewSeeded() *Store {
	s := New()
	seed := []domain.Product{
		{ID: "prod-seed-1", Name: "Tondeuse Pro", SKU: "SKU-1001", Category: "Jardin", Price: decimal.NewFromInt(299), Quantity: 14, Description: "Tondeuse thermique autotractée"},
		{ID: "prod-seed-2", Name: "Casque Bluetooth", SKU: "SKU-1002", Category: "Élec", Price: decimal.RequireFromString("59.90"), Quantity: 32, Description: "Casque sans fil à réduction de bruit"},
		{ID: "prod-seed-3", Name: "Chaise Ergonomique", SKU: "SKU-1003", Category: "Maison", Price: decimal.RequireFromString("149.50"), Quantity: 8, Description: "Chaise de bureau réglable"},
		{ID: "prod-seed-4", Name: "Cric Hydraulique", SKU: "SKU-1004", Category: "Auto", Price: decimal.NewFromInt(45), Quantity: 21, Description: "Cric 2 tonnes"},
		{ID: "prod-seed-5", Name: "Ballon de Foot", SKU: "SKU-1005", Category: "Sport", Price: decimal.RequireFromString("24.99"), Quantity: 0, Description: "Taille 5, cousu main"},
	}
	for _, p := range seed {
		p.Status = domain.StatusForQuantity(p.Quantity)
		p.Sales = []domain.Sale{}
		p.Stats = domain.Stats{Revenue: decimal.Zero}
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneProduct(product)
	return &copied, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.products[id]; ok {
			products = append(products, cloneProduct(p))
		}
	}
	return products, nil
}

func (s *Store) PutProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		s.order = append(s.order, product.ID)
	}
	s.products[product.ID] = cloneProduct(product)
	saved := cloneProduct(product)
	return &saved, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	s.order = slices.DeleteFunc(s.order, func(existing string) bool {
		return existing == id
	})
	return nil
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	sales := make([]domain.Sale, len(src.Sales))
	copy(sales, src.Sales)
	dup.Sales = sales
	return dup
}
