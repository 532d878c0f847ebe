// Package file backs the product store with a single JSON document on
// disk, the same shape the migration engine emits: {"products": [...]}.
// Every mutation rewrites the document atomically (temp file + rename),
// so a crash mid-write never leaves a torn store behind.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"stocktrack/backend/internal/domain"
	"stocktrack/backend/internal/store"
)

type document struct {
	Products []domain.Product `json:"products"`
}

type Store struct {
	mu       sync.RWMutex
	path     string
	products map[string]domain.Product
	order    []string
}

// New opens the JSON document at path, creating an empty store when the
// file does not exist yet. A present but unparseable file is an error:
// silently starting empty would shadow the real data.
func New(path string) (*Store, error) {
	s := &Store{
		path:     path,
		products: make(map[string]domain.Product),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	for _, p := range doc.Products {
		if _, exists := s.products[p.ID]; exists {
			continue
		}
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s, nil
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

	return s.snapshotLocked(), nil
}

func (s *Store) PutProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.products[product.ID]
	if !exists {
		s.order = append(s.order, product.ID)
	}
	previous := s.products[product.ID]
	s.products[product.ID] = cloneProduct(product)

	if err := s.persistLocked(); err != nil {
		// Roll the in-memory state back so it keeps matching the file.
		if exists {
			s.products[product.ID] = previous
		} else {
			delete(s.products, product.ID)
			s.order = s.order[:len(s.order)-1]
		}
		return nil, err
	}

	saved := cloneProduct(product)
	return &saved, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	idx := slices.Index(s.order, id)
	delete(s.products, id)
	s.order = slices.DeleteFunc(s.order, func(existing string) bool {
		return existing == id
	})

	if err := s.persistLocked(); err != nil {
		s.products[id] = previous
		if idx >= 0 {
			s.order = slices.Insert(s.order, idx, id)
		}
		return err
	}
	return nil
}

func (s *Store) snapshotLocked() []domain.Product {
	products := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.products[id]; ok {
			products = append(products, cloneProduct(p))
		}
	}
	return products
}

func (s *Store) persistLocked() error {
	doc := document{Products: s.snapshotLocked()}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".stocktrack-*.json")
	if err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	sales := make([]domain.Sale, len(src.Sales))
	copy(sales, src.Sales)
	dup.Sales = sales
	return dup
}
