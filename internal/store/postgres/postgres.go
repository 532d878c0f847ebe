package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"stocktrack/backend/internal/domain"
	"stocktrack/backend/internal/store"
)

// Store keeps one row per product; the embedded sales list and cached
// stats live in JSONB columns so a product mutation is a single-row
// write, never a multi-table transaction.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			sku         TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			price       NUMERIC(20,4) NOT NULL DEFAULT 0,
			quantity    INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT '',
			sales       JSONB NOT NULL DEFAULT '[]',
			stats       JSONB NOT NULL DEFAULT '{"totalSales":0,"revenue":"0"}',
			position    BIGSERIAL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure products table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, sku, category, price, quantity, description, status, sales, stats
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, category, price, quantity, description, status, sales, stats
		FROM products
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) PutProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		return nil, store.ErrValidation
	}

	sales := product.Sales
	if sales == nil {
		sales = []domain.Sale{}
	}
	salesJSON, err := json.Marshal(sales)
	if err != nil {
		return nil, fmt.Errorf("encode sales: %w", err)
	}
	statsJSON, err := json.Marshal(product.Stats)
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, category, price, quantity, description, status, sales, stats, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sku = EXCLUDED.sku,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			sales = EXCLUDED.sales,
			stats = EXCLUDED.stats,
			updated_at = now()
	`, product.ID, product.Name, product.SKU, product.Category, product.Price.String(),
		product.Quantity, product.Description, product.Status, salesJSON, statsJSON)
	if err != nil {
		return nil, err
	}

	saved := product
	saved.Sales = sales
	return &saved, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product   domain.Product
		price     string
		salesJSON []byte
		statsJSON []byte
	)
	err := row.Scan(&product.ID, &product.Name, &product.SKU, &product.Category,
		&price, &product.Quantity, &product.Description, &product.Status,
		&salesJSON, &statsJSON)
	if err != nil {
		return nil, err
	}

	product.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price for %s: %w", product.ID, err)
	}
	if err := json.Unmarshal(salesJSON, &product.Sales); err != nil {
		return nil, fmt.Errorf("decode sales for %s: %w", product.ID, err)
	}
	if err := json.Unmarshal(statsJSON, &product.Stats); err != nil {
		return nil, fmt.Errorf("decode stats for %s: %w", product.ID, err)
	}
	if product.Sales == nil {
		product.Sales = []domain.Sale{}
	}
	return &product, nil
}
