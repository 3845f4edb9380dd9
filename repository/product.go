package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/milosamec/engravape/models"

	"github.com/lib/pq"
)

const productColumns = `id, user_id, name, image, brand, category, description,
	price, count_in_stock, created_at, updated_at`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// FindByIDs returns the products matching ids keyed by id. Unknown ids are
// simply absent from the result.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	products := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// Search returns one page of products whose name contains keyword, case
// insensitively, together with the total match count.
func (r *ProductRepository) Search(ctx context.Context, keyword string, limit, offset int) ([]models.Product, int, error) {
	pattern := "%" + keyword + "%"

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE name ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (id, user_id, name, image, brand, category, description, price, count_in_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.User, p.Name, p.Image, p.Brand, p.Category, p.Description, p.Price, p.CountInStock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE products
		SET name = $2, image = $3, brand = $4, category = $5, description = $6,
			price = $7, count_in_stock = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Image, p.Brand, p.Category, p.Description, p.Price, p.CountInStock,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	ok, err := applied(res)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}

func scanProduct(s scanner) (*models.Product, error) {
	var p models.Product
	err := s.Scan(&p.ID, &p.User, &p.Name, &p.Image, &p.Brand, &p.Category, &p.Description,
		&p.Price, &p.CountInStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
