package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lojapijamas/storefront/internal/database"
	"github.com/lojapijamas/storefront/internal/models"
)

const productColumns = `id, name, price, category, image, weight, height, width, length, created_at`

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{pool: db.Pool}
}

func scanProductRow(row rowScanner) (*models.Product, error) {
	var p models.Product

	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Category, &p.Image,
		&p.Weight, &p.Height, &p.Width, &p.Length, &p.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func scanProductRows(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()

	products := make([]*models.Product, 0)

	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (name, price, category, image, weight, height, width, length)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8)
		RETURNING ` + productColumns

	return scanProductRow(r.pool.QueryRow(ctx, query,
		p.Name, p.Price, p.Category, p.Image,
		p.Weight, p.Height, p.Width, p.Length,
	))
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProductRow(r.pool.QueryRow(ctx, query, id))
}

// List returns every product, or only those in category when it is not empty
func (r *ProductRepository) List(ctx context.Context, category string) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE $1::text = '' OR category = LOWER($1::text)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return scanProductRows(rows)
}

// Delete removes the product and returns it so the caller can clean up its image
func (r *ProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	query := `DELETE FROM products WHERE id = $1 RETURNING ` + productColumns
	return scanProductRow(r.pool.QueryRow(ctx, query, id))
}
