package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lojapijamas/storefront/internal/database"
	"github.com/lojapijamas/storefront/internal/models"
)

const orderColumns = `id, customer_name, email, product, quantity, total, status, address, payment_id, created_at, updated_at`

// OrderRepository handles order data access
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{pool: db.Pool}
}

func scanOrderRow(row rowScanner) (*models.Order, error) {
	var order models.Order
	var status string

	err := row.Scan(
		&order.ID, &order.CustomerName, &order.Email, &order.Product,
		&order.Quantity, &order.Total, &status, &order.Address,
		&order.PaymentID, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	order.Status = models.OrderStatus(status)
	return &order, nil
}

func scanOrderRows(rows pgx.Rows) ([]*models.Order, error) {
	defer rows.Close()

	orders := make([]*models.Order, 0)

	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	return orders, nil
}

// UpsertByPaymentID inserts the order or, when an order with the same payment
// id exists, overwrites its mutable fields in a single statement. An empty
// email keeps the stored one. created reports whether a new row was inserted.
func (r *OrderRepository) UpsertByPaymentID(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	if order.PaymentID == nil || *order.PaymentID == "" {
		return nil, false, models.NewValidationError("payment id is required")
	}

	query := `
		INSERT INTO orders (customer_name, email, product, quantity, total, status, address, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) WHERE payment_id IS NOT NULL DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			email = COALESCE(NULLIF(EXCLUDED.email, ''), orders.email),
			product = EXCLUDED.product,
			quantity = EXCLUDED.quantity,
			total = EXCLUDED.total,
			status = EXCLUDED.status,
			address = EXCLUDED.address,
			updated_at = NOW()
		RETURNING ` + orderColumns + `, (xmax = 0) AS inserted
	`

	var saved models.Order
	var status string
	var inserted bool

	err := r.pool.QueryRow(ctx, query,
		order.CustomerName, order.Email, order.Product, order.Quantity,
		order.Total, string(order.Status), order.Address, *order.PaymentID,
	).Scan(
		&saved.ID, &saved.CustomerName, &saved.Email, &saved.Product,
		&saved.Quantity, &saved.Total, &status, &saved.Address,
		&saved.PaymentID, &saved.CreatedAt, &saved.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, database.MapPostgresError(err)
	}

	saved.Status = models.OrderStatus(status)
	return &saved, inserted, nil
}

// GetByPaymentID retrieves the order reconciled for a provider payment id
func (r *OrderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`
	return scanOrderRow(r.pool.QueryRow(ctx, query, paymentID))
}

// List returns every order, newest first
func (r *OrderRepository) List(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	return scanOrderRows(rows)
}

// ListByEmail returns the orders placed with the given payer email, newest first
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE LOWER(email) = LOWER($1) ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by email: %w", err)
	}

	return scanOrderRows(rows)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	query := `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + orderColumns

	return scanOrderRow(r.pool.QueryRow(ctx, query, string(status), id))
}
