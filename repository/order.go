package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/milosamec/engravape/models"

	"github.com/lib/pq"
)

const (
	orderColumns = `o.id, o.user_id, u.name, u.email, ` + orderFields
	// admin listings carry the owner's id and name only
	listColumns = `o.id, o.user_id, u.name, '' AS email, ` + orderFields
)

const orderFields = `o.address, o.city, o.postal_code, o.country, o.payment_method,
	o.items_price, o.shipping_price, o.tax_price, o.total_price,
	o.is_paid, o.paid_at, o.payment_id, o.payment_status, o.payment_update_time, o.payment_email,
	o.is_delivered, o.delivered_at, o.created_at, o.updated_at`

// OrderRepository stores orders and their item snapshots in PostgreSQL.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create writes the order row and its items in one transaction and fills in
// the store-maintained timestamps.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, user_id, address, city, postal_code, country, payment_method,
			items_price, shipping_price, tax_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		order.ID, order.User.ID,
		order.ShippingAddress.Address, order.ShippingAddress.City,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
		order.PaymentMethod,
		order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range order.OrderItems {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, name, image, price, qty)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, i, item.Product, item.Name, item.Image, item.Price, item.Qty,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// FindAll returns every order, newest first.
func (r *OrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx,
		`SELECT `+listColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`)
}

// FindByUser returns the orders owned by userID, newest first.
func (r *OrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
}

// MarkPaid sets the paid flag, timestamp and receipt in one statement. It
// reports false when the order was already paid (or does not exist), and
// models.ErrConflict when the receipt is already recorded on another order.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, result models.PaymentResult, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		SET is_paid = TRUE, paid_at = $2, payment_id = $3, payment_status = $4,
			payment_update_time = $5, payment_email = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_paid = FALSE`,
		id, at, result.ID, result.Status, result.UpdateTime, result.EmailAddress,
	)
	if isUniqueViolation(err) {
		return false, fmt.Errorf("%w: payment %s is already recorded on another order", models.ErrConflict, result.ID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	return applied(res)
}

// MarkDelivered sets the delivered flag only on paid, undelivered orders.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		SET is_delivered = TRUE, delivered_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_paid = TRUE AND is_delivered = FALSE`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark order delivered: %w", err)
	}
	return applied(res)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fetches the items of all given orders in a single query.
func (r *OrderRepository) loadItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].OrderItems = []models.OrderItem{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, name, image, price, qty
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.OrderItem
		if err := rows.Scan(&orderID, &item.Product, &item.Name, &item.Image, &item.Price, &item.Qty); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].OrderItems = append(orders[i].OrderItems, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate order items: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	var (
		o                                    models.Order
		paidAt, deliveredAt                  sql.NullTime
		payID, payStatus, payUpdate, payMail sql.NullString
	)
	err := s.Scan(
		&o.ID, &o.User.ID, &o.User.Name, &o.User.Email,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &paidAt, &payID, &payStatus, &payUpdate, &payMail,
		&o.IsDelivered, &deliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if payID.Valid {
		o.PaymentResult = &models.PaymentResult{
			ID:           payID.String,
			Status:       payStatus.String,
			UpdateTime:   payUpdate.String,
			EmailAddress: payMail.String,
		}
	}
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	return &o, nil
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
