package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"foodDeliveryMarketplace/models"
)

const orderColumns = `id, buyer_id, total_amount, payment_method, payment, razorpay_order_id, payment_id, address_text, address_lat, address_lng, created_at`

const shopOrderColumns = `so.id, so.order_id, so.shop_id, so.owner_id, so.items, so.subtotal, so.status, so.assigned_agent_id, so.delivery_otp, so.otp_expires_at, so.delivered_at, so.updated_at`

// GetByID fetches an order with its sub-orders.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// GetByShopOrderID fetches the order that contains the given sub-order.
func (r *OrderRepository) GetByShopOrderID(ctx context.Context, shopOrderID string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = (SELECT order_id FROM shop_orders WHERE id = ?)`, shopOrderID)
}

func (r *OrderRepository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	if razorpayOrderID == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE razorpay_order_id = ?`, razorpayOrderID)
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	return r.loadOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = ? ORDER BY created_at DESC, id DESC`, buyerID)
}

// ListByOwner returns every order with a sub-order of the owner's shop, newest first.
// Sub-orders of other shops are included; callers project them away.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Order, error) {
	return r.loadOrders(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE id IN (SELECT order_id FROM shop_orders WHERE owner_id = ?)
ORDER BY created_at DESC, id DESC`, ownerID)
}

// ListByAgent returns every order with a sub-order assigned to the agent, newest first.
func (r *OrderRepository) ListByAgent(ctx context.Context, agentID string) ([]*models.Order, error) {
	return r.loadOrders(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE id IN (SELECT order_id FROM shop_orders WHERE assigned_agent_id = ?)
ORDER BY created_at DESC, id DESC`, agentID)
}

// ListStaleOTP returns up to limit sub-orders out for delivery whose code is missing or
// expired at now, in sub-order id order starting after afterID.
func (r *OrderRepository) ListStaleOTP(ctx context.Context, now time.Time, afterID string, limit int) ([]StaleShopOrder, error) {
	if limit <= 0 {
		limit = 500
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+shopOrderColumns+`, o.buyer_id
FROM shop_orders so
JOIN orders o ON o.id = so.order_id
WHERE so.status = ?
  AND (so.delivery_otp IS NULL OR so.otp_expires_at IS NULL OR so.otp_expires_at <= ?)
  AND so.id > ?
ORDER BY so.id ASC
LIMIT ?`, string(models.StatusOutOfDelivery), toMillis(now), afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StaleShopOrder
	for rows.Next() {
		var buyerID string
		so, err := scanShopOrder(rows, &buyerID)
		if err != nil {
			return nil, err
		}
		out = append(out, StaleShopOrder{OrderID: so.OrderID, BuyerID: buyerID, ShopOrder: *so})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	list, err := r.loadOrders(ctx, query, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// loadOrders runs an order query and attaches sub-orders. The order rows are fully
// read before the second query so a single connection suffices.
func (r *OrderRepository) loadOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	orders, err := r.scanOrders(ctx, query, args...)
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	ids := make([]any, len(orders))
	byID := make(map[string]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+shopOrderColumns+` FROM shop_orders so WHERE so.order_id IN (`+placeholders(len(ids))+`) ORDER BY so.order_id, so.shop_id`, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		so, err := scanShopOrder(rows)
		if err != nil {
			return nil, err
		}
		if o := byID[so.OrderID]; o != nil {
			o.ShopOrders = append(o.ShopOrders, *so)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) scanOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Order
	for rows.Next() {
		var o models.Order
		var method string
		var created int64
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &method, &o.Payment, &o.RazorpayOrderID, &o.PaymentID,
			&o.DeliveryAddress.Text, &o.DeliveryAddress.Lat, &o.DeliveryAddress.Lng, &created); err != nil {
			return nil, err
		}
		o.PaymentMethod = models.PaymentMethod(method)
		o.CreatedAt = fromMillis(created)
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanShopOrder scans shopOrderColumns followed by any extra destinations.
func scanShopOrder(rows *sql.Rows, extra ...any) (*models.ShopOrder, error) {
	var so models.ShopOrder
	var items, status string
	var agent, code sql.NullString
	var expiry, delivered sql.NullInt64
	var updated int64
	dest := []any{&so.ID, &so.OrderID, &so.ShopID, &so.OwnerID, &items, &so.Subtotal, &status, &agent, &code, &expiry, &delivered, &updated}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &so.Items); err != nil {
		return nil, fmt.Errorf("decode items of shop order %s: %w", so.ID, err)
	}
	so.Status = models.ShopOrderStatus(status)
	so.AssignedAgentID = stringPtr(agent)
	so.DeliveryOTP = stringPtr(code)
	so.OTPExpiresAt = timePtr(expiry)
	so.DeliveredAt = timePtr(delivered)
	so.UpdatedAt = fromMillis(updated)
	return &so, nil
}
