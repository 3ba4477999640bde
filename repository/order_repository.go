package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"foodDeliveryMarketplace/models"
)

// OrderRepository is the core repository for orders and their sub-orders.
// It handles creation and the conditional sub-order mutations; queries live in order_query.go.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order with all of its sub-orders in one transaction.
// Missing ids and timestamps are assigned; sub-orders default to 'pending'.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if len(o.ShopOrders) == 0 {
		return nil, errors.New("order has no shop orders")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	id := o.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	created := o.CreatedAt
	if created.IsZero() {
		created = now
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO orders (id, buyer_id, total_amount, payment_method, payment, razorpay_order_id, payment_id, address_text, address_lat, address_lng, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		id, o.BuyerID, o.TotalAmount.String(), string(o.PaymentMethod), o.Payment, o.RazorpayOrderID, o.PaymentID,
		o.DeliveryAddress.Text, o.DeliveryAddress.Lat, o.DeliveryAddress.Lng, toMillis(created))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	for _, so := range o.ShopOrders {
		soID := so.ID
		if soID == "" {
			soID = uuid.NewString()
		}
		status := so.Status
		if status == "" {
			status = models.StatusPending
		}
		items, err := json.Marshal(so.Items)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("encode shop order items: %w", err)
		}
		var code sql.NullString
		var expiry sql.NullInt64
		if status == models.StatusOutOfDelivery {
			code = nullString(so.DeliveryOTP)
			expiry = nullMillis(so.OTPExpiresAt)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO shop_orders (id, order_id, shop_id, owner_id, items, subtotal, status, assigned_agent_id, delivery_otp, otp_expires_at, delivered_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			soID, id, so.ShopID, so.OwnerID, string(items), so.Subtotal.String(), string(status),
			nullString(so.AssignedAgentID), code, expiry, nullMillis(so.DeliveredAt), toMillis(now))
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	o2, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o2 == nil {
		return nil, fmt.Errorf("created order not found: id=%s", id)
	}
	return o2, nil
}

// Delete removes an order; its sub-orders go with it.
func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkPaid records a captured online payment. It applies only once.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, paymentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET payment = 1, payment_id = ? WHERE id = ? AND payment = 0`, paymentID, id)
	return applied(res, err)
}

// TransitionStatus moves a sub-order from one status to another if it is still in from.
// The delivery code is replaced by upd.OTP (cleared when nil) in the same statement.
func (r *OrderRepository) TransitionStatus(ctx context.Context, shopOrderID string, from, to models.ShopOrderStatus, upd ShopOrderUpdate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var code sql.NullString
	var expiry sql.NullInt64
	if upd.OTP != nil {
		code = sql.NullString{String: upd.OTP.Code, Valid: true}
		expiry = sql.NullInt64{Int64: toMillis(upd.OTP.ExpiresAt), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE shop_orders
SET status = ?, delivery_otp = ?, otp_expires_at = ?, updated_at = ?
WHERE id = ? AND status = ?`,
		string(to), code, expiry, toMillis(upd.At), shopOrderID, string(from))
	return applied(res, err)
}

// AssignAgent sets the delivery agent of a sub-order that is out for delivery and unassigned.
func (r *OrderRepository) AssignAgent(ctx context.Context, shopOrderID, agentID string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE shop_orders
SET assigned_agent_id = ?, updated_at = ?
WHERE id = ? AND assigned_agent_id IS NULL AND status = ?`,
		agentID, toMillis(at), shopOrderID, string(models.StatusOutOfDelivery))
	return applied(res, err)
}

// MarkDelivered completes a sub-order whose stored code equals code and has not expired at at.
func (r *OrderRepository) MarkDelivered(ctx context.Context, shopOrderID, code string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ms := toMillis(at)
	res, err := r.db.ExecContext(ctx, `
UPDATE shop_orders
SET status = ?, delivery_otp = NULL, otp_expires_at = NULL, delivered_at = ?, updated_at = ?
WHERE id = ? AND status = ? AND delivery_otp = ? AND otp_expires_at > ?`,
		string(models.StatusDelivered), ms, ms, shopOrderID, string(models.StatusOutOfDelivery), code, ms)
	return applied(res, err)
}

// ReplaceOTP swaps the delivery code only if the stored code and expiry still equal the old ones.
func (r *OrderRepository) ReplaceOTP(ctx context.Context, shopOrderID string, oldCode *string, oldExpiry *time.Time, next models.OTP, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE shop_orders
SET delivery_otp = ?, otp_expires_at = ?, updated_at = ?
WHERE id = ? AND status = ? AND delivery_otp IS ? AND otp_expires_at IS ?`,
		next.Code, toMillis(next.ExpiresAt), toMillis(at),
		shopOrderID, string(models.StatusOutOfDelivery), nullString(oldCode), nullMillis(oldExpiry))
	return applied(res, err)
}

func applied(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
