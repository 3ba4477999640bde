// Package payment talks to the online payment provider.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

// ErrDisabled is returned when online payments are not configured.
var ErrDisabled = errors.New("online payments are not configured")

// Gateway creates provider-side orders and checks payment signatures.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// orderCreator is the part of the razorpay client used here.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay implements Gateway on the Razorpay orders API.
type Razorpay struct {
	orders orderCreator
	secret string
}

func NewRazorpay(keyID, keySecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{orders: client.Order, secret: keySecret}
}

// CreateOrder registers amount (in major units) with Razorpay and returns its order id.
func (r *Razorpay) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("amount must be positive, got %s", amount)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := map[string]interface{}{
		"amount":   amount.Shift(2).Round(0).IntPart(),
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := r.orders.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("create razorpay order: %w", err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return "", errors.New("razorpay order response has no id")
	}
	return id, nil
}

// VerifySignature checks the checkout signature: hex(HMAC-SHA256(secret, orderID|paymentID)).
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Sign(r.secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the signature Razorpay attaches to a successful checkout.
func Sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

// Disabled rejects every online payment.
type Disabled struct{}

func (Disabled) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) VerifySignature(orderID, paymentID, signature string) bool { return false }
