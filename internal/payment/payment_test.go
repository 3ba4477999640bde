package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	got  map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (f *fakeOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	f.got = data
	return f.resp, f.err
}

func TestRazorpay_CreateOrderConvertsToPaise(t *testing.T) {
	fake := &fakeOrders{resp: map[string]interface{}{"id": "order_abc"}}
	r := &Razorpay{orders: fake, secret: "s"}

	id, err := r.CreateOrder(context.Background(), decimal.RequireFromString("249.99"), "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", id)
	assert.Equal(t, int64(24999), fake.got["amount"])
	assert.Equal(t, "INR", fake.got["currency"])
	assert.Equal(t, "rcpt_1", fake.got["receipt"])
}

func TestRazorpay_CreateOrderErrors(t *testing.T) {
	r := &Razorpay{orders: &fakeOrders{err: errors.New("bad request")}, secret: "s"}
	_, err := r.CreateOrder(context.Background(), decimal.NewFromInt(10), "INR", "x")
	require.Error(t, err)

	r = &Razorpay{orders: &fakeOrders{resp: map[string]interface{}{}}, secret: "s"}
	_, err = r.CreateOrder(context.Background(), decimal.NewFromInt(10), "INR", "x")
	require.Error(t, err)

	_, err = r.CreateOrder(context.Background(), decimal.Zero, "INR", "x")
	require.Error(t, err)
}

func TestRazorpay_VerifySignature(t *testing.T) {
	r := &Razorpay{secret: "topsecret"}
	sig := Sign("topsecret", "order_1", "pay_1")
	assert.True(t, r.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, r.VerifySignature("order_1", "pay_2", sig))
	assert.False(t, r.VerifySignature("order_1", "pay_1", Sign("other", "order_1", "pay_1")))
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.CreateOrder(context.Background(), decimal.NewFromInt(1), "INR", "r")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, Disabled{}.VerifySignature("a", "b", "c"))
}
