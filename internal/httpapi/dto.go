package httpapi

import (
	"github.com/shopspring/decimal"

	"foodDeliveryMarketplace/internal/orders"
	"foodDeliveryMarketplace/models"
)

type signUpRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Mobile   string `json:"mobile" validate:"omitempty,max=20"`
	Role     string `json:"role" validate:"omitempty,oneof=user owner deliveryBoy"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type availabilityRequest struct {
	Available *bool `json:"isAvailable" validate:"required"`
}

type shopRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	City    string  `json:"city" validate:"required,max=80"`
	Address string  `json:"address" validate:"max=250"`
	Lat     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type itemRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Category string          `json:"category" validate:"max=60"`
	FoodType string          `json:"foodType" validate:"max=30"`
	Price    decimal.Decimal `json:"price"`
}

func (req itemRequest) input() orders.ItemInput {
	return orders.ItemInput{Name: req.Name, Category: req.Category, FoodType: req.FoodType, Price: req.Price}
}

type rateItemRequest struct {
	ItemID string `json:"itemId" validate:"required"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

type cartLine struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

type placeOrderRequest struct {
	PaymentMethod   string                 `json:"paymentMethod" validate:"required,oneof=cod online"`
	DeliveryAddress models.DeliveryAddress `json:"deliveryAddress"`
	CartItems       []cartLine             `json:"cartItems" validate:"required,min=1,dive"`
}

func (r placeOrderRequest) input() orders.PlaceOrderInput {
	in := orders.PlaceOrderInput{
		PaymentMethod:   models.PaymentMethod(r.PaymentMethod),
		DeliveryAddress: r.DeliveryAddress,
	}
	for _, l := range r.CartItems {
		in.Items = append(in.Items, orders.CartLine{ItemID: l.ID, Quantity: l.Quantity})
	}
	return in
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type assignRequest struct {
	ShopOrderID   string `json:"shopOrderId" validate:"required"`
	DeliveryBoyID string `json:"deliveryBoyId" validate:"required"`
}

type verifyOTPRequest struct {
	ShopOrderID string `json:"shopOrderId" validate:"required"`
	OTP         string `json:"otp" validate:"required,numeric,min=4,max=6"`
}

type placeOrderResponse struct {
	Order           *models.Order `json:"order"`
	RazorpayOrderID string        `json:"razorpayOrderId,omitempty"`
	RazorpayKeyID   string        `json:"razorpayKeyId,omitempty"`
}
