package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShopOrderStatus represents the progress of one shop's part of an order.
type ShopOrderStatus string

const (
	StatusPending       ShopOrderStatus = "pending"
	StatusPreparing     ShopOrderStatus = "preparing"
	StatusOutOfDelivery ShopOrderStatus = "out_of_delivery"
	StatusDelivered     ShopOrderStatus = "delivered"
	StatusCancelled     ShopOrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ShopOrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusOutOfDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s ShopOrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod is how the buyer pays for an order.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

// DeliveryAddress is the free-text drop-off address plus its coordinates.
type DeliveryAddress struct {
	Text string  `json:"text"`
	Lat  float64 `json:"latitude"`
	Lng  float64 `json:"longitude"`
}

// ShopOrderItem is a line of a sub-order. Name and Price are snapshots taken at checkout.
type ShopOrderItem struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OTP is a delivery confirmation code and its expiry.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// ShopOrder is the part of an order belonging to one shop; it is the unit of status tracking.
// DeliveryOTP is non-nil only while Status is out_of_delivery.
type ShopOrder struct {
	ID              string          `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"orderId"`
	ShopID          string          `db:"shop_id" json:"shopId"`
	OwnerID         string          `db:"owner_id" json:"ownerId"`
	Items           []ShopOrderItem `db:"items" json:"shopOrderItems"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	Status          ShopOrderStatus `db:"status" json:"status"`
	AssignedAgentID *string         `db:"assigned_agent_id" json:"assignedDeliveryBoy,omitempty"`
	DeliveryOTP     *string         `db:"delivery_otp" json:"deliveryOtp,omitempty"`
	OTPExpiresAt    *time.Time      `db:"otp_expires_at" json:"otpExpires,omitempty"`
	DeliveredAt     *time.Time      `db:"delivered_at" json:"deliveredAt,omitempty"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// IsAssignedTo reports whether agentID holds the delivery of this sub-order.
func (s *ShopOrder) IsAssignedTo(agentID string) bool {
	return s.AssignedAgentID != nil && *s.AssignedAgentID == agentID
}

// WithoutOTP returns a copy with the delivery code removed, for viewers other than the buyer.
func (s ShopOrder) WithoutOTP() ShopOrder {
	s.DeliveryOTP = nil
	return s
}

// Order is a buyer's checkout, fanned out into one ShopOrder per shop.
type Order struct {
	ID              string          `db:"id" json:"id"`
	BuyerID         string          `db:"buyer_id" json:"userId"`
	ShopOrders      []ShopOrder     `json:"shopOrders"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Payment         bool            `db:"payment" json:"payment"`
	RazorpayOrderID string          `db:"razorpay_order_id" json:"razorpayOrderId,omitempty"`
	PaymentID       string          `db:"payment_id" json:"paymentId,omitempty"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// ShopOrderForShop returns the sub-order of the given shop, or nil.
func (o *Order) ShopOrderForShop(shopID string) *ShopOrder {
	for i := range o.ShopOrders {
		if o.ShopOrders[i].ShopID == shopID {
			return &o.ShopOrders[i]
		}
	}
	return nil
}

// ShopOrderByID returns the sub-order with the given id, or nil.
func (o *Order) ShopOrderByID(id string) *ShopOrder {
	for i := range o.ShopOrders {
		if o.ShopOrders[i].ID == id {
			return &o.ShopOrders[i]
		}
	}
	return nil
}

// HasOwner reports whether ownerID owns the shop of any sub-order.
func (o *Order) HasOwner(ownerID string) bool {
	for i := range o.ShopOrders {
		if o.ShopOrders[i].OwnerID == ownerID {
			return true
		}
	}
	return false
}

// HasAgent reports whether agentID is assigned to any sub-order.
func (o *Order) HasAgent(agentID string) bool {
	for i := range o.ShopOrders {
		if o.ShopOrders[i].IsAssignedTo(agentID) {
			return true
		}
	}
	return false
}
