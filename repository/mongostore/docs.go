package mongostore

import (
	"time"

	"github.com/shopspring/decimal"

	"foodDeliveryMarketplace/models"
)

// Money is stored as its decimal string to keep exact values.

type userDoc struct {
	ID           string    `bson:"_id"`
	FullName     string    `bson:"fullName"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Mobile       string    `bson:"mobile"`
	Role         string    `bson:"role"`
	Lat          float64   `bson:"lat"`
	Lng          float64   `bson:"lng"`
	IsAvailable  bool      `bson:"isAvailable"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID: u.ID, FullName: u.FullName, Email: u.Email, PasswordHash: u.PasswordHash, Mobile: u.Mobile,
		Role: string(u.Role), Lat: u.Lat, Lng: u.Lng, IsAvailable: u.IsAvailable, CreatedAt: u.CreatedAt,
	}
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID: d.ID, FullName: d.FullName, Email: d.Email, PasswordHash: d.PasswordHash, Mobile: d.Mobile,
		Role: models.Role(d.Role), Lat: d.Lat, Lng: d.Lng, IsAvailable: d.IsAvailable, CreatedAt: d.CreatedAt.UTC(),
	}
}

type shopDoc struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"ownerId"`
	Name      string    `bson:"name"`
	City      string    `bson:"city"`
	Address   string    `bson:"address"`
	Lat       float64   `bson:"lat"`
	Lng       float64   `bson:"lng"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d shopDoc) model() *models.Shop {
	return &models.Shop{
		ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, City: d.City, Address: d.Address,
		Lat: d.Lat, Lng: d.Lng, CreatedAt: d.CreatedAt.UTC(),
	}
}

type itemDoc struct {
	ID        string    `bson:"_id"`
	ShopID    string    `bson:"shopId"`
	Name      string    `bson:"name"`
	Category  string    `bson:"category"`
	FoodType  string    `bson:"foodType"`
	Price     string    `bson:"price"`
	Rating    ratingDoc `bson:"rating"`
	CreatedAt time.Time `bson:"createdAt"`
}

// ratingDoc keeps the star total rather than the mean so increments stay atomic.
type ratingDoc struct {
	Count int `bson:"count"`
	Total int `bson:"total"`
}

func toItemDoc(it *models.Item) itemDoc {
	return itemDoc{
		ID: it.ID, ShopID: it.ShopID, Name: it.Name, Category: it.Category, FoodType: it.FoodType,
		Price: it.Price.String(), CreatedAt: it.CreatedAt,
	}
}

func (d itemDoc) model() *models.Item {
	return &models.Item{
		ID: d.ID, ShopID: d.ShopID, Name: d.Name, Category: d.Category, FoodType: d.FoodType,
		Price: parseMoney(d.Price), Rating: models.NewItemRating(d.Rating.Count, d.Rating.Total),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type lineItemDoc struct {
	ItemID   string `bson:"itemId"`
	Name     string `bson:"name"`
	Price    string `bson:"price"`
	Quantity int    `bson:"quantity"`
}

type shopOrderDoc struct {
	ID              string        `bson:"id"`
	ShopID          string        `bson:"shopId"`
	OwnerID         string        `bson:"ownerId"`
	Items           []lineItemDoc `bson:"items"`
	Subtotal        string        `bson:"subtotal"`
	Status          string        `bson:"status"`
	AssignedAgentID *string       `bson:"assignedAgentId"`
	DeliveryOTP     *string       `bson:"deliveryOtp"`
	OTPExpiresAt    *time.Time    `bson:"otpExpiresAt"`
	DeliveredAt     *time.Time    `bson:"deliveredAt"`
	UpdatedAt       time.Time     `bson:"updatedAt"`
}

type addressDoc struct {
	Text string  `bson:"text"`
	Lat  float64 `bson:"lat"`
	Lng  float64 `bson:"lng"`
}

type orderDoc struct {
	ID              string         `bson:"_id"`
	BuyerID         string         `bson:"buyerId"`
	ShopOrders      []shopOrderDoc `bson:"shopOrders"`
	TotalAmount     string         `bson:"totalAmount"`
	PaymentMethod   string         `bson:"paymentMethod"`
	Payment         bool           `bson:"payment"`
	RazorpayOrderID string         `bson:"razorpayOrderId"`
	PaymentID       string         `bson:"paymentId"`
	DeliveryAddress addressDoc     `bson:"deliveryAddress"`
	CreatedAt       time.Time      `bson:"createdAt"`
}

func toShopOrderDoc(so *models.ShopOrder) shopOrderDoc {
	items := make([]lineItemDoc, 0, len(so.Items))
	for _, it := range so.Items {
		items = append(items, lineItemDoc{ItemID: it.ItemID, Name: it.Name, Price: it.Price.String(), Quantity: it.Quantity})
	}
	return shopOrderDoc{
		ID: so.ID, ShopID: so.ShopID, OwnerID: so.OwnerID, Items: items, Subtotal: so.Subtotal.String(),
		Status: string(so.Status), AssignedAgentID: so.AssignedAgentID, DeliveryOTP: so.DeliveryOTP,
		OTPExpiresAt: so.OTPExpiresAt, DeliveredAt: so.DeliveredAt, UpdatedAt: so.UpdatedAt,
	}
}

func (d shopOrderDoc) model(orderID string) models.ShopOrder {
	items := make([]models.ShopOrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, models.ShopOrderItem{ItemID: it.ItemID, Name: it.Name, Price: parseMoney(it.Price), Quantity: it.Quantity})
	}
	return models.ShopOrder{
		ID: d.ID, OrderID: orderID, ShopID: d.ShopID, OwnerID: d.OwnerID, Items: items,
		Subtotal: parseMoney(d.Subtotal), Status: models.ShopOrderStatus(d.Status),
		AssignedAgentID: d.AssignedAgentID, DeliveryOTP: d.DeliveryOTP,
		OTPExpiresAt: utcPtr(d.OTPExpiresAt), DeliveredAt: utcPtr(d.DeliveredAt), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (d orderDoc) model() *models.Order {
	o := &models.Order{
		ID: d.ID, BuyerID: d.BuyerID, TotalAmount: parseMoney(d.TotalAmount),
		PaymentMethod: models.PaymentMethod(d.PaymentMethod), Payment: d.Payment,
		RazorpayOrderID: d.RazorpayOrderID, PaymentID: d.PaymentID,
		DeliveryAddress: models.DeliveryAddress{Text: d.DeliveryAddress.Text, Lat: d.DeliveryAddress.Lat, Lng: d.DeliveryAddress.Lng},
		CreatedAt:       d.CreatedAt.UTC(),
	}
	for _, so := range d.ShopOrders {
		o.ShopOrders = append(o.ShopOrders, so.model(d.ID))
	}
	return o
}

func parseMoney(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// truncate drops sub-millisecond precision, which BSON datetimes cannot hold.
func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
