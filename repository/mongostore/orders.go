package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"foodDeliveryMarketplace/models"
	"foodDeliveryMarketplace/repository"
)

// OrderRepository stores orders with their sub-orders embedded in "shopOrders".
type OrderRepository struct {
	c *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{c: db.Collection(ordersCollection)}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if len(o.ShopOrders) == 0 {
		return nil, errors.New("order has no shop orders")
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := truncate(time.Now())
	d := orderDoc{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		TotalAmount:     o.TotalAmount.String(),
		PaymentMethod:   string(o.PaymentMethod),
		Payment:         o.Payment,
		RazorpayOrderID: o.RazorpayOrderID,
		PaymentID:       o.PaymentID,
		DeliveryAddress: addressDoc{Text: o.DeliveryAddress.Text, Lat: o.DeliveryAddress.Lat, Lng: o.DeliveryAddress.Lng},
		CreatedAt:       truncate(o.CreatedAt),
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	for i := range o.ShopOrders {
		so := o.ShopOrders[i]
		if so.ID == "" {
			so.ID = uuid.NewString()
		}
		if so.Status == "" {
			so.Status = models.StatusPending
		}
		if so.Status != models.StatusOutOfDelivery {
			so.DeliveryOTP, so.OTPExpiresAt = nil, nil
		}
		so.UpdatedAt = now
		d.ShopOrders = append(d.ShopOrders, toShopOrderDoc(&so))
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		return nil, err
	}
	return d.model(), nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.get(ctx, bson.M{"_id": id})
}

func (r *OrderRepository) GetByShopOrderID(ctx context.Context, shopOrderID string) (*models.Order, error) {
	return r.get(ctx, bson.M{"shopOrders.id": shopOrderID})
}

func (r *OrderRepository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	if razorpayOrderID == "" {
		return nil, nil
	}
	return r.get(ctx, bson.M{"razorpayOrderId": razorpayOrderID})
}

func (r *OrderRepository) get(ctx context.Context, filter bson.M) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var d orderDoc
	ok, err := findOne(ctx, r.c, filter, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.model(), nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	return r.list(ctx, bson.M{"buyerId": buyerID})
}

func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Order, error) {
	return r.list(ctx, bson.M{"shopOrders.ownerId": ownerID})
}

func (r *OrderRepository) ListByAgent(ctx context.Context, agentID string) ([]*models.Order, error) {
	return r.list(ctx, bson.M{"shopOrders.assignedAgentId": agentID})
}

func (r *OrderRepository) list(ctx context.Context, filter bson.M) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id, paymentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return matched(r.c.UpdateOne(ctx,
		bson.M{"_id": id, "payment": false},
		bson.M{"$set": bson.M{"payment": true, "paymentId": paymentID}}))
}

// updateShopOrder applies set to the sub-order matching cond through the positional operator.
func (r *OrderRepository) updateShopOrder(ctx context.Context, cond bson.M, set bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	fields := bson.M{}
	for k, v := range set {
		fields["shopOrders.$."+k] = v
	}
	return matched(r.c.UpdateOne(ctx,
		bson.M{"shopOrders": bson.M{"$elemMatch": cond}},
		bson.M{"$set": fields}))
}

func (r *OrderRepository) TransitionStatus(ctx context.Context, shopOrderID string, from, to models.ShopOrderStatus, upd repository.ShopOrderUpdate) (bool, error) {
	var code *string
	var expiry *time.Time
	if upd.OTP != nil {
		c := upd.OTP.Code
		e := truncate(upd.OTP.ExpiresAt)
		code, expiry = &c, &e
	}
	return r.updateShopOrder(ctx,
		bson.M{"id": shopOrderID, "status": string(from)},
		bson.M{"status": string(to), "deliveryOtp": code, "otpExpiresAt": expiry, "updatedAt": truncate(upd.At)})
}

func (r *OrderRepository) AssignAgent(ctx context.Context, shopOrderID, agentID string, at time.Time) (bool, error) {
	return r.updateShopOrder(ctx,
		bson.M{"id": shopOrderID, "status": string(models.StatusOutOfDelivery), "assignedAgentId": nil},
		bson.M{"assignedAgentId": agentID, "updatedAt": truncate(at)})
}

func (r *OrderRepository) MarkDelivered(ctx context.Context, shopOrderID, code string, at time.Time) (bool, error) {
	at = truncate(at)
	return r.updateShopOrder(ctx,
		bson.M{
			"id":           shopOrderID,
			"status":       string(models.StatusOutOfDelivery),
			"deliveryOtp":  code,
			"otpExpiresAt": bson.M{"$gt": at},
		},
		bson.M{"status": string(models.StatusDelivered), "deliveryOtp": nil, "otpExpiresAt": nil, "deliveredAt": at, "updatedAt": at})
}

func (r *OrderRepository) ReplaceOTP(ctx context.Context, shopOrderID string, oldCode *string, oldExpiry *time.Time, next models.OTP, at time.Time) (bool, error) {
	cond := bson.M{
		"id":           shopOrderID,
		"status":       string(models.StatusOutOfDelivery),
		"deliveryOtp":  nil,
		"otpExpiresAt": nil,
	}
	if oldCode != nil {
		cond["deliveryOtp"] = *oldCode
	}
	if oldExpiry != nil {
		cond["otpExpiresAt"] = truncate(*oldExpiry)
	}
	return r.updateShopOrder(ctx, cond,
		bson.M{"deliveryOtp": next.Code, "otpExpiresAt": truncate(next.ExpiresAt), "updatedAt": truncate(at)})
}

func (r *OrderRepository) ListStaleOTP(ctx context.Context, now time.Time, afterID string, limit int) ([]repository.StaleShopOrder, error) {
	if limit <= 0 {
		limit = 500
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	stale := bson.M{
		"shopOrders.status": string(models.StatusOutOfDelivery),
		"shopOrders.id":     bson.M{"$gt": afterID},
		"$or": bson.A{
			bson.M{"shopOrders.deliveryOtp": nil},
			bson.M{"shopOrders.otpExpiresAt": nil},
			bson.M{"shopOrders.otpExpiresAt": bson.M{"$lte": truncate(now)}},
		},
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"shopOrders.status": string(models.StatusOutOfDelivery)}}},
		{{Key: "$unwind", Value: "$shopOrders"}},
		{{Key: "$match", Value: stale}},
		{{Key: "$sort", Value: bson.D{{Key: "shopOrders.id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"buyerId": 1, "shopOrders": 1}}},
	}
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID        string       `bson:"_id"`
		BuyerID   string       `bson:"buyerId"`
		ShopOrder shopOrderDoc `bson:"shopOrders"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]repository.StaleShopOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.StaleShopOrder{OrderID: row.ID, BuyerID: row.BuyerID, ShopOrder: row.ShopOrder.model(row.ID)})
	}
	return out, nil
}

var _ repository.OrderRepositoryI = (*OrderRepository)(nil)
var _ repository.UserRepositoryI = (*UserRepository)(nil)
var _ repository.ShopRepositoryI = (*ShopRepository)(nil)
var _ repository.ItemRepositoryI = (*ItemRepository)(nil)
