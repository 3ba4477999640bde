package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/internal/payment"
	"foodDeliveryMarketplace/models"
)

const maxLineQuantity = 100

// CartLine is one item of a checkout request.
type CartLine struct {
	ItemID   string
	Quantity int
}

// PlaceOrderInput is a checkout request. Prices always come from the catalog.
type PlaceOrderInput struct {
	PaymentMethod   models.PaymentMethod
	DeliveryAddress models.DeliveryAddress
	Items           []CartLine
}

// PlaceOrder creates one order with a pending sub-order per shop in the cart.
// Online orders also get a provider order id and stay unpaid until VerifyPayment.
func (s *Service) PlaceOrder(ctx context.Context, actor *auth.Principal, in PlaceOrderInput) (res *models.Order, err error) {
	ctx, span := startSpan(ctx, "PlaceOrder")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validatePlaceOrder(in); err != nil {
		return nil, err
	}

	// Merge repeated items, keeping first-seen order.
	qty := map[string]int{}
	var itemOrder []string
	for _, l := range in.Items {
		if _, seen := qty[l.ItemID]; !seen {
			itemOrder = append(itemOrder, l.ItemID)
		}
		qty[l.ItemID] += l.Quantity
	}

	shops := map[string]*models.Shop{}
	bySub := map[string]*models.ShopOrder{}
	var subOrder []string
	for _, id := range itemOrder {
		it, err := s.items.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, newError(KindNotFound, "item %s not found", id)
		}
		shop, ok := shops[it.ShopID]
		if !ok {
			shop, err = s.shops.GetByID(ctx, it.ShopID)
			if err != nil {
				return nil, err
			}
			if shop == nil {
				return nil, newError(KindNotFound, "shop %s not found", it.ShopID)
			}
			shops[it.ShopID] = shop
		}
		so, ok := bySub[shop.ID]
		if !ok {
			so = &models.ShopOrder{ID: uuid.NewString(), ShopID: shop.ID, OwnerID: shop.OwnerID, Status: models.StatusPending}
			bySub[shop.ID] = so
			subOrder = append(subOrder, shop.ID)
		}
		line := models.ShopOrderItem{ItemID: it.ID, Name: it.Name, Price: it.Price, Quantity: qty[id]}
		so.Items = append(so.Items, line)
		so.Subtotal = so.Subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	o := &models.Order{
		ID:              uuid.NewString(),
		BuyerID:         actor.UserID,
		PaymentMethod:   in.PaymentMethod,
		DeliveryAddress: in.DeliveryAddress,
		CreatedAt:       s.now().UTC(),
	}
	for _, id := range subOrder {
		so := bySub[id]
		o.TotalAmount = o.TotalAmount.Add(so.Subtotal)
		o.ShopOrders = append(o.ShopOrders, *so)
	}

	if o.PaymentMethod == models.PaymentOnline {
		rzp, err := s.payments.CreateOrder(ctx, o.TotalAmount, s.cfg.Currency, o.ID)
		if errors.Is(err, payment.ErrDisabled) {
			return nil, newError(KindValidation, "online payment is not available")
		}
		if err != nil {
			return nil, fmt.Errorf("create payment order: %w", err)
		}
		o.RazorpayOrderID = rzp
	}

	created, err := s.orders.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"order_id":   created.ID,
		"buyer_id":   created.BuyerID,
		"shops":      len(created.ShopOrders),
		"total":      created.TotalAmount.String(),
		"payment_by": created.PaymentMethod,
	}).Info("order placed")

	if created.PaymentMethod == models.PaymentCOD {
		s.notifyOwners(ctx, notify.EventOrderPlaced, created)
	}
	return created, nil
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if !in.PaymentMethod.Valid() {
		return newError(KindValidation, "payment method must be cod or online")
	}
	if strings.TrimSpace(in.DeliveryAddress.Text) == "" {
		return newError(KindValidation, "delivery address is required")
	}
	if !geo.ValidCoordinates(in.DeliveryAddress.Lat, in.DeliveryAddress.Lng) {
		return newError(KindValidation, "delivery coordinates are out of range")
	}
	if len(in.Items) == 0 {
		return newError(KindValidation, "cart is empty")
	}
	for _, l := range in.Items {
		if l.ItemID == "" {
			return newError(KindValidation, "item id is required")
		}
		if l.Quantity < 1 || l.Quantity > maxLineQuantity {
			return newError(KindValidation, "quantity must be between 1 and %d", maxLineQuantity)
		}
	}
	return nil
}

// notifyOwners tells each owner about their own sub-order, and the buyer about the order.
func (s *Service) notifyOwners(ctx context.Context, event notify.EventType, o *models.Order) {
	for _, so := range o.ShopOrders {
		if so.OwnerID == o.BuyerID {
			continue
		}
		s.notifier.Notify(ctx, event, []string{so.OwnerID}, newShopOrderEvent(o, so.WithoutOTP()))
	}
	s.notifier.Notify(ctx, event, []string{o.BuyerID}, o)
}

// VerifyPaymentInput is the checkout callback of the payment provider.
type VerifyPaymentInput struct {
	RazorpayOrderID string
	PaymentID       string
	Signature       string
}

// VerifyPayment checks the provider signature and marks the order paid.
// Repeating it for an already paid order returns the order unchanged.
func (s *Service) VerifyPayment(ctx context.Context, actor *auth.Principal, in VerifyPaymentInput) (res *models.Order, err error) {
	ctx, span := startSpan(ctx, "VerifyPayment")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.RazorpayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, newError(KindValidation, "order id, payment id and signature are required")
	}
	o, err := s.orders.GetByRazorpayOrderID(ctx, in.RazorpayOrderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, newError(KindNotFound, "no order for payment order %s", in.RazorpayOrderID)
	}
	if o.BuyerID != actor.UserID && !actor.IsSuperAdmin() {
		return nil, newError(KindForbidden, "not your order")
	}
	if !s.payments.VerifySignature(in.RazorpayOrderID, in.PaymentID, in.Signature) {
		return nil, newError(KindValidation, "invalid payment signature")
	}
	if o.Payment {
		return viewFor(o, actor), nil
	}
	applied, err := s.orders.MarkPaid(ctx, o.ID, in.PaymentID)
	if err != nil {
		return nil, err
	}
	o, err = s.orders.GetByID(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, newError(KindNotFound, "order not found")
	}
	if applied {
		s.log.WithField("order_id", o.ID).Info("payment captured")
		s.notifyOwners(ctx, notify.EventOrderPaid, o)
	}
	return viewFor(o, actor), nil
}

// GetOrder returns the order as the actor may see it.
func (s *Service) GetOrder(ctx context.Context, actor *auth.Principal, orderID string) (res *models.Order, err error) {
	ctx, span := startSpan(ctx, "GetOrder")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, newError(KindNotFound, "order %s not found", orderID)
	}
	v := viewFor(o, actor)
	if v == nil {
		return nil, newError(KindForbidden, "not allowed to view this order")
	}
	return v, nil
}

// ListMyOrders lists orders by the actor's role: buyers their purchases, owners the
// orders of their shop, agents the orders they deliver.
func (s *Service) ListMyOrders(ctx context.Context, actor *auth.Principal) (out []*models.Order, err error) {
	ctx, span := startSpan(ctx, "ListMyOrders")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var list []*models.Order
	switch actor.Role {
	case models.RoleOwner:
		list, err = s.orders.ListByOwner(ctx, actor.UserID)
	case models.RoleDeliveryBoy:
		list, err = s.orders.ListByAgent(ctx, actor.UserID)
	default:
		list, err = s.orders.ListByBuyer(ctx, actor.UserID)
	}
	if err != nil {
		return nil, err
	}
	out = make([]*models.Order, 0, len(list))
	for _, o := range list {
		if v := viewFor(o, actor); v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// DeleteOrder removes an order and its sub-orders. The buyer, a super admin or the
// owner of one of its shops may delete it.
func (s *Service) DeleteOrder(ctx context.Context, actor *auth.Principal, orderID string) (err error) {
	ctx, span := startSpan(ctx, "DeleteOrder")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return newError(KindNotFound, "order %s not found", orderID)
	}
	if o.BuyerID != actor.UserID && !actor.IsSuperAdmin() && !o.HasOwner(actor.UserID) {
		return newError(KindForbidden, "not allowed to delete this order")
	}
	deleted, err := s.orders.Delete(ctx, orderID)
	if err != nil {
		return err
	}
	if !deleted {
		return newError(KindNotFound, "order %s not found", orderID)
	}
	s.log.WithFields(logrus.Fields{"order_id": orderID, "actor": actor.UserID}).Info("order deleted")

	recipients := []string{o.BuyerID}
	for _, so := range o.ShopOrders {
		recipients = append(recipients, so.OwnerID)
		if so.AssignedAgentID != nil {
			recipients = append(recipients, *so.AssignedAgentID)
		}
	}
	s.notifier.Notify(ctx, notify.EventDeleted, recipients, map[string]string{"orderId": orderID})
	return nil
}
