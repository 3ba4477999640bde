package orders

import (
	"context"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/models"
)

// viewFor returns the part of o the actor may see. Only the buyer sees delivery codes;
// owners see their own shop's sub-orders and agents the ones assigned to them.
// It returns nil when the actor has no relation to the order.
func viewFor(o *models.Order, actor *auth.Principal) *models.Order {
	if o == nil || actor == nil {
		return nil
	}
	out := *o
	out.ShopOrders = nil
	switch {
	case o.BuyerID == actor.UserID:
		out.ShopOrders = append(out.ShopOrders, o.ShopOrders...)
		return &out
	case actor.IsSuperAdmin() || actor.IsSystem():
		for _, so := range o.ShopOrders {
			out.ShopOrders = append(out.ShopOrders, so.WithoutOTP())
		}
		return &out
	}
	for _, so := range o.ShopOrders {
		if so.OwnerID == actor.UserID || so.IsAssignedTo(actor.UserID) {
			out.ShopOrders = append(out.ShopOrders, so.WithoutOTP())
		}
	}
	if len(out.ShopOrders) == 0 {
		return nil
	}
	return &out
}

// ShopOrderEvent is the payload pushed for sub-order changes.
type ShopOrderEvent struct {
	OrderID         string                 `json:"orderId"`
	BuyerID         string                 `json:"buyerId"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod"`
	DeliveryAddress models.DeliveryAddress `json:"deliveryAddress"`
	ShopOrder       models.ShopOrder       `json:"shopOrder"`
}

func newShopOrderEvent(o *models.Order, so models.ShopOrder) ShopOrderEvent {
	return ShopOrderEvent{
		OrderID:         o.ID,
		BuyerID:         o.BuyerID,
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		ShopOrder:       so,
	}
}

// notifyShopOrder pushes a sub-order change: the buyer's copy carries the delivery
// code, the owner's and agent's copies do not.
func (s *Service) notifyShopOrder(ctx context.Context, event notify.EventType, o *models.Order, so *models.ShopOrder) {
	if o == nil || so == nil {
		return
	}
	s.notifier.Notify(ctx, event, []string{o.BuyerID}, newShopOrderEvent(o, *so))
	others := []string{so.OwnerID}
	if so.AssignedAgentID != nil {
		others = append(others, *so.AssignedAgentID)
	}
	s.notifier.Notify(ctx, event, without(others, o.BuyerID), newShopOrderEvent(o, so.WithoutOTP()))
}

// without returns ids minus the excluded one.
func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
