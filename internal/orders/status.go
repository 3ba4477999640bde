package orders

import (
	"context"

	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/models"
	"foodDeliveryMarketplace/repository"
)

// authority is the set of parties allowed to take a transition.
type authority uint8

const (
	byOwner authority = 1 << iota
	byBuyer
	bySystem
)

// transitions is the complete sub-order state machine. Anything not listed is rejected.
var transitions = map[models.ShopOrderStatus]map[models.ShopOrderStatus]authority{
	models.StatusPending: {
		models.StatusPreparing: byOwner,
		models.StatusCancelled: byOwner | byBuyer,
	},
	models.StatusPreparing: {
		models.StatusOutOfDelivery: byOwner,
		models.StatusCancelled:     byOwner | byBuyer,
	},
	models.StatusOutOfDelivery: {
		models.StatusDelivered: bySystem,
	},
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to models.ShopOrderStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// roles returns the authorities the actor holds over a sub-order.
func roles(actor *auth.Principal, o *models.Order, so *models.ShopOrder) authority {
	var a authority
	if actor.IsSystem() {
		a |= bySystem
	}
	if actor.IsSuperAdmin() || so.OwnerID == actor.UserID {
		a |= byOwner
	}
	if o.BuyerID == actor.UserID {
		a |= byBuyer
	}
	return a
}

// StatusUpdate is the outcome of a status change. Candidates is set only when the
// sub-order went out for delivery.
type StatusUpdate struct {
	Order      *models.Order    `json:"order"`
	ShopOrder  models.ShopOrder `json:"shopOrder"`
	Candidates []Candidate      `json:"candidates,omitempty"`
}

// UpdateStatus moves the sub-order of shopID within orderID to status.
// Entering out_of_delivery issues a delivery code and looks up candidate agents.
func (s *Service) UpdateStatus(ctx context.Context, actor *auth.Principal, orderID, shopID string, status models.ShopOrderStatus) (res *StatusUpdate, err error) {
	ctx, span := startSpan(ctx, "UpdateStatus")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if orderID == "" || shopID == "" {
		return nil, newError(KindValidation, "order id and shop id are required")
	}
	if !status.Valid() {
		return nil, newError(KindValidation, "unknown status %q", status)
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, newError(KindNotFound, "order %s not found", orderID)
	}
	so := o.ShopOrderForShop(shopID)
	if so == nil {
		return nil, newError(KindNotFound, "order %s has no sub-order for shop %s", orderID, shopID)
	}
	held := roles(actor, o, so)
	if held == 0 {
		return nil, newError(KindForbidden, "not allowed to change this order")
	}
	need, ok := transitions[so.Status][status]
	if !ok {
		return nil, newError(KindInvalidTransition, "cannot move from %s to %s", so.Status, status)
	}
	if held&need == 0 {
		return nil, newError(KindForbidden, "not allowed to move this order to %s", status)
	}

	upd := repository.ShopOrderUpdate{At: s.now().UTC()}
	if status == models.StatusOutOfDelivery {
		code, err := s.otp.New()
		if err != nil {
			return nil, err
		}
		upd.OTP = &code
	}
	applied, err := s.orders.TransitionStatus(ctx, so.ID, so.Status, status, upd)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.lostTransition(ctx, so.ID, status)
	}

	o, err = s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, newError(KindNotFound, "order %s not found", orderID)
	}
	so = o.ShopOrderForShop(shopID)
	if so == nil {
		return nil, newError(KindNotFound, "order %s has no sub-order for shop %s", orderID, shopID)
	}
	res = &StatusUpdate{Order: viewFor(o, actor), ShopOrder: so.WithoutOTP()}
	if actor.UserID == o.BuyerID {
		res.ShopOrder = *so
	}

	s.log.WithFields(logrus.Fields{
		"order_id":      o.ID,
		"shop_order_id": so.ID,
		"status":        status,
		"actor":         actor.UserID,
	}).Info("sub-order status changed")

	event := notify.EventStatusUpdated
	if status == models.StatusCancelled {
		event = notify.EventCancelled
	}
	s.notifyShopOrder(ctx, event, o, so)

	if status == models.StatusOutOfDelivery {
		candidates, err := s.candidatesForShop(ctx, so.ShopID)
		if err != nil {
			// The transition is committed; agents can still be listed later.
			s.log.WithError(err).WithField("shop_order_id", so.ID).Warn("candidate lookup failed")
		}
		res.Candidates = candidates
		s.offerDelivery(ctx, o, so, candidates)
	}
	return res, nil
}

// Cancel is UpdateStatus to cancelled.
func (s *Service) Cancel(ctx context.Context, actor *auth.Principal, orderID, shopID string) (*StatusUpdate, error) {
	return s.UpdateStatus(ctx, actor, orderID, shopID, models.StatusCancelled)
}

// lostTransition explains a conditional update that did not apply.
func (s *Service) lostTransition(ctx context.Context, shopOrderID string, want models.ShopOrderStatus) error {
	o, err := s.orders.GetByShopOrderID(ctx, shopOrderID)
	if err != nil {
		return err
	}
	if o == nil {
		return newError(KindNotFound, "sub-order %s not found", shopOrderID)
	}
	cur := o.ShopOrderByID(shopOrderID)
	return newError(KindInvalidTransition, "cannot move from %s to %s", cur.Status, want)
}

// offerDelivery broadcasts an open delivery to the candidate agents.
func (s *Service) offerDelivery(ctx context.Context, o *models.Order, so *models.ShopOrder, candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.AgentID)
	}
	s.notifier.Notify(ctx, notify.EventDeliveryOffered, ids, newShopOrderEvent(o, so.WithoutOTP()))
}
