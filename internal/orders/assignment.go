package orders

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/models"
)

// Candidate is an available agent near the shop.
type Candidate struct {
	AgentID    string  `json:"id"`
	FullName   string  `json:"fullName"`
	Mobile     string  `json:"mobile"`
	Lat        float64 `json:"latitude"`
	Lng        float64 `json:"longitude"`
	DistanceKm float64 `json:"distanceKm"`
}

// ListCandidates returns available agents within the delivery radius of the
// sub-order's shop, nearest first, ties by agent id.
func (s *Service) ListCandidates(ctx context.Context, actor *auth.Principal, shopOrderID string) (out []Candidate, err error) {
	ctx, span := startSpan(ctx, "ListCandidates")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if shopOrderID == "" {
		return nil, newError(KindValidation, "shop order id is required")
	}
	o, so, err := s.loadShopOrder(ctx, shopOrderID)
	if err != nil {
		return nil, err
	}
	if roles(actor, o, so)&(byOwner|bySystem) == 0 {
		return nil, newError(KindForbidden, "only the shop owner can list delivery candidates")
	}
	return s.candidatesForShop(ctx, so.ShopID)
}

func (s *Service) candidatesForShop(ctx context.Context, shopID string) ([]Candidate, error) {
	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, newError(KindNotFound, "shop %s not found", shopID)
	}
	radius := s.cfg.RadiusKm
	agents, err := s.users.ListAvailableAgents(ctx, geo.BoundingBoxKm(shop.Lat, shop.Lng, radius))
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(agents))
	for _, a := range agents {
		if !a.IsAgent() || !a.IsAvailable {
			continue
		}
		d := geo.HaversineKm(shop.Lat, shop.Lng, a.Lat, a.Lng)
		if d > radius {
			continue
		}
		out = append(out, Candidate{AgentID: a.ID, FullName: a.FullName, Mobile: a.Mobile, Lat: a.Lat, Lng: a.Lng, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out, nil
}

// Assignment is the outcome of Assign.
type Assignment struct {
	Order     *models.Order    `json:"order"`
	ShopOrder models.ShopOrder `json:"shopOrder"`
}

// Assign records agentID as the delivery agent of a sub-order that is out for
// delivery and still unassigned. The shop owner may assign; an agent may accept for themselves.
func (s *Service) Assign(ctx context.Context, actor *auth.Principal, shopOrderID, agentID string) (res *Assignment, err error) {
	ctx, span := startSpan(ctx, "Assign")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if shopOrderID == "" || agentID == "" {
		return nil, newError(KindValidation, "shop order id and delivery agent id are required")
	}
	o, so, err := s.loadShopOrder(ctx, shopOrderID)
	if err != nil {
		return nil, err
	}
	selfAccept := actor.Role == models.RoleDeliveryBoy && actor.UserID == agentID
	if roles(actor, o, so)&(byOwner|bySystem) == 0 && !selfAccept {
		return nil, newError(KindForbidden, "not allowed to assign this delivery")
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil || !agent.IsAgent() {
		return nil, newError(KindNotFound, "delivery agent %s not found", agentID)
	}
	if !agent.IsAvailable {
		return nil, newError(KindInvalidState, "delivery agent %s is not available", agentID)
	}
	if err := assignable(so); err != nil {
		return nil, err
	}

	applied, err := s.orders.AssignAgent(ctx, so.ID, agentID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !applied {
		_, cur, err := s.loadShopOrder(ctx, shopOrderID)
		if err != nil {
			return nil, err
		}
		if err := assignable(cur); err != nil {
			return nil, err
		}
		return nil, newError(KindInvalidState, "sub-order %s changed concurrently", shopOrderID)
	}

	o, so, err = s.loadShopOrder(ctx, shopOrderID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"order_id":      o.ID,
		"shop_order_id": so.ID,
		"agent_id":      agentID,
		"actor":         actor.UserID,
	}).Info("delivery agent assigned")
	s.notifyShopOrder(ctx, notify.EventAssigned, o, so)

	res = &Assignment{Order: viewFor(o, actor), ShopOrder: so.WithoutOTP()}
	if actor.UserID == o.BuyerID {
		res.ShopOrder = *so
	}
	return res, nil
}

// assignable reports why a sub-order cannot take an agent, or nil.
func assignable(so *models.ShopOrder) error {
	if so.AssignedAgentID != nil {
		return newError(KindAlreadyAssigned, "sub-order %s already has a delivery agent", so.ID)
	}
	if so.Status != models.StatusOutOfDelivery {
		return newError(KindInvalidState, "sub-order %s is %s, not out for delivery", so.ID, so.Status)
	}
	return nil
}

// AgentAssignment is a delivery held by an agent.
type AgentAssignment struct {
	OrderID         string                 `json:"orderId"`
	BuyerID         string                 `json:"buyerId"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod"`
	TotalAmount     string                 `json:"totalAmount"`
	DeliveryAddress models.DeliveryAddress `json:"deliveryAddress"`
	ShopOrder       models.ShopOrder       `json:"shopOrder"`
}

// ListAgentAssignments returns the agent's sub-orders that are still out for delivery.
func (s *Service) ListAgentAssignments(ctx context.Context, actor *auth.Principal) (out []AgentAssignment, err error) {
	ctx, span := startSpan(ctx, "ListAgentAssignments")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleDeliveryBoy {
		return nil, newError(KindForbidden, "only delivery agents have assignments")
	}
	list, err := s.orders.ListByAgent(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	out = []AgentAssignment{}
	for _, o := range list {
		for _, so := range o.ShopOrders {
			if !so.IsAssignedTo(actor.UserID) || so.Status != models.StatusOutOfDelivery {
				continue
			}
			out = append(out, AgentAssignment{
				OrderID:         o.ID,
				BuyerID:         o.BuyerID,
				PaymentMethod:   o.PaymentMethod,
				TotalAmount:     o.TotalAmount.String(),
				DeliveryAddress: o.DeliveryAddress,
				ShopOrder:       so.WithoutOTP(),
			})
		}
	}
	return out, nil
}

// loadShopOrder fetches a sub-order with its order, mapping absence to NotFound.
func (s *Service) loadShopOrder(ctx context.Context, shopOrderID string) (*models.Order, *models.ShopOrder, error) {
	o, err := s.orders.GetByShopOrderID(ctx, shopOrderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, newError(KindNotFound, "sub-order %s not found", shopOrderID)
	}
	so := o.ShopOrderByID(shopOrderID)
	if so == nil {
		return nil, nil, newError(KindNotFound, "sub-order %s not found", shopOrderID)
	}
	return o, so, nil
}
