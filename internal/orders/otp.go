package orders

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/internal/otp"
	"foodDeliveryMarketplace/models"
	"foodDeliveryMarketplace/repository"
)

// Delivery is the outcome of a successful code verification.
type Delivery struct {
	Order     *models.Order    `json:"order"`
	ShopOrder models.ShopOrder `json:"shopOrder"`
}

// VerifyOTP confirms hand-off: the assigned agent presents the buyer's code and the
// sub-order becomes delivered. The code is cleared in the same conditional update.
func (s *Service) VerifyOTP(ctx context.Context, actor *auth.Principal, shopOrderID, code string) (res *Delivery, err error) {
	ctx, span := startSpan(ctx, "VerifyOTP")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if shopOrderID == "" {
		return nil, newError(KindValidation, "shop order id is required")
	}
	if !wellFormedCode(code) {
		return nil, newError(KindValidation, "code must be %d to %d digits", otp.MinLength, otp.MaxLength)
	}

	o, so, err := s.loadShopOrder(ctx, shopOrderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.checkVerifiable(actor, so, code, now); err != nil {
		return nil, err
	}

	applied, err := s.orders.MarkDelivered(ctx, so.ID, code, now.UTC())
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost to a concurrent delivery or code replacement; report the current reason.
		_, cur, err := s.loadShopOrder(ctx, shopOrderID)
		if err != nil {
			return nil, err
		}
		if err := s.checkVerifiable(actor, cur, code, now); err != nil {
			return nil, err
		}
		return nil, newError(KindOtpMismatch, "code does not match")
	}

	o, so, err = s.loadShopOrder(ctx, shopOrderID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"order_id":      o.ID,
		"shop_order_id": so.ID,
		"agent_id":      actor.UserID,
	}).Info("sub-order delivered")
	s.notifyShopOrder(ctx, notify.EventDelivered, o, so)
	return &Delivery{Order: viewFor(o, actor), ShopOrder: so.WithoutOTP()}, nil
}

// checkVerifiable applies the verification rules in order: state, assignment, expiry, code.
func (s *Service) checkVerifiable(actor *auth.Principal, so *models.ShopOrder, code string, now time.Time) error {
	if so.Status == models.StatusDelivered {
		return newError(KindInvalidState, "sub-order %s is already delivered", so.ID)
	}
	if so.Status != models.StatusOutOfDelivery || !CanTransition(so.Status, models.StatusDelivered) {
		return newError(KindInvalidState, "sub-order %s is %s, not out for delivery", so.ID, so.Status)
	}
	if so.AssignedAgentID == nil {
		return newError(KindNotAssigned, "sub-order %s has no delivery agent", so.ID)
	}
	if !so.IsAssignedTo(actor.UserID) && !actor.IsSuperAdmin() && !actor.IsSystem() {
		return newError(KindNotAssigned, "sub-order %s is not assigned to you", so.ID)
	}
	if otp.Expired(so.DeliveryOTP, so.OTPExpiresAt, now) {
		return newError(KindOtpExpired, "delivery code has expired")
	}
	if !otp.Equal(*so.DeliveryOTP, code) {
		return newError(KindOtpMismatch, "code does not match")
	}
	return nil
}

func wellFormedCode(code string) bool {
	if len(code) < otp.MinLength || len(code) > otp.MaxLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ResendOTP issues a fresh code on demand. The buyer or the assigned agent may ask.
func (s *Service) ResendOTP(ctx context.Context, actor *auth.Principal, shopOrderID string) (res *Delivery, err error) {
	ctx, span := startSpan(ctx, "ResendOTP")
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
	if o.BuyerID != actor.UserID && !so.IsAssignedTo(actor.UserID) && !actor.IsSuperAdmin() {
		return nil, newError(KindForbidden, "not allowed to request a delivery code for this order")
	}
	if so.Status != models.StatusOutOfDelivery {
		return nil, newError(KindInvalidState, "sub-order %s is %s, not out for delivery", so.ID, so.Status)
	}
	next, err := s.otp.New()
	if err != nil {
		return nil, err
	}
	applied, err := s.orders.ReplaceOTP(ctx, so.ID, so.DeliveryOTP, so.OTPExpiresAt, next, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, newError(KindConflict, "delivery code changed concurrently, retry")
	}
	o, so, err = s.loadShopOrder(ctx, shopOrderID)
	if err != nil {
		return nil, err
	}
	s.notifyShopOrder(ctx, notify.EventOTPRegenerated, o, so)

	res = &Delivery{Order: viewFor(o, actor), ShopOrder: so.WithoutOTP()}
	if o.BuyerID == actor.UserID {
		res.ShopOrder = *so
	}
	return res, nil
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned     int `json:"scanned"`
	Regenerated int `json:"regenerated"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// RunOTPSweep replaces the code of every sub-order out for delivery whose code is
// missing or expired. Records are read in id-ordered pages until the stale set is
// exhausted. Each replacement is conditional on the old code, so overlapping runs
// never double-replace; per-record failures are logged and skipped.
func (s *Service) RunOTPSweep(ctx context.Context) (res SweepResult, err error) {
	ctx, span := startSpan(ctx, "RunOTPSweep")
	defer func() { endSpan(span, err) }()

	now := s.now().UTC()
	after := ""
	for {
		page, err := s.orders.ListStaleOTP(ctx, now, after, s.cfg.SweepBatch)
		if err != nil {
			return res, err
		}
		for _, rec := range page {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			s.sweepOne(ctx, rec, now, &res)
		}
		if len(page) < s.cfg.SweepBatch {
			break
		}
		after = page[len(page)-1].ShopOrder.ID
	}
	s.log.WithFields(logrus.Fields{
		"scanned":     res.Scanned,
		"regenerated": res.Regenerated,
		"skipped":     res.Skipped,
		"failed":      res.Failed,
	}).Info("otp sweep finished")
	return res, nil
}

func (s *Service) sweepOne(ctx context.Context, rec repository.StaleShopOrder, now time.Time, res *SweepResult) {
	res.Scanned++
	log := s.log.WithFields(logrus.Fields{"order_id": rec.OrderID, "shop_order_id": rec.ShopOrder.ID})

	next, err := s.otp.New()
	if err != nil {
		res.Failed++
		log.WithError(err).Error("otp sweep: generate code")
		return
	}
	applied, err := s.orders.ReplaceOTP(ctx, rec.ShopOrder.ID, rec.ShopOrder.DeliveryOTP, rec.ShopOrder.OTPExpiresAt, next, now)
	if err != nil {
		res.Failed++
		log.WithError(err).Error("otp sweep: replace code")
		return
	}
	if !applied {
		res.Skipped++
		return
	}
	res.Regenerated++

	so := rec.ShopOrder
	so.DeliveryOTP = &next.Code
	so.OTPExpiresAt = &next.ExpiresAt
	o := &models.Order{ID: rec.OrderID, BuyerID: rec.BuyerID}
	s.notifyShopOrder(ctx, notify.EventOTPRegenerated, o, &so)
}
