// Package orders holds the marketplace rules: checkout, the sub-order status
// machine, delivery codes, agent assignment and the accounts and catalog they rely on.
package orders

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/internal/otp"
	"foodDeliveryMarketplace/internal/payment"
	"foodDeliveryMarketplace/repository"
)

const (
	DefaultRadiusKm   = 5.0
	DefaultSweepBatch = 500
	DefaultCurrency   = "INR"
)

var tracer = otel.Tracer("foodDeliveryMarketplace/internal/orders")

// Config tunes the service.
type Config struct {
	RadiusKm   float64
	Currency   string
	SweepBatch int
}

// Deps are the collaborators of the service. Notifier and Payments may be nil.
// Now drives every timestamp, including code expiry: it replaces the OTP generator's clock.
type Deps struct {
	Users    repository.UserRepositoryI
	Shops    repository.ShopRepositoryI
	Items    repository.ItemRepositoryI
	Orders   repository.OrderRepositoryI
	OTP      *otp.Generator
	Notifier *notify.Dispatcher
	Payments payment.Gateway
	Log      *logrus.Entry
	Now      func() time.Time
}

// Service implements every caller-facing operation.
type Service struct {
	users    repository.UserRepositoryI
	shops    repository.ShopRepositoryI
	items    repository.ItemRepositoryI
	orders   repository.OrderRepositoryI
	otp      *otp.Generator
	notifier *notify.Dispatcher
	payments payment.Gateway
	log      *logrus.Entry
	now      func() time.Time
	cfg      Config
}

func NewService(d Deps, cfg Config) *Service {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultRadiusKm
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = DefaultSweepBatch
	}
	if d.OTP == nil {
		d.OTP, _ = otp.NewGenerator(otp.DefaultLength, otp.DefaultTTL)
	}
	if d.Payments == nil {
		d.Payments = payment.Disabled{}
	}
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.OTP.WithClock(d.Now)
	return &Service{
		users:    d.Users,
		shops:    d.Shops,
		items:    d.Items,
		orders:   d.Orders,
		otp:      d.OTP,
		notifier: d.Notifier,
		payments: d.Payments,
		log:      d.Log,
		now:      d.Now,
		cfg:      cfg,
	}
}

// RadiusKm is the candidate search radius in kilometres.
func (s *Service) RadiusKm() float64 { return s.cfg.RadiusKm }

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "orders."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireActor(actor *auth.Principal) error {
	if actor == nil || actor.UserID == "" {
		return newError(KindUnauthenticated, "authentication required")
	}
	return nil
}
