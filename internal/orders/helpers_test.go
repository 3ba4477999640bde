package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/internal/otp"
	"foodDeliveryMarketplace/internal/payment"
	"foodDeliveryMarketplace/internal/testutil"
	"foodDeliveryMarketplace/models"
	"foodDeliveryMarketplace/repository"
)

const (
	shopLat = 12.9716
	shopLng = 77.5946
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	svc        *Service
	rec        *notify.Recorder
	dispatcher *notify.Dispatcher
	clock      *testClock
	users      *repository.UserRepository
	shops      *repository.ShopRepository
	items      *repository.ItemRepository
	orders     *repository.OrderRepository

	owner *models.User
	shop  *models.Shop
	buyer *models.User
}

type fakeGateway struct {
	secret string
	calls  int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (string, error) {
	g.calls++
	return "order_rzp_" + receipt[:8], nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.Sign(g.secret, orderID, paymentID) == signature
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// newEnv builds a service over an in-memory database with one owner, their shop
// and one buyer already registered.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, "orders")
	clock := &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	gen, err := otp.NewGenerator(otp.DefaultLength, otp.DefaultTTL)
	require.NoError(t, err)
	gen.WithClock(clock.Now)

	rec := &notify.Recorder{}
	dispatcher := notify.NewDispatcher(rec, time.Second, quietLog())
	env := &testEnv{
		rec:        rec,
		dispatcher: dispatcher,
		clock:      clock,
		users:      repository.NewUserRepository(d),
		shops:      repository.NewShopRepository(d),
		items:      repository.NewItemRepository(d),
		orders:     repository.NewOrderRepository(d),
	}
	env.svc = NewService(Deps{
		Users:    env.users,
		Shops:    env.shops,
		Items:    env.items,
		Orders:   env.orders,
		OTP:      gen,
		Notifier: dispatcher,
		Payments: &fakeGateway{secret: "rzp-secret"},
		Log:      quietLog(),
		Now:      clock.Now,
	}, Config{RadiusKm: 5})

	env.owner = env.addUser(t, "owner-1", models.RoleOwner, 0, 0, false)
	env.buyer = env.addUser(t, "buyer-1", models.RoleUser, 0, 0, false)
	env.shop, err = env.shops.Upsert(context.Background(), &models.Shop{OwnerID: env.owner.ID, Name: "Udupi Grand", City: "Bengaluru", Lat: shopLat, Lng: shopLng})
	require.NoError(t, err)
	return env
}

func (e *testEnv) addUser(t *testing.T, id string, role models.Role, lat, lng float64, available bool) *models.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), &models.User{
		ID: id, FullName: id, Email: id + "@example.com", PasswordHash: "x",
		Role: role, Lat: lat, Lng: lng, IsAvailable: available,
	})
	require.NoError(t, err)
	return u
}

// addAgent registers an available agent dLat degrees north of the shop.
func (e *testEnv) addAgent(t *testing.T, id string, dLat float64) *models.User {
	t.Helper()
	return e.addUser(t, id, models.RoleDeliveryBoy, shopLat+dLat, shopLng, true)
}

func (e *testEnv) addItem(t *testing.T, shop *models.Shop, name, price string) *models.Item {
	t.Helper()
	it, err := e.items.Create(context.Background(), &models.Item{ShopID: shop.ID, Name: name, Price: decimal.RequireFromString(price)})
	require.NoError(t, err)
	return it
}

// seedOrder stores an order whose single sub-order already has the given status.
func (e *testEnv) seedOrder(t *testing.T, status models.ShopOrderStatus) (*models.Order, *models.ShopOrder) {
	t.Helper()
	so := models.ShopOrder{
		ShopID:   e.shop.ID,
		OwnerID:  e.owner.ID,
		Status:   status,
		Subtotal: decimal.RequireFromString("120"),
		Items:    []models.ShopOrderItem{{ItemID: "i", Name: "Masala Dosa", Price: decimal.RequireFromString("60"), Quantity: 2}},
	}
	if status == models.StatusOutOfDelivery {
		code := "5555"
		exp := e.clock.Now().Add(time.Hour)
		so.DeliveryOTP, so.OTPExpiresAt = &code, &exp
	}
	o, err := e.orders.Create(context.Background(), &models.Order{
		BuyerID:         e.buyer.ID,
		PaymentMethod:   models.PaymentCOD,
		TotalAmount:     so.Subtotal,
		DeliveryAddress: models.DeliveryAddress{Text: "Indiranagar", Lat: shopLat + 0.02, Lng: shopLng},
		ShopOrders:      []models.ShopOrder{so},
	})
	require.NoError(t, err)
	return o, &o.ShopOrders[0]
}

func (e *testEnv) shopOrder(t *testing.T, id string) *models.ShopOrder {
	t.Helper()
	o, err := e.orders.GetByShopOrderID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o.ShopOrderByID(id)
}

func principal(u *models.User) *auth.Principal {
	return &auth.Principal{UserID: u.ID, Role: u.Role}
}

// toOutForDelivery drives a fresh order from pending to out_of_delivery as the owner.
func (e *testEnv) toOutForDelivery(t *testing.T) (*models.Order, *StatusUpdate) {
	t.Helper()
	ctx := context.Background()
	o, so := e.seedOrder(t, models.StatusPending)
	_, err := e.svc.UpdateStatus(ctx, principal(e.owner), o.ID, so.ShopID, models.StatusPreparing)
	require.NoError(t, err)
	res, err := e.svc.UpdateStatus(ctx, principal(e.owner), o.ID, so.ShopID, models.StatusOutOfDelivery)
	require.NoError(t, err)
	return o, res
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
