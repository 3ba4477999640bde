package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/internal/orders"
	"foodDeliveryMarketplace/internal/otp"
	"foodDeliveryMarketplace/internal/payment"
	"foodDeliveryMarketplace/internal/testutil"
	"foodDeliveryMarketplace/models"
	"foodDeliveryMarketplace/repository"
)

const testSecret = "http-test-secret"

type api struct {
	t      *testing.T
	router http.Handler
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newAPI(t *testing.T) *api {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, "httpapi")
	gen, err := otp.NewGenerator(otp.DefaultLength, otp.DefaultTTL)
	require.NoError(t, err)
	dispatcher := notify.NewDispatcher(&notify.Recorder{}, time.Second, quietLog())
	t.Cleanup(dispatcher.Wait)

	svc := orders.NewService(orders.Deps{
		Users:    repository.NewUserRepository(d),
		Shops:    repository.NewShopRepository(d),
		Items:    repository.NewItemRepository(d),
		Orders:   repository.NewOrderRepository(d),
		OTP:      gen,
		Notifier: dispatcher,
		Payments: payment.Disabled{},
		Log:      quietLog(),
	}, orders.Config{RadiusKm: 5})
	h := NewHandler(svc, Options{JWTSecret: testSecret, TokenTTL: time.Hour, Log: quietLog()})
	return &api{t: t, router: NewRouter(h)}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(a.t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *api) decode(rec *httptest.ResponseRecorder, v any) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// signUp registers an account and returns its id and bearer token.
func (a *api) signUp(name, role string) (string, string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"fullName": name, "email": name + "@example.com", "password": "secret1", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var u models.User
	a.decode(rec, &u)
	tok := rec.Header().Get("X-Auth-Token")
	require.NotEmpty(a.t, tok)
	return u.ID, tok
}

func TestDeliveryFlowOverHTTP(t *testing.T) {
	a := newAPI(t)

	_, ownerTok := a.signUp("owner", "owner")
	rec := a.do(http.MethodPost, "/api/shop/create-edit", ownerTok, map[string]any{
		"name": "Udupi Grand", "city": "Bengaluru", "address": "MG Road", "latitude": 12.9716, "longitude": 77.5946,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var shop models.Shop
	a.decode(rec, &shop)

	rec = a.do(http.MethodPost, "/api/item/add-item", ownerTok, map[string]any{
		"name": "Masala Dosa", "category": "South Indian", "foodType": "veg", "price": "60",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item models.Item
	a.decode(rec, &item)

	rec = a.do(http.MethodGet, "/api/item/get-by-city/bengaluru", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var menu []models.Item
	a.decode(rec, &menu)
	require.Len(t, menu, 1)

	_, buyerTok := a.signUp("buyer", "user")
	rec = a.do(http.MethodPost, "/api/order/place-order", buyerTok, map[string]any{
		"paymentMethod":   "cod",
		"deliveryAddress": map[string]any{"text": "Indiranagar", "latitude": 12.9784, "longitude": 77.6408},
		"cartItems":       []map[string]any{{"id": item.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed placeOrderResponse
	a.decode(rec, &placed)
	require.Len(t, placed.Order.ShopOrders, 1)
	orderID := placed.Order.ID
	soID := placed.Order.ShopOrders[0].ID
	assert.Equal(t, "120", placed.Order.TotalAmount.String())

	agentID, agentTok := a.signUp("agent", "deliveryBoy")
	rec = a.do(http.MethodPost, "/api/user/update-location", agentTok, map[string]any{"lat": 12.9726, "lon": 77.5946})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/user/availability", agentTok, map[string]any{"isAvailable": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	statusPath := "/api/order/update-status/" + orderID + "/" + shop.ID
	rec = a.do(http.MethodPost, statusPath, buyerTok, map[string]any{"status": "preparing"})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, statusPath, ownerTok, map[string]any{"status": "out_of_delivery"})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, statusPath, ownerTok, map[string]any{"status": "preparing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, statusPath, ownerTok, map[string]any{"status": "out_of_delivery"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upd orders.StatusUpdate
	a.decode(rec, &upd)
	require.Len(t, upd.Candidates, 1)
	assert.Equal(t, agentID, upd.Candidates[0].AgentID)
	assert.Nil(t, upd.ShopOrder.DeliveryOTP)

	rec = a.do(http.MethodGet, "/api/order/"+orderID, buyerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var buyerView models.Order
	a.decode(rec, &buyerView)
	require.NotNil(t, buyerView.ShopOrders[0].DeliveryOTP)
	code := *buyerView.ShopOrders[0].DeliveryOTP

	rec = a.do(http.MethodGet, "/api/order/"+orderID, ownerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deliveryOtp")

	rec = a.do(http.MethodPost, "/api/order/verify-otp", agentTok, map[string]any{"shopOrderId": soID, "otp": code})
	require.Equal(t, http.StatusForbidden, rec.Code, "unassigned agent: %s", rec.Body.String())

	rec = a.do(http.MethodPost, "/api/order/assign-delivery-boy", agentTok, map[string]any{"shopOrderId": soID, "deliveryBoyId": agentID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/order/assign-delivery-boy", ownerTok, map[string]any{"shopOrderId": soID, "deliveryBoyId": agentID})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/order/my-assignments", agentTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deliveryOtp")

	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}
	rec = a.do(http.MethodPost, "/api/order/verify-otp", agentTok, map[string]any{"shopOrderId": soID, "otp": wrong})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	var failure errorResponse
	a.decode(rec, &failure)
	assert.Equal(t, "OtpMismatch", failure.Error)

	rec = a.do(http.MethodPost, "/api/order/verify-otp", agentTok, map[string]any{"shopOrderId": soID, "otp": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var delivered orders.Delivery
	a.decode(rec, &delivered)
	assert.Equal(t, models.StatusDelivered, delivered.ShopOrder.Status)

	rec = a.do(http.MethodPost, "/api/order/verify-otp", agentTok, map[string]any{"shopOrderId": soID, "otp": code})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestItemEditSearchAndRating(t *testing.T) {
	a := newAPI(t)
	_, ownerTok := a.signUp("owner", "owner")
	rec := a.do(http.MethodPost, "/api/shop/create-edit", ownerTok, map[string]any{
		"name": "Udupi Grand", "city": "Bengaluru", "latitude": 12.9716, "longitude": 77.5946,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/item/add-item", ownerTok, map[string]any{"name": "Dosa", "price": "50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item models.Item
	a.decode(rec, &item)

	_, buyerTok := a.signUp("buyer", "user")
	edit := map[string]any{"name": "Masala Dosa", "category": "South Indian", "foodType": "veg", "price": "65"}
	rec = a.do(http.MethodPost, "/api/item/edit-item/"+item.ID, buyerTok, edit)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/item/edit-item/"+item.ID, ownerTok, edit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited models.Item
	a.decode(rec, &edited)
	assert.Equal(t, "Masala Dosa", edited.Name)
	assert.Equal(t, "65", edited.Price.String())

	rec = a.do(http.MethodGet, "/api/item/search-items?city=bengaluru&query=south", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var found []models.Item
	a.decode(rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, item.ID, found[0].ID)
	rec = a.do(http.MethodGet, "/api/item/search-items?city=bengaluru", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/item/rating", "", map[string]any{"itemId": item.ID, "rating": 4})
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/item/rating", buyerTok, map[string]any{"itemId": item.ID, "rating": 6})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/item/rating", buyerTok, map[string]any{"itemId": item.ID, "rating": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rated struct {
		Rating models.ItemRating `json:"rating"`
	}
	a.decode(rec, &rated)
	assert.Equal(t, models.ItemRating{Average: 4, Count: 1}, rated.Rating)
}

func TestRequestsAreValidated(t *testing.T) {
	a := newAPI(t)
	_, tok := a.signUp("buyer", "user")

	rec := a.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"fullName": "x", "email": "x@example.com", "password": "secret1", "isAdmin": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = a.do(http.MethodPost, "/api/auth/signup", "", map[string]any{
		"fullName": "x", "email": "x@example.com", "password": "secret1", "role": "superadmin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/order/place-order", tok, `{"paymentMethod":"cod"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/order/place-order", tok, map[string]any{
		"paymentMethod":   "cod",
		"deliveryAddress": map[string]any{"text": "x", "latitude": 1, "longitude": 1},
		"cartItems":       []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/order/verify-otp", tok, map[string]any{"shopOrderId": "so", "otp": "12ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	a.decode(rec, &body)
	assert.Equal(t, "ValidationError", body.Error)
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/order/my-orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodGet, "/api/order/my-orders", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, tok := a.signUp("buyer", "user")
	rec = a.do(http.MethodGet, "/api/user/current", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(http.MethodPost, "/api/auth/signin", "", map[string]any{"email": "buyer@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodPost, "/api/auth/signin", "", map[string]any{"email": "buyer@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// The session cookie alone authenticates.
	req := httptest.NewRequest(http.MethodGet, "/api/order/my-orders", nil)
	req.AddCookie(cookies[0])
	cookieRec := httptest.NewRecorder()
	a.router.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)
	assert.JSONEq(t, "[]", cookieRec.Body.String())

	rec = a.do(http.MethodPost, "/api/order/run-otp-sweep", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/signout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Result().Cookies()
	require.NotEmpty(t, out)
	assert.Less(t, out[0].MaxAge, 0)
}

func TestRunOTPSweepAsSuperAdmin(t *testing.T) {
	a := newAPI(t)
	tok := testutil.GenerateJWTHS256(t, testSecret, "root", "superadmin")
	rec := a.do(http.MethodPost, "/api/order/run-otp-sweep", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res orders.SweepResult
	a.decode(rec, &res)
	assert.Equal(t, orders.SweepResult{}, res)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := map[orders.Kind]int{
		orders.KindValidation:        http.StatusBadRequest,
		orders.KindUnauthenticated:   http.StatusUnauthorized,
		orders.KindForbidden:         http.StatusForbidden,
		orders.KindNotAssigned:       http.StatusForbidden,
		orders.KindNotFound:          http.StatusNotFound,
		orders.KindInvalidTransition: http.StatusConflict,
		orders.KindInvalidState:      http.StatusConflict,
		orders.KindAlreadyAssigned:   http.StatusConflict,
		orders.KindConflict:          http.StatusConflict,
		orders.KindOtpExpired:        http.StatusGone,
		orders.KindOtpMismatch:       http.StatusUnprocessableEntity,
		"":                           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), "kind %q", kind)
	}
}
