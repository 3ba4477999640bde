package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/orders"
)

// Options configures the HTTP API.
type Options struct {
	JWTSecret     string
	TokenTTL      time.Duration
	CookieSecure  bool
	RazorpayKeyID string
	Log           *logrus.Entry
	Now           func() time.Time
}

// Handler serves the marketplace REST API on top of the order service.
type Handler struct {
	svc  *orders.Service
	opts Options
	log  *logrus.Entry
}

func NewHandler(svc *orders.Service, opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{svc: svc, opts: opts, log: opts.Log}
}

// NewRouter wires every route under /api plus /healthz.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth.Middleware(h.opts.JWTSecret))
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signUp)
			r.Post("/signin", h.signIn)
			r.Get("/signout", h.signOut)
		})

		// Public catalog reads.
		r.Get("/shop/get-by-city/{city}", h.shopsByCity)
		r.Get("/item/get-by-city/{city}", h.itemsByCity)
		r.Get("/item/get-by-shop/{shopId}", h.itemsByShop)
		r.Get("/item/search-items", h.searchItems)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.log))

			r.Get("/user/current", h.currentUser)
			r.Post("/user/update-location", h.updateLocation)
			r.Post("/user/availability", h.setAvailability)

			r.Post("/shop/create-edit", h.saveShop)
			r.Get("/shop/get-my", h.myShop)
			r.Get("/shop/{shopId}", h.getShop)

			r.Post("/item/add-item", h.addItem)
			r.Post("/item/edit-item/{itemId}", h.editItem)
			r.Post("/item/rating", h.rateItem)
			r.Get("/item/get-by-id/{itemId}", h.getItem)
			r.Delete("/item/{itemId}", h.deleteItem)

			r.Route("/order", func(r chi.Router) {
				r.Post("/place-order", h.placeOrder)
				r.Post("/verify-payment", h.verifyPayment)
				r.Get("/my-orders", h.myOrders)
				r.Get("/my-assignments", h.myAssignments)
				r.Get("/candidates/{shopOrderId}", h.candidates)
				r.Post("/update-status/{orderId}/{shopId}", h.updateStatus)
				r.Post("/assign-delivery-boy", h.assign)
				r.Post("/verify-otp", h.verifyOTP)
				r.Post("/resend-otp/{shopOrderId}", h.resendOTP)
				r.Post("/run-otp-sweep", h.runOTPSweep)
				r.Delete("/delete-order/{orderId}", h.deleteOrder)
				r.Get("/{orderId}", h.getOrder)
			})
		})
	})
	return r
}
