package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodDeliveryMarketplace/internal/orders"
	"foodDeliveryMarketplace/models"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	o, err := h.svc.PlaceOrder(r.Context(), principal(r), req.input())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	resp := placeOrderResponse{Order: o}
	if o.PaymentMethod == models.PaymentOnline {
		resp.RazorpayOrderID = o.RazorpayOrderID
		resp.RazorpayKeyID = h.opts.RazorpayKeyID
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	o, err := h.svc.VerifyPayment(r.Context(), principal(r), orders.VerifyPaymentInput{
		RazorpayOrderID: req.RazorpayOrderID,
		PaymentID:       req.RazorpayPaymentID,
		Signature:       req.RazorpaySignature,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMyOrders(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), principal(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.svc.UpdateStatus(r.Context(), principal(r),
		chi.URLParam(r, "orderId"), chi.URLParam(r, "shopId"), models.ShopOrderStatus(req.Status))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListCandidates(r.Context(), principal(r), chi.URLParam(r, "shopOrderId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.svc.Assign(r.Context(), principal(r), req.ShopOrderID, req.DeliveryBoyID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) myAssignments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAgentAssignments(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), principal(r), req.ShopOrderID, req.OTP)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResendOTP(r.Context(), principal(r), chi.URLParam(r, "shopOrderId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// runOTPSweep triggers the code sweep on demand. Super admins only.
func (h *Handler) runOTPSweep(w http.ResponseWriter, r *http.Request) {
	if !principal(r).IsSuperAdmin() {
		writeError(w, h.log, &orders.Error{Kind: orders.KindForbidden, Message: "super admin only"})
		return
	}
	res, err := h.svc.RunOTPSweep(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrder(r.Context(), principal(r), chi.URLParam(r, "orderId")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "order deleted")
}
