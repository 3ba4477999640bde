package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodDeliveryMarketplace/internal/orders"
)

func (h *Handler) saveShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	shop, err := h.svc.SaveShop(r.Context(), principal(r), orders.ShopInput{
		Name:    req.Name,
		City:    req.City,
		Address: req.Address,
		Lat:     req.Lat,
		Lng:     req.Lng,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (h *Handler) myShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.svc.MyShop(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.svc.GetShop(r.Context(), chi.URLParam(r, "shopId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (h *Handler) shopsByCity(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ShopsByCity(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	it, err := h.svc.AddItem(r.Context(), principal(r), req.input())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *Handler) editItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	it, err := h.svc.EditItem(r.Context(), principal(r), chi.URLParam(r, "itemId"), req.input())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) rateItem(w http.ResponseWriter, r *http.Request) {
	var req rateItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	rating, err := h.svc.RateItem(r.Context(), principal(r), req.ItemID, req.Rating)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rating": rating})
}

func (h *Handler) searchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.SearchItems(r.Context(), q.Get("city"), q.Get("query"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.Context(), principal(r), chi.URLParam(r, "itemId")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "item deleted")
}

func (h *Handler) itemsByShop(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ItemsByShop(r.Context(), chi.URLParam(r, "shopId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) itemsByCity(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ItemsByCity(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
