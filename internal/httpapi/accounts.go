package httpapi

import (
	"net/http"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/orders"
	"foodDeliveryMarketplace/models"
)

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	u, err := h.svc.SignUp(r.Context(), orders.SignUpInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.startSession(w, u); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	u, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.startSession(w, u); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearedCookie(h.opts.CookieSecure))
	writeMessage(w, http.StatusOK, "signed out")
}

// startSession issues a token for u and sets it as the session cookie. The token
// is also echoed in a header for non-browser clients.
func (h *Handler) startSession(w http.ResponseWriter, u *models.User) error {
	tok, err := auth.IssueToken(h.opts.JWTSecret, auth.Principal{UserID: u.ID, Role: u.Role}, h.opts.TokenTTL, h.opts.Now())
	if err != nil {
		return err
	}
	http.SetCookie(w, auth.SessionCookie(tok, h.opts.TokenTTL, h.opts.CookieSecure))
	w.Header().Set("X-Auth-Token", tok)
	return nil
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.CurrentUser(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.svc.UpdateLocation(r.Context(), principal(r), *req.Lat, *req.Lng); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "location updated")
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.svc.SetAvailability(r.Context(), principal(r), *req.Available); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isAvailable": *req.Available})
}
