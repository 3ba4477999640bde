package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/orders"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(kind orders.Kind) int {
	switch kind {
	case orders.KindValidation:
		return http.StatusBadRequest
	case orders.KindUnauthenticated:
		return http.StatusUnauthorized
	case orders.KindForbidden, orders.KindNotAssigned:
		return http.StatusForbidden
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindInvalidTransition, orders.KindInvalidState, orders.KindAlreadyAssigned, orders.KindConflict:
		return http.StatusConflict
	case orders.KindOtpExpired:
		return http.StatusGone
	case orders.KindOtpMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError renders err. Domain errors keep their message; anything else is logged
// and reported as a bare internal error.
func writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	var de *orders.Error
	if errors.As(err, &de) {
		writeJSON(w, statusFor(de.Kind), errorResponse{Error: string(de.Kind), Message: de.Message})
		return
	}
	log.WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal", Message: "internal server error"})
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data, then
// runs struct validation. Failures come back as validation errors.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &orders.Error{Kind: orders.KindValidation, Message: "invalid body: " + err.Error()}
	}
	if dec.More() {
		return &orders.Error{Kind: orders.KindValidation, Message: "invalid body: trailing data"}
	}
	if err := validate.Struct(v); err != nil {
		return &orders.Error{Kind: orders.KindValidation, Message: describe(err)}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
