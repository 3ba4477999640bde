// Package notify pushes order events to the users they concern.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType names a pushed event.
type EventType string

const (
	EventOrderPlaced     EventType = "order.placed"
	EventOrderPaid       EventType = "order.paid"
	EventStatusUpdated   EventType = "order.status_updated"
	EventDeliveryOffered EventType = "order.delivery_offered"
	EventAssigned        EventType = "order.assigned"
	EventDelivered       EventType = "order.delivered"
	EventOTPRegenerated  EventType = "order.otp_regenerated"
	EventCancelled       EventType = "order.cancelled"
	EventDeleted         EventType = "order.deleted"
)

// Emitter delivers an event to connected users. Implementations must not block for long.
type Emitter interface {
	Emit(ctx context.Context, event EventType, recipientIDs []string, payload any) error
}

// Envelope is the message a subscriber receives.
type Envelope struct {
	Event     EventType `json:"event"`
	Recipient string    `json:"recipient"`
	Payload   any       `json:"payload"`
	SentAt    time.Time `json:"sentAt"`
}

// LogEmitter writes events to the log. It is the fallback when no real-time transport is configured.
type LogEmitter struct {
	Log *logrus.Entry
}

func (e LogEmitter) Emit(ctx context.Context, event EventType, recipientIDs []string, payload any) error {
	log := e.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.WithFields(logrus.Fields{
		"event":      event,
		"recipients": recipientIDs,
	}).Info("notification")
	return nil
}

// MultiEmitter fans an event out to several emitters and joins their errors.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, event EventType, recipientIDs []string, payload any) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event, recipientIDs, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
