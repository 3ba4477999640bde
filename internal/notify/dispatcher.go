package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher sends notifications in the background after a change is committed.
// Failures are logged and never reach the caller. A nil *Dispatcher drops everything.
type Dispatcher struct {
	emitter Emitter
	timeout time.Duration
	log     *logrus.Entry
	wg      sync.WaitGroup
}

func NewDispatcher(emitter Emitter, timeout time.Duration, log *logrus.Entry) *Dispatcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{emitter: emitter, timeout: timeout, log: log}
}

// Notify pushes event to the distinct non-empty recipients. It returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, event EventType, recipientIDs []string, payload any) {
	if d == nil || d.emitter == nil {
		return
	}
	recipients := dedupe(recipientIDs)
	if len(recipients) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.WithField("event", event).Errorf("notification panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		if err := d.emitter.Emit(ctx, event, recipients, payload); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"event":      event,
				"recipients": len(recipients),
			}).Warn("notification failed")
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
