package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/orders"
)

const defaultSweepInterval = 2 * time.Hour

// Sweeper regenerates stale delivery codes. *orders.Service implements it.
type Sweeper interface {
	RunOTPSweep(ctx context.Context) (orders.SweepResult, error)
}

// OTPSweepWorker periodically replaces missing or expired delivery codes.
// Overlapping runs are safe: every replacement is conditional on the old code.
type OTPSweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	log      *logrus.Entry
}

func NewOTPSweepWorker(sweeper Sweeper, interval time.Duration, log *logrus.Entry) *OTPSweepWorker {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &OTPSweepWorker{sweeper: sweeper, interval: interval, log: log}
}

// Start runs a sweep on every tick until ctx is cancelled. It blocks.
func (w *OTPSweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("otp sweep worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("otp sweep worker stopped")
			return
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep. A panic inside the sweep is logged and reported as an error
// so the next tick still runs.
func (w *OTPSweepWorker) RunOnce(ctx context.Context) (res orders.SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("otp sweep panicked")
			err = fmt.Errorf("otp sweep panic: %v", r)
		}
	}()
	res, err = w.sweeper.RunOTPSweep(ctx)
	if err != nil {
		w.log.WithError(err).Error("otp sweep failed")
		return res, err
	}
	if res.Regenerated > 0 || res.Failed > 0 {
		w.log.WithFields(logrus.Fields{
			"regenerated": res.Regenerated,
			"skipped":     res.Skipped,
			"failed":      res.Failed,
		}).Info("otp sweep regenerated codes")
	}
	return res, nil
}
