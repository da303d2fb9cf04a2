// Package scheduler runs periodic store maintenance.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Store is the maintenance surface of the repository
type Store interface {
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
	PruneRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}

// Housekeeper clears expired one-time codes and forgets revoked tokens
// that have expired anyway.
type Housekeeper struct {
	store   Store
	log     *logrus.Logger
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

// NewHousekeeper schedules a sweep on spec, a cron expression or "@every 1h"
func NewHousekeeper(store Store, spec string, log *logrus.Logger) (*Housekeeper, error) {
	h := &Housekeeper{
		store:   store,
		log:     log,
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		timeout: time.Minute,
		now:     time.Now,
	}
	if _, err := h.cron.AddFunc(spec, h.sweep); err != nil {
		return nil, fmt.Errorf("invalid housekeeping schedule %q: %w", spec, err)
	}
	return h, nil
}

func (h *Housekeeper) Start() {
	h.cron.Start()
	h.log.Info("Housekeeper started")
}

// Stop waits for a running sweep to finish or ctx to end
func (h *Housekeeper) Stop(ctx context.Context) {
	select {
	case <-h.cron.Stop().Done():
	case <-ctx.Done():
	}
	h.log.Info("Housekeeper stopped")
}

func (h *Housekeeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		h.log.WithError(err).Error("Housekeeping failed")
	}
}

// Run performs one sweep
func (h *Housekeeper) Run(ctx context.Context) error {
	now := h.now()

	otps, err := h.store.ClearExpiredOTPs(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to clear expired otps: %w", err)
	}
	tokens, err := h.store.PruneRevokedTokens(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to prune revoked tokens: %w", err)
	}

	h.log.WithFields(logrus.Fields{
		"expired_otps":  otps,
		"pruned_tokens": tokens,
	}).Info("Housekeeping done")
	return nil
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
