package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// throttle enforces a minimum interval between consecutive API attempts.
// One throttle is shared by every fetch made through an apiClient, whatever
// the host.
type throttle struct {
	lim   *rate.Limiter
	sleep func(context.Context, time.Duration) error
	log   *logger
}

func newThrottle(minInterval time.Duration, log *logger) *throttle {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &throttle{
		lim:   rate.NewLimiter(limit, 1),
		sleep: sleepCtx,
		log:   log,
	}
}

// wait blocks until the next attempt is allowed.
func (t *throttle) wait(ctx context.Context) error {
	r := t.lim.Reserve()
	d := r.Delay()
	if d <= 0 {
		return nil
	}
	t.log.debugf("throttle: sleeping %s", d.Round(10*time.Millisecond))
	if err := t.sleep(ctx, d); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tm.C:
		return nil
	}
}
