package prices

import (
	"context"
	"sync"
	"time"

	"github.com/hashbridge/ledger-gateway/internal/system"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher drives the price cache on a fixed period, independent of
// request traffic. It refreshes once eagerly at start, then on every tick
// until stopped.
type Refresher struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed refresher.
func NewRefresher(service *Service, interval time.Duration, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("prices-refresher")
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{service: service, log: log, interval: interval}
}

func (r *Refresher) Name() string { return "price-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.tick(runCtx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.WithField("interval", r.interval.String()).Info("price refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("price refresher stopped")
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := r.service.RefreshOnce(tickCtx); err != nil {
		r.log.WithError(err).Warn("price refresh failed; previous cache retained")
	}
}
