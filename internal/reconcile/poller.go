package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
)

// Poller fires tick on a fixed interval. It does no I/O itself; tick is
// expected to hand work to the control loop and return.
type Poller struct {
	interval time.Duration
	tick     func()
	logger   zerolog.Logger

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	reset   chan struct{}
	wg      sync.WaitGroup
}

// NewPoller creates a poller. An interval of zero or less disables it:
// Start succeeds but never arms a timer.
func NewPoller(interval time.Duration, tick func()) *Poller {
	return &Poller{
		interval: interval,
		tick:     tick,
		logger:   logging.Component("poller"),
		reset:    make(chan struct{}, 1),
	}
}

// Enabled reports whether the poller will ever tick.
func (p *Poller) Enabled() bool {
	return p.interval > 0 && p.tick != nil
}

// Interval returns the configured interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}
	p.running = true

	if !p.Enabled() {
		p.logger.Info().Msg("polling disabled")
		p.cancel = func() {}
		return nil
	}

	var loopCtx context.Context
	loopCtx, p.cancel = context.WithCancel(ctx)

	p.logger.Info().Dur("interval", p.interval).Msg("poller starting")

	p.wg.Add(1)
	go p.runLoop(loopCtx)
	return nil
}

// Stop halts the polling loop.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Reset restarts the countdown so the next tick is a full interval away.
// It is called when focus moves to another space.
func (p *Poller) Reset() {
	if !p.Enabled() {
		return
	}
	select {
	case p.reset <- struct{}{}:
	default:
	}
}

func (p *Poller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.interval)
		case <-timer.C:
			p.tick()
			timer.Reset(p.interval)
		}
	}
}
