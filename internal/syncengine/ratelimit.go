package syncengine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// hostLimiter gates one IMAP host: a fixed concurrent-session ceiling plus a
// max-new-connection rate, so a burst of reconnects from many accounts on
// the same server can't trip its abuse detection. Generalized from the
// bdobrica-Ruriko fixed-window rateLimiter into a two-bound, deadline-aware
// gate with FIFO waiters.
type hostLimiter struct {
	maxConcurrent   int
	newConnWindow   time.Duration
	maxNewPerWindow int

	mu          sync.Mutex
	inFlight    int
	waiters     []chan struct{}
	windowStart time.Time
	windowCount int
}

// Limiter owns one hostLimiter per IMAP host.
type Limiter struct {
	maxConcurrentPerHost int
	newConnWindow        time.Duration
	maxNewPerWindow      int

	mu    sync.Mutex
	hosts map[string]*hostLimiter
}

func NewLimiter(maxConcurrentPerHost, maxNewPerWindow int, newConnWindow time.Duration) *Limiter {
	return &Limiter{
		maxConcurrentPerHost: maxConcurrentPerHost,
		newConnWindow:        newConnWindow,
		maxNewPerWindow:      maxNewPerWindow,
		hosts:                make(map[string]*hostLimiter),
	}
}

func (l *Limiter) forHost(host string) *hostLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.hosts[host]
	if !ok {
		h = &hostLimiter{
			maxConcurrent:   l.maxConcurrentPerHost,
			newConnWindow:   l.newConnWindow,
			maxNewPerWindow: l.maxNewPerWindow,
		}
		l.hosts[host] = h
	}
	return h
}

// Acquire blocks until a session slot and a new-connection token for host are
// both available, or ctx is canceled. release must be called exactly once
// when the caller is done with the session.
func (l *Limiter) Acquire(ctx context.Context, host string) (release func(), err error) {
	h := l.forHost(host)

	if err := h.waitForRateToken(ctx); err != nil {
		return nil, err
	}
	if err := h.waitForSlot(ctx); err != nil {
		return nil, err
	}

	return func() { h.release() }, nil
}

func (h *hostLimiter) waitForRateToken(ctx context.Context) error {
	for {
		h.mu.Lock()
		now := time.Now()
		if h.windowStart.IsZero() || now.Sub(h.windowStart) >= h.newConnWindow {
			h.windowStart = now
			h.windowCount = 0
		}
		if h.windowCount < h.maxNewPerWindow {
			h.windowCount++
			h.mu.Unlock()
			return nil
		}
		wait := h.newConnWindow - now.Sub(h.windowStart)
		h.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (h *hostLimiter) waitForSlot(ctx context.Context) error {
	h.mu.Lock()
	if h.inFlight < h.maxConcurrent {
		h.inFlight++
		h.mu.Unlock()
		return nil
	}
	wait := make(chan struct{})
	h.waiters = append(h.waiters, wait)
	h.mu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *hostLimiter) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.waiters) > 0 {
		next := h.waiters[0]
		h.waiters = h.waiters[1:]
		close(next)
		return
	}
	h.inFlight--
}
