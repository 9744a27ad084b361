package syncengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/mailbridge/syncstack/internal/models"
)

// pooledConn is a session held in a Pool, tagged with the time it was last
// handed back so idle ones can be evicted instead of reused forever.
type pooledConn struct {
	client   *client.Client
	returned time.Time
}

// accountPool is the bounded slice of idle sessions for one account.
type accountPool struct {
	mu    sync.Mutex
	idle  []*pooledConn
	count int // total sessions (idle + borrowed) attributed to this account
}

// Pool is per-account bounded IMAP connection reuse, generalized from the
// lorduskordus-aerion pool.go pattern: Borrow opens a new session through
// dialAccount (gated by a Limiter) when no idle one is available and
// discards idle sessions that are older than idleTTL or fail Noop; Put
// returns a session for reuse unless the account's pool is full.
type Pool struct {
	capacity   int
	idleTTL    time.Duration
	dialTimeout time.Duration
	limiter    *Limiter

	mu       sync.Mutex
	accounts map[string]*accountPool
}

func NewPool(capacity int, idleTTL, dialTimeout time.Duration, limiter *Limiter) *Pool {
	return &Pool{
		capacity:    capacity,
		idleTTL:     idleTTL,
		dialTimeout: dialTimeout,
		limiter:     limiter,
		accounts:    make(map[string]*accountPool),
	}
}

func (p *Pool) forAccount(accountID string) *accountPool {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[accountID]
	if !ok {
		a = &accountPool{}
		p.accounts[accountID] = a
	}
	return a
}

// Borrow returns a live IMAP session for account, reusing an idle one from
// the pool when available and still healthy, otherwise dialing a fresh
// session gated by the pool's Limiter. The Limiter slot is released as
// soon as the dial returns, so it bounds concurrent dials per host, not the
// number of open sessions.
func (p *Pool) Borrow(ctx context.Context, account *models.Account) (*client.Client, error) {
	ap := p.forAccount(account.ID)

	for {
		ap.mu.Lock()
		if len(ap.idle) == 0 {
			ap.mu.Unlock()
			break
		}
		pc := ap.idle[len(ap.idle)-1]
		ap.idle = ap.idle[:len(ap.idle)-1]
		ap.mu.Unlock()

		if time.Since(pc.returned) > p.idleTTL || pc.client.Noop() != nil {
			pc.client.Logout()
			ap.mu.Lock()
			ap.count--
			ap.mu.Unlock()
			continue
		}
		return pc.client, nil
	}

	release, err := p.limiter.Acquire(ctx, account.ImapHost)
	if err != nil {
		return nil, fmt.Errorf("acquire connection slot for %s: %w", account.ImapHost, err)
	}
	defer release()

	c, err := dialAccount(account, p.dialTimeout)
	if err != nil {
		return nil, err
	}

	ap.mu.Lock()
	ap.count++
	ap.mu.Unlock()
	return c, nil
}

// Put returns a session to the account's idle pool, or discards it when the
// pool is already at capacity.
func (p *Pool) Put(accountID string, c *client.Client) {
	ap := p.forAccount(accountID)

	ap.mu.Lock()
	defer ap.mu.Unlock()

	if len(ap.idle) >= p.capacity {
		ap.count--
		ap.mu.Unlock()
		c.Logout()
		ap.mu.Lock()
		return
	}
	ap.idle = append(ap.idle, &pooledConn{client: c, returned: time.Now()})
}

// Discard drops a session that is known broken without returning it to the
// idle pool.
func (p *Pool) Discard(accountID string, c *client.Client) {
	ap := p.forAccount(accountID)
	ap.mu.Lock()
	ap.count--
	ap.mu.Unlock()
	c.Logout()
}
