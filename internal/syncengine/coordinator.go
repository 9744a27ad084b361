package syncengine

import (
	"context"
	"time"

	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/repository"
)

// coordinator is the Cluster Coordinator: on whichever worker currently
// holds the Postgres-row leadership lease, it periodically recomputes
// account-to-worker assignment over the live worker set and writes the
// result back onto each Account row. Workers notice a reassignment the next
// time their rebalance-watch loop reads their own assigned accounts.
type coordinator struct {
	workerID string
	repos    *repository.Repositories
	cfg      coordinatorConfig
	log      logger.Logger
	ring     *boundedHashRing
}

type coordinatorConfig struct {
	leaseTTL          time.Duration
	heartbeatInterval time.Duration
	rebalanceInterval time.Duration
}

func newCoordinator(workerID string, repos *repository.Repositories, cfg coordinatorConfig, log logger.Logger) *coordinator {
	return &coordinator{
		workerID: workerID,
		repos:    repos,
		cfg:      cfg,
		log:      log,
		ring:     newBoundedHashRing(1.1),
	}
}

func (c *coordinator) run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.rebalanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.repos.WorkerLeaseRepository.ReleaseLeadership(context.Background(), c.workerID)
			return
		case <-ticker.C:
			won, err := c.repos.WorkerLeaseRepository.TryAcquireLeadership(ctx, c.workerID, c.cfg.leaseTTL)
			if err != nil {
				c.log.Errorf("coordinator: acquire leadership: %v", err)
				continue
			}
			if !won {
				continue
			}
			if err := c.rebalance(ctx); err != nil {
				c.log.Errorf("coordinator: rebalance: %v", err)
			}
		}
	}
}

func (c *coordinator) rebalance(ctx context.Context) error {
	leases, err := c.repos.WorkerLeaseRepository.ListLeases(ctx)
	if err != nil {
		return err
	}

	live := make([]string, 0, len(leases))
	for _, lease := range leases {
		if !lease.IsStale(c.cfg.heartbeatInterval, time.Now()) {
			live = append(live, lease.WorkerID)
		}
	}
	if len(live) == 0 {
		live = []string{c.workerID}
	}

	accounts, err := c.repos.AccountRepository.GetAccounts(ctx, "")
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}

	assignment := c.ring.Assign(live, ids)

	for _, a := range accounts {
		target, ok := assignment[a.ID]
		if !ok || target == a.AssignedWorkerID {
			continue
		}
		if err := c.repos.AccountRepository.AssignToWorker(ctx, a.ID, target, a.AssignedGeneration+1); err != nil {
			c.log.Errorf("coordinator: reassign account %s to %s: %v", a.ID, target, err)
		}
	}

	return nil
}
