package syncengine

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/config"
	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/repository"
	"github.com/mailbridge/syncstack/internal/tracing"
)

// Engine is the process-level facade described by interfaces.SyncEngine: it
// owns every accountWorker running on this process, heartbeats its own
// WorkerLease, and runs the Cluster Coordinator whenever it holds
// leadership.
type Engine struct {
	workerID string
	db       *gorm.DB
	repos    *repository.Repositories
	cfg      *config.SyncEngineConfig
	log      logger.Logger

	limiter *Limiter
	pool    *Pool

	mu       sync.Mutex
	workers  map[string]*accountWorker
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewEngine(workerID string, db *gorm.DB, repos *repository.Repositories, cfg *config.SyncEngineConfig, log logger.Logger) *Engine {
	limiter := NewLimiter(cfg.MaxConnectionsPerServer, cfg.MaxNewConnectionsPerWindow, cfg.NewConnectionWindow)
	return &Engine{
		workerID: workerID,
		db:       db,
		repos:    repos,
		cfg:      cfg,
		log:      log,
		limiter:  limiter,
		pool:     NewPool(cfg.ConnPoolCapacityPerAccount, cfg.ConnPoolIdleTTL, cfg.CommandTimeout, limiter),
		workers:  make(map[string]*accountWorker),
	}
}

func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	accounts, err := e.repos.AccountRepository.GetAccountsByWorker(runCtx, e.workerID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		e.addAccountLocked(runCtx, account)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer tracing.RecoverAndLogToJaeger(e.log)
		e.heartbeatLoop(runCtx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer tracing.RecoverAndLogToJaeger(e.log)
		coord := newCoordinator(e.workerID, e.repos, coordinatorConfig{
			leaseTTL:          e.cfg.LeaseTTL,
			heartbeatInterval: e.cfg.HeartbeatInterval,
			rebalanceInterval: e.cfg.RebalanceInterval,
		}, e.log)
		coord.run(runCtx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer tracing.RecoverAndLogToJaeger(e.log)
		e.rebalanceWatchLoop(runCtx)
	}()

	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	workers := make([]*accountWorker, 0, len(e.workers))
	for _, w := range e.workers {
		workers = append(workers, w)
	}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, w := range workers {
		w.stop()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	return e.repos.WorkerLeaseRepository.DeleteLease(context.Background(), e.workerID)
}

func (e *Engine) AddAccount(ctx context.Context, account *models.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addAccountLocked(ctx, account)
	return nil
}

func (e *Engine) addAccountLocked(ctx context.Context, account *models.Account) {
	if _, ok := e.workers[account.ID]; ok {
		return
	}
	w := newAccountWorker(account, e.db, e.repos, e.pool, workerConfig{
		maxSessionsPerAccount: e.cfg.MaxSessionsPerAccount,
		folderSync: folderSyncConfig{
			backfillBatchSize: e.cfg.BackfillBatchSize,
			idleRenewalWindow: e.cfg.IdleRenewalInterval,
			commandTimeout:    e.cfg.CommandTimeout,
		},
		reconnectBaseBackoff: e.cfg.ReconnectBaseBackoff,
		reconnectMaxBackoff:  e.cfg.ReconnectMaxBackoff,
	}, e.log)
	e.workers[account.ID] = w

	ctxForWorker := context.Background()
	_ = ctx
	w.start(ctxForWorker)
}

func (e *Engine) RemoveAccount(ctx context.Context, accountID string) error {
	e.mu.Lock()
	w, ok := e.workers[accountID]
	if ok {
		delete(e.workers, accountID)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	w.stop()
	return nil
}

func (e *Engine) Status() map[string]interfaces.AccountStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := make(map[string]interfaces.AccountStatus, len(e.workers))
	for id, w := range e.workers {
		status[id] = w.snapshot()
	}
	return status
}

func (e *Engine) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			ids := make([]string, 0, len(e.workers))
			for id := range e.workers {
				ids = append(ids, id)
			}
			e.mu.Unlock()

			if _, err := e.repos.WorkerLeaseRepository.Heartbeat(ctx, e.workerID, ids); err != nil {
				e.log.Errorf("heartbeat: %v", err)
			}
		}
	}
}

// rebalanceWatchLoop periodically notices accounts the Cluster Coordinator
// has reassigned to this worker (or away from it) and converges the local
// worker set to match.
func (e *Engine) rebalanceWatchLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.RebalanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			assigned, err := e.repos.AccountRepository.GetAccountsByWorker(ctx, e.workerID)
			if err != nil {
				e.log.Errorf("rebalance watch: %v", err)
				continue
			}

			wanted := make(map[string]*models.Account, len(assigned))
			for _, a := range assigned {
				wanted[a.ID] = a
			}

			e.mu.Lock()
			for id, account := range wanted {
				if _, ok := e.workers[id]; !ok {
					e.addAccountLocked(ctx, account)
				}
			}
			var toRemove []string
			for id := range e.workers {
				if _, ok := wanted[id]; !ok {
					toRemove = append(toRemove, id)
				}
			}
			e.mu.Unlock()

			for _, id := range toRemove {
				_ = e.RemoveAccount(ctx, id)
			}
		}
	}
}
