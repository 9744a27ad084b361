package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/repository"
	"github.com/mailbridge/syncstack/internal/tracing"
)

// accountWorker is the Supervisor for a single Account: it holds the
// reconnect loop and fans folder work out to one folderSyncUnit goroutine
// per IMAP folder.
type accountWorker struct {
	account *models.Account
	db      *gorm.DB
	repos   *repository.Repositories
	pool    *Pool
	cfg     workerConfig
	log     logger.Logger

	mu      sync.Mutex
	status  interfaces.AccountStatus
	cancel  context.CancelFunc
	stopped chan struct{}
}

type workerConfig struct {
	maxSessionsPerAccount int
	folderSync            folderSyncConfig
	reconnectBaseBackoff  time.Duration
	reconnectMaxBackoff   time.Duration
}

func newAccountWorker(account *models.Account, db *gorm.DB, repos *repository.Repositories, pool *Pool, cfg workerConfig, log logger.Logger) *accountWorker {
	return &accountWorker{
		account: account,
		db:      db,
		repos:   repos,
		pool:    pool,
		cfg:     cfg,
		log:     log,
		status: interfaces.AccountStatus{
			ConnectionStatus: enum.ConnectionStatusUnknown,
			LifecycleState:   account.LifecycleState,
			Folders:          make(map[string]interfaces.FolderStatus),
		},
		stopped: make(chan struct{}),
	}
}

func (w *accountWorker) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(ctx)
}

func (w *accountWorker) stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-w.stopped
}

func (w *accountWorker) snapshot() interfaces.AccountStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	folders := make(map[string]interfaces.FolderStatus, len(w.status.Folders))
	for k, v := range w.status.Folders {
		folders[k] = v
	}
	status := w.status
	status.Folders = folders
	return status
}

func (w *accountWorker) run(ctx context.Context) {
	defer close(w.stopped)
	defer tracing.RecoverAndLogToJaeger(w.log)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := w.syncOnce(ctx)
		if err == nil {
			attempt = 0
			continue
		}

		if isAuthError(err) {
			w.log.Errorf("account %s: invalid credentials: %v", w.account.ID, err)
			w.setConnectionStatus(enum.ConnectionStatusAuthFailed, err.Error())
			_ = w.repos.AccountRepository.UpdateConnectionStatus(ctx, w.account.ID, enum.ConnectionStatusAuthFailed, err.Error())
			_ = w.repos.AccountRepository.UpdateLifecycleState(ctx, w.account.ID, enum.LifecycleStateSuspended)
			if enqErr := enqueueAccountInvalidCredentials(ctx, w.db, w.repos, w.account, err.Error()); enqErr != nil {
				w.log.Errorf("account %s: enqueue invalid_credentials: %v", w.account.ID, enqErr)
			}
			// Invalid credentials won't fix themselves on a timer: quiesce
			// this worker until an operator reconnects the account.
			return
		}

		w.log.Errorf("account %s: %v", w.account.ID, err)
		w.setConnectionStatus(enum.ConnectionStatusDisconnected, err.Error())
		_ = w.repos.AccountRepository.UpdateConnectionStatus(ctx, w.account.ID, enum.ConnectionStatusDisconnected, err.Error())

		delay := fullJitterBackoff(w.cfg.reconnectBaseBackoff, w.cfg.reconnectMaxBackoff, attempt)
		attempt++

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// enqueueAccountInvalidCredentials records account.invalid_credentials for
// every enabled subscription listening for it. Unlike the folder sync
// enqueues this has no triggering row update to share a transaction with,
// so it commits its own.
func enqueueAccountInvalidCredentials(ctx context.Context, db *gorm.DB, repos *repository.Repositories, account *models.Account, reason string) error {
	payload, err := buildAccountInvalidCredentialsPayload(account, reason)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return enqueueEvent(ctx, tx, repos, account, models.TriggerAccountInvalidCredentials, payload)
	})
}

// syncOnce borrows a session to resolve the folder set to track, then runs
// every folder's sync unit concurrently, each over its own pooled IMAP
// session, until one fails or ctx is canceled. Folders are synced on
// distinct connections because SELECT is per-connection state: two folders
// can't share one session and both stay selected.
func (w *accountWorker) syncOnce(ctx context.Context) error {
	listConn, err := w.pool.Borrow(ctx, w.account)
	if err != nil {
		return err
	}

	w.setConnectionStatus(enum.ConnectionStatusConnected, "")
	_ = w.repos.AccountRepository.UpdateConnectionStatus(ctx, w.account.ID, enum.ConnectionStatusConnected, "")
	if w.account.LifecycleState == enum.LifecycleStatePending {
		_ = w.repos.AccountRepository.UpdateLifecycleState(ctx, w.account.ID, enum.LifecycleStateBackfilling)
	}

	names, err := listFolders(listConn, w.account.SyncFolders)
	if err != nil {
		w.pool.Discard(w.account.ID, listConn)
		return err
	}
	w.pool.Put(w.account.ID, listConn)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	folderCtx, cancelFolders := context.WithCancel(ctx)
	defer cancelFolders()

	sem := make(chan struct{}, w.cfg.maxSessionsPerAccount)

	for _, name := range names {
		folder, err := w.loadOrCreateFolder(ctx, name)
		if err != nil {
			return err
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(folder *models.Folder) {
			defer wg.Done()
			defer func() { <-sem }()
			defer tracing.RecoverAndLogToJaeger(w.log)

			conn, err := w.pool.Borrow(folderCtx, w.account)
			if err != nil {
				if folderCtx.Err() == nil {
					errOnce.Do(func() {
						firstErr = err
						cancelFolders()
					})
				}
				return
			}

			unit := &folderSyncUnit{
				account: w.account,
				folder:  folder,
				conn:    conn,
				db:      w.db,
				repos:   w.repos,
				cfg:     w.cfg.folderSync,
				log:     w.log,
			}
			w.setFolderStatus(folder)

			runErr := unit.run(folderCtx)
			if runErr != nil {
				w.pool.Discard(w.account.ID, conn)
			} else {
				w.pool.Put(w.account.ID, conn)
			}

			if runErr != nil && folderCtx.Err() == nil {
				errOnce.Do(func() {
					firstErr = runErr
					cancelFolders()
				})
			}
		}(folder)
	}

	wg.Wait()

	if folderCtx.Err() != nil && ctx.Err() == nil && firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (w *accountWorker) loadOrCreateFolder(ctx context.Context, name string) (*models.Folder, error) {
	folder, err := w.repos.FolderRepository.GetFolder(ctx, w.account.ID, name)
	if err != nil && err != repository.ErrFolderNotFound {
		return nil, err
	}
	if folder != nil {
		return folder, nil
	}

	folder = &models.Folder{
		AccountID: w.account.ID,
		Name:      name,
		SyncState: enum.FolderSyncStateNew,
	}
	if _, err := w.repos.FolderRepository.SaveFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (w *accountWorker) setConnectionStatus(status enum.ConnectionStatus, lastErr string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Connected = status == enum.ConnectionStatusConnected
	w.status.ConnectionStatus = status
	w.status.LastError = lastErr
	w.status.LastChecked = time.Now()
}

func (w *accountWorker) setFolderStatus(folder *models.Folder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Folders[folder.Name] = interfaces.FolderStatus{
		UIDValidity:   folder.UIDValidity,
		UIDNext:       folder.UIDNext,
		HighestModSeq: folder.HighestModSeq,
		SyncState:     folder.SyncState,
	}
}

// listFolders resolves the account's tracked folder set: an explicit
// allowlist when SyncFolders is set, otherwise every selectable mailbox the
// server reports.
func listFolders(conn *client.Client, allow []string) ([]string, error) {
	if len(allow) > 0 {
		return allow, nil
	}

	mailboxes := make(chan *imap.MailboxInfo, 16)
	listErr := make(chan error, 1)
	go func() { listErr <- conn.List("", "*", mailboxes) }()

	var names []string
	for m := range mailboxes {
		if hasAttribute(m.Attributes, imap.NoSelectAttr) {
			continue
		}
		names = append(names, m.Name)
	}

	if err := <-listErr; err != nil {
		return nil, err
	}
	return names, nil
}

func hasAttribute(attrs []string, target string) bool {
	for _, a := range attrs {
		if a == target {
			return true
		}
	}
	return false
}
