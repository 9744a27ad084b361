package interfaces

import (
	"context"
	"time"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/models"
)

// SyncEngine is the facade the server process drives: it owns every
// Supervisor/Folder Sync Unit goroutine for the accounts assigned to this
// worker, plus (on whichever worker holds leadership) the Cluster
// Coordinator loop.
type SyncEngine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	AddAccount(ctx context.Context, account *models.Account) error
	RemoveAccount(ctx context.Context, accountID string) error
	Status() map[string]AccountStatus
}

type AccountStatus struct {
	Connected        bool
	ConnectionStatus enum.ConnectionStatus
	LifecycleState   enum.LifecycleState
	LastError        string
	Folders          map[string]FolderStatus
	LastChecked      time.Time
}

type FolderStatus struct {
	UIDValidity   uint32
	UIDNext       uint32
	HighestModSeq uint64
	SyncState     enum.FolderSyncState
	LastPolledAt  time.Time
}
