package interfaces

import (
	"context"
	"time"

	"github.com/mailbridge/syncstack/internal/models"
)

type WorkerLeaseRepository interface {
	Heartbeat(ctx context.Context, workerID string, assignedAccounts []string) (*models.WorkerLease, error)
	ListLeases(ctx context.Context) ([]*models.WorkerLease, error)
	TryAcquireLeadership(ctx context.Context, workerID string, ttl time.Duration) (bool, error)
	ReleaseLeadership(ctx context.Context, workerID string) error
	DeleteLease(ctx context.Context, workerID string) error
}
