package interfaces

import (
	"context"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/models"
)

type AccountRepository interface {
	GetAccounts(ctx context.Context, tenant string) ([]*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountsByWorker(ctx context.Context, workerID string) ([]*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) (string, error)
	DeleteAccount(ctx context.Context, id string) error
	UpdateConnectionStatus(ctx context.Context, accountID string, status enum.ConnectionStatus, errorMessage string) error
	UpdateLifecycleState(ctx context.Context, accountID string, state enum.LifecycleState) error
	AssignToWorker(ctx context.Context, accountID, workerID string, generation int64) error
}
