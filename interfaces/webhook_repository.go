package interfaces

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/models"
)

type WebhookSubscriptionRepository interface {
	GetSubscription(ctx context.Context, id string) (*models.WebhookSubscription, error)
	ListByTenant(ctx context.Context, tenant string) ([]*models.WebhookSubscription, error)
	ListSubscribed(ctx context.Context, trigger models.WebhookTrigger) ([]*models.WebhookSubscription, error)
	Save(ctx context.Context, sub *models.WebhookSubscription) (string, error)
	Delete(ctx context.Context, id string) error
}

type WebhookDeliveryRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, delivery *models.WebhookDelivery) error
	GetByID(ctx context.Context, id string) (*models.WebhookDelivery, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.WebhookDelivery, error)
	MarkDelivered(ctx context.Context, id string, httpStatus int) error
	MarkRetry(ctx context.Context, id string, httpStatus int, lastErr string, nextAttemptAt time.Time) error
	MarkTerminal(ctx context.Context, id string, state enum.WebhookDeliveryState, httpStatus int, lastErr string) error
}
