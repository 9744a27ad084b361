package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/tracing"
)

type webhookDeliveryRepository struct {
	db *gorm.DB
}

func NewWebhookDeliveryRepository(db *gorm.DB) interfaces.WebhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db}
}

// CreateInTx inserts a delivery row in the same transaction as the message
// index upsert that triggered it, so a crash between the two never loses a
// notification and never double-sends one.
func (r *webhookDeliveryRepository) CreateInTx(ctx context.Context, tx *gorm.DB, delivery *models.WebhookDelivery) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookDeliveryRepository.CreateInTx")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := tx.WithContext(ctx).Create(delivery).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}

	return nil
}

func (r *webhookDeliveryRepository) GetByID(ctx context.Context, id string) (*models.WebhookDelivery, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookDeliveryRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var delivery models.WebhookDelivery
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get webhook delivery: %w", err)
	}

	return &delivery, nil
}

// ListDue returns pending, due deliveries, holding back any delivery whose
// (account_id, subscription_id) pair still has an earlier-sequenced
// pending delivery: the dispatcher must never have two in-flight attempts
// racing for the same pair, and must deliver them in event order.
func (r *webhookDeliveryRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.WebhookDelivery, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookDeliveryRepository.ListDue")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var deliveries []*models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("state = ? AND next_attempt_at <= ?", enum.WebhookDeliveryPending, now).
		Where(`NOT EXISTS (
			SELECT 1 FROM webhook_deliveries earlier
			WHERE earlier.account_id = webhook_deliveries.account_id
			  AND earlier.subscription_id = webhook_deliveries.subscription_id
			  AND earlier.state = ?
			  AND earlier.event_seq < webhook_deliveries.event_seq
		)`, enum.WebhookDeliveryPending).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list due webhook deliveries: %w", err)
	}

	return deliveries, nil
}

func (r *webhookDeliveryRepository) MarkDelivered(ctx context.Context, id string, httpStatus int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookDeliveryRepository.MarkDelivered")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.WebhookDelivery{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":            enum.WebhookDeliveryDelivered,
			"last_http_status": httpStatus,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to mark webhook delivery delivered: %w", err)
	}

	return nil
}

func (r *webhookDeliveryRepository) MarkRetry(ctx context.Context, id string, httpStatus int, lastErr string, nextAttemptAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookDeliveryRepository.MarkRetry")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.WebhookDelivery{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_http_status": httpStatus,
			"last_error":      lastErr,
			"next_attempt_at": nextAttemptAt,
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to mark webhook delivery for retry: %w", err)
	}

	return nil
}

func (r *webhookDeliveryRepository) MarkTerminal(ctx context.Context, id string, state enum.WebhookDeliveryState, httpStatus int, lastErr string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookDeliveryRepository.MarkTerminal")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.WebhookDelivery{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":            state,
			"last_http_status": httpStatus,
			"last_error":       lastErr,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to mark webhook delivery terminal: %w", err)
	}

	return nil
}
