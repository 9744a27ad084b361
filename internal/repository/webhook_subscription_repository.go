package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/tracing"
)

type webhookSubscriptionRepository struct {
	db *gorm.DB
}

func NewWebhookSubscriptionRepository(db *gorm.DB) interfaces.WebhookSubscriptionRepository {
	return &webhookSubscriptionRepository{db: db}
}

func (r *webhookSubscriptionRepository) GetSubscription(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookSubscriptionRepository.GetSubscription")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var sub models.WebhookSubscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get webhook subscription: %w", err)
	}

	return &sub, nil
}

func (r *webhookSubscriptionRepository) ListByTenant(ctx context.Context, tenant string) ([]*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookSubscriptionRepository.ListByTenant")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)

	var subs []*models.WebhookSubscription
	if err := r.db.WithContext(ctx).Where("tenant = ?", tenant).Find(&subs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}

	return subs, nil
}

func (r *webhookSubscriptionRepository) ListSubscribed(ctx context.Context, trigger models.WebhookTrigger) ([]*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookSubscriptionRepository.ListSubscribed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var subs []*models.WebhookSubscription
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND ? = ANY(triggers)", true, string(trigger)).
		Find(&subs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list subscribed webhooks: %w", err)
	}

	return subs, nil
}

func (r *webhookSubscriptionRepository) Save(ctx context.Context, sub *models.WebhookSubscription) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookSubscriptionRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, sub.Tenant)

	if sub.ID == "" {
		if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to create webhook subscription: %w", err)
		}
		return sub.ID, nil
	}

	result := r.db.WithContext(ctx).Model(&models.WebhookSubscription{}).Where("id = ?", sub.ID).Updates(sub)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return "", fmt.Errorf("failed to update webhook subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to create webhook subscription: %w", err)
		}
	}

	return sub.ID, nil
}

func (r *webhookSubscriptionRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookSubscriptionRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.WebhookSubscription{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete webhook subscription: %w", err)
	}

	return nil
}
