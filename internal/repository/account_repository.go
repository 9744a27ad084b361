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

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) interfaces.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetAccounts(ctx context.Context, tenant string) ([]*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAccounts")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenant)

	var accounts []*models.Account
	query := r.db.WithContext(ctx)
	if tenant != "" {
		query = query.Where("tenant = ?", tenant)
	}
	if err := query.Find(&accounts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAccountNotFound
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

func (r *accountRepository) GetAccountsByWorker(ctx context.Context, workerID string) ([]*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAccountsByWorker")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var accounts []*models.Account
	if err := r.db.WithContext(ctx).Where("assigned_worker_id = ?", workerID).Find(&accounts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get accounts by worker: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) SaveAccount(ctx context.Context, account *models.Account) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.SaveAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, account.Tenant)

	if account.ID == "" {
		if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to create account: %w", err)
		}
		return account.ID, nil
	}

	result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", account.ID).Updates(account)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return "", fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to create account: %w", err)
		}
	}

	return account.ID, nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.DeleteAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}

func (r *accountRepository) UpdateConnectionStatus(ctx context.Context, id string, status enum.ConnectionStatus, lastError string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.UpdateConnectionStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	updates := map[string]interface{}{
		"connection_status": status,
		"last_error":        lastError,
		"updated_at":        time.Now(),
	}
	if status == enum.ConnectionStatusConnected {
		updates["last_synced_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update connection status: %w", result.Error)
	}

	return nil
}

func (r *accountRepository) UpdateLifecycleState(ctx context.Context, id string, state enum.LifecycleState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.UpdateLifecycleState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).
		Updates(map[string]interface{}{"lifecycle_state": state, "updated_at": time.Now()})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update lifecycle state: %w", result.Error)
	}

	return nil
}

func (r *accountRepository) AssignToWorker(ctx context.Context, accountID, workerID string, generation int64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.AssignToWorker")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"assigned_worker_id": workerID,
			"assigned_generation": generation,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to assign account to worker: %w", result.Error)
	}

	return nil
}
