package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/tracing"
)

type workerLeaseRepository struct {
	db *gorm.DB
}

func NewWorkerLeaseRepository(db *gorm.DB) interfaces.WorkerLeaseRepository {
	return &workerLeaseRepository{db: db}
}

func (r *workerLeaseRepository) Heartbeat(ctx context.Context, workerID string, assignedAccounts []string) (*models.WorkerLease, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workerLeaseRepository.Heartbeat")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.WorkerLease{}).Where("worker_id = ?", workerID).
		Updates(map[string]interface{}{
			"heartbeat_at":      now,
			"assigned_accounts": pq.StringArray(assignedAccounts),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to heartbeat worker lease: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		lease := &models.WorkerLease{
			WorkerID:         workerID,
			HeartbeatAt:      now,
			AssignedAccounts: pq.StringArray(assignedAccounts),
			CreatedAt:        now,
		}
		if err := r.db.WithContext(ctx).Create(lease).Error; err != nil {
			tracing.TraceErr(span, err)
			return nil, fmt.Errorf("failed to create worker lease: %w", err)
		}
		return lease, nil
	}

	var lease models.WorkerLease
	if err := r.db.WithContext(ctx).Where("worker_id = ?", workerID).First(&lease).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to reload worker lease: %w", err)
	}

	return &lease, nil
}

func (r *workerLeaseRepository) ListLeases(ctx context.Context) ([]*models.WorkerLease, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workerLeaseRepository.ListLeases")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var leases []*models.WorkerLease
	if err := r.db.WithContext(ctx).Find(&leases).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list worker leases: %w", err)
	}

	return leases, nil
}

// TryAcquireLeadership claims leadership by flipping is_leader on this
// worker's row when no other lease has a live heartbeat within ttl. The
// check and the update run in one transaction that first takes a
// transaction-scoped Postgres advisory lock, so two workers racing this
// call can't both win.
func (r *workerLeaseRepository) TryAcquireLeadership(ctx context.Context, workerID string, ttl time.Duration) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workerLeaseRepository.TryAcquireLeadership")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	cutoff := time.Now().Add(-ttl)

	var won bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		const leadershipLockKey int64 = 0x73796e636c6561
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", leadershipLockKey).Error; err != nil {
			return err
		}

		var current models.WorkerLease
		err := tx.Where("is_leader = ?", true).First(&current).Error
		if err == nil && current.WorkerID != workerID && current.HeartbeatAt.After(cutoff) {
			won = false
			return nil
		}
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		if err := tx.Model(&models.WorkerLease{}).Where("is_leader = ?", true).
			Update("is_leader", false).Error; err != nil {
			return err
		}

		result := tx.Model(&models.WorkerLease{}).Where("worker_id = ?", workerID).
			Updates(map[string]interface{}{
				"is_leader":  true,
				"generation": gorm.Expr("generation + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		won = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Errorf("failed to acquire leadership: %w", err)
	}

	return won, nil
}

func (r *workerLeaseRepository) ReleaseLeadership(ctx context.Context, workerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workerLeaseRepository.ReleaseLeadership")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Model(&models.WorkerLease{}).
		Where("worker_id = ? AND is_leader = ?", workerID, true).
		Update("is_leader", false).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to release leadership: %w", err)
	}

	return nil
}

func (r *workerLeaseRepository) DeleteLease(ctx context.Context, workerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "workerLeaseRepository.DeleteLease")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Where("worker_id = ?", workerID).Delete(&models.WorkerLease{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete worker lease: %w", err)
	}

	return nil
}
