package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/tracing"
)

type messageIndexRepository struct {
	db *gorm.DB
}

func NewMessageIndexRepository(db *gorm.DB) interfaces.MessageIndexRepository {
	return &messageIndexRepository{db: db}
}

// UpsertInTx is the exactly-once entry point for a message observed in a
// folder. The unique index on (folder_id, uid) makes the insert idempotent
// across FETCH retries and concurrent re-syncs of the same folder.
func (r *messageIndexRepository) UpsertInTx(ctx context.Context, tx *gorm.DB, entry *models.MessageIndexEntry) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.UpsertInTx")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var existing models.MessageIndexEntry
	err := tx.WithContext(ctx).
		Where("folder_id = ? AND uid = ?", entry.FolderID, entry.UID).
		First(&existing).Error

	if err == nil {
		entry.ID = existing.ID
		entry.FirstSeenAt = existing.FirstSeenAt
		if updateErr := tx.WithContext(ctx).Model(&models.MessageIndexEntry{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"flags":      entry.Flags,
				"updated_at": time.Now(),
			}).Error; updateErr != nil {
			tracing.TraceErr(span, updateErr)
			return false, fmt.Errorf("failed to update message index entry: %w", updateErr)
		}
		return false, nil
	}

	if err != gorm.ErrRecordNotFound {
		tracing.TraceErr(span, err)
		return false, fmt.Errorf("failed to look up message index entry: %w", err)
	}

	if createErr := tx.WithContext(ctx).Create(entry).Error; createErr != nil {
		tracing.TraceErr(span, createErr)
		return false, fmt.Errorf("failed to create message index entry: %w", createErr)
	}

	return true, nil
}

func (r *messageIndexRepository) GetByUID(ctx context.Context, folderID string, uid uint32) (*models.MessageIndexEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.GetByUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var entry models.MessageIndexEntry
	err := r.db.WithContext(ctx).Where("folder_id = ? AND uid = ?", folderID, uid).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get message index entry: %w", err)
	}

	return &entry, nil
}

func (r *messageIndexRepository) ListByFolder(ctx context.Context, folderID string, limit, offset int) ([]*models.MessageIndexEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.ListByFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var entries []*models.MessageIndexEntry
	query := r.db.WithContext(ctx).Where("folder_id = ?", folderID).Order("uid ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list message index entries: %w", err)
	}

	return entries, nil
}

func (r *messageIndexRepository) HighestUID(ctx context.Context, folderID string) (uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.HighestUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var highest uint32
	err := r.db.WithContext(ctx).Model(&models.MessageIndexEntry{}).
		Where("folder_id = ?", folderID).
		Select("COALESCE(MAX(uid), 0)").
		Scan(&highest).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, fmt.Errorf("failed to get highest uid: %w", err)
	}

	return highest, nil
}

func (r *messageIndexRepository) RecordExpungeInTx(ctx context.Context, tx *gorm.DB, accountID, folderID string, uid uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.RecordExpungeInTx")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := tx.WithContext(ctx).
		Where("folder_id = ? AND uid = ?", folderID, uid).
		Delete(&models.MessageIndexEntry{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete message index entry: %w", err)
	}

	tombstone := &models.ExpungeTombstone{
		AccountID: accountID,
		FolderID:  folderID,
		UID:       uid,
	}
	if err := tx.WithContext(ctx).Create(tombstone).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to record expunge tombstone: %w", err)
	}

	return nil
}

func (r *messageIndexRepository) IsExpunged(ctx context.Context, folderID string, uid uint32) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.IsExpunged")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExpungeTombstone{}).
		Where("folder_id = ? AND uid = ?", folderID, uid).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, fmt.Errorf("failed to check expunge tombstone: %w", err)
	}

	return count > 0, nil
}

func (r *messageIndexRepository) DeleteByFolder(ctx context.Context, folderID string) error {
	return r.DeleteByFolderInTx(ctx, r.db.WithContext(ctx), folderID)
}

func (r *messageIndexRepository) DeleteByFolderInTx(ctx context.Context, tx *gorm.DB, folderID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageIndexRepository.DeleteByFolderInTx")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := tx.WithContext(ctx).Where("folder_id = ?", folderID).Delete(&models.MessageIndexEntry{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete message index entries: %w", err)
	}
	if err := tx.WithContext(ctx).Where("folder_id = ?", folderID).Delete(&models.ExpungeTombstone{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete expunge tombstones: %w", err)
	}

	return nil
}
