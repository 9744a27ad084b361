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

type folderRepository struct {
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) interfaces.FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) GetFolder(ctx context.Context, accountID, name string) (*models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.GetFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var folder models.Folder
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND name = ?", accountID, name).
		First(&folder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrFolderNotFound
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

func (r *folderRepository) GetFolderByID(ctx context.Context, id string) (*models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.GetFolderByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var folder models.Folder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&folder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrFolderNotFound
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

func (r *folderRepository) ListFolders(ctx context.Context, accountID string) ([]*models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.ListFolders")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var folders []*models.Folder
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&folders).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

func (r *folderRepository) SaveFolder(ctx context.Context, folder *models.Folder) (string, error) {
	return r.SaveFolderInTx(ctx, r.db.WithContext(ctx), folder)
}

func (r *folderRepository) SaveFolderInTx(ctx context.Context, tx *gorm.DB, folder *models.Folder) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.SaveFolderInTx")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if folder.ID == "" {
		if err := tx.WithContext(ctx).Create(folder).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to create folder: %w", err)
		}
		return folder.ID, nil
	}

	// Save, not Updates(folder): Updates on a struct skips zero-valued
	// fields, which would silently drop resets like
	// BackfillHighWaterUID/HighestModSeq back to 0. Save writes every
	// column when the primary key is already set.
	result := tx.WithContext(ctx).Save(folder)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return "", fmt.Errorf("failed to update folder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := tx.WithContext(ctx).Create(folder).Error; err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to create folder: %w", err)
		}
	}

	return folder.ID, nil
}

func (r *folderRepository) DeleteFolder(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.DeleteFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Folder{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	return nil
}

func (r *folderRepository) DeleteAccountFolders(ctx context.Context, accountID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.DeleteAccountFolders")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.Folder{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete account folders: %w", err)
	}

	return nil
}
