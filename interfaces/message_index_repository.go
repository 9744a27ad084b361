package interfaces

import (
	"context"

	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/models"
)

type MessageIndexRepository interface {
	// UpsertInTx inserts or updates an entry and returns whether a new
	// row was created, so callers know whether to enqueue
	// message.created. Must run inside tx so the upsert and the webhook
	// delivery insert commit atomically.
	UpsertInTx(ctx context.Context, tx *gorm.DB, entry *models.MessageIndexEntry) (created bool, err error)
	GetByUID(ctx context.Context, folderID string, uid uint32) (*models.MessageIndexEntry, error)
	ListByFolder(ctx context.Context, folderID string, limit, offset int) ([]*models.MessageIndexEntry, error)
	HighestUID(ctx context.Context, folderID string) (uint32, error)
	RecordExpungeInTx(ctx context.Context, tx *gorm.DB, accountID, folderID string, uid uint32) error
	IsExpunged(ctx context.Context, folderID string, uid uint32) (bool, error)
	DeleteByFolder(ctx context.Context, folderID string) error
	DeleteByFolderInTx(ctx context.Context, tx *gorm.DB, folderID string) error
}
