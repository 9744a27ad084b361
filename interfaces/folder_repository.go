package interfaces

import (
	"context"

	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/models"
)

type FolderRepository interface {
	GetFolder(ctx context.Context, accountID, name string) (*models.Folder, error)
	GetFolderByID(ctx context.Context, id string) (*models.Folder, error)
	ListFolders(ctx context.Context, accountID string) ([]*models.Folder, error)
	SaveFolder(ctx context.Context, folder *models.Folder) (string, error)
	SaveFolderInTx(ctx context.Context, tx *gorm.DB, folder *models.Folder) (string, error)
	DeleteFolder(ctx context.Context, id string) error
	DeleteAccountFolders(ctx context.Context, accountID string) error
}
