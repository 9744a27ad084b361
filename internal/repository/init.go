package repository

import (
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/interfaces"
	"github.com/mailbridge/syncstack/internal/models"
)

type Repositories struct {
	AccountRepository             interfaces.AccountRepository
	FolderRepository              interfaces.FolderRepository
	MessageIndexRepository        interfaces.MessageIndexRepository
	WebhookSubscriptionRepository interfaces.WebhookSubscriptionRepository
	WebhookDeliveryRepository     interfaces.WebhookDeliveryRepository
	WorkerLeaseRepository         interfaces.WorkerLeaseRepository
}

func InitRepositories(mailstackDB *gorm.DB) *Repositories {
	return &Repositories{
		AccountRepository:             NewAccountRepository(mailstackDB),
		FolderRepository:              NewFolderRepository(mailstackDB),
		MessageIndexRepository:        NewMessageIndexRepository(mailstackDB),
		WebhookSubscriptionRepository: NewWebhookSubscriptionRepository(mailstackDB),
		WebhookDeliveryRepository:     NewWebhookDeliveryRepository(mailstackDB),
		WorkerLeaseRepository:         NewWorkerLeaseRepository(mailstackDB),
	}
}

func MigrateDB(mailstackDB *gorm.DB) error {
	return mailstackDB.AutoMigrate(
		&models.Account{},
		&models.Folder{},
		&models.MessageIndexEntry{},
		&models.ExpungeTombstone{},
		&models.WebhookSubscription{},
		&models.WebhookDelivery{},
		&models.WorkerLease{},
	)
}
