package services

import (
	"github.com/mailbridge/syncstack/interfaces"
)

type Services struct {
	SyncEngine        interfaces.SyncEngine
	WebhookDispatcher interfaces.WebhookDispatcher
}

func InitServices(syncEngine interfaces.SyncEngine, webhookDispatcher interfaces.WebhookDispatcher) *Services {
	return &Services{
		SyncEngine:        syncEngine,
		WebhookDispatcher: webhookDispatcher,
	}
}
