package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/utils"
)

// WebhookTrigger enumerates the event kinds a WebhookSubscription can
// subscribe to.
type WebhookTrigger string

const (
	TriggerMessageCreated           WebhookTrigger = "message.created"
	TriggerMessageUpdated           WebhookTrigger = "message.updated"
	TriggerFolderUpdated            WebhookTrigger = "folder.updated"
	TriggerAccountConnected         WebhookTrigger = "account.connected"
	TriggerAccountInvalidCredentials WebhookTrigger = "account.invalid_credentials"
)

// WebhookSubscription is a tenant-owned endpoint registered to receive sync
// engine events.
type WebhookSubscription struct {
	ID     string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant string `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`

	TargetURL     string         `gorm:"column:target_url;type:text;not null" json:"targetUrl"`
	SigningSecret string         `gorm:"column:signing_secret;type:varchar(255);not null" json:"-"`
	Triggers      pq.StringArray `gorm:"column:triggers;type:text[]" json:"triggers"`
	Enabled       bool           `gorm:"column:enabled;default:true" json:"enabled"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (WebhookSubscription) TableName() string {
	return "webhook_subscriptions"
}

func (s *WebhookSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIDWithPrefix("whsub", 16)
	}
	return nil
}

// Subscribes reports whether the subscription listens for trigger.
func (s *WebhookSubscription) Subscribes(trigger WebhookTrigger) bool {
	for _, t := range s.Triggers {
		if t == string(trigger) {
			return true
		}
	}
	return false
}

// WebhookDelivery is one delivery attempt chain for a single
// (subscription, event) pair. It is inserted in the same transaction that
// commits the Message Index update producing the event, so enqueue is
// exactly-once regardless of worker crashes.
type WebhookDelivery struct {
	ID             string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:varchar(50);index;not null" json:"subscriptionId"`
	AccountID      string `gorm:"column:account_id;type:varchar(50);index" json:"accountId"`

	Trigger string `gorm:"column:trigger;type:varchar(64);not null" json:"trigger"`
	Payload []byte `gorm:"column:payload;type:jsonb;not null" json:"payload"`

	// EventSeq is a database-assigned monotonic sequence used to order
	// deliveries within an (account_id, subscription_id) pair: the
	// dispatcher never hands out a delivery while an earlier-sequenced
	// one for the same pair is still pending.
	EventSeq int64 `gorm:"column:event_seq;type:bigserial;autoIncrement;->;not null" json:"eventSeq"`

	State         enum.WebhookDeliveryState `gorm:"column:state;type:varchar(50);index;not null;default:pending" json:"state"`
	AttemptCount  int                       `gorm:"column:attempt_count;default:0" json:"attemptCount"`
	NextAttemptAt time.Time                 `gorm:"column:next_attempt_at;type:timestamp;index" json:"nextAttemptAt"`
	LastHTTPStatus int                      `gorm:"column:last_http_status;default:0" json:"lastHttpStatus"`
	LastError     string                    `gorm:"column:last_error;type:text" json:"lastError"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}

func (d *WebhookDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = utils.GenerateNanoIDWithPrefix("whdlv", 21)
	}
	if d.NextAttemptAt.IsZero() {
		d.NextAttemptAt = time.Now()
	}
	return nil
}

// IsTerminal reports whether the delivery has reached a state that is
// never retried (invariant: a terminal delivery is never retried again).
func (d *WebhookDelivery) IsTerminal() bool {
	switch d.State {
	case enum.WebhookDeliveryDelivered, enum.WebhookDeliveryExpired, enum.WebhookDeliveryPermanentlyFailed:
		return true
	default:
		return false
	}
}
