package enum

type EmailProvider string

const (
	EmailGoogleWorkspace EmailProvider = "google_workspace"
	EmailOutlook         EmailProvider = "outlook"
	EmailMailstack       EmailProvider = "mailstack"
	EmailGeneric         EmailProvider = "generic"
)

func (t EmailProvider) String() string {
	return string(t)
}

type EmailClassification string

const (
	EmailAutoResponder      EmailClassification = "auto_responder"
	EmailBounceNotification EmailClassification = "bounce_notification"
	EmailBulk               EmailClassification = "bulk_email"
	EmailInternal           EmailClassification = "internal"
	EmailOK                 EmailClassification = "ok"
	EmailSensitive          EmailClassification = "sensitive"
	EmailSpam               EmailClassification = "spam"
	EmailWarmer             EmailClassification = "email_warmer"
)

func (t EmailClassification) String() string {
	return string(t)
}

type EmailDirection string

const (
	EmailInbound  EmailDirection = "inbound"
	EmailOutbound EmailDirection = "outbound"
)

func (t EmailDirection) String() string {
	return string(t)
}

type EmailStatus string

const (
	EmailStatusReceived  EmailStatus = "received"
	EmailStatusDraft     EmailStatus = "draft"
	EmailStatusScheduled EmailStatus = "scheduled"
	EmailStatusSent      EmailStatus = "sent"
	EmailStatusFailed    EmailStatus = "failed"
	EmailStatusBounced   EmailStatus = "bounced"
)

func (t EmailStatus) String() string {
	return string(t)
}

type EmailSecurity string

const (
	EmailSecurityNone     EmailSecurity = "none"
	EmailSecuritySSL      EmailSecurity = "ssl"
	EmailSecurityTLS      EmailSecurity = "tls"
	EmailSecurityStartTLS EmailSecurity = "startTLS"
)

func (t EmailSecurity) String() string {
	return string(t)
}

// ConnectionStatus reflects the last observed health of an account's IMAP
// connection, independent of its sync lifecycle state.
type ConnectionStatus string

const (
	ConnectionStatusUnknown      ConnectionStatus = "unknown"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusAuthFailed   ConnectionStatus = "auth_failed"
)

func (t ConnectionStatus) String() string {
	return string(t)
}

// LifecycleState is the account-level sync lifecycle: new accounts start in
// Pending, move to Backfilling when a worker first connects them, and are
// Suspended on the first authentication failure. Live and Paused are
// declared here but no code path in the sync engine sets them.
type LifecycleState string

const (
	LifecycleStatePending      LifecycleState = "pending"
	LifecycleStateBackfilling  LifecycleState = "backfilling"
	LifecycleStateLive         LifecycleState = "live"
	LifecycleStatePaused       LifecycleState = "paused"
	LifecycleStateSuspended    LifecycleState = "suspended"
)

func (t LifecycleState) String() string {
	return string(t)
}

// FolderSyncState mirrors the per-folder state machine: a folder is New
// until its first backfill batch runs, Backfilling until the configured
// horizon is reached, then Live and idling/polling; a UIDVALIDITY change
// purges its index and returns it to New, and a folder rename/removal
// pushes it to Orphaned.
type FolderSyncState string

const (
	FolderSyncStateNew         FolderSyncState = "new"
	FolderSyncStateBackfilling FolderSyncState = "backfilling"
	FolderSyncStateLive        FolderSyncState = "live"
	FolderSyncStateOrphaned    FolderSyncState = "orphaned"
)

func (t FolderSyncState) String() string {
	return string(t)
}

// WebhookDeliveryState tracks an individual delivery's progress through
// the retry pipeline. Delivered, Expired, and PermanentlyFailed are
// terminal: once reached, a delivery is never retried again.
type WebhookDeliveryState string

const (
	WebhookDeliveryPending          WebhookDeliveryState = "pending"
	WebhookDeliveryDelivered        WebhookDeliveryState = "delivered"
	WebhookDeliveryExpired          WebhookDeliveryState = "expired"
	WebhookDeliveryPermanentlyFailed WebhookDeliveryState = "permanently_failed"
)

func (t WebhookDeliveryState) String() string {
	return string(t)
}
