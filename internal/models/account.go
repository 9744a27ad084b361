package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/utils"
)

// Account is a tenant-owned IMAP mailbox under sync. It generalizes the
// provider/connection shape of the legacy Mailbox model and adds the
// lifecycle and worker-assignment fields the sync engine needs to hand
// accounts between workers without losing progress.
type Account struct {
	ID           string             `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant       string             `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	Provider     enum.EmailProvider `gorm:"column:provider;type:varchar(50);index;not null" json:"provider"`
	EmailAddress string             `gorm:"column:email_address;type:varchar(255);index;not null" json:"emailAddress"`

	// GrantID identifies the OAuth grant backing this account when
	// Provider requires XOAUTH2 (Google Workspace, Outlook). Empty for
	// username/password IMAP accounts.
	GrantID string `gorm:"column:grant_id;type:varchar(255)" json:"grantId"`

	ImapHost     string             `gorm:"column:imap_host;type:varchar(255);not null" json:"imapHost"`
	ImapPort     int                `gorm:"column:imap_port;not null" json:"imapPort"`
	ImapUsername string             `gorm:"column:imap_username;type:varchar(255)" json:"imapUsername"`
	ImapPassword string             `gorm:"column:imap_password;type:varchar(255)" json:"-"`
	ImapSecurity enum.EmailSecurity `gorm:"column:imap_security;type:varchar(50)" json:"imapSecurity"`

	OAuthClientID     string     `gorm:"column:oauth_client_id;type:varchar(255)" json:"oauthClientId"`
	OAuthClientSecret string     `gorm:"column:oauth_client_secret;type:varchar(255)" json:"-"`
	OAuthRefreshToken string     `gorm:"column:oauth_refresh_token;type:varchar(1000)" json:"-"`
	OAuthAccessToken  string     `gorm:"column:oauth_access_token;type:varchar(1000)" json:"-"`
	OAuthTokenExpiry  *time.Time `gorm:"column:oauth_token_expiry;type:timestamp" json:"oauthTokenExpiry"`

	// SyncFolders restricts sync to the named folders; empty means "every
	// folder the LIST command returns".
	SyncEnabled bool           `gorm:"column:sync_enabled;default:true" json:"syncEnabled"`
	SyncFolders pq.StringArray `gorm:"column:sync_folders;type:text[]" json:"syncFolders"`

	// BackfillHorizon caps how many of the most recent messages per folder
	// are backfilled on first sync. 0 means backfill everything.
	BackfillHorizon int `gorm:"column:backfill_horizon;default:0" json:"backfillHorizon"`

	LifecycleState   enum.LifecycleState   `gorm:"column:lifecycle_state;type:varchar(50);index;not null;default:pending" json:"lifecycleState"`
	ConnectionStatus enum.ConnectionStatus `gorm:"column:connection_status;type:varchar(50);default:unknown" json:"connectionStatus"`
	LastError        string                `gorm:"column:last_error;type:text" json:"lastError"`
	LastSyncedAt      *time.Time            `gorm:"column:last_synced_at;type:timestamp" json:"lastSyncedAt"`

	// AssignedWorkerID and AssignedGeneration are written only by the
	// cluster coordinator during reassignment; sync workers treat them as
	// read-only identity.
	AssignedWorkerID   string `gorm:"column:assigned_worker_id;type:varchar(64);index" json:"assignedWorkerId"`
	AssignedGeneration int64  `gorm:"column:assigned_generation;default:0" json:"assignedGeneration"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("acct", 16)
	}
	return nil
}
