package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/utils"
)

// MessageIndexEntry is the metadata-only record kept for every message a
// Folder Sync Unit observes. Message bodies are never persisted; only the
// header/envelope fields needed for threading and webhook payloads are
// kept, identified by (AccountID, FolderID, UID).
type MessageIndexEntry struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string `gorm:"column:account_id;type:varchar(50);index:idx_message_index_folder_uid,priority:1;not null" json:"accountId"`
	FolderID  string `gorm:"column:folder_id;type:varchar(50);index:idx_message_index_folder_uid,priority:2;not null" json:"folderId"`
	UID       uint32 `gorm:"column:uid;index:idx_message_index_folder_uid,priority:3,unique;not null" json:"uid"`

	InternalDate time.Time      `gorm:"column:internal_date;type:timestamp" json:"internalDate"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(500)" json:"fromAddress"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]" json:"toAddresses"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"ccAddresses"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]" json:"bccAddresses"`
	Subject      string         `gorm:"column:subject;type:text" json:"subject"`

	MessageID string `gorm:"column:message_id;type:varchar(998);index" json:"messageId"`
	InReplyTo string `gorm:"column:in_reply_to;type:varchar(998)" json:"inReplyTo"`
	References pq.StringArray `gorm:"column:references;type:text[]" json:"references"`

	Size  uint32         `gorm:"column:size" json:"size"`
	Flags pq.StringArray `gorm:"column:flags;type:text[]" json:"flags"`

	// ThreadID is computed from In-Reply-To, falling back to a normalized
	// Subject when In-Reply-To is absent. See computeThreadID in
	// internal/syncengine/folder_sync.go for the normalization rules.
	ThreadID string `gorm:"column:thread_id;type:varchar(64);index" json:"threadId"`

	FirstSeenAt time.Time `gorm:"column:first_seen_at;type:timestamp;default:current_timestamp" json:"firstSeenAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (MessageIndexEntry) TableName() string {
	return "message_index_entries"
}

func (m *MessageIndexEntry) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("msg", 21)
	}
	return nil
}

// ExpungeTombstone records that a UID known to have existed in a Folder has
// since been expunged, so invariant checks don't expect a Message Index
// Entry for it.
type ExpungeTombstone struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string    `gorm:"column:account_id;type:varchar(50);index;not null" json:"accountId"`
	FolderID  string    `gorm:"column:folder_id;type:varchar(50);index:idx_tombstone_folder_uid,priority:1;not null" json:"folderId"`
	UID       uint32    `gorm:"column:uid;index:idx_tombstone_folder_uid,priority:2;not null" json:"uid"`
	ExpungedAt time.Time `gorm:"column:expunged_at;type:timestamp;default:current_timestamp" json:"expungedAt"`
}

func (ExpungeTombstone) TableName() string {
	return "expunge_tombstones"
}

func (e *ExpungeTombstone) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("tomb", 16)
	}
	return nil
}
