package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/utils"
)

// Folder tracks one IMAP mailbox folder's sync progress for an Account.
// It generalizes the legacy MailboxSyncState (last-seen UID only) into the
// full state spec.md requires: UIDVALIDITY/UIDNEXT/HIGHESTMODSEQ for
// change detection, an explicit sync state machine, and a resumable
// backfill watermark.
type Folder struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string `gorm:"column:account_id;type:varchar(50);index;not null" json:"accountId"`
	Name      string `gorm:"column:name;type:varchar(255);index;not null" json:"name"`

	UIDValidity   uint32 `gorm:"column:uid_validity;not null" json:"uidValidity"`
	UIDNext       uint32 `gorm:"column:uid_next;not null" json:"uidNext"`
	HighestModSeq uint64 `gorm:"column:highest_mod_seq;default:0" json:"highestModSeq"`
	LastExists    uint32 `gorm:"column:last_exists;default:0" json:"lastExists"`

	SyncState enum.FolderSyncState `gorm:"column:sync_state;type:varchar(50);index;not null;default:new" json:"syncState"`

	// BackfillHighWaterUID is the lowest UID backfilled so far when
	// paginating backwards from the mailbox's newest message; resuming a
	// crashed backfill continues below this UID instead of restarting.
	BackfillHighWaterUID uint32 `gorm:"column:backfill_high_water_uid;default:0" json:"backfillHighWaterUid"`
	// BackfillRemaining counts messages still to fetch toward the
	// account's BackfillHorizon; 0 once exhausted or uncapped.
	BackfillRemaining int `gorm:"column:backfill_remaining;default:0" json:"backfillRemaining"`

	LastPolledAt *time.Time `gorm:"column:last_polled_at;type:timestamp" json:"lastPolledAt"`
	LastError    string     `gorm:"column:last_error;type:text" json:"lastError"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Folder) TableName() string {
	return "folders"
}

func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = utils.GenerateNanoIDWithPrefix("fldr", 16)
	}
	return nil
}
