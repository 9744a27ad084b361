package syncengine

import (
	"encoding/json"
	"time"

	"github.com/mailbridge/syncstack/internal/models"
)

// messageCreatedPayload is the JSON body delivered for a message.created
// webhook. It carries only the header/envelope metadata the Message Index
// holds; full message bodies are never fetched or stored by the sync
// engine.
type messageCreatedPayload struct {
	Trigger      string    `json:"trigger"`
	AccountID    string    `json:"accountId"`
	FolderID     string    `json:"folderId"`
	UID          uint32    `json:"uid"`
	MessageID    string    `json:"messageId"`
	ThreadID     string    `json:"threadId"`
	Subject      string    `json:"subject"`
	From         string    `json:"from"`
	To           []string  `json:"to"`
	InternalDate time.Time `json:"internalDate"`
}

func buildMessageCreatedPayload(account *models.Account, entry *models.MessageIndexEntry) ([]byte, error) {
	payload := messageCreatedPayload{
		Trigger:      string(models.TriggerMessageCreated),
		AccountID:    account.ID,
		FolderID:     entry.FolderID,
		UID:          entry.UID,
		MessageID:    entry.MessageID,
		ThreadID:     entry.ThreadID,
		Subject:      entry.Subject,
		From:         entry.FromAddress,
		To:           entry.ToAddresses,
		InternalDate: entry.InternalDate,
	}
	return json.Marshal(payload)
}

// messageUpdatedPayload is the JSON body delivered for a message.updated
// webhook, fired when an already-indexed message's flags change.
type messageUpdatedPayload struct {
	Trigger      string    `json:"trigger"`
	AccountID    string    `json:"accountId"`
	FolderID     string    `json:"folderId"`
	UID          uint32    `json:"uid"`
	MessageID    string    `json:"messageId"`
	ThreadID     string    `json:"threadId"`
	Flags        []string  `json:"flags"`
	InternalDate time.Time `json:"internalDate"`
}

func buildMessageUpdatedPayload(account *models.Account, entry *models.MessageIndexEntry) ([]byte, error) {
	payload := messageUpdatedPayload{
		Trigger:      string(models.TriggerMessageUpdated),
		AccountID:    account.ID,
		FolderID:     entry.FolderID,
		UID:          entry.UID,
		MessageID:    entry.MessageID,
		ThreadID:     entry.ThreadID,
		Flags:        entry.Flags,
		InternalDate: entry.InternalDate,
	}
	return json.Marshal(payload)
}

// folderUpdatedPayload is the JSON body delivered for a folder.updated
// webhook, fired when a folder's UIDVALIDITY changes or the folder is
// renamed/deleted out from under the sync engine.
type folderUpdatedPayload struct {
	Trigger   string `json:"trigger"`
	AccountID string `json:"accountId"`
	FolderID  string `json:"folderId"`
	Folder    string `json:"folder"`
	Reason    string `json:"reason"`
}

func buildFolderUpdatedPayload(account *models.Account, folder *models.Folder, reason string) ([]byte, error) {
	payload := folderUpdatedPayload{
		Trigger:   string(models.TriggerFolderUpdated),
		AccountID: account.ID,
		FolderID:  folder.ID,
		Folder:    folder.Name,
		Reason:    reason,
	}
	return json.Marshal(payload)
}

// accountInvalidCredentialsPayload is the JSON body delivered for an
// account.invalid_credentials webhook, fired when an account's IMAP
// connection fails authentication and the account is quiesced.
type accountInvalidCredentialsPayload struct {
	Trigger   string `json:"trigger"`
	AccountID string `json:"accountId"`
	Reason    string `json:"reason"`
}

func buildAccountInvalidCredentialsPayload(account *models.Account, reason string) ([]byte, error) {
	payload := accountInvalidCredentialsPayload{
		Trigger:   string(models.TriggerAccountInvalidCredentials),
		AccountID: account.ID,
		Reason:    reason,
	}
	return json.Marshal(payload)
}
