package syncengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"gorm.io/gorm"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/logger"
	"github.com/mailbridge/syncstack/internal/models"
	"github.com/mailbridge/syncstack/internal/repository"
	"github.com/mailbridge/syncstack/internal/utils"
)

// isNonexistentMailbox reports whether err is an IMAP NONEXISTENT response,
// the code servers use on SELECT when a mailbox has been renamed or
// deleted out from under us. go-imap's client surfaces response codes as
// part of the error text rather than a typed field, so this is a
// string match on the bracketed code.
func isNonexistentMailbox(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "NONEXISTENT")
}

// folderSyncUnit owns the sync state machine for one IMAP folder of one
// account: initial backfill, then a poll/IDLE steady-state loop that
// detects new messages, flag changes, and expunges.
type folderSyncUnit struct {
	account *models.Account
	folder  *models.Folder
	conn    *client.Client
	db      *gorm.DB
	repos   *repository.Repositories
	cfg     folderSyncConfig
	log     logger.Logger
}

type folderSyncConfig struct {
	backfillBatchSize int
	idleRenewalWindow time.Duration
	commandTimeout    time.Duration
}

var fetchItems = []imap.FetchItem{
	imap.FetchUid,
	imap.FetchEnvelope,
	imap.FetchFlags,
	imap.FetchInternalDate,
	imap.FetchRFC822Size,
}

// run selects the folder, reconciles UIDVALIDITY, and drives the folder
// through New/Backfilling/Live until ctx is canceled.
func (f *folderSyncUnit) run(ctx context.Context) error {
	status, err := f.conn.Select(f.folder.Name, true)
	if err != nil {
		if isNonexistentMailbox(err) {
			return f.handleOrphaned(ctx)
		}
		return fmt.Errorf("select %s: %w", f.folder.Name, err)
	}

	if f.folder.UIDValidity != 0 && f.folder.UIDValidity != status.UidValidity {
		if err := f.purgeForUIDValidityChange(ctx, status.UidValidity); err != nil {
			return err
		}
	}

	f.folder.UIDValidity = status.UidValidity
	f.folder.UIDNext = status.UidNext
	f.folder.LastExists = status.Messages

	if f.folder.SyncState == enum.FolderSyncStateNew || f.folder.SyncState == enum.FolderSyncStateBackfilling {
		if err := f.backfill(ctx); err != nil {
			return fmt.Errorf("backfill %s: %w", f.folder.Name, err)
		}
	}

	return f.steadyState(ctx)
}

// purgeForUIDValidityChange resets the folder's local state when the
// server reports a new UIDVALIDITY: every UID we indexed under the old
// epoch is meaningless now. The purge and the folder.updated enqueue
// commit in a single transaction; the purge itself emits no per-message
// events.
func (f *folderSyncUnit) purgeForUIDValidityChange(ctx context.Context, newUIDValidity uint32) error {
	f.log.Warnf("folder %s: uidvalidity changed %d -> %d, resetting", f.folder.Name, f.folder.UIDValidity, newUIDValidity)

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f.folder.SyncState = enum.FolderSyncStateNew
		f.folder.BackfillHighWaterUID = 0
		f.folder.HighestModSeq = 0
		if _, err := f.repos.FolderRepository.SaveFolderInTx(ctx, tx, f.folder); err != nil {
			return err
		}
		if err := f.repos.MessageIndexRepository.DeleteByFolderInTx(ctx, tx, f.folder.ID); err != nil {
			return err
		}
		return enqueueFolderUpdated(ctx, tx, f.repos, f.account, f.folder, "uidvalidity_change")
	})
	return err
}

// handleOrphaned responds to a SELECT that failed NONEXISTENT: it
// re-lists the account's folder hierarchy (the same LIST the Supervisor
// runs for discovery) to rule out a transient server hiccup, and when the
// name is genuinely gone transitions the folder to orphaned and emits
// folder.updated{reason: deleted}.
func (f *folderSyncUnit) handleOrphaned(ctx context.Context) error {
	names, err := listFolders(f.conn, nil)
	if err != nil {
		return fmt.Errorf("list folders after nonexistent %s: %w", f.folder.Name, err)
	}

	for _, name := range names {
		if name == f.folder.Name {
			return fmt.Errorf("select %s: nonexistent but still listed, retrying", f.folder.Name)
		}
	}

	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f.folder.SyncState = enum.FolderSyncStateOrphaned
		if _, err := f.repos.FolderRepository.SaveFolderInTx(ctx, tx, f.folder); err != nil {
			return err
		}
		return enqueueFolderUpdated(ctx, tx, f.repos, f.account, f.folder, "deleted")
	})
}

// backfill walks the folder from its newest UID downward in batches,
// resuming below BackfillHighWaterUID if a previous attempt was
// interrupted, until the account's backfill horizon is reached (0 means
// uncapped — walk to UID 1).
func (f *folderSyncUnit) backfill(ctx context.Context) error {
	f.folder.SyncState = enum.FolderSyncStateBackfilling
	if _, err := f.repos.FolderRepository.SaveFolder(ctx, f.folder); err != nil {
		return err
	}

	high := f.folder.BackfillHighWaterUID
	if high == 0 {
		high = f.folder.UIDNext
	}

	horizon := f.account.BackfillHorizon
	fetched := 0

	for high > 1 {
		if horizon > 0 && fetched >= horizon {
			break
		}

		batch := f.cfg.backfillBatchSize
		if horizon > 0 && horizon-fetched < batch {
			batch = horizon - fetched
		}

		low := uint32(1)
		if high > uint32(batch) {
			low = high - uint32(batch)
		}

		seqset := &imap.SeqSet{}
		seqset.AddRange(low, high-1)

		if err := f.fetchAndIndex(ctx, seqset); err != nil {
			return err
		}

		fetched += int(high - low)
		f.folder.BackfillHighWaterUID = low
		if horizon > 0 {
			f.folder.BackfillRemaining = horizon - fetched
		}
		if _, err := f.repos.FolderRepository.SaveFolder(ctx, f.folder); err != nil {
			return err
		}

		if low <= 1 {
			break
		}
		high = low
	}

	f.folder.SyncState = enum.FolderSyncStateLive
	f.folder.BackfillRemaining = 0
	_, err := f.repos.FolderRepository.SaveFolder(ctx, f.folder)
	return err
}

// steadyState alternates IDLE (when supported) and polling: after each poll
// it idles until the renewal window elapses, the IDLE command fails or ctx
// is canceled, then fetches anything new since UIDNext and reconciles
// expunges against the Message Index. Untagged updates received during IDLE
// do not end the wait early; new mail is picked up by the next poll. The
// loop returns once a poll finds the folder orphaned.
func (f *folderSyncUnit) steadyState(ctx context.Context) error {
	supportsIdle, _ := f.conn.Support("IDLE")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := f.poll(ctx); err != nil {
			return err
		}
		if f.folder.SyncState == enum.FolderSyncStateOrphaned {
			return nil
		}

		wait := f.cfg.idleRenewalWindow
		if !supportsIdle {
			wait = f.cfg.commandTimeout * 4
		}

		timer := time.NewTimer(wait)
		if supportsIdle {
			stop := make(chan struct{})
			done := make(chan error, 1)
			go func() { done <- f.conn.Idle(stop, nil) }()

			select {
			case <-ctx.Done():
				close(stop)
				<-done
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
				close(stop)
				<-done
			case err := <-done:
				timer.Stop()
				if err != nil {
					return fmt.Errorf("idle: %w", err)
				}
			}
		} else {
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// poll re-selects the folder, fetches any UIDs at or above the last
// observed UIDNext, diffs flags on already-indexed messages, and
// reconciles expunges by diffing the live UID set against what the
// Message Index still holds. The CONDSTORE CHANGEDSINCE path (spec'd as
// the preferred mechanism for this reconciliation) is not wired here: the
// pinned go-imap client in go.mod doesn't parse HIGHESTMODSEQ, and adding
// an unverifiable extension dependency to fake it would be worse than the
// honest fallback below (see DESIGN.md). Folder.HighestModSeq is kept for
// forward compatibility but isn't advanced by this path.
func (f *folderSyncUnit) poll(ctx context.Context) error {
	status, err := f.conn.Select(f.folder.Name, true)
	if err != nil {
		if isNonexistentMailbox(err) {
			return f.handleOrphaned(ctx)
		}
		return fmt.Errorf("select %s: %w", f.folder.Name, err)
	}

	if status.UidNext > f.folder.UIDNext {
		seqset := &imap.SeqSet{}
		seqset.AddRange(f.folder.UIDNext, status.UidNext-1)
		if err := f.fetchAndIndex(ctx, seqset); err != nil {
			return err
		}
	}

	if err := f.reconcileFlags(ctx); err != nil {
		return err
	}

	// Always reconcile, not just when status.Messages dropped: arrivals
	// can offset deletions in the same interval and mask a shrink in the
	// raw count while UIDs still silently vanished from the server.
	if err := f.reconcileExpunges(ctx); err != nil {
		return err
	}

	f.folder.UIDNext = status.UidNext
	f.folder.LastExists = status.Messages
	now := time.Now()
	f.folder.LastPolledAt = &now

	_, err = f.repos.FolderRepository.SaveFolder(ctx, f.folder)
	return err
}

// reconcileFlags diffs the live server-reported flag set against every
// UID the Message Index already tracks for this folder and enqueues
// message.updated for any whose flags changed. New messages are handled
// by fetchAndIndex above; this only covers flag-only changes on messages
// already indexed, per the live loop's steady-state responsibilities.
func (f *folderSyncUnit) reconcileFlags(ctx context.Context) error {
	entries, err := f.repos.MessageIndexRepository.ListByFolder(ctx, f.folder.ID, 0, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	byUID := make(map[uint32]*models.MessageIndexEntry, len(entries))
	seqset := &imap.SeqSet{}
	for _, entry := range entries {
		byUID[entry.UID] = entry
		seqset.AddNum(entry.UID)
	}

	messages := make(chan *imap.Message, 32)
	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- f.conn.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, imap.FetchFlags}, messages)
	}()

	for msg := range messages {
		entry, ok := byUID[msg.Uid]
		if !ok || flagsEqual(entry.Flags, msg.Flags) {
			continue
		}
		if err := f.recordFlagChange(ctx, entry, msg.Flags); err != nil {
			return err
		}
	}

	return <-fetchErr
}

func flagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, flag := range a {
		set[flag] = struct{}{}
	}
	for _, flag := range b {
		if _, ok := set[flag]; !ok {
			return false
		}
	}
	return true
}

// recordFlagChange updates the Message Index entry's flags and enqueues
// message.updated for subscribers in the same transaction, matching the
// exactly-once enqueue pattern used for message.created.
func (f *folderSyncUnit) recordFlagChange(ctx context.Context, entry *models.MessageIndexEntry, flags []string) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry.Flags = flags
		if _, err := f.repos.MessageIndexRepository.UpsertInTx(ctx, tx, entry); err != nil {
			return err
		}
		return enqueueMessageUpdated(ctx, tx, f.repos, f.account, entry)
	})
}

func (f *folderSyncUnit) reconcileExpunges(ctx context.Context) error {
	criteria := imap.NewSearchCriteria()
	uids, err := f.conn.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("uid search: %w", err)
	}

	live := make(map[uint32]bool, len(uids))
	for _, uid := range uids {
		live[uid] = true
	}

	entries, err := f.repos.MessageIndexRepository.ListByFolder(ctx, f.folder.ID, 0, 0)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if live[entry.UID] {
			continue
		}
		if err := f.recordExpunge(ctx, entry.UID); err != nil {
			return err
		}
	}

	return nil
}

func (f *folderSyncUnit) recordExpunge(ctx context.Context, uid uint32) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f.repos.MessageIndexRepository.RecordExpungeInTx(ctx, tx, f.account.ID, f.folder.ID, uid)
	})
}

func (f *folderSyncUnit) fetchAndIndex(ctx context.Context, seqset *imap.SeqSet) error {
	messages := make(chan *imap.Message, 32)
	fetchErr := make(chan error, 1)

	go func() {
		fetchErr <- f.conn.UidFetch(seqset, fetchItems, messages)
	}()

	for msg := range messages {
		entry := messageToEntry(f.account.ID, f.folder.ID, msg)

		txErr := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			created, err := f.repos.MessageIndexRepository.UpsertInTx(ctx, tx, entry)
			if err != nil {
				return err
			}
			if created {
				return enqueueMessageCreated(ctx, tx, f.repos, f.account, entry)
			}
			return nil
		})
		if txErr != nil {
			return txErr
		}
	}

	return <-fetchErr
}

func messageToEntry(accountID, folderID string, msg *imap.Message) *models.MessageIndexEntry {
	entry := &models.MessageIndexEntry{
		AccountID:    accountID,
		FolderID:     folderID,
		UID:          msg.Uid,
		InternalDate: msg.InternalDate,
		Size:         msg.Size,
		Flags:        msg.Flags,
	}

	if env := msg.Envelope; env != nil {
		entry.Subject = env.Subject
		entry.MessageID = env.MessageId
		entry.InReplyTo = env.InReplyTo
		if len(env.From) > 0 {
			entry.FromAddress = env.From[0].Address()
		}
		entry.ToAddresses = addressList(env.To)
		entry.CcAddresses = addressList(env.Cc)
		entry.BccAddresses = addressList(env.Bcc)
		entry.ThreadID = computeThreadID(env)
	}

	return entry
}

func addressList(addrs []*imap.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address())
	}
	return out
}

// computeThreadID derives a stable thread identifier. When the message
// carries In-Reply-To, the thread is keyed on that normalized message id;
// otherwise it falls back to the lowercased normalized subject. The
// References header and the message's participants are not consulted, so
// a reply without In-Reply-To joins any thread that shares its subject.
func computeThreadID(env *imap.Envelope) string {
	if env.InReplyTo != "" {
		return hashString(utils.NormalizeMessageID(env.InReplyTo))
	}
	subject := strings.ToLower(utils.NormalizeEmailSubject(env.Subject))
	return hashString(subject)
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// enqueueEvent inserts a WebhookDelivery row for every enabled
// subscription in the account's tenant listening for trigger, in the
// same transaction as the triggering Message Index/Folder mutation so
// the enqueue is exactly-once.
func enqueueEvent(ctx context.Context, tx *gorm.DB, repos *repository.Repositories, account *models.Account, trigger models.WebhookTrigger, payload []byte) error {
	subs, err := repos.WebhookSubscriptionRepository.ListSubscribed(ctx, trigger)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		if sub.Tenant != account.Tenant {
			continue
		}
		delivery := &models.WebhookDelivery{
			SubscriptionID: sub.ID,
			AccountID:      account.ID,
			Trigger:        string(trigger),
			Payload:        payload,
			State:          enum.WebhookDeliveryPending,
		}
		if err := repos.WebhookDeliveryRepository.CreateInTx(ctx, tx, delivery); err != nil {
			return err
		}
	}

	return nil
}

func enqueueMessageCreated(ctx context.Context, tx *gorm.DB, repos *repository.Repositories, account *models.Account, entry *models.MessageIndexEntry) error {
	payload, err := buildMessageCreatedPayload(account, entry)
	if err != nil {
		return err
	}
	return enqueueEvent(ctx, tx, repos, account, models.TriggerMessageCreated, payload)
}

func enqueueMessageUpdated(ctx context.Context, tx *gorm.DB, repos *repository.Repositories, account *models.Account, entry *models.MessageIndexEntry) error {
	payload, err := buildMessageUpdatedPayload(account, entry)
	if err != nil {
		return err
	}
	return enqueueEvent(ctx, tx, repos, account, models.TriggerMessageUpdated, payload)
}

func enqueueFolderUpdated(ctx context.Context, tx *gorm.DB, repos *repository.Repositories, account *models.Account, folder *models.Folder, reason string) error {
	payload, err := buildFolderUpdatedPayload(account, folder, reason)
	if err != nil {
		return err
	}
	return enqueueEvent(ctx, tx, repos, account, models.TriggerFolderUpdated, payload)
}
