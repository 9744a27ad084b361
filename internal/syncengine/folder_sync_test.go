package syncengine

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestComputeThreadID_PrefersInReplyTo(t *testing.T) {
	env := &imap.Envelope{InReplyTo: "<msg-1@example.com>", Subject: "Re: hello"}
	want := hashString("msg-1@example.com")
	assert.Equal(t, want, computeThreadID(env))
}

func TestComputeThreadID_FallsBackToNormalizedSubject(t *testing.T) {
	env1 := &imap.Envelope{Subject: "Re: Fwd: Project kickoff"}
	env2 := &imap.Envelope{Subject: "project kickoff"}

	assert.Equal(t, computeThreadID(env1), computeThreadID(env2))
}

func TestComputeThreadID_DifferentSubjectsDifferentThreads(t *testing.T) {
	env1 := &imap.Envelope{Subject: "Project kickoff"}
	env2 := &imap.Envelope{Subject: "Budget review"}

	assert.NotEqual(t, computeThreadID(env1), computeThreadID(env2))
}

func TestComputeThreadID_StripsLocalizedReplyPrefixes(t *testing.T) {
	env1 := &imap.Envelope{Subject: "Sv: Aw: Status update"}
	env2 := &imap.Envelope{Subject: "Status update"}

	assert.Equal(t, computeThreadID(env1), computeThreadID(env2))
}

func TestAddressList_FormatsAddresses(t *testing.T) {
	addrs := []*imap.Address{
		{MailboxName: "alice", HostName: "example.com"},
		{MailboxName: "bob", HostName: "example.org"},
	}

	got := addressList(addrs)
	assert.Equal(t, []string{"alice@example.com", "bob@example.org"}, got)
}

func TestMessageToEntry_CopiesEnvelopeFields(t *testing.T) {
	msg := &imap.Message{
		Uid:  42,
		Size: 1024,
		Envelope: &imap.Envelope{
			Subject:   "hello",
			MessageId: "<abc@example.com>",
			From:      []*imap.Address{{MailboxName: "alice", HostName: "example.com"}},
			To:        []*imap.Address{{MailboxName: "bob", HostName: "example.com"}},
		},
	}

	entry := messageToEntry("account-1", "folder-1", msg)

	assert.Equal(t, "account-1", entry.AccountID)
	assert.Equal(t, "folder-1", entry.FolderID)
	assert.Equal(t, uint32(42), entry.UID)
	assert.Equal(t, "hello", entry.Subject)
	assert.Equal(t, "<abc@example.com>", entry.MessageID)
	assert.Equal(t, "alice@example.com", entry.FromAddress)
	assert.Equal(t, []string{"bob@example.com"}, entry.ToAddresses)
	assert.NotEmpty(t, entry.ThreadID)
}
