package dispatch

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/lockfile"
)

func TestTableRoutesByName(t *testing.T) {
	tbl := NewTable()
	tbl.Register("echo", func(ctx context.Context, args json.RawMessage) (*Result, error) {
		return Text("got %s", string(args)), nil
	})

	res, err := tbl.Call(context.Background(), "echo", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, `got {"a":1}`, res.Content[0].Text)

	_, err = tbl.Call(context.Background(), "missing", nil)
	require.ErrorIs(t, err, domain.ErrUnknownTool)
}

func TestTableDuplicateRegistrationPanics(t *testing.T) {
	tbl := NewTable()
	tbl.Register("x", nil)
	require.Panics(t, func() { tbl.Register("x", nil) })
}

func TestInboxAppendAndUnread(t *testing.T) {
	store := NewInboxStore(filepath.Join(t.TempDir(), domain.InboxFileName))

	_, err := store.Append(Message{Sender: "shell", Text: "hello"})
	require.NoError(t, err)
	_, err = store.Append(Message{Sender: "agent-1", Text: "my own send"})
	require.NoError(t, err)

	msgs, err := store.Unread("agent-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Text)
	require.NotEmpty(t, msgs[0].ID)

	// Consumed on read.
	msgs, err = store.Unread("agent-1", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestInboxRecipientFiltering(t *testing.T) {
	store := NewInboxStore(filepath.Join(t.TempDir(), domain.InboxFileName))

	_, err := store.Append(Message{Sender: "shell", Recipient: "agent-2", Text: "for two"})
	require.NoError(t, err)

	msgs, err := store.Unread("agent-1", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)

	msgs, err = store.Unread("agent-2", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestInboxRetentionCap(t *testing.T) {
	store := NewInboxStore(filepath.Join(t.TempDir(), domain.InboxFileName))

	for i := 0; i < domain.MaxInboxTotal+10; i++ {
		_, err := store.Append(Message{Sender: "shell", Text: "m"})
		require.NoError(t, err)
	}
	all, err := store.load()
	require.NoError(t, err)
	require.Len(t, all, domain.MaxInboxTotal)
}

func TestStatusUpdateListsOthers(t *testing.T) {
	store := NewStatusStore(filepath.Join(t.TempDir(), domain.StatusFileName))

	others, err := store.Update("agent-1", "active", "")
	require.NoError(t, err)
	require.Empty(t, others)

	others, err = store.Update("agent-2", "busy", "writing tests")
	require.NoError(t, err)
	require.Equal(t, []string{"agent-1"}, others)
}

func TestVoiceSendAndInbox(t *testing.T) {
	dir := t.TempDir()
	v := NewVoiceHandlers(
		NewInboxStore(filepath.Join(dir, domain.InboxFileName)),
		NewStatusStore(filepath.Join(dir, domain.StatusFileName)),
		lockfile.NewListenerLock(filepath.Join(dir, domain.ListenerLockFileName)),
		zaptest.NewLogger(t),
	)

	res, err := v.Send(context.Background(), json.RawMessage(`{"instance_id":"a","message":"hi"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "delivered")

	// The sender does not hear its own message back.
	res, err = v.Inbox(context.Background(), json.RawMessage(`{"instance_id":"a"}`))
	require.NoError(t, err)
	require.Equal(t, "No new messages.", res.Content[0].Text)

	res, err = v.Inbox(context.Background(), json.RawMessage(`{"instance_id":"b"}`))
	require.NoError(t, err)
	require.Contains(t, res.Content[0].Text, "hi")
}

func TestVoiceSendValidation(t *testing.T) {
	dir := t.TempDir()
	v := NewVoiceHandlers(
		NewInboxStore(filepath.Join(dir, domain.InboxFileName)),
		NewStatusStore(filepath.Join(dir, domain.StatusFileName)),
		lockfile.NewListenerLock(filepath.Join(dir, domain.ListenerLockFileName)),
		zaptest.NewLogger(t),
	)

	res, err := v.Send(context.Background(), json.RawMessage(`{"instance_id":"a"}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestVoiceListenReceivesMessage(t *testing.T) {
	dir := t.TempDir()
	inbox := NewInboxStore(filepath.Join(dir, domain.InboxFileName))
	v := NewVoiceHandlers(
		inbox,
		NewStatusStore(filepath.Join(dir, domain.StatusFileName)),
		lockfile.NewListenerLock(filepath.Join(dir, domain.ListenerLockFileName)),
		zaptest.NewLogger(t),
	)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = inbox.Append(Message{Sender: "shell", Text: "wake up"})
	}()

	res, err := v.Listen(context.Background(), json.RawMessage(`{"instance_id":"a","timeout_seconds":5}`))
	require.NoError(t, err)
	require.Contains(t, res.Content[0].Text, "wake up")
}

func TestVoiceListenTimesOut(t *testing.T) {
	dir := t.TempDir()
	v := NewVoiceHandlers(
		NewInboxStore(filepath.Join(dir, domain.InboxFileName)),
		NewStatusStore(filepath.Join(dir, domain.StatusFileName)),
		lockfile.NewListenerLock(filepath.Join(dir, domain.ListenerLockFileName)),
		zaptest.NewLogger(t),
	)

	res, err := v.Listen(context.Background(), json.RawMessage(`{"instance_id":"a","timeout_seconds":1}`))
	require.NoError(t, err)
	require.Contains(t, res.Content[0].Text, "No new messages")
}

func TestVoiceListenRefusedWhileLockHeld(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, domain.ListenerLockFileName)
	other := lockfile.NewListenerLock(lockPath)
	require.NoError(t, other.Acquire())

	v := NewVoiceHandlers(
		NewInboxStore(filepath.Join(dir, domain.InboxFileName)),
		NewStatusStore(filepath.Join(dir, domain.StatusFileName)),
		lockfile.NewListenerLock(lockPath),
		zaptest.NewLogger(t),
	)

	res, err := v.Listen(context.Background(), json.RawMessage(`{"instance_id":"a","timeout_seconds":1}`))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "already listening")
}
