package watcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/dispatch"
)

func TestWatcherFiresOnNewMessage(t *testing.T) {
	dir := t.TempDir()
	inboxPath := filepath.Join(dir, domain.InboxFileName)
	inbox := dispatch.NewInboxStore(inboxPath)

	got := make(chan string, 1)
	w := New(inbox, func(text string) {
		select {
		case got <- text:
		default:
		}
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, inboxPath) }()

	// Give the watcher a moment to install before writing.
	time.Sleep(200 * time.Millisecond)
	_, err := inbox.Append(dispatch.Message{Sender: "shell", Text: "open the browser please"})
	require.NoError(t, err)

	select {
	case text := <-got:
		require.Contains(t, text, "open the browser")
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never fired")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	inboxPath := filepath.Join(dir, domain.InboxFileName)
	inbox := dispatch.NewInboxStore(inboxPath)

	got := make(chan string, 1)
	w := New(inbox, func(text string) { got <- text }, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, inboxPath) }()

	time.Sleep(200 * time.Millisecond)
	status := dispatch.NewStatusStore(filepath.Join(dir, domain.StatusFileName))
	_, err := status.Update("agent-1", "active", "")
	require.NoError(t, err)

	select {
	case <-got:
		t.Fatal("watcher fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
