// Package watcher tails the shared inbox file so intent scanning runs as
// soon as the desktop shell drops a new message, not only when the agent
// next polls.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"voicemirror/internal/infra/dispatch"
)

// debounce coalesces the write+rename event pair produced by an atomic file
// replace into one scan.
const debounce = 100 * time.Millisecond

// InboxWatcher invokes onText with the concatenated unread message text
// whenever the inbox file changes.
type InboxWatcher struct {
	inbox  *dispatch.InboxStore
	onText func(string)
	logger *zap.Logger
}

func New(inbox *dispatch.InboxStore, onText func(string), logger *zap.Logger) *InboxWatcher {
	return &InboxWatcher{
		inbox:  inbox,
		onText: onText,
		logger: logger.Named("watcher"),
	}
}

// Run watches until the context is cancelled. The directory is watched, not
// the file: the shell replaces the file by rename, which would drop a watch
// on the file itself.
func (w *InboxWatcher) Run(ctx context.Context, inboxPath string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(filepath.Dir(inboxPath)); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(inboxPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", zap.Error(err))
		case <-fire:
			w.scan()
		}
	}
}

func (w *InboxWatcher) scan() {
	texts, err := w.inbox.UnreadTexts()
	if err != nil {
		w.logger.Warn("failed to read inbox for intent scan", zap.Error(err))
		return
	}
	if len(texts) == 0 {
		return
	}
	w.onText(strings.Join(texts, "\n"))
}
