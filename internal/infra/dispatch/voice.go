package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/lockfile"
)

// listenPollInterval is how often voice_listen re-checks the inbox file.
const listenPollInterval = 500 * time.Millisecond

// listenRefreshInterval is how often a blocked voice_listen re-stamps the
// listener lock so it never expires mid-call.
const listenRefreshInterval = time.Minute

// VoiceHandlers implements the core group's tools over the file-based inbox
// the desktop shell shares with us.
type VoiceHandlers struct {
	inbox  *InboxStore
	status *StatusStore
	lock   *lockfile.ListenerLock
	logger *zap.Logger
}

func NewVoiceHandlers(inbox *InboxStore, status *StatusStore, lock *lockfile.ListenerLock, logger *zap.Logger) *VoiceHandlers {
	return &VoiceHandlers{
		inbox:  inbox,
		status: status,
		lock:   lock,
		logger: logger.Named("voice"),
	}
}

// Register wires the handlers into the dispatch table under the core group's
// tool names.
func (v *VoiceHandlers) Register(t *Table) {
	t.Register("voice_send", v.Send)
	t.Register("voice_inbox", v.Inbox)
	t.Register("voice_listen", v.Listen)
	t.Register("voice_status", v.Status)
}

func (v *VoiceHandlers) Send(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in struct {
		InstanceID string `json:"instance_id"`
		Message    string `json:"message"`
		ThreadID   string `json:"thread_id"`
		ReplyTo    string `json:"reply_to"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "voice.Send", "bad arguments", err)
	}
	if in.InstanceID == "" || in.Message == "" {
		return Errorf("voice_send requires instance_id and message"), nil
	}
	msg, err := v.inbox.Append(Message{
		Sender:   in.InstanceID,
		Text:     in.Message,
		ThreadID: in.ThreadID,
		ReplyTo:  in.ReplyTo,
	})
	if err != nil {
		return nil, err
	}
	return Text("Message %s delivered.", msg.ID), nil
}

func (v *VoiceHandlers) Inbox(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in struct {
		InstanceID string `json:"instance_id"`
		Limit      int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "voice.Inbox", "bad arguments", err)
	}
	msgs, err := v.inbox.Unread(in.InstanceID, in.Limit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return Text("No new messages."), nil
	}
	return Text("%s", formatMessages(msgs)), nil
}

// Listen blocks until a new message arrives for this instance or the timeout
// elapses. Only one listener may run at a time; the listener lock is
// refreshed while we wait so it cannot expire under a live call.
func (v *VoiceHandlers) Listen(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in struct {
		InstanceID     string `json:"instance_id"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "voice.Listen", "bad arguments", err)
	}
	timeout := domain.DefaultListenTimeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}

	if err := v.lock.Acquire(); err != nil {
		if errors.Is(err, domain.ErrListenerLockHeld) {
			return Errorf("Another instance is already listening. Try again later."), nil
		}
		return nil, err
	}
	defer func() {
		if err := v.lock.Release(); err != nil {
			v.logger.Warn("failed to release listener lock", zap.Error(err))
		}
	}()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(listenPollInterval)
	defer poll.Stop()
	refresh := time.NewTicker(listenRefreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return Text("No new messages after %s.", timeout), nil
		case <-refresh.C:
			if err := v.lock.Refresh(); err != nil {
				v.logger.Warn("failed to refresh listener lock", zap.Error(err))
			}
		case <-poll.C:
			pending, err := v.inbox.PeekUnread(in.InstanceID)
			if err != nil {
				return nil, err
			}
			if !pending {
				continue
			}
			msgs, err := v.inbox.Unread(in.InstanceID, domain.MaxInboxReturn)
			if err != nil {
				return nil, err
			}
			return Text("%s", formatMessages(msgs)), nil
		}
	}
}

func (v *VoiceHandlers) Status(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in struct {
		InstanceID  string `json:"instance_id"`
		Status      string `json:"status"`
		CurrentTask string `json:"current_task"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "voice.Status", "bad arguments", err)
	}
	if in.Status == "" {
		in.Status = "active"
	}
	others, err := v.status.Update(in.InstanceID, in.Status, in.CurrentTask)
	if err != nil {
		return nil, err
	}
	if len(others) == 0 {
		return Text("Status recorded. No other active instances."), nil
	}
	return Text("Status recorded. Other active instances: %s", strings.Join(others, ", ")), nil
}

func formatMessages(msgs []Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new message(s):\n", len(msgs))
	for _, m := range msgs {
		ts := time.UnixMilli(m.Timestamp).Format(time.RFC3339)
		fmt.Fprintf(&b, "[%s] %s: %s\n", ts, m.Sender, m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
