package dispatch

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicemirror/internal/domain"
)

// Message is one entry in the shared inbox file exchanged with the desktop
// shell.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
	Text      string `json:"text"`
	ThreadID  string `json:"thread_id,omitempty"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}

// InboxStore reads and writes the inbox file shared with the desktop shell.
// Writes go through a temp file and rename so the shell never reads a torn
// file; the shell follows the same convention in the other direction.
type InboxStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewInboxStore(path string) *InboxStore {
	return &InboxStore{path: path, now: time.Now}
}

func (s *InboxStore) load() ([]Message, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.E(domain.CodeInternal, "inbox.load", "", err)
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, domain.E(domain.CodeInternal, "inbox.load", "inbox file corrupt", err)
	}
	return msgs, nil
}

func (s *InboxStore) save(msgs []Message) error {
	raw, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return domain.E(domain.CodeInternal, "inbox.save", "", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return domain.E(domain.CodeInternal, "inbox.save", "", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return domain.E(domain.CodeInternal, "inbox.save", "", err)
	}
	return nil
}

// Append stores a new message, assigning id and timestamp, and prunes the
// oldest entries beyond the retention cap.
func (s *InboxStore) Append(msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, err := s.load()
	if err != nil {
		return Message{}, err
	}
	msg.ID = uuid.NewString()
	msg.Timestamp = s.now().UnixMilli()
	msgs = append(msgs, msg)
	if len(msgs) > domain.MaxInboxTotal {
		msgs = msgs[len(msgs)-domain.MaxInboxTotal:]
	}
	if err := s.save(msgs); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Unread returns up to limit unread messages for the recipient, oldest
// first, and marks them read.
func (s *InboxStore) Unread(recipient string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > domain.MaxInboxReturn {
		limit = domain.MaxInboxReturn
	}
	msgs, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []Message
	changed := false
	for i := range msgs {
		if len(out) >= limit {
			break
		}
		if !deliverable(msgs[i], recipient) {
			continue
		}
		msgs[i].Read = true
		changed = true
		out = append(out, msgs[i])
	}
	if changed {
		if err := s.save(msgs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PeekUnread reports whether an unread message exists for the recipient
// without consuming it. voice_listen polls this.
func (s *InboxStore) PeekUnread(recipient string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range msgs {
		if deliverable(msgs[i], recipient) {
			return true, nil
		}
	}
	return false, nil
}

// UnreadTexts returns the text of every unread message without consuming
// anything. The inbox watcher feeds these to intent scanning.
func (s *InboxStore) UnreadTexts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []string
	for i := range msgs {
		if !msgs[i].Read {
			out = append(out, msgs[i].Text)
		}
	}
	return out, nil
}

// deliverable excludes read messages, messages addressed elsewhere, and an
// instance's own sends.
func deliverable(m Message, recipient string) bool {
	if m.Read {
		return false
	}
	if m.Recipient != "" && m.Recipient != recipient {
		return false
	}
	return m.Sender != recipient
}
