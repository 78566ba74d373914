package dispatch

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"voicemirror/internal/domain"
)

// InstanceStatus is one agent instance's presence entry in the status file.
type InstanceStatus struct {
	Status      string `json:"status"`
	CurrentTask string `json:"current_task,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

// presenceWindow is how recently an instance must have reported to count as
// active.
const presenceWindow = 5 * time.Minute

// StatusStore tracks agent presence in the shared status file.
type StatusStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewStatusStore(path string) *StatusStore {
	return &StatusStore{path: path, now: time.Now}
}

func (s *StatusStore) load() (map[string]InstanceStatus, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]InstanceStatus{}, nil
		}
		return nil, domain.E(domain.CodeInternal, "status.load", "", err)
	}
	out := map[string]InstanceStatus{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.E(domain.CodeInternal, "status.load", "status file corrupt", err)
	}
	return out, nil
}

// Update writes this instance's presence and returns the ids of the other
// instances seen within the presence window.
func (s *StatusStore) Update(instanceID, status, task string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	now := s.now()
	all[instanceID] = InstanceStatus{
		Status:      status,
		CurrentTask: task,
		UpdatedAt:   now.UnixMilli(),
	}
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "status.Update", "", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return nil, domain.E(domain.CodeInternal, "status.Update", "", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return nil, domain.E(domain.CodeInternal, "status.Update", "", err)
	}
	var others []string
	for id, st := range all {
		if id == instanceID {
			continue
		}
		if now.Sub(time.UnixMilli(st.UpdatedAt)) <= presenceWindow {
			others = append(others, id)
		}
	}
	sort.Strings(others)
	return others, nil
}
