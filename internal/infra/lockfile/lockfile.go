// Package lockfile implements the advisory listener lock: a JSON file with a
// millisecond expiry that prevents two concurrent blocking listen calls, plus
// the startup pass that reclaims a lock left behind by a crashed process.
package lockfile

import (
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"voicemirror/internal/domain"
)

type lockPayload struct {
	ExpiresAt int64 `json:"expires_at"`
}

// ReclaimStale deletes the lock file when its expiry is more than the grace
// period in the past, or when it cannot be parsed at all. A live or
// recently-expired lock is left alone; this never waits for a lock to expire.
func ReclaimStale(path string, now time.Time, logger *zap.Logger) {
	log := logger.Named("lockfile")
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("listener lock unreadable", zap.String("path", path), zap.Error(err))
		}
		return
	}
	var payload lockPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error("listener lock corrupt, reclaiming", zap.String("path", path), zap.Error(err))
		if err := os.Remove(path); err != nil {
			log.Error("failed to remove corrupt listener lock", zap.Error(err))
		}
		return
	}
	expires := time.UnixMilli(payload.ExpiresAt)
	if now.Sub(expires) > domain.ListenerLockGracePeriod {
		log.Info("reclaiming stale listener lock",
			zap.Time("expired_at", expires),
			zap.Duration("stale_for", now.Sub(expires)))
		if err := os.Remove(path); err != nil {
			log.Error("failed to remove stale listener lock", zap.Error(err))
		}
		return
	}
	log.Debug("listener lock present and not stale, leaving it",
		zap.Time("expires_at", expires))
}

// ListenerLock guards the long-lived listen capability. Acquire fails while
// another unexpired lock exists; a crashed holder's lock simply ages out.
type ListenerLock struct {
	path string
	now  func() time.Time
}

func NewListenerLock(path string) *ListenerLock {
	return &ListenerLock{path: path, now: time.Now}
}

// Acquire writes a fresh lock with the standard TTL. Returns
// ErrListenerLockHeld when a live lock belongs to someone else.
func (l *ListenerLock) Acquire() error {
	raw, err := os.ReadFile(l.path)
	if err == nil {
		var payload lockPayload
		if json.Unmarshal(raw, &payload) == nil && l.now().Before(time.UnixMilli(payload.ExpiresAt)) {
			return domain.E(domain.CodeFailedPrecond, "lockfile.Acquire", "", domain.ErrListenerLockHeld)
		}
	} else if !os.IsNotExist(err) {
		return domain.E(domain.CodeInternal, "lockfile.Acquire", "", err)
	}
	return l.write()
}

// Refresh extends the lock while a listen call is still in flight.
func (l *ListenerLock) Refresh() error {
	return l.write()
}

// Release removes the lock. Missing file is fine; the holder may have been
// reclaimed already.
func (l *ListenerLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return domain.E(domain.CodeInternal, "lockfile.Release", "", err)
	}
	return nil
}

// write replaces the lock atomically so a reader never sees a torn file.
func (l *ListenerLock) write() error {
	payload, err := json.Marshal(lockPayload{
		ExpiresAt: l.now().Add(domain.ListenerLockTTL).UnixMilli(),
	})
	if err != nil {
		return domain.E(domain.CodeInternal, "lockfile.write", "", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return domain.E(domain.CodeInternal, "lockfile.write", "", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return domain.E(domain.CodeInternal, "lockfile.write", "", err)
	}
	return nil
}
