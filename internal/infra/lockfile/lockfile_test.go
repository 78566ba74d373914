package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"voicemirror/internal/domain"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), domain.ListenerLockFileName)
}

func writeLock(t *testing.T, path string, expiresAt time.Time) {
	t.Helper()
	raw := fmt.Sprintf(`{"expires_at": %d}`, expiresAt.UnixMilli())
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
}

func TestReclaimStaleDeletesOldLock(t *testing.T) {
	path := lockPath(t)
	now := time.Now()
	writeLock(t, path, now.Add(-120*time.Second))

	ReclaimStale(path, now, zaptest.NewLogger(t))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestReclaimStaleKeepsLockInsideGrace(t *testing.T) {
	path := lockPath(t)
	now := time.Now()
	writeLock(t, path, now.Add(-10*time.Second))

	ReclaimStale(path, now, zaptest.NewLogger(t))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestReclaimStaleDeletesCorruptLock(t *testing.T) {
	path := lockPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o600))

	ReclaimStale(path, time.Now(), zaptest.NewLogger(t))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestReclaimStaleNoFile(t *testing.T) {
	ReclaimStale(lockPath(t), time.Now(), zaptest.NewLogger(t))
}

func TestAcquireRefusedWhileHeld(t *testing.T) {
	path := lockPath(t)
	writeLock(t, path, time.Now().Add(time.Minute))

	err := NewListenerLock(path).Acquire()
	require.ErrorIs(t, err, domain.ErrListenerLockHeld)
}

func TestAcquireOverExpiredLock(t *testing.T) {
	path := lockPath(t)
	writeLock(t, path, time.Now().Add(-time.Minute))

	lock := NewListenerLock(path)
	require.NoError(t, lock.Acquire())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var payload struct {
		ExpiresAt int64 `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Greater(t, time.UnixMilli(payload.ExpiresAt), time.Now())
}

func TestReleaseIdempotent(t *testing.T) {
	lock := NewListenerLock(lockPath(t))
	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}
