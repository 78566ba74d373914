package domain

import "time"

// Group names of the built-in catalog.
const (
	GroupCore       = "core"
	GroupMeta       = "meta"
	GroupMemory     = "memory"
	GroupScreen     = "screen"
	GroupBrowser    = "browser"
	GroupN8N        = "n8n"
	GroupDiagnostic = "diagnostic"
	GroupVoiceClone = "voice_clone"
	GroupFacades    = "facades"
)

// Environment variables honored by the server binary.
const (
	EnvDataDir       = "VOICE_MIRROR_DATA_DIR"
	EnvEnabledGroups = "ENABLED_GROUPS"
	EnvBridgeSocket  = "VOICE_MIRROR_BRIDGE"
)

// File names inside the data directory.
const (
	InboxFileName        = "inbox.json"
	StatusFileName       = "status.json"
	ListenerLockFileName = "listener_lock.json"
	SettingsFileName     = "settings.json"
	MemoryDBFileName     = "memory.db"
)

// DefaultIdleEvictThreshold is the number of intervening tool calls after
// which an unused, non-pinned, non-always-loaded group becomes eligible for
// automatic unload. Call-count based rather than wall-clock: group relevance
// tracks conversational activity, not time.
const DefaultIdleEvictThreshold = 15

// ListenerLockGracePeriod is how far past expiry a lock must be before
// startup reclaims it as a crash leftover.
const ListenerLockGracePeriod = 60 * time.Second

// ListenerLockTTL must exceed the default listen timeout (300s) so a live
// listener never sees its own lock expire mid-call.
const ListenerLockTTL = 310 * time.Second

// DefaultListenTimeout bounds a single voice_listen call.
const DefaultListenTimeout = 300 * time.Second

// Inbox retention limits, matching the desktop shell's convention.
const (
	MaxInboxReturn = 100
	MaxInboxTotal  = 500
)
