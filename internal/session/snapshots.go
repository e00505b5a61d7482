package session

import (
	"sync"
	"time"

	"github.com/pbxkit/softphone/internal/event"
)

// ExtensionSnapshot mirrors the push channel's last reported state for one
// extension belonging to the current user.
type ExtensionSnapshot struct {
	Exten         string                             `json:"exten"`
	Username      string                             `json:"username"`
	Status        string                             `json:"status"`
	Conversations map[string]event.ConversationEvent `json:"conversations"`
	UpdatedAt     time.Time                          `json:"updated_at"`
}

// SnapshotTable caches extension snapshots for the lifetime of the push
// connection. Snapshots are replaced wholesale on each relevant push
// event, never merged. Keyed by extension number; the username is carried
// on each snapshot (a user typically owns one extension per device type).
type SnapshotTable struct {
	mu    sync.Mutex
	snaps map[string]ExtensionSnapshot
}

// NewSnapshotTable creates an empty snapshot table.
func NewSnapshotTable() *SnapshotTable {
	return &SnapshotTable{snaps: map[string]ExtensionSnapshot{}}
}

// Replace stores the snapshot derived from an extenUpdate, overwriting any
// previous state for that extension.
func (t *SnapshotTable) Replace(u event.ExtenUpdate) {
	convs := make(map[string]event.ConversationEvent, len(u.Conversations))
	for id, c := range u.Conversations {
		convs[id] = event.Canonical(id, c)
	}
	t.mu.Lock()
	t.snaps[u.Exten] = ExtensionSnapshot{
		Exten:         u.Exten,
		Username:      u.Username,
		Status:        u.Status,
		Conversations: convs,
		UpdatedAt:     time.Now(),
	}
	t.mu.Unlock()
}

// Get returns the snapshot for an extension, if present.
func (t *SnapshotTable) Get(exten string) (ExtensionSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.snaps[exten]
	return s, ok
}

// Remove drops the snapshot for an extension.
func (t *SnapshotTable) Remove(exten string) {
	t.mu.Lock()
	delete(t.snaps, exten)
	t.mu.Unlock()
}

// Snapshot returns a copy of the whole table.
func (t *SnapshotTable) Snapshot() map[string]ExtensionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make(map[string]ExtensionSnapshot, len(t.snaps))
	for k, v := range t.snaps {
		cp[k] = v
	}
	return cp
}

// IsFullyIdle reports whether none of the given extensions currently has a
// conversation in its snapshot. Extensions with no snapshot count as idle.
func (t *SnapshotTable) IsFullyIdle(ownedExtens []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ex := range ownedExtens {
		if s, ok := t.snaps[ex]; ok && len(s.Conversations) > 0 {
			return false
		}
	}
	return true
}

// Clear drops all snapshots (used when the push connection is replaced).
func (t *SnapshotTable) Clear() {
	t.mu.Lock()
	t.snaps = map[string]ExtensionSnapshot{}
	t.mu.Unlock()
}
