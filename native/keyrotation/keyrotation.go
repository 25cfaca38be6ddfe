// Package keyrotation implements per-agent key lifecycle management (C5):
// ACTIVE/ROTATING/REVOKED/EXPIRED key states with a grace period window
// during which a rotated-out key still verifies. Unlike the source
// system's module-level singleton (a process-wide
// get_key_rotation_manager()), a Manager here is an explicitly constructed
// value: callers wire one instance per process, or one per test, with no
// hidden global state.
package keyrotation

import (
	"sort"
	"sync"
	"time"

	"github.com/sardis-labs/agentpay/crypto"
	"github.com/sardis-labs/agentpay/native/identity"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// State is a key's position in its rotation lifecycle.
type State string

const (
	StateActive   State = "ACTIVE"
	StateRotating State = "ROTATING"
	StateRevoked  State = "REVOKED"
	StateExpired  State = "EXPIRED"
)

// Key is one key record for an agent.
type Key struct {
	KeyID        string
	AgentID      string
	VerifyingKey *crypto.VerifyingKey
	State        State
	RegisteredAt time.Time
	// GraceUntil is when a ROTATING key transitions to EXPIRED. Zero for
	// keys that have never been rotated out.
	GraceUntil time.Time
}

// IsUsable reports whether k may currently be used to verify a signature:
// ACTIVE always, ROTATING until its grace period elapses.
func (k Key) IsUsable(now time.Time) bool {
	switch k.State {
	case StateActive:
		return true
	case StateRotating:
		return now.Before(k.GraceUntil)
	default:
		return false
	}
}

// Manager tracks key state for every agent it has been told about. It
// implements identity.KeySource.
type Manager struct {
	mu        sync.Mutex
	now       func() time.Time
	graceWin  time.Duration
	keysByID  map[string]*Key   // keyID -> key
	agentKeys map[string][]*Key // agentID -> keys, most recently registered last
}

// NewManager constructs a Manager with the given default grace window,
// applied whenever RegisterKey rotates out a previous active key.
func NewManager(graceWindow time.Duration) *Manager {
	return &Manager{
		now:       time.Now,
		graceWin:  graceWindow,
		keysByID:  make(map[string]*Key),
		agentKeys: make(map[string][]*Key),
	}
}

// RegisterKey adds a new key for an agent, becoming its ACTIVE key. Any
// previously ACTIVE key for the same agent moves to ROTATING with a grace
// period ending at now + grace window.
func (m *Manager) RegisterKey(agentID, keyID string, vk *crypto.VerifyingKey) *Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, k := range m.agentKeys[agentID] {
		if k.State == StateActive {
			k.State = StateRotating
			k.GraceUntil = now.Add(m.graceWin)
		}
	}

	key := &Key{
		KeyID: keyID, AgentID: agentID, VerifyingKey: vk,
		State: StateActive, RegisteredAt: now,
	}
	m.keysByID[keyID] = key
	m.agentKeys[agentID] = append(m.agentKeys[agentID], key)
	return key
}

// RevokeKey immediately revokes a key regardless of its current state,
// for emergency rotation (compromised key).
func (m *Manager) RevokeKey(keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keysByID[keyID]
	if !ok {
		return agentpayerrors.NotFound("key", keyID)
	}
	k.State = StateRevoked
	return nil
}

// SweepExpired transitions every ROTATING key whose grace period has
// elapsed to EXPIRED. Returns the number of keys transitioned.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	count := 0
	for _, k := range m.keysByID {
		if k.State == StateRotating && !now.Before(k.GraceUntil) {
			k.State = StateExpired
			count++
		}
	}
	return count
}

// ActiveKeys implements identity.KeySource: it returns every currently
// usable key for an agent, active key first, so the common case of
// verifying against the active key short-circuits before trying keys in
// their grace period.
func (m *Manager) ActiveKeys(agentID string) []identity.KeyCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	keys := append([]*Key(nil), m.agentKeys[agentID]...)
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].State == StateActive && keys[j].State != StateActive
	})

	out := make([]identity.KeyCandidate, 0, len(keys))
	for _, k := range keys {
		if k.IsUsable(now) {
			out = append(out, identity.KeyCandidate{KeyID: k.KeyID, VerifyingKey: k.VerifyingKey})
		}
	}
	return out
}

// KeyState returns the current state of a specific key, for audit and
// diagnostics surfaces.
func (m *Manager) KeyState(keyID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keysByID[keyID]
	if !ok {
		return "", agentpayerrors.NotFound("key", keyID)
	}
	return k.State, nil
}
