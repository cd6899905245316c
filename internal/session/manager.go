package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"WarrenFinSaas/internal/mapper"
	"WarrenFinSaas/internal/sheet"
)

// MappingSession owns one in-progress statement mapping: the raw sheet, the
// resolved structure, and the mutable AccountNode collection. It replaces
// the module-global cache pattern of the original UI with an explicit,
// request-scoped object: the caller owns the session, and Replace/Reset are
// explicit operations rather than implicit globals.
//
// seq is the monotonic analysis token. Every re-analyze bumps it; an
// analysis result tagged with an older token is discarded, so a slow, stale
// AI response can never overwrite fresher state.
type MappingSession struct {
	ID        string
	FileName  string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu        sync.Mutex
	sheet     sheet.RawSheet
	structure mapper.SheetStructure
	nodes     []*mapper.AccountNode
	seq       uint64
}

// Sheet returns the immutable raw sheet.
func (s *MappingSession) Sheet() sheet.RawSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet
}

// Structure returns the current resolved structure.
func (s *MappingSession) Structure() mapper.SheetStructure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structure
}

// BeginAnalysis reserves the next analysis token. The matching
// ApplyAnalysis call must present it.
func (s *MappingSession) BeginAnalysis() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// ApplyAnalysis installs an analysis result. Returns false, leaving state
// untouched, when a newer analysis has started since token was issued.
func (s *MappingSession) ApplyAnalysis(token uint64, structure mapper.SheetStructure, nodes []*mapper.AccountNode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token < s.seq {
		return false
	}
	s.structure = structure
	s.nodes = nodes
	return true
}

// WithNodes runs fn under the session lock. All manual edit operations go
// through here; there is exactly one logical writer, but HTTP handlers share
// the session map.
func (s *MappingSession) WithNodes(fn func(nodes []*mapper.AccountNode)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.nodes)
}

// Nodes returns the current node slice. Callers must treat it as read-only;
// mutations go through WithNodes.
func (s *MappingSession) Nodes() []*mapper.AccountNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes
}

// Reset clears the node collection and structure but keeps the uploaded
// sheet, ready for a fresh analysis pass.
func (s *MappingSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structure = mapper.SheetStructure{}
	s.nodes = nil
}

// Manager owns all live mapping sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*MappingSession
	ttl      time.Duration
}

// NewManager builds an empty session manager with the given idle TTL.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*MappingSession),
		ttl:      ttl,
	}
}

// Create registers a new mapping session for an uploaded sheet.
func (m *Manager) Create(fileName string, raw sheet.RawSheet) *MappingSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s := &MappingSession{
		ID:        uuid.NewString(),
		FileName:  fileName,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		sheet:     raw,
	}
	m.sessions[s.ID] = s
	return s
}

// Get looks up a session and refreshes its expiry.
func (m *Manager) Get(id string) (*MappingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.ExpiresAt = time.Now().Add(m.ttl)
	}
	return s, ok
}

// Delete removes a session, typically after a successful save.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// CleanupExpired drops idle sessions and returns how many were removed.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	now := time.Now()
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
