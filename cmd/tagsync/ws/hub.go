package ws

import (
	"sync"

	"github.com/tagforge/tagsync/common/logger"
)

// Hub tracks live sessions and the subscriber registry
// (projectId -> set of sessions). The registry is the only shared
// mutable state across connections and is guarded by a single RWMutex;
// everything else is per-session.
type Hub struct {
	mu          sync.RWMutex
	sessions    map[*Session]struct{}
	subscribers map[string]map[*Session]struct{}
	log         *logger.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions:    make(map[*Session]struct{}),
		subscribers: make(map[string]map[*Session]struct{}),
		log:         log,
	}
}

// Register adds a session at handshake
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s] = struct{}{}
	h.log.Debug("session registered", "conn_id", s.id, "total", len(h.sessions))
}

// Unregister removes a session at disconnect, dropping it from its
// subscriber set. An emptied project set is deleted.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, s)
	h.removeSubscriptionLocked(s)
	h.log.Debug("session unregistered", "conn_id", s.id, "total", len(h.sessions))
}

// Subscribe registers the session under a project, moving it out of
// its previous project's set if it had one. Many sessions may share a
// project.
func (h *Hub) Subscribe(projectID string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeSubscriptionLocked(s)

	set, ok := h.subscribers[projectID]
	if !ok {
		set = make(map[*Session]struct{})
		h.subscribers[projectID] = set
	}
	set[s] = struct{}{}
	s.projectID = projectID

	h.log.Debug("session subscribed",
		"conn_id", s.id,
		"project_id", projectID,
		"subscribers", len(set),
	)
}

// Unsubscribe removes the session from its project's set; no-op if the
// session is not subscribed
func (h *Hub) Unsubscribe(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeSubscriptionLocked(s)
}

func (h *Hub) removeSubscriptionLocked(s *Session) {
	if s.projectID == "" {
		return
	}

	if set, ok := h.subscribers[s.projectID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subscribers, s.projectID)
		}
	}
	s.projectID = ""
}

// Broadcast sends a message to every session subscribed to the project
func (h *Hub) Broadcast(projectID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subscribers[projectID]
	if len(set) == 0 {
		return
	}

	h.log.Debug("broadcasting",
		"project_id", projectID,
		"subscribers", len(set),
	)

	for s := range set {
		s.enqueue(message)
	}
}

// SubscriberCount returns the number of sessions subscribed to a project
func (h *Hub) SubscriberCount(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[projectID])
}

// Close tears down every session. Pending debounce timers are stopped
// before sockets close.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[*Session]struct{})
	h.subscribers = make(map[string]map[*Session]struct{})
	h.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
}
