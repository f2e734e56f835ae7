package core

import (
	"sort"
	"sync"
)

type member struct {
	username string
	roomID   string
}

// Registry is the single source of truth for who is connected, as whom, in
// which room. Purely in-memory, process-lifetime state. The map is never
// exposed to callers; every access happens under the registry lock and
// iteration results are copied out before any blocking I/O.
type Registry struct {
	mu    sync.Mutex
	conns map[Conn]member
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]member)}
}

// Admit registers a connection for (username, roomID). The duplicate check
// and the insert are a single atomic step; a second live connection for the
// same pair is rejected with ErrDuplicateConnection.
func (r *Registry) Admit(conn Conn, username, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.conns {
		if m.username == username && m.roomID == roomID {
			return ErrDuplicateConnection
		}
	}

	r.conns[conn] = member{username: username, roomID: roomID}
	return nil
}

// Remove deletes a connection and reports who it belonged to. Idempotent:
// the second call for the same connection returns ok=false, which gates the
// leave announcement to exactly once.
func (r *Registry) Remove(conn Conn) (username, roomID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.conns[conn]
	if !exists {
		return "", "", false
	}
	delete(r.conns, conn)
	return m.username, m.roomID, true
}

// Find returns the live connection for (username, roomID), or nil.
func (r *Registry) Find(username, roomID string) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conn, m := range r.conns {
		if m.username == username && m.roomID == roomID {
			return conn
		}
	}
	return nil
}

// UsernamesIn returns the sorted, deduplicated usernames present in a room.
func (r *Registry) UsernamesIn(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	users := make([]string, 0)
	for _, m := range r.conns {
		if m.roomID != roomID {
			continue
		}
		if _, dup := seen[m.username]; dup {
			continue
		}
		seen[m.username] = struct{}{}
		users = append(users, m.username)
	}

	sort.Strings(users)
	return users
}

// ConnectionsIn returns a point-in-time snapshot of the connections in a
// room. The copy is taken under the lock so broadcasts never iterate a
// half-mutated map.
func (r *Registry) ConnectionsIn(roomID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]Conn, 0)
	for conn, m := range r.conns {
		if m.roomID == roomID {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Len reports how many connections are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
