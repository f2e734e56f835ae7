package core

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbschat/gateway/internal/auth"
	"github.com/rbschat/gateway/internal/store"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// fakeConn is an in-memory core.Conn driven by tests.
type fakeConn struct {
	id       string
	commands chan Command
	done     chan struct{}

	mu          sync.Mutex
	events      []Event
	closed      bool
	closeReason CloseReason
	deliverHook func(Event) error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		id:       id,
		commands: make(chan Command, 16),
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) ReadCommand(ctx context.Context) (Command, error) {
	select {
	case cmd := <-c.commands:
		return cmd, nil
	case <-c.done:
		return Command{}, net.ErrClosed
	case <-ctx.Done():
		return Command{}, ctx.Err()
	}
}

func (c *fakeConn) Deliver(_ context.Context, ev Event) error {
	c.mu.Lock()
	hook := c.deliverHook
	c.mu.Unlock()

	if hook != nil {
		if err := hook(ev); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close(reason CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeReason = reason
	close(c.done)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) snapshotEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// mustEvent polls until the connection has received an event of the given
// kind, skipping events of other kinds.
func mustEvent(t *testing.T, c *fakeConn, kind EventKind) Event {
	t.Helper()

	var seen int
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := c.snapshotEvents()
		for ; seen < len(events); seen++ {
			if events[seen].Kind == kind {
				return events[seen]
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("conn %s: expected event kind %v not received, got %+v", c.id, kind, c.snapshotEvents())
	return Event{}
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeStore is an in-memory store.Store for core tests.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]*store.Room
	messages []*store.Message
	saveHook func(*store.Message) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[string]*store.Room)}
}

func (s *fakeStore) CreateRoom(_ context.Context, roomID, creator string) (*store.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[roomID]; exists {
		return nil, store.ErrRoomExists
	}
	room := &store.Room{ID: roomID, Creator: creator, CreatedAt: time.Now().UTC()}
	s.rooms[roomID] = room
	return room, nil
}

func (s *fakeStore) GetRoom(_ context.Context, roomID string) (*store.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, exists := s.rooms[roomID]
	if !exists {
		return nil, store.ErrRoomNotFound
	}
	return room, nil
}

func (s *fakeStore) SaveMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	hook := s.saveHook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(msg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *msg
	s.messages = append(s.messages, &saved)
	return nil
}

func (s *fakeStore) RecentMessages(_ context.Context, roomID string, limit int) ([]*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var in []*store.Message
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			in = append(in, msg)
		}
	}
	if len(in) > limit {
		in = in[len(in)-limit:]
	}
	out := make([]*store.Message, len(in))
	copy(out, in)
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) messagesIn(roomID string) []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Message
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			out = append(out, *msg)
		}
	}
	return out
}

func (s *fakeStore) countContent(roomID, content string) int {
	n := 0
	for _, msg := range s.messagesIn(roomID) {
		if msg.Content == content {
			n++
		}
	}
	return n
}

// fixture assembles the full coordination core over fakes.
type fixture struct {
	st       *fakeStore
	authCfg  *auth.Config
	gate     *auth.Gate
	reg      *Registry
	bus      *Bus
	presence *Notifier
	dir      *Directory
	handler  *Handler
}

func newFixture(historyLimit int) *fixture {
	st := newFakeStore()
	authCfg := &auth.Config{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	gate := auth.NewGate(authCfg)
	logger := testLogger()

	reg := NewRegistry()
	bus := NewBus(reg, st, logger)
	presence := NewNotifier(reg, bus, logger)
	dir := NewDirectory(st)
	handler := NewHandler(gate, dir, reg, bus, presence, st, historyLimit, logger)

	return &fixture{
		st:       st,
		authCfg:  authCfg,
		gate:     gate,
		reg:      reg,
		bus:      bus,
		presence: presence,
		dir:      dir,
		handler:  handler,
	}
}

func (f *fixture) token(t *testing.T, username string) string {
	t.Helper()
	token, err := f.gate.Issue(username)
	if err != nil {
		t.Fatalf("issue token for %s: %v", username, err)
	}
	return token
}

// run drives the handler for a connection in the background and returns a
// channel closed when the handler finishes.
func (f *fixture) run(conn *fakeConn, params ConnectParams) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		f.handler.Run(context.Background(), conn, params)
		close(finished)
	}()
	return finished
}

// join connects a user to a room and waits until the handler reaches the
// active state (the user-list frame after the join announcement).
func (f *fixture) join(t *testing.T, username, roomID string, mode JoinMode) (*fakeConn, <-chan struct{}) {
	t.Helper()

	conn := newFakeConn(username + "-conn")
	finished := f.run(conn, ConnectParams{RoomID: roomID, Mode: mode, Token: f.token(t, username)})
	mustEvent(t, conn, EventUsers)
	return conn, finished
}

func mustFinish(t *testing.T, finished <-chan struct{}) {
	t.Helper()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not finish in time")
	}
}
