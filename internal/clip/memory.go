package clip

import (
	"log/slog"
	"sync"

	"go.klb.dev/lanclip/internal/message"
)

const memoryChangeBuffer = 64

// Memory is an in-process clipboard. Every Set, and every Write that changes
// the content, is reported on Changes the way an OS clipboard poller would
// report it. This makes a server without a display a pure relay.
type Memory struct {
	mu       sync.Mutex
	content  message.Content
	has      bool
	changes  chan ChangeEvent
	closed   bool
	err      error
	readErr  error
	writeErr error
	writes   []message.Content
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory {
	return &Memory{changes: make(chan ChangeEvent, memoryChangeBuffer)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Read(k Kind) (message.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return message.Content{}, m.readErr
	}
	if !m.has || KindOf(m.content.Type) != k {
		return message.Content{}, ErrEmpty
	}
	return m.content, nil
}

// Write stores c and reports a change. Like an OS clipboard poller, it
// reports nothing for content that is already there.
func (m *Memory) Write(c message.Content) error {
	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	if KindOf(c.Type) == KindUnknown {
		m.mu.Unlock()
		return ErrUnsupported
	}
	if m.has && Same(m.content, c) {
		m.mu.Unlock()
		return ErrUnchanged
	}
	m.content, m.has = c, true
	m.writes = append(m.writes, c)
	m.mu.Unlock()

	m.Notify(KindOf(c.Type))
	return nil
}

// Set replaces the content as a local user edit would.
func (m *Memory) Set(c message.Content) {
	m.mu.Lock()
	m.content, m.has = c, true
	m.mu.Unlock()
	m.Notify(KindOf(c.Type))
}

// Notify reports a change of kind k without touching the content. Changes
// are coalesced (dropped) when the consumer falls behind.
func (m *Memory) Notify(k Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.changes <- ChangeEvent{Kind: k}:
	default:
		slog.Warn("memory clipboard change queue full, dropping", "kind", k)
	}
}

// Writes returns every content applied through Write, oldest first.
func (m *Memory) Writes() []message.Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]message.Content, len(m.writes))
	copy(out, m.writes)
	return out
}

// FailReads makes subsequent Reads return err (nil restores them).
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// FailWrites makes subsequent Writes return err (nil restores them).
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Fail closes Changes with a fatal error.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.err = err
	m.closed = true
	close(m.changes)
}

func (m *Memory) Changes() <-chan ChangeEvent { return m.changes }

func (m *Memory) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.changes)
}
