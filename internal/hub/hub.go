// Package hub implements the clipboard broadcast hub.
//
// The hub is driven by a single watcher goroutine through OnChange. On every
// change it drains newly registered followers into its roster, prunes stopped
// ones, lazily reads the clipboard, and fans the resulting message out to
// every follower except the most recent inbound writer. Only the registration
// queue, the writer hint and the status snapshot are shared with other
// goroutines; the roster itself belongs to the watcher goroutine.
package hub

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.klb.dev/lanclip/internal/clip"
	"go.klb.dev/lanclip/internal/echo"
	"go.klb.dev/lanclip/internal/follower"
	"go.klb.dev/lanclip/internal/message"
)

// Option configures a Hub.
type Option func(*Hub)

// WithEchoGuard makes the hub swallow any change observed while g is armed.
// Leaf peers use this; a hub that relays between several followers must not,
// because the echo of an inbound write is exactly what it relays.
func WithEchoGuard(g *echo.Guard) Option {
	return func(h *Hub) { h.guard = g }
}

// Hub decides which followers receive each clipboard change.
type Hub struct {
	reader clip.Reader
	guard  *echo.Guard

	pendingMu sync.Mutex
	pending   []*follower.Follower

	writerMu   sync.Mutex
	lastWriter string
	hasWriter  bool

	// roster is only touched from OnChange/Broadcast.
	roster   []*follower.Follower
	snapshot atomic.Pointer[[]*follower.Follower]
}

// New returns a hub that reads changed content from r.
func New(r clip.Reader, opts ...Option) *Hub {
	h := &Hub{reader: r}
	for _, o := range opts {
		o(h)
	}
	h.publish()
	return h
}

// Register queues f for the roster. It never waits on the watcher; f joins
// the roster at the next change.
func (h *Hub) Register(f *follower.Follower) {
	h.pendingMu.Lock()
	h.pending = append(h.pending, f)
	n := len(h.pending)
	h.pendingMu.Unlock()

	info := f.Info()
	slog.Info("follower registered",
		"follower", info.ID,
		"addr", info.Addr,
		"transport", info.Transport,
		"pending", n,
	)
}

// MarkWriter records id as the origin of the content just written to the
// local clipboard. The next broadcast skips that follower and clears the hint.
func (h *Hub) MarkWriter(id string) {
	h.writerMu.Lock()
	h.lastWriter, h.hasWriter = id, true
	h.writerMu.Unlock()
}

// ClearWriter drops the hint if it still names id.
func (h *Hub) ClearWriter(id string) {
	h.writerMu.Lock()
	if h.hasWriter && h.lastWriter == id {
		h.lastWriter, h.hasWriter = "", false
	}
	h.writerMu.Unlock()
}

// OnChange implements clip.Handler. The hub never stops the watcher.
func (h *Hub) OnChange(ev clip.ChangeEvent) clip.Result {
	if h.guard != nil && h.guard.TestAndClear() {
		slog.Debug("clipboard change suppressed as echo", "kind", ev.Kind)
		return clip.Continue()
	}
	h.Broadcast(ev)
	return clip.Continue()
}

// Broadcast handles one change and returns the message it delivered, or nil
// when nothing was sent. Must only be called from the watcher goroutine.
func (h *Hub) Broadcast(ev clip.ChangeEvent) *message.Message {
	h.drain()
	if len(h.roster) == 0 {
		return nil
	}

	h.prune()
	if len(h.roster) == 0 {
		return nil
	}

	msg := h.build(ev.Kind)
	if msg == nil {
		return nil
	}

	exclude, hasExclude := h.takeWriter()
	delivered := 0
	for _, f := range h.roster {
		if hasExclude && f.ID() == exclude {
			continue
		}
		if f.Send(msg) {
			delivered++
		}
	}

	LogMessage("clipboard broadcast", msg, len(h.roster), delivered)
	return msg
}

// Snapshot returns metadata for every follower the hub knows about,
// including ones not yet drained into the roster. Safe for concurrent use.
func (h *Hub) Snapshot() []follower.Info {
	roster := *h.snapshot.Load()

	h.pendingMu.Lock()
	pending := append([]*follower.Follower(nil), h.pending...)
	h.pendingMu.Unlock()

	out := make([]follower.Info, 0, len(roster)+len(pending))
	for _, f := range roster {
		out = append(out, f.Info())
	}
	for _, f := range pending {
		out = append(out, f.Info())
	}
	return out
}

func (h *Hub) drain() {
	h.pendingMu.Lock()
	pending := h.pending
	h.pending = nil
	h.pendingMu.Unlock()

	if len(pending) == 0 {
		return
	}
	h.roster = append(h.roster, pending...)
	h.publish()
}

// prune compacts the roster in place, keeping order.
func (h *Hub) prune() {
	kept := h.roster[:0]
	for _, f := range h.roster {
		if f.IsWorking() {
			kept = append(kept, f)
			continue
		}
		slog.Info("follower pruned", "follower", f.ID())
	}
	for i := len(kept); i < len(h.roster); i++ {
		h.roster[i] = nil
	}
	removed := len(h.roster) - len(kept)
	h.roster = kept
	if removed > 0 {
		h.publish()
	}
}

// publish stores a copy of the roster for Snapshot.
func (h *Hub) publish() {
	cp := append([]*follower.Follower(nil), h.roster...)
	h.snapshot.Store(&cp)
}

func (h *Hub) build(k clip.Kind) *message.Message {
	switch k {
	case clip.KindText, clip.KindImage:
	default:
		slog.Debug("clipboard change ignored", "kind", k)
		return nil
	}

	content, err := h.reader.Read(k)
	if err != nil {
		if errors.Is(err, clip.ErrEmpty) {
			slog.Debug("clipboard empty after change", "kind", k)
		} else {
			slog.Warn("clipboard read failed", "kind", k, "err", err)
		}
		return nil
	}

	msg, err := message.Encode(content)
	if err != nil {
		slog.Warn("clipboard content not sent", "kind", k, "size_bytes", content.Size(), "err", err)
		return nil
	}
	return msg
}

func (h *Hub) takeWriter() (string, bool) {
	h.writerMu.Lock()
	defer h.writerMu.Unlock()
	id, ok := h.lastWriter, h.hasWriter
	h.lastWriter, h.hasWriter = "", false
	return id, ok
}
