// Package clip is lanclip's view of the local clipboard: a change watcher
// that reports a coarse content kind, a lazy reader and a writer.
//
// Backends:
//
//	system.go        golang.design/x/clipboard, polled (darwin, linux, windows)
//	system_other.go  unavailable stub for other platforms
//	memory.go        in-process clipboard for relay mode and tests
package clip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.klb.dev/lanclip/internal/message"
)

// DefaultPollInterval is the refresh granularity of polling backends.
const DefaultPollInterval = 500 * time.Millisecond

var (
	// ErrUnavailable means no usable system clipboard (no display, no cgo, ...).
	ErrUnavailable = errors.New("clipboard unavailable")
	// ErrEmpty means the clipboard holds nothing of the requested kind.
	ErrEmpty = errors.New("clipboard has no content of requested kind")
	// ErrUnsupported means the content type cannot be written.
	ErrUnsupported = errors.New("unsupported clipboard content")
	// ErrUnchanged means a Write found the content already in place. No
	// change is reported for it.
	ErrUnchanged = errors.New("clipboard already holds this content")
)

// Kind is the coarse classification a watcher attaches to a change.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindImage
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// KindOf maps a message type to the kind a watcher would report for it.
func KindOf(t message.Type) Kind {
	switch t {
	case message.TypeText:
		return KindText
	case message.TypeImage:
		return KindImage
	default:
		return KindUnknown
	}
}

// ChangeEvent reports that the clipboard changed. It carries no payload.
type ChangeEvent struct {
	Kind Kind
}

// Result tells the watch loop what to do after a change was handled.
type Result struct {
	stop bool
	err  error
}

// Continue waits for the next change.
func Continue() Result { return Result{} }

// Stop ends the watch loop cleanly.
func Stop() Result { return Result{stop: true} }

// StopWithError ends the watch loop and makes Run return err.
func StopWithError(err error) Result { return Result{stop: true, err: err} }

// Handler observes clipboard changes. OnChange is called from a single
// goroutine and must not block for long.
type Handler interface {
	OnChange(ChangeEvent) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ChangeEvent) Result

func (f HandlerFunc) OnChange(ev ChangeEvent) Result { return f(ev) }

// Reader reads the clipboard on demand.
type Reader interface {
	// Read returns the current content of the given kind. Only KindText and
	// KindImage are readable.
	Read(Kind) (message.Content, error)
}

// Writer replaces the clipboard content. Writing what the clipboard already
// holds returns ErrUnchanged.
type Writer interface {
	Write(message.Content) error
}

// Backend is a complete clipboard implementation.
type Backend interface {
	Reader
	Writer

	// Name returns a human-readable name for the backend.
	Name() string

	// Changes delivers one event per detected change. It is closed when the
	// backend is closed or fails; Err then reports the failure, if any.
	Changes() <-chan ChangeEvent

	// Err returns the fatal error that closed Changes, or nil.
	Err() error

	// Close stops change detection and releases resources.
	Close()
}

// Run feeds b's changes to h until ctx is done, h stops, or the backend
// fails. A backend failure is fatal: without detection nothing further is
// ever observed, so it is returned for the caller to restart.
func Run(ctx context.Context, b Backend, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-b.Changes():
			if !ok {
				if err := b.Err(); err != nil {
					return fmt.Errorf("clipboard watcher %s: %w", b.Name(), err)
				}
				return nil
			}
			res := h.OnChange(ev)
			if res.err != nil {
				return res.err
			}
			if res.stop {
				return nil
			}
		}
	}
}

// Same reports whether a and b are the same clipboard value.
func Same(a, b message.Content) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == message.TypeImage {
		return a.Image.Width == b.Image.Width &&
			a.Image.Height == b.Image.Height &&
			bytes.Equal(a.Image.Pixels, b.Image.Pixels)
	}
	return a.Text == b.Text
}
