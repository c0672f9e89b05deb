//go:build windows || (cgo && (darwin || linux))

package clip

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.design/x/clipboard"

	"go.klb.dev/lanclip/internal/message"
)

type systemBackend struct {
	interval time.Duration
	changes  chan ChangeEvent
	done     chan struct{}
	once     sync.Once
	lastText []byte
	lastImg  []byte
}

// NewSystem returns the OS clipboard, polled every interval (DefaultPollInterval
// when zero). clipboard.Init is called here rather than in init() so commands
// that never touch the clipboard don't fail on headless hosts.
func NewSystem(interval time.Duration) (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	b := &systemBackend{
		interval: interval,
		changes:  make(chan ChangeEvent, 8),
		done:     make(chan struct{}),
		lastText: clipboard.Read(clipboard.FmtText),
		lastImg:  clipboard.Read(clipboard.FmtImage),
	}
	go b.poll()
	return b, nil
}

func (b *systemBackend) Name() string { return "system clipboard (poll)" }

func (b *systemBackend) poll() {
	defer close(b.changes)
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			textChanged := !bytes.Equal(text, b.lastText)
			imgChanged := !bytes.Equal(img, b.lastImg)
			if !textChanged && !imgChanged {
				continue
			}
			b.lastText, b.lastImg = text, img

			kind := KindUnknown
			switch {
			case imgChanged && img != nil:
				kind = KindImage
			case textChanged && text != nil:
				kind = KindText
			}
			select {
			case b.changes <- ChangeEvent{Kind: kind}:
			case <-b.done:
				return
			default:
				slog.Warn("clipboard change queue full, dropping", "kind", kind)
			}
		}
	}
}

func (b *systemBackend) Read(k Kind) (message.Content, error) {
	switch k {
	case KindText:
		text := clipboard.Read(clipboard.FmtText)
		if text == nil {
			return message.Content{}, ErrEmpty
		}
		return message.TextContent(string(text)), nil
	case KindImage:
		data := clipboard.Read(clipboard.FmtImage)
		if data == nil {
			return message.Content{}, ErrEmpty
		}
		img, err := decodePNG(data)
		if err != nil {
			return message.Content{}, err
		}
		return message.ImageContent(img), nil
	default:
		return message.Content{}, fmt.Errorf("%w: cannot read %s", ErrUnsupported, k)
	}
}

// Write replaces the clipboard. The poller only sees content differences, so
// writing what is already there is reported as ErrUnchanged rather than left
// to produce a change that never comes.
func (b *systemBackend) Write(c message.Content) error {
	switch c.Type {
	case message.TypeText:
		if bytes.Equal(clipboard.Read(clipboard.FmtText), []byte(c.Text)) {
			return ErrUnchanged
		}
		clipboard.Write(clipboard.FmtText, []byte(c.Text))
	case message.TypeImage:
		if cur, err := b.Read(KindImage); err == nil && Same(cur, c) {
			return ErrUnchanged
		}
		data, err := encodePNG(c.Image)
		if err != nil {
			return err
		}
		clipboard.Write(clipboard.FmtImage, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, c.Type)
	}
	return nil
}

func (b *systemBackend) Changes() <-chan ChangeEvent { return b.changes }
func (b *systemBackend) Err() error                  { return nil }
func (b *systemBackend) Close()                      { b.once.Do(func() { close(b.done) }) }
