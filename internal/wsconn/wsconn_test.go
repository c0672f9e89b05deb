package wsconn

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.klb.dev/lanclip/internal/clip"
	"go.klb.dev/lanclip/internal/hub"
	"go.klb.dev/lanclip/internal/message"
	"go.klb.dev/lanclip/internal/session"
)

func startServer(t *testing.T) (*clip.Memory, *hub.Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	mem := clip.NewMemory()
	h := hub.New(mem)
	go clip.Run(ctx, mem, h)
	srv := httptest.NewServer(Handler(session.Config{Hub: h, Writer: mem}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		mem.Close()
	})
	return mem, h, "ws" + strings.TrimPrefix(srv.URL, "http") + Path
}

func dial(t *testing.T, url string) (*Conn, <-chan *message.Message) {
	t.Helper()
	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	ch := make(chan *message.Message, 8)
	go func() {
		defer close(ch)
		for {
			m, err := c.Recv()
			if err != nil {
				return
			}
			ch <- m
		}
	}()
	return c, ch
}

func next(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatal("connection closed")
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func waitFollowers(t *testing.T, h *hub.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(h.Snapshot()) != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d followers, want %d", len(h.Snapshot()), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRelayOverWebSocket(t *testing.T) {
	mem, h, url := startServer(t)
	_, fromA := dial(t, url)
	b, fromB := dial(t, url)
	waitFollowers(t, h, 2)

	img := message.Image{Width: 2, Height: 1, Pixels: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	m, err := message.EncodeImage(img)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Send(m); err != nil {
		t.Fatal(err)
	}

	got := next(t, fromA)
	c, err := message.Decode(got)
	if err != nil {
		t.Fatal(err)
	}
	if c.Type != message.TypeImage || c.Image.Width != 2 || string(c.Image.Pixels) != string(img.Pixels) {
		t.Fatalf("A received %+v", c)
	}

	mem.Set(message.TextContent("next"))
	if m := next(t, fromB); string(m.Body) != "next" {
		t.Fatalf("B received %q first, want %q", m.Body, "next")
	}
}

func TestClientCloseEndsServerSession(t *testing.T) {
	mem, h, url := startServer(t)
	a, _ := dial(t, url)
	waitFollowers(t, h, 1)

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(h.Snapshot()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed connection never pruned")
		}
		mem.Set(message.TextContent("tick"))
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	_, _, url := startServer(t)
	a, _ := dial(t, url)
	a.Close()
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}
