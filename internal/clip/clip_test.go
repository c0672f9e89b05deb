package clip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go.klb.dev/lanclip/internal/message"
)

func runAsync(ctx context.Context, b Backend, h Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- Run(ctx, b, h) }()
	return done
}

func result(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestRunStopsWhenHandlerStops(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()
	var seen []Kind
	done := runAsync(context.Background(), mem, HandlerFunc(func(ev ChangeEvent) Result {
		seen = append(seen, ev.Kind)
		if len(seen) == 2 {
			return Stop()
		}
		return Continue()
	}))
	mem.Notify(KindText)
	mem.Notify(KindFile)
	mem.Notify(KindImage)

	if err := result(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if diff := cmp.Diff([]Kind{KindText, KindFile}, seen); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestRunReturnsHandlerError(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()
	boom := errors.New("boom")
	done := runAsync(context.Background(), mem, HandlerFunc(func(ChangeEvent) Result {
		return StopWithError(boom)
	}))
	mem.Notify(KindUnknown)
	if err := result(t, done); !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want boom", err)
	}
}

func TestRunReturnsBackendFailure(t *testing.T) {
	mem := NewMemory()
	lost := errors.New("display connection lost")
	done := runAsync(context.Background(), mem, HandlerFunc(func(ChangeEvent) Result { return Continue() }))
	mem.Fail(lost)
	if err := result(t, done); !errors.Is(err, lost) {
		t.Fatalf("Run() = %v, want wrapped %v", err, lost)
	}
}

func TestRunEndsCleanlyOnCloseAndCancel(t *testing.T) {
	h := HandlerFunc(func(ChangeEvent) Result { return Continue() })

	mem := NewMemory()
	done := runAsync(context.Background(), mem, h)
	mem.Close()
	if err := result(t, done); err != nil {
		t.Fatalf("Run() after Close = %v", err)
	}

	mem = NewMemory()
	defer mem.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done = runAsync(ctx, mem, h)
	cancel()
	if err := result(t, done); err != nil {
		t.Fatalf("Run() after cancel = %v", err)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[message.Type]Kind{
		message.TypeText:  KindText,
		message.TypeImage: KindImage,
		"file":            KindUnknown,
	}
	for typ, want := range cases {
		if got := KindOf(typ); got != want {
			t.Errorf("KindOf(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestMemoryReadMatchesKind(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()

	if _, err := mem.Read(KindText); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Read on empty = %v, want ErrEmpty", err)
	}
	mem.Set(message.TextContent("hi"))
	if _, err := mem.Read(KindImage); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Read(image) of text = %v, want ErrEmpty", err)
	}
	c, err := mem.Read(KindText)
	if err != nil || c.Text != "hi" {
		t.Fatalf("Read(text) = %+v, %v", c, err)
	}
	if ev := <-mem.Changes(); ev.Kind != KindText {
		t.Fatalf("change kind = %v", ev.Kind)
	}
	if len(mem.Writes()) != 0 {
		t.Fatal("Set recorded as a Write")
	}
}

func TestMemoryWrite(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()

	if err := mem.Write(message.Content{Type: "rtf"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Write(rtf) = %v, want ErrUnsupported", err)
	}
	img := message.Image{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}}
	if err := mem.Write(message.ImageContent(img)); err != nil {
		t.Fatal(err)
	}
	if ev := <-mem.Changes(); ev.Kind != KindImage {
		t.Fatalf("change kind = %v", ev.Kind)
	}

	locked := errors.New("locked")
	mem.FailWrites(locked)
	if err := mem.Write(message.TextContent("x")); !errors.Is(err, locked) {
		t.Fatalf("Write = %v, want locked", err)
	}
	if diff := cmp.Diff([]message.Content{message.ImageContent(img)}, mem.Writes()); diff != "" {
		t.Errorf("writes (-want +got):\n%s", diff)
	}
}

func TestMemoryNotifyAfterCloseIsDropped(t *testing.T) {
	mem := NewMemory()
	mem.Close()
	mem.Notify(KindText) // must not panic on the closed channel
	mem.Close()
	if _, ok := <-mem.Changes(); ok {
		t.Fatal("event delivered after Close")
	}
}

func TestPNGRoundTrip(t *testing.T) {
	img := message.Image{
		Width:  2,
		Height: 2,
		Pixels: []byte{
			255, 0, 0, 255, 0, 255, 0, 255,
			0, 0, 255, 255, 10, 20, 30, 255,
		},
	}
	b, err := encodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodePNG(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(img, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestEncodePNGRejectsBadGeometry(t *testing.T) {
	for _, img := range []message.Image{
		{Width: 2, Height: 2, Pixels: make([]byte, 15)},
		{Width: 0, Height: 5},
	} {
		if _, err := encodePNG(img); !errors.Is(err, ErrUnsupported) {
			t.Errorf("encodePNG(%dx%d, %d bytes) = %v, want ErrUnsupported",
				img.Width, img.Height, len(img.Pixels), err)
		}
	}
	if _, err := decodePNG([]byte("not a png")); err == nil {
		t.Error("decodePNG accepted garbage")
	}
}

func TestMemoryWriteOfCurrentContentIsUnchanged(t *testing.T) {
	mem := NewMemory()
	defer mem.Close()
	img := message.Image{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}}

	for _, c := range []message.Content{message.TextContent("same"), message.ImageContent(img)} {
		if err := mem.Write(c); err != nil {
			t.Fatal(err)
		}
		<-mem.Changes()
		if err := mem.Write(c); !errors.Is(err, ErrUnchanged) {
			t.Fatalf("second Write(%s) = %v, want ErrUnchanged", c.Type, err)
		}
		select {
		case ev := <-mem.Changes():
			t.Fatalf("unchanged write reported a %v change", ev.Kind)
		default:
		}
	}
	if n := len(mem.Writes()); n != 2 {
		t.Fatalf("recorded %d writes, want 2", n)
	}
}

func TestSame(t *testing.T) {
	a := message.ImageContent(message.Image{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}})
	b := message.ImageContent(message.Image{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 5}})
	cases := []struct {
		x, y message.Content
		want bool
	}{
		{message.TextContent("a"), message.TextContent("a"), true},
		{message.TextContent("a"), message.TextContent("b"), false},
		{message.TextContent(""), message.ImageContent(message.Image{}), false},
		{a, a, true},
		{a, b, false},
	}
	for i, tc := range cases {
		if got := Same(tc.x, tc.y); got != tc.want {
			t.Errorf("case %d: Same() = %v, want %v", i, got, tc.want)
		}
	}
}
