package follower

import (
	"testing"

	"go.klb.dev/lanclip/internal/message"
)

func TestNewAssignsUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		f := New(Info{}, 1)
		if f.ID() == "" {
			t.Fatal("empty id")
		}
		if seen[f.ID()] {
			t.Fatalf("duplicate id %s", f.ID())
		}
		seen[f.ID()] = true
	}
}

func TestNewKeepsGivenID(t *testing.T) {
	f := New(Info{ID: "peer-1", Addr: "10.0.0.2:5000"}, 0)
	if f.ID() != "peer-1" {
		t.Fatalf("ID() = %q, want peer-1", f.ID())
	}
	if cap(f.out) != DefaultBuffer {
		t.Fatalf("buffer = %d, want %d", cap(f.out), DefaultBuffer)
	}
	if f.Info().ConnectedAt.IsZero() {
		t.Fatal("ConnectedAt not defaulted")
	}
}

func TestSendDeliversInOrder(t *testing.T) {
	f := New(Info{}, 4)
	for _, s := range []string{"a", "b", "c"} {
		if !f.Send(message.EncodeText(s)) {
			t.Fatalf("Send(%q) dropped", s)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		got := <-f.Outbound()
		if string(got.Body) != want {
			t.Fatalf("got %q, want %q", got.Body, want)
		}
	}
	if f.Info().LastSent.IsZero() {
		t.Fatal("LastSent not recorded")
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	f := New(Info{}, 1)
	if !f.Send(message.EncodeText("first")) {
		t.Fatal("first send dropped")
	}
	if f.Send(message.EncodeText("second")) {
		t.Fatal("send on full queue should drop")
	}
	if !f.IsWorking() {
		t.Fatal("backpressure must not stop the follower")
	}
	if got := <-f.Outbound(); string(got.Body) != "first" {
		t.Fatalf("got %q, want first", got.Body)
	}
}

func TestCancelIsObservedOnSend(t *testing.T) {
	f := New(Info{}, 4)
	f.Cancel()

	if !f.IsWorking() {
		t.Fatal("cancellation is cooperative: state must not change before Send")
	}
	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed after Cancel")
	}

	if f.Send(message.EncodeText("x")) {
		t.Fatal("Send after Cancel must be a no-op")
	}
	if f.IsWorking() {
		t.Fatal("Send after Cancel must transition to Stopped")
	}
	if f.State() != Stopped || f.Info().State != "stopped" {
		t.Fatalf("state = %v", f.State())
	}
	if len(f.Outbound()) != 0 {
		t.Fatal("message queued after cancellation")
	}
}

func TestStoppedNeverReturnsToWorking(t *testing.T) {
	f := New(Info{}, 4)
	f.Cancel()
	f.Cancel()
	f.Send(message.EncodeText("x"))
	for range 3 {
		f.Send(message.EncodeText("y"))
		if f.IsWorking() {
			t.Fatal("follower returned to Working")
		}
	}
}
