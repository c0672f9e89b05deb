package message

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestImageRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		img  Image
	}{
		{"header only", Image{}},
		{"one pixel", Image{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}}},
		{"wide", Image{Width: 3, Height: 1, Pixels: bytes.Repeat([]byte{0xaa}, 12)}},
		{"large dimensions", Image{Width: 0xfffffffe, Height: 0x01020304}},
		{"at limit", Image{Width: 1, Height: 1, Pixels: make([]byte, MaxBodySize-8)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := EncodeImage(tc.img)
			if err != nil {
				t.Fatalf("EncodeImage: %v", err)
			}
			if m.Type != TypeImage || len(m.Body) != 8+len(tc.img.Pixels) {
				t.Fatalf("message = %q with %d bytes", m.Type, len(m.Body))
			}
			got, err := Decode(m)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(ImageContent(tc.img), got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImageHeaderIsLittleEndian(t *testing.T) {
	m, err := EncodeImage(Image{Width: 0x0102, Height: 0x0304, Pixels: []byte{9}})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, 0x01, 0, 0, 0x04, 0x03, 0, 0, 9}
	if !bytes.Equal(m.Body, want) {
		t.Fatalf("body = % x, want % x", m.Body, want)
	}
}

func TestEncodeImageTooLarge(t *testing.T) {
	_, err := EncodeImage(Image{Pixels: make([]byte, MaxBodySize-7)})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "naïve — ☃", "line\nbreak\r\n"} {
		got, err := Decode(EncodeText(s))
		if err != nil {
			t.Fatalf("Decode(%q): %v", s, err)
		}
		if diff := cmp.Diff(TextContent(s), got); diff != "" {
			t.Errorf("Decode(EncodeText(%q)) (-want +got):\n%s", s, diff)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		msg  *Message
		want error
	}{
		{"invalid utf8", &Message{Type: TypeText, Body: []byte{'o', 'k', 0xc3}}, ErrInvalidUTF8},
		{"empty image", &Message{Type: TypeImage}, ErrShortImage},
		{"seven byte image", &Message{Type: TypeImage, Body: make([]byte, 7)}, ErrShortImage},
		{"file", &Message{Type: "file", Body: []byte("/tmp/x")}, ErrUnknownType},
		{"empty type", &Message{Body: []byte("x")}, ErrUnknownType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.msg); !errors.Is(err, tc.want) {
				t.Fatalf("Decode() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEncodeDispatch(t *testing.T) {
	m, err := Encode(TextContent("hi"))
	if err != nil || m.Type != TypeText || string(m.Body) != "hi" {
		t.Fatalf("Encode(text) = %+v, %v", m, err)
	}
	if _, err := Encode(Content{Type: "rtf"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Encode(rtf) error = %v", err)
	}
}

func TestContentSize(t *testing.T) {
	if n := TextContent("abc").Size(); n != 3 {
		t.Errorf("text size = %d", n)
	}
	if n := ImageContent(Image{Pixels: make([]byte, 16)}).Size(); n != 24 {
		t.Errorf("image size = %d", n)
	}
}
