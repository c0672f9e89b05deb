// Package message defines the lanclip clipboard payload and its content codec.
//
// A Message carries one clipboard value. Type selects how Body is read:
//
//	"text"   UTF-8 bytes
//	"image"  [width u32 LE][height u32 LE][RGBA8 pixels]
//
// The protobuf wire form of a Message lives in package wire.
package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Type identifies the kind of clipboard content in a Message.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
)

const (
	// MaxBodySize caps outbound message bodies (10 MiB). Inbound size is
	// bounded only by the transport.
	MaxBodySize = 10 * 1024 * 1024

	imageHeaderSize = 8
)

var (
	ErrTooLarge    = errors.New("message body exceeds 10 MiB")
	ErrInvalidUTF8 = errors.New("text body is not valid UTF-8")
	ErrShortImage  = errors.New("image body shorter than 8-byte header")
	ErrUnknownType = errors.New("unrecognized message type")
)

// Message is the unit exchanged between peers in both directions.
type Message struct {
	Type Type
	Body []byte
}

// Image is a raw RGBA8 bitmap, four bytes per pixel, row-major.
type Image struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// Content is a decoded clipboard value. Exactly one of Text or Image is
// meaningful, selected by Type.
type Content struct {
	Type  Type
	Text  string
	Image Image
}

// TextContent wraps s as text Content.
func TextContent(s string) Content { return Content{Type: TypeText, Text: s} }

// ImageContent wraps img as image Content.
func ImageContent(img Image) Content { return Content{Type: TypeImage, Image: img} }

// Size returns the number of payload bytes the content would occupy on the wire.
func (c Content) Size() int {
	if c.Type == TypeImage {
		return imageHeaderSize + len(c.Image.Pixels)
	}
	return len(c.Text)
}

// EncodeText builds a text message from s.
func EncodeText(s string) *Message {
	return &Message{Type: TypeText, Body: []byte(s)}
}

// EncodeImage builds an image message. It fails with ErrTooLarge when the
// resulting body would exceed MaxBodySize.
func EncodeImage(img Image) (*Message, error) {
	n := imageHeaderSize + len(img.Pixels)
	if n > MaxBodySize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, n)
	}
	body := make([]byte, n)
	binary.LittleEndian.PutUint32(body[0:4], img.Width)
	binary.LittleEndian.PutUint32(body[4:8], img.Height)
	copy(body[imageHeaderSize:], img.Pixels)
	return &Message{Type: TypeImage, Body: body}, nil
}

// Encode builds the outbound message for c.
func Encode(c Content) (*Message, error) {
	switch c.Type {
	case TypeText:
		return EncodeText(c.Text), nil
	case TypeImage:
		return EncodeImage(c.Image)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}
}

// Decode interprets m's body according to its type.
func Decode(m *Message) (Content, error) {
	switch m.Type {
	case TypeText:
		if !utf8.Valid(m.Body) {
			return Content{}, ErrInvalidUTF8
		}
		return TextContent(string(m.Body)), nil

	case TypeImage:
		if len(m.Body) < imageHeaderSize {
			return Content{}, fmt.Errorf("%w (%d bytes)", ErrShortImage, len(m.Body))
		}
		return ImageContent(Image{
			Width:  binary.LittleEndian.Uint32(m.Body[0:4]),
			Height: binary.LittleEndian.Uint32(m.Body[4:8]),
			Pixels: m.Body[imageHeaderSize:],
		}), nil

	default:
		return Content{}, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}
