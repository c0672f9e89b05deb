// Package wire carries lanclip messages over gRPC.
//
// Messages use the protobuf encoding of
//
//	message Message {
//	  string type = 1;
//	  bytes  body = 2;
//	}
//
// produced with protowire rather than generated code, and the
// ClipboardService descriptor below is registered by hand. The codec is
// forced on both ends so no protoc output is needed.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"go.klb.dev/lanclip/internal/message"
)

const (
	fieldType protowire.Number = 1
	fieldBody protowire.Number = 2
)

var ErrMalformed = errors.New("malformed message")

// Marshal returns the protobuf encoding of m. Empty fields are omitted, as
// proto3 requires.
func Marshal(m *message.Message) []byte {
	b := make([]byte, 0, len(m.Type)+len(m.Body)+16)
	if m.Type != "" {
		b = protowire.AppendTag(b, fieldType, protowire.BytesType)
		b = protowire.AppendString(b, string(m.Type))
	}
	if len(m.Body) > 0 {
		b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Body)
	}
	return b
}

// Unmarshal decodes b into a Message. Unknown fields are skipped.
func Unmarshal(b []byte) (*message.Message, error) {
	m := &message.Message{}
	if err := unmarshalInto(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshalInto(b []byte, m *message.Message) error {
	*m = message.Message{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldType && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: type: %v", ErrMalformed, protowire.ParseError(n))
			}
			m.Type = message.Type(s)
			b = b[n:]

		case num == fieldBody && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: body: %v", ErrMalformed, protowire.ParseError(n))
			}
			m.Body = append([]byte(nil), v...)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// Codec is a grpc encoding.Codec for *message.Message.
type Codec struct{}

// Name reports "proto": the bytes are ordinary protobuf, so peers built
// from generated code accept them.
func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*message.Message)
	if !ok {
		return nil, fmt.Errorf("wire: cannot marshal %T", v)
	}
	return Marshal(m), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*message.Message)
	if !ok {
		return fmt.Errorf("wire: cannot unmarshal into %T", v)
	}
	return unmarshalInto(data, m)
}
