// Package array implements an ordered JSON array for the canonical form of
// nostr events.
//
// The stdlib encoding/json cannot be used for the canonical serialization
// because it HTML-escapes strings and provides no guarantee of byte-exact
// output across versions; the event ID is the SHA256 of these bytes so the
// encoding must be stable.
package array

import (
	"bytes"
	"fmt"
	"time"

	"github.com/silex-im/silex/pkg/nostr/wire/text"
)

// Marshaler is implemented by element types that write their own canonical
// JSON, such as tags.
type Marshaler interface {
	MarshalTo(dst []byte) []byte
}

// T is a generic JSON array of any list of JSON-able elements.
type T []interface{}

func (t T) String() string {
	return t.Buffer().String()
}

func (t T) Bytes() []byte {
	return t.Buffer().Bytes()
}

func (t T) Buffer() *bytes.Buffer {
	buf := new(bytes.Buffer)
	buf.WriteByte('[')
	last := len(t) - 1
	for i := range t {
		switch v := t[i].(type) {
		case string:
			buf.Write(text.EscapeJSONStringAndWrap(v))
		case Marshaler:
			buf.Write(v.MarshalTo(nil))
		case fmt.Stringer:
			buf.Write(text.EscapeJSONStringAndWrap(v.String()))
		case time.Time:
			_, _ = fmt.Fprint(buf, v.Unix())
		default:
			_, _ = fmt.Fprint(buf, v)
		}
		if i != last {
			buf.WriteByte(',')
		}
	}
	buf.WriteByte(']')
	return buf
}
