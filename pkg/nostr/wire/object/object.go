// Package object implements an ordered key/value data structure for JSON
// documents that must be strictly ordered in order to create a consistent
// blob of data for verifiable signatures, as is used for nostr events.
//
// Rather than implementing json.Marshal and json.Unmarshal, marshaling data
// must be done by converting the struct explicitly to a string key/interface
// value slice.
//
// Strings found in the object are automatically escaped as per RFC8259.
package object

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/silex-im/silex/pkg/nostr/wire/text"
)

func escape(s string) []byte { return text.EscapeJSONStringAndWrap(s) }

type KV struct {
	Key   string
	Value interface{}
}

func NewKV(k string, v interface{}) KV { return KV{Key: k, Value: v} }

// Marshaler is implemented by value types that write their own canonical
// JSON, such as tags.
type Marshaler interface {
	MarshalTo(dst []byte) []byte
}

type T []KV

func (t T) String() string {
	return t.Buffer().String()
}

func (t T) Bytes() []byte {
	return t.Buffer().Bytes()
}

func (t T) Buffer() *bytes.Buffer {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	var needComma bool
	for i := range t {
		// keys can have `,omitempty` after them and if present, the field is
		// omitted if it is a zero or nil value.
		var omitempty bool
		k := strings.Split(t[i].Key, ",")
		key := k[0]
		if len(k) > 1 && k[1] == "omitempty" {
			omitempty = true
		}
		v := t[i].Value
		if omitempty && isEmpty(v) {
			continue
		}
		if needComma {
			buf.WriteByte(',')
		}
		needComma = true
		buf.WriteByte('"')
		buf.WriteString(key)
		buf.WriteString(`":`)
		writeValue(buf, v)
	}
	buf.WriteByte('}')
	return buf
}

func writeValue(buf *bytes.Buffer, v interface{}) {
	switch val := v.(type) {
	case string:
		buf.Write(escape(val))
	case Marshaler:
		buf.Write(val.MarshalTo(nil))
	case time.Time:
		_, _ = fmt.Fprint(buf, val.Unix())
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.String:
			buf.Write(escape(rv.String()))
		case reflect.Ptr:
			if rv.IsNil() {
				buf.WriteString("null")
				return
			}
			writeValue(buf, rv.Elem().Interface())
		case reflect.Slice:
			buf.WriteByte('[')
			for i := 0; i < rv.Len(); i++ {
				if i > 0 {
					buf.WriteByte(',')
				}
				writeValue(buf, rv.Index(i).Interface())
			}
			buf.WriteByte(']')
		default:
			_, _ = fmt.Fprint(buf, v)
		}
	}
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Interface:
		return rv.IsNil()
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}

// sort.Interface implementation

func (t T) Len() int           { return len(t) }
func (t T) Less(i, j int) bool { return t[i].Key < t[j].Key }
func (t T) Swap(i, j int)      { t[i], t[j] = t[j], t[i] }
