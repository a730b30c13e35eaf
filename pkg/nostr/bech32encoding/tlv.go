package bech32encoding

import "bytes"

// TLV type codes for the nprofile/nevent/naddr payloads.
const (
	TLVDefault byte = 0
	TLVRelay   byte = 1
	TLVAuthor  byte = 2
	TLVKind    byte = 3
)

func writeTLVEntry(buf *bytes.Buffer, typ byte, value []byte) {
	buf.WriteByte(typ)
	buf.WriteByte(byte(len(value)))
	buf.Write(value)
}

// readTLVEntry returns the next entry of data, or a nil value when the
// remainder is too short to hold one.
func readTLVEntry(data []byte) (typ byte, value []byte) {
	if len(data) < 2 {
		return 0, nil
	}
	typ = data[0]
	length := int(data[1])
	if len(data) < 2+length {
		return typ, nil
	}
	value = data[2 : 2+length]
	return
}
