// Package text implements RFC8259 section 7 compliant JSON string escaping
// as required for the canonical form of nostr events.
//
// Only the characters that MUST be escaped are escaped: quotation mark,
// reverse solidus, and the control characters U+0000 through U+001F, the
// common controls with their short escapes and the rest as \u00XX. Non-ASCII
// bytes pass through untouched, unlike encoding/json which also rewrites
// HTML-significant characters and would break the event ID hash.
package text

// EscapeString appends the escaped form of s to dst, wrapped in double
// quotes.
func EscapeString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	// iterate bytewise: ranging over the string would decode UTF-8 runes and
	// corrupt the escape table lookups for bytes above 0x7f.
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			// quotation mark
			dst = append(dst, []byte{'\\', '"'}...)
		case c == '\\':
			// reverse solidus
			dst = append(dst, []byte{'\\', '\\'}...)
		case c >= 0x20:
			// default, rest below are control chars
			dst = append(dst, c)
		case c == 0x08:
			dst = append(dst, []byte{'\\', 'b'}...)
		case c < 0x09:
			dst = append(dst, []byte{'\\', 'u', '0', '0', '0', '0' + c}...)
		case c == 0x09:
			dst = append(dst, []byte{'\\', 't'}...)
		case c == 0x0a:
			dst = append(dst, []byte{'\\', 'n'}...)
		case c == 0x0c:
			dst = append(dst, []byte{'\\', 'f'}...)
		case c == 0x0d:
			dst = append(dst, []byte{'\\', 'r'}...)
		case c < 0x10:
			dst = append(dst, []byte{'\\', 'u', '0', '0', '0', 0x57 + c}...)
		case c < 0x1a:
			dst = append(dst, []byte{'\\', 'u', '0', '0', '1', 0x20 + c}...)
		case c < 0x20:
			dst = append(dst, []byte{'\\', 'u', '0', '0', '1', 0x47 + c}...)
		}
	}
	dst = append(dst, '"')
	return dst
}

// EscapeJSONStringAndWrap returns the escaped form of s wrapped in double
// quotes, ready to drop into a JSON document where a string is valid.
func EscapeJSONStringAndWrap(s string) (escaped []byte) {
	return EscapeString(make([]byte, 0, len(s)+2), s)
}
