package nip47

import (
	"net/url"
	"strings"

	"github.com/silex-im/silex/pkg/nostr/keys"
)

// URIScheme prefixes every wallet connection string.
const URIScheme = "nostr+walletconnect://"

// URI is a parsed nostr+walletconnect connection string.
type URI struct {
	// WalletPubKey is the wallet service's 64 character hex public key.
	WalletPubKey string
	// Relays are the relay URLs of the wallet service, in the order they
	// appear in the URI.
	Relays []string
	// Secret is the 64 character hex key the client signs requests with.
	Secret string
	// Lud16 is an optional lightning address.
	Lud16 string
}

// ParseURI parses a nostr+walletconnect connection string. Repeated relay
// parameters are kept in their URI order; stdlib query parsing is avoided
// because it buckets values by key and loses that order.
func ParseURI(s string) (u *URI, err error) {
	if !strings.HasPrefix(s, URIScheme) {
		return nil, log.E.Err("not a wallet connect URI: %q", s)
	}
	rest := strings.TrimPrefix(s, URIScheme)
	pubkey, query, _ := strings.Cut(rest, "?")
	if !keys.IsValidPublicKeyHex(pubkey) {
		return nil, log.E.Err("invalid wallet pubkey in URI: %q", pubkey)
	}
	u = &URI{WalletPubKey: pubkey}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if v, err = url.QueryUnescape(v); chk.D(err) {
			return nil, log.E.Err("malformed URI parameter %q: %w", pair, err)
		}
		switch k {
		case "relay":
			u.Relays = append(u.Relays, v)
		case "secret":
			u.Secret = v
		case "lud16":
			u.Lud16 = v
		default:
			log.D.Ln("ignoring unknown wallet connect URI parameter", k)
		}
	}
	if len(u.Relays) == 0 {
		return nil, log.E.Err("wallet connect URI has no relay")
	}
	if !keys.IsValid32ByteHex(u.Secret) {
		return nil, log.E.Err("wallet connect URI has no valid secret")
	}
	return
}

// String reassembles the connection string.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(URIScheme)
	b.WriteString(u.WalletPubKey)
	sep := "?"
	for _, r := range u.Relays {
		b.WriteString(sep + "relay=" + url.QueryEscape(r))
		sep = "&"
	}
	b.WriteString(sep + "secret=" + u.Secret)
	if u.Lud16 != "" {
		b.WriteString("&lud16=" + url.QueryEscape(u.Lud16))
	}
	return b.String()
}
