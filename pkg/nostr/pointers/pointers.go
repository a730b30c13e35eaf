// Package pointers defines the decoded forms of the bech32 entity encodings
// from NIP-19.
package pointers

import (
	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/kind"
)

// Profile is a pubkey with optional relay hints (nprofile).
type Profile struct {
	PublicKey string   `json:"pubkey"`
	Relays    []string `json:"relays,omitempty"`
}

// Event is an event id with optional relay/author/kind hints (nevent).
type Event struct {
	ID     eventid.T `json:"id"`
	Relays []string  `json:"relays,omitempty"`
	Author string    `json:"author,omitempty"`
	Kind   kind.T    `json:"kind,omitempty"`
}

// Entity is an addressable event reference (naddr).
type Entity struct {
	PublicKey  string   `json:"pubkey"`
	Kind       kind.T   `json:"kind,omitempty"`
	Identifier string   `json:"identifier,omitempty"`
	Relays     []string `json:"relays,omitempty"`
}
