// Package nip17 implements the private direct message service: it
// subscribes to gift wraps addressed to the user, runs each one through
// the unwrap pipeline and maintains per-peer conversation summaries.
package nip17

import (
	"os"

	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/filter"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/nip44"
	"github.com/silex-im/silex/pkg/nostr/nip59"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// Subscriber is the relay subscription capability the service consumes.
// The returned channel is closed when the subscription ends.
type Subscriber interface {
	Subscribe(c context.T, f *filter.T) (evs <-chan *event.T, err error)
}

// Publisher sends an event to the user's relays.
type Publisher interface {
	Publish(c context.T, ev *event.T) (err error)
}

// Querier fetches the newest replaceable event of a kind for an author,
// nil when none exists.
type Querier interface {
	QueryReplaceable(c context.T, author string, k kind.T) (ev *event.T,
		err error)
}

// Decryptor performs NIP-44 decryption against a peer. Deployments with a
// remote signer implement this over IPC; LocalDecryptor serves when the
// secret key is in process.
type Decryptor interface {
	Decrypt(c context.T, peerPub, ciphertext string) (plaintext string,
		err error)
}

// LocalDecryptor is a Decryptor over an in-process secret key.
type LocalDecryptor struct {
	sk string
}

func NewLocalDecryptor(skHex string) *LocalDecryptor {
	return &LocalDecryptor{sk: skHex}
}

func (d *LocalDecryptor) Decrypt(c context.T, peerPub,
	ciphertext string) (plaintext string, err error) {

	var ck []byte
	if ck, err = nip44.ConversationKeyFromHex(d.sk, peerPub); err != nil {
		return
	}
	return nip44.Decrypt(ck, ciphertext)
}

// Profile is the subset of a kind 0 profile the conversation list
// displays, cached on the conversation when its first message arrives.
type Profile struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Picture     string `json:"picture"`
}

// Conversation is the per-peer summary the service maintains.
type Conversation struct {
	Peer          string
	Preview       string
	LastTimestamp timestamp.T
	LastID        eventid.T
	Incoming      bool
	Unread        int
	Profile       Profile
}

// Send wraps content as a private direct message to the peer and publishes
// one gift wrap addressed to the peer and one to the author, so the
// author's other clients pick the message up through the same pipeline.
func Send(c context.T, pub Publisher, authorSK, peerPub,
	content string) (err error) {

	var authorPub string
	if authorPub, err = keys.GetPublicKey(authorSK); chk.D(err) {
		return
	}
	now := timestamp.Now()
	for _, recipient := range []string{peerPub, authorPub} {
		rumor := &event.T{
			CreatedAt: now,
			Kind:      kind.PrivateDirectMessage,
			Tags:      tags.T{tag.T{"p", peerPub}},
			Content:   content,
		}
		var wrap *event.T
		if wrap, err = nip59.Wrap(rumor, authorSK, recipient); chk.E(err) {
			return
		}
		if err = pub.Publish(c, wrap); chk.D(err) {
			return
		}
	}
	return
}
