// Package nip59 implements gift wrapping: a rumor (unsigned kind 14) is
// sealed (kind 13, signed by the author) and the seal is wrapped (kind
// 1059, signed by a single-use ephemeral key) so relays only ever see the
// ephemeral key and the recipient.
package nip59

import (
	"os"

	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/nip44"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/silex-im/silex/pkg/slog"
	"lukechampine.com/frand"
)

var log, chk = slog.New(os.Stderr)

// timestamps on seals and wraps are smeared up to two days into the past
// so they cannot be correlated with the rumor's real send time
const maxTimestampJitter = 60 * 60 * 24 * 2

func jitteredNow() timestamp.T {
	return timestamp.Now() - timestamp.T(frand.Intn(maxTimestampJitter))
}

// Wrap seals a rumor from the holder of authorSK to the recipient and
// wraps the seal under a fresh ephemeral key. The rumor is finalized in
// place: its pubkey and id are set and its signature stays empty.
func Wrap(rumor *event.T, authorSK, recipientPub string) (wrap *event.T,
	err error) {

	var authorPub string
	if authorPub, err = keys.GetPublicKey(authorSK); chk.D(err) {
		return
	}
	rumor.PubKey = authorPub
	if rumor.CreatedAt == 0 {
		rumor.CreatedAt = timestamp.Now()
	}
	if rumor.Tags == nil {
		rumor.Tags = tags.T{}
	}
	rumor.ID = rumor.GetID()
	rumor.Sig = ""

	var ck []byte
	if ck, err = nip44.ConversationKeyFromHex(authorSK,
		recipientPub); chk.D(err) {
		return
	}
	var sealed string
	if sealed, err = nip44.Encrypt(ck, rumor.String(), nil); chk.E(err) {
		return
	}
	seal := &event.T{
		CreatedAt: jitteredNow(),
		Kind:      kind.Seal,
		Tags:      tags.T{},
		Content:   sealed,
	}
	if err = seal.Sign(authorSK); chk.E(err) {
		return
	}

	ephemeralSK := keys.GeneratePrivateKey()
	var wck []byte
	if wck, err = nip44.ConversationKeyFromHex(ephemeralSK,
		recipientPub); chk.E(err) {
		return
	}
	var wrapped string
	if wrapped, err = nip44.Encrypt(wck, seal.String(), nil); chk.E(err) {
		return
	}
	wrap = &event.T{
		CreatedAt: jitteredNow(),
		Kind:      kind.GiftWrap,
		Tags:      tags.T{tag.T{"p", recipientPub}},
		Content:   wrapped,
	}
	if err = wrap.Sign(ephemeralSK); chk.E(err) {
		return
	}
	return
}

// Unwrap decrypts a gift wrap with the recipient's secret key and returns
// the verified seal. The seal must be kind 13 and carry a valid signature.
func Unwrap(wrap *event.T, recipientSK string) (seal *event.T, err error) {
	if wrap.Kind != kind.GiftWrap {
		return nil, log.E.Err("expected kind %d, got %d",
			kind.GiftWrap, wrap.Kind)
	}
	var ck []byte
	if ck, err = nip44.ConversationKeyFromHex(recipientSK,
		wrap.PubKey); chk.D(err) {
		return
	}
	var plain string
	if plain, err = nip44.Decrypt(ck, wrap.Content); err != nil {
		log.D.Ln("gift wrap decrypt failed:", err)
		return
	}
	if seal, err = event.Deserialize(plain); chk.D(err) {
		return
	}
	if seal.Kind != kind.Seal {
		return nil, log.E.Err("sealed payload has kind %d, want %d",
			seal.Kind, kind.Seal)
	}
	var valid bool
	if valid, err = seal.CheckSignature(); chk.D(err) {
		return nil, err
	}
	if !valid {
		return nil, log.E.Err("seal signature invalid")
	}
	return
}

// Unseal decrypts a verified seal with the recipient's secret key and
// returns the rumor. The rumor must be kind 14 and its pubkey must equal
// the seal author's, otherwise a forwarded seal could impersonate a third
// party.
func Unseal(seal *event.T, recipientSK string) (rumor *event.T, err error) {
	if seal.Kind != kind.Seal {
		return nil, log.E.Err("expected kind %d, got %d",
			kind.Seal, seal.Kind)
	}
	var ck []byte
	if ck, err = nip44.ConversationKeyFromHex(recipientSK,
		seal.PubKey); chk.D(err) {
		return
	}
	var plain string
	if plain, err = nip44.Decrypt(ck, seal.Content); err != nil {
		log.D.Ln("seal decrypt failed:", err)
		return
	}
	if rumor, err = event.Deserialize(plain); chk.D(err) {
		return
	}
	if rumor.Kind != kind.PrivateDirectMessage {
		return nil, log.E.Err("rumor has kind %d, want %d",
			rumor.Kind, kind.PrivateDirectMessage)
	}
	if rumor.PubKey != seal.PubKey {
		return nil, log.E.Err("rumor pubkey does not match seal author")
	}
	return
}
