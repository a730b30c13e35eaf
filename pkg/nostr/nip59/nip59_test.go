package nip59

import (
	"testing"

	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/nip44"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/stretchr/testify/require"
)

func testRumor(recipientPub string) *event.T {
	return &event.T{
		Kind:    kind.PrivateDirectMessage,
		Tags:    tags.T{tag.T{"p", recipientPub}},
		Content: "meet me at the docks at dawn",
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	authorSK := keys.GeneratePrivateKey()
	authorPub, err := keys.GetPublicKey(authorSK)
	require.NoError(t, err)
	recipientSK := keys.GeneratePrivateKey()
	recipientPub, err := keys.GetPublicKey(recipientSK)
	require.NoError(t, err)

	wrap, err := Wrap(testRumor(recipientPub), authorSK, recipientPub)
	require.NoError(t, err)
	require.Equal(t, kind.GiftWrap, wrap.Kind)
	// the wrap is signed by an ephemeral key, never the author
	require.NotEqual(t, authorPub, wrap.PubKey)
	valid, err := wrap.CheckSignature()
	require.NoError(t, err)
	require.True(t, valid)
	p := wrap.Tags.GetFirst([]string{"p"})
	require.NotNil(t, p)
	require.Equal(t, recipientPub, p.Value())

	seal, err := Unwrap(wrap, recipientSK)
	require.NoError(t, err)
	require.Equal(t, kind.Seal, seal.Kind)
	require.Equal(t, authorPub, seal.PubKey)
	require.Empty(t, seal.Tags)

	rumor, err := Unseal(seal, recipientSK)
	require.NoError(t, err)
	require.Equal(t, kind.PrivateDirectMessage, rumor.Kind)
	require.Equal(t, authorPub, rumor.PubKey)
	require.Equal(t, "meet me at the docks at dawn", rumor.Content)
	// rumors are never signed
	require.Empty(t, rumor.Sig)
	require.Equal(t, rumor.GetID(), rumor.ID)
}

func TestUnwrapWrongRecipientFails(t *testing.T) {
	authorSK := keys.GeneratePrivateKey()
	recipientSK := keys.GeneratePrivateKey()
	recipientPub, _ := keys.GetPublicKey(recipientSK)
	otherSK := keys.GeneratePrivateKey()

	wrap, err := Wrap(testRumor(recipientPub), authorSK, recipientPub)
	require.NoError(t, err)
	_, err = Unwrap(wrap, otherSK)
	require.Error(t, err)
}

func TestUnsealRejectsSpoofedRumor(t *testing.T) {
	authorSK := keys.GeneratePrivateKey()
	recipientSK := keys.GeneratePrivateKey()
	recipientPub, _ := keys.GetPublicKey(recipientSK)
	impostorSK := keys.GeneratePrivateKey()
	impostorPub, _ := keys.GetPublicKey(impostorSK)

	// a rumor claiming to be from a third party, sealed by the author
	rumor := testRumor(recipientPub)
	wrap, err := Wrap(rumor, authorSK, recipientPub)
	require.NoError(t, err)
	seal, err := Unwrap(wrap, recipientSK)
	require.NoError(t, err)

	rumor.PubKey = impostorPub
	rumor.ID = rumor.GetID()
	spoofed := reseal(t, rumor, authorSK, recipientPub)
	_, err = Unseal(spoofed, recipientSK)
	require.Error(t, err)

	// the honest seal still unseals
	_, err = Unseal(seal, recipientSK)
	require.NoError(t, err)
}

func TestUnwrapRejectsWrongKinds(t *testing.T) {
	recipientSK := keys.GeneratePrivateKey()
	notAWrap := &event.T{Kind: kind.TextNote}
	_, err := Unwrap(notAWrap, recipientSK)
	require.Error(t, err)

	notASeal := &event.T{Kind: kind.TextNote}
	_, err = Unseal(notASeal, recipientSK)
	require.Error(t, err)
}

// reseal builds a seal around an arbitrary rumor, bypassing Wrap's
// finalization, to exercise the pubkey match check.
func reseal(t *testing.T, rumor *event.T, authorSK,
	recipientPub string) *event.T {

	t.Helper()
	ck, err := nip44.ConversationKeyFromHex(authorSK, recipientPub)
	require.NoError(t, err)
	sealed, err := nip44.Encrypt(ck, rumor.String(), nil)
	require.NoError(t, err)
	seal := &event.T{
		CreatedAt: jitteredNow(),
		Kind:      kind.Seal,
		Tags:      tags.T{},
		Content:   sealed,
	}
	require.NoError(t, seal.Sign(authorSK))
	return seal
}
