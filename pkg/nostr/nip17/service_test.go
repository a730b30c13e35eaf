package nip17

import (
	"strings"
	"testing"
	"time"

	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/filter"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/nip44"
	"github.com/silex-im/silex/pkg/nostr/nip59"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	ch chan *event.T
}

func (f *fakeSub) Subscribe(c context.T, fl *filter.T) (<-chan *event.T,
	error) {
	return f.ch, nil
}

type fakeQuerier struct {
	events map[kind.T]*event.T
}

func (f *fakeQuerier) QueryReplaceable(c context.T, author string,
	k kind.T) (*event.T, error) {
	return f.events[k], nil
}

type testRig struct {
	userSK, userPub string
	peerSK, peerPub string
	sub             *fakeSub
	svc             *Service
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	r := &testRig{
		userSK: keys.GeneratePrivateKey(),
		peerSK: keys.GeneratePrivateKey(),
		sub:    &fakeSub{ch: make(chan *event.T, 8)},
	}
	var err error
	r.userPub, err = keys.GetPublicKey(r.userSK)
	require.NoError(t, err)
	r.peerPub, err = keys.GetPublicKey(r.peerSK)
	require.NoError(t, err)
	r.svc = New(r.userPub, NewLocalDecryptor(r.userSK), r.sub, nil, nil)
	return r
}

func (r *testRig) start(t *testing.T) {
	t.Helper()
	require.NoError(t, r.svc.Start(context.Bg(), nil))
	t.Cleanup(r.svc.Stop)
}

// incoming builds a gift wrap from the peer to the user.
func (r *testRig) incoming(t *testing.T, content string,
	at timestamp.T) *event.T {

	t.Helper()
	rumor := &event.T{
		CreatedAt: at,
		Kind:      kind.PrivateDirectMessage,
		Tags:      tags.T{tag.T{"p", r.userPub}},
		Content:   content,
	}
	wrap, err := nip59.Wrap(rumor, r.peerSK, r.userPub)
	require.NoError(t, err)
	return wrap
}

func awaitUpdate(t *testing.T, svc *Service) Conversation {
	t.Helper()
	select {
	case c := <-svc.Updates():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no conversation update")
		return Conversation{}
	}
}

func requireNoUpdate(t *testing.T, svc *Service) {
	t.Helper()
	select {
	case c := <-svc.Updates():
		t.Fatalf("unexpected conversation update for %s", c.Peer)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLifecycle(t *testing.T) {
	r := newRig(t)
	require.Equal(t, StateIdle, r.svc.State())
	require.NoError(t, r.svc.Start(context.Bg(), nil))
	require.Equal(t, StateRunning, r.svc.State())
	require.Error(t, r.svc.Start(context.Bg(), nil))
	r.svc.Stop()
	require.Equal(t, StateIdle, r.svc.State())
	// stopping twice is harmless
	r.svc.Stop()
	require.Equal(t, StateIdle, r.svc.State())
}

func TestIncomingMessage(t *testing.T) {
	r := newRig(t)
	r.start(t)

	r.sub.ch <- r.incoming(t, "hello there", timestamp.Now())
	conv := awaitUpdate(t, r.svc)
	require.Equal(t, r.peerPub, conv.Peer)
	require.Equal(t, "hello there", conv.Preview)
	require.True(t, conv.Incoming)
	require.Equal(t, 1, conv.Unread)

	all := r.svc.Conversations()
	require.Len(t, all, 1)
	require.Equal(t, conv, all[0])
}

func TestOutgoingFanOutCopy(t *testing.T) {
	r := newRig(t)
	r.start(t)

	// the user's own message comes back via a self-addressed wrap
	rumor := &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.PrivateDirectMessage,
		Tags:      tags.T{tag.T{"p", r.peerPub}},
		Content:   "my own words",
	}
	wrap, err := nip59.Wrap(rumor, r.userSK, r.userPub)
	require.NoError(t, err)

	r.sub.ch <- wrap
	conv := awaitUpdate(t, r.svc)
	require.Equal(t, r.peerPub, conv.Peer)
	require.False(t, conv.Incoming)
	require.Equal(t, 0, conv.Unread)
}

func TestDeduplication(t *testing.T) {
	r := newRig(t)
	r.start(t)

	wrap := r.incoming(t, "once only", timestamp.Now())
	r.sub.ch <- wrap
	r.sub.ch <- wrap
	conv := awaitUpdate(t, r.svc)
	require.Equal(t, 1, conv.Unread)
	requireNoUpdate(t, r.svc)
}

func TestSpoofedRumorNeverSurfaces(t *testing.T) {
	r := newRig(t)
	r.start(t)

	// rumor claims a third party authored it, but the peer sealed it
	impostorSK := keys.GeneratePrivateKey()
	impostorPub, _ := keys.GetPublicKey(impostorSK)
	rumor := &event.T{
		PubKey:    impostorPub,
		CreatedAt: timestamp.Now(),
		Kind:      kind.PrivateDirectMessage,
		Tags:      tags.T{tag.T{"p", r.userPub}},
		Content:   "pretend this came from the impostor",
	}
	rumor.ID = rumor.GetID()

	ck, err := nip44.ConversationKeyFromHex(r.peerSK, r.userPub)
	require.NoError(t, err)
	sealed, err := nip44.Encrypt(ck, rumor.String(), nil)
	require.NoError(t, err)
	seal := &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.Seal,
		Tags:      tags.T{},
		Content:   sealed,
	}
	require.NoError(t, seal.Sign(r.peerSK))

	ephemeralSK := keys.GeneratePrivateKey()
	wck, err := nip44.ConversationKeyFromHex(ephemeralSK, r.userPub)
	require.NoError(t, err)
	wrapped, err := nip44.Encrypt(wck, seal.String(), nil)
	require.NoError(t, err)
	wrap := &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.GiftWrap,
		Tags:      tags.T{tag.T{"p", r.userPub}},
		Content:   wrapped,
	}
	require.NoError(t, wrap.Sign(ephemeralSK))

	r.sub.ch <- wrap
	requireNoUpdate(t, r.svc)
	require.Empty(t, r.svc.Conversations())
}

func TestInvalidWrapSignatureDropped(t *testing.T) {
	r := newRig(t)
	r.start(t)

	wrap := r.incoming(t, "tampered", timestamp.Now())
	wrap.Content = "not the original ciphertext"
	r.sub.ch <- wrap
	requireNoUpdate(t, r.svc)
}

func TestUpsertMonotonicity(t *testing.T) {
	r := newRig(t)

	newer := &event.T{
		CreatedAt: 2000,
		Kind:      kind.PrivateDirectMessage,
		PubKey:    r.peerPub,
		Content:   "newest",
	}
	older := &event.T{
		CreatedAt: 1000,
		Kind:      kind.PrivateDirectMessage,
		PubKey:    r.peerPub,
		Content:   "stale",
	}
	conv := r.svc.upsert(r.peerPub, true, newer, Profile{})
	require.Equal(t, "newest", conv.Preview)
	require.Equal(t, 1, conv.Unread)

	// a late arrival keeps the newest preview but still counts as unread
	conv = r.svc.upsert(r.peerPub, true, older, Profile{})
	require.Equal(t, "newest", conv.Preview)
	require.EqualValues(t, 2000, conv.LastTimestamp)
	require.Equal(t, 2, conv.Unread)
}

func TestMarkRead(t *testing.T) {
	r := newRig(t)
	r.svc.upsert(r.peerPub, true, &event.T{
		CreatedAt: 1000,
		Kind:      kind.PrivateDirectMessage,
		PubKey:    r.peerPub,
		Content:   "unread",
	}, Profile{})
	r.svc.MarkRead(r.peerPub)
	all := r.svc.Conversations()
	require.Len(t, all, 1)
	require.Equal(t, 0, all[0].Unread)
	// marking an unknown peer is a no-op
	r.svc.MarkRead("nobody")
	require.Len(t, r.svc.Conversations(), 1)
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short", preview("short"))
	require.Equal(t, "line one line two", preview("line one\nline two"))
	require.Equal(t, "tab  cr ", preview("tab\t\tcr\r"))

	long := strings.Repeat("a", 150)
	p := preview(long)
	require.Equal(t, strings.Repeat("a", 100)+"…", p)

	exact := strings.Repeat("b", 100)
	require.Equal(t, exact, preview(exact))
}

func TestProfileCachedOnFirstMessage(t *testing.T) {
	r := newRig(t)
	q := &fakeQuerier{events: map[kind.T]*event.T{
		kind.ProfileMetadata: {
			Kind:    kind.ProfileMetadata,
			PubKey:  r.peerPub,
			Content: `{"name":"carol","display_name":"Carol","picture":"https://example.com/c.png"}`,
		},
	}}
	svc := New(r.userPub, NewLocalDecryptor(r.userSK), r.sub, q, nil)
	require.NoError(t, svc.Start(context.Bg(), nil))
	t.Cleanup(svc.Stop)

	r.sub.ch <- r.incoming(t, "hi", 1000)
	conv := awaitUpdate(t, svc)
	require.Equal(t, "carol", conv.Profile.Name)
	require.Equal(t, "Carol", conv.Profile.DisplayName)
	require.Equal(t, "https://example.com/c.png", conv.Profile.Picture)

	// the cached fields stick; later messages do not refetch
	q.events[kind.ProfileMetadata].Content = `{"name":"mallory"}`
	r.sub.ch <- r.incoming(t, "again", 2000)
	conv = awaitUpdate(t, svc)
	require.Equal(t, "carol", conv.Profile.Name)
}

func TestResolveDMRelays(t *testing.T) {
	r := newRig(t)
	q := &fakeQuerier{events: map[kind.T]*event.T{}}
	svc := New(r.userPub, NewLocalDecryptor(r.userSK), r.sub, q,
		[]string{"wss://local.example.com"})

	// nothing published: local fallback
	require.Equal(t, []string{"wss://local.example.com"},
		svc.ResolveDMRelays(context.Bg()))

	// a NIP-65 list with markers: only read relays qualify
	q.events[kind.RelayListMetadata] = &event.T{
		Kind: kind.RelayListMetadata,
		Tags: tags.T{
			tag.T{"r", "wss://both.example.com"},
			tag.T{"r", "wss://read.example.com", "read"},
			tag.T{"r", "wss://write.example.com", "write"},
		},
	}
	require.Equal(t,
		[]string{"wss://both.example.com", "wss://read.example.com"},
		svc.ResolveDMRelays(context.Bg()))

	// a kind 10050 list wins over everything
	q.events[kind.DMRelayList] = &event.T{
		Kind: kind.DMRelayList,
		Tags: tags.T{
			tag.T{"relay", "wss://dm.example.com"},
		},
	}
	require.Equal(t, []string{"wss://dm.example.com"},
		svc.ResolveDMRelays(context.Bg()))
}
