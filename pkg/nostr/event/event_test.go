package event

import (
	"sort"
	"strings"
	"testing"

	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/stretchr/testify/require"
)

const testSK = "0101010101010101010101010101010101010101010101010101010101010101"

func TestCanonicalForm(t *testing.T) {
	pub, err := keys.GetPublicKey(testSK)
	require.NoError(t, err)
	ev := &T{
		PubKey:    pub,
		CreatedAt: 1700000000,
		Kind:      kind.TextNote,
		Tags:      tags.T{},
		Content:   "hello world",
	}
	want := `[0,"` + pub + `",1700000000,1,[],"hello world"]`
	require.Equal(t, want, string(ev.ToCanonical().Bytes()))

	require.NoError(t, ev.Sign(testSK))
	require.Equal(t, ev.GetID(), ev.ID)

	valid, err := ev.CheckSignature()
	require.NoError(t, err)
	require.True(t, valid)

	// mutating any field invalidates the signature
	ev.Content = "tampered"
	valid, err = ev.CheckSignature()
	require.NoError(t, err)
	require.False(t, valid)
}

func TestSignFillsCreatedAt(t *testing.T) {
	before := timestamp.Now()
	ev := &T{Kind: kind.TextNote, Content: "x"}
	require.NoError(t, ev.Sign(testSK))
	require.GreaterOrEqual(t, ev.CreatedAt.I64(), before.I64())
}

func TestSerializeRoundTrip(t *testing.T) {
	ev := &T{
		CreatedAt: 1700000001,
		Kind:      kind.TextNote,
		Tags: tags.T{
			tag.T{"e", strings.Repeat("ab", 32), "wss://relay.example.com"},
			tag.T{"p", strings.Repeat("cd", 32)},
		},
		Content: "multi\nline \"quoted\" and\ttabbed",
	}
	require.NoError(t, ev.Sign(testSK))

	j := ev.String()
	require.NotContains(t, j, "\n ")

	ev2, err := Deserialize(j)
	require.NoError(t, err)
	require.Equal(t, ev, ev2)

	valid, err := ev2.CheckSignature()
	require.NoError(t, err)
	require.True(t, valid)
}

func TestDeserializeGarbage(t *testing.T) {
	_, err := Deserialize("{not json")
	require.Error(t, err)
}

func TestWireIDNotTrusted(t *testing.T) {
	ev := &T{Kind: kind.TextNote, Content: "original", Tags: tags.T{}}
	require.NoError(t, ev.Sign(testSK))

	// an attacker replaces content but keeps the old id and sig; the
	// signature check recomputes the id and must fail
	forged := *ev
	forged.Content = "forged"
	valid, err := forged.CheckSignature()
	require.NoError(t, err)
	require.False(t, valid)
}

func TestChronologicalSort(t *testing.T) {
	evs := Ascending{
		{CreatedAt: timestamp.T(30)},
		{CreatedAt: timestamp.T(10)},
		{CreatedAt: timestamp.T(20)},
	}
	sort.Sort(evs)
	require.Equal(t, timestamp.T(10), evs[0].CreatedAt)
	require.Equal(t, timestamp.T(30), evs[2].CreatedAt)

	sort.Sort(Descending(evs))
	require.Equal(t, timestamp.T(30), evs[0].CreatedAt)
	require.Equal(t, timestamp.T(10), evs[2].CreatedAt)
}
