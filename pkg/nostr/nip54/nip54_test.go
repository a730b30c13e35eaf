package nip54

import (
	"strings"
	"testing"

	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/tags"
	"github.com/stretchr/testify/require"
)

const testPub = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"

func wikiEvent() *event.T {
	return &event.T{
		PubKey:    testPub,
		CreatedAt: 1700000000,
		Kind:      kind.WikiArticle,
		Tags: tags.T{
			tag.T{"d", "nostr"},
			tag.T{"title", "Nostr"},
			tag.T{"summary", "notes and other stuff"},
			tag.T{"published_at", "1690000000"},
			tag.T{"a", "30818:" + testPub + ":relays", "wss://relay.example.com"},
			tag.T{"t", "#protocol"},
			tag.T{"t", "decentralization"},
			tag.T{"e", "45326f5d6962ab1e3cd424e758c3002b8665f7b0d8dcee9fe9e288d7751ac194"},
		},
		Content: "# Nostr\n\nNotes and Other Stuff Transmitted by Relays.",
	}
}

func TestParseArticle(t *testing.T) {
	a, err := ParseArticle(wikiEvent())
	require.NoError(t, err)
	require.Equal(t, "nostr", a.Identifier)
	require.Equal(t, "Nostr", a.Title)
	require.Equal(t, "notes and other stuff", a.Summary)
	require.EqualValues(t, 1690000000, a.PublishedAt)
	require.Len(t, a.Related, 1)
	require.Equal(t, kind.WikiArticle, a.Related[0].Kind)
	require.Equal(t, "relays", a.Related[0].Identifier)
	require.Equal(t, "wss://relay.example.com", a.Related[0].Relay)
	// leading # on topics is stripped
	require.Equal(t, []string{"protocol", "decentralization"}, a.Topics)
	require.Len(t, a.ForkRefs, 1)
	require.Equal(t, testPub, a.PubKey)
}

func TestParseArticleRejectsWrongKind(t *testing.T) {
	ev := wikiEvent()
	ev.Kind = kind.Article
	_, err := ParseArticle(ev)
	require.Error(t, err)
}

func TestParseArticleRequiresIdentifier(t *testing.T) {
	ev := wikiEvent()
	ev.Tags = ev.Tags.FilterOut([]string{"d"})
	_, err := ParseArticle(ev)
	require.Error(t, err)
}

func TestNormalizeSlug(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"Nostr", "nostr"},
		{"Hello World", "hello-world"},
		{"  spaced   out  ", "spaced-out"},
		{"snake_case_title", "snake-case-title"},
		{"already-slugged", "already-slugged"},
		{"Mixed -_ Separators", "mixed-separators"},
		{"Punct!uation? dropped.", "punctuation-dropped"},
		{"Ünïcöde Lëtters", "ünïcöde-lëtters"},
		{"数字 123", "数字-123"},
		{"---", ""},
	} {
		require.Equal(t, tc.want, NormalizeSlug(tc.in), tc.in)
	}
}

func TestParseATag(t *testing.T) {
	a, err := ParseATag("30818:" + testPub + ":my-article")
	require.NoError(t, err)
	require.Equal(t, kind.WikiArticle, a.Kind)
	require.Equal(t, testPub, a.PubKey)
	require.Equal(t, "my-article", a.Identifier)

	// identifier may itself contain colons
	a, err = ParseATag("30818:" + testPub + ":a:b:c")
	require.NoError(t, err)
	require.Equal(t, "a:b:c", a.Identifier)
}

func TestParseATagRejects(t *testing.T) {
	for _, s := range []string{
		"",
		"30818:" + testPub,
		"0:" + testPub + ":d",
		"-1:" + testPub + ":d",
		"65536:" + testPub + ":d",
		"notakind:" + testPub + ":d",
		"30818:nothex:d",
		"30818:" + strings.ToUpper(testPub) + ":d",
	} {
		_, err := ParseATag(s)
		require.Error(t, err, s)
	}
}

func TestBuildParseATagRoundTrip(t *testing.T) {
	a, err := ParseATag(BuildATag(testPub, "my-article"))
	require.NoError(t, err)
	require.Equal(t, testPub, a.PubKey)
	require.Equal(t, "my-article", a.Identifier)
}

func TestBuildNaddr(t *testing.T) {
	naddr, err := BuildNaddr(testPub, "nostr",
		[]string{"wss://relay.example.com"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(naddr, "naddr1"))
}

func TestEstimateReadingTime(t *testing.T) {
	require.Equal(t, 1, EstimateReadingTime("", 200))
	require.Equal(t, 1, EstimateReadingTime("one two three", 200))
	require.Equal(t, 1, EstimateReadingTime(strings.Repeat("word ", 200), 200))
	require.Equal(t, 2, EstimateReadingTime(strings.Repeat("word ", 201), 200))
	// non-positive wpm selects the default
	require.Equal(t, 2, EstimateReadingTime(strings.Repeat("word ", 201), 0))
	require.Equal(t, 3, EstimateReadingTime(strings.Repeat("word ", 201), 100))
}

func TestExtractTOC(t *testing.T) {
	md := strings.Join([]string{
		"# Title",
		"prose, not a heading",
		"## Section One ##",
		"   # indented, not a heading",
		"####### seven hashes is prose",
		"#nospace is prose",
		"### Deep   Dive\t",
		"",
	}, "\n")
	toc := ExtractTOC(md)
	require.Equal(t, []Heading{
		{Level: 1, Text: "Title", Anchor: "title"},
		{Level: 2, Text: "Section One", Anchor: "section-one"},
		{Level: 3, Text: "Deep   Dive", Anchor: "deep-dive"},
	}, toc)
}

func TestExtractTOCEmpty(t *testing.T) {
	require.Empty(t, ExtractTOC("no headings here"))
	require.Empty(t, ExtractTOC(""))
}
