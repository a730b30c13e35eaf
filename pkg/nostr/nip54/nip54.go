// Package nip54 models wiki articles (kind 30818): event parsing, slug
// normalization, article addresses and markdown helpers.
package nip54

import (
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/silex-im/silex/pkg/nostr/bech32encoding"
	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// DefaultWPM is the reading speed assumed when the caller passes a
// non-positive words-per-minute figure.
const DefaultWPM = 200

// Address is a parsed parameterized replaceable event address
// ("kind:pubkey:d").
type Address struct {
	Kind       kind.T
	PubKey     string
	Identifier string
	Relay      string
}

// Article is the decoded form of a kind 30818 event.
type Article struct {
	ID          eventid.T
	PubKey      string
	CreatedAt   timestamp.T
	Identifier  string
	Title       string
	Summary     string
	PublishedAt timestamp.T
	Related     []Address
	Topics      []string
	ForkRefs    []eventid.T
	Content     string
}

// ParseArticle decodes a wiki article event. The d tag is required; title,
// summary and published_at are optional; a tags are related articles, t
// tags are topics with any leading # stripped, e tags are fork references.
func ParseArticle(ev *event.T) (a *Article, err error) {
	if ev.Kind != kind.WikiArticle {
		return nil, log.E.Err("expected kind %d, got %d",
			kind.WikiArticle, ev.Kind)
	}
	a = &Article{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: ev.CreatedAt,
		Content:   ev.Content,
	}
	for _, t := range ev.Tags {
		if len(t) < 2 || t[1] == "" {
			continue
		}
		switch t.Key() {
		case "d":
			if a.Identifier == "" {
				a.Identifier = t.Value()
			}
		case "title":
			a.Title = t.Value()
		case "summary":
			a.Summary = t.Value()
		case "published_at":
			if v, e := strconv.ParseInt(t.Value(), 10, 64); e == nil {
				a.PublishedAt = timestamp.T(v)
			}
		case "a":
			addr, e := ParseATag(t.Value())
			if e != nil {
				log.D.Ln("skipping malformed a tag:", e)
				continue
			}
			addr.Relay = t.RelayHint()
			a.Related = append(a.Related, *addr)
		case "t":
			a.Topics = append(a.Topics, strings.TrimPrefix(t.Value(), "#"))
		case "e":
			a.ForkRefs = append(a.ForkRefs, eventid.T(t.Value()))
		}
	}
	if a.Identifier == "" {
		return nil, log.E.Err("wiki article %s has no d tag", ev.ID)
	}
	return
}

// NormalizeSlug derives an article identifier from a title: unicode
// letters and digits are kept lowercased, runs of whitespace, hyphens and
// underscores collapse to a single hyphen, everything else is dropped,
// and edge hyphens are stripped.
func NormalizeSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingSep := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ParseATag parses an event address of the form "kind:pubkey:d". The kind
// must be an integer in (0, 65535] and the pubkey 64 hex characters.
func ParseATag(value string) (a *Address, err error) {
	parts := strings.SplitN(value, ":", 3)
	if len(parts) != 3 {
		return nil, log.E.Err("malformed event address %q", value)
	}
	k, err := strconv.Atoi(parts[0])
	if err != nil || k <= 0 || k > 65535 {
		return nil, log.E.Err("invalid kind in event address %q", value)
	}
	if !keys.IsValid32ByteHex(parts[1]) {
		return nil, log.E.Err("invalid pubkey in event address %q", value)
	}
	return &Address{
		Kind:       kind.T(k),
		PubKey:     parts[1],
		Identifier: parts[2],
	}, nil
}

// BuildATag renders the event address of a wiki article.
func BuildATag(pubkey, d string) string {
	return strconv.Itoa(int(kind.WikiArticle)) + ":" + pubkey + ":" + d
}

// BuildNaddr encodes a wiki article address as a bech32 naddr string.
func BuildNaddr(pubkey, d string, relays []string) (s string, err error) {
	return bech32encoding.EncodeEntity(pubkey, kind.WikiArticle, d, relays)
}

// EstimateReadingTime returns the reading time of a markdown document in
// whole minutes, never less than 1. A word is a transition from whitespace
// to non-whitespace. A non-positive wpm selects DefaultWPM.
func EstimateReadingTime(markdown string, wpm int) int {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	words := 0
	inWord := false
	for _, r := range markdown {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	minutes := (words + wpm - 1) / wpm
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Heading is one table of contents entry.
type Heading struct {
	Level  int
	Text   string
	Anchor string
}

// ExtractTOC scans a markdown document for start-of-line ATX headings and
// returns them in order. Trailing closing hashes are trimmed and the
// anchor is the slug of the heading text.
func ExtractTOC(markdown string) (toc []Heading) {
	for _, line := range strings.Split(markdown, "\n") {
		level := 0
		for level < len(line) && line[level] == '#' {
			level++
		}
		if level < 1 || level > 6 || level >= len(line) {
			continue
		}
		rest := line[level:]
		if rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		text := strings.TrimRight(rest, " \t")
		text = strings.TrimRight(text, "#")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		toc = append(toc, Heading{
			Level:  level,
			Text:   text,
			Anchor: NormalizeSlug(text),
		})
	}
	return
}
