// Package filter implements the relay subscription query object.
package filter

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/kinds"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/silex-im/silex/pkg/nostr/wire/object"
	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// T is a query where one or all elements can be filled in.
//
// The Tags field is a special case because the wire format requires its
// key/value pairs promoted to the top level of the object as "#x" keys
// rather than bundled under a "tags" key. Stdlib encode/json cannot
// express that, so marshalling goes through ToObject and unmarshalling
// through a hand written decoder.
type T struct {
	IDs     tag.T         `json:"ids,omitempty"`
	Kinds   kinds.T       `json:"kinds,omitempty"`
	Authors tag.T         `json:"authors,omitempty"`
	Tags    TagMap        `json:"-"`
	Since   *timestamp.Tp `json:"since,omitempty"`
	Until   *timestamp.Tp `json:"until,omitempty"`
	Limit   int           `json:"limit,omitempty"`
	Search  string        `json:"search,omitempty"`
}

// TagMap holds the tag queries of a filter, keyed by their wire form
// ("#p", "#e", ...).
type TagMap map[string]tag.T

func (t TagMap) Clone() (t1 TagMap) {
	if t == nil {
		return
	}
	t1 = make(TagMap)
	for i := range t {
		t1[i] = t[i]
	}
	return
}

func (f *T) ToObject() (o object.T) {
	o = object.T{
		{Key: "ids,omitempty", Value: f.IDs},
		{Key: "kinds,omitempty", Value: f.Kinds.ToArray()},
		{Key: "authors,omitempty", Value: f.Authors},
	}
	// tag queries are promoted to the top level of the object; map
	// iteration is nondeterministic so they are sorted before appending
	var tmp object.T
	for k := range f.Tags {
		key := k
		if !strings.HasPrefix(key, "#") {
			key = "#" + key
		}
		tmp = append(tmp, object.KV{Key: key, Value: f.Tags[k]})
	}
	sort.Sort(tmp)
	o = append(o, tmp...)
	o = append(o, object.T{
		{Key: "since,omitempty", Value: f.Since},
		{Key: "until,omitempty", Value: f.Until},
		{Key: "limit,omitempty", Value: f.Limit},
	}...)
	if f.Search != "" {
		o = append(o, object.NewKV("search,omitempty", f.Search))
	}
	return
}

func (f *T) MarshalJSON() (b []byte, err error) {
	return f.ToObject().Bytes(), nil
}

// UnmarshalJSON unpacks a JSON encoded filter, rolling the "#x" keys up
// into the Tags map.
func (f *T) UnmarshalJSON(b []byte) (err error) {
	var raw map[string]json.RawMessage
	if err = json.Unmarshal(b, &raw); chk.D(err) {
		return
	}
	for k, v := range raw {
		var e error
		switch k {
		case "ids":
			e = json.Unmarshal(v, &f.IDs)
		case "kinds":
			e = json.Unmarshal(v, &f.Kinds)
		case "authors":
			e = json.Unmarshal(v, &f.Authors)
		case "since":
			e = json.Unmarshal(v, &f.Since)
		case "until":
			e = json.Unmarshal(v, &f.Until)
		case "limit":
			e = json.Unmarshal(v, &f.Limit)
		case "search":
			e = json.Unmarshal(v, &f.Search)
		default:
			if !strings.HasPrefix(k, "#") {
				log.D.F("ignoring unknown filter field %q", k)
				continue
			}
			var values tag.T
			if e = json.Unmarshal(v, &values); e == nil {
				if f.Tags == nil {
					f.Tags = make(TagMap)
				}
				f.Tags[k] = values
			}
		}
		if chk.D(e) {
			return e
		}
	}
	return
}

func (f *T) String() string {
	return f.ToObject().String()
}

// Matches reports whether an event satisfies every constraint of the
// filter.
func (f *T) Matches(ev *event.T) bool {
	if ev == nil {
		return false
	}
	if f.IDs != nil && !f.IDs.Contains(ev.ID.String()) {
		return false
	}
	if f.Kinds != nil && !f.Kinds.Contains(ev.Kind) {
		return false
	}
	if f.Authors != nil && !f.Authors.Contains(ev.PubKey) {
		return false
	}
	for k, v := range f.Tags {
		if v != nil &&
			!ev.Tags.ContainsAny(strings.TrimPrefix(k, "#"), v...) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt < timestamp.T(*f.Since) {
		return false
	}
	if f.Until != nil && ev.CreatedAt > timestamp.T(*f.Until) {
		return false
	}
	return true
}

func arePointerValuesEqual[V comparable](a *V, b *V) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}

// Equal reports whether two filters describe the same query.
func Equal(a, b *T) bool {
	switch {
	case !a.Kinds.Equals(b.Kinds),
		!a.IDs.Equals(b.IDs),
		!a.Authors.Equals(b.Authors),
		len(a.Tags) != len(b.Tags),
		!arePointerValuesEqual(a.Since, b.Since),
		!arePointerValuesEqual(a.Until, b.Until),
		a.Search != b.Search:

		return false
	}
	for k, av := range a.Tags {
		bv, ok := b.Tags[k]
		if !ok || !av.Equals(bv) {
			return false
		}
	}
	return true
}

func (f *T) Clone() (clone *T) {
	return &T{
		IDs:     f.IDs.Clone(),
		Authors: f.Authors.Clone(),
		Kinds:   f.Kinds.Clone(),
		Limit:   f.Limit,
		Search:  f.Search,
		Tags:    f.Tags.Clone(),
		Since:   f.Since.Clone(),
		Until:   f.Until.Clone(),
	}
}
