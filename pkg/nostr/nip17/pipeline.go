package nip17

import (
	"encoding/json"
	"strings"

	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/kind"
)

// previewLimit caps a conversation preview, counted in runes.
const previewLimit = 100

// process runs one gift wrap through the pipeline. Every failure drops
// the event; nothing is retried.
func (s *Service) process(c context.T, wrap *event.T) {
	if wrap.Kind != kind.GiftWrap {
		return
	}
	if valid, err := wrap.CheckSignature(); err != nil || !valid {
		log.D.F("dropping gift wrap %s with invalid signature", wrap.ID)
		return
	}
	if _, loaded := s.seen.LoadOrStore(wrap.ID.String(),
		struct{}{}); loaded {
		return
	}
	sealJSON, err := s.decrypt(c, wrap.PubKey, wrap.Content)
	if err != nil {
		log.D.F("dropping gift wrap %s: %v", wrap.ID, err)
		return
	}
	if c.Err() != nil {
		return
	}
	seal, err := event.Deserialize(sealJSON)
	if err != nil || seal.Kind != kind.Seal {
		log.D.F("dropping gift wrap %s: bad seal", wrap.ID)
		return
	}
	if valid, err := seal.CheckSignature(); err != nil || !valid {
		log.D.F("dropping gift wrap %s: seal signature invalid", wrap.ID)
		return
	}
	if c.Err() != nil {
		return
	}
	rumorJSON, err := s.decrypt(c, seal.PubKey, seal.Content)
	if err != nil {
		log.D.F("dropping gift wrap %s: %v", wrap.ID, err)
		return
	}
	if c.Err() != nil {
		return
	}
	rumor, err := event.Deserialize(rumorJSON)
	if err != nil || rumor.Kind != kind.PrivateDirectMessage {
		log.D.F("dropping gift wrap %s: bad rumor", wrap.ID)
		return
	}
	// a seal may only carry its own author's rumor
	if rumor.PubKey != seal.PubKey {
		log.D.F("dropping gift wrap %s: rumor pubkey does not match seal",
			wrap.ID)
		return
	}
	peer, incoming := s.peerOf(rumor)
	if peer == "" {
		log.D.F("dropping gift wrap %s: no peer", wrap.ID)
		return
	}
	var prof Profile
	if _, cached := s.conversations.Load(peer); !cached {
		prof = s.fetchProfile(c, peer)
	}
	conv := s.upsert(peer, incoming, rumor, prof)
	select {
	case s.updates <- conv:
	case <-c.Done():
	}
}

// fetchProfile caches the peer's kind 0 display fields when the first
// message of a conversation arrives. A missing or unparseable profile is
// not an error; the conversation just shows bare keys.
func (s *Service) fetchProfile(c context.T, peer string) (p Profile) {
	if s.querier == nil {
		return
	}
	ctx, cancel := context.Timeout(c, profileTimeout)
	defer cancel()
	ev, err := s.querier.QueryReplaceable(ctx, peer, kind.ProfileMetadata)
	if err != nil || ev == nil {
		return
	}
	if err = json.Unmarshal([]byte(ev.Content), &p); chk.D(err) {
		return Profile{}
	}
	return
}

func (s *Service) decrypt(c context.T, peerPub,
	ciphertext string) (plaintext string, err error) {

	ctx, cancel := context.Timeout(c, decryptTimeout)
	defer cancel()
	return s.dec.Decrypt(ctx, peerPub, ciphertext)
}

// peerOf determines the conversation peer of a rumor. The user's own
// rumors arrive through relay fan-out of self-addressed wraps; for those
// the peer is the first p tag.
func (s *Service) peerOf(rumor *event.T) (peer string, incoming bool) {
	if rumor.PubKey != s.userPub {
		return rumor.PubKey, true
	}
	if p := rumor.Tags.GetFirst([]string{"p"}); p != nil {
		return p.Value(), false
	}
	return "", false
}

// upsert folds a rumor into the peer's conversation summary. The newest
// created_at wins the preview slot regardless of arrival order; stale
// incoming messages still bump the unread counter.
func (s *Service) upsert(peer string, incoming bool, rumor *event.T,
	prof Profile) Conversation {

	conv, _ := s.conversations.Compute(peer,
		func(old Conversation, loaded bool) (Conversation, bool) {
			if !loaded {
				c := Conversation{
					Peer:          peer,
					Preview:       preview(rumor.Content),
					LastTimestamp: rumor.CreatedAt,
					LastID:        rumor.ID,
					Incoming:      incoming,
					Profile:       prof,
				}
				if incoming {
					c.Unread = 1
				}
				return c, false
			}
			if rumor.CreatedAt <= old.LastTimestamp {
				if incoming {
					old.Unread++
				}
				return old, false
			}
			old.Preview = preview(rumor.Content)
			old.LastTimestamp = rumor.CreatedAt
			old.LastID = rumor.ID
			old.Incoming = incoming
			if incoming {
				old.Unread++
			}
			return old, false
		})
	return conv
}

// preview copies up to 100 characters of content with line breaks and
// tabs flattened to spaces, appending an ellipsis when truncated.
func preview(content string) string {
	flat := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t', '\r':
			return ' '
		}
		return r
	}, content)
	runes := []rune(flat)
	if len(runes) <= previewLimit {
		return flat
	}
	return string(runes[:previewLimit]) + "…"
}
