package nip17

import (
	"time"

	"github.com/puzpuzpuz/xsync/v2"
	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/filter"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/tag"
	"github.com/silex-im/silex/pkg/qu"
	"go.uber.org/atomic"
)

// Service lifecycle states.
const (
	StateIdle int32 = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

var stateNames = map[int32]string{
	StateIdle:     "idle",
	StateStarting: "starting",
	StateRunning:  "running",
	StateStopping: "stopping",
	StateError:    "error",
}

// decryptTimeout bounds each signer round trip inside the pipeline.
const decryptTimeout = 10 * time.Second

// profileTimeout bounds the kind 0 lookup that fills a new conversation's
// display fields.
const profileTimeout = 5 * time.Second

// updateBuffer is the capacity of the conversation update channel; slow
// consumers fall behind without stalling the pipeline longer than the
// subscription context allows.
const updateBuffer = 64

// Service consumes a gift wrap subscription for one user and emits
// conversation updates.
type Service struct {
	userPub string
	dec     Decryptor
	sub     Subscriber
	querier Querier
	// localRelays is the fallback when the user published no relay list.
	localRelays []string

	state         *atomic.Int32
	conversations *xsync.MapOf[string, Conversation]
	seen          *xsync.MapOf[string, struct{}]
	updates       chan Conversation
	cancel        context.F
	done          qu.C
}

// New creates a stopped service for the given user. querier may be nil
// when relay list resolution is not needed.
func New(userPub string, dec Decryptor, sub Subscriber, querier Querier,
	localRelays []string) *Service {

	return &Service{
		userPub:       userPub,
		dec:           dec,
		sub:           sub,
		querier:       querier,
		localRelays:   localRelays,
		state:         atomic.NewInt32(StateIdle),
		conversations: xsync.NewMapOf[Conversation](),
		seen:          xsync.NewMapOf[struct{}](),
		updates:       make(chan Conversation, updateBuffer),
	}
}

// State returns the current lifecycle state.
func (s *Service) State() int32 { return s.state.Load() }

// Updates is the stream of conversation summaries the pipeline emits.
func (s *Service) Updates() <-chan Conversation { return s.updates }

// Start subscribes to gift wraps addressed to the user on the given
// relays and runs the pipeline until Stop.
func (s *Service) Start(c context.T, relays []string) (err error) {
	if !s.state.CompareAndSwap(StateIdle, StateStarting) &&
		!s.state.CompareAndSwap(StateError, StateStarting) {
		return log.E.Err("cannot start service in state %s",
			stateNames[s.state.Load()])
	}
	log.D.F("starting dm service for %s on %v", s.userPub, relays)
	ctx, cancel := context.Cancel(c)
	f := &filter.T{
		Kinds: []kind.T{kind.GiftWrap},
		Tags:  filter.TagMap{"#p": {s.userPub}},
	}
	evs, err := s.sub.Subscribe(ctx, f)
	if chk.D(err) {
		cancel()
		s.state.Store(StateError)
		return
	}
	s.cancel = cancel
	s.done = qu.T()
	s.state.Store(StateRunning)
	go s.run(ctx, evs)
	return nil
}

// StartWithDMRelays resolves the user's DM relays before starting: the
// kind 10050 list wins, then the read relays of the kind 10002 list, then
// the locally configured relays.
func (s *Service) StartWithDMRelays(c context.T) (err error) {
	return s.Start(c, s.ResolveDMRelays(c))
}

// ResolveDMRelays runs the relay list resolution order without starting
// the service.
func (s *Service) ResolveDMRelays(c context.T) (relays []string) {
	if s.querier == nil {
		return s.localRelays
	}
	if ev, err := s.querier.QueryReplaceable(c, s.userPub,
		kind.DMRelayList); err == nil && ev != nil {
		for _, t := range ev.Tags.GetAll("relay") {
			if t.Value() != "" {
				relays = append(relays, t.Value())
			}
		}
	}
	if len(relays) > 0 {
		return
	}
	if ev, err := s.querier.QueryReplaceable(c, s.userPub,
		kind.RelayListMetadata); err == nil && ev != nil {
		for _, t := range ev.Tags.GetAll("r") {
			if t.Value() == "" {
				continue
			}
			// no marker means read and write
			if len(t) > tag.Relay && t[tag.Relay] != "read" {
				continue
			}
			relays = append(relays, t.Value())
		}
	}
	if len(relays) > 0 {
		return
	}
	return s.localRelays
}

// Stop cancels the subscription and every in-flight decryption, clears
// the deduplication set and returns the service to idle. No message in
// flight at stop time mutates conversation state.
func (s *Service) Stop() {
	if !s.state.CompareAndSwap(StateRunning, StateStopping) {
		return
	}
	s.cancel()
	<-s.done.Wait()
	s.seen.Clear()
	s.state.Store(StateIdle)
}

// MarkRead zeroes the unread counter of a conversation.
func (s *Service) MarkRead(peer string) {
	s.conversations.Compute(peer,
		func(old Conversation, loaded bool) (Conversation, bool) {
			if !loaded {
				return old, true
			}
			old.Unread = 0
			return old, false
		})
}

// Conversations returns a snapshot of every conversation summary.
func (s *Service) Conversations() (out []Conversation) {
	s.conversations.Range(func(_ string, v Conversation) bool {
		out = append(out, v)
		return true
	})
	return
}

// run is the single pipeline worker; processing events sequentially keeps
// one writer on the conversation map and preserves registration order.
func (s *Service) run(c context.T, evs <-chan *event.T) {
	defer s.done.Q()
	for {
		select {
		case <-c.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			s.process(c, ev)
		}
	}
}
