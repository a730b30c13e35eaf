// Package marmot wraps an MLS group messaging engine behind an async
// facade: every operation is posted to a single worker and completes via
// a callback, so the engine and its storage handle are only ever touched
// from one goroutine.
package marmot

import (
	"os"

	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/hex"
	"github.com/silex-im/silex/pkg/nostr/event"
	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
	"github.com/silex-im/silex/pkg/qu"
	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// signalBuffer is the capacity of each signal channel; a consumer that
// falls further behind loses signals rather than stalling the worker.
const signalBuffer = 8

// Adapter is the async facade over an Engine.
type Adapter struct {
	engine  Engine
	storage Storage

	ops  chan func()
	quit qu.C
	done qu.C

	groupJoined     chan *Group
	messageReceived chan *Message
	welcomeReceived chan *Welcome
}

// New starts the worker. The storage handle is the one the engine was
// constructed over; the adapter holds it only to keep it alive for its
// own lifetime.
func New(engine Engine, storage Storage) *Adapter {
	a := &Adapter{
		engine:          engine,
		storage:         storage,
		ops:             make(chan func()),
		quit:            qu.T(),
		done:            qu.T(),
		groupJoined:     make(chan *Group, signalBuffer),
		messageReceived: make(chan *Message, signalBuffer),
		welcomeReceived: make(chan *Welcome, signalBuffer),
	}
	go a.worker()
	return a
}

// Close stops the worker. Pending operations complete their callbacks
// with a cancelled error. The storage handle is owned by the engine and
// is not closed here.
func (a *Adapter) Close() {
	a.quit.Q()
	<-a.done.Wait()
}

// GroupJoined signals every group joined through an accepted welcome.
func (a *Adapter) GroupJoined() <-chan *Group { return a.groupJoined }

// MessageReceived signals every decrypted application message.
func (a *Adapter) MessageReceived() <-chan *Message {
	return a.messageReceived
}

// WelcomeReceived signals every processed welcome.
func (a *Adapter) WelcomeReceived() <-chan *Welcome {
	return a.welcomeReceived
}

func (a *Adapter) worker() {
	defer a.done.Q()
	for {
		select {
		case <-a.quit.Wait():
			return
		case op := <-a.ops:
			op()
		}
	}
}

// post queues an operation on the worker. It fails with a cancelled error
// through the caller's path when the context trips or the adapter closes
// first.
func (a *Adapter) post(c context.T, op func()) bool {
	select {
	case a.ops <- op:
		return true
	case <-c.Done():
		return false
	case <-a.quit.Wait():
		return false
	}
}

func cancelErr(c context.T) *Error {
	return wrapErr(CodeCancelled, "operation abandoned", c.Err())
}

// maxGroupIDHexLen bounds group id inputs before any allocation sized by
// them: MLS group ids are opaque variable length bytes with a 255 byte
// wire ceiling.
const maxGroupIDHexLen = 255 * 2

// validGroupID enforces the hex form of MLS group ids. Unlike nostr ids
// and keys the length is not fixed.
func validGroupID(mlsGroupID string) *Error {
	if len(mlsGroupID) == 0 || len(mlsGroupID) > maxGroupIDHexLen ||
		!hex.Valid(mlsGroupID) {
		return errf(CodeInvalidHex, "bad group id %q", mlsGroupID)
	}
	return nil
}

func validPubKey(pubkey string) *Error {
	if _, err := hex.DecExact(pubkey, 32); err != nil {
		return errf(CodeInvalidHex, "bad pubkey %q", pubkey)
	}
	return nil
}

func (a *Adapter) emitGroupJoined(g *Group) {
	select {
	case a.groupJoined <- g:
	default:
		log.W.F("dropping group-joined signal for %s", g.MLSGroupID)
	}
}

func (a *Adapter) emitMessageReceived(m *Message) {
	select {
	case a.messageReceived <- m:
	default:
		log.W.F("dropping message-received signal for %s", m.ID)
	}
}

func (a *Adapter) emitWelcomeReceived(w *Welcome) {
	select {
	case a.welcomeReceived <- w:
	default:
		log.W.F("dropping welcome-received signal for %s", w.ID)
	}
}

// DoCreateKeyPackage asynchronously produces a signed key package event.
func (a *Adapter) DoCreateKeyPackage(c context.T, userPub, userSK string,
	relays []string, fn func(signedJSON string, err error)) {

	if err := validPubKey(userPub); err != nil {
		fn("", err)
		return
	}
	if _, err := hex.DecExact(userSK, 32); err != nil {
		fn("", errf(CodeInvalidHex, "bad secret key"))
		return
	}
	if !a.post(c, func() {
		if c.Err() != nil {
			fn("", cancelErr(c))
			return
		}
		fn(a.engine.CreateKeyPackage(c, userPub, userSK, relays))
	}) {
		fn("", cancelErr(c))
	}
}

// DoCreateKeyPackageUnsigned asynchronously produces an unsigned key
// package event for external signing.
func (a *Adapter) DoCreateKeyPackageUnsigned(c context.T, userPub string,
	relays []string, fn func(unsignedJSON string, err error)) {

	if err := validPubKey(userPub); err != nil {
		fn("", err)
		return
	}
	if !a.post(c, func() {
		if c.Err() != nil {
			fn("", cancelErr(c))
			return
		}
		fn(a.engine.CreateKeyPackageUnsigned(c, userPub, relays))
	}) {
		fn("", cancelErr(c))
	}
}

// DoCreateGroup asynchronously creates a group from its members' key
// packages.
func (a *Adapter) DoCreateGroup(c context.T, cfg *GroupConfig,
	fn func(res *CreateGroupResult, err error)) {

	if cfg == nil || len(cfg.KeyPackages) == 0 {
		fn(nil, errf(CodeInvalidInput, "group needs at least one key package"))
		return
	}
	if err := validPubKey(cfg.CreatorPubKey); err != nil {
		fn(nil, err)
		return
	}
	if !a.post(c, func() {
		if c.Err() != nil {
			fn(nil, cancelErr(c))
			return
		}
		fn(a.engine.CreateGroup(c, cfg))
	}) {
		fn(nil, cancelErr(c))
	}
}

// DoProcessWelcome asynchronously decodes a welcome rumor and signals
// welcome-received on success.
func (a *Adapter) DoProcessWelcome(c context.T, wrapperID eventid.T,
	rumorJSON string, fn func(w *Welcome, err error)) {

	if err := wrapperID.Validate(); err != nil {
		fn(nil, errf(CodeInvalidHex, "bad wrapper event id %q", wrapperID))
		return
	}
	if !a.post(c, func() {
		if c.Err() != nil {
			fn(nil, cancelErr(c))
			return
		}
		w, err := a.engine.ProcessWelcome(c, wrapperID, rumorJSON)
		if err == nil {
			a.emitWelcomeReceived(w)
		}
		fn(w, err)
	}) {
		fn(nil, cancelErr(c))
	}
}

// DoAcceptWelcome asynchronously joins the invited group and signals
// group-joined on success.
func (a *Adapter) DoAcceptWelcome(c context.T, w *Welcome,
	fn func(err error)) {

	if w == nil {
		fn(errf(CodeInvalidInput, "nil welcome"))
		return
	}
	if !a.post(c, func() {
		if c.Err() != nil {
			fn(cancelErr(c))
			return
		}
		err := a.engine.AcceptWelcome(c, w)
		if err == nil {
			if g, e := a.engine.GetGroup(c, w.MLSGroupID); e == nil {
				a.emitGroupJoined(g)
			}
		}
		fn(err)
	}) {
		fn(cancelErr(c))
	}
}

// DoSendMessage asynchronously encrypts an inner event into a group
// event.
func (a *Adapter) DoSendMessage(c context.T, mlsGroupID, innerJSON string,
	fn func(groupEventJSON string, err error)) {

	if err := validGroupID(mlsGroupID); err != nil {
		fn("", err)
		return
	}
	if !a.post(c, func() {
		if c.Err() != nil {
			fn("", cancelErr(c))
			return
		}
		fn(a.engine.SendMessage(c, mlsGroupID, innerJSON))
	}) {
		fn("", cancelErr(c))
	}
}

// DoProcessMessage asynchronously handles a received group event and
// signals message-received for each decrypted application message.
func (a *Adapter) DoProcessMessage(c context.T, groupEventJSON string,
	fn func(res *ProcessResult, err error)) {

	if !a.post(c, func() {
		if c.Err() != nil {
			fn(nil, cancelErr(c))
			return
		}
		res, err := a.engine.ProcessMessage(c, groupEventJSON)
		if err == nil && res != nil && res.Type == ResultApplication {
			if m := messageFromInner(res); m != nil {
				a.emitMessageReceived(m)
			}
		}
		fn(res, err)
	}) {
		fn(nil, cancelErr(c))
	}
}

// messageFromInner lifts a decrypted inner event into a Message, nil when
// the JSON does not parse.
func messageFromInner(res *ProcessResult) *Message {
	ev, err := event.Deserialize(res.InnerJSON)
	if chk.D(err) {
		return nil
	}
	return &Message{
		ID:          ev.ID,
		MLSGroupID:  res.MLSGroupID,
		PubKey:      ev.PubKey,
		Kind:        ev.Kind,
		CreatedAt:   ev.CreatedAt,
		ProcessedAt: timestamp.Now(),
		Epoch:       res.Epoch,
		Content:     ev.Content,
		State:       MessageProcessed,
		RawJSON:     res.InnerJSON,
	}
}

// GetGroup runs on the worker like everything else touching storage, but
// blocks the caller until the result is in.
func (a *Adapter) GetGroup(c context.T, mlsGroupID string) (g *Group,
	err error) {

	if e := validGroupID(mlsGroupID); e != nil {
		return nil, e
	}
	return await(a, c, func() (*Group, error) {
		return a.engine.GetGroup(c, mlsGroupID)
	})
}

// GetAllGroups lists every group membership.
func (a *Adapter) GetAllGroups(c context.T) (gs []*Group, err error) {
	return await(a, c, func() ([]*Group, error) {
		return a.engine.GetAllGroups(c)
	})
}

// GetMessages pages through the stored messages of a group.
func (a *Adapter) GetMessages(c context.T, mlsGroupID string, limit,
	offset int) (ms []*Message, err error) {

	if e := validGroupID(mlsGroupID); e != nil {
		return nil, e
	}
	if limit < 0 || offset < 0 {
		return nil, errf(CodeInvalidInput, "negative limit or offset")
	}
	return await(a, c, func() ([]*Message, error) {
		return a.engine.GetMessages(c, mlsGroupID, limit, offset)
	})
}

// GetPendingWelcomes lists welcomes awaiting an accept or decline.
func (a *Adapter) GetPendingWelcomes(c context.T) (ws []*Welcome,
	err error) {

	return await(a, c, func() ([]*Welcome, error) {
		return a.engine.GetPendingWelcomes(c)
	})
}

func await[R any](a *Adapter, c context.T, op func() (R, error)) (r R,
	err error) {

	type result struct {
		r   R
		err error
	}
	ch := make(chan result, 1)
	if !a.post(c, func() {
		v, e := op()
		ch <- result{r: v, err: e}
	}) {
		return r, cancelErr(c)
	}
	select {
	case res := <-ch:
		return res.r, res.err
	case <-c.Done():
		return r, cancelErr(c)
	}
}
