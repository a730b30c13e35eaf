package marmot

import (
	"github.com/silex-im/silex/pkg/context"
	"github.com/silex-im/silex/pkg/nostr/eventid"
)

// Engine is the underlying MLS implementation the adapter wraps. Every
// method may touch storage and is called from the adapter's worker only,
// which serializes all access to the handle.
type Engine interface {
	// CreateKeyPackage produces a signed kind 443 key package event.
	CreateKeyPackage(c context.T, userPub, userSK string,
		relays []string) (signedJSON string, err error)
	// CreateKeyPackageUnsigned produces the same event without a
	// signature, for deployments where the secret never leaves an
	// external signer.
	CreateKeyPackageUnsigned(c context.T, userPub string,
		relays []string) (unsignedJSON string, err error)
	// CreateGroup builds a group from the members' key packages.
	CreateGroup(c context.T, cfg *GroupConfig) (res *CreateGroupResult,
		err error)
	// ProcessWelcome decodes a welcome rumor received in a gift wrap.
	ProcessWelcome(c context.T, wrapperID eventid.T,
		rumorJSON string) (w *Welcome, err error)
	// AcceptWelcome joins the group a welcome invites into.
	AcceptWelcome(c context.T, w *Welcome) (err error)
	// SendMessage encrypts an inner event into a kind 445 group event.
	SendMessage(c context.T, mlsGroupID, innerJSON string) (
		groupEventJSON string, err error)
	// ProcessMessage handles a received kind 445 group event.
	ProcessMessage(c context.T, groupEventJSON string) (res *ProcessResult,
		err error)

	GetGroup(c context.T, mlsGroupID string) (g *Group, err error)
	GetAllGroups(c context.T) (gs []*Group, err error)
	GetMessages(c context.T, mlsGroupID string, limit,
		offset int) (ms []*Message, err error)
	GetPendingWelcomes(c context.T) (ws []*Welcome, err error)
}
