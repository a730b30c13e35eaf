package marmot

import (
	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/silex-im/silex/pkg/nostr/timestamp"
)

// GroupState is the local lifecycle of a group membership.
type GroupState int

const (
	GroupActive GroupState = iota
	GroupInactive
	// GroupPending is a group created or joined whose first commit has not
	// landed yet.
	GroupPending
)

// Group is the adapter's view of one MLS group.
type Group struct {
	// MLSGroupID is the hex encoded MLS group identifier, opaque variable
	// length bytes.
	MLSGroupID string
	// NostrGroupID is the identifier used on relay events for the group.
	NostrGroupID  string
	Name          string
	Description   string
	AdminPubKeys  []string
	Relays        []string
	LastMessageAt timestamp.T
	Epoch         uint64
	State         GroupState
}

// MessageState is the processing status of a stored group message.
type MessageState int

const (
	MessageCreated MessageState = iota
	MessageProcessed
	MessageDeleted
	// MessageEpochInvalidated marks messages that can no longer be
	// decrypted because the group moved past their epoch.
	MessageEpochInvalidated
)

// Message is one decrypted application message of a group.
type Message struct {
	ID         eventid.T
	MLSGroupID string
	PubKey     string
	Kind       kind.T
	CreatedAt  timestamp.T
	// ProcessedAt is when this member decrypted the message.
	ProcessedAt timestamp.T
	// Epoch is the group epoch the message was encrypted under.
	Epoch   uint64
	Content string
	State   MessageState
	// RawJSON is the unsigned inner event as received, empty when not
	// retained.
	RawJSON string
}

// WelcomeState is the handling status of a received welcome.
type WelcomeState int

const (
	WelcomePending WelcomeState = iota
	WelcomeAccepted
	WelcomeDeclined
	WelcomeIgnored
)

// Welcome is a processed invitation into a group.
type Welcome struct {
	// ID is the id of the welcome rumor.
	ID eventid.T
	// WrapperID is the id of the gift wrap the rumor arrived in.
	WrapperID  eventid.T
	MLSGroupID string
	// NostrGroupID is the 32 byte id the group uses on relay events.
	NostrGroupID     string
	GroupName        string
	GroupDescription string
	MemberCount      int
	// Welcomer is the pubkey of the member who sent the invitation.
	Welcomer string
	// Relays are the group's relay URLs carried in the welcome, if any.
	Relays []string
	State  WelcomeState
}

// ProcessResultType classifies what a group event turned out to be.
type ProcessResultType int

const (
	// ResultApplication is a decrypted application message.
	ResultApplication ProcessResultType = iota
	// ResultCommit advanced the group epoch.
	ResultCommit
	// ResultProposal is a pending proposal.
	ResultProposal
	// ResultUnprocessable could not be handled at the current epoch.
	ResultUnprocessable
	// ResultOwnMessage is the member's own fan-out copy.
	ResultOwnMessage
)

// ProcessResult is the outcome of processing one group event. InnerJSON
// is populated only for application messages.
type ProcessResult struct {
	Type ProcessResultType
	// MLSGroupID is the group the event belonged to.
	MLSGroupID string
	// Epoch is the group epoch the event was encrypted under.
	Epoch     uint64
	InnerJSON string
}

// GroupConfig is the input to group creation.
type GroupConfig struct {
	CreatorPubKey string
	// KeyPackages are the signed key package event JSON of the initial
	// members.
	KeyPackages  []string
	Name         string
	Description  string
	AdminPubKeys []string
	Relays       []string
}

// CreateGroupResult bundles what group creation produces: the group, one
// welcome rumor per invited member and the evolution event for the
// group's relays.
type CreateGroupResult struct {
	Group         *Group
	WelcomeRumors []string
	EvolutionJSON string
}
