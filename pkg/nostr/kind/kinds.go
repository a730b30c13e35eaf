package kind

// T is the event type in the nostr protocol. The event kinds are in a
// separate package so they read as `kind.Seal` rather than
// `nostr.KindSeal`; repeating 'nostr' in these constant names is redundant
// as they are only used in this context, and a dedicated type makes the
// 16 bit range implicit and enforced by the compiler.
type T uint16

func (ki T) ToInt() int       { return int(ki) }
func (ki T) ToUint16() uint16 { return uint16(ki) }

const (
	// ProfileMetadata is an event type that stores user profile data, pet
	// names, bio, lightning address, etc.
	ProfileMetadata T = 0
	// TextNote is a standard short text note of plain text a la twitter
	TextNote T = 1
	// RecommendRelay is an event to recommend a relay to followers
	RecommendRelay T = 2
	// FollowList is an event containing a list of pubkeys of users that
	// should be shown as follows in a timeline.
	FollowList T = 3
	// EncryptedDirectMessage is the legacy NIP-04 direct message kind
	EncryptedDirectMessage T = 4
	// Deletion requests the removal of referenced events
	Deletion T = 5
	Repost   T = 6
	Reaction T = 7
	// Seal is a kind 13 event whose content is an encrypted rumor, signed by
	// the real author (NIP-59)
	Seal T = 13
	// PrivateDirectMessage is the plaintext rumor carried inside a seal
	// (NIP-17)
	PrivateDirectMessage T = 14
	// MLSKeyPackage advertises MLS key material for asynchronous group
	// invites
	MLSKeyPackage T = 443
	// MLSWelcome is the rumor carrying an MLS welcome to a new group member
	MLSWelcome T = 444
	// MLSGroupMessage is an MLS group message, control or application
	MLSGroupMessage T = 445
	// GiftWrap is a kind 1059 event encrypted to a recipient from an
	// ephemeral key, wrapping a seal (NIP-59)
	GiftWrap T = 1059
	// RelayListMetadata is the NIP-65 read/write relay list
	RelayListMetadata T = 10002
	// DMRelayList is the NIP-17 direct message relay list
	DMRelayList T = 10050
	// NWCWalletInfo announces a wallet service's capabilities (NIP-47)
	NWCWalletInfo T = 13194
	// ClientAuthentication is the NIP-42 auth event
	ClientAuthentication T = 22242
	// NWCWalletRequest carries an encrypted wallet command (NIP-47)
	NWCWalletRequest T = 23194
	// NWCWalletResponse carries an encrypted wallet reply (NIP-47)
	NWCWalletResponse T = 23195
	// NWCNotification carries an encrypted wallet notification using the
	// modern encryption scheme (NIP-47)
	NWCNotification T = 23196
	// NWCNotificationLegacy is the nip04-encrypted notification variant
	NWCNotificationLegacy T = 23197
	// Article is a long-form markdown article (NIP-23)
	Article T = 30023
	// WikiArticle is an addressable markdown wiki page (NIP-54)
	WikiArticle T = 30818
)

// Map is a key/value list of kinds and their human readable names.
var Map = map[T]string{
	ProfileMetadata:        "ProfileMetadata",
	TextNote:               "TextNote",
	RecommendRelay:         "RecommendRelay",
	FollowList:             "FollowList",
	EncryptedDirectMessage: "EncryptedDirectMessage",
	Deletion:               "Deletion",
	Repost:                 "Repost",
	Reaction:               "Reaction",
	Seal:                   "Seal",
	PrivateDirectMessage:   "PrivateDirectMessage",
	MLSKeyPackage:          "MLSKeyPackage",
	MLSWelcome:             "MLSWelcome",
	MLSGroupMessage:        "MLSGroupMessage",
	GiftWrap:               "GiftWrap",
	RelayListMetadata:      "RelayListMetadata",
	DMRelayList:            "DMRelayList",
	NWCWalletInfo:          "NWCWalletInfo",
	ClientAuthentication:   "ClientAuthentication",
	NWCWalletRequest:       "NWCWalletRequest",
	NWCWalletResponse:      "NWCWalletResponse",
	NWCNotification:        "NWCNotification",
	NWCNotificationLegacy:  "NWCNotificationLegacy",
	Article:                "Article",
	WikiArticle:            "WikiArticle",
}

// IsEphemeral returns true if the event kind is ephemeral per NIP-01, that
// is, relays are not expected to store it.
func (ki T) IsEphemeral() bool {
	return ki >= 20000 && ki < 30000
}

// IsParameterizedReplaceable returns true if the event kind is an
// addressable event identified by kind:pubkey:d-tag.
func (ki T) IsParameterizedReplaceable() bool {
	return ki >= 30000 && ki < 40000
}
