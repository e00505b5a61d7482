// Package event defines the push-channel payloads coming from the PBX and
// the canonical conversation event derived from them. It is designed to be
// maximally standalone — stdlib only. Coupling to the rest of softphone is
// via plain data types.
package event

// Push-channel event names as delivered by the PBX.
const (
	TypeExtenUpdate          = "extenUpdate"
	TypeExtenHangup          = "extenHangup"
	TypeExtenConnected       = "extenConnected"
	TypeConfBridgeUpdate     = "confBridgeUpdate"
	TypeConfBridgeEnd        = "confBridgeEnd"
	TypeQueueUpdate          = "queueUpdate"
	TypeQueueMemberUpdate    = "queueMemberUpdate"
	TypeParkingUpdate        = "parkingUpdate"
	TypeServerReloaded       = "serverReloaded"
	TypeTakeOver             = "takeOver"
	TypeUpdateDefaultDevice  = "updateDefaultDevice"
	TypeCallWebrtc           = "callWebrtc"
	TypeNewVoiceMessage      = "newVoiceMessageCounter"
	TypeStreamingSourceEvent = "streamingSourceUpdate"
)

// Conversation statuses reported inside an extenUpdate.
const (
	StatusRinging     = "ringing"
	StatusBusy        = "busy"
	StatusBusyRinging = "busy_ringing"
	StatusOnHold      = "onhold"
	StatusOnline      = "online"
)

// Call directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// UnknownCounterpart is the sentinel the PBX sends when it could not
// resolve the remote party's name.
const UnknownCounterpart = "<unknown>"

// AnonymousName is the display name used when neither a counterpart name
// nor a number is available.
const AnonymousName = "Anonymous"

// Conversation is the raw per-conversation payload inside an extenUpdate,
// keyed by a server-assigned id.
type Conversation struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	CounterpartNum  string `json:"counterpartNum"`
	CounterpartName string `json:"counterpartName"`
	Direction       string `json:"direction"`
	Status          string `json:"status"`
	Connected       bool   `json:"connected"`
	ThroughQueue    bool   `json:"throughQueue"`
	ThroughTrunk    bool   `json:"throughTrunk"`
	UniqueID        string `json:"uniqueId"`
	LinkedID        string `json:"linkedId"`
	StartTime       int64  `json:"startTime"` // unix milliseconds, 0 = unknown
}

// ExtenUpdate is the primary push event driving call-state reconciliation.
type ExtenUpdate struct {
	Username      string                  `json:"username"`
	Status        string                  `json:"status"`
	Conversations map[string]Conversation `json:"conversations"`
	SipUserAgent  string                  `json:"sipuseragent"`
	Exten         string                  `json:"exten"`
	IP            string                  `json:"ip"`
	Port          int                     `json:"port"`
	DND           bool                    `json:"dnd"`
	Name          string                  `json:"name"`
}

// ExtenHangup reports the end of a call leg with its termination cause.
type ExtenHangup struct {
	CallerNum string `json:"callerNum"`
	Cause     string `json:"cause"`
}

// ExtenConnected reports which extension answered a call; used to suppress
// the local view when another device type picked up.
type ExtenConnected struct {
	ExtenConnected string `json:"extenConnected"`
}

// ConversationEvent is the canonical, normalized form consumed by the
// call-state machine.
type ConversationEvent struct {
	ID                string
	Direction         string
	CounterpartNumber string
	CounterpartName   string
	Owner             string
	UniqueID          string
	LinkedID          string
	ThroughQueue      bool
	ThroughTrunk      bool
	Connected         bool
	Status            string
	StartTime         int64
}
