// Package session holds the authoritative call session: the single
// active-call record, the transfer ledger, the per-extension snapshot
// table and the state machine that reconciles push-channel and
// signaling-peer facts into them. All three structures are single-writer;
// every external mutation goes through the Machine's exported operations.
package session

// CallSession is the single active-call record. It is created empty at
// startup, mutated continuously while a call exists, and reset to its
// zero value on hangup or explicit reset — the only destruction path.
type CallSession struct {
	ConversationID    string `json:"conversation_id"`
	DisplayName       string `json:"display_name"`
	CounterpartNumber string `json:"counterpart_number"`
	OwnerExtension    string `json:"owner_extension"`
	Direction         string `json:"direction"` // "in" or "out"

	// Arbitrated flags. Set true only through arbitration, never
	// directly from a raw origin signal.
	Incoming bool `json:"incoming"`
	Outgoing bool `json:"outgoing"`
	Accepted bool `json:"accepted"`

	// Raw per-origin signals feeding arbitration.
	IncomingFromPush bool `json:"incoming_from_push"`
	IncomingFromPeer bool `json:"incoming_from_peer"`
	AcceptedFromPush bool `json:"accepted_from_push"`
	AcceptedFromPeer bool `json:"accepted_from_peer"`
	OutgoingFromPush bool `json:"outgoing_from_push"`
	OutgoingFromPeer bool `json:"outgoing_from_peer"`

	Transferring      bool `json:"transferring"`
	TransferSwitching bool `json:"transfer_switching"`
	Conferencing      bool `json:"conferencing"`
	Muted             bool `json:"muted"`
	Paused            bool `json:"paused"`

	// StartTime in unix milliseconds; 0 means unset. Once non-zero it is
	// never overwritten, so a later update (e.g. a video upgrade) cannot
	// reset the call duration.
	StartTime int64 `json:"start_time"`

	StreamingSourceNumber string `json:"streaming_source_number"`

	TransferCalls []TransferEntry `json:"transfer_calls"`
}

// setStartTime records t only when no start time is set yet.
func (cs *CallSession) setStartTime(t int64) {
	if cs.StartTime == 0 && t != 0 {
		cs.StartTime = t
	}
}
