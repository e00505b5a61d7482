package event

// Normalize derives the canonical conversation event and display name from
// a raw extenUpdate. ok is false when the extension carries no
// conversations — that is a meaningful idle signal, not an error.
//
// When the PBX reports more than one simultaneous conversation for one
// extension, the first key in map iteration order wins. The push channel
// gives no ordering guarantee, so this tie-break is deliberately left
// non-deterministic rather than papered over with a sort.
func Normalize(u ExtenUpdate) (ev ConversationEvent, ok bool, displayName string) {
	for id, conv := range u.Conversations {
		ev = Canonical(id, conv)
		return ev, true, DisplayName(conv.CounterpartName, conv.CounterpartNum)
	}
	return ConversationEvent{}, false, DisplayName("", "")
}

// Canonical converts one raw conversation into its canonical form.
func Canonical(id string, conv Conversation) ConversationEvent {
	return ConversationEvent{
		ID:                id,
		Direction:         conv.Direction,
		CounterpartNumber: conv.CounterpartNum,
		CounterpartName:   conv.CounterpartName,
		Owner:             conv.Owner,
		UniqueID:          conv.UniqueID,
		LinkedID:          conv.LinkedID,
		ThroughQueue:      conv.ThroughQueue,
		ThroughTrunk:      conv.ThroughTrunk,
		Connected:         conv.Connected,
		Status:            conv.Status,
		StartTime:         conv.StartTime,
	}
}

// DisplayName picks the name shown for the remote party: the counterpart
// name unless it is empty or the unresolved sentinel, else the number,
// else "Anonymous". Never returns the empty string.
func DisplayName(counterpartName, counterpartNumber string) string {
	if counterpartName != "" && counterpartName != UnknownCounterpart {
		return counterpartName
	}
	if counterpartNumber != "" {
		return counterpartNumber
	}
	return AnonymousName
}
