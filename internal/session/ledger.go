package session

// TransferKind distinguishes the two legs tracked during a transfer.
type TransferKind string

const (
	// KindTransferred marks the party being transferred away.
	KindTransferred TransferKind = "transferred"
	// KindDestination marks the party the call is being transferred to.
	KindDestination TransferKind = "destination"
)

// TransferEntry is one in-progress transfer leg.
type TransferEntry struct {
	Kind        TransferKind `json:"kind"`
	DisplayName string       `json:"display_name"`
	Number      string       `json:"number"`
	StartTime   int64        `json:"start_time"`
}

// TransferLedger is the ordered record of in-flight transfer legs,
// deduplicated by counterpart number. Membership is O(1) via an index
// map; insertion order is preserved for display.
type TransferLedger struct {
	order []string
	byNum map[string]TransferEntry
}

// NewTransferLedger creates an empty ledger.
func NewTransferLedger() *TransferLedger {
	return &TransferLedger{byNum: make(map[string]TransferEntry)}
}

// Add appends an entry unless one with the same number already exists.
// First write wins regardless of kind.
func (l *TransferLedger) Add(e TransferEntry) {
	if _, ok := l.byNum[e.Number]; ok {
		return
	}
	l.byNum[e.Number] = e
	l.order = append(l.order, e.Number)
}

// Has reports whether an entry with the given number exists.
func (l *TransferLedger) Has(number string) bool {
	_, ok := l.byNum[number]
	return ok
}

// Len returns the number of entries.
func (l *TransferLedger) Len() int {
	return len(l.order)
}

// CountKind returns how many entries have the given kind.
func (l *TransferLedger) CountKind(kind TransferKind) int {
	n := 0
	for _, e := range l.byNum {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Entries returns the entries in insertion order.
func (l *TransferLedger) Entries() []TransferEntry {
	out := make([]TransferEntry, 0, len(l.order))
	for _, num := range l.order {
		out = append(out, l.byNum[num])
	}
	return out
}

// DeleteTransferred removes every transferred-kind entry. Destination
// entries are preserved in their original order.
func (l *TransferLedger) DeleteTransferred() {
	kept := l.order[:0]
	for _, num := range l.order {
		if l.byNum[num].Kind == KindTransferred {
			delete(l.byNum, num)
			continue
		}
		kept = append(kept, num)
	}
	l.order = kept
}

// Clear removes all entries.
func (l *TransferLedger) Clear() {
	l.order = nil
	l.byNum = make(map[string]TransferEntry)
}
