package event

// Hangup causes as reported by extenHangup.
const (
	CauseNormalClearing    = "normal_clearing"
	CauseUserBusy          = "user_busy"
	CauseNotDefined        = "not_defined"
	CauseCallRejected      = "call_rejected"
	CauseInterworking      = "interworking"
	CauseCircuitCongestion = "normal_circuit_congestion"
)

// causeDescriptions maps hangup causes to human-readable text for logs
// and the hangup notification.
var causeDescriptions = map[string]string{
	CauseNormalClearing:    "The call was hung up normally by one of the parties",
	CauseUserBusy:          "The destination was busy",
	CauseNotDefined:        "No cause was provided",
	CauseCallRejected:      "The call was rejected by the destination",
	CauseInterworking:      "An interworking error occurred",
	CauseCircuitCongestion: "All circuits are busy or no circuit is available",
}

// CauseDescription returns a human-readable description for a hangup
// cause, falling back to the raw cause string for unknown values.
func CauseDescription(cause string) string {
	if d, ok := causeDescriptions[cause]; ok {
		return d
	}
	return cause
}
