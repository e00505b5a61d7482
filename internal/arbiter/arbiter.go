// Package arbiter decides which signaling origin — the PBX push channel or
// the local WebRTC/SIP peer — is authoritative for a call-state flag, based
// on the extension type the user designated as default device.
package arbiter

// DeviceType is the kind of extension the user designated to receive calls.
type DeviceType string

const (
	DeviceWebRTC   DeviceType = "webrtc"
	DevicePhysical DeviceType = "physical"
	DeviceNethlink DeviceType = "nethlink"
	DeviceMobile   DeviceType = "mobile"
	DeviceUnset    DeviceType = ""
)

// Arbitrate returns the authoritative value for a state flag given its raw
// per-origin signals. Rules, evaluated in order:
//
//  1. webrtc default device   → the peer's view wins.
//  2. physical default device → the push channel's view wins.
//  3. nethlink default device → the peer's view wins.
//  4. no default device and no secondary device online → the push
//     channel's view wins. This heuristic is inherited behavior; keep it
//     exactly as is until confirmed with the system owner.
//  5. anything else → false.
//
// Pure function, no side effects.
func Arbitrate(defaultDevice DeviceType, fromPush, fromPeer, hasOnlineSecondary bool) bool {
	switch defaultDevice {
	case DeviceWebRTC:
		return fromPeer
	case DevicePhysical:
		return fromPush
	case DeviceNethlink:
		return fromPeer
	case DeviceUnset:
		if !hasOnlineSecondary {
			return fromPush
		}
		return false
	default:
		return false
	}
}
