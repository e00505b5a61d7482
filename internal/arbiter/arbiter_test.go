package arbiter

import (
	"fmt"
	"testing"
)

// TestArbitrateTruthTable pins the full rule table: every device type
// crossed with every (fromPush, fromPeer, hasOnlineSecondary) combination.
func TestArbitrateTruthTable(t *testing.T) {
	bools := []bool{false, true}

	expect := func(dt DeviceType, fromPush, fromPeer, hasSecondary bool) bool {
		switch dt {
		case DeviceWebRTC, DeviceNethlink:
			return fromPeer
		case DevicePhysical:
			return fromPush
		case DeviceUnset:
			if !hasSecondary {
				return fromPush
			}
			return false
		default:
			return false
		}
	}

	for _, dt := range []DeviceType{DeviceWebRTC, DevicePhysical, DeviceNethlink, DeviceMobile, DeviceUnset} {
		for _, fromPush := range bools {
			for _, fromPeer := range bools {
				for _, hasSecondary := range bools {
					name := fmt.Sprintf("%s_push=%v_peer=%v_sec=%v", deviceName(dt), fromPush, fromPeer, hasSecondary)
					t.Run(name, func(t *testing.T) {
						got := Arbitrate(dt, fromPush, fromPeer, hasSecondary)
						want := expect(dt, fromPush, fromPeer, hasSecondary)
						if got != want {
							t.Fatalf("Arbitrate(%q, %v, %v, %v) = %v, want %v", dt, fromPush, fromPeer, hasSecondary, got, want)
						}
					})
				}
			}
		}
	}
}

func deviceName(dt DeviceType) string {
	if dt == DeviceUnset {
		return "unset"
	}
	return string(dt)
}

// TestArbitrateMobileNeverAuthoritative documents that a mobile default
// device trusts neither origin.
func TestArbitrateMobileNeverAuthoritative(t *testing.T) {
	if Arbitrate(DeviceMobile, true, true, false) {
		t.Fatal("mobile default device must not be authoritative")
	}
}

// TestArbitrateUnknownDeviceType documents rule 5 for device types the
// table does not know.
func TestArbitrateUnknownDeviceType(t *testing.T) {
	if Arbitrate(DeviceType("deskphone"), true, true, false) {
		t.Fatal("unknown device type must not be authoritative")
	}
}
