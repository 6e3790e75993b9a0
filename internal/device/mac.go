package device

import (
	"os/exec"
	"strconv"
	"strings"
)

// Resolver resolves a light's 6 MAC bytes, best-effort. Absence is a normal
// outcome, not an error: it just means MAC-gated command variants are
// unavailable for that light.
type Resolver interface {
	ResolveMAC(address, name string) ([6]byte, bool)
}

// ParseMAC parses "AA:BB:CC:DD:EE:FF". Anything that is not exactly 6
// colon-separated two-digit hex pairs is rejected.
func ParseMAC(s string) ([6]byte, bool) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, false
	}
	for i, p := range parts {
		if len(p) != 2 {
			return mac, false
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, false
		}
		mac[i] = byte(v)
	}
	return mac, true
}

// BluetoothctlResolver looks a device's MAC up by name in the output of
// `bluetoothctl devices`. Useful on hosts where the transport address is not
// the MAC itself. Fails silently when bluetoothctl is absent or the device
// is not listed.
type BluetoothctlResolver struct{}

func (BluetoothctlResolver) ResolveMAC(address, name string) ([6]byte, bool) {
	if mac, ok := ParseMAC(address); ok {
		return mac, true
	}
	if name == "" {
		return [6]byte{}, false
	}

	out, err := exec.Command("bluetoothctl", "devices").Output()
	if err != nil {
		return [6]byte{}, false
	}
	// Lines look like: Device AA:BB:CC:DD:EE:FF NEEWER-MS60C
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Device" {
			continue
		}
		if strings.Join(fields[2:], " ") != name {
			continue
		}
		if mac, ok := ParseMAC(fields[1]); ok {
			return mac, true
		}
	}
	return [6]byte{}, false
}

var _ Resolver = BluetoothctlResolver{}
