package device

import (
	"context"
	"testing"

	"github.com/chaz8081/neewerctl/internal/ble"
)

func TestScanForLightsFiltersByName(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.devices = []ble.Device{
		{Name: "NEEWER-MS60C", Address: "AA:AA:AA:AA:AA:01"},
		{Name: "JBL Flip 5", Address: "AA:AA:AA:AA:AA:02"},
		{Name: "NW-20220014&00000000", Address: "AA:AA:AA:AA:AA:03"},
		{Name: "NWR-RGB660", Address: "AA:AA:AA:AA:AA:04"},
		{Name: "iPhone", Address: "AA:AA:AA:AA:AA:05"},
	}

	lights, err := ScanForLights(context.Background(), adapter)
	if err != nil {
		t.Fatalf("ScanForLights: %v", err)
	}
	if len(lights) != 3 {
		t.Fatalf("got %d lights, want 3: %v", len(lights), lights)
	}
	for _, l := range lights {
		if l.Name == "JBL Flip 5" || l.Name == "iPhone" {
			t.Errorf("non-Neewer device %q not filtered out", l.Name)
		}
	}
}
