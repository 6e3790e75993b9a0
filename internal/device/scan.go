package device

import (
	"context"
	"fmt"

	"github.com/chaz8081/neewerctl/internal/ble"
	"github.com/chaz8081/neewerctl/internal/lightdb"
)

// ScanForLights scans until ctx is done and returns only advertisers whose
// name identifies them as Neewer lights.
func ScanForLights(ctx context.Context, adapter ble.Adapter) ([]ble.Device, error) {
	devices, err := adapter.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("device: scan: %w", err)
	}
	var lights []ble.Device
	for _, d := range devices {
		if lightdb.IsNeewerLight(d.Name) {
			lights = append(lights, d)
		}
	}
	return lights, nil
}
