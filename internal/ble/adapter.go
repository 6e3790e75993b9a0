// Package ble abstracts the Bluetooth LE transport used to talk to Neewer
// lights: scanning, connecting, and the control/notify GATT characteristic
// pair. The interfaces exist so the protocol and session layers can be
// exercised against an in-memory transport.
package ble

import "context"

// Neewer control service UUIDs, common to every known model.
const (
	ServiceUUID     = "69400001-B5A3-F393-E0A9-E50E24DCCA99"
	ControlCharUUID = "69400002-B5A3-F393-E0A9-E50E24DCCA99"
	NotifyCharUUID  = "69400003-B5A3-F393-E0A9-E50E24DCCA99"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic, write-with-response.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
	// Unsubscribe disables notifications again.
	Unsubscribe() error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers advertising peripherals until ctx is done, reporting
	// each named device once.
	Scan(ctx context.Context) ([]Device, error)
	// Connect establishes a connection to the device at the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
