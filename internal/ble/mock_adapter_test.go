package ble

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// mockCharacteristic records writes and allows subscribing.
type mockCharacteristic struct {
	mu       sync.Mutex
	writes   [][]byte
	callback func([]byte)
}

func (c *mockCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *mockCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

func (c *mockCharacteristic) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = nil
	return nil
}

// SimulateNotification sends a notification to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// mockConnection simulates a BLE connection.
type mockConnection struct {
	mu           sync.Mutex
	controlChar  *mockCharacteristic
	notifyChar   *mockCharacteristic
	disconnectCb func()
	disconnected bool
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		controlChar: &mockCharacteristic{},
		notifyChar:  &mockCharacteristic{},
	}
}

func (c *mockConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error) {
	switch charUUID {
	case ControlCharUUID:
		return c.controlChar, nil
	case NotifyCharUUID:
		return c.notifyChar, nil
	default:
		return nil, fmt.Errorf("mock: unknown characteristic UUID %q", charUUID)
	}
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *mockConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateDisconnect triggers the disconnect callback.
func (c *mockConnection) SimulateDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// mockAdapter simulates the BLE adapter.
type mockAdapter struct {
	mu         sync.Mutex
	devices    []Device
	connection *mockConnection // most recent connection for test assertions
}

func newMockAdapter(devices []Device) *mockAdapter {
	return &mockAdapter{
		devices:    devices,
		connection: newMockConnection(),
	}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Scan(_ context.Context) ([]Device, error) {
	return a.devices, nil
}

func (a *mockAdapter) Connect(_ context.Context, _ string) (Connection, error) {
	conn := newMockConnection()
	a.mu.Lock()
	a.connection = conn
	a.mu.Unlock()
	return conn, nil
}

// latestConnection returns the most recently created connection (thread-safe).
func (a *mockAdapter) latestConnection() *mockConnection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connection
}

func TestMockConnectionRoundTrip(t *testing.T) {
	adapter := newMockAdapter(nil)
	conn, err := adapter.Connect(context.Background(), "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	control, err := conn.DiscoverCharacteristic(ServiceUUID, ControlCharUUID)
	if err != nil {
		t.Fatalf("DiscoverCharacteristic(control): %v", err)
	}
	if err := control.Write([]byte{0x78, 0x84, 0x00, 0xFC}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	mock := adapter.latestConnection()
	if got := len(mock.controlChar.writes); got != 1 {
		t.Errorf("recorded writes = %d, want 1", got)
	}

	notify, err := conn.DiscoverCharacteristic(ServiceUUID, NotifyCharUUID)
	if err != nil {
		t.Fatalf("DiscoverCharacteristic(notify): %v", err)
	}
	var received [][]byte
	if err := notify.Subscribe(func(data []byte) { received = append(received, data) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	mock.notifyChar.SimulateNotification([]byte{0x78, 0x01, 0x01, 0x02, 0x7C})
	if len(received) != 1 {
		t.Fatalf("notifications received = %d, want 1", len(received))
	}

	if err := notify.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	mock.notifyChar.SimulateNotification([]byte{0x78, 0x01, 0x01, 0x03, 0x7D})
	if len(received) != 1 {
		t.Errorf("notification delivered after Unsubscribe")
	}

	if _, err := conn.DiscoverCharacteristic(ServiceUUID, "0000"); err == nil {
		t.Error("DiscoverCharacteristic with unknown UUID should fail")
	}
}

func TestMockAdapterImplementsInterface(t *testing.T) {
	var _ Adapter = (*mockAdapter)(nil)
}

func TestMockConnectionImplementsInterface(t *testing.T) {
	var _ Connection = (*mockConnection)(nil)
}

func TestMockCharacteristicImplementsInterface(t *testing.T) {
	var _ Characteristic = (*mockCharacteristic)(nil)
}
