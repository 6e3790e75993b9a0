package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chaz8081/neewerctl/internal/ble"
)

// fakeCharacteristic records writes and can reject selected frames.
type fakeCharacteristic struct {
	mu       sync.Mutex
	writes   [][]byte
	rejectFn func(data []byte) error // nil accepts everything
	callback func([]byte)
}

func (c *fakeCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	if c.rejectFn != nil {
		return c.rejectFn(data)
	}
	return nil
}

func (c *fakeCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

func (c *fakeCharacteristic) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = nil
	return nil
}

// SimulateNotification delivers a frame to the subscriber.
func (c *fakeCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// frames returns a copy of everything written so far.
func (c *fakeCharacteristic) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

type fakeConnection struct {
	mu           sync.Mutex
	control      *fakeCharacteristic
	notify       *fakeCharacteristic
	disconnectCb func()
	disconnected bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		control: &fakeCharacteristic{},
		notify:  &fakeCharacteristic{},
	}
}

func (c *fakeConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	switch charUUID {
	case ble.ControlCharUUID:
		return c.control, nil
	case ble.NotifyCharUUID:
		return c.notify, nil
	default:
		return nil, fmt.Errorf("fake: unknown characteristic UUID %q", charUUID)
	}
}

func (c *fakeConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateDisconnect fires the transport disconnect callback.
func (c *fakeConnection) SimulateDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type fakeAdapter struct {
	mu         sync.Mutex
	devices    []ble.Device
	connectErr error
	connects   int
	connection *fakeConnection
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{connection: newFakeConnection()}
}

func (a *fakeAdapter) Enable() error { return nil }

func (a *fakeAdapter) Scan(_ context.Context) ([]ble.Device, error) {
	return a.devices, nil
}

func (a *fakeAdapter) Connect(_ context.Context, _ string) (ble.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects++
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	a.connection = newFakeConnection()
	return a.connection, nil
}

func (a *fakeAdapter) latestConnection() *fakeConnection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connection
}

func (a *fakeAdapter) connectCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects
}

var _ ble.Adapter = (*fakeAdapter)(nil)

// fakeClock advances only through sleeps, making pacing deterministic.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.sleeps = append(c.sleeps, d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
