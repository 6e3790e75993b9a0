// Package device implements the per-light session: a small state machine
// that owns the BLE connection to one Neewer light, paces outgoing command
// frames, and tracks the light's last-known state.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/neewerctl/internal/ble"
	"github.com/chaz8081/neewerctl/internal/lightdb"
	"github.com/chaz8081/neewerctl/internal/protocol"
	"github.com/chaz8081/neewerctl/internal/scene"
)

// State is the session's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotConnected is returned by setters invoked while the session is not
// connected. The caller must reconnect first.
var ErrNotConnected = errors.New("device: not connected")

const (
	// minCommandInterval is the mandatory gap between writes. The firmware
	// drops or corrupts commands sent closer together than this.
	minCommandInterval = 15 * time.Millisecond

	// settleDelay gives the link a moment after characteristic discovery
	// before the first command.
	settleDelay = 100 * time.Millisecond
)

// Kelvin bounds of the external color-temperature scale.
const (
	kelvinMin = 2700
	kelvinMax = 6500
)

// Nominal device CCT range used when the capability profile declares none.
var defaultCCTRange = lightdb.CCTRange{Min: 27, Max: 65}

// LightState is a snapshot of the last-known device state. Fields are only
// meaningful after the first successful command or status notification.
// GM is in device units 0..100; subtract 50 for the external -50..+50 scale.
type LightState struct {
	IsOn       bool
	Brightness int
	CCT        int
	Hue        int
	Saturation int
	Effect     int // 1..17, 0 when no effect is active
	GM         int
}

// Session owns the connection to a single light. All setters serialize
// through an internal lock so concurrent callers cannot interleave frames,
// and every write observes the minimum inter-command delay.
type Session struct {
	adapter ble.Adapter
	address string
	name    string
	caps    lightdb.Capabilities

	mac    [6]byte
	hasMAC bool

	// mu serializes build frame -> pace -> write.
	mu       sync.Mutex
	lastSend time.Time

	stateMu      sync.RWMutex
	state        State
	conn         ble.Connection
	control      ble.Characteristic
	notify       ble.Characteristic
	light        LightState
	observers    []func(protocol.Notification)
	onDisconnect func()

	// Injectable for pacing tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// SessionOptions configures optional session collaborators.
type SessionOptions struct {
	// Resolver resolves the light's MAC bytes when the transport address is
	// not itself a MAC (macOS reports CoreBluetooth UUIDs). Optional.
	Resolver Resolver

	// Now and Sleep override the clock, for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// NewSession creates a session for one light. The MAC is resolved once, at
// construction: from the resolver if one is given, else by parsing the
// transport address itself. An unresolvable MAC is normal and simply forces
// the legacy form of every MAC-gated command.
func NewSession(adapter ble.Adapter, address, name string, caps lightdb.Capabilities, opts SessionOptions) *Session {
	s := &Session{
		adapter: adapter,
		address: address,
		name:    name,
		caps:    caps,
		now:     time.Now,
		sleep:   time.Sleep,
	}
	if opts.Now != nil {
		s.now = opts.Now
	}
	if opts.Sleep != nil {
		s.sleep = opts.Sleep
	}

	if opts.Resolver != nil {
		s.mac, s.hasMAC = opts.Resolver.ResolveMAC(address, name)
	}
	if !s.hasMAC {
		s.mac, s.hasMAC = ParseMAC(address)
	}
	if !s.hasMAC {
		slog.Debug("[device] no resolvable MAC, using legacy commands only", "address", address, "name", name)
	}
	return s
}

// Capabilities returns the capability profile the session was built with.
func (s *Session) Capabilities() lightdb.Capabilities { return s.caps }

// Name returns the advertised device name.
func (s *Session) Name() string { return s.name }

// Address returns the transport address.
func (s *Session) Address() string { return s.address }

// State returns the current connection state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Light returns a snapshot of the last-known device state. The snapshot may
// be slightly stale between a write and its notification-confirmed update.
func (s *Session) Light() LightState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.light
}

func (s *Session) IsOn() bool      { return s.Light().IsOn }
func (s *Session) Brightness() int { return s.Light().Brightness }
func (s *Session) CCT() int        { return s.Light().CCT }
func (s *Session) Hue() int        { return s.Light().Hue }
func (s *Session) Saturation() int { return s.Light().Saturation }
func (s *Session) Effect() int     { return s.Light().Effect }

// GM returns the green/magenta tint on the external -50..+50 scale.
func (s *Session) GM() int { return s.Light().GM - 50 }

// OnNotify registers an observer for every decoded notification, recognized
// or not. Callbacks run on the transport's delivery goroutine and must not
// block.
func (s *Session) OnNotify(fn func(protocol.Notification)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.observers = append(s.observers, fn)
}

// OnDisconnect registers a callback fired when the transport drops the
// connection. It is not fired on explicit Disconnect. The session never
// reconnects on its own; the owning coordinator does.
func (s *Session) OnDisconnect(fn func()) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.onDisconnect = fn
}

// Connect opens the transport, discovers the control and notify
// characteristics, subscribes, and seeds device state with a status query.
func (s *Session) Connect(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state != StateDisconnected {
		state := s.state
		s.stateMu.Unlock()
		return fmt.Errorf("device: connect: session is %s", state)
	}
	s.state = StateConnecting
	s.stateMu.Unlock()

	conn, err := s.adapter.Connect(ctx, s.address)
	if err != nil {
		s.setDisconnected()
		return fmt.Errorf("device: connect %s: %w", s.address, err)
	}

	control, err := conn.DiscoverCharacteristic(ble.ServiceUUID, ble.ControlCharUUID)
	if err != nil {
		conn.Disconnect()
		s.setDisconnected()
		return fmt.Errorf("device: discover control characteristic: %w", err)
	}
	notify, err := conn.DiscoverCharacteristic(ble.ServiceUUID, ble.NotifyCharUUID)
	if err != nil {
		conn.Disconnect()
		s.setDisconnected()
		return fmt.Errorf("device: discover notify characteristic: %w", err)
	}
	if err := notify.Subscribe(s.handleNotification); err != nil {
		conn.Disconnect()
		s.setDisconnected()
		return fmt.Errorf("device: subscribe notifications: %w", err)
	}

	conn.OnDisconnect(s.handleDisconnect)

	s.stateMu.Lock()
	s.conn = conn
	s.control = control
	s.notify = notify
	s.state = StateConnected
	s.stateMu.Unlock()

	slog.Info("[device] connected", "name", s.name, "address", s.address)

	// Let the link settle, then ask the light to report its current state.
	s.sleep(settleDelay)
	s.mu.Lock()
	err = s.send([]byte{0x84, 0x00})
	s.mu.Unlock()
	if err != nil {
		slog.Warn("[device] status query failed", "name", s.name, "error", err)
	}
	return nil
}

// Disconnect tears the connection down. Transport errors during teardown are
// logged, not propagated: the session always ends up Disconnected, and the
// disconnect callback is not fired for an explicit disconnect.
func (s *Session) Disconnect() {
	s.stateMu.Lock()
	conn := s.conn
	notify := s.notify
	s.conn = nil
	s.control = nil
	s.notify = nil
	s.state = StateDisconnected
	s.stateMu.Unlock()

	if notify != nil {
		if err := notify.Unsubscribe(); err != nil {
			slog.Warn("[device] unsubscribe failed", "name", s.name, "error", err)
		}
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			slog.Warn("[device] disconnect failed", "name", s.name, "error", err)
		}
		slog.Info("[device] disconnected", "name", s.name)
	}
}

func (s *Session) setDisconnected() {
	s.stateMu.Lock()
	s.conn = nil
	s.control = nil
	s.notify = nil
	s.state = StateDisconnected
	s.stateMu.Unlock()
}

// handleDisconnect runs on the transport callback when the link drops.
func (s *Session) handleDisconnect() {
	s.stateMu.Lock()
	if s.state == StateDisconnected {
		// Explicit Disconnect already ran; nothing to signal.
		s.stateMu.Unlock()
		return
	}
	s.conn = nil
	s.control = nil
	s.notify = nil
	s.state = StateDisconnected
	cb := s.onDisconnect
	s.stateMu.Unlock()

	slog.Warn("[device] connection lost", "name", s.name)
	if cb != nil {
		cb()
	}
}

// handleNotification decodes one incoming frame. Malformed frames are logged
// and dropped; one bad frame must not desensitize the session to later ones.
func (s *Session) handleNotification(data []byte) {
	n, err := protocol.Decode(data)
	if err != nil {
		slog.Debug("[device] dropping malformed notification", "name", s.name, "error", err)
		return
	}

	if n.Recognized {
		s.stateMu.Lock()
		s.light.Effect = n.Effect
		s.stateMu.Unlock()
	}

	s.stateMu.RLock()
	observers := make([]func(protocol.Notification), len(s.observers))
	copy(observers, s.observers)
	s.stateMu.RUnlock()
	for _, fn := range observers {
		fn(n)
	}
}

// send paces and writes one command frame. The caller must hold mu.
func (s *Session) send(payload []byte) error {
	s.stateMu.RLock()
	control := s.control
	connected := s.state == StateConnected
	s.stateMu.RUnlock()
	if !connected || control == nil {
		return ErrNotConnected
	}

	if elapsed := s.now().Sub(s.lastSend); elapsed < minCommandInterval {
		s.sleep(minCommandInterval - elapsed)
	}
	err := control.Write(protocol.Encode(payload))
	s.lastSend = s.now()
	return err
}

// sendPreferred tries the MAC-addressed new-format frame first, falling back
// to the legacy frame when the write is rejected. Firmware versions vary in
// which formats they accept, so the fallback is the normal path on older
// lights, not error suppression. Returns whether the preferred frame was the
// one that went through. A nil preferred frame skips straight to legacy.
func (s *Session) sendPreferred(op string, preferred, legacy []byte) (bool, error) {
	if preferred != nil {
		err := s.send(preferred)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, ErrNotConnected) {
			return false, err
		}
		slog.Warn("[device] new-format command rejected, trying legacy", "name", s.name, "op", op, "error", err)
	}
	if err := s.send(legacy); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return false, err
		}
		return false, fmt.Errorf("device: %s: %w", op, err)
	}
	return false, nil
}

func (s *Session) updateLight(fn func(*LightState)) {
	s.stateMu.Lock()
	fn(&s.light)
	s.stateMu.Unlock()
}

// SetPower switches the light on or off.
func (s *Session) SetPower(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	val := byte(2)
	if on {
		val = 1
	}
	var preferred []byte
	if s.caps.NewPowerLightCommand && s.hasMAC {
		preferred = append([]byte{0x8D, 0x08}, s.mac[:]...)
		preferred = append(preferred, 0x81, val)
	}
	if _, err := s.sendPreferred("set power", preferred, []byte{0x81, 0x01, val}); err != nil {
		return err
	}
	s.updateLight(func(l *LightState) { l.IsOn = on })
	return nil
}

// SetBrightness sets brightness 0..100. On RGB lights brightness is
// inseparable from color, so the call is redirected through the HSI command
// using the last-known hue and saturation.
func (s *Session) SetBrightness(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	level = clampInt(level, 0, 100)
	if s.caps.SupportRGB {
		light := s.Light()
		return s.setHSILocked(light.Hue, light.Saturation, level)
	}

	if _, err := s.sendPreferred("set brightness", nil, []byte{0x82, 0x01, byte(level)}); err != nil {
		return err
	}
	s.updateLight(func(l *LightState) { l.Brightness = level })
	return nil
}

// SetCCT sets the color temperature in Kelvin with an optional brightness
// and a green/magenta tint on the -50..+50 scale. A negative brightness
// keeps the last-known level. On lights without GM support, or when the
// GM-aware frame is rejected, the legacy frame is sent and the stored GM is
// left unchanged since the legacy format cannot carry it.
func (s *Session) SetCCT(kelvin, brightness, gm int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if brightness < 0 {
		brightness = s.Light().Brightness
	}
	brightness = clampInt(brightness, 0, 100)
	cct := kelvinToDevice(kelvin, s.cctRange())
	gmDevice := clampInt(gm, -50, 50) + 50

	var preferred []byte
	if s.caps.SupportCCTGM && s.hasMAC {
		preferred = append([]byte{0x90, 0x0C}, s.mac[:]...)
		preferred = append(preferred, 0x87, byte(brightness), byte(cct), byte(gmDevice), 0x04)
	}
	usedGM, err := s.sendPreferred("set cct", preferred, []byte{0x87, 0x02, byte(brightness), byte(cct)})
	if err != nil {
		return err
	}
	s.updateLight(func(l *LightState) {
		l.Brightness = brightness
		l.CCT = cct
		if usedGM {
			l.GM = gmDevice
		}
	})
	return nil
}

// SetHSI sets hue 0..360, saturation 0..100, and brightness. A negative
// brightness keeps the last-known level.
func (s *Session) SetHSI(hue, saturation, brightness int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if brightness < 0 {
		brightness = s.Light().Brightness
	}
	return s.setHSILocked(hue, saturation, brightness)
}

// setHSILocked sends the HSI frame. The caller must hold mu.
func (s *Session) setHSILocked(hue, saturation, brightness int) error {
	hue = clampInt(hue, 0, 360)
	saturation = clampInt(saturation, 0, 100)
	brightness = clampInt(brightness, 0, 100)
	hueLow := byte(hue & 0xFF)
	hueHigh := byte(hue >> 8)

	var preferred []byte
	if s.caps.NewRGBLightCommand && s.hasMAC {
		preferred = append([]byte{0x8F, 0x0C}, s.mac[:]...)
		preferred = append(preferred, 0x86, hueLow, hueHigh, byte(saturation), byte(brightness), 0x00)
	}
	legacy := []byte{0x86, 0x04, hueLow, hueHigh, byte(saturation), byte(brightness)}
	if _, err := s.sendPreferred("set hsi", preferred, legacy); err != nil {
		return err
	}
	s.updateLight(func(l *LightState) {
		l.Hue = hue
		l.Saturation = saturation
		l.Brightness = brightness
	})
	return nil
}

// SetEffect activates a scene effect. On lights with the 17-effect engine
// and a resolvable MAC the full parameterized scene frame is sent; otherwise,
// and when the encoder does not know the effect, the basic scene command is
// used. A negative brightness keeps the last-known level.
func (s *Session) SetEffect(effectID, brightness int, params scene.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if brightness < 0 {
		brightness = s.Light().Brightness
	}
	brightness = clampInt(brightness, 0, 100)

	var preferred []byte
	if s.caps.Support17FX && s.hasMAC {
		validated := scene.Validate(effectID, params)
		payload, err := scene.Build(effectID, s.mac, brightness, validated)
		if err != nil {
			slog.Debug("[device] scene encoder rejected effect, using basic command", "name", s.name, "effect", effectID, "error", err)
		} else {
			preferred = payload
		}
	}
	legacy := []byte{0x88, 0x02, byte(brightness), byte(effectID)}
	if _, err := s.sendPreferred("set effect", preferred, legacy); err != nil {
		return err
	}
	s.updateLight(func(l *LightState) {
		l.Brightness = brightness
		l.Effect = effectID
	})
	return nil
}

func (s *Session) cctRange() lightdb.CCTRange {
	if s.caps.CCTRange != nil {
		return *s.caps.CCTRange
	}
	return defaultCCTRange
}

// kelvinToDevice converts Kelvin to the device's CCT units by linear
// interpolation over the capability-declared range, clamped at the ends.
func kelvinToDevice(kelvin int, r lightdb.CCTRange) int {
	cct := r.Min + (kelvin-kelvinMin)*(r.Max-r.Min)/(kelvinMax-kelvinMin)
	return clampInt(cct, r.Min, r.Max)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
