// Package protocol implements the Neewer BLE frame format: a fixed prefix
// byte, a command or notification payload, and a trailing additive checksum.
package protocol

import "errors"

// Prefix is the first byte of every command and notification frame.
const Prefix = 0x78

// ChannelTag identifies a channel/effect update notification. The light
// pushes one whenever its active channel changes, locally or remotely.
const ChannelTag = 0x01

// minFrameLen is the shortest frame the lights emit: prefix, tag, one
// payload byte, checksum.
const minFrameLen = 4

// channelFrameLen is the exact length of a channel update notification:
// [0x78, 0x01, 0x01, CHANNEL, CHECKSUM].
const channelFrameLen = 5

// Effect ids are 1-based on the wire surface; the notification carries a
// 0-based channel. MaxEffect is the highest effect id any known firmware
// reports.
const MaxEffect = 17

var (
	// ErrTooShort indicates a notification below the minimum frame length.
	ErrTooShort = errors.New("protocol: frame too short")
	// ErrBadPrefix indicates a notification that does not start with Prefix.
	ErrBadPrefix = errors.New("protocol: bad frame prefix")
	// ErrChecksumMismatch indicates the trailing checksum byte does not match
	// the sum of the preceding bytes.
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
)

// Checksum returns the low byte of the sum of data.
func Checksum(data []byte) byte {
	var sum int
	for _, b := range data {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}

// Encode builds a complete command frame from a payload: prefix, payload,
// then a checksum over everything preceding it. Payload length is implied
// by the command layout; no length field is added here.
func Encode(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, Prefix)
	frame = append(frame, payload...)
	frame = append(frame, Checksum(frame))
	return frame
}

// Notification is a decoded, checksum-valid notification frame.
//
// Only channel update frames are currently interpreted; every other
// tag/length combination is carried through with Recognized false so the
// session can hand it to observers without failing.
type Notification struct {
	// Tag is the notification type byte (raw[1]).
	Tag byte
	// Raw holds a copy of the entire frame including prefix and checksum.
	Raw []byte
	// Recognized is true when the frame was interpreted (channel updates).
	Recognized bool
	// Effect is the 1-based effect id from a channel update, clamped to
	// 1..MaxEffect. Zero when Recognized is false.
	Effect int
}

// Decode validates and parses a raw notification frame.
//
// The device sends a 0-based channel; the decoded Effect is 1-based so the
// session can reserve 0 for "no effect". A channel past the known effect set
// clamps to MaxEffect rather than overflowing.
func Decode(raw []byte) (Notification, error) {
	if len(raw) < minFrameLen {
		return Notification{}, ErrTooShort
	}
	if raw[0] != Prefix {
		return Notification{}, ErrBadPrefix
	}
	if Checksum(raw[:len(raw)-1]) != raw[len(raw)-1] {
		return Notification{}, ErrChecksumMismatch
	}

	n := Notification{
		Tag: raw[1],
		Raw: append([]byte(nil), raw...),
	}

	if raw[1] == ChannelTag && len(raw) == channelFrameLen {
		effect := int(raw[3]) + 1
		if effect < 1 {
			effect = 1
		}
		if effect > MaxEffect {
			effect = MaxEffect
		}
		n.Recognized = true
		n.Effect = effect
	}
	return n, nil
}
