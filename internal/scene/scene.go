// Package scene encodes the advanced scene effects of 17-effect Neewer
// lights. Each effect id maps to a parameter spec (recognized names plus
// defaults) and to one of a small set of payload layouts; building a command
// merges caller parameters over the defaults and emits the layout's exact
// byte sequence.
package scene

import "errors"

// Effect ids as reported on the wire. 0 is reserved by the session to mean
// "no effect active".
const (
	EffectLightning     = 0x01
	EffectPaparazzi     = 0x02
	EffectDefectiveBulb = 0x03
	EffectExplosion     = 0x04
	EffectWelding       = 0x05
	EffectCCTFlash      = 0x06
	EffectHueFlash      = 0x07
	EffectCCTPulse      = 0x08
	EffectHuePulse      = 0x09
	EffectCopCar        = 0x0A
	EffectCandlelight   = 0x0B
	EffectHueLoop       = 0x0C
	EffectCCTLoop       = 0x0D
	EffectIntLoop       = 0x0E
	EffectTVScreen      = 0x0F
	EffectFirework      = 0x10
	EffectParty         = 0x11
)

// commandTag opens every advanced scene payload; subTag follows the MAC.
const (
	commandTag = 0x91
	subTag     = 0x8B
)

// ErrUnknownEffect is returned by Build for effect ids outside the table.
// The session treats it as non-fatal and falls back to the basic scene
// command.
var ErrUnknownEffect = errors.New("scene: unknown effect id")

// Params carries named effect parameters. Only names declared by the
// effect's Spec are applied; everything else is dropped at validation.
type Params map[string]int

// Spec describes one effect: its display name, the parameter names it
// recognizes, and a default for each.
type Spec struct {
	Name     string
	Params   []string
	Defaults Params
}

// layout selects the wire shape an effect's payload follows. Adding a new
// effect means one layouts entry plus, if the firmware introduces a new
// shape, one case in Build.
type layout int

const (
	layoutCCT         layout = iota // brightness, cct, gm, speed
	layoutHue                       // brightness, hue (16-bit LE), saturation, speed
	layoutExplosion                 // brightness, cct, gm, speed, sparks
	layoutWelding                   // dual brightness, cct, gm, speed
	layoutCandlelight               // dual brightness, cct, gm, speed, sparks
	layoutColorMode                 // brightness, color mode, speed
	layoutHueLoop                   // brightness, two 16-bit hues, speed
	layoutCCTLoop                   // brightness, cct range, speed
	layoutIntLoop                   // dual brightness, hue (16-bit LE), speed
	layoutFirework                  // brightness, color mode, speed, sparks
)

var layouts = map[int]layout{
	EffectLightning:     layoutCCT,
	EffectPaparazzi:     layoutCCT,
	EffectDefectiveBulb: layoutCCT,
	EffectExplosion:     layoutExplosion,
	EffectWelding:       layoutWelding,
	EffectCCTFlash:      layoutCCT,
	EffectHueFlash:      layoutHue,
	EffectCCTPulse:      layoutCCT,
	EffectHuePulse:      layoutHue,
	EffectCopCar:        layoutColorMode,
	EffectCandlelight:   layoutCandlelight,
	EffectHueLoop:       layoutHueLoop,
	EffectCCTLoop:       layoutCCTLoop,
	EffectIntLoop:       layoutIntLoop,
	EffectTVScreen:      layoutCCT,
	EffectFirework:      layoutFirework,
	EffectParty:         layoutColorMode,
}

var specs = map[int]Spec{
	EffectLightning: {
		Name:     "Lightning",
		Params:   []string{"brightness", "cct", "gm", "speed"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 5},
	},
	EffectPaparazzi: {
		Name:     "Paparazzi",
		Params:   []string{"brightness", "cct", "gm", "speed"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 5},
	},
	EffectDefectiveBulb: {
		Name:     "Defective Bulb",
		Params:   []string{"brightness", "cct", "gm", "speed"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 5},
	},
	EffectExplosion: {
		Name:     "Explosion",
		Params:   []string{"brightness", "cct", "gm", "speed", "sparks"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 5, "sparks": 5},
	},
	EffectWelding: {
		Name:     "Welding",
		Params:   []string{"brightness_low", "brightness_high", "cct", "gm", "speed"},
		Defaults: Params{"brightness_low": 20, "brightness_high": 100, "cct": 50, "gm": 50, "speed": 5},
	},
	EffectCCTFlash: {
		Name:     "CCT Flash",
		Params:   []string{"brightness", "cct", "gm", "speed"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 5},
	},
	EffectHueFlash: {
		Name:     "HUE Flash",
		Params:   []string{"brightness", "hue", "saturation", "speed"},
		Defaults: Params{"brightness": 100, "hue": 180, "saturation": 100, "speed": 5},
	},
	EffectCCTPulse: {
		Name:     "CCT Pulse",
		Params:   []string{"brightness", "cct", "gm", "speed"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 5},
	},
	EffectHuePulse: {
		Name:     "HUE Pulse",
		Params:   []string{"brightness", "hue", "saturation", "speed"},
		Defaults: Params{"brightness": 100, "hue": 180, "saturation": 100, "speed": 5},
	},
	EffectCopCar: {
		Name:     "Cop Car",
		Params:   []string{"brightness", "color_mode", "speed"},
		Defaults: Params{"brightness": 100, "color_mode": 2, "speed": 5},
	},
	EffectCandlelight: {
		Name:     "Candlelight",
		Params:   []string{"brightness_low", "brightness_high", "cct", "gm", "speed", "sparks"},
		Defaults: Params{"brightness_low": 20, "brightness_high": 80, "cct": 27, "gm": 50, "speed": 3, "sparks": 3},
	},
	EffectHueLoop: {
		Name:     "HUE Loop",
		Params:   []string{"brightness", "hue_low", "hue_high", "speed"},
		Defaults: Params{"brightness": 100, "hue_low": 0, "hue_high": 360, "speed": 5},
	},
	EffectCCTLoop: {
		Name:     "CCT Loop",
		Params:   []string{"brightness", "cct_low", "cct_high", "speed"},
		Defaults: Params{"brightness": 100, "cct_low": 27, "cct_high": 65, "speed": 5},
	},
	EffectIntLoop: {
		Name:     "INT Loop",
		Params:   []string{"brightness_low", "brightness_high", "hue", "speed"},
		Defaults: Params{"brightness_low": 10, "brightness_high": 100, "hue": 180, "speed": 5},
	},
	EffectTVScreen: {
		Name:     "TV Screen",
		Params:   []string{"brightness", "cct", "gm", "speed"},
		Defaults: Params{"brightness": 100, "cct": 50, "gm": 50, "speed": 8},
	},
	EffectFirework: {
		Name:     "Firework",
		Params:   []string{"brightness", "color_mode", "speed", "sparks"},
		Defaults: Params{"brightness": 100, "color_mode": 1, "speed": 5, "sparks": 7},
	},
	EffectParty: {
		Name:     "Party",
		Params:   []string{"brightness", "color_mode", "speed"},
		Defaults: Params{"brightness": 100, "color_mode": 1, "speed": 7},
	},
}

// Lookup returns the parameter spec for an effect id.
func Lookup(effectID int) (Spec, bool) {
	s, ok := specs[effectID]
	return s, ok
}

// clampParam clamps a value to its parameter class range.
func clampParam(name string, v int) int {
	var lo, hi int
	switch name {
	case "brightness", "brightness_low", "brightness_high":
		lo, hi = 0, 100
	case "cct", "cct_low", "cct_high":
		lo, hi = 27, 65
	case "gm":
		lo, hi = 0, 100
	case "hue", "hue_low", "hue_high":
		lo, hi = 0, 360
	case "saturation":
		lo, hi = 0, 100
	case "speed", "sparks":
		lo, hi = 1, 10
	case "color_mode":
		lo, hi = 0, 4
	default:
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Validate filters params down to the names the effect declares, clamping
// each to its class range. An unknown effect id yields an empty set, which
// is distinct from a build failure: the caller may still fall back to the
// basic scene command.
func Validate(effectID int, params Params) Params {
	spec, ok := specs[effectID]
	if !ok {
		return Params{}
	}
	validated := Params{}
	for _, name := range spec.Params {
		if v, present := params[name]; present {
			validated[name] = clampParam(name, v)
		}
	}
	return validated
}

// Build produces the advanced scene command payload for an effect: merged
// defaults and validated parameters (caller wins), brightness force-set from
// the explicit argument, laid out per the effect's family. The second byte
// is the firmware's framing count for each family and must not vary.
func Build(effectID int, mac [6]byte, brightness int, params Params) ([]byte, error) {
	spec, ok := specs[effectID]
	if !ok {
		return nil, ErrUnknownEffect
	}

	merged := Params{}
	for k, v := range spec.Defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	merged["brightness"] = clampParam("brightness", brightness)

	head := func(count byte) []byte {
		p := make([]byte, 0, int(count)+2)
		p = append(p, commandTag, count)
		p = append(p, mac[:]...)
		p = append(p, subTag, byte(effectID))
		return p
	}

	var payload []byte
	switch layouts[effectID] {
	case layoutCCT:
		payload = append(head(0x0E),
			byte(merged["brightness"]), byte(merged["cct"]), byte(merged["gm"]),
			byte(merged["speed"]), 0x00)
	case layoutHue:
		hue := merged["hue"]
		payload = append(head(0x0F),
			byte(merged["brightness"]), byte(hue&0xFF), byte((hue>>8)&0xFF),
			byte(merged["saturation"]), byte(merged["speed"]), 0x00)
	case layoutExplosion:
		payload = append(head(0x0F),
			byte(merged["brightness"]), byte(merged["cct"]), byte(merged["gm"]),
			byte(merged["speed"]), byte(merged["sparks"]), 0x00)
	case layoutWelding:
		payload = append(head(0x0F),
			byte(merged["brightness_low"]), byte(merged["brightness_high"]),
			byte(merged["cct"]), byte(merged["gm"]), byte(merged["speed"]), 0x00)
	case layoutCandlelight:
		payload = append(head(0x10),
			byte(merged["brightness_low"]), byte(merged["brightness_high"]),
			byte(merged["cct"]), byte(merged["gm"]), byte(merged["speed"]),
			byte(merged["sparks"]), 0x00)
	case layoutColorMode:
		payload = append(head(0x0E),
			byte(merged["brightness"]), byte(merged["color_mode"]),
			byte(merged["speed"]), 0x00, 0x00)
	case layoutHueLoop:
		lo, hi := merged["hue_low"], merged["hue_high"]
		payload = append(head(0x11),
			byte(merged["brightness"]),
			byte(lo&0xFF), byte((lo>>8)&0xFF),
			byte(hi&0xFF), byte((hi>>8)&0xFF),
			byte(merged["speed"]), 0x00)
	case layoutCCTLoop:
		payload = append(head(0x0E),
			byte(merged["brightness"]), byte(merged["cct_low"]),
			byte(merged["cct_high"]), byte(merged["speed"]), 0x00)
	case layoutIntLoop:
		hue := merged["hue"]
		payload = append(head(0x0F),
			byte(merged["brightness_low"]), byte(merged["brightness_high"]),
			byte(hue&0xFF), byte((hue>>8)&0xFF), byte(merged["speed"]), 0x00)
	case layoutFirework:
		payload = append(head(0x0F),
			byte(merged["brightness"]), byte(merged["color_mode"]),
			byte(merged["speed"]), byte(merged["sparks"]), 0x00, 0x00)
	}
	return payload, nil
}
