// Package lightdb resolves Neewer device names to capability profiles.
//
// Profiles come from the NeewerLite community database: fetched from GitHub,
// cached on disk between refreshes, with a built-in table as the last
// fallback. Name parsing and the model keyword table are pure data
// transformation; the Database type adds caching on top.
package lightdb

import "errors"

var (
	// ErrUnknownModel indicates a device whose name could not be mapped to a
	// known light type. Callers get no partial profile in that case.
	ErrUnknownModel = errors.New("lightdb: unknown device model")
	// ErrNoDatabase indicates no database could be obtained from any source.
	ErrNoDatabase = errors.New("lightdb: no lights database available")
)

// CCTRange is a light's color temperature span in device units.
type CCTRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Capabilities is the fixed capability profile of one light model. The known
// field set is finite and stable, so this is a closed struct rather than the
// upstream database's free-form dictionary. Immutable once handed to a
// session.
type Capabilities struct {
	Type                 int       `json:"type"`
	Model                string    `json:"model,omitempty"`
	NickName             string    `json:"-"`
	SupportRGB           bool      `json:"supportRGB"`
	CCTRange             *CCTRange `json:"cctRange,omitempty"`
	SupportCCTGM         bool      `json:"supportCCTGM"`
	Support9FX           bool      `json:"support9FX"`
	Support17FX          bool      `json:"support17FX"`
	NewPowerLightCommand bool      `json:"newPowerLightCommand"`
	NewRGBLightCommand   bool      `json:"newRGBLightCommand"`
}

// LightsFile is the on-the-wire shape of the NeewerLite database.
type LightsFile struct {
	Version int            `json:"version"`
	Lights  []Capabilities `json:"lights"`
}

// Valid reports whether a decoded database has the structure the resolver
// relies on: a lights list whose entries carry a type id.
func (f *LightsFile) Valid() bool {
	if f == nil || f.Lights == nil {
		return false
	}
	for _, l := range f.Lights {
		if l.Type == 0 {
			return false
		}
	}
	return true
}
