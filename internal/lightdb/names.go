package lightdb

import "strings"

// dateCodeModels maps the YYYYMMDD date codes of "NW-YYYYMMDD&…" advertised
// names to project names. Extended as new codes are observed in the wild.
var dateCodeModels = map[string]string{
	"20220014": "CB60B",
	"20220015": "SL90",
	"20220016": "RGB660 PRO",
	"20220017": "GL1 PRO",
	"20220018": "MS60C",
	"20220019": "TL60",
	"20220020": "GR18C",
	"20220021": "RGB176-A1",
	"20220022": "GL1C",
	"20220023": "RGB62",
	"20220024": "BH-30S",
}

// typeRule maps a project-name keyword to a light type id. Rules are checked
// in order, most specific first; exclude guards variants whose keyword is a
// prefix of another model's (SL90 vs SL90 PRO).
type typeRule struct {
	keyword string
	exclude string
	id      int
}

var typeRules = []typeRule{
	{keyword: "cb60 rgb", id: 22},
	{keyword: "sl90 pro", id: 34},
	{keyword: "sl90", exclude: "pro", id: 14},
	{keyword: "rgb660 pro", id: 3},
	{keyword: "gl1 pro", id: 33},
	{keyword: "gl1c", id: 39},
	{keyword: "ms60c", id: 25},
	{keyword: "rgb62", id: 40},
	{keyword: "bh-30s", id: 42},
	{keyword: "tl60", id: 32},
	{keyword: "gr18c", id: 62},
	{keyword: "rgb176-a1", id: 5},
	{keyword: "rgb176", id: 20},
	{keyword: "cb60b", id: 22},
	{keyword: "cb60", id: 15},
	{keyword: "rgb1", id: 8},
	{keyword: "660 pro", id: 3},
	{keyword: "480 pro", id: 2},
	{keyword: "530 pro", id: 1},
	{keyword: "gl1", exclude: "pro", id: 26},
	{keyword: "tl-60", id: 32},
	{keyword: "ms150", id: 41},
	{keyword: "rgb168", id: 6},
	{keyword: "fs150", id: 30},
	{keyword: "sl80", id: 35},
	{keyword: "sl60", id: 36},
	{keyword: "sl140", id: 37},
	{keyword: "sl200", id: 38},
}

// patternRules are weaker fallbacks tried after the numeric-id parse.
var patternRules = []typeRule{
	{keyword: "660", id: 3},
	{keyword: "530", id: 1},
	{keyword: "480", id: 2},
}

// IsNeewerLight reports whether an advertised name looks like a Neewer
// light. Deliberately loose; resolution decides for real.
func IsNeewerLight(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range []string{"nwr", "neewer", "sl", "nee"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.HasPrefix(lower, "nw-") || strings.HasPrefix(lower, "neewer-")
}

// ParseProjectName extracts the project name from an advertised device name.
//
// Vendor prefixes observed on real hardware:
//
//	NWR-<model>          drop the prefix
//	NEEWER-<model>       drop the prefix
//	NW-YYYYMMDD&XXXXXXXX look the date code up in dateCodeModels
//	NW-<model>           drop the prefix
//
// Anything else is taken as the project name verbatim.
func ParseProjectName(deviceName string) string {
	lower := strings.ToLower(deviceName)

	if strings.HasPrefix(lower, "nwr-") {
		return deviceName[4:]
	}
	if strings.HasPrefix(lower, "neewer-") {
		return deviceName[7:]
	}
	if strings.HasPrefix(lower, "nw-") && len(deviceName) >= 20 && strings.Contains(deviceName, "&") {
		if model, ok := dateCodeModels[deviceName[3:11]]; ok {
			return model
		}
	}
	if strings.HasPrefix(lower, "nw-") {
		return deviceName[3:]
	}
	return deviceName
}

// LightTypeFor maps a project name to its numeric light type id.
func LightTypeFor(projectName string) (int, bool) {
	lower := strings.ToLower(projectName)

	for _, r := range typeRules {
		if strings.Contains(lower, r.keyword) {
			if r.exclude != "" && strings.Contains(lower, r.exclude) {
				continue
			}
			return r.id, true
		}
	}

	// Bare numeric names are taken as a direct type id.
	if id, ok := parseInt(projectName); ok {
		return id, true
	}

	if strings.Contains(lower, "rgb") {
		for _, r := range patternRules {
			if strings.Contains(lower, r.keyword) {
				return r.id, true
			}
		}
	}
	return 0, false
}

// NickName builds the short display name: project name plus the last six
// characters of the identifier with colons stripped.
func NickName(projectName, identifier string) string {
	if len(identifier) < 6 {
		return projectName
	}
	tail := strings.ToUpper(strings.ReplaceAll(identifier[len(identifier)-6:], ":", ""))
	return projectName + "-" + tail
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
