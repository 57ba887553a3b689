package schedule

import "sort"

// Preset names recognized by the registry.
const (
	PresetBusinessHours = "business-hours"
	PresetDevHours      = "dev-hours"
	PresetDemoOnly      = "demo-only"
	Preset24x7          = "24x7"
	PresetNever         = "never"
)

// presets maps a preset name to its expanded spec. The demo-only, 24x7 and
// never entries carry sentinel times; in practice the decision pipeline
// short-circuits those names before the table is consulted, so the sentinel
// rows exist for completeness and for Describe output.
var presets = map[string]Spec{
	PresetBusinessHours: {Days: "Mon-Fri", Start: "08:00", Stop: "18:00"},
	PresetDevHours:      {Days: "Mon-Fri", Start: "09:00", Stop: "17:00"},
	PresetDemoOnly:      {Days: "Mon-Sun", Start: SentinelManual, Stop: SentinelManual},
	Preset24x7:          {Days: "Mon-Sun", Start: SentinelAlways, Stop: SentinelNever},
	PresetNever:         {Days: "Mon-Sun", Start: SentinelNever, Stop: SentinelAlways},
}

// Preset looks up a named preset. The second result reports whether the name
// is a known preset; callers fall through to ParseCustom when it is not.
func Preset(name string) (Spec, bool) {
	s, ok := presets[name]
	return s, ok
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
