// Package feature turns raw AT command responses into a typed,
// confidence-scored description of a modem. Parsing never faults the
// pipeline: a response that doesn't match is data, not an error, and
// shows up as an absent feature with confidence zero.
package feature

import (
	"sort"
	"strings"
)

// SourceUniversal marks features produced by the standard 3GPP rule
// table. Vendor-produced features carry their parser name instead.
const SourceUniversal = "universal"

// Confidence levels. Vendor-declared parsers outrank the universal
// table because they are purpose-built for the exact firmware.
const (
	confVendor    = 0.95
	confUniversal = 0.9
	confInferred  = 0.7
	confSuspect   = 0.5
)

// Feature is a single extracted datum: a value, how much to trust it,
// and which parser produced it.
type Feature struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// BasicInfo is the identification section.
type BasicInfo struct {
	Manufacturer Feature `json:"manufacturer"`
	Model        Feature `json:"model"`
	Revision     Feature `json:"revision"`
	IMEI         Feature `json:"imei"`
}

// NetworkInfo covers registration, operator and radio state.
type NetworkInfo struct {
	Operator     Feature `json:"operator"`
	Registration Feature `json:"registration"`
	SignalRSSI   Feature `json:"signal_rssi"`
	SignalDBM    Feature `json:"signal_dbm"`
	LTEBands     Feature `json:"lte_bands"`
	LTECategory  Feature `json:"lte_category"`
}

// VoiceInfo covers voice capabilities.
type VoiceInfo struct {
	VoLTE Feature `json:"volte_supported"`
}

// GNSSInfo covers positioning capabilities.
type GNSSInfo struct {
	Supported Feature `json:"supported"`
}

// SIMInfo covers the SIM card.
type SIMInfo struct {
	Status Feature `json:"status"`
	ICCID  Feature `json:"iccid"`
	IMSI   Feature `json:"imsi"`
}

// PowerInfo covers power-saving capabilities.
type PowerInfo struct {
	PSM Feature `json:"psm_supported"`
}

// FeatureSet is the complete result of one extraction. It is assembled
// once and never mutated; re-running the extractor over the same
// response batch yields an equal FeatureSet. Every field is populated:
// features no parser produced hold their sentinel value with
// confidence zero.
type FeatureSet struct {
	Basic   BasicInfo   `json:"basic"`
	Network NetworkInfo `json:"network"`
	Voice   VoiceInfo   `json:"voice"`
	GNSS    GNSSInfo    `json:"gnss"`
	SIM     SIMInfo     `json:"sim"`
	Power   PowerInfo   `json:"power"`

	// Vendor holds vendor-extension features keyed by their declared
	// path below "vendor.".
	Vendor map[string]Feature `json:"vendor"`

	// Errors records per-parser faults that were degraded to misses.
	Errors []string `json:"errors,omitempty"`

	// AggregateConfidence is the mean of all non-zero confidences.
	AggregateConfidence float64 `json:"aggregate_confidence"`
}

type fieldRef struct {
	path     string
	f        *Feature
	sentinel any
}

// refs enumerates the fixed feature paths in a stable order, together
// with the sentinel each field holds when no parser produced it.
func (fs *FeatureSet) refs() []fieldRef {
	return []fieldRef{
		{"basic.manufacturer", &fs.Basic.Manufacturer, "Unknown"},
		{"basic.model", &fs.Basic.Model, "Unknown"},
		{"basic.revision", &fs.Basic.Revision, "Unknown"},
		{"basic.imei", &fs.Basic.IMEI, "Unknown"},
		{"network.operator", &fs.Network.Operator, "Unknown"},
		{"network.registration", &fs.Network.Registration, "unknown"},
		{"network.signal_rssi", &fs.Network.SignalRSSI, nil},
		{"network.signal_dbm", &fs.Network.SignalDBM, nil},
		{"network.lte_bands", &fs.Network.LTEBands, nil},
		{"network.lte_category", &fs.Network.LTECategory, "Unknown"},
		{"voice.volte_supported", &fs.Voice.VoLTE, false},
		{"gnss.supported", &fs.GNSS.Supported, false},
		{"sim.status", &fs.SIM.Status, "unknown"},
		{"sim.iccid", &fs.SIM.ICCID, "Unknown"},
		{"sim.imsi", &fs.SIM.IMSI, "Unknown"},
		{"power.psm_supported", &fs.Power.PSM, false},
	}
}

// assemble builds a FeatureSet from a merged path-keyed map. Paths
// outside the fixed sections land in the vendor-extension section.
func assemble(merged map[string]Feature, errs []string) *FeatureSet {
	fs := &FeatureSet{Vendor: map[string]Feature{}}

	known := make(map[string]bool)
	for _, ref := range fs.refs() {
		known[ref.path] = true
		if f, ok := merged[ref.path]; ok {
			*ref.f = f
		} else {
			*ref.f = Feature{Value: ref.sentinel, Confidence: 0.0}
		}
	}

	for path, f := range merged {
		if known[path] {
			continue
		}
		fs.Vendor[strings.TrimPrefix(path, "vendor.")] = f
	}

	fs.Errors = errs
	fs.AggregateConfidence = fs.aggregate()
	return fs
}

func (fs *FeatureSet) aggregate() float64 {
	var sum float64
	var n int
	collect := func(f Feature) {
		if f.Confidence > 0.0 {
			sum += f.Confidence
			n++
		}
	}
	for _, ref := range fs.refs() {
		collect(*ref.f)
	}
	for _, f := range fs.Vendor {
		collect(f)
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// HighConfidence returns the features whose confidence is at or above
// threshold, keyed by path. The underlying set is not modified.
func (fs *FeatureSet) HighConfidence(threshold float64) map[string]Feature {
	out := make(map[string]Feature)
	for _, ref := range fs.refs() {
		if ref.f.Confidence >= threshold {
			out[ref.path] = *ref.f
		}
	}
	for key, f := range fs.Vendor {
		if f.Confidence >= threshold {
			out["vendor."+key] = f
		}
	}
	return out
}

// ToMap renders the set as nested maps for downstream consumers.
// Serializing the result with encoding/json yields stable key ordering.
func (fs *FeatureSet) ToMap() map[string]any {
	sections := make(map[string]map[string]any)
	for _, ref := range fs.refs() {
		section, name, _ := strings.Cut(ref.path, ".")
		if sections[section] == nil {
			sections[section] = make(map[string]any)
		}
		sections[section][name] = featureMap(*ref.f)
	}

	vendor := make(map[string]any, len(fs.Vendor))
	for key, f := range fs.Vendor {
		vendor[key] = featureMap(f)
	}

	out := map[string]any{
		"basic":                sections["basic"],
		"network":              sections["network"],
		"voice":                sections["voice"],
		"gnss":                 sections["gnss"],
		"sim":                  sections["sim"],
		"power":                sections["power"],
		"vendor":               vendor,
		"aggregate_confidence": fs.AggregateConfidence,
	}
	if len(fs.Errors) > 0 {
		out["errors"] = append([]string(nil), fs.Errors...)
	}
	return out
}

func featureMap(f Feature) map[string]any {
	m := map[string]any{
		"value":      f.Value,
		"confidence": f.Confidence,
	}
	if f.Source != "" {
		m["source"] = f.Source
	}
	return m
}

// Merge applies the conflict-resolution policy per feature path: a
// challenger replaces an established value only with strictly greater
// confidence, or equal confidence from a vendor parser. Neither input
// map is modified.
func Merge(base, overlay map[string]Feature) map[string]Feature {
	merged := make(map[string]Feature, len(base)+len(overlay))
	for path, f := range base {
		merged[path] = f
	}
	for _, path := range sortedKeys(overlay) {
		challenger := overlay[path]
		current, exists := merged[path]
		switch {
		case !exists:
			merged[path] = challenger
		case challenger.Confidence > current.Confidence:
			merged[path] = challenger
		case challenger.Confidence == current.Confidence && challenger.Source != SourceUniversal:
			merged[path] = challenger
		}
	}
	return merged
}

func sortedKeys(m map[string]Feature) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
