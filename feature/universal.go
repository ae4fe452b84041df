package feature

import (
	"regexp"
	"slices"
	"sort"
	"strconv"

	"github.com/veenone/modem-inspector/at"
	"github.com/veenone/modem-inspector/modem"
)

// Pattern tables for the standard 3GPP command set. Labeled forms come
// first; the bare-line fallbacks match modems that print the value with
// no decoration.
var (
	manufacturerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Manufacturer:\s*([A-Za-z0-9 _\-]+)`),
		regexp.MustCompile(`(?m)^([A-Za-z0-9][A-Za-z0-9 _\-]*)\s*$`),
	}
	modelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Model:\s*([A-Za-z0-9_\-]+)`),
		regexp.MustCompile(`(?m)^([A-Za-z0-9_\-]+)\s*$`),
	}
	revisionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Revision:\s*([\w.\-]+)`),
		regexp.MustCompile(`(?m)^([\w.\-]+)\s*$`),
	}
	imeiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)IMEI:\s*(\d{14,16})`),
		regexp.MustCompile(`\b(\d{14,16})\b`),
	}
	csqPattern  = regexp.MustCompile(`\+CSQ:\s*(\d+),\s*\d+`)
	copsPattern = regexp.MustCompile(`\+COPS:\s*\d+(?:,\d+,"([^"]*)")?`)
	cregPattern = regexp.MustCompile(`\+CREG:\s*\d+,\s*(\d+)`)
	psmPattern  = regexp.MustCompile(`\+CPSMS:\s*([01])`)
	ciregPattern = regexp.MustCompile(`\+CIREG:\s*\d+,\s*1`)
	iccidPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:\+Q?CCID:|ICCID:)\s*(\d{19,20})`),
		regexp.MustCompile(`\b(\d{19,20})\b`),
	}
	imsiPattern      = regexp.MustCompile(`\b(\d{14,15})\b`)
	simReadyPattern  = regexp.MustCompile(`\+CPIN:\s*READY`)
	simPinPattern    = regexp.MustCompile(`\+CPIN:\s*SIM PIN`)
	simAbsentPattern = regexp.MustCompile(`(?i)not inserted`)
	gnssPatterns  = []*regexp.Regexp{
		regexp.MustCompile(`\+CGNSPWR:\s*1`),
		regexp.MustCompile(`\+QGPS:\s*1`),
		regexp.MustCompile(`(?i)GNSS.*enabled`),
	}
	bandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Band\s+(\d+)`),
		regexp.MustCompile(`\bB(\d+)\b`),
		regexp.MustCompile(`(?i)LTE BAND\s*(\d+)`),
	}
)

var registrationStates = map[int]string{
	0: "not_registered",
	1: "registered_home",
	2: "searching",
	3: "denied",
	4: "unknown",
	5: "registered_roaming",
}

// Universal extracts the standard 3GPP-defined fields from any modem's
// responses. Its rules are fixed; pattern matches score confUniversal
// because the formats are standard-mandated. A failed match leaves the
// feature absent rather than raising.
type Universal struct{}

func NewUniversal() *Universal {
	return &Universal{}
}

// Parse applies the rule table to the response batch and returns the
// extracted features keyed by path.
func (u *Universal) Parse(responses map[string]modem.CommandResponse) map[string]Feature {
	features := make(map[string]Feature)
	u.parseBasicInfo(responses, features)
	u.parseNetwork(responses, features)
	u.parseVoice(responses, features)
	u.parseGNSS(responses, features)
	u.parsePower(responses, features)
	u.parseSIM(responses, features)
	return features
}

func (u *Universal) parseBasicInfo(responses map[string]modem.CommandResponse, features map[string]Feature) {
	if body, ok := successBody(responses, at.CmdManufacturer); ok {
		if v := firstMatch(manufacturerPatterns, body); v != "" {
			set(features, "basic.manufacturer", v, confUniversal)
		}
	}
	if body, ok := successBody(responses, at.CmdModel); ok {
		if v := firstMatch(modelPatterns, body); v != "" {
			set(features, "basic.model", v, confUniversal)
		}
	}
	if body, ok := successBody(responses, at.CmdRevision); ok {
		if v := firstMatch(revisionPatterns, body); v != "" {
			set(features, "basic.revision", v, confUniversal)
		}
	}
	if body, ok := successBody(responses, at.CmdIMEI); ok {
		if v := firstMatch(imeiPatterns, body); v != "" {
			conf := confUniversal
			if len(v) != 15 {
				// Serial-number style replies are kept but flagged.
				conf = confSuspect
			}
			set(features, "basic.imei", v, conf)
		}
	}
}

func (u *Universal) parseNetwork(responses map[string]modem.CommandResponse, features map[string]Feature) {
	if body, ok := successBody(responses, at.CmdSignalQuality); ok {
		if m := csqPattern.FindStringSubmatch(body); m != nil {
			rssi, err := strconv.Atoi(m[1])
			// 99 is the 3GPP "not known or not detectable" marker.
			if err == nil && rssi != 99 {
				set(features, "network.signal_rssi", rssi, confUniversal)
				set(features, "network.signal_dbm", -113+2*rssi, confUniversal)
			}
		}
	}
	if body, ok := successBody(responses, at.CmdOperator); ok {
		if m := copsPattern.FindStringSubmatch(body); m != nil && m[1] != "" {
			set(features, "network.operator", m[1], confUniversal)
		}
	}
	if body, ok := successBody(responses, at.CmdRegistration); ok {
		if m := cregPattern.FindStringSubmatch(body); m != nil {
			if stat, err := strconv.Atoi(m[1]); err == nil {
				if state, known := registrationStates[stat]; known {
					set(features, "network.registration", state, confUniversal)
				}
			}
		}
	}

	// Band numbers can surface in several query replies; collect them
	// from whichever are present. Inferred, not standard-mandated.
	var bands []int
	for _, cmd := range []string{"AT+QNWINFO", at.CmdOperator, "AT+CGDCONT?"} {
		body, ok := successBody(responses, cmd)
		if !ok {
			continue
		}
		for _, re := range bandPatterns {
			for _, m := range re.FindAllStringSubmatch(body, -1) {
				if band, err := strconv.Atoi(m[1]); err == nil && band >= 1 && band <= 300 {
					bands = append(bands, band)
				}
			}
		}
	}
	if len(bands) > 0 {
		set(features, "network.lte_bands", dedupeSorted(bands), confInferred)
	}
}

func (u *Universal) parseVoice(responses map[string]modem.CommandResponse, features map[string]Feature) {
	if body, ok := successBody(responses, "AT+CIREG?"); ok {
		if ciregPattern.MatchString(body) {
			set(features, "voice.volte_supported", true, confInferred)
		}
	}
}

func (u *Universal) parseGNSS(responses map[string]modem.CommandResponse, features map[string]Feature) {
	for _, cmd := range []string{"AT+CGNSPWR?", "AT+QGPS?"} {
		body, ok := successBody(responses, cmd)
		if !ok {
			continue
		}
		for _, re := range gnssPatterns {
			if re.MatchString(body) {
				set(features, "gnss.supported", true, confInferred)
				return
			}
		}
	}
}

func (u *Universal) parsePower(responses map[string]modem.CommandResponse, features map[string]Feature) {
	if body, ok := successBody(responses, at.CmdPSM); ok {
		if m := psmPattern.FindStringSubmatch(body); m != nil {
			set(features, "power.psm_supported", m[1] == "1", confUniversal)
		}
	}
}

func (u *Universal) parseSIM(responses map[string]modem.CommandResponse, features map[string]Feature) {
	if resp, ok := responses[at.CmdSimStatus]; ok && resp.Successful() {
		body := resp.Body()
		switch {
		case simReadyPattern.MatchString(body):
			set(features, "sim.status", "ready", confUniversal)
		case simPinPattern.MatchString(body):
			set(features, "sim.status", "pin_required", confUniversal)
		case simAbsentPattern.MatchString(body):
			set(features, "sim.status", "not_inserted", confUniversal)
		}
	}

	for _, cmd := range []string{at.CmdICCID, "AT+QCCID"} {
		body, ok := successBody(responses, cmd)
		if !ok {
			continue
		}
		if v := firstMatch(iccidPatterns, body); v != "" {
			set(features, "sim.iccid", v, confUniversal)
			break
		}
	}

	if body, ok := successBody(responses, at.CmdIMSI); ok {
		if m := imsiPattern.FindStringSubmatch(body); m != nil {
			set(features, "sim.imsi", m[1], confUniversal)
		}
	}
}

func successBody(responses map[string]modem.CommandResponse, cmd string) (string, bool) {
	resp, ok := responses[cmd]
	if !ok || !resp.Successful() {
		return "", false
	}
	body := resp.Body()
	return body, body != ""
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func set(features map[string]Feature, path string, value any, confidence float64) {
	features[path] = Feature{Value: value, Confidence: confidence, Source: SourceUniversal}
}

func dedupeSorted(values []int) []int {
	sort.Ints(values)
	return slices.Compact(values)
}
