package feature

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/veenone/modem-inspector/modem"
	"github.com/veenone/modem-inspector/plugin"
)

// CustomFunc extracts features from a response whose shape is too
// irregular for a single pattern. Implementations return features keyed
// by path; returning an error (or panicking) is degraded to a recorded
// miss by the dispatcher.
type CustomFunc func(resp modem.CommandResponse, def plugin.ParserDefinition) (map[string]Feature, error)

// VendorDispatcher runs the parser definitions a plugin declares.
// Dispatch is chosen per definition by its kind, never by vendor
// identity, so new vendors need only new plugin data.
type VendorDispatcher struct {
	custom map[string]CustomFunc
	logger *slog.Logger
}

func NewVendorDispatcher(logger *slog.Logger) *VendorDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &VendorDispatcher{
		custom: make(map[string]CustomFunc),
		logger: logger,
	}
	d.Register("cell-scan", CellScanExtractor)
	return d
}

// Register installs a custom extractor under the given parser name,
// replacing any previous registration.
func (d *VendorDispatcher) Register(name string, fn CustomFunc) {
	d.custom[name] = fn
}

// Parse runs every parser the plugin declares against the matching
// responses. Each parser runs inside a fault boundary: a panic or error
// is recorded and extraction continues with the remaining parsers.
func (d *VendorDispatcher) Parse(responses map[string]modem.CommandResponse, p *plugin.Plugin) (map[string]Feature, []string) {
	features := make(map[string]Feature)
	var errs []string

	if p == nil || len(p.Parsers) == 0 {
		return features, errs
	}

	for _, def := range d.orderedParsers(p) {
		for _, cmdDef := range p.AllCommands() {
			if cmdDef.Parser != def.Name {
				continue
			}
			resp, ok := responses[cmdDef.Cmd]
			if !ok || !resp.Successful() {
				continue
			}

			extracted, err := d.runParser(def, resp)
			if err != nil {
				msg := fmt.Sprintf("parser %q on %q: %v", def.Name, cmdDef.Cmd, err)
				d.logger.Warn("vendor parser degraded to miss", "parser", def.Name, "command", cmdDef.Cmd, "error", err)
				errs = append(errs, msg)
				continue
			}
			for path, f := range extracted {
				features[path] = f
			}
		}
	}

	return features, errs
}

func (d *VendorDispatcher) orderedParsers(p *plugin.Plugin) []plugin.ParserDefinition {
	names := make([]string, 0, len(p.Parsers))
	for name := range p.Parsers {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]plugin.ParserDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, p.Parsers[name])
	}
	return defs
}

// runParser executes one parser definition inside a recover boundary so
// a misbehaving pattern or extractor cannot abort the batch.
func (d *VendorDispatcher) runParser(def plugin.ParserDefinition, resp modem.CommandResponse) (features map[string]Feature, err error) {
	defer func() {
		if r := recover(); r != nil {
			features = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch def.Kind {
	case plugin.KindPattern:
		return d.runPattern(def, resp)
	case plugin.KindCustom:
		fn, ok := d.custom[def.Name]
		if !ok {
			return nil, fmt.Errorf("no custom extractor registered for %q", def.Name)
		}
		return fn(resp, def)
	default:
		return nil, fmt.Errorf("unknown parser kind %q", def.Kind)
	}
}

func (d *VendorDispatcher) runPattern(def plugin.ParserDefinition, resp modem.CommandResponse) (map[string]Feature, error) {
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}

	m := re.FindStringSubmatch(resp.Body())
	if m == nil {
		// A non-match is data, not a fault.
		return nil, nil
	}

	features := make(map[string]Feature)
	for i, groupName := range re.SubexpNames() {
		if groupName == "" {
			continue
		}
		path, declared := def.Groups[groupName]
		if !declared || m[i] == "" {
			continue
		}
		features[path] = Feature{
			Value:      convertCapture(m[i]),
			Confidence: confVendor,
			Source:     def.Name,
		}
	}
	return features, nil
}

// convertCapture turns numeric captures into numbers so features keep
// their natural type through serialization.
func convertCapture(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// cellScanLine matches one neighbour-cell line of a Quectel-style
// engineering scan, e.g.
//
//	+QENG: "neighbourcell intra","LTE",1300,245,-12,-94,-63
var cellScanLine = regexp.MustCompile(`\+QENG:\s*"([^"]+)","([^"]+)",(-?\d+),(-?\d+),(-?\d+),(-?\d+)`)

// CellScanExtractor parses multi-line engineering cell-scan output into
// the vendor-extension section. Registered under the name "cell-scan".
func CellScanExtractor(resp modem.CommandResponse, def plugin.ParserDefinition) (map[string]Feature, error) {
	var cells []map[string]any
	for _, line := range strings.Split(resp.Body(), "\n") {
		m := cellScanLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		earfcn, _ := strconv.Atoi(m[3])
		pcid, _ := strconv.Atoi(m[4])
		rsrq, _ := strconv.Atoi(m[5])
		rsrp, _ := strconv.Atoi(m[6])
		cells = append(cells, map[string]any{
			"type":   m[1],
			"rat":    m[2],
			"earfcn": earfcn,
			"pcid":   pcid,
			"rsrq":   rsrq,
			"rsrp":   rsrp,
		})
	}
	if len(cells) == 0 {
		return nil, nil
	}
	return map[string]Feature{
		"vendor.cell_scan": {Value: cells, Confidence: confVendor, Source: def.Name},
		"vendor.cell_count": {Value: len(cells), Confidence: confVendor, Source: def.Name},
	}, nil
}
