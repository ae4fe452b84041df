package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/veenone/modem-inspector/feature"
	"github.com/veenone/modem-inspector/modem"
	"github.com/veenone/modem-inspector/plugin"
	"github.com/veenone/modem-inspector/report"
)

func testHistory() []modem.CommandResponse {
	return []modem.CommandResponse{
		{Command: "AT+CGMI", Status: modem.StatusSuccess, Raw: "Quectel\nOK", ErrorCode: modem.NoErrorCode},
		{Command: "AT+CIMI", Status: modem.StatusCMEError, Raw: "+CME ERROR: 13", ErrorCode: 13},
		{Command: "AT+CSQ", Status: modem.StatusTimeout, Raw: "", ErrorCode: modem.NoErrorCode, Retries: 3},
		{Command: "AT+CGSN", Status: modem.StatusSuccess, Raw: "861234567890123\nOK", ErrorCode: modem.NoErrorCode, Retries: 1},
	}
}

func testFeatureSet() *feature.FeatureSet {
	x := feature.NewExtractor(nil)
	return x.Extract(map[string]modem.CommandResponse{
		"AT+CGMI": {Command: "AT+CGMI", Status: modem.StatusSuccess, Raw: "Quectel\nOK", ErrorCode: modem.NoErrorCode},
	}, nil)
}

func TestNew(t *testing.T) {
	doc := `
metadata:
  vendor: Quectel
  model: EC25
  version: "1.2"
commands:
  basic:
    - cmd: AT+CGMI
`
	p, err := plugin.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("test plugin does not load: %v", err)
	}

	r := report.New(p, testHistory(), testFeatureSet(), 0.8)

	if r.SessionID == "" {
		t.Error("expected a session id")
	}
	if r.GeneratedAt.IsZero() {
		t.Error("expected a generation timestamp")
	}
	if r.Vendor != "Quectel" || r.Model != "EC25" || r.PluginVersion != "1.2" {
		t.Errorf("unexpected plugin identity: %s %s %s", r.Vendor, r.Model, r.PluginVersion)
	}

	if r.Summary.Commands != 4 {
		t.Errorf("commands = %d, want 4", r.Summary.Commands)
	}
	if r.Summary.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", r.Summary.Succeeded)
	}
	if r.Summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", r.Summary.Failed)
	}
	if r.Summary.TimedOut != 1 {
		t.Errorf("timed_out = %d, want 1", r.Summary.TimedOut)
	}
	if r.Summary.Retries != 4 {
		t.Errorf("retries = %d, want 4", r.Summary.Retries)
	}

	if _, ok := r.HighConfidence["basic.manufacturer"]; !ok {
		t.Error("expected basic.manufacturer above the 0.8 threshold")
	}
	if r.Threshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", r.Threshold)
	}

	// Each report gets its own session.
	other := report.New(p, nil, testFeatureSet(), 0.8)
	if other.SessionID == r.SessionID {
		t.Error("expected a fresh session id per report")
	}
}

func TestNewWithoutPlugin(t *testing.T) {
	r := report.New(nil, nil, testFeatureSet(), 0.8)
	if r.Vendor != "" || r.Model != "" {
		t.Errorf("expected empty identity without a plugin, got: %s %s", r.Vendor, r.Model)
	}
	if r.Summary.Commands != 0 {
		t.Errorf("commands = %d, want 0", r.Summary.Commands)
	}
}

func TestWriteJSON(t *testing.T) {
	r := report.New(nil, testHistory(), testFeatureSet(), 0.8)

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	for _, key := range []string{"session_id", "generated_at", "summary", "history", "features", "high_confidence"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in report JSON", key)
		}
	}

	summary, ok := decoded["summary"].(map[string]any)
	if !ok {
		t.Fatal("expected summary object")
	}
	if summary["commands"] != float64(4) {
		t.Errorf("summary.commands = %v, want 4", summary["commands"])
	}
}
