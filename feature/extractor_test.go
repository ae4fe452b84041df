package feature_test

import (
	"reflect"
	"testing"

	"github.com/veenone/modem-inspector/feature"
)

func TestExtract(t *testing.T) {
	t.Run("Vendor parser outranks the universal table", func(t *testing.T) {
		p := testPlugin(t, `
metadata:
  vendor: Quectel
  model: EC25
commands:
  basic:
    - cmd: AT+CGMM
      parser: model-detail
parsers:
  model-detail:
    kind: pattern
    pattern: '(?P<model>[A-Z0-9\-]+)'
    groups:
      model: basic.model
`)

		x := feature.NewExtractor(discardLogger())
		fs := x.Extract(responseMap(
			ok("AT+CGMM", "EC25-E\n\nOK"),
		), p)

		if fs.Basic.Model.Value != "EC25-E" {
			t.Errorf("model = %v, want EC25-E", fs.Basic.Model.Value)
		}
		if fs.Basic.Model.Confidence != 0.95 {
			t.Errorf("confidence = %v, want 0.95 (vendor wins)", fs.Basic.Model.Confidence)
		}
		if fs.Basic.Model.Source != "model-detail" {
			t.Errorf("source = %q, want model-detail", fs.Basic.Model.Source)
		}
	})

	t.Run("Absent features hold sentinels at confidence zero", func(t *testing.T) {
		x := feature.NewExtractor(discardLogger())
		fs := x.Extract(responseMap(), nil)

		if fs.Basic.Manufacturer.Value != "Unknown" || fs.Basic.Manufacturer.Confidence != 0.0 {
			t.Errorf("manufacturer sentinel = %+v", fs.Basic.Manufacturer)
		}
		if fs.Network.SignalRSSI.Value != nil {
			t.Errorf("rssi sentinel = %v, want nil", fs.Network.SignalRSSI.Value)
		}
		if fs.Voice.VoLTE.Value != false {
			t.Errorf("volte sentinel = %v, want false", fs.Voice.VoLTE.Value)
		}
		if fs.SIM.Status.Value != "unknown" {
			t.Errorf("sim status sentinel = %v, want unknown", fs.SIM.Status.Value)
		}
		if fs.AggregateConfidence != 0.0 {
			t.Errorf("aggregate = %v, want 0 with no features", fs.AggregateConfidence)
		}
	})

	t.Run("Re-running over the same batch is stable", func(t *testing.T) {
		p := testPlugin(t, `
metadata:
  vendor: Quectel
  model: EC25
commands:
  basic:
    - cmd: AT+CGMI
  network:
    - cmd: AT+QNWINFO
      parser: qnwinfo
parsers:
  qnwinfo:
    kind: pattern
    pattern: '\+QNWINFO: "(?P<act>[^"]+)"'
    groups:
      act: network.access_technology
`)

		responses := responseMap(
			ok("AT+CGMI", "Quectel\n\nOK"),
			ok("AT+CSQ", "+CSQ: 20,99\n\nOK"),
			ok("AT+QNWINFO", `+QNWINFO: "FDD LTE","26201","LTE BAND 3",1300`+"\n\nOK"),
		)

		x := feature.NewExtractor(discardLogger())
		first := x.Extract(responses, p)
		second := x.Extract(responses, p)

		if !reflect.DeepEqual(first, second) {
			t.Error("extraction must be deterministic over the same batch")
		}
	})

	t.Run("Parser faults degrade, the rest of the set survives", func(t *testing.T) {
		p := testPlugin(t, `
metadata:
  vendor: Quectel
  model: EC25
commands:
  vendor:
    - cmd: AT+SPECIAL
      parser: special
parsers:
  special:
    kind: custom
`)

		// "special" is never registered, so its dispatch is a recorded
		// miss.
		x := feature.NewExtractor(discardLogger())
		fs := x.Extract(responseMap(
			ok("AT+CGMI", "Quectel\n\nOK"),
			ok("AT+SPECIAL", "data\n\nOK"),
		), p)

		if len(fs.Errors) != 1 {
			t.Fatalf("expected 1 recorded fault, got: %v", fs.Errors)
		}
		if fs.Basic.Manufacturer.Value != "Quectel" {
			t.Errorf("universal extraction must survive a vendor fault, got: %v", fs.Basic.Manufacturer.Value)
		}
	})

	t.Run("Aggregate confidence is the mean of present features", func(t *testing.T) {
		x := feature.NewExtractor(discardLogger())
		fs := x.Extract(responseMap(
			ok("AT+CGMI", "Quectel\n\nOK"),
			ok("AT+CGMM", "EC25\n\nOK"),
		), nil)

		// Two universal features at 0.9 each.
		if fs.AggregateConfidence != 0.9 {
			t.Errorf("aggregate = %v, want 0.9", fs.AggregateConfidence)
		}
	})
}
