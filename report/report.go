// Package report renders the two inspection artifacts, the execution
// history and the extracted feature set, into a JSON document for
// downstream consumers. Key ordering is stable: struct fields serialize
// in declaration order and encoding/json sorts map keys.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/veenone/modem-inspector/feature"
	"github.com/veenone/modem-inspector/modem"
	"github.com/veenone/modem-inspector/plugin"
)

// Summary aggregates the history by terminal status.
type Summary struct {
	Commands  int     `json:"commands"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	TimedOut  int     `json:"timed_out"`
	Retries   int     `json:"retries"`
	Aggregate float64 `json:"aggregate_confidence"`
}

// Report is one complete inspection result.
type Report struct {
	SessionID   string    `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Vendor        string `json:"vendor"`
	Model         string `json:"model"`
	PluginVersion string `json:"plugin_version"`

	Summary  Summary                 `json:"summary"`
	History  []modem.CommandResponse `json:"history"`
	Features map[string]any          `json:"features"`

	// HighConfidence is the filtered view at the configured threshold.
	HighConfidence map[string]feature.Feature `json:"high_confidence"`
	Threshold      float64                    `json:"high_confidence_threshold"`
}

// New assembles a report from the session artifacts. A fresh session ID
// is minted per report.
func New(p *plugin.Plugin, history []modem.CommandResponse, fs *feature.FeatureSet, threshold float64) *Report {
	r := &Report{
		SessionID:      uuid.NewString(),
		GeneratedAt:    time.Now().UTC(),
		History:        history,
		Features:       fs.ToMap(),
		HighConfidence: fs.HighConfidence(threshold),
		Threshold:      threshold,
	}
	if p != nil {
		r.Vendor = p.Metadata.Vendor
		r.Model = p.Metadata.Model
		r.PluginVersion = p.Metadata.Version
	}

	r.Summary.Commands = len(history)
	r.Summary.Aggregate = fs.AggregateConfidence
	for _, resp := range history {
		r.Summary.Retries += resp.Retries
		switch resp.Status {
		case modem.StatusSuccess:
			r.Summary.Succeeded++
		case modem.StatusTimeout:
			r.Summary.TimedOut++
		default:
			r.Summary.Failed++
		}
	}
	return r
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
