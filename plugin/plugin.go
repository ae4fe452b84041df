// Package plugin defines the data-only description of a vendor/model:
// the AT commands to issue and the parsers that understand their
// replies. Plugins are loaded from YAML once, before a session starts,
// and are never mutated; supporting new hardware means writing a new
// plugin document, not new code.
package plugin

import (
	"sort"
	"time"
)

// Kind selects the parser implementation for a ParserDefinition.
type Kind string

const (
	// KindPattern matches the response against a regular expression
	// with named capture groups.
	KindPattern Kind = "pattern"
	// KindCustom dispatches to an extractor registered by name, for
	// output too irregular for a single pattern (multi-line cell
	// scans and the like).
	KindCustom Kind = "custom"
)

// Metadata identifies the plugin.
type Metadata struct {
	Vendor   string `yaml:"vendor"`
	Model    string `yaml:"model"`
	Category string `yaml:"category"`
	Version  string `yaml:"version"`
}

// Connection holds serial defaults specific to this modem.
type Connection struct {
	DefaultBaud int `yaml:"default_baud"`
}

// CommandDefinition is a single AT command with execution metadata.
type CommandDefinition struct {
	// Cmd is the AT command string, e.g. "AT+CGMI".
	Cmd string `yaml:"cmd"`
	// Description is a human-readable summary.
	Description string `yaml:"description"`
	// Category groups related commands ("basic", "network", ...). It
	// is filled from the enclosing command-map key on load.
	Category string `yaml:"-"`
	// TimeoutSec overrides the engine's default timeout, in seconds.
	TimeoutSec int `yaml:"timeout"`
	// Quick marks the command for inclusion in quick-scan mode.
	Quick bool `yaml:"quick"`
	// Parser names the ParserDefinition to apply to the response.
	Parser string `yaml:"parser"`
}

// Timeout returns the per-command timeout override, or zero when the
// engine default applies.
func (c CommandDefinition) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ParserDefinition describes how to turn one response into features.
type ParserDefinition struct {
	// Name identifies the parser; filled from the parser-map key on
	// load. For KindCustom it also selects the registered extractor.
	Name string `yaml:"-"`
	// Kind selects the implementation.
	Kind Kind `yaml:"kind"`
	// Pattern is the regular expression for KindPattern, with named
	// capture groups.
	Pattern string `yaml:"pattern"`
	// Groups maps capture group names to feature paths, e.g.
	// "cat" -> "network.lte_category".
	Groups map[string]string `yaml:"groups"`
}

// Plugin is a complete, immutable vendor/model description.
type Plugin struct {
	Metadata   Metadata                       `yaml:"metadata"`
	Connection Connection                     `yaml:"connection"`
	Commands   map[string][]CommandDefinition `yaml:"commands"`
	Parsers    map[string]ParserDefinition    `yaml:"parsers"`
}

// AllCommands flattens the command map into a stable order: categories
// alphabetically, declaration order within each category.
func (p *Plugin) AllCommands() []CommandDefinition {
	categories := make([]string, 0, len(p.Commands))
	for category := range p.Commands {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var all []CommandDefinition
	for _, category := range categories {
		all = append(all, p.Commands[category]...)
	}
	return all
}

// QuickCommands returns only the commands flagged for quick-scan mode,
// in the same order as AllCommands.
func (p *Plugin) QuickCommands() []CommandDefinition {
	var quick []CommandDefinition
	for _, def := range p.AllCommands() {
		if def.Quick {
			quick = append(quick, def)
		}
	}
	return quick
}

// Parser looks up a parser definition by name.
func (p *Plugin) Parser(name string) (ParserDefinition, bool) {
	def, ok := p.Parsers[name]
	return def, ok
}
