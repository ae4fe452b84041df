package plugin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoVendor is returned when the plugin metadata names no vendor.
	ErrNoVendor = errors.New("plugin metadata is missing a vendor")

	// ErrNoModel is returned when the plugin metadata names no model.
	ErrNoModel = errors.New("plugin metadata is missing a model")

	// ErrNoCommands is returned when the plugin declares no commands at
	// all.
	ErrNoCommands = errors.New("plugin declares no commands")
)

// Load decodes and validates a plugin document.
func Load(r io.Reader) (*Plugin, error) {
	var p Plugin
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plugin: %w", err)
	}

	// Category and parser names live as map keys in the document;
	// copy them into the definitions so consumers don't need the maps.
	for category, defs := range p.Commands {
		for i := range defs {
			defs[i].Category = category
		}
		p.Commands[category] = defs
	}
	for name, def := range p.Parsers {
		def.Name = name
		p.Parsers[name] = def
	}

	if err := validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads and validates a plugin document from disk.
func LoadFile(path string) (*Plugin, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %q: %w", path, err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", path, err)
	}
	return p, nil
}

func validate(p *Plugin) error {
	if p.Metadata.Vendor == "" {
		return ErrNoVendor
	}
	if p.Metadata.Model == "" {
		return ErrNoModel
	}

	total := 0
	for category, defs := range p.Commands {
		for _, def := range defs {
			if def.Cmd == "" {
				return fmt.Errorf("category %q contains a command with no cmd string", category)
			}
			if def.Parser != "" {
				if _, ok := p.Parsers[def.Parser]; !ok {
					return fmt.Errorf("command %q references undefined parser %q", def.Cmd, def.Parser)
				}
			}
			total++
		}
	}
	if total == 0 {
		return ErrNoCommands
	}

	for name, def := range p.Parsers {
		switch def.Kind {
		case KindPattern:
			if def.Pattern == "" {
				return fmt.Errorf("parser %q has kind pattern but no pattern", name)
			}
			re, err := regexp.Compile(def.Pattern)
			if err != nil {
				return fmt.Errorf("parser %q pattern does not compile: %w", name, err)
			}
			declared := make(map[string]bool)
			for _, groupName := range re.SubexpNames() {
				declared[groupName] = true
			}
			for groupName, path := range def.Groups {
				if !declared[groupName] {
					return fmt.Errorf("parser %q maps group %q which the pattern does not capture", name, groupName)
				}
				if path == "" {
					return fmt.Errorf("parser %q maps group %q to an empty feature path", name, groupName)
				}
			}
		case KindCustom:
			// Resolution of the extractor happens at dispatch time;
			// an unregistered name degrades to a recorded miss there.
		default:
			return fmt.Errorf("parser %q has unknown kind %q", name, def.Kind)
		}
	}

	return nil
}
