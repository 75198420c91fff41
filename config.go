// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package loom

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tuning knobs shared by every serializer a Loom drives.
// A Config is fixed once the Loom is built; sessions read it, never write it.
type Config struct {
	// MaxDepth limits how deep the traversal may nest before it fails
	// with ErrMaxDepthExceeded.
	MaxDepth int

	// SuppressCycles replaces repeated visits of the same value with a
	// null placeholder instead of failing with ErrRecursion.
	SuppressCycles bool

	// Debug enriches recursion errors with a dump of the offending value.
	Debug bool

	// KeepNullProperties renders record properties whose value is null
	// instead of dropping them.
	KeepNullProperties bool

	// TrimEmptyCollections drops empty collection and array properties.
	TrimEmptyCollections bool

	// TrimEmptyMaps drops empty map properties.
	TrimEmptyMaps bool

	// TrimStrings trims whitespace from string values before rendering.
	TrimStrings bool

	// SortMaps renders map entries in key order.
	SortMaps bool

	// SortCollections renders collections of scalars in value order.
	SortCollections bool

	// UseWhitespace adds newlines and indentation to the output.
	UseWhitespace bool

	// MaxIndent caps the indentation depth when UseWhitespace is set.
	MaxIndent int

	// QuoteChar is the character used to quote attribute values.
	QuoteChar byte

	// EnableNamespaces turns on namespace handling for XML output.
	EnableNamespaces bool

	// AutoDetectNamespaces scans the object tree for namespaces before
	// the root element is written, so that every namespace in use can be
	// declared up front.
	AutoDetectNamespaces bool

	// AddNamespaceURIsToRoot declares the namespaces in use as xmlns
	// attributes on the root element.
	AddNamespaceURIsToRoot bool

	// AddJSONTags emits the type and name hints that let a parser
	// rebuild the original object model from XML.
	AddJSONTags bool

	// TypeTagName is the attribute or member name used for type
	// discriminators.
	TypeTagName string

	// NameTagName is the attribute name used to remember an element name
	// that was replaced by a dictionary name.
	NameTagName string

	// DefaultNamespace overrides the namespace used for the type and
	// name tag attributes.
	DefaultNamespace *Namespace

	// Namespaces lists namespaces to declare on the root element even
	// when autodetection does not find them.
	Namespaces []Namespace

	// TextNodeDelimiter separates consecutive text nodes in mixed
	// content, where the XML would otherwise fuse them into one.
	TextNodeDelimiter string
}

func defaultConfig() Config {
	return Config{
		MaxDepth:             100,
		MaxIndent:            100,
		QuoteChar:            '"',
		AutoDetectNamespaces: true,
		AddJSONTags:          true,
		TypeTagName:          "_type",
		NameTagName:          "_name",
	}
}

// Profile is a named bundle of Config overrides, loaded from YAML. Fields
// left out of the YAML keep whatever the Config already has.
type Profile struct {
	MaxDepth               *int               `yaml:"maxDepth"`
	SuppressCycles         *bool              `yaml:"suppressCycles"`
	Debug                  *bool              `yaml:"debug"`
	KeepNullProperties     *bool              `yaml:"keepNullProperties"`
	TrimEmptyCollections   *bool              `yaml:"trimEmptyCollections"`
	TrimEmptyMaps          *bool              `yaml:"trimEmptyMaps"`
	TrimStrings            *bool              `yaml:"trimStrings"`
	SortMaps               *bool              `yaml:"sortMaps"`
	SortCollections        *bool              `yaml:"sortCollections"`
	UseWhitespace          *bool              `yaml:"useWhitespace"`
	MaxIndent              *int               `yaml:"maxIndent"`
	Quote                  string             `yaml:"quoteChar"`
	EnableNamespaces       *bool              `yaml:"enableNamespaces"`
	AutoDetectNamespaces   *bool              `yaml:"autoDetectNamespaces"`
	AddNamespaceURIsToRoot *bool              `yaml:"addNamespaceUrisToRoot"`
	AddJSONTags            *bool              `yaml:"addJsonTags"`
	TypeTagName            string             `yaml:"typeTagName"`
	NameTagName            string             `yaml:"nameTagName"`
	DefaultNamespace       *ProfileNamespace  `yaml:"defaultNamespace"`
	Namespaces             []ProfileNamespace `yaml:"namespaces"`
	TextNodeDelimiter      *string            `yaml:"textNodeDelimiter"`
}

// ProfileNamespace is the YAML shape of a Namespace.
type ProfileNamespace struct {
	Name string `yaml:"name"`
	URI  string `yaml:"uri"`
}

func (n ProfileNamespace) namespace() Namespace {
	return Namespace{Name: n.Name, URI: n.URI}
}

func (p Profile) apply(cfg *Config) {
	if p.MaxDepth != nil {
		cfg.MaxDepth = *p.MaxDepth
	}
	if p.SuppressCycles != nil {
		cfg.SuppressCycles = *p.SuppressCycles
	}
	if p.Debug != nil {
		cfg.Debug = *p.Debug
	}
	if p.KeepNullProperties != nil {
		cfg.KeepNullProperties = *p.KeepNullProperties
	}
	if p.TrimEmptyCollections != nil {
		cfg.TrimEmptyCollections = *p.TrimEmptyCollections
	}
	if p.TrimEmptyMaps != nil {
		cfg.TrimEmptyMaps = *p.TrimEmptyMaps
	}
	if p.TrimStrings != nil {
		cfg.TrimStrings = *p.TrimStrings
	}
	if p.SortMaps != nil {
		cfg.SortMaps = *p.SortMaps
	}
	if p.SortCollections != nil {
		cfg.SortCollections = *p.SortCollections
	}
	if p.UseWhitespace != nil {
		cfg.UseWhitespace = *p.UseWhitespace
	}
	if p.MaxIndent != nil {
		cfg.MaxIndent = *p.MaxIndent
	}
	if p.Quote != "" {
		cfg.QuoteChar = p.Quote[0]
	}
	if p.EnableNamespaces != nil {
		cfg.EnableNamespaces = *p.EnableNamespaces
	}
	if p.AutoDetectNamespaces != nil {
		cfg.AutoDetectNamespaces = *p.AutoDetectNamespaces
	}
	if p.AddNamespaceURIsToRoot != nil {
		cfg.AddNamespaceURIsToRoot = *p.AddNamespaceURIsToRoot
	}
	if p.AddJSONTags != nil {
		cfg.AddJSONTags = *p.AddJSONTags
	}
	if p.TypeTagName != "" {
		cfg.TypeTagName = p.TypeTagName
	}
	if p.NameTagName != "" {
		cfg.NameTagName = p.NameTagName
	}
	if p.DefaultNamespace != nil {
		ns := p.DefaultNamespace.namespace()
		cfg.DefaultNamespace = &ns
	}
	if len(p.Namespaces) > 0 {
		cfg.Namespaces = cfg.Namespaces[:0]
		for _, n := range p.Namespaces {
			cfg.Namespaces = append(cfg.Namespaces, n.namespace())
		}
	}
	if p.TextNodeDelimiter != nil {
		cfg.TextNodeDelimiter = *p.TextNodeDelimiter
	}
}

// Profiles maps profile names to their Config overrides.
type Profiles map[string]Profile

// LoadProfiles loads and parses a YAML profiles file from the given path.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}
	return ParseProfiles(data)
}

// ParseProfiles parses YAML data into a Profiles map.
func ParseProfiles(data []byte) (Profiles, error) {
	var ps Profiles
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to parse profiles YAML: %w", err)
	}
	return ps, nil
}

// Options returns the options that apply the named profile, or
// ErrUnknownProfile when the name is not in the map.
func (ps Profiles) Options(name string) ([]Option, error) {
	p, ok := ps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return []Option{WithProfile(p)}, nil
}
