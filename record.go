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
	"reflect"
	"unicode"
)

// NotARecordReason is the diagnostic kept when a struct fails record
// qualification and falls back to the OTHER category.
type NotARecordReason string

// XMLFormat selects how a record property is rendered in XML output.
type XMLFormat uint8

const (
	// XMLElement renders the property as a child element. Collection-typed
	// properties repeat the property name per element, with no wrapper.
	XMLElement XMLFormat = iota
	// XMLAttr renders the property as an attribute on the record element.
	XMLAttr
	// XMLWrapped renders collection-typed properties inside a wrapper
	// element named after the property.
	XMLWrapped
	// XMLText renders the property as the record element's character
	// content. At most one property per record may use XMLText or XMLMixed.
	XMLText
	// XMLMixed renders child values inline without whitespace, for
	// mixed-content documents.
	XMLMixed
)

// ============================================================================
// Record configuration
// ============================================================================

// PropertyConfig adjusts a single record property. The zero value leaves the
// structural defaults in place.
type PropertyConfig struct {
	// Name replaces the conventional wire name.
	Name string
	// Format selects the XML rendering of the property.
	Format XMLFormat
	// ChildName names the per-element children of a collection property.
	ChildName string
	// Namespace applies to this property ahead of any type-level namespace.
	Namespace *Namespace
	// URI marks the property value as a resolvable link.
	URI bool
	// Ignore hides the property entirely.
	Ignore bool
	// ReadOnly marks the property as emitted but never parsed back.
	ReadOnly bool
	// WriteOnly marks the property as parse-only; it is never emitted.
	WriteOnly bool
	// PreserveWhitespace keeps text content verbatim instead of trimming.
	PreserveWhitespace bool
}

// RecordConfig adjusts record introspection for one struct type. Fields and
// the Properties map are keyed by Go field names, not wire names.
type RecordConfig struct {
	// Order restricts emission to the named fields, in the given order.
	// Naming an unknown field faults the type.
	Order []string
	// TypeTag is the discriminator value emitted when the runtime type
	// differs from the declared type.
	TypeTag string
	// Void marks the record as always rendering a childless element.
	Void bool
	// ParentProperty names the back-reference field pointing at the
	// enclosing value. It is excluded from emission.
	ParentProperty string
	// NameProperty names the field holding the value's own key in its
	// parent. It is excluded from emission.
	NameProperty string
	// AllowEmpty qualifies the type as a record even with no properties.
	AllowEmpty bool
	// Properties adjusts individual fields.
	Properties map[string]PropertyConfig
}

// ============================================================================
// Record metadata
// ============================================================================

// PropertyMeta describes one emitted property of a record type.
type PropertyMeta struct {
	// Name is the wire name, after rename precedence: PropertyConfig.Name,
	// then the field namer convention, then the raw Go field name.
	Name string
	// FieldName is the Go field name.
	FieldName string
	// Index is the reflect field index path, following promotions.
	Index []int
	// Type is the declared field type.
	Type reflect.Type
	// Meta is the classification of the declared type.
	Meta *TypeMeta

	CanRead  bool
	CanWrite bool

	Format             XMLFormat
	ChildName          string
	Namespace          *Namespace
	URI                bool
	PreserveWhitespace bool
}

// value resolves the property on rec. The returned value is invalid when an
// embedding pointer on the promotion path is nil.
func (p *PropertyMeta) value(rec reflect.Value) reflect.Value {
	v, err := rec.FieldByIndexErr(p.Index)
	if err != nil {
		return reflect.Value{}
	}
	return v
}

// RecordMeta is the introspected property layout of a record type.
// Properties holds every emitted property in declaration order, or in
// RecordConfig.Order when one was given.
type RecordMeta struct {
	Type       reflect.Type
	Properties []*PropertyMeta
	// TypeTag is the discriminator value for the type, "" when unset.
	TypeTag string
	// Void records emit childless elements.
	Void bool
	// ParentField and NameField are the back-reference fields excluded
	// from emission.
	ParentField string
	NameField   string

	byName   map[string]*PropertyMeta
	attrs    []*PropertyMeta
	elements []*PropertyMeta
	content  *PropertyMeta
}

// Property returns the property with the given wire name, nil if absent.
func (rm *RecordMeta) Property(name string) *PropertyMeta {
	return rm.byName[name]
}

// ============================================================================
// Introspection
// ============================================================================

// introspectLocked builds the record layout for m, or records why the type
// does not qualify. Panics out of reflection are captured as a fault that
// surfaces when a session reaches a value of the type.
func (r *typeResolver) introspectLocked(m *TypeMeta) {
	defer func() {
		if p := recover(); p != nil {
			m.record = nil
			m.fault = fmt.Errorf("%w: %s: %v", ErrIntrospection, m.Type, p)
		}
	}()

	t := m.Type
	cfg := r.records[t]
	rec := &RecordMeta{
		Type:        t,
		TypeTag:     cfg.TypeTag,
		Void:        cfg.Void,
		ParentField: cfg.ParentProperty,
		NameField:   cfg.NameProperty,
		byName:      map[string]*PropertyMeta{},
	}

	namer := r.loom.namer
	for _, f := range reflect.VisibleFields(t) {
		if f.PkgPath != "" {
			continue // unexported
		}
		if f.Anonymous && (f.Type.Kind() == reflect.Struct ||
			(f.Type.Kind() == reflect.Ptr && f.Type.Elem().Kind() == reflect.Struct)) {
			continue // container of promoted fields, not a property itself
		}
		if f.Name == cfg.ParentProperty || f.Name == cfg.NameProperty {
			continue
		}
		pcfg := cfg.Properties[f.Name]
		if pcfg.Ignore {
			continue
		}
		name := pcfg.Name
		if name == "" && namer != nil {
			name = namer(f.Name)
		}
		if name == "" {
			name = f.Name
		}
		if rec.byName[name] != nil {
			m.record = nil
			m.fault = fmt.Errorf("%w: property %q appears twice in %s", ErrNameConflict, name, t)
			return
		}
		pm := &PropertyMeta{
			Name:               name,
			FieldName:          f.Name,
			Index:              f.Index,
			Type:               f.Type,
			Meta:               r.typeMetaLocked(f.Type),
			CanRead:            !pcfg.WriteOnly,
			CanWrite:           !pcfg.ReadOnly,
			Format:             pcfg.Format,
			ChildName:          pcfg.ChildName,
			Namespace:          pcfg.Namespace,
			URI:                pcfg.URI,
			PreserveWhitespace: pcfg.PreserveWhitespace,
		}
		rec.byName[name] = pm
		rec.Properties = append(rec.Properties, pm)
	}

	if len(cfg.Order) > 0 {
		byField := make(map[string]*PropertyMeta, len(rec.Properties))
		for _, p := range rec.Properties {
			byField[p.FieldName] = p
		}
		ordered := make([]*PropertyMeta, 0, len(cfg.Order))
		for _, fn := range cfg.Order {
			p := byField[fn]
			if p == nil {
				m.record = nil
				m.fault = fmt.Errorf("%w: order names unknown field %q on %s", ErrIntrospection, fn, t)
				return
			}
			ordered = append(ordered, p)
		}
		rec.Properties = ordered
	}

	if len(rec.Properties) == 0 && !cfg.AllowEmpty && !cfg.Void {
		m.record = nil
		m.Category = OTHER
		m.recordErr = NotARecordReason(fmt.Sprintf("struct %s has no visible properties", t))
		return
	}

	for _, p := range rec.Properties {
		switch p.Format {
		case XMLAttr:
			rec.attrs = append(rec.attrs, p)
		case XMLText, XMLMixed:
			if rec.content != nil {
				m.record = nil
				m.fault = fmt.Errorf("%w: %s declares more than one content property", ErrIntrospection, t)
				return
			}
			rec.content = p
		default:
			rec.elements = append(rec.elements, p)
		}
	}
	if rec.content != nil && len(rec.elements) > 0 {
		m.record = nil
		m.fault = fmt.Errorf("%w: %s mixes content property %q with element properties", ErrIntrospection, t, rec.content.Name)
		return
	}

	m.record = rec
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}
