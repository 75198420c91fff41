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
	"io"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"
)

var (
	anyType    = reflect.TypeOf((*interface{})(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
	urlType    = reflect.TypeOf(url.URL{})
	stringType = reflect.TypeOf("")
	readerType = reflect.TypeOf((*io.Reader)(nil)).Elem()
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// ============================================================================
// Type configuration
// ============================================================================

// TypeConfig overrides classification results for a single type.
type TypeConfig struct {
	// Category forces the classification category. UNKNOWN leaves the
	// structural classification in place.
	Category Category

	// Name is the element name emitted for values of the type when no
	// property or key name applies. Defaults to the Go type name.
	Name string

	// Namespace applies to elements of this type unless a property-level
	// namespace takes priority.
	Namespace *Namespace

	// ChildName names the child elements of collection values of this type.
	ChildName string
}

// ============================================================================
// Type metadata
// ============================================================================

// TypeMeta is the classification result for a single runtime type. Metas are
// built once per type, cached, and shared between sessions; they are immutable
// after construction. Re-registering a swap, enum or config drops the cache
// so later lookups rebuild against the new registrations.
type TypeMeta struct {
	Type     reflect.Type
	Category Category

	// ElemMeta is the element meta for OPTIONAL, COLLECTION and ARRAY types.
	ElemMeta *TypeMeta
	// KeyMeta and ValueMeta are set for MAP types.
	KeyMeta   *TypeMeta
	ValueMeta *TypeMeta

	// Name is the element name for values of the type, TypeConfig.Name when
	// set and the Go type name otherwise. Empty for unnamed types.
	Name string
	// Namespace is the type-level namespace, nil when unset.
	Namespace *Namespace
	// ChildName names child elements of collection values, "" when unset.
	ChildName string

	record    *RecordMeta
	recordErr NotARecordReason
	fault     error
	swaps     []*Swap
	enum      *enumMeta
	optional  *optionalLayout
}

// Record returns the property layout for RECORD types, nil otherwise. A
// RECORD meta with a nil layout carries a Fault.
func (m *TypeMeta) Record() *RecordMeta { return m.record }

// NotARecordReason explains why a struct type was classified OTHER instead
// of RECORD. Empty for every other meta.
func (m *TypeMeta) NotARecordReason() NotARecordReason { return m.recordErr }

// Fault returns the error captured while building this meta, nil if the
// build was clean. Classification itself never fails; the fault surfaces
// when a session reaches a value of the faulted type.
func (m *TypeMeta) Fault() error { return m.fault }

// nullable reports whether values of the type can represent null.
func (m *TypeMeta) nullable() bool {
	return m.Category == OPTIONAL || isNilableKind(m.Type.Kind())
}

// ============================================================================
// Enums
// ============================================================================

// enumMeta maps ordinals of a registered enum type to their names.
type enumMeta struct {
	names map[int64]string
}

func newEnumMeta(t reflect.Type, names []string) (*enumMeta, error) {
	if !isIntegerKind(t.Kind()) {
		return nil, fmt.Errorf("loom: enum type %s must have an integer kind, got %s", t, t.Kind())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("loom: enum type %s registered without names", t)
	}
	e := &enumMeta{names: make(map[int64]string, len(names))}
	for i, n := range names {
		e.names[int64(i)] = n
	}
	return e, nil
}

// name returns the registered name for the value's ordinal.
func (e *enumMeta) name(v reflect.Value) (string, bool) {
	var ordinal int64
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ordinal = v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ordinal = int64(v.Uint())
	default:
		return "", false
	}
	n, ok := e.names[ordinal]
	return n, ok
}

// ============================================================================
// Optional layout
// ============================================================================

const optionalPkgPath = "github.com/loomcodec/loom/optional"

// optionalLayout locates the Value and Has fields of an optional.Optional
// instantiation for reflective access.
type optionalLayout struct {
	valueType  reflect.Type
	valueIndex int
	hasIndex   int
}

func getOptionalLayout(t reflect.Type) (*optionalLayout, bool) {
	if t == nil || t.Kind() != reflect.Struct || t.PkgPath() != optionalPkgPath {
		return nil, false
	}
	name := t.Name()
	if name != "Optional" && !strings.HasPrefix(name, "Optional[") {
		return nil, false
	}
	valueField, ok := t.FieldByName("Value")
	if !ok {
		return nil, false
	}
	hasField, ok := t.FieldByName("Has")
	if !ok || hasField.Type.Kind() != reflect.Bool {
		return nil, false
	}
	return &optionalLayout{
		valueType:  valueField.Type,
		valueIndex: valueField.Index[0],
		hasIndex:   hasField.Index[0],
	}, true
}

// ============================================================================
// Resolver
// ============================================================================

// typeResolver owns the type meta cache and every per-type registration.
type typeResolver struct {
	loom *Loom

	mu      sync.RWMutex
	cache   map[reflect.Type]*TypeMeta
	configs map[reflect.Type]TypeConfig
	records map[reflect.Type]RecordConfig
	enums   map[reflect.Type]*enumMeta
	swaps   []*Swap
}

func newTypeResolver(l *Loom) *typeResolver {
	return &typeResolver{
		loom:    l,
		cache:   map[reflect.Type]*TypeMeta{},
		configs: map[reflect.Type]TypeConfig{},
		records: map[reflect.Type]RecordConfig{},
		enums:   map[reflect.Type]*enumMeta{},
	}
}

// typeMeta returns the meta for t, building and caching it on first use.
// Every call with the same type returns the same pointer until a
// registration drops the cache.
func (r *typeResolver) typeMeta(t reflect.Type) *TypeMeta {
	r.mu.RLock()
	m := r.cache[t]
	r.mu.RUnlock()
	if m != nil {
		return m
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typeMetaLocked(t)
}

// typeMetaLocked inserts a placeholder into the cache before populating it,
// so self-referential types resolve to the meta under construction instead
// of recursing forever.
func (r *typeResolver) typeMetaLocked(t reflect.Type) *TypeMeta {
	if m := r.cache[t]; m != nil {
		return m
	}
	m := &TypeMeta{Type: t}
	r.cache[t] = m
	r.populateLocked(m)
	return m
}

func (r *typeResolver) populateLocked(m *TypeMeta) {
	t := m.Type
	cfg := r.configs[t]
	m.Name = cfg.Name
	if m.Name == "" {
		m.Name = t.Name()
	}
	m.Namespace = cfg.Namespace
	m.ChildName = cfg.ChildName
	for _, sw := range r.swaps {
		if sw.applicable(t) {
			m.swaps = append(m.swaps, sw)
		}
	}

	if cfg.Category != UNKNOWN {
		m.Category = cfg.Category
		r.fillChildrenLocked(m)
		if m.Category == RECORD {
			if t.Kind() == reflect.Struct {
				r.introspectLocked(m)
			} else {
				m.fault = fmt.Errorf("%w: %s configured as record but is not a struct", ErrIntrospection, t)
			}
		}
		return
	}

	k := t.Kind()
	switch {
	case t == timeType:
		m.Category = DATE
	case t == urlType:
		m.Category = URI
	case r.enums[t] != nil:
		m.enum = r.enums[t]
		m.Category = ENUM
	case k == reflect.Interface:
		m.Category = OBJECT
	case t == stringType:
		m.Category = STRING
	case k == reflect.String:
		m.Category = CHAR_SEQUENCE
	case isIntegerKind(k):
		m.Category = NUMBER
	case k == reflect.Float32 || k == reflect.Float64:
		m.Category = DECIMAL
	case k == reflect.Bool:
		m.Category = BOOLEAN
	case t.Implements(readerType):
		// Checked ahead of the pointer rule so *bytes.Buffer and friends
		// classify by what they stream, not by their indirection.
		m.Category = READER
	case k == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		m.Category = INPUT_STREAM
	case k == reflect.Ptr:
		m.Category = OPTIONAL
		m.ElemMeta = r.typeMetaLocked(t.Elem())
	case k == reflect.Struct:
		if layout, ok := getOptionalLayout(t); ok {
			m.Category = OPTIONAL
			m.optional = layout
			m.ElemMeta = r.typeMetaLocked(layout.valueType)
		} else {
			m.Category = RECORD
			r.introspectLocked(m)
		}
	case k == reflect.Slice:
		m.Category = COLLECTION
		m.ElemMeta = r.typeMetaLocked(t.Elem())
	case k == reflect.Map:
		m.Category = MAP
		m.KeyMeta = r.typeMetaLocked(t.Key())
		m.ValueMeta = r.typeMetaLocked(t.Elem())
	case k == reflect.Array:
		m.Category = ARRAY
		m.ElemMeta = r.typeMetaLocked(t.Elem())
	case k == reflect.Chan, k == reflect.Func, k == reflect.UnsafePointer:
		m.Category = VOID
	default:
		m.Category = OTHER
	}
}

// fillChildrenLocked resolves container child metas for configs that force a
// category, so overridden types still expose their element shapes.
func (r *typeResolver) fillChildrenLocked(m *TypeMeta) {
	t := m.Type
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array:
		m.ElemMeta = r.typeMetaLocked(t.Elem())
	case reflect.Map:
		m.KeyMeta = r.typeMetaLocked(t.Key())
		m.ValueMeta = r.typeMetaLocked(t.Elem())
	}
}

func (r *typeResolver) setTypeConfig(t reflect.Type, cfg TypeConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[t] = cfg
	r.invalidateLocked()
}

func (r *typeResolver) setRecordConfig(t reflect.Type, cfg RecordConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[t] = cfg
	r.invalidateLocked()
}

func (r *typeResolver) registerEnum(t reflect.Type, names []string) error {
	e, err := newEnumMeta(t, names)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[t] = e
	r.invalidateLocked()
	return nil
}

// registerSwap prepends, so a later registration shadows earlier swaps of
// the same type when their scores tie.
func (r *typeResolver) registerSwap(sw *Swap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swaps = append([]*Swap{sw}, r.swaps...)
	r.invalidateLocked()
}

// invalidateLocked drops every cached meta. Metas stay immutable; a
// registration that changes classification inputs rebuilds from scratch.
func (r *typeResolver) invalidateLocked() {
	r.cache = map[reflect.Type]*TypeMeta{}
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
