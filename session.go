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
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/loomcodec/loom/logging"
)

// ============================================================================
// Content shapes
// ============================================================================

// contentShape describes what the content of a node turned out to be, which
// decides how its enclosing element closes.
type contentShape uint8

const (
	// csNone means the node was declared childless and nothing was emitted.
	csNone contentShape = iota
	// csEmpty means the node could have had content but produced none.
	csEmpty
	// csMixed means text or inline content was emitted; no whitespace may
	// be added around the closing tag.
	csMixed
	// csElements means child elements were emitted under normal
	// whitespace rules.
	csElements
)

// ============================================================================
// Session
// ============================================================================

// frame is one level of the visitation stack. ptr is the value identity used
// for cycle checks, 0 when the value has no stable identity.
type frame struct {
	name string
	v    reflect.Value
	ptr  uintptr
}

// session is the per-call traversal state shared by every emitter. A session
// lives for exactly one top-level call and is discarded afterwards, so a
// failed session never needs unwinding.
type session struct {
	loom *Loom
	cfg  *Config
	ctx  SwapContext

	stack []frame
	// indent tracks emission depth alongside the stack. Collapsed
	// collection properties decrement it around their children, so it is
	// kept separate from len(stack).
	indent   int
	warnings []string
}

func (l *Loom) newSession(ctx SwapContext) *session {
	return &session{loom: l, cfg: &l.cfg, ctx: ctx}
}

func (s *session) meta(t reflect.Type) *TypeMeta {
	return s.loom.resolver.typeMeta(t)
}

// push records a stack frame for v. It reports recursion when v's identity
// is already on the stack: fatal normally, or suppressed=true under cycle
// suppression, in which case the caller emits a null placeholder and must
// not pop.
func (s *session) push(name string, v reflect.Value) (suppressed bool, err error) {
	if len(s.stack) >= s.cfg.MaxDepth {
		return false, s.fail(fmt.Errorf("%w: depth %d", ErrMaxDepthExceeded, s.cfg.MaxDepth))
	}
	ptr := valueIdentity(v)
	if ptr != 0 {
		for i := range s.stack {
			if s.stack[i].ptr == ptr {
				if s.cfg.SuppressCycles && !s.cfg.Debug {
					s.warnf("cycle at %q suppressed", s.pathWith(name))
					return true, nil
				}
				return false, s.fail(s.recursionError(name, v))
			}
		}
	}
	s.stack = append(s.stack, frame{name: name, v: v, ptr: ptr})
	s.indent++
	return false, nil
}

func (s *session) pop() {
	s.stack = s.stack[:len(s.stack)-1]
	s.indent--
}

// valueIdentity returns a stable address for values that can sit on a cycle.
// Structs and scalars cannot close a cycle without a pointer, map or slice
// on the path, so only those kinds are tracked.
func valueIdentity(v reflect.Value) uintptr {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			return valueIdentity(v.Elem())
		}
	case reflect.Ptr, reflect.Map:
		if !v.IsNil() {
			return v.Pointer()
		}
	case reflect.Slice:
		if !v.IsNil() && v.Len() > 0 {
			return v.Pointer()
		}
	}
	return 0
}

// wouldRecurse reports whether pushing v would hit the identity stack.
func (s *session) wouldRecurse(v reflect.Value) bool {
	ptr := valueIdentity(v)
	if ptr == 0 {
		return false
	}
	for i := range s.stack {
		if s.stack[i].ptr == ptr {
			return true
		}
	}
	return false
}

func (s *session) recursionError(name string, v reflect.Value) error {
	err := fmt.Errorf("%w: %q revisits %s", ErrRecursion, s.pathWith(name), v.Type())
	if s.cfg.Debug {
		dumper := spew.ConfigState{Indent: "  ", MaxDepth: 2, SortKeys: true}
		err = fmt.Errorf("%w\n%s", err, dumper.Sdump(v.Interface()))
	}
	return err
}

// path renders the active stack as a dotted path for error messages.
func (s *session) path() string {
	var b strings.Builder
	for i := range s.stack {
		if s.stack[i].name == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.stack[i].name)
	}
	return b.String()
}

func (s *session) pathWith(name string) string {
	p := s.path()
	switch {
	case name == "":
		return p
	case p == "":
		return name
	}
	return p + "." + name
}

// fail wraps err with the current path once; errors already carrying a path
// pass through unchanged.
func (s *session) fail(err error) error {
	var se *SerializeError
	if errors.As(err, &se) {
		return err
	}
	return &SerializeError{Path: s.path(), Err: err}
}

// warnf records a non-fatal diagnostic and forwards it to the logger.
func (s *session) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, msg)
	s.loom.logger.Logf(logging.Warn, "%s", msg)
}

func (s *session) debugf(format string, args ...interface{}) {
	if s.cfg.Debug {
		s.loom.logger.Logf(logging.Debug, format, args...)
	}
}

// ============================================================================
// Value resolution
// ============================================================================

// resolved is the outcome of classify, swap and unwrap for one value.
type resolved struct {
	v     reflect.Value
	aMeta *TypeMeta
	// orig is the classification before any swap fired. Declared-type
	// comparisons run against it, so a swapped value whose declared type
	// already names the original needs no discriminator.
	orig *TypeMeta
	null bool
}

// resolve classifies v's dynamic type, applies the best-matching swap once,
// and unwraps optional layers. Swaps are looked up before each unwrap, so a
// swap on a pointer type wins over one on its element type; the surrogate
// produced by a swap is never swapped again.
func (s *session) resolve(v reflect.Value) (resolved, error) {
	if !v.IsValid() {
		return resolved{null: true}, nil
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return resolved{null: true}, nil
		}
		v = v.Elem()
	}
	aMeta := s.meta(v.Type())
	orig := aMeta
	swapped := false
	for {
		if aMeta.fault != nil {
			return resolved{}, s.fail(aMeta.fault)
		}
		if !swapped {
			if sw := bestSwap(aMeta.swaps, s.ctx); sw != nil {
				nv, err := sw.apply(v)
				if err != nil {
					return resolved{}, s.fail(err)
				}
				s.debugf("swap %s applied at %q", sw, s.path())
				orig = aMeta
				v = nv
				swapped = true
				for v.Kind() == reflect.Interface {
					if v.IsNil() {
						return resolved{null: true}, nil
					}
					v = v.Elem()
				}
				aMeta = s.meta(v.Type())
				continue
			}
		}
		if aMeta.Category == OPTIONAL {
			if isNull(v, aMeta) {
				return resolved{null: true}, nil
			}
			if aMeta.optional != nil {
				v = v.Field(aMeta.optional.valueIndex)
			} else {
				v = v.Elem()
			}
			for v.Kind() == reflect.Interface {
				if v.IsNil() {
					return resolved{null: true}, nil
				}
				v = v.Elem()
			}
			aMeta = s.meta(v.Type())
			if !swapped {
				orig = aMeta
			}
			continue
		}
		break
	}
	if isNull(v, aMeta) {
		return resolved{null: true}, nil
	}
	return resolved{v: v, aMeta: aMeta, orig: orig}, nil
}

// isNull reports whether v represents null for emission.
func isNull(v reflect.Value, m *TypeMeta) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return v.IsNil()
	}
	if m != nil && m.optional != nil {
		return !v.Field(m.optional.hasIndex).Bool()
	}
	return false
}

// zeroSubstitute returns the zero value emitted in place of null when the
// declared type cannot represent null, or an invalid value otherwise.
// Pointer and optional declarations stay nullable and get a null marker
// instead.
func zeroSubstitute(eMeta *TypeMeta) reflect.Value {
	if eMeta == nil {
		return reflect.Value{}
	}
	switch eMeta.Category {
	case BOOLEAN, NUMBER, DECIMAL:
		if !isNilableKind(eMeta.Type.Kind()) {
			return reflect.Zero(eMeta.Type)
		}
	}
	return reflect.Value{}
}

// canIgnore reports whether a named child holding this value is dropped
// outright instead of emitted.
func (s *session) canIgnore(res resolved) bool {
	cfg := s.cfg
	if res.null {
		return !cfg.KeepNullProperties
	}
	c := res.aMeta.Category
	if cfg.TrimEmptyCollections && c.isCollectionOrArray() && res.v.Len() == 0 {
		return true
	}
	if cfg.TrimEmptyMaps && c == MAP && res.v.Len() == 0 {
		return true
	}
	if !cfg.KeepNullProperties && (s.wouldRecurse(res.v) || len(s.stack) >= cfg.MaxDepth) {
		return true
	}
	return false
}

// isExpected reports whether the resolved type needs no discriminator
// against the declared type. Optional layers on the declared side are
// ignored; numbers, maps and element containers align by category.
func isExpected(eMeta, aMeta *TypeMeta) bool {
	for eMeta != nil && eMeta.Category == OPTIONAL {
		eMeta = eMeta.ElemMeta
	}
	if eMeta == nil {
		return false
	}
	if eMeta == aMeta || eMeta.Type == aMeta.Type {
		return true
	}
	switch {
	case eMeta.Category.isNumberLike() && aMeta.Category.isNumberLike():
		return true
	case eMeta.Category == MAP && aMeta.Category == MAP:
		return true
	case eMeta.Category.isCollectionOrArray() && aMeta.Category.isCollectionOrArray():
		return true
	}
	return false
}

// dictName returns the registered discriminator for the type: the record's
// own tag first, then the dictionary entry.
func (s *session) dictName(m *TypeMeta) string {
	if m.record != nil && m.record.TypeTag != "" {
		return m.record.TypeTag
	}
	if n, ok := s.loom.dict.NameOf(m.Type); ok {
		return n
	}
	return ""
}


// ============================================================================
// Scalar rendering
// ============================================================================

// scalarText renders a scalar value as its wire text. preserve suppresses
// TrimStrings for the value.
func (s *session) scalarText(v reflect.Value, m *TypeMeta, preserve bool) string {
	switch m.Category {
	case STRING, CHAR_SEQUENCE:
		str := v.String()
		if s.cfg.TrimStrings && !preserve {
			str = strings.TrimSpace(str)
		}
		return str
	case NUMBER:
		if isUnsignedKind(v.Kind()) {
			return strconv.FormatUint(v.Uint(), 10)
		}
		return strconv.FormatInt(v.Int(), 10)
	case DECIMAL:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())
	case BOOLEAN:
		return strconv.FormatBool(v.Bool())
	case CHAR:
		if v.Kind() == reflect.String {
			return v.String()
		}
		return string(charRune(v))
	case DATE:
		return v.Interface().(time.Time).Format(time.RFC3339)
	case URI:
		u := v.Interface().(url.URL)
		return u.String()
	case ENUM:
		if n, ok := m.enum.name(v); ok {
			return n
		}
		ord := enumOrdinal(v)
		s.warnf("enum %s has no name for ordinal %d", m.Type, ord)
		return strconv.FormatInt(ord, 10)
	}
	return s.otherText(v)
}

// otherText renders an unclassified value through its standard string form.
func (s *session) otherText(v reflect.Value) string {
	str := fmt.Sprint(v.Interface())
	if s.cfg.TrimStrings {
		str = strings.TrimSpace(str)
	}
	return str
}

// isZeroChar reports a CHAR holding code point zero, which emits as null.
func isZeroChar(v reflect.Value, m *TypeMeta) bool {
	if m.Category != CHAR || !isIntegerKind(v.Kind()) {
		return false
	}
	return charRune(v) == 0
}

func charRune(v reflect.Value) rune {
	if isUnsignedKind(v.Kind()) {
		return rune(v.Uint())
	}
	return rune(v.Int())
}

func enumOrdinal(v reflect.Value) int64 {
	if isUnsignedKind(v.Kind()) {
		return int64(v.Uint())
	}
	return v.Int()
}

func isUnsignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// keyText renders a map key as its string form. Null keys become "\x00".
func (s *session) keyText(v reflect.Value) string {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "\x00"
		}
		v = v.Elem()
	}
	m := s.meta(v.Type())
	if m.Category.isScalar() {
		return s.scalarText(v, m, false)
	}
	return s.otherText(v)
}

// ============================================================================
// Ordering
// ============================================================================

type mapEntry struct {
	key string
	v   reflect.Value
}

// mapEntries snapshots the map for emission. Go maps have no observable
// order, so SortMaps orders entries by key text; without it the reflect
// iteration order stands.
func (s *session) mapEntries(v reflect.Value) []mapEntry {
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, mapEntry{key: s.keyText(iter.Key()), v: iter.Value()})
	}
	if s.cfg.SortMaps {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	}
	return entries
}

// collectionElems snapshots a collection for emission. With SortCollections
// on and every element resolving to a scalar, elements order by their wire
// text; otherwise declaration order stands.
func (s *session) collectionElems(v reflect.Value) ([]reflect.Value, error) {
	n := v.Len()
	elems := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		elems[i] = v.Index(i)
	}
	if !s.cfg.SortCollections || n < 2 {
		return elems, nil
	}
	keys := make([]string, n)
	for i, e := range elems {
		res, err := s.resolve(e)
		if err != nil {
			return nil, err
		}
		if res.null || !res.aMeta.Category.isScalar() {
			return elems, nil
		}
		keys[i] = s.scalarText(res.v, res.aMeta, false)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return keys[order[i]] < keys[order[j]] })
	out := make([]reflect.Value, n)
	for i, idx := range order {
		out[i] = elems[idx]
	}
	return out, nil
}
