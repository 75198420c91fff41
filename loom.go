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

// Package loom marshals object trees into XML, JSON and MessagePack. A Loom
// classifies runtime types once into cached metadata, rewrites values through
// registered swaps, and walks the result with cycle detection before handing
// it to a format serializer.
package loom

import (
	"fmt"
	"io"
	"reflect"

	"github.com/loomcodec/loom/logging"
)

// ============================================================================
// Options
// ============================================================================

// Option is a function that configures a Loom instance.
type Option func(*Loom)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(l *Loom) {
		l.cfg = cfg
	}
}

// WithProfile layers a profile's overrides onto the configuration.
func WithProfile(p Profile) Option {
	return func(l *Loom) {
		p.apply(&l.cfg)
	}
}

// WithFormat sets the format Serialize and SerializeTo render.
func WithFormat(format Format) Option {
	return func(l *Loom) {
		l.format = format
	}
}

// WithMaxDepth sets the maximum serialization depth.
func WithMaxDepth(depth int) Option {
	return func(l *Loom) {
		l.cfg.MaxDepth = depth
	}
}

// WithCycleSuppression replaces repeated visits of a value with a null
// placeholder instead of failing.
func WithCycleSuppression(enabled bool) Option {
	return func(l *Loom) {
		l.cfg.SuppressCycles = enabled
	}
}

// WithDebug enriches recursion errors with a dump of the offending value.
func WithDebug(enabled bool) Option {
	return func(l *Loom) {
		l.cfg.Debug = enabled
	}
}

// WithKeepNullProperties renders null record properties instead of dropping
// them.
func WithKeepNullProperties(enabled bool) Option {
	return func(l *Loom) {
		l.cfg.KeepNullProperties = enabled
	}
}

// WithSortMaps renders map entries in key order.
func WithSortMaps(enabled bool) Option {
	return func(l *Loom) {
		l.cfg.SortMaps = enabled
	}
}

// WithWhitespace adds newlines and indentation to the output.
func WithWhitespace(enabled bool) Option {
	return func(l *Loom) {
		l.cfg.UseWhitespace = enabled
	}
}

// WithNamespaces turns on namespace handling for XML output.
func WithNamespaces(enabled bool) Option {
	return func(l *Loom) {
		l.cfg.EnableNamespaces = enabled
	}
}

// WithDefaultNamespace sets the namespace used for the type and name tag
// attributes.
func WithDefaultNamespace(ns Namespace) Option {
	return func(l *Loom) {
		l.cfg.DefaultNamespace = &ns
	}
}

// WithLogger sets the destination for engine diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(l *Loom) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithFieldNamer sets the convention mapping Go field names to wire names.
// Passing nil keeps the raw field names.
func WithFieldNamer(namer func(string) string) Option {
	return func(l *Loom) {
		l.namer = namer
	}
}

// WithRegistry replaces the serializer registry.
func WithRegistry(r *Registry) Option {
	return func(l *Loom) {
		if r != nil {
			l.registry = r
		}
	}
}

// ============================================================================
// Loom - Main marshalling instance
// ============================================================================

// Loom is the main marshalling instance. A Loom is safe for concurrent use:
// per-call state lives in sessions, and the type cache, dictionary and
// registry guard themselves.
type Loom struct {
	cfg      Config
	format   Format
	logger   logging.Logger
	namer    func(string) string
	resolver *typeResolver
	dict     *Dictionary
	registry *Registry
}

// New creates a new Loom instance with the given options.
func New(opts ...Option) *Loom {
	l := &Loom{
		cfg:      defaultConfig(),
		format:   FormatXML,
		logger:   logging.Noop{},
		namer:    toSnakeCase,
		dict:     newDictionary(),
		registry: builtinRegistry(),
	}
	l.resolver = newTypeResolver(l)
	for _, sw := range defaultSwaps() {
		l.resolver.registerSwap(sw)
	}

	// Apply options
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Format returns the format Serialize renders.
func (l *Loom) Format() Format { return l.format }

// ContentType returns the MIME type Serialize produces.
func (l *Loom) ContentType() string {
	if s, ok := l.registry.Get(l.format); ok {
		return s.ContentType()
	}
	return ""
}

// ============================================================================
// Serialization
// ============================================================================

// Serialize renders v in the instance's format.
func (l *Loom) Serialize(v interface{}) ([]byte, error) {
	s, err := l.registry.Lookup(l.format)
	if err != nil {
		return nil, err
	}
	return s.Serialize(l, v)
}

// SerializeTo renders v into out in the instance's format.
func (l *Loom) SerializeTo(out io.Writer, v interface{}) error {
	s, err := l.registry.Lookup(l.format)
	if err != nil {
		return err
	}
	return s.SerializeTo(l, out, v)
}

// SerializeAs renders v in the given format.
func (l *Loom) SerializeAs(format Format, v interface{}) ([]byte, error) {
	s, err := l.registry.Lookup(format)
	if err != nil {
		return nil, err
	}
	return s.Serialize(l, v)
}

// SerializeAsTo renders v into out in the given format.
func (l *Loom) SerializeAsTo(format Format, out io.Writer, v interface{}) error {
	s, err := l.registry.Lookup(format)
	if err != nil {
		return err
	}
	return s.SerializeTo(l, out, v)
}

// SerializeTyped renders v against a declared root type, suppressing the
// discriminators the declaration already implies. Formats whose serializer
// does not distinguish declared types fall back to Serialize.
func (l *Loom) SerializeTyped(v interface{}, expected reflect.Type) ([]byte, error) {
	s, err := l.registry.Lookup(l.format)
	if err != nil {
		return nil, err
	}
	if ts, ok := s.(TypedSerializer); ok {
		return ts.SerializeTyped(l, v, expected)
	}
	return s.Serialize(l, v)
}

// ============================================================================
// Classification
// ============================================================================

// typeOf resolves the reflect.Type or instance forms the registration
// methods accept. Pointer instances register their element type.
func typeOf(type_ interface{}) reflect.Type {
	if rt, ok := type_.(reflect.Type); ok {
		return rt
	}
	t := reflect.TypeOf(type_)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Meta classifies v's runtime type. A nil v classifies as the empty
// interface.
func (l *Loom) Meta(v interface{}) *TypeMeta {
	if v == nil {
		return l.resolver.typeMeta(anyType)
	}
	return l.resolver.typeMeta(reflect.TypeOf(v))
}

// MetaOf classifies t.
func (l *Loom) MetaOf(t reflect.Type) *TypeMeta {
	if t == nil {
		return l.resolver.typeMeta(anyType)
	}
	return l.resolver.typeMeta(t)
}

// Record returns the introspected property layout for a record type.
// type_ can be either a reflect.Type or an instance of the type. Types that
// do not qualify fail with ErrNotARecord carrying the reason.
func (l *Loom) Record(type_ interface{}) (*RecordMeta, error) {
	t := typeOf(type_)
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrNotARecord)
	}
	m := l.resolver.typeMeta(t)
	if m.fault != nil {
		return nil, m.fault
	}
	if m.record == nil {
		if m.recordErr != "" {
			return nil, fmt.Errorf("%w: %s", ErrNotARecord, m.recordErr)
		}
		return nil, fmt.Errorf("%w: %s classifies as %s", ErrNotARecord, t, m.Category)
	}
	return m.record, nil
}

// ============================================================================
// Registration
// ============================================================================

// RegisterSwap builds a swap from a forward function of the form func(S) D
// or func(S) (D, error) and registers it. A swap registered later shadows
// earlier swaps of the same type unless their scores differ.
func (l *Loom) RegisterSwap(forward any, opts ...SwapOption) error {
	sw, err := NewSwap(forward, opts...)
	if err != nil {
		return err
	}
	l.resolver.registerSwap(sw)
	return nil
}

// RegisterEnum names the ordinals of an integer type, in index order.
// type_ can be either a reflect.Type or an instance of the type.
func (l *Loom) RegisterEnum(type_ interface{}, names ...string) error {
	t := typeOf(type_)
	if t == nil {
		return fmt.Errorf("loom: cannot register enum names for nil type")
	}
	return l.resolver.registerEnum(t, names)
}

// RegisterTypeConfig overrides classification results for one type.
// type_ can be either a reflect.Type or an instance of the type.
func (l *Loom) RegisterTypeConfig(type_ interface{}, cfg TypeConfig) error {
	t := typeOf(type_)
	if t == nil {
		return fmt.Errorf("loom: cannot configure nil type")
	}
	l.resolver.setTypeConfig(t, cfg)
	return nil
}

// RegisterRecordConfig adjusts record introspection for one struct type.
// type_ can be either a reflect.Type or an instance of the type.
func (l *Loom) RegisterRecordConfig(type_ interface{}, cfg RecordConfig) error {
	t := typeOf(type_)
	if t == nil {
		return fmt.Errorf("loom: cannot configure nil type")
	}
	l.resolver.setRecordConfig(t, cfg)
	return nil
}

// RegisterNamedType binds a dictionary name to a type. The name becomes the
// type's discriminator, and the element name for values rendered without a
// property or key name. type_ can be either a reflect.Type or an instance
// of the type.
func (l *Loom) RegisterNamedType(type_ interface{}, name string) error {
	t := typeOf(type_)
	if t == nil {
		return fmt.Errorf("loom: cannot register name %q for nil type", name)
	}
	m := l.resolver.typeMeta(t)
	return l.dict.register(name, t, typeFingerprint(m))
}

// RegisterSerializer adds a serializer to the instance's registry under its
// own format.
func (l *Loom) RegisterSerializer(s Serializer) {
	l.registry.Register(s.Format(), s)
}

// ============================================================================
// Package defaults
// ============================================================================

// Default is a shared instance with default configuration.
var Default = New()

// Serialize renders v as XML with the default instance.
func Serialize(v interface{}) ([]byte, error) {
	return Default.Serialize(v)
}
