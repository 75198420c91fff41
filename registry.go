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
	"reflect"
	"sort"
	"sync"
)

// Format selects a serializer.
type Format string

const (
	FormatXML     Format = "xml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Serializer renders values in one output format. Implementations are
// stateless; per-call state lives in the session the Loom builds for them.
type Serializer interface {
	// Format identifies the serializer in a registry.
	Format() Format

	// ContentType returns the MIME type of the output.
	ContentType() string

	// Serialize renders v to bytes.
	Serialize(l *Loom, v interface{}) ([]byte, error)

	// SerializeTo renders v into out.
	SerializeTo(l *Loom, out io.Writer, v interface{}) error
}

// TypedSerializer is implemented by serializers that can render against a
// declared root type, suppressing discriminators the declaration already
// implies.
type TypedSerializer interface {
	Serializer
	SerializeTyped(l *Loom, v interface{}, expected reflect.Type) ([]byte, error)
}

// Registry maps formats to serializers.
type Registry struct {
	mu          sync.RWMutex
	serializers map[Format]Serializer
}

// NewRegistry creates an empty serializer registry.
func NewRegistry() *Registry {
	return &Registry{serializers: make(map[Format]Serializer)}
}

// Register adds a serializer to the registry, replacing any serializer
// already held for the format.
func (r *Registry) Register(format Format, s Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serializers[format] = s
}

// Get retrieves a serializer from the registry.
func (r *Registry) Get(format Format) (Serializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.serializers[format]
	return s, ok
}

// Lookup retrieves a serializer or fails with the formats that exist.
func (r *Registry) Lookup(format Format) (Serializer, error) {
	if s, ok := r.Get(format); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownFormat, format, r.Formats())
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]Format, 0, len(r.serializers))
	for f := range r.serializers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func builtinRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormatXML, XMLSerializer{})
	r.Register(FormatJSON, JSONSerializer{})
	r.Register(FormatMsgpack, MsgpackSerializer{})
	return r
}

// DefaultRegistry is a pre-configured registry with the built-in
// serializers.
var DefaultRegistry = builtinRegistry()
