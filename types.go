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

import "reflect"

// ============================================================================
// Categories
// ============================================================================

// Category is the semantic shape assigned to a runtime type by classification.
// Exactly one category is assigned per type; emission logic dispatches on the
// category, never on the reflect.Kind directly.
type Category uint8

const (
	// UNKNOWN is the zero value. Classification never assigns it; a
	// TypeConfig with Category UNKNOWN declares no category override.
	UNKNOWN Category = iota
	// OTHER is the fallback for types with no recognized shape. They emit
	// as formatted text.
	OTHER
	// OBJECT marks interface types, whose shape is only knowable from the
	// runtime value they hold.
	OBJECT
	// MAP marks keyed containers.
	MAP
	// COLLECTION marks slices other than []byte.
	COLLECTION
	// ARRAY marks fixed-length arrays.
	ARRAY
	// RECORD marks structs that qualify for property introspection.
	RECORD
	// ENUM marks types registered with RegisterEnum; values emit as their
	// registered names.
	ENUM
	// NUMBER marks integer kinds.
	NUMBER
	// DECIMAL marks floating point kinds.
	DECIMAL
	// BOOLEAN marks bool kinds.
	BOOLEAN
	// CHAR marks single-character types. Never assigned structurally; only
	// a TypeConfig override selects it.
	CHAR
	// STRING marks the built-in string type exactly.
	STRING
	// CHAR_SEQUENCE marks defined types with string kind.
	CHAR_SEQUENCE
	// DATE marks time.Time.
	DATE
	// URI marks url.URL.
	URI
	// READER marks types implementing io.Reader; their content streams
	// through verbatim.
	READER
	// INPUT_STREAM marks []byte; content emits base64-encoded.
	INPUT_STREAM
	// VOID marks kinds that carry no serializable value (chan, func,
	// unsafe.Pointer).
	VOID
	// OPTIONAL marks pointers and optional.Optional wrappers. The engine
	// unwraps them before emission.
	OPTIONAL
)

var categoryNames = map[Category]string{
	UNKNOWN:       "unknown",
	OTHER:         "other",
	OBJECT:        "object",
	MAP:           "map",
	COLLECTION:    "collection",
	ARRAY:         "array",
	RECORD:        "record",
	ENUM:          "enum",
	NUMBER:        "number",
	DECIMAL:       "decimal",
	BOOLEAN:       "boolean",
	CHAR:          "char",
	STRING:        "string",
	CHAR_SEQUENCE: "charsequence",
	DATE:          "date",
	URI:           "uri",
	READER:        "reader",
	INPUT_STREAM:  "inputstream",
	VOID:          "void",
	OPTIONAL:      "optional",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

// isScalar reports whether values of this category emit as a single text
// token with no child nodes.
func (c Category) isScalar() bool {
	switch c {
	case NUMBER, DECIMAL, BOOLEAN, CHAR, STRING, CHAR_SEQUENCE, DATE, URI, ENUM:
		return true
	}
	return false
}

// isNumberLike reports whether the category is an integer or decimal number.
func (c Category) isNumberLike() bool {
	return c == NUMBER || c == DECIMAL
}

// isCollectionOrArray reports whether the category holds ordered unnamed
// elements.
func (c Category) isCollectionOrArray() bool {
	return c == COLLECTION || c == ARRAY
}

// isMapOrRecord reports whether the category holds named children.
func (c Category) isMapOrRecord() bool {
	return c == MAP || c == RECORD
}

// jsonName returns the generic type-tag name for nodes of this category
// ("string", "number", "boolean", "object", "array"). Null nodes are tagged
// by the caller, which alone knows the value was nil.
func (c Category) jsonName() string {
	switch c {
	case NUMBER, DECIMAL:
		return "number"
	case BOOLEAN:
		return "boolean"
	case MAP, RECORD:
		return "object"
	case COLLECTION, ARRAY:
		return "array"
	default:
		return "string"
	}
}

// ============================================================================
// Namespaces
// ============================================================================

// Namespace is an XML namespace binding, pairing a document-unique prefix
// with its URI.
type Namespace struct {
	Name string
	URI  string
}

// isNilableKind reports whether values of kind k can hold nil.
func isNilableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	}
	return false
}
