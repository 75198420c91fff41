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
)

// ============================================================================
// Errors
// ============================================================================

// ErrRecursion indicates a cyclic reference was found during traversal.
var ErrRecursion = errors.New("loom: recursive reference")

// ErrMaxDepthExceeded indicates the traversal exceeded the configured depth bound.
var ErrMaxDepthExceeded = errors.New("loom: max depth exceeded")

// ErrUnsupportedValue indicates a value has no representation in the target format.
var ErrUnsupportedValue = errors.New("loom: unsupported value")

// ErrNotARecord indicates a type does not qualify as a record.
var ErrNotARecord = errors.New("loom: not a record type")

// ErrIntrospection indicates a type could not be classified or introspected.
// It is recorded on the type's descriptor and surfaced when the type is used.
var ErrIntrospection = errors.New("loom: introspection failed")

// ErrInvalidSwapFunc indicates a swap function has an unsupported signature.
var ErrInvalidSwapFunc = errors.New("loom: invalid swap function")

// ErrWriteOnlySwap indicates a backward conversion was requested from a swap
// that only supports the forward direction.
var ErrWriteOnlySwap = errors.New("loom: swap is write-only")

// ErrNameConflict indicates a dictionary name is already bound to another type.
var ErrNameConflict = errors.New("loom: name already registered")

// ErrUnknownFormat indicates no serializer is registered for a format.
var ErrUnknownFormat = errors.New("loom: no serializer registered for format")

// ErrUnknownProfile indicates a settings profile name was not found.
var ErrUnknownProfile = errors.New("loom: unknown profile")

// SerializeError is the failure result of a serialize call. It carries the
// property path at which the failure occurred, when one is available, and
// wraps the original cause.
type SerializeError struct {
	// Path is the dotted property/key path to the failing node, or "".
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *SerializeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("loom: serialization failed: %v", e.Err)
	}
	return fmt.Sprintf("loom: serialization failed at %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SerializeError) Unwrap() error { return e.Err }
