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

// Package optional provides a present-or-absent wrapper for record
// properties that distinguish null from the zero value without pointer
// indirection. The marshalling engine classifies Optional fields by their
// element type and renders None as null.
package optional

// Optional holds a value of type T, or nothing. Value and Has are exported
// so the engine can read them reflectively; treat them as read-only and use
// the constructors to build instances.
type Optional[T any] struct {
	Value T
	Has   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Has: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a pointer to an Optional, nil becoming None.
func FromPtr[T any](v *T) Optional[T] {
	if v == nil {
		return None[T]()
	}
	return Some(*v)
}

// Ptr returns a pointer to a copy of the held value, nil for None.
func (o Optional[T]) Ptr() *T {
	if !o.Has {
		return nil
	}
	v := o.Value
	return &v
}

// IsSome reports whether the optional holds a value.
func (o Optional[T]) IsSome() bool { return o.Has }

// IsNone reports whether the optional is empty.
func (o Optional[T]) IsNone() bool { return !o.Has }

// Get returns the held value and whether one is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Has
}

// UnwrapOr returns the held value, or fallback for None.
func (o Optional[T]) UnwrapOr(fallback T) T {
	if o.Has {
		return o.Value
	}
	return fallback
}

// Map applies f to the held value, None passing through unchanged.
func Map[T, U any](o Optional[T], f func(T) U) Optional[U] {
	if !o.Has {
		return None[U]()
	}
	return Some(f(o.Value))
}
