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
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Dictionary maps registered type names to runtime types. A name emitted as
// a discriminator must resolve back to exactly one type, so each name binds
// one type and each type carries at most one name.
type Dictionary struct {
	mu     sync.RWMutex
	byName map[string]dictEntry
	byType map[reflect.Type]string
}

type dictEntry struct {
	t    reflect.Type
	hash uint64
}

func newDictionary() *Dictionary {
	return &Dictionary{
		byName: map[string]dictEntry{},
		byType: map[reflect.Type]string{},
	}
}

// register binds name to t. Re-registering the same pair refreshes the
// fingerprint; any other collision on either side fails.
func (d *Dictionary) register(name string, t reflect.Type, hash uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if have, ok := d.byName[name]; ok && have.t != t {
		return fmt.Errorf("%w: name %q is bound to %s", ErrNameConflict, name, have.t)
	}
	if have, ok := d.byType[t]; ok && have != name {
		return fmt.Errorf("%w: type %s is bound to name %q", ErrNameConflict, t, have)
	}
	d.byName[name] = dictEntry{t: t, hash: hash}
	d.byType[t] = name
	return nil
}

// NameOf returns the registered name for t.
func (d *Dictionary) NameOf(t reflect.Type) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.byType[t]
	return n, ok
}

// TypeOf returns the type registered under name.
func (d *Dictionary) TypeOf(name string) (reflect.Type, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byName[name]
	return e.t, ok
}

// Fingerprint returns the shape hash captured when name was registered.
// Peers exchanging discriminators compare fingerprints to detect drift
// between a shared name and the type behind it.
func (d *Dictionary) Fingerprint(name string) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byName[name]
	return e.hash, ok
}

// Names returns all registered names, sorted.
func (d *Dictionary) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.byName))
	for n := range d.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const fingerprintSeed = 47

// typeFingerprint hashes the wire-visible shape of a type. Records hash
// their property names and categories in emission order, so two structs
// with the same shape fingerprint equal regardless of their Go names; other
// types hash their type string and category.
func typeFingerprint(m *TypeMeta) uint64 {
	var b []byte
	if m.record != nil {
		for _, p := range m.record.Properties {
			b = append(b, p.Name...)
			b = append(b, 0, byte(p.Meta.Category), 0)
		}
	} else {
		b = append(b, m.Type.String()...)
		b = append(b, 0, byte(m.Category), 0)
	}
	return murmur3.Sum64WithSeed(b, fingerprintSeed)
}
