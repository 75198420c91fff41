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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// TestGeneralize converts values into plain maps, slices and scalars, with
// numbers widened to float64.
func TestGeneralize(t *testing.T) {
	l := New()

	t.Run("Record", func(t *testing.T) {
		got, err := l.Generalize(Person{Name: "John Smith", Age: 21})
		require.NoError(t, err)
		want := map[string]interface{}{"name": "John Smith", "age": float64(21)}
		require.Empty(t, cmp.Diff(want, got))
	})

	t.Run("MixedSlice", func(t *testing.T) {
		got, err := l.Generalize([]interface{}{1, "a", true, nil})
		require.NoError(t, err)
		want := []interface{}{float64(1), "a", true, nil}
		require.Empty(t, cmp.Diff(want, got))
	})

	t.Run("DroppedNullProperty", func(t *testing.T) {
		type couple struct {
			Spouse *Person
		}
		got, err := l.Generalize(couple{})
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(map[string]interface{}{}, got))
	})

	t.Run("Duration", func(t *testing.T) {
		got, err := l.Generalize(90 * time.Second)
		require.NoError(t, err)
		require.Equal(t, "1m30s", got)
	})

	t.Run("Nil", func(t *testing.T) {
		got, err := l.Generalize(nil)
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

// TestGeneralizeDiscriminator adds the type member for registered records
// reached through an unnamed declared type, and omits it elsewhere.
func TestGeneralizeDiscriminator(t *testing.T) {
	type family struct {
		Spouse *Person
	}
	l := New()
	require.NoError(t, l.RegisterNamedType(Person{}, "Person"))

	got, err := l.Generalize(Person{Name: "John Smith", Age: 21})
	require.NoError(t, err)
	want := map[string]interface{}{"_type": "Person", "name": "John Smith", "age": float64(21)}
	require.Empty(t, cmp.Diff(want, got))

	got, err = l.Generalize(family{Spouse: &Person{Name: "Ann", Age: 30}})
	require.NoError(t, err)
	want = map[string]interface{}{
		"spouse": map[string]interface{}{"name": "Ann", "age": float64(30)},
	}
	require.Empty(t, cmp.Diff(want, got))
}

// TestGeneralizeCycleSuppression leaves a nil placeholder at the revisited
// value.
func TestGeneralizeCycleSuppression(t *testing.T) {
	a := &LinkedNode{Value: 1}
	b := &LinkedNode{Value: 2}
	a.Next, b.Next = b, a

	got, err := New(WithCycleSuppression(true)).Generalize(a)
	require.NoError(t, err)
	want := map[string]interface{}{
		"value": float64(1),
		"next": map[string]interface{}{
			"value": float64(2),
			"next":  nil,
		},
	}
	require.Empty(t, cmp.Diff(want, got))
}

// TestSearch evaluates JMESPath expressions against the generalized form.
func TestSearch(t *testing.T) {
	type team struct {
		Members []Person
	}
	l := New()

	got, err := l.Search("members[0].age", team{Members: []Person{{Name: "John Smith", Age: 21}}})
	require.NoError(t, err)
	require.Equal(t, float64(21), got)

	got, err = l.Search("members[*].name", team{Members: []Person{{Name: "a"}, {Name: "b"}}})
	require.NoError(t, err)
	require.Empty(t, cmp.Diff([]interface{}{"a", "b"}, got))
}
