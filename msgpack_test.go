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
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// TestMsgpackSerialize encodes the generalized form, so decoding gives back
// the same plain tree the text formats would render.
func TestMsgpackSerialize(t *testing.T) {
	l := New(WithFormat(FormatMsgpack))
	require.Equal(t, "application/msgpack", l.ContentType())

	out, err := l.Serialize(Person{Name: "John Smith", Age: 21})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(out, &got))
	want := map[string]interface{}{"name": "John Smith", "age": float64(21)}
	require.Empty(t, cmp.Diff(want, got))
}

// TestMsgpackSerializeTo streams the same encoding to a writer.
func TestMsgpackSerializeTo(t *testing.T) {
	l := New(WithFormat(FormatMsgpack))
	var buf bytes.Buffer
	require.NoError(t, l.SerializeTo(&buf, []interface{}{1, "a", true}))

	var got []interface{}
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &got))
	require.Empty(t, cmp.Diff([]interface{}{float64(1), "a", true}, got))
}

// TestMsgpackSwaps runs the swap layer ahead of encoding.
func TestMsgpackSwaps(t *testing.T) {
	out, err := New().SerializeAs(FormatMsgpack, 90*time.Second)
	require.NoError(t, err)

	var got string
	require.NoError(t, msgpack.Unmarshal(out, &got))
	require.Equal(t, "1m30s", got)
}
