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

	"github.com/jmespath/go-jmespath"
)

// Generalize converts v into plain data built from map[string]interface{},
// []interface{} and scalars, applying the same classification, swaps and
// traversal rules as the serializers. Numbers come back as float64 so the
// result matches what a JSON round trip would produce.
func (l *Loom) Generalize(v interface{}) (interface{}, error) {
	return l.generalizeWith(SwapContext{}, v)
}

func (l *Loom) generalizeWith(ctx SwapContext, v interface{}) (interface{}, error) {
	g := &generalizer{l.newSession(ctx)}
	return g.generalize(reflect.ValueOf(v), nil, "")
}

// Search evaluates a JMESPath expression against the generalized form of v.
func (l *Loom) Search(expr string, v interface{}) (interface{}, error) {
	tree, err := l.Generalize(v)
	if err != nil {
		return nil, err
	}
	return jmespath.Search(expr, tree)
}

type generalizer struct {
	*session
}

func (g *generalizer) generalize(v reflect.Value, eMeta *TypeMeta, key string) (interface{}, error) {
	if eMeta == nil {
		eMeta = g.meta(anyType)
	}

	suppressed, err := g.push(key, v)
	if err != nil {
		return nil, err
	}
	if suppressed {
		return nil, nil
	}
	defer g.pop()

	res, err := g.resolve(v)
	if err != nil {
		return nil, err
	}
	if res.null {
		zv := zeroSubstitute(eMeta)
		if !zv.IsValid() {
			return nil, nil
		}
		m := g.meta(zv.Type())
		res = resolved{v: zv, aMeta: m, orig: m}
	}

	aMeta := res.aMeta
	switch aMeta.Category {
	case STRING, CHAR_SEQUENCE, CHAR, DATE, URI, ENUM:
		return g.scalarText(res.v, aMeta, false), nil
	case NUMBER:
		if isUnsignedKind(res.v.Kind()) {
			return float64(res.v.Uint()), nil
		}
		return float64(res.v.Int()), nil
	case DECIMAL:
		return res.v.Float(), nil
	case BOOLEAN:
		return res.v.Bool(), nil
	case INPUT_STREAM:
		return base64Text(res.v.Bytes()), nil
	case READER:
		b, rerr := io.ReadAll(res.v.Interface().(io.Reader))
		if rerr != nil {
			return nil, g.fail(rerr)
		}
		return string(b), nil
	case MAP:
		out := make(map[string]interface{}, res.v.Len())
		for _, ent := range g.mapEntries(res.v) {
			child, err := g.generalize(ent.v, aMeta.ValueMeta, ent.key)
			if err != nil {
				return nil, err
			}
			out[ent.key] = child
		}
		return out, nil
	case RECORD:
		rm := aMeta.record
		out := make(map[string]interface{}, len(rm.Properties)+1)
		origMeta := res.orig
		if origMeta == nil {
			origMeta = aMeta
		}
		if !isExpected(eMeta, origMeta) {
			if d := g.dictName(origMeta); d != "" {
				out[g.cfg.TypeTagName] = d
			}
		}
		for _, p := range rm.Properties {
			if !p.CanRead {
				continue
			}
			pv := p.value(res.v)
			pres, err := g.resolve(pv)
			if err != nil {
				return nil, err
			}
			if g.canIgnore(pres) {
				continue
			}
			child, err := g.generalize(pv, p.Meta, p.Name)
			if err != nil {
				return nil, err
			}
			out[p.Name] = child
		}
		return out, nil
	case COLLECTION, ARRAY:
		elems, err := g.collectionElems(res.v)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, 0, len(elems))
		for _, x := range elems {
			child, err := g.generalize(x, aMeta.ElemMeta, "")
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	case VOID:
		return nil, g.fail(fmt.Errorf("%w: %s", ErrUnsupportedValue, res.v.Type()))
	}
	return g.otherText(res.v), nil
}
