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
	"encoding/base64"
	"fmt"
	"io"
	"reflect"

	"github.com/go-json-experiment/json/jsontext"
)

func base64Text(p []byte) string {
	return base64.StdEncoding.EncodeToString(p)
}

// JSONSerializer renders values as JSON documents. It shares the traversal
// semantics of the XML serializer: the same swaps, cycle handling, null
// suppression and ordering apply, only the syntax differs.
type JSONSerializer struct{}

func (JSONSerializer) Format() Format      { return FormatJSON }
func (JSONSerializer) ContentType() string { return "application/json" }

func (s JSONSerializer) Serialize(l *Loom, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.SerializeTo(l, &buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s JSONSerializer) SerializeTo(l *Loom, out io.Writer, v interface{}) error {
	return serializeJSON(l, out, v, nil)
}

// SerializeTyped renders v against a declared root type, suppressing the
// discriminator when the runtime type matches it.
func (s JSONSerializer) SerializeTyped(l *Loom, v interface{}, expected reflect.Type) ([]byte, error) {
	var buf bytes.Buffer
	if err := serializeJSON(l, &buf, v, expected); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serializeJSON(l *Loom, out io.Writer, v interface{}, expected reflect.Type) error {
	var opts []jsontext.Options
	if l.cfg.UseWhitespace {
		opts = append(opts, jsontext.WithIndent("\t"))
	}
	e := &jsonEmitter{
		session: l.newSession(SwapContext{Format: FormatJSON, MediaType: "application/json"}),
		enc:     jsontext.NewEncoder(out, opts...),
	}
	var eMeta *TypeMeta
	if expected != nil {
		eMeta = e.meta(expected)
	}
	return e.emitValue(reflect.ValueOf(v), eMeta, "")
}

type jsonEmitter struct {
	*session
	enc *jsontext.Encoder
}

func (e *jsonEmitter) write(tok jsontext.Token) error {
	if err := e.enc.WriteToken(tok); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *jsonEmitter) emitValue(v reflect.Value, eMeta *TypeMeta, keyName string) error {
	if eMeta == nil {
		eMeta = e.meta(anyType)
	}

	suppressed, err := e.push(keyName, v)
	if err != nil {
		return err
	}
	if suppressed {
		return e.write(jsontext.Null)
	}
	defer e.pop()

	res, err := e.resolve(v)
	if err != nil {
		return err
	}
	if res.null {
		if zv := zeroSubstitute(eMeta); zv.IsValid() {
			m := e.meta(zv.Type())
			res = resolved{v: zv, aMeta: m, orig: m}
		} else {
			return e.write(jsontext.Null)
		}
	}

	aMeta := res.aMeta
	switch aMeta.Category {
	case STRING, CHAR_SEQUENCE, CHAR, DATE, URI, ENUM:
		return e.write(jsontext.String(e.scalarText(res.v, aMeta, false)))
	case NUMBER:
		if isUnsignedKind(res.v.Kind()) {
			return e.write(jsontext.Uint(res.v.Uint()))
		}
		return e.write(jsontext.Int(res.v.Int()))
	case DECIMAL:
		return e.write(jsontext.Float(res.v.Float()))
	case BOOLEAN:
		return e.write(jsontext.Bool(res.v.Bool()))
	case INPUT_STREAM:
		return e.write(jsontext.String(base64Text(res.v.Bytes())))
	case READER:
		// Reader content is taken as pre-rendered JSON; the encoder
		// validates it in place.
		b, rerr := io.ReadAll(res.v.Interface().(io.Reader))
		if rerr != nil {
			return e.fail(rerr)
		}
		if werr := e.enc.WriteValue(jsontext.Value(b)); werr != nil {
			return e.fail(werr)
		}
		return nil
	case MAP:
		return e.emitObject(res.v, aMeta)
	case RECORD:
		return e.emitRecordObject(res.v, aMeta, res.orig, eMeta)
	case COLLECTION, ARRAY:
		return e.emitArray(res.v, aMeta)
	case VOID:
		return e.fail(fmt.Errorf("%w: %s", ErrUnsupportedValue, res.v.Type()))
	}
	return e.write(jsontext.String(e.otherText(res.v)))
}

func (e *jsonEmitter) emitObject(v reflect.Value, aMeta *TypeMeta) error {
	if err := e.write(jsontext.ObjectStart); err != nil {
		return err
	}
	for _, ent := range e.mapEntries(v) {
		if err := e.write(jsontext.String(ent.key)); err != nil {
			return err
		}
		if err := e.emitValue(ent.v, aMeta.ValueMeta, ent.key); err != nil {
			return err
		}
	}
	return e.write(jsontext.ObjectEnd)
}

// emitRecordObject renders a record as an object. A discriminator member
// leads when the runtime type was not predictable from the declared one and
// a name is registered for it.
func (e *jsonEmitter) emitRecordObject(v reflect.Value, aMeta, origMeta *TypeMeta, eMeta *TypeMeta) error {
	if err := e.write(jsontext.ObjectStart); err != nil {
		return err
	}
	if origMeta == nil {
		origMeta = aMeta
	}
	if !isExpected(eMeta, origMeta) {
		if d := e.dictName(origMeta); d != "" {
			if err := e.write(jsontext.String(e.cfg.TypeTagName)); err != nil {
				return err
			}
			if err := e.write(jsontext.String(d)); err != nil {
				return err
			}
		}
	}
	for _, p := range aMeta.record.Properties {
		if !p.CanRead {
			continue
		}
		pv := p.value(v)
		res, err := e.resolve(pv)
		if err != nil {
			return err
		}
		if e.canIgnore(res) {
			continue
		}
		if err := e.write(jsontext.String(p.Name)); err != nil {
			return err
		}
		if err := e.emitValue(pv, p.Meta, p.Name); err != nil {
			return err
		}
	}
	return e.write(jsontext.ObjectEnd)
}

func (e *jsonEmitter) emitArray(v reflect.Value, aMeta *TypeMeta) error {
	if err := e.write(jsontext.ArrayStart); err != nil {
		return err
	}
	elems, err := e.collectionElems(v)
	if err != nil {
		return err
	}
	for _, x := range elems {
		if err := e.emitValue(x, aMeta.ElemMeta, ""); err != nil {
			return err
		}
	}
	return e.write(jsontext.ArrayEnd)
}
