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
	"strings"
	"sync"
	"unicode"
)

// xmlWriter renders XML tokens into a pooled buffer. It performs no
// balancing checks; the emitter owns tag structure. Indentation and
// newlines are suppressed past maxIndent, flattening deep content onto
// one line.
type xmlWriter struct {
	buf       *bytes.Buffer
	scratch   []byte
	ws        bool
	maxIndent int
	quote     byte
	// defNS is the default namespace prefix. Tokens carrying it render
	// unprefixed, since the default binding already covers them.
	defNS string
}

var xmlWriterPool = sync.Pool{
	New: func() interface{} {
		return &xmlWriter{buf: &bytes.Buffer{}, scratch: make([]byte, 0, 64)}
	},
}

func newXMLWriter(cfg *Config) *xmlWriter {
	w := xmlWriterPool.Get().(*xmlWriter)
	w.buf.Reset()
	w.ws = cfg.UseWhitespace
	w.maxIndent = cfg.MaxIndent
	w.quote = cfg.QuoteChar
	w.defNS = ""
	return w
}

func (w *xmlWriter) release() {
	xmlWriterPool.Put(w)
}

func (w *xmlWriter) bytes() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

// Write implements io.Writer so reader content pipes straight through.
func (w *xmlWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// ind writes depth tabs when whitespace is on and depth is in range.
func (w *xmlWriter) ind(depth int) {
	if !w.ws || depth > w.maxIndent {
		return
	}
	for i := 0; i < depth; i++ {
		w.buf.WriteByte('\t')
	}
}

// nl writes a newline when whitespace is on and depth is in range.
func (w *xmlWriter) nl(depth int) {
	if w.ws && depth <= w.maxIndent {
		w.buf.WriteByte('\n')
	}
}

// oTag opens an element: indentation, '<', optional prefix and the name.
// The caller follows with attrs and gt or closeEmpty.
func (w *xmlWriter) oTag(depth int, prefix, name string, encode bool) {
	w.ind(depth)
	w.buf.WriteByte('<')
	if prefix != "" && prefix != w.defNS {
		w.buf.WriteString(prefix)
		w.buf.WriteByte(':')
	}
	w.writeName(name, encode)
}

// eTag closes an element with an end tag.
func (w *xmlWriter) eTag(prefix, name string, encode bool) {
	w.buf.WriteString("</")
	if prefix != "" && prefix != w.defNS {
		w.buf.WriteString(prefix)
		w.buf.WriteByte(':')
	}
	w.writeName(name, encode)
	w.buf.WriteByte('>')
}

// gt finishes an open tag.
func (w *xmlWriter) gt() {
	w.buf.WriteByte('>')
}

// closeEmpty finishes an open tag as a childless element.
func (w *xmlWriter) closeEmpty() {
	w.buf.WriteString("/>")
}

// attr writes one attribute inside an open tag. A namespace declaration
// passes prefix "xmlns", or name "xmlns" with an empty prefix for the
// default namespace.
func (w *xmlWriter) attr(prefix, name, value string) {
	w.buf.WriteByte(' ')
	if prefix != "" && (prefix == "xmlns" || prefix != w.defNS) {
		w.buf.WriteString(prefix)
		w.buf.WriteByte(':')
	}
	w.writeName(name, false)
	w.buf.WriteByte('=')
	w.buf.WriteByte(w.quote)
	w.escape(value)
	w.buf.WriteByte(w.quote)
}

// text writes escaped character content.
func (w *xmlWriter) text(s string) {
	w.escape(s)
}

// raw writes s verbatim, for numeric tokens and preformatted content.
func (w *xmlWriter) raw(s string) {
	w.buf.WriteString(s)
}

// base64 writes p as standard base64 content.
func (w *xmlWriter) base64(p []byte) {
	n := base64.StdEncoding.EncodedLen(len(p))
	if cap(w.scratch) < n {
		w.scratch = make([]byte, 0, n)
	}
	dst := w.scratch[:n]
	base64.StdEncoding.Encode(dst, p)
	w.buf.Write(dst)
}

// escape writes s with the markup and whitespace characters replaced by
// entities, matching what encoding/xml escapes.
func (w *xmlWriter) escape(s string) {
	last := 0
	for i := 0; i < len(s); i++ {
		var ent string
		switch s[i] {
		case '&':
			ent = "&amp;"
		case '<':
			ent = "&lt;"
		case '>':
			ent = "&gt;"
		case '"':
			ent = "&#34;"
		case '\'':
			ent = "&#39;"
		case '\t':
			ent = "&#x9;"
		case '\n':
			ent = "&#xA;"
		case '\r':
			ent = "&#xD;"
		default:
			continue
		}
		w.buf.WriteString(s[last:i])
		w.buf.WriteString(ent)
		last = i + 1
	}
	w.buf.WriteString(s[last:])
}

// writeName writes an element or attribute name. Encoded names replace
// characters that cannot appear in an XML name with _xHHHH_ sequences, so
// arbitrary map keys and property names stay round-trippable.
func (w *xmlWriter) writeName(name string, encode bool) {
	if !encode {
		w.buf.WriteString(name)
		return
	}
	if name == "" {
		w.buf.WriteString("_x0000_")
		return
	}
	if !needsNameEncoding(name) {
		w.buf.WriteString(name)
		return
	}
	first := true
	for i, r := range name {
		switch {
		case r == '_' && hasEncodedSeq(name[i:]):
			w.buf.WriteString("_x005F_")
		case isNameChar(r, first):
			w.buf.WriteRune(r)
		default:
			fmt.Fprintf(w.buf, "_x%04X_", r)
		}
		first = false
	}
}

func needsNameEncoding(name string) bool {
	first := true
	for i, r := range name {
		if !isNameChar(r, first) || (r == '_' && hasEncodedSeq(name[i:])) {
			return true
		}
		first = false
	}
	return false
}

// isNameChar reports whether r is valid in an XML name. Prefixes are
// handled separately, so ':' is excluded.
func isNameChar(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	if first {
		return false
	}
	return unicode.IsDigit(r) || r == '-' || r == '.'
}

// hasEncodedSeq reports whether s starts with a literal _xHHHH_ pattern,
// which must itself be encoded to stay unambiguous.
func hasEncodedSeq(s string) bool {
	if len(s) < 7 || s[0] != '_' || s[1] != 'x' || s[6] != '_' {
		return false
	}
	return len(strings.TrimLeft(s[2:6], "0123456789ABCDEFabcdef")) == 0
}
