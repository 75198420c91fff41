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
)

// defaultXMLNamespace is bound to elements with no other binding when
// namespace support is on and no DefaultNamespace was configured.
var defaultXMLNamespace = Namespace{Name: "loom", URI: "https://loomcodec.dev/xmlns/loom"}

// XMLSerializer renders values as XML documents.
type XMLSerializer struct{}

func (XMLSerializer) Format() Format      { return FormatXML }
func (XMLSerializer) ContentType() string { return "text/xml" }

func (XMLSerializer) Serialize(l *Loom, v interface{}) ([]byte, error) {
	return serializeXML(l, v, nil)
}

func (XMLSerializer) SerializeTo(l *Loom, out io.Writer, v interface{}) error {
	b, err := serializeXML(l, v, nil)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

// SerializeTyped renders v against a declared root type, suppressing the
// discriminator when the runtime type matches it.
func (XMLSerializer) SerializeTyped(l *Loom, v interface{}, expected reflect.Type) ([]byte, error) {
	return serializeXML(l, v, expected)
}

func serializeXML(l *Loom, v interface{}, expected reflect.Type) ([]byte, error) {
	s := l.newSession(SwapContext{Format: FormatXML, MediaType: "text/xml"})
	w := newXMLWriter(&l.cfg)
	defer w.release()
	e := newXMLEmitter(s, w)
	if err := e.emitRoot(reflect.ValueOf(v), expected); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

// ============================================================================
// Emitter
// ============================================================================

// xmlNode carries the inherited context for one node: the declared type, the
// name it was reached by, and the formatting the parent property imposed.
type xmlNode struct {
	eMeta *TypeMeta
	// key is the property or map key that reached this node, "" at roots
	// and collection elements.
	key string
	// elem overrides the element name, as a collection child name does.
	elem string
	ns   *Namespace
	// addNS emits the xmlns declarations on this element.
	addNS    bool
	format   XMLFormat
	mixed    bool
	preserve bool
	pMeta    *PropertyMeta
}

type xmlEmitter struct {
	*session
	w *xmlWriter
	// namespaces are the non-default bindings declared on the root, in
	// first-seen order.
	namespaces []*Namespace
	defaultNS  *Namespace
}

func newXMLEmitter(s *session, w *xmlWriter) *xmlEmitter {
	e := &xmlEmitter{session: s, w: w}
	if s.cfg.EnableNamespaces {
		e.defaultNS = s.cfg.DefaultNamespace
		if e.defaultNS == nil {
			e.defaultNS = &defaultXMLNamespace
		}
		w.defNS = e.defaultNS.Name
		for i := range s.cfg.Namespaces {
			e.addNamespace(&s.cfg.Namespaces[i])
		}
	}
	return e
}

// addNamespace records a binding for the root element. Bindings without a
// URI, shadowing the default, or repeating an earlier prefix are dropped.
func (e *xmlEmitter) addNamespace(ns *Namespace) {
	if ns == nil || ns.URI == "" {
		return
	}
	if e.defaultNS != nil && (ns.Name == e.defaultNS.Name || ns.URI == e.defaultNS.URI) {
		return
	}
	for _, have := range e.namespaces {
		if have.Name == ns.Name {
			return
		}
	}
	e.namespaces = append(e.namespaces, ns)
}

func (e *xmlEmitter) emitRoot(v reflect.Value, expected reflect.Type) error {
	cfg := e.cfg
	if cfg.EnableNamespaces && cfg.AutoDetectNamespaces {
		e.findNamespaces(v)
	}
	var eMeta *TypeMeta
	if expected != nil {
		eMeta = e.meta(expected)
	}
	_, err := e.emitAny(v, xmlNode{
		eMeta: eMeta,
		addNS: cfg.EnableNamespaces && cfg.AddNamespaceURIsToRoot,
	})
	return err
}

// findNamespaces walks the value graph ahead of emission and collects every
// namespace it will need, so the root can declare them all. The walk is
// best-effort; cycles and depth limits end a branch silently and the main
// pass reports them.
func (e *xmlEmitter) findNamespaces(v reflect.Value) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}
	suppressed, err := e.push("", v)
	if suppressed || err != nil {
		return
	}
	defer e.pop()

	m := e.meta(v.Type())
	e.addNamespace(m.Namespace)
	switch m.Category {
	case RECORD:
		rm := m.record
		if rm == nil {
			return
		}
		for _, p := range rm.Properties {
			if !p.CanRead {
				continue
			}
			e.addNamespace(p.Namespace)
			if pv := p.value(v); pv.IsValid() {
				e.findNamespaces(pv)
			}
		}
	case MAP:
		iter := v.MapRange()
		for iter.Next() {
			e.findNamespaces(iter.Value())
		}
	case COLLECTION, ARRAY:
		for i := 0; i < v.Len(); i++ {
			e.findNamespaces(v.Index(i))
		}
	}
}

// ============================================================================
// Node emission
// ============================================================================

// emitAny renders one value of any shape and reports what its content turned
// out to be. The declared type in n decides discriminators and null
// substitution; everything else follows the resolved runtime type.
func (e *xmlEmitter) emitAny(v reflect.Value, n xmlNode) (contentShape, error) {
	w := e.w
	cfg := e.cfg

	eMeta := n.eMeta
	if eMeta == nil {
		eMeta = e.meta(anyType)
	}

	// Indent of this node's own tags. Children indent one deeper through
	// the stack.
	i := e.indent
	if n.mixed {
		i = 0
	}

	pathName := n.key
	if pathName == "" {
		pathName = n.elem
	}
	suppressed, err := e.push(pathName, v)
	if err != nil {
		return csNone, err
	}
	if suppressed {
		v = reflect.Value{}
	} else {
		defer e.pop()
	}

	res, err := e.resolve(v)
	if err != nil {
		return csNone, err
	}

	// A declared boolean or number cannot represent null; emit its zero
	// value instead. Pointer and optional declarations keep the null
	// marker.
	if res.null {
		if zv := zeroSubstitute(eMeta); zv.IsValid() {
			m := e.meta(zv.Type())
			res = resolved{v: zv, aMeta: m, orig: m}
		}
	}
	if !res.null && isZeroChar(res.v, res.aMeta) {
		res = resolved{null: true, orig: res.orig}
	}

	aMeta := res.aMeta
	if aMeta == nil {
		aMeta = e.meta(anyType)
	}
	origMeta := res.orig
	if origMeta == nil {
		origMeta = e.meta(anyType)
	}

	// Raw content carries no element of its own; an unnamed raw node never
	// takes the category fallback name.
	isRaw := !res.null && (aMeta.Category == READER || aMeta.Category == INPUT_STREAM)

	jsonType := "null"
	if !res.null {
		jsonType = aMeta.Category.jsonName()
	}

	expected := isExpected(eMeta, origMeta)
	resolvedDict := ""
	if !expected {
		resolvedDict = e.dictName(origMeta)
	}
	dict := e.dictName(origMeta)
	if dict == "" && !res.null {
		dict = e.dictName(aMeta)
	}

	collapsed := false
	if !res.null && aMeta.Category.isCollectionOrArray() {
		collapsed = n.format == XMLElement && n.pMeta != nil && !n.addNS
	}
	if (n.format == XMLText || n.format == XMLMixed) &&
		(jsonType == "null" || jsonType == "string" || jsonType == "number" || jsonType == "boolean") {
		collapsed = true
	}

	// An unnamed node takes the dictionary name as its element name; a
	// node named only by its key promotes the key. A surviving key that
	// differs from the element name rides along as a name attribute.
	name := n.key
	elem := n.elem
	if elem == "" && dict != "" {
		elem = dict
		expected = !res.null
	}
	if elem == "" {
		elem = name
		name = ""
	}
	if name == elem {
		name = ""
	}

	elemNS := n.ns
	if cfg.EnableNamespaces {
		if elemNS == nil {
			elemNS = aMeta.Namespace
		}
		if elemNS == nil {
			elemNS = origMeta.Namespace
		}
		if elemNS != nil && elemNS.URI == "" {
			elemNS = nil
		}
		if elemNS == nil {
			elemNS = e.defaultNS
		}
	} else {
		elemNS = nil
	}

	cr := !res.null && (aMeta.Category.isMapOrRecord() || aMeta.Category.isCollectionOrArray()) && !n.mixed

	typeName := jsonType
	en := elem
	if en == "" && !isRaw && cfg.AddJSONTags {
		en = typeName
		typeName = ""
	}

	encodeEn := elem != ""
	nsName := ""
	if elemNS != nil {
		nsName = elemNS.Name
	}
	dns, elementNs := "", ""
	if cfg.EnableNamespaces {
		if elem == "" {
			if e.defaultNS != nil {
				dns = e.defaultNS.Name
			}
			elementNs = dns
			elemNS = nil
		} else {
			elementNs = nsName
		}
	}

	// Render the start tag.
	if !collapsed {
		if en != "" {
			w.oTag(i, elementNs, en, encodeEn)
			if n.addNS {
				if e.defaultNS != nil {
					w.attr("", "xmlns", e.defaultNS.URI)
				}
				for _, x := range e.namespaces {
					w.attr("xmlns", x.Name, x.URI)
				}
			}
			if !expected {
				if resolvedDict != "" {
					w.attr(dns, cfg.TypeTagName, resolvedDict)
				} else if typeName != "" && typeName != "string" {
					w.attr(dns, cfg.TypeTagName, typeName)
				}
			}
			if name != "" {
				w.attr("", cfg.NameTagName, name)
			}
		} else {
			w.ind(i)
		}

		if !res.null && !(aMeta.Category.isMapOrRecord() || en == "") {
			w.gt()
		}
		if cr && !aMeta.Category.isMapOrRecord() {
			w.nl(i + 1)
		}
	}

	open := !collapsed && en != ""
	shape := csElements

	// Render the content.
	if !res.null {
		switch aMeta.Category {
		case STRING, CHAR_SEQUENCE, CHAR, DATE, URI, ENUM:
			w.text(e.scalarText(res.v, aMeta, n.preserve))
		case NUMBER, DECIMAL, BOOLEAN:
			w.raw(e.scalarText(res.v, aMeta, false))
		case MAP:
			shape, err = e.emitMap(res.v, aMeta.ValueMeta, open, n.mixed)
		case RECORD:
			shape, err = e.emitRecord(res.v, aMeta.record, elemNS, open, n.mixed)
		case COLLECTION, ARRAY:
			childName, childNS := "", (*Namespace)(nil)
			if n.pMeta != nil {
				childName = n.pMeta.ChildName
				childNS = n.pMeta.Namespace
			}
			if collapsed && childName == "" {
				childName = n.key
			}
			if collapsed {
				e.indent--
			}
			err = e.emitCollection(res.v, aMeta.ElemMeta, childName, childNS, n.mixed)
			if collapsed {
				e.indent++
			}
		case READER:
			if _, cerr := io.Copy(w, res.v.Interface().(io.Reader)); cerr != nil {
				err = e.fail(cerr)
			}
		case INPUT_STREAM:
			w.base64(res.v.Bytes())
		case VOID:
			err = e.fail(fmt.Errorf("%w: %s", ErrUnsupportedValue, res.v.Type()))
		default:
			w.text(e.otherText(res.v))
		}
		if err != nil {
			return csNone, err
		}
	}

	// Render the end tag.
	if !collapsed {
		if en != "" {
			switch {
			case shape == csEmpty, shape == csNone, res.null:
				w.closeEmpty()
			default:
				if cr && shape != csMixed {
					w.ind(i)
				}
				w.eTag(elementNs, en, encodeEn)
			}
		}
		if !n.mixed {
			w.nl(i)
		}
	}

	return shape, nil
}

// emitRecord renders a record's attribute properties into the open tag, then
// its element children or character content. open reports whether a start
// tag is pending closure.
func (e *xmlEmitter) emitRecord(v reflect.Value, rm *RecordMeta, elemNS *Namespace, open, mixed bool) (contentShape, error) {
	w := e.w
	cfg := e.cfg

	for _, p := range rm.attrs {
		if !p.CanRead {
			continue
		}
		res, err := e.resolve(p.value(v))
		if err != nil {
			return csNone, err
		}
		if e.canIgnore(res) {
			continue
		}
		prefix := ""
		if cfg.EnableNamespaces && p.Namespace != nil && p.Namespace.URI != "" {
			if elemNS == nil || p.Namespace.Name != elemNS.Name {
				prefix = p.Namespace.Name
			}
		}
		if res.null {
			w.attr(prefix, p.Name, "")
			continue
		}
		// A map-typed attribute property expands into one attribute per
		// entry.
		if res.aMeta.Category == MAP {
			for _, ent := range e.mapEntries(res.v) {
				vres, err := e.resolve(ent.v)
				if err != nil {
					return csNone, err
				}
				w.attr(prefix, ent.key, e.attrText(vres))
			}
			continue
		}
		w.attr(prefix, p.Name, e.attrText(res))
	}

	hasChildren := false
	for _, p := range rm.elements {
		if !p.CanRead {
			continue
		}
		pv := p.value(v)
		res, err := e.resolve(pv)
		if err != nil {
			return csNone, err
		}
		if e.canIgnore(res) {
			continue
		}
		if !hasChildren {
			hasChildren = true
			if open {
				w.gt()
			}
			if !mixed {
				w.nl(e.indent)
			}
		}
		if _, err := e.emitAny(pv, xmlNode{
			eMeta:    p.Meta,
			key:      p.Name,
			ns:       p.Namespace,
			format:   p.Format,
			mixed:    mixed,
			preserve: p.PreserveWhitespace,
			pMeta:    p,
		}); err != nil {
			return csNone, err
		}
	}

	cp := rm.content
	if cp == nil || !cp.CanRead {
		switch {
		case hasChildren:
			return csElements, nil
		case rm.Void:
			return csNone, nil
		}
		return csEmpty, nil
	}

	// Character content replaces element children entirely.
	mixed = true
	preserve := cp.PreserveWhitespace
	pv := cp.value(v)
	res, err := e.resolve(pv)
	if err != nil {
		return csNone, err
	}
	if res.null {
		if cfg.AddJSONTags {
			w.attr("", "nil", "true")
		}
		if open {
			w.gt()
		}
		return csMixed, nil
	}
	if open {
		w.gt()
	}
	if res.aMeta.Category.isCollectionOrArray() {
		prevText := false
		for i := 0; i < res.v.Len(); i++ {
			x := res.v.Index(i)
			curText := e.isTextNode(x)
			if prevText && curText && cfg.TextNodeDelimiter != "" {
				w.raw(cfg.TextNodeDelimiter)
			}
			if _, err := e.emitAny(x, xmlNode{
				eMeta:    res.aMeta.ElemMeta,
				format:   cp.Format,
				mixed:    true,
				preserve: preserve,
			}); err != nil {
				return csNone, err
			}
			prevText = curText
		}
	} else {
		if _, err := e.emitAny(pv, xmlNode{
			eMeta:    cp.Meta,
			format:   cp.Format,
			mixed:    true,
			preserve: preserve,
		}); err != nil {
			return csNone, err
		}
	}
	return csMixed, nil
}

// attrText renders a resolved value as attribute text.
func (e *xmlEmitter) attrText(res resolved) string {
	if res.null {
		return ""
	}
	if res.aMeta.Category.isScalar() {
		return e.scalarText(res.v, res.aMeta, false)
	}
	return e.otherText(res.v)
}

// emitCollection renders the elements of a collection as siblings. The
// enclosing element, if any, was rendered by the caller.
func (e *xmlEmitter) emitCollection(v reflect.Value, elemMeta *TypeMeta, childName string, childNS *Namespace, mixed bool) error {
	elems, err := e.collectionElems(v)
	if err != nil {
		return err
	}
	prevText := false
	for _, x := range elems {
		curText := e.isTextNode(x)
		if prevText && curText && e.cfg.TextNodeDelimiter != "" {
			e.w.raw(e.cfg.TextNodeDelimiter)
		}
		if _, err := e.emitAny(x, xmlNode{
			eMeta: elemMeta,
			elem:  childName,
			ns:    childNS,
			mixed: mixed,
		}); err != nil {
			return err
		}
		prevText = curText
	}
	return nil
}

// isTextNode reports whether x renders as bare text when collapsed, which
// decides text node delimiter placement.
func (e *xmlEmitter) isTextNode(x reflect.Value) bool {
	for x.Kind() == reflect.Interface {
		if x.IsNil() {
			return false
		}
		x = x.Elem()
	}
	if !x.IsValid() {
		return false
	}
	switch e.meta(x.Type()).Category {
	case STRING, CHAR_SEQUENCE, CHAR:
		return true
	}
	return false
}

// emitMap renders map entries as child elements named by their keys. Entries
// are never dropped; a null value renders a childless element.
func (e *xmlEmitter) emitMap(v reflect.Value, valueMeta *TypeMeta, open, mixed bool) (contentShape, error) {
	w := e.w
	hasChildren := false
	for _, ent := range e.mapEntries(v) {
		if !hasChildren {
			hasChildren = true
			if open {
				w.gt()
			}
			if !mixed {
				w.nl(e.indent)
			}
		}
		if _, err := e.emitAny(ent.v, xmlNode{
			eMeta: valueMeta,
			key:   ent.key,
			mixed: mixed,
		}); err != nil {
			return csNone, err
		}
	}
	if hasChildren {
		return csElements, nil
	}
	return csEmpty, nil
}
