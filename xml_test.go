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
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestXMLScalarRoots renders each scalar category at the root, where the
// element name falls back to the generic category name.
func TestXMLScalarRoots(t *testing.T) {
	l := New()
	cases := []struct {
		name string
		v    interface{}
		want string
	}{
		{"Int", 42, `<number>42</number>`},
		{"Float", 3.14, `<number>3.14</number>`},
		{"Bool", true, `<boolean>true</boolean>`},
		{"String", "hi", `<string>hi</string>`},
		{"Date", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), `<string>2024-03-01T10:30:00Z</string>`},
		{"EmptyStruct", struct{}{}, `<string>{}</string>`},
		{"Null", nil, `<null/>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := l.Serialize(tc.v)
			require.NoError(t, err)
			require.Equal(t, tc.want, string(out))
		})
	}

	t.Run("URL", func(t *testing.T) {
		u, err := url.Parse("https://example.com/docs")
		require.NoError(t, err)
		out, err := l.Serialize(*u)
		require.NoError(t, err)
		require.Equal(t, `<string>https://example.com/docs</string>`, string(out))
	})

	t.Run("Char", func(t *testing.T) {
		type letter rune
		cl := New()
		require.NoError(t, cl.RegisterTypeConfig(letter('a'), TypeConfig{Category: CHAR}))
		out, err := cl.Serialize(letter('A'))
		require.NoError(t, err)
		require.Equal(t, `<string>A</string>`, string(out))
	})
}

// TestXMLEnums renders named ordinals by name and falls back to the ordinal
// with a warning when no name was registered.
func TestXMLEnums(t *testing.T) {
	type color int
	log := &captureLogger{}
	l := New(WithLogger(log))
	require.NoError(t, l.RegisterEnum(color(0), "red", "green", "blue"))

	out, err := l.Serialize(color(1))
	require.NoError(t, err)
	require.Equal(t, `<string>green</string>`, string(out))

	out, err = l.Serialize(color(7))
	require.NoError(t, err)
	require.Equal(t, `<string>7</string>`, string(out))
	require.True(t, log.contains("has no name for ordinal 7"))
}

// TestXMLRecordNames promotes a registered type name into the element name
// and keeps the displaced property name as an attribute.
func TestXMLRecordNames(t *testing.T) {
	type family struct {
		Spouse *Person
	}
	l := New()
	require.NoError(t, l.RegisterNamedType(Person{}, "Person"))

	out, err := l.Serialize(family{Spouse: &Person{Name: "Ann", Age: 30}})
	require.NoError(t, err)
	require.Equal(t, `<object><Person _name="spouse"><name>Ann</name><age>30</age></Person></object>`, string(out))
}

// TestXMLNullHandling covers dropped and kept null properties, null markers
// and the zero substitutions for non-nullable declarations.
func TestXMLNullHandling(t *testing.T) {
	type couple struct {
		Spouse *Person
	}

	t.Run("DroppedByDefault", func(t *testing.T) {
		out, err := New().Serialize(couple{})
		require.NoError(t, err)
		require.Equal(t, `<object/>`, string(out))
	})

	t.Run("KeptNullPointer", func(t *testing.T) {
		out, err := New(WithKeepNullProperties(true)).Serialize(couple{})
		require.NoError(t, err)
		require.Equal(t, `<object><spouse _type="null"/></object>`, string(out))
	})

	t.Run("EmptyCollectionProperty", func(t *testing.T) {
		type box struct {
			Items []int
		}
		out, err := New().Serialize(box{Items: []int{}})
		require.NoError(t, err)
		require.Equal(t, `<object></object>`, string(out))

		out, err = New().Serialize(box{})
		require.NoError(t, err)
		require.Equal(t, `<object/>`, string(out))
	})

	t.Run("ZeroSubstitution", func(t *testing.T) {
		type base struct {
			Age int
		}
		type derived struct {
			*base
			Name string
		}
		out, err := New(WithKeepNullProperties(true)).Serialize(derived{Name: "x"})
		require.NoError(t, err)
		require.Equal(t, `<object><age>0</age><name>x</name></object>`, string(out))
	})

	t.Run("ZeroChar", func(t *testing.T) {
		type letter rune
		type cell struct {
			C letter
		}
		l := New()
		require.NoError(t, l.RegisterTypeConfig(letter(0), TypeConfig{Category: CHAR}))

		out, err := l.Serialize(cell{})
		require.NoError(t, err)
		require.Equal(t, `<object><c/></object>`, string(out))

		out, err = l.Serialize(letter(0))
		require.NoError(t, err)
		require.Equal(t, `<null/>`, string(out))
	})
}

// TestXMLCollections covers root collections, the collapsed and wrapped
// property renderings, and scalar sorting.
func TestXMLCollections(t *testing.T) {
	type post struct {
		Title string
		Tags  []string
	}

	t.Run("Root", func(t *testing.T) {
		out, err := New().Serialize([]int{1, 2, 3})
		require.NoError(t, err)
		require.Equal(t, `<array><number>1</number><number>2</number><number>3</number></array>`, string(out))
	})

	t.Run("RegisteredElements", func(t *testing.T) {
		l := New()
		require.NoError(t, l.RegisterNamedType(Person{}, "Person"))
		out, err := l.Serialize([]Person{{Name: "John Smith", Age: 21}})
		require.NoError(t, err)
		require.Equal(t, `<array><Person><name>John Smith</name><age>21</age></Person></array>`, string(out))
	})

	t.Run("CollapsedProperty", func(t *testing.T) {
		out, err := New().Serialize(post{Title: "t", Tags: []string{"a", "b"}})
		require.NoError(t, err)
		require.Equal(t, `<object><title>t</title><tags>a</tags><tags>b</tags></object>`, string(out))
	})

	t.Run("WrappedProperty", func(t *testing.T) {
		l := New()
		require.NoError(t, l.RegisterRecordConfig(post{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Tags": {Format: XMLWrapped},
			},
		}))
		out, err := l.Serialize(post{Title: "t", Tags: []string{"a", "b"}})
		require.NoError(t, err)
		require.Equal(t, `<object><title>t</title><tags><string>a</string><string>b</string></tags></object>`, string(out))
	})

	t.Run("WrappedWithChildName", func(t *testing.T) {
		l := New()
		require.NoError(t, l.RegisterRecordConfig(post{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Tags": {Format: XMLWrapped, ChildName: "tag"},
			},
		}))
		out, err := l.Serialize(post{Title: "t", Tags: []string{"a", "b"}})
		require.NoError(t, err)
		require.Equal(t, `<object><title>t</title><tags><tag>a</tag><tag>b</tag></tags></object>`, string(out))
	})

	t.Run("SortedScalars", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.SortCollections = true
		out, err := New(WithConfig(cfg)).Serialize([]string{"c", "a", "b"})
		require.NoError(t, err)
		require.Equal(t, `<array><string>a</string><string>b</string><string>c</string></array>`, string(out))
	})
}

// TestXMLMaps renders map entries as elements named by their keys, with type
// hints where the value type is not evident.
func TestXMLMaps(t *testing.T) {
	t.Run("TypedValues", func(t *testing.T) {
		out, err := New(WithSortMaps(true)).Serialize(map[string]int{"b": 2, "a": 1})
		require.NoError(t, err)
		require.Equal(t, `<object><a>1</a><b>2</b></object>`, string(out))
	})

	t.Run("InterfaceValues", func(t *testing.T) {
		v := map[string]interface{}{"s": "x", "n": 3, "b": true, "z": nil}
		out, err := New(WithSortMaps(true)).Serialize(v)
		require.NoError(t, err)
		require.Equal(t,
			`<object><b _type="boolean">true</b><n _type="number">3</n><s>x</s><z/></object>`,
			string(out))
	})

	t.Run("EncodedKeys", func(t *testing.T) {
		out, err := New().Serialize(map[int]string{1: "a"})
		require.NoError(t, err)
		require.Equal(t, `<object><_x0031_>a</_x0031_></object>`, string(out))
	})

	t.Run("NestedInterfaceMap", func(t *testing.T) {
		v := map[string]interface{}{"inner": map[string]int{"k": 5}}
		out, err := New(WithSortMaps(true)).Serialize(v)
		require.NoError(t, err)
		require.Equal(t, `<object><inner _type="object"><k>5</k></inner></object>`, string(out))
	})

	t.Run("NilMapRoot", func(t *testing.T) {
		out, err := New().Serialize(map[string]int(nil))
		require.NoError(t, err)
		require.Equal(t, `<null/>`, string(out))
	})

	t.Run("EmptyMapRoot", func(t *testing.T) {
		out, err := New().Serialize(map[string]int{})
		require.NoError(t, err)
		require.Equal(t, `<object/>`, string(out))
	})
}

// TestXMLCycles fails on revisited values by default and substitutes null
// placeholders under cycle suppression.
func TestXMLCycles(t *testing.T) {
	ring := func() *LinkedNode {
		a := &LinkedNode{Value: 1}
		b := &LinkedNode{Value: 2}
		a.Next, b.Next = b, a
		return a
	}

	t.Run("FatalByDefault", func(t *testing.T) {
		_, err := New().Serialize(ring())
		require.ErrorIs(t, err, ErrRecursion)
		require.Contains(t, err.Error(), `"next.next" revisits`)

		var serr *SerializeError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, "next", serr.Path)
	})

	t.Run("Suppressed", func(t *testing.T) {
		log := &captureLogger{}
		l := New(WithCycleSuppression(true), WithLogger(log))
		out, err := l.Serialize(ring())
		require.NoError(t, err)
		require.Equal(t,
			`<object><value>1</value><next><value>2</value><next _type="null"/></next></object>`,
			string(out))
		require.True(t, log.contains(`cycle at "next.next" suppressed`))
	})

	t.Run("DebugForcesError", func(t *testing.T) {
		_, err := New(WithCycleSuppression(true), WithDebug(true)).Serialize(ring())
		require.ErrorIs(t, err, ErrRecursion)
	})
}

// TestXMLMaxDepth drops children past the depth limit, or fails when kept
// nulls force the traversal to descend.
func TestXMLMaxDepth(t *testing.T) {
	chain := &LinkedNode{Value: 1, Next: &LinkedNode{Value: 2, Next: &LinkedNode{Value: 3}}}

	t.Run("DropsBeyondLimit", func(t *testing.T) {
		out, err := New(WithMaxDepth(2)).Serialize(chain)
		require.NoError(t, err)
		require.Equal(t, `<object><value>1</value><next/></object>`, string(out))
	})

	t.Run("FailsWhenKept", func(t *testing.T) {
		_, err := New(WithMaxDepth(2), WithKeepNullProperties(true)).Serialize(chain)
		require.ErrorIs(t, err, ErrMaxDepthExceeded)
	})

	t.Run("ZeroDepth", func(t *testing.T) {
		_, err := New(WithMaxDepth(0)).Serialize(1)
		require.ErrorIs(t, err, ErrMaxDepthExceeded)
	})
}

// TestXMLWhitespace indents nested elements with tabs and keeps collapsed
// collection children at their property's level.
func TestXMLWhitespace(t *testing.T) {
	t.Run("FlatRecord", func(t *testing.T) {
		out, err := New(WithWhitespace(true)).Serialize(Person{Name: "John Smith", Age: 21})
		require.NoError(t, err)
		require.Equal(t, "<object>\n\t<name>John Smith</name>\n\t<age>21</age>\n</object>\n", string(out))
	})

	t.Run("NestedRecord", func(t *testing.T) {
		type wrap struct {
			P Person
		}
		out, err := New(WithWhitespace(true)).Serialize(wrap{P: Person{Name: "John Smith", Age: 21}})
		require.NoError(t, err)
		require.Equal(t,
			"<object>\n\t<p>\n\t\t<name>John Smith</name>\n\t\t<age>21</age>\n\t</p>\n</object>\n",
			string(out))
	})

	t.Run("CollapsedCollection", func(t *testing.T) {
		type post struct {
			Title string
			Tags  []string
		}
		out, err := New(WithWhitespace(true)).Serialize(post{Title: "t", Tags: []string{"a", "b"}})
		require.NoError(t, err)
		require.Equal(t,
			"<object>\n\t<title>t</title>\n\t<tags>a</tags>\n\t<tags>b</tags>\n</object>\n",
			string(out))
	})
}

// TestXMLNamespaces covers default namespace suppression, root declarations
// and prefixed property elements.
func TestXMLNamespaces(t *testing.T) {
	type place struct {
		City string
	}
	geo := Namespace{Name: "geo", URI: "urn:geo"}

	t.Run("DefaultSuppressed", func(t *testing.T) {
		out, err := New(WithNamespaces(true)).Serialize(Person{Name: "John Smith", Age: 21})
		require.NoError(t, err)
		require.Equal(t, `<object><name>John Smith</name><age>21</age></object>`, string(out))
	})

	t.Run("RootDeclaration", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.EnableNamespaces = true
		cfg.AddNamespaceURIsToRoot = true
		out, err := New(WithConfig(cfg)).Serialize(Person{Name: "John Smith", Age: 21})
		require.NoError(t, err)
		require.Equal(t,
			`<object xmlns="https://loomcodec.dev/xmlns/loom"><name>John Smith</name><age>21</age></object>`,
			string(out))
	})

	t.Run("PrefixedProperty", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.EnableNamespaces = true
		cfg.AddNamespaceURIsToRoot = true
		l := New(WithConfig(cfg))
		require.NoError(t, l.RegisterRecordConfig(place{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"City": {Namespace: &geo},
			},
		}))
		out, err := l.Serialize(place{City: "Rome"})
		require.NoError(t, err)
		require.Equal(t,
			`<object xmlns="https://loomcodec.dev/xmlns/loom" xmlns:geo="urn:geo"><geo:city>Rome</geo:city></object>`,
			string(out))
	})

	t.Run("WithoutAutodetect", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.EnableNamespaces = true
		cfg.AddNamespaceURIsToRoot = true
		cfg.AutoDetectNamespaces = false
		l := New(WithConfig(cfg))
		require.NoError(t, l.RegisterRecordConfig(place{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"City": {Namespace: &geo},
			},
		}))
		out, err := l.Serialize(place{City: "Rome"})
		require.NoError(t, err)
		require.Equal(t,
			`<object xmlns="https://loomcodec.dev/xmlns/loom"><geo:city>Rome</geo:city></object>`,
			string(out))
	})
}

// TestXMLContentProperties renders attribute and character-content properties
// declared through record configuration.
func TestXMLContentProperties(t *testing.T) {
	t.Run("AttrAndText", func(t *testing.T) {
		type note struct {
			Lang string
			Text string
		}
		l := New()
		require.NoError(t, l.RegisterRecordConfig(note{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Lang": {Format: XMLAttr},
				"Text": {Format: XMLText},
			},
		}))
		out, err := l.Serialize(note{Lang: "en", Text: "hello <world>"})
		require.NoError(t, err)
		require.Equal(t, `<object lang="en">hello &lt;world&gt;</object>`, string(out))
	})

	t.Run("NilContent", func(t *testing.T) {
		type note struct {
			Lang string
			Text *string
		}
		l := New()
		require.NoError(t, l.RegisterRecordConfig(note{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Lang": {Format: XMLAttr},
				"Text": {Format: XMLText},
			},
		}))
		out, err := l.Serialize(note{Lang: "en"})
		require.NoError(t, err)
		require.Equal(t, `<object lang="en" nil="true"></object>`, string(out))
	})

	t.Run("MixedInline", func(t *testing.T) {
		type bold struct {
			Text string
		}
		type para struct {
			Content []interface{}
		}
		l := New()
		require.NoError(t, l.RegisterRecordConfig(bold{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Text": {Format: XMLText},
			},
		}))
		require.NoError(t, l.RegisterNamedType(bold{}, "b"))
		require.NoError(t, l.RegisterRecordConfig(para{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Content": {Format: XMLMixed},
			},
		}))
		out, err := l.Serialize(para{Content: []interface{}{"Hello ", bold{Text: "big"}, " world"}})
		require.NoError(t, err)
		require.Equal(t, `<object>Hello <b>big</b> world</object>`, string(out))
	})

	t.Run("TextNodeDelimiter", func(t *testing.T) {
		type para struct {
			Content []interface{}
		}
		cfg := defaultConfig()
		cfg.TextNodeDelimiter = "|"
		l := New(WithConfig(cfg))
		require.NoError(t, l.RegisterRecordConfig(para{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Content": {Format: XMLMixed},
			},
		}))
		out, err := l.Serialize(para{Content: []interface{}{"a", "b"}})
		require.NoError(t, err)
		require.Equal(t, `<object>a|b</object>`, string(out))
	})

	t.Run("AttrMapExpansion", func(t *testing.T) {
		type tagged struct {
			Meta map[string]string
			Body string
		}
		l := New(WithSortMaps(true))
		require.NoError(t, l.RegisterRecordConfig(tagged{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Meta": {Format: XMLAttr},
			},
		}))
		out, err := l.Serialize(tagged{Meta: map[string]string{"b": "2", "a": "1"}, Body: "x"})
		require.NoError(t, err)
		require.Equal(t, `<object a="1" b="2"><body>x</body></object>`, string(out))
	})
}

// TestXMLRawMode drops the generic element names when the type and name hints
// are disabled, leaving fragments.
func TestXMLRawMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.AddJSONTags = false
	l := New(WithConfig(cfg))

	out, err := l.Serialize("hi")
	require.NoError(t, err)
	require.Equal(t, "hi", string(out))

	out, err = l.Serialize(Person{Name: "John Smith", Age: 21})
	require.NoError(t, err)
	require.Equal(t, `<name>John Smith</name><age>21</age>`, string(out))
}

// TestXMLTrimming covers string trimming, whitespace preservation and the
// empty-container trims.
func TestXMLTrimming(t *testing.T) {
	t.Run("TrimStrings", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.TrimStrings = true
		out, err := New(WithConfig(cfg)).Serialize("  x  ")
		require.NoError(t, err)
		require.Equal(t, `<string>x</string>`, string(out))
	})

	t.Run("PreserveWhitespace", func(t *testing.T) {
		type memo struct {
			Note string
		}
		cfg := defaultConfig()
		cfg.TrimStrings = true
		l := New(WithConfig(cfg))
		require.NoError(t, l.RegisterRecordConfig(memo{}, RecordConfig{
			Properties: map[string]PropertyConfig{
				"Note": {PreserveWhitespace: true},
			},
		}))
		out, err := l.Serialize(memo{Note: "  x  "})
		require.NoError(t, err)
		require.Equal(t, `<object><note>  x  </note></object>`, string(out))
	})

	t.Run("TrimEmptyContainers", func(t *testing.T) {
		type box struct {
			Items []int
			Index map[string]int
		}
		cfg := defaultConfig()
		cfg.TrimEmptyCollections = true
		cfg.TrimEmptyMaps = true
		out, err := New(WithConfig(cfg)).Serialize(box{Items: []int{}, Index: map[string]int{}})
		require.NoError(t, err)
		require.Equal(t, `<object/>`, string(out))
	})
}

// TestXMLRawContent pipes readers and byte slices through without an element
// of their own at the root, and as base64 elements when named.
func TestXMLRawContent(t *testing.T) {
	t.Run("ByteSliceRoot", func(t *testing.T) {
		out, err := New().Serialize([]byte{1, 2})
		require.NoError(t, err)
		require.Equal(t, "AQI=", string(out))
	})

	t.Run("ByteSliceProperty", func(t *testing.T) {
		type file struct {
			Data []byte
		}
		out, err := New().Serialize(file{Data: []byte{1, 2}})
		require.NoError(t, err)
		require.Equal(t, `<object><data>AQI=</data></object>`, string(out))
	})

	t.Run("ReaderRoot", func(t *testing.T) {
		out, err := New().Serialize(strings.NewReader("<raw/>"))
		require.NoError(t, err)
		require.Equal(t, "<raw/>", string(out))
	})

	t.Run("ReaderProperty", func(t *testing.T) {
		type doc struct {
			Body io.Reader
		}
		out, err := New().Serialize(doc{Body: strings.NewReader("hello")})
		require.NoError(t, err)
		require.Equal(t, `<object><body>hello</body></object>`, string(out))
	})
}

// TestXMLUnsupportedValue rejects values with no serializable form.
func TestXMLUnsupportedValue(t *testing.T) {
	_, err := New().Serialize(make(chan int))
	require.ErrorIs(t, err, ErrUnsupportedValue)
}
