/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package container

import (
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
)

// Elem is an element of an XML tree under construction, backed by an
// xmlquery node. Writers build a tree and serialize it once with
// xmlquery's escaping, so every format writes parts the same way.
type Elem struct {
	n *xmlquery.Node
}

// E creates an element. attrs are key/value pairs; an odd trailing key is ignored.
func E(name string, attrs ...string) *Elem {
	e := &Elem{n: &xmlquery.Node{Type: xmlquery.ElementNode, Data: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.Attr(attrs[i], attrs[i+1])
	}
	return e
}

// T creates a text node.
func T(s string) *Elem {
	return &Elem{n: &xmlquery.Node{Type: xmlquery.TextNode, Data: validXML(s)}}
}

// Attr sets (or appends) an attribute. Prefixed keys such as "xmlns:dc"
// keep their prefix.
func (e *Elem) Attr(k, v string) *Elem {
	e.n.SetAttr(k, validXML(v))
	return e
}

// Add appends children; nil children are skipped.
func (e *Elem) Add(kids ...*Elem) *Elem {
	for _, k := range kids {
		if k != nil {
			xmlquery.AddChild(e.n, k.n)
		}
	}
	return e
}

// Text appends a text child.
func (e *Elem) Text(s string) *Elem { return e.Add(T(s)) }

// Leaf is E(name, attrs...).Text(text).
func Leaf(name, text string, attrs ...string) *Elem { return E(name, attrs...).Text(text) }

// Len reports the number of children.
func (e *Elem) Len() int { return len(e.n.ChildNodes()) }

// Node exposes the underlying tree, e.g. for xpath assertions.
func (e *Elem) Node() *xmlquery.Node { return e.n }

// String serializes the subtree without a declaration. Childless elements
// are written as empty-element tags.
func (e *Elem) String() string {
	return e.n.OutputXMLWithOptions(xmlquery.WithOutputSelf(), xmlquery.WithEmptyTagSupport())
}

// XMLDeclaration is the prolog every part starts with.
const XMLDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Document serializes root with the XML declaration and an optional doctype
// line. xmlquery writes a declaration node with its attributes in slice
// order but has no way to emit a bare doctype, so the prolog is written here.
func Document(root *Elem, doctype string) []byte {
	var b strings.Builder
	b.WriteString(XMLDeclaration)
	if doctype != "" {
		b.WriteString(doctype)
		b.WriteByte('\n')
	}
	b.WriteString(root.String())
	b.WriteByte('\n')
	return []byte(b.String())
}

// validXML drops code points XML 1.0 cannot carry; xmlquery escapes markup
// characters but passes control characters through.
func validXML(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return !isXMLChar(r) }) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return -1
	}, s)
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD && r != utf8.RuneError) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
