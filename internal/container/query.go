/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package container

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// ParseXML parses one XML part.
func ParseXML(data []byte) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return doc, nil
}

var (
	exprMu    sync.Mutex
	exprCache = map[string]*xpath.Expr{}
)

// compiled returns a cached expression. Expressions come from code, so a
// compile failure is a programming error.
func compiled(expr string) *xpath.Expr {
	exprMu.Lock()
	defer exprMu.Unlock()
	if e, ok := exprCache[expr]; ok {
		return e
	}
	e := xpath.MustCompile(expr)
	exprCache[expr] = e
	return e
}

// localPath turns "a/b" into a namespace-agnostic relative path.
func localPath(steps string, anywhere bool) string {
	parts := strings.Split(steps, "/")
	for i, p := range parts {
		parts[i] = "*[local-name()='" + p + "']"
	}
	if anywhere {
		return ".//" + strings.Join(parts, "/")
	}
	return "./" + strings.Join(parts, "/")
}

// Find returns every descendant of n (not only of its document) matching the slash-separated local-name path.
func Find(n *xmlquery.Node, steps string) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.QuerySelectorAll(n, compiled(localPath(steps, true)))
}

// FindOne returns the first descendant matching steps, or nil.
func FindOne(n *xmlquery.Node, steps string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.QuerySelector(n, compiled(localPath(steps, true)))
}

// Children returns direct child elements matching steps relative to n.
func Children(n *xmlquery.Node, steps string) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.QuerySelectorAll(n, compiled(localPath(steps, false)))
}

// Attr returns the value of the attribute with the given local name,
// whatever its namespace prefix.
func Attr(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// Text is the trimmed inner text of n.
func Text(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}
