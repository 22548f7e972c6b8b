/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package formats

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"

	"github.com/leoloveisme/crowdly-sub001/internal/container"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
)

const proseSample = "## Chapter\n\nHello **bold** and *it* and ~~gone~~.\n\n> quoted\n\n```\nx := 1\n```\n\n---\n\nThe end.\n"

func TestDOCXEncodeParts(t *testing.T) {
	out, err := DOCX{}.Encode(context.Background(), docOf(proseSample), Options{Title: "My Title", Author: "Ann", Modified: testStamp})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, parts := unzip(t, out)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/styles.xml", "word/_rels/document.xml.rels", "docProps/core.xml"} {
		if _, ok := parts[name]; !ok {
			t.Fatalf("missing part %s", name)
		}
	}
	doc, err := xmlquery.Parse(strings.NewReader(parts["word/document.xml"]))
	if err != nil {
		t.Fatalf("document.xml does not parse: %v", err)
	}
	styles := map[string]bool{}
	for _, n := range xmlquery.Find(doc, "//*[local-name()='pStyle']") {
		styles[container.Attr(n, "val")] = true
	}
	for _, want := range []string{"Title", "Heading2", "Quote", "Code"} {
		if !styles[want] {
			t.Fatalf("paragraph style %s not used; got %v", want, styles)
		}
	}
	for _, prop := range []string{"b", "i", "strike"} {
		if xmlquery.FindOne(doc, "//*[local-name()='rPr']/*[local-name()='"+prop+"']") == nil {
			t.Fatalf("no run with w:%s", prop)
		}
	}
	if !strings.Contains(parts["word/styles.xml"], `w:styleId="Quote"`) || !strings.Contains(parts["word/styles.xml"], "w:left") {
		t.Fatal("Quote style needs a left border")
	}
	if !strings.Contains(parts["docProps/core.xml"], "<dc:creator>Ann</dc:creator>") {
		t.Fatalf("core.xml missing creator: %s", parts["docProps/core.xml"])
	}
}

func TestDOCXRoundTrip(t *testing.T) {
	out, err := DOCX{}.Encode(context.Background(), docOf(proseSample), Options{Title: "My Title", Author: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	d, err := DOCX{}.Decode(context.Background(), out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Title != "My Title" || d.Author != "Ann" {
		t.Fatalf("metadata lost: %+v", d)
	}
	for _, want := range []string{"# My Title", "## Chapter", "**bold**", "*it*", "~~gone~~", "> quoted", "x := 1", "The end."} {
		if !strings.Contains(d.Content, want) {
			t.Fatalf("decoded content missing %q:\n%s", want, d.Content)
		}
	}
}

func TestDOCXDecodeFailures(t *testing.T) {
	ctx := context.Background()
	var se *errs.StructuralError
	if _, err := (DOCX{}).Decode(ctx, []byte("not a zip")); !errors.As(err, &se) {
		t.Fatalf("expected structural error for garbage, got %v", err)
	}
	out, err := DOCX{}.Encode(ctx, docOf("text\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, parts := unzip(t, out)
	if _, err := (DOCX{}).Decode(ctx, rezip(t, parts, "word/document.xml")); !errors.As(err, &se) || se.Path != "word/document.xml" {
		t.Fatalf("expected structural error naming document.xml, got %v", err)
	}
	parts["word/document.xml"] = `<w:document xmlns:w="x"><w:body><w:p/></w:body></w:document>`
	if _, err := (DOCX{}).Decode(ctx, rezip(t, parts, "")); !errors.Is(err, errs.ErrContent) {
		t.Fatalf("expected content error for empty body, got %v", err)
	}
	parts["word/document.xml"] = `<w:document><w:body>`
	if _, err := (DOCX{}).Decode(ctx, rezip(t, parts, "")); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("expected structural error for malformed XML, got %v", err)
	}
}

func TestDOCXTag(t *testing.T) {
	cases := map[string]string{
		"Title": "h1", "Heading1": "h1", "heading 3": "h3", "Heading6": "h6", "Heading7": "p",
		"Quote": "blockquote", "IntenseQuote": "blockquote", "Code": "pre", "HTMLPreformatted": "pre", "": "p",
	}
	for in, want := range cases {
		if got := docxTag(in); got != want {
			t.Fatalf("docxTag(%q) = %q, want %q", in, got, want)
		}
	}
}
