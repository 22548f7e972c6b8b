/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package formats

import (
	"archive/zip"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leoloveisme/crowdly-sub001/internal/container"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
)

func TestSplitChapters(t *testing.T) {
	blocks := []domain.Block{
		domain.Paragraph("before"),
		domain.Heading(1, "One"),
		domain.Paragraph("a"),
		domain.Heading(2, "Sub"),
		domain.Heading(1, "**Two**"),
	}
	chs := splitChapters(blocks, "Book")
	if len(chs) != 3 {
		t.Fatalf("got %d chapters, want 3", len(chs))
	}
	if chs[0].Title != "Introduction" || chs[1].Title != "One" || chs[2].Title != "Two" {
		t.Fatalf("unexpected titles: %q %q %q", chs[0].Title, chs[1].Title, chs[2].Title)
	}
	if len(chs[1].Blocks) != 3 {
		t.Fatalf("chapter One should hold its heading, paragraph and subheading, got %d blocks", len(chs[1].Blocks))
	}
	if got := splitChapters(nil, "Book"); len(got) != 1 || got[0].Title != "Book" {
		t.Fatalf("empty document should yield one chapter named after the book: %+v", got)
	}
	if got := splitChapters([]domain.Block{domain.Heading(1, "Start")}, "Book"); len(got) != 1 || got[0].Title != "Start" {
		t.Fatalf("no introduction expected when the first block is a level-1 heading: %+v", got)
	}
}

func TestEPUBEncodeStructure(t *testing.T) {
	src := "Opening words.\n\n# One\n\nFirst **bold**.\n\n# Two\n\nSecond.\n"
	out, err := EPUB{}.Encode(context.Background(), docOf(src), Options{Title: "Book", Author: "Ann", Language: "de", Modified: testStamp})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	files, parts := unzip(t, out)
	if files[0].Name != "mimetype" || files[0].Method != zip.Store {
		t.Fatalf("first entry must be a stored mimetype, got %s method %d", files[0].Name, files[0].Method)
	}
	if parts["mimetype"] != "application/epub+zip" {
		t.Fatalf("mimetype = %q", parts["mimetype"])
	}
	for _, name := range []string{"META-INF/container.xml", "OEBPS/content.opf", "OEBPS/nav.xhtml", "OEBPS/toc.ncx", "OEBPS/styles.css",
		"OEBPS/chapter-001.xhtml", "OEBPS/chapter-002.xhtml", "OEBPS/chapter-003.xhtml"} {
		if _, ok := parts[name]; !ok {
			t.Fatalf("missing entry %s", name)
		}
	}
	opf := parts["OEBPS/content.opf"]
	for _, want := range []string{"urn:uuid:", "<dc:title>Book</dc:title>", "<dc:creator>Ann</dc:creator>", "<dc:language>de</dc:language>",
		`property="dcterms:modified">2025-03-01T12:00:00Z`, `<itemref idref="chapter-001"/>`} {
		if !strings.Contains(opf, want) {
			t.Fatalf("content.opf missing %q:\n%s", want, opf)
		}
	}
	if !strings.Contains(parts["OEBPS/nav.xhtml"], ">Introduction</a>") {
		t.Fatalf("nav lacks the introduction chapter:\n%s", parts["OEBPS/nav.xhtml"])
	}
	if !strings.Contains(parts["OEBPS/chapter-002.xhtml"], "<strong>bold</strong>") {
		t.Fatalf("inline formatting not carried into XHTML:\n%s", parts["OEBPS/chapter-002.xhtml"])
	}
}

func TestEPUBRoundTripIsTitlePrefixed(t *testing.T) {
	out, err := EPUB{}.Encode(context.Background(), docOf("Some text with *style*.\n"), Options{Title: "Book", Author: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	d, err := EPUB{}.Decode(context.Background(), out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(d.Content, "# Book\n\n") {
		t.Fatalf("content not title-prefixed:\n%s", d.Content)
	}
	if !strings.Contains(d.Content, "Some text with *style*.") {
		t.Fatalf("body lost:\n%s", d.Content)
	}
	if d.Title != "Book" || d.Author != "Ann" {
		t.Fatalf("metadata lost: %+v", d)
	}
}

func TestEPUBDecodeFailures(t *testing.T) {
	ctx := context.Background()
	empty, err := EPUB{}.Encode(ctx, domain.Document{}, Options{Title: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (EPUB{}).Decode(ctx, empty); !errors.Is(err, errs.ErrContent) {
		t.Fatalf("expected content error for a book without text, got %v", err)
	}
	_, parts := unzip(t, empty)
	if _, err := (EPUB{}).Decode(ctx, rezip(t, parts, "META-INF/container.xml")); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("expected structural error without container.xml, got %v", err)
	}
	parts["OEBPS/content.opf"] = "<package><manifest>"
	if _, err := (EPUB{}).Decode(ctx, rezip(t, parts, "")); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("expected structural error for malformed OPF, got %v", err)
	}
}

func TestODTEncodeStructure(t *testing.T) {
	out, err := ODT{}.Encode(context.Background(), docOf(proseSample), Options{Title: "Doc", Author: "Ann", Modified: testStamp})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	files, parts := unzip(t, out)
	if files[0].Name != "mimetype" || files[0].Method != zip.Store {
		t.Fatalf("first entry must be a stored mimetype, got %s", files[0].Name)
	}
	if parts["mimetype"] != "application/vnd.oasis.opendocument.text" {
		t.Fatalf("mimetype = %q", parts["mimetype"])
	}
	if !strings.Contains(parts["META-INF/manifest.xml"], `manifest:full-path="content.xml"`) {
		t.Fatal("manifest does not list content.xml")
	}
	content := parts["content.xml"]
	for _, want := range []string{
		`<text:p text:style-name="Title">Doc</text:p>`,
		`<text:h text:style-name="Heading_20_2" text:outline-level="2">Chapter</text:h>`,
		`<text:span text:style-name="T_b">bold</text:span>`,
		`<text:span text:style-name="T_s">gone</text:span>`,
		`text:style-name="Quotations"`,
		`text:style-name="Preformatted_20_Text"`,
		`text:style-name="Horizontal_20_Line"`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("content.xml missing %q:\n%s", want, content)
		}
	}
	if !strings.Contains(parts["meta.xml"], "<dc:title>Doc</dc:title>") {
		t.Fatal("meta.xml lacks the title")
	}
	if !strings.Contains(parts["styles.xml"], `style:name="Heading_20_1"`) {
		t.Fatal("styles.xml lacks heading styles")
	}
}

func TestODTRoundTrip(t *testing.T) {
	src := "## Scene\n\nHello **bold** and *it*.\n\n> a quote\n\n```\nline1\n  line2\n```\n"
	out, err := ODT{}.Encode(context.Background(), docOf(src), Options{Title: "Doc", Author: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	d, err := ODT{}.Decode(context.Background(), out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "# Doc\n\n" + src
	if d.Content != want {
		t.Fatalf("round trip mismatch:\n%q\nwant\n%q", d.Content, want)
	}
	if d.Title != "Doc" || d.Author != "Ann" {
		t.Fatalf("metadata lost: %+v", d)
	}
}

func TestODTDecodeFailures(t *testing.T) {
	ctx := context.Background()
	out, err := ODT{}.Encode(ctx, docOf("text\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, parts := unzip(t, out)
	var se *errs.StructuralError
	if _, err := (ODT{}).Decode(ctx, rezip(t, parts, "META-INF/manifest.xml")); !errors.As(err, &se) || se.Path != "META-INF/manifest.xml" {
		t.Fatalf("expected structural error naming the manifest, got %v", err)
	}
	parts["content.xml"] = `<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"><office:body><office:text/></office:body></office:document-content>`
	if _, err := (ODT{}).Decode(ctx, rezip(t, parts, "")); !errors.Is(err, errs.ErrContent) {
		t.Fatalf("expected content error for an empty body, got %v", err)
	}
}

func TestODTAutomaticParagraphStyles(t *testing.T) {
	rd := &odtReader{spans: map[string]domain.Run{}, parent: map[string]string{"P1": "Heading_20_3"}}
	content := `<office:document-content xmlns:office="o" xmlns:text="t" xmlns:style="s">
<office:body><office:text><text:list><text:list-item><text:p text:style-name="P1">Deep</text:p></text:list-item></text:list></office:text></office:body></office:document-content>`
	doc, err := container.ParseXML([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	rd.walk(doc)
	if len(rd.blocks) != 1 || rd.blocks[0] != domain.Heading(3, "Deep") {
		t.Fatalf("unexpected blocks %+v", rd.blocks)
	}
}
