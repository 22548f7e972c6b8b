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
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/leoloveisme/crowdly-sub001/internal/container"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	"github.com/leoloveisme/crowdly-sub001/internal/inline"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
)

// DOCX is the WordprocessingML adapter.
type DOCX struct{}

func (DOCX) Extension() string { return "docx" }
func (DOCX) MIME() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

const (
	nsW       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT      = "http://schemas.openxmlformats.org/package/2006/content-types"
	relOffice = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relCore   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relStyles = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"

	docxDocumentPath = "word/document.xml"
	docxCorePath     = "docProps/core.xml"
)

func (DOCX) Encode(ctx context.Context, doc domain.Document, opts Options) (out []byte, err error) {
	defer crash.Guard("docx", "encode", &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := container.E("w:body")
	if opts.Title != "" {
		body.Add(docxPara("Title", []domain.Run{{Text: opts.Title}}))
	}
	for _, b := range doc.Blocks {
		body.Add(docxBlock(b))
	}
	body.Add(container.E("w:sectPr").Add(
		container.E("w:pgSz", "w:w", "12240", "w:h", "15840"),
		container.E("w:pgMar", "w:top", "1440", "w:right", "1440", "w:bottom", "1440", "w:left", "1440"),
	))
	document := container.E("w:document", "xmlns:w", nsW).Add(body)

	pkg := container.New("")
	pkg.Level = opts.Level
	pkg.Modified = opts.modified()
	pkg.Add("[Content_Types].xml", docxContentTypes())
	pkg.Add("_rels/.rels", container.Document(container.E("Relationships", "xmlns", nsRels).Add(
		container.E("Relationship", "Id", "rId1", "Type", relOffice, "Target", docxDocumentPath),
		container.E("Relationship", "Id", "rId2", "Type", relCore, "Target", docxCorePath),
	), ""))
	pkg.Add(docxDocumentPath, container.Document(document, ""))
	pkg.Add("word/styles.xml", container.Document(docxStyles(), ""))
	pkg.Add("word/_rels/document.xml.rels", container.Document(container.E("Relationships", "xmlns", nsRels).Add(
		container.E("Relationship", "Id", "rId1", "Type", relStyles, "Target", "styles.xml"),
	), ""))
	pkg.Add(docxCorePath, container.Document(coreProps(opts), ""))
	return pkg.Bytes()
}

func docxContentTypes() []byte {
	const wml = "application/vnd.openxmlformats-officedocument.wordprocessingml."
	return container.Document(container.E("Types", "xmlns", nsCT).Add(
		container.E("Default", "Extension", "rels", "ContentType", "application/vnd.openxmlformats-package.relationships+xml"),
		container.E("Default", "Extension", "xml", "ContentType", "application/xml"),
		container.E("Override", "PartName", "/"+docxDocumentPath, "ContentType", wml+"document.main+xml"),
		container.E("Override", "PartName", "/word/styles.xml", "ContentType", wml+"styles+xml"),
		container.E("Override", "PartName", "/"+docxCorePath, "ContentType", "application/vnd.openxmlformats-package.core-properties+xml"),
	), "")
}

func coreProps(opts Options) *container.Elem {
	stamp := opts.modified().Format("2006-01-02T15:04:05Z")
	return container.E("cp:coreProperties",
		"xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties",
		"xmlns:dc", "http://purl.org/dc/elements/1.1/",
		"xmlns:dcterms", "http://purl.org/dc/terms/",
		"xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance",
	).Add(
		container.Leaf("dc:title", opts.Title),
		container.Leaf("dc:creator", opts.Author),
		container.Leaf("dc:language", opts.language()),
		container.Leaf("dcterms:created", stamp, "xsi:type", "dcterms:W3CDTF"),
		container.Leaf("dcterms:modified", stamp, "xsi:type", "dcterms:W3CDTF"),
	)
}

func docxBlock(b domain.Block) *container.Elem {
	switch b.Kind {
	case domain.KindHeading:
		return docxPara("Heading"+strconv.Itoa(clampLevel(b.Level)), inline.ToRuns(b.Text))
	case domain.KindBlockquote:
		return docxPara("Quote", inline.ToRuns(b.Text))
	case domain.KindCode:
		return docxPara("Code", []domain.Run{{Text: b.Text}})
	case domain.KindRule:
		return container.E("w:p").Add(container.E("w:pPr").Add(container.E("w:pBdr").Add(
			container.E("w:bottom", "w:val", "single", "w:sz", "6", "w:space", "1", "w:color", "auto"),
		)))
	default:
		return docxPara("", inline.ToRuns(b.Text))
	}
}

func clampLevel(l int) int {
	if l < 1 {
		return 1
	}
	if l > 6 {
		return 6
	}
	return l
}

func docxPara(style string, runs []domain.Run) *container.Elem {
	p := container.E("w:p")
	if style != "" {
		p.Add(container.E("w:pPr").Add(container.E("w:pStyle", "w:val", style)))
	}
	for _, r := range runs {
		p.Add(docxRun(r))
	}
	return p
}

func docxRun(r domain.Run) *container.Elem {
	run := container.E("w:r")
	if !r.Plain() {
		props := container.E("w:rPr")
		if r.Bold {
			props.Add(container.E("w:b"))
		}
		if r.Italic {
			props.Add(container.E("w:i"))
		}
		if r.Strike {
			props.Add(container.E("w:strike"))
		}
		run.Add(props)
	}
	for i, line := range strings.Split(r.Text, "\n") {
		if i > 0 {
			run.Add(container.E("w:br"))
		}
		if line != "" {
			run.Add(container.Leaf("w:t", line, "xml:space", "preserve"))
		}
	}
	return run
}

func docxStyles() *container.Elem {
	style := func(id, name string, kids ...*container.Elem) *container.Elem {
		s := container.E("w:style", "w:type", "paragraph", "w:styleId", id).Add(
			container.E("w:name", "w:val", name),
			container.E("w:basedOn", "w:val", "Normal"),
			container.E("w:qFormat"),
		)
		return s.Add(kids...)
	}
	rpr := func(halfPts int, bold bool) *container.Elem {
		r := container.E("w:rPr")
		if bold {
			r.Add(container.E("w:b"))
		}
		return r.Add(container.E("w:sz", "w:val", strconv.Itoa(halfPts)))
	}
	styles := container.E("w:styles", "xmlns:w", nsW).Add(
		container.E("w:docDefaults").Add(
			container.E("w:rPrDefault").Add(container.E("w:rPr").Add(container.E("w:sz", "w:val", "24"))),
			container.E("w:pPrDefault").Add(container.E("w:pPr").Add(container.E("w:spacing", "w:after", "160"))),
		),
		container.E("w:style", "w:type", "paragraph", "w:default", "1", "w:styleId", "Normal").Add(
			container.E("w:name", "w:val", "Normal"), container.E("w:qFormat")),
		style("Title", "Title", rpr(56, true)),
	)
	sizes := [7]int{0, 40, 32, 28, 26, 24, 24}
	for l := 1; l <= 6; l++ {
		styles.Add(style("Heading"+strconv.Itoa(l), "heading "+strconv.Itoa(l),
			container.E("w:pPr").Add(
				container.E("w:keepNext"),
				container.E("w:spacing", "w:before", "240", "w:after", "120"),
				container.E("w:outlineLvl", "w:val", strconv.Itoa(l-1)),
			),
			rpr(sizes[l], true)))
	}
	styles.Add(
		style("Quote", "Quote",
			container.E("w:pPr").Add(
				container.E("w:pBdr").Add(container.E("w:left", "w:val", "single", "w:sz", "18", "w:space", "8", "w:color", "999999")),
				container.E("w:ind", "w:left", "720"),
			),
			container.E("w:rPr").Add(container.E("w:i"))),
		style("Code", "Code",
			container.E("w:pPr").Add(container.E("w:spacing", "w:after", "0")),
			container.E("w:rPr").Add(
				container.E("w:rFonts", "w:ascii", "Courier New", "w:hAnsi", "Courier New", "w:cs", "Courier New"),
				container.E("w:sz", "w:val", "20"))),
	)
	return styles
}

func (DOCX) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("docx", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	r, err := container.Open(data)
	if err != nil {
		return Decoded{}, errs.Structural("docx", "", err)
	}
	raw, err := r.Read(docxDocumentPath)
	if err != nil {
		return Decoded{}, errs.Structural("docx", docxDocumentPath, err)
	}
	root, err := container.ParseXML(raw)
	if err != nil {
		return Decoded{}, errs.Structural("docx", docxDocumentPath, err)
	}
	body := container.FindOne(root, "body")
	if body == nil {
		return Decoded{}, errs.Structuralf("docx", docxDocumentPath, "no w:body element")
	}

	var h strings.Builder
	var title string
	h.WriteString("<html><body>")
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "p":
			t := writeDocxPara(&h, c)
			if title == "" && t != "" && docxStyle(c) == "Title" {
				title = t
			}
		case "tbl", "sdt":
			for _, p := range container.Find(c, "p") {
				writeDocxPara(&h, p)
			}
		}
	}
	h.WriteString("</body></html>")

	md, err := markup.FromHTML(h.String())
	if err != nil {
		return Decoded{}, errs.Structural("docx", docxDocumentPath, err)
	}
	if strings.TrimSpace(md) == "" {
		return Decoded{}, errs.Content("docx", "document body has no text")
	}
	d = Decoded{Content: md, Title: title}
	if core, err := r.Read(docxCorePath); err == nil {
		if cdoc, err := container.ParseXML(core); err == nil {
			if d.Title == "" {
				d.Title = container.Text(container.FindOne(cdoc, "title"))
			}
			d.Author = container.Text(container.FindOne(cdoc, "creator"))
		}
	}
	return d, nil
}

func docxStyle(p *xmlquery.Node) string {
	return container.Attr(container.FindOne(p, "pPr/pStyle"), "val")
}

// docxTag maps a paragraph style id (or its display name) to an HTML tag.
func docxTag(style string) string {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case s == "title":
		return "h1"
	case strings.HasPrefix(s, "heading") && len(s) == len("heading")+1 && s[len(s)-1] >= '1' && s[len(s)-1] <= '6':
		return "h" + s[len(s)-1:]
	case s == "quote" || s == "intensequote" || s == "blockquote":
		return "blockquote"
	case s == "code" || s == "htmlpreformatted" || s == "sourcecode":
		return "pre"
	}
	return "p"
}

// writeDocxPara renders one w:p as HTML and returns its plain text.
func writeDocxPara(h *strings.Builder, p *xmlquery.Node) string {
	tag := docxTag(docxStyle(p))
	pre := tag == "pre"
	var inner, plain strings.Builder
	for _, r := range container.Find(p, "r") {
		text := docxRunText(r)
		if text == "" {
			continue
		}
		plain.WriteString(text)
		esc := html.EscapeString(text)
		if !pre {
			esc = strings.ReplaceAll(esc, "\n", "<br/>")
			rp := container.FindOne(r, "rPr")
			if docxFlag(rp, "strike") || docxFlag(rp, "dstrike") {
				esc = "<del>" + esc + "</del>"
			}
			if docxFlag(rp, "i") {
				esc = "<em>" + esc + "</em>"
			}
			if docxFlag(rp, "b") {
				esc = "<strong>" + esc + "</strong>"
			}
		}
		inner.WriteString(esc)
	}
	if strings.TrimSpace(plain.String()) == "" {
		return ""
	}
	switch tag {
	case "pre":
		fmt.Fprintf(h, "<pre><code>%s</code></pre>", inner.String())
	case "blockquote":
		fmt.Fprintf(h, "<blockquote><p>%s</p></blockquote>", inner.String())
	default:
		fmt.Fprintf(h, "<%s>%s</%s>", tag, inner.String(), tag)
	}
	return strings.TrimSpace(plain.String())
}

func docxRunText(r *xmlquery.Node) string {
	var b strings.Builder
	for c := r.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "t":
			b.WriteString(c.InnerText())
		case "tab":
			b.WriteString("\t")
		case "br", "cr":
			b.WriteString("\n")
		case "noBreakHyphen":
			b.WriteString("-")
		}
	}
	return b.String()
}

// docxFlag reports whether a toggle property such as w:b is on.
func docxFlag(rPr *xmlquery.Node, name string) bool {
	if rPr == nil {
		return false
	}
	for _, c := range container.Children(rPr, name) {
		switch container.Attr(c, "val") {
		case "0", "false", "off", "none":
			return false
		}
		return true
	}
	return false
}
