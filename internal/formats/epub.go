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
	"strings"

	"github.com/google/uuid"

	"github.com/leoloveisme/crowdly-sub001/internal/container"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	"github.com/leoloveisme/crowdly-sub001/internal/inline"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
)

// EPUB writes reflowable EPUB 3 books (with an NCX for older readers) and
// reads any EPUB 2/3 package.
type EPUB struct{}

func (EPUB) Extension() string { return "epub" }
func (EPUB) MIME() string      { return "application/epub+zip" }

const (
	nsXHTML = "http://www.w3.org/1999/xhtml"
	nsOPS   = "http://www.idpf.org/2007/ops"
	nsOPF   = "http://www.idpf.org/2007/opf"
	nsDC    = "http://purl.org/dc/elements/1.1/"
	nsNCX   = "http://www.daisy.org/z3986/2005/ncx/"

	introTitle = "Introduction"
)

const epubCSS = `body { font-family: serif; line-height: 1.5; margin: 0 5%; }
h1, h2, h3, h4, h5, h6 { font-family: sans-serif; line-height: 1.2; }
blockquote { margin: 1em 0 1em 1.5em; padding-left: 1em; border-left: 3px solid #999; font-style: italic; }
pre { font-family: monospace; white-space: pre-wrap; }
hr { border: 0; border-top: 1px solid #999; margin: 1.5em 0; }
`

type chapter struct {
	Title  string
	Blocks []domain.Block
}

func (c chapter) file(i int) string { return fmt.Sprintf("chapter-%03d.xhtml", i+1) }
func (c chapter) id(i int) string   { return fmt.Sprintf("chapter-%03d", i+1) }

// splitChapters starts a chapter at every level-1 heading. Content before
// the first one becomes an "Introduction" chapter.
func splitChapters(blocks []domain.Block, fallback string) []chapter {
	var out []chapter
	var cur *chapter
	for _, b := range blocks {
		if b.Kind == domain.KindHeading && b.Level == 1 {
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &chapter{Title: inline.Strip(b.Text)}
		} else if cur == nil {
			cur = &chapter{Title: introTitle}
		}
		cur.Blocks = append(cur.Blocks, b)
	}
	if cur != nil {
		out = append(out, *cur)
	}
	if len(out) == 0 {
		out = append(out, chapter{Title: fallback})
	}
	return out
}

func bookTitle(opts Options, doc domain.Document) string {
	for _, t := range []string{opts.Title, doc.Title, inline.Strip(markup.FirstHeading(doc.Blocks))} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return "Untitled"
}

func (EPUB) Encode(ctx context.Context, doc domain.Document, opts Options) (out []byte, err error) {
	defer crash.Guard("epub", "encode", &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := bookTitle(opts, doc)
	lang := opts.language()
	bookID := "urn:uuid:" + uuid.New().String()
	chapters := splitChapters(doc.Blocks, title)

	pkg := container.New(EPUB{}.MIME())
	pkg.Level = opts.Level
	pkg.Modified = opts.modified()
	pkg.Add(container.EPUBContainerPath, container.Document(
		container.E("container", "version", "1.0", "xmlns", "urn:oasis:names:tc:opendocument:xmlns:container").Add(
			container.E("rootfiles").Add(
				container.E("rootfile", "full-path", "OEBPS/content.opf", "media-type", "application/oebps-package+xml"),
			),
		), ""))
	pkg.Add("OEBPS/content.opf", container.Document(epubOPF(chapters, title, opts.Author, lang, bookID, opts), ""))
	pkg.Add("OEBPS/nav.xhtml", container.Document(epubNav(chapters, title, lang), "<!DOCTYPE html>"))
	pkg.Add("OEBPS/toc.ncx", container.Document(epubNCX(chapters, title, bookID), ""))
	pkg.AddString("OEBPS/styles.css", epubCSS)
	for i, ch := range chapters {
		pkg.Add("OEBPS/"+ch.file(i), container.Document(epubChapter(ch, lang), "<!DOCTYPE html>"))
	}
	return pkg.Bytes()
}

func epubOPF(chapters []chapter, title, author, lang, bookID string, opts Options) *container.Elem {
	meta := container.E("metadata", "xmlns:dc", nsDC).Add(
		container.Leaf("dc:identifier", bookID, "id", "bookid"),
		container.Leaf("dc:title", title),
		container.Leaf("dc:language", lang),
		container.Leaf("meta", opts.modified().Format("2006-01-02T15:04:05Z"), "property", "dcterms:modified"),
	)
	if author != "" {
		meta.Add(container.Leaf("dc:creator", author))
	}
	manifest := container.E("manifest").Add(
		container.E("item", "id", "nav", "href", "nav.xhtml", "media-type", "application/xhtml+xml", "properties", "nav"),
		container.E("item", "id", "ncx", "href", "toc.ncx", "media-type", "application/x-dtbncx+xml"),
		container.E("item", "id", "css", "href", "styles.css", "media-type", "text/css"),
	)
	spine := container.E("spine", "toc", "ncx")
	for i, ch := range chapters {
		manifest.Add(container.E("item", "id", ch.id(i), "href", ch.file(i), "media-type", "application/xhtml+xml"))
		spine.Add(container.E("itemref", "idref", ch.id(i)))
	}
	return container.E("package", "xmlns", nsOPF, "version", "3.0", "unique-identifier", "bookid", "xml:lang", lang).
		Add(meta, manifest, spine)
}

func xhtmlShell(title, lang string, body *container.Elem) *container.Elem {
	return container.E("html", "xmlns", nsXHTML, "xmlns:epub", nsOPS, "xml:lang", lang, "lang", lang).Add(
		container.E("head").Add(
			container.E("meta", "charset", "utf-8"),
			container.Leaf("title", title),
			container.E("link", "rel", "stylesheet", "type", "text/css", "href", "styles.css"),
		),
		body,
	)
}

func epubNav(chapters []chapter, title, lang string) *container.Elem {
	ol := container.E("ol")
	for i, ch := range chapters {
		ol.Add(container.E("li").Add(container.Leaf("a", ch.Title, "href", ch.file(i))))
	}
	body := container.E("body").Add(
		container.E("nav", "epub:type", "toc", "id", "toc").Add(container.Leaf("h1", "Contents"), ol),
	)
	return xhtmlShell(title, lang, body)
}

func epubNCX(chapters []chapter, title, bookID string) *container.Elem {
	navMap := container.E("navMap")
	for i, ch := range chapters {
		navMap.Add(container.E("navPoint", "id", "nav-"+ch.id(i), "playOrder", fmt.Sprint(i+1)).Add(
			container.E("navLabel").Add(container.Leaf("text", ch.Title)),
			container.E("content", "src", ch.file(i)),
		))
	}
	return container.E("ncx", "xmlns", nsNCX, "version", "2005-1").Add(
		container.E("head").Add(
			container.E("meta", "name", "dtb:uid", "content", bookID),
			container.E("meta", "name", "dtb:depth", "content", "1"),
		),
		container.E("docTitle").Add(container.Leaf("text", title)),
		navMap,
	)
}

func epubChapter(ch chapter, lang string) *container.Elem {
	section := container.E("section", "epub:type", "chapter")
	for _, b := range ch.Blocks {
		section.Add(xhtmlBlock(b))
	}
	return xhtmlShell(ch.Title, lang, container.E("body").Add(section))
}

// xhtmlBlock renders one block as an XHTML element.
func xhtmlBlock(b domain.Block) *container.Elem {
	if b.Kind != domain.KindRule && b.Kind != domain.KindCode && strings.TrimSpace(b.Text) == "" {
		return nil
	}
	switch b.Kind {
	case domain.KindHeading:
		return container.E(fmt.Sprintf("h%d", clampLevel(b.Level))).Add(xhtmlRuns(b.Text)...)
	case domain.KindBlockquote:
		return container.E("blockquote").Add(container.E("p").Add(xhtmlRuns(b.Text)...))
	case domain.KindCode:
		code := container.Leaf("code", b.Text)
		if b.Lang != "" {
			code.Attr("class", "language-"+b.Lang)
		}
		return container.E("pre").Add(code)
	case domain.KindRule:
		return container.E("hr")
	default:
		return container.E("p").Add(xhtmlRuns(b.Text)...)
	}
}

func xhtmlRuns(text string) []*container.Elem {
	var out []*container.Elem
	for _, r := range inline.ToRuns(text) {
		var parts []*container.Elem
		for i, line := range strings.Split(r.Text, "\n") {
			if i > 0 {
				parts = append(parts, container.E("br"))
			}
			if line != "" {
				parts = append(parts, container.T(line))
			}
		}
		wrap := func(tag string) {
			parts = []*container.Elem{container.E(tag).Add(parts...)}
		}
		if r.Italic {
			wrap("em")
		}
		if r.Bold {
			wrap("strong")
		}
		if r.Strike {
			wrap("del")
		}
		out = append(out, parts...)
	}
	return out
}

func (EPUB) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("epub", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	r, err := container.Open(data)
	if err != nil {
		return Decoded{}, errs.Structural("epub", "", err)
	}
	pkg, err := container.ReadEPUB(r)
	if err != nil {
		return Decoded{}, err
	}
	var parts []string
	for _, it := range pkg.Spine {
		raw, err := r.Read(it.Href)
		if err != nil {
			return Decoded{}, errs.Structural("epub", it.Href, err)
		}
		md, err := markup.FromHTML(cleanText(raw))
		if err != nil {
			return Decoded{}, errs.Structural("epub", it.Href, err)
		}
		if md = strings.TrimSpace(md); md != "" {
			parts = append(parts, md)
		}
	}
	if len(parts) == 0 {
		return Decoded{}, errs.Content("epub", "book has no text content")
	}
	body := strings.Join(parts, "\n\n") + "\n"
	return Decoded{Content: titled(pkg.Title, body), Title: pkg.Title, Author: pkg.Creator}, nil
}
