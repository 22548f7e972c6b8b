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
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/leoloveisme/crowdly-sub001/internal/container"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	"github.com/leoloveisme/crowdly-sub001/internal/inline"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
	"github.com/leoloveisme/crowdly-sub001/internal/version"
)

// ODT is the OpenDocument text adapter. Export writes one flat body using
// the named styles every ODF word processor ships with.
type ODT struct{}

func (ODT) Extension() string { return "odt" }
func (ODT) MIME() string      { return "application/vnd.oasis.opendocument.text" }

const (
	nsOffice   = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsStyle    = "urn:oasis:names:tc:opendocument:xmlns:style:1.0"
	nsText     = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsFO       = "urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
	nsMeta     = "urn:oasis:names:tc:opendocument:xmlns:meta:1.0"
	nsManifest = "urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"
	odfVersion = "1.3"
)

// Named paragraph styles.
const (
	odtTitle     = "Title"
	odtBody      = "Text_20_body"
	odtQuote     = "Quotations"
	odtPre       = "Preformatted_20_Text"
	odtRule      = "Horizontal_20_Line"
	odtHeadingNN = "Heading_20_"
)

// odtSpanStyle names the automatic text style of a formatting combination.
func odtSpanStyle(r domain.Run) string {
	if r.Plain() {
		return ""
	}
	name := "T_"
	if r.Bold {
		name += "b"
	}
	if r.Italic {
		name += "i"
	}
	if r.Strike {
		name += "s"
	}
	return name
}

func (ODT) Encode(ctx context.Context, doc domain.Document, opts Options) (out []byte, err error) {
	defer crash.Guard("odt", "encode", &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := container.E("office:text")
	if opts.Title != "" {
		body.Add(odtPara("text:p", odtTitle, []domain.Run{{Text: opts.Title}}))
	}
	for _, b := range doc.Blocks {
		switch b.Kind {
		case domain.KindHeading:
			lvl := clampLevel(b.Level)
			h := odtPara("text:h", odtHeadingNN+strconv.Itoa(lvl), inline.ToRuns(b.Text))
			body.Add(h.Attr("text:outline-level", strconv.Itoa(lvl)))
		case domain.KindBlockquote:
			body.Add(odtPara("text:p", odtQuote, inline.ToRuns(b.Text)))
		case domain.KindCode:
			for _, line := range strings.Split(b.Text, "\n") {
				body.Add(odtPara("text:p", odtPre, []domain.Run{{Text: line}}))
			}
		case domain.KindRule:
			body.Add(container.E("text:p", "text:style-name", odtRule))
		default:
			body.Add(odtPara("text:p", odtBody, inline.ToRuns(b.Text)))
		}
	}

	content := container.E("office:document-content",
		"xmlns:office", nsOffice, "xmlns:style", nsStyle, "xmlns:text", nsText, "xmlns:fo", nsFO,
		"office:version", odfVersion,
	).Add(
		odtAutomaticStyles(),
		container.E("office:body").Add(body),
	)

	pkg := container.New(ODT{}.MIME())
	pkg.Level = opts.Level
	pkg.Modified = opts.modified()
	pkg.Add(container.ODFManifestPath, container.Document(odtManifest(), ""))
	pkg.Add(container.ODFContentPath, container.Document(content, ""))
	pkg.Add("styles.xml", container.Document(odtStyles(), ""))
	pkg.Add(container.ODFMetaPath, container.Document(odtMeta(opts), ""))
	return pkg.Bytes()
}

func odtPara(tag, style string, runs []domain.Run) *container.Elem {
	p := container.E(tag, "text:style-name", style)
	for _, r := range runs {
		if name := odtSpanStyle(r); name != "" {
			p.Add(odtText(container.E("text:span", "text:style-name", name), r.Text))
		} else {
			odtText(p, r.Text)
		}
	}
	return p
}

// odtText appends s to e, spelling out what ODF whitespace collapsing would
// otherwise lose: repeated spaces, tabs and line breaks.
func odtText(e *container.Elem, s string) *container.Elem {
	if s != "" && strings.Trim(s, " ") == "" {
		// A lone space between spans must survive parsers that drop
		// whitespace-only text nodes.
		sp := container.E("text:s")
		if len(s) > 1 {
			sp.Attr("text:c", strconv.Itoa(len(s)))
		}
		return e.Add(sp)
	}
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			e.Add(container.T(buf.String()))
			buf.Reset()
		}
	}
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		switch c := rs[i]; c {
		case '\n':
			flush()
			e.Add(container.E("text:line-break"))
		case '\t':
			flush()
			e.Add(container.E("text:tab"))
		case ' ':
			n := 1
			for i+n < len(rs) && rs[i+n] == ' ' {
				n++
			}
			first := i
			i += n - 1
			if first > 0 && rs[first-1] != '\n' {
				buf.WriteByte(' ')
				n--
			}
			if n == 0 {
				continue
			}
			flush()
			sp := container.E("text:s")
			if n > 1 {
				sp.Attr("text:c", strconv.Itoa(n))
			}
			e.Add(sp)
		default:
			buf.WriteRune(c)
		}
	}
	flush()
	return e
}

func odtAutomaticStyles() *container.Elem {
	as := container.E("office:automatic-styles")
	for _, name := range []string{"T_b", "T_i", "T_s", "T_bi", "T_bs", "T_is", "T_bis"} {
		props := container.E("style:text-properties")
		if strings.Contains(name, "b") {
			props.Attr("fo:font-weight", "bold").Attr("style:font-weight-asian", "bold").Attr("style:font-weight-complex", "bold")
		}
		if strings.Contains(name[2:], "i") {
			props.Attr("fo:font-style", "italic").Attr("style:font-style-asian", "italic").Attr("style:font-style-complex", "italic")
		}
		if strings.Contains(name[2:], "s") {
			props.Attr("style:text-line-through-style", "solid").Attr("style:text-line-through-type", "single")
		}
		as.Add(container.E("style:style", "style:name", name, "style:family", "text").Add(props))
	}
	return as
}

func odtStyles() *container.Elem {
	para := func(name, display, parent string, kids ...*container.Elem) *container.Elem {
		s := container.E("style:style", "style:name", name, "style:display-name", display, "style:family", "paragraph")
		if parent != "" {
			s.Attr("style:parent-style-name", parent)
		}
		return s.Add(kids...)
	}
	text := func(attrs ...string) *container.Elem { return container.E("style:text-properties", attrs...) }
	styles := container.E("office:styles").Add(
		para("Standard", "Standard", ""),
		para("Heading", "Heading", "Standard",
			container.E("style:paragraph-properties", "fo:margin-top", "0.42cm", "fo:margin-bottom", "0.21cm", "fo:keep-with-next", "always"),
			text("fo:font-weight", "bold")),
		para(odtBody, "Text body", "Standard",
			container.E("style:paragraph-properties", "fo:margin-top", "0cm", "fo:margin-bottom", "0.25cm")),
		para(odtTitle, "Title", "Heading", text("fo:font-size", "28pt")),
		para(odtQuote, "Quotations", "Standard",
			container.E("style:paragraph-properties", "fo:margin-left", "1cm", "fo:padding-left", "0.2cm",
				"fo:border-left", "0.06pt solid #999999"),
			text("fo:font-style", "italic")),
		para(odtPre, "Preformatted Text", "Standard", text("style:font-name", "Liberation Mono", "fo:font-family", "monospace", "fo:font-size", "10pt")),
		para(odtRule, "Horizontal Line", "Standard",
			container.E("style:paragraph-properties", "fo:border-bottom", "0.06pt solid #808080", "fo:margin-bottom", "0.5cm")),
	)
	sizes := [7]string{"", "20pt", "16pt", "14pt", "13pt", "12pt", "12pt"}
	for l := 1; l <= 6; l++ {
		n := strconv.Itoa(l)
		styles.Add(para(odtHeadingNN+n, "Heading "+n, "Heading", text("fo:font-size", sizes[l])).
			Attr("style:default-outline-level", n))
	}
	return container.E("office:document-styles",
		"xmlns:office", nsOffice, "xmlns:style", nsStyle, "xmlns:text", nsText, "xmlns:fo", nsFO,
		"office:version", odfVersion,
	).Add(styles)
}

func odtMeta(opts Options) *container.Elem {
	stamp := opts.modified().Format("2006-01-02T15:04:05Z")
	meta := container.E("office:meta").Add(
		container.Leaf("meta:generator", "crowdly/"+version.String()),
		container.Leaf("dc:language", opts.language()),
		container.Leaf("meta:creation-date", stamp),
		container.Leaf("dc:date", stamp),
	)
	if opts.Title != "" {
		meta.Add(container.Leaf("dc:title", opts.Title))
	}
	if opts.Author != "" {
		meta.Add(container.Leaf("meta:initial-creator", opts.Author), container.Leaf("dc:creator", opts.Author))
	}
	return container.E("office:document-meta",
		"xmlns:office", nsOffice, "xmlns:meta", nsMeta, "xmlns:dc", nsDC, "office:version", odfVersion,
	).Add(meta)
}

func odtManifest() *container.Elem {
	entry := func(path, media string) *container.Elem {
		return container.E("manifest:file-entry", "manifest:full-path", path, "manifest:media-type", media)
	}
	return container.E("manifest:manifest", "xmlns:manifest", nsManifest, "manifest:version", odfVersion).Add(
		entry("/", ODT{}.MIME()).Attr("manifest:version", odfVersion),
		entry(container.ODFContentPath, "text/xml"),
		entry("styles.xml", "text/xml"),
		entry(container.ODFMetaPath, "text/xml"),
	)
}

// odtReader resolves automatic styles while walking content.xml.
type odtReader struct {
	spans  map[string]domain.Run // text style -> formatting flags
	parent map[string]string     // automatic paragraph style -> named parent
	blocks []domain.Block
	title  string
}

func (ODT) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("odt", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	r, err := container.Open(data)
	if err != nil {
		return Decoded{}, errs.Structural("odt", "", err)
	}
	od, err := container.ReadODF(r)
	if err != nil {
		return Decoded{}, err
	}
	rd := &odtReader{spans: map[string]domain.Run{}, parent: map[string]string{}}
	for _, st := range container.Find(od.Content, "automatic-styles/style") {
		name := container.Attr(st, "name")
		switch container.Attr(st, "family") {
		case "text":
			rd.spans[name] = odtFlags(container.FindOne(st, "text-properties"))
		case "paragraph":
			if p := container.Attr(st, "parent-style-name"); p != "" {
				rd.parent[name] = p
			}
		}
	}
	office := container.FindOne(od.Content, "body/text")
	if office == nil {
		return Decoded{}, errs.Structuralf("odt", container.ODFContentPath, "no office:text body")
	}
	rd.walk(office)

	content := markup.Format(rd.blocks)
	if strings.TrimSpace(content) == "" {
		return Decoded{}, errs.Content("odt", "document body has no text")
	}
	d = Decoded{Title: rd.title}
	if od.Meta != nil {
		if t := container.Text(container.FindOne(od.Meta, "meta/title")); t != "" {
			d.Title = t
		}
		d.Author = container.Text(container.FindOne(od.Meta, "meta/creator"))
		if d.Author == "" {
			d.Author = container.Text(container.FindOne(od.Meta, "meta/initial-creator"))
		}
	}
	d.Content = titled(d.Title, content)
	return d, nil
}

func odtFlags(props *xmlquery.Node) domain.Run {
	var r domain.Run
	if props == nil {
		return r
	}
	switch container.Attr(props, "font-weight") {
	case "bold", "600", "700", "800", "900":
		r.Bold = true
	}
	switch container.Attr(props, "font-style") {
	case "italic", "oblique":
		r.Italic = true
	}
	if s := container.Attr(props, "text-line-through-style"); s != "" && s != "none" {
		r.Strike = true
	}
	return r
}

func (rd *odtReader) styleOf(n *xmlquery.Node) string {
	s := container.Attr(n, "style-name")
	if p, ok := rd.parent[s]; ok {
		return p
	}
	return s
}

func (rd *odtReader) walk(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "h":
			lvl, err := strconv.Atoi(container.Attr(c, "outline-level"))
			if err != nil {
				lvl = 1
			}
			if t := rd.inlineText(c); strings.TrimSpace(t) != "" {
				rd.blocks = append(rd.blocks, domain.Heading(lvl, strings.TrimSpace(t)))
			}
		case "p":
			rd.paragraph(c)
		case "sequence-decls", "tracked-changes", "variable-decls", "user-field-decls":
		default:
			rd.walk(c)
		}
	}
}

func (rd *odtReader) paragraph(p *xmlquery.Node) {
	style := rd.styleOf(p)
	switch {
	case style == odtRule:
		rd.blocks = append(rd.blocks, domain.Block{Kind: domain.KindRule})
		return
	case style == odtPre:
		line := rd.plainText(p)
		if n := len(rd.blocks); n > 0 && rd.blocks[n-1].Kind == domain.KindCode {
			rd.blocks[n-1].Text += "\n" + line
		} else {
			rd.blocks = append(rd.blocks, domain.Block{Kind: domain.KindCode, Text: line})
		}
		return
	}
	t := strings.TrimSpace(rd.inlineText(p))
	if t == "" {
		return
	}
	switch {
	case style == odtTitle:
		if rd.title == "" {
			rd.title = inline.Strip(t)
		}
		rd.blocks = append(rd.blocks, domain.Heading(1, t))
	case strings.HasPrefix(style, odtHeadingNN):
		lvl, err := strconv.Atoi(strings.TrimPrefix(style, odtHeadingNN))
		if err != nil {
			lvl = 1
		}
		rd.blocks = append(rd.blocks, domain.Heading(lvl, t))
	case style == odtQuote:
		rd.blocks = append(rd.blocks, domain.Block{Kind: domain.KindBlockquote, Text: t})
	default:
		rd.blocks = append(rd.blocks, domain.Paragraph(t))
	}
}

// inlineText rebuilds canonical inline markup from spans.
func (rd *odtReader) inlineText(n *xmlquery.Node) string {
	var runs []domain.Run
	rd.collect(n, domain.Run{}, &runs)
	return inline.FromRuns(mergeRuns(runs))
}

func (rd *odtReader) plainText(n *xmlquery.Node) string {
	var runs []domain.Run
	rd.collect(n, domain.Run{}, &runs)
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func (rd *odtReader) collect(n *xmlquery.Node, fmtState domain.Run, out *[]domain.Run) {
	emit := func(s string) {
		r := fmtState
		r.Text = s
		*out = append(*out, r)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			emit(collapseSpace(c.Data))
			continue
		case xmlquery.ElementNode:
		default:
			continue
		}
		switch c.Data {
		case "s":
			cnt, err := strconv.Atoi(container.Attr(c, "c"))
			if err != nil || cnt < 1 {
				cnt = 1
			}
			emit(strings.Repeat(" ", cnt))
		case "tab":
			emit("\t")
		case "line-break":
			emit("\n")
		case "span":
			st := fmtState
			f := rd.spans[container.Attr(c, "style-name")]
			st.Bold = st.Bold || f.Bold
			st.Italic = st.Italic || f.Italic
			st.Strike = st.Strike || f.Strike
			rd.collect(c, st, out)
		case "note", "annotation", "bookmark", "bookmark-start", "bookmark-end", "soft-page-break":
		default:
			rd.collect(c, fmtState, out)
		}
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func mergeRuns(runs []domain.Run) []domain.Run {
	var out []domain.Run
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Bold == r.Bold && out[n-1].Italic == r.Italic && out[n-1].Strike == r.Strike {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}
