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
	"log/slog"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leoloveisme/crowdly-sub001/internal/container"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	applog "github.com/leoloveisme/crowdly-sub001/internal/log"
	"github.com/leoloveisme/crowdly-sub001/internal/script"
)

// FDX is the Final Draft XML adapter.
type FDX struct{}

func (FDX) Extension() string { return "fdx" }
func (FDX) MIME() string      { return "application/xml" }

var fdxTypes = map[domain.ElementType]string{
	domain.ElementSceneHeading:  "Scene Heading",
	domain.ElementAction:        "Action",
	domain.ElementCharacter:     "Character",
	domain.ElementDialogue:      "Dialogue",
	domain.ElementParenthetical: "Parenthetical",
	domain.ElementTransition:    "Transition",
}

// fdxElement maps a Paragraph Type back to an element. Unknown types read as action.
func fdxElement(typ string) domain.ElementType {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "scene heading", "shot":
		return domain.ElementSceneHeading
	case "character":
		return domain.ElementCharacter
	case "dialogue":
		return domain.ElementDialogue
	case "parenthetical":
		return domain.ElementParenthetical
	case "transition":
		return domain.ElementTransition
	default:
		return domain.ElementAction
	}
}

func (FDX) Encode(ctx context.Context, doc domain.Document, opts Options) (out []byte, err error) {
	defer crash.Guard("fdx", "encode", &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sp := script.FromMarkup(sourceOf(doc))
	if opts.Title != "" {
		sp.TitlePage = append(sp.TitlePage, domain.TitleField{Key: "Title", Value: opts.Title})
	}
	if opts.Author != "" {
		sp.TitlePage = append(sp.TitlePage, domain.TitleField{Key: "Author", Value: opts.Author})
	}
	return EncodeScreenplay(sp), nil
}

// EncodeScreenplay serializes a classified screenplay. The title page, when
// present, precedes the body.
func EncodeScreenplay(sp domain.Screenplay) []byte {
	upper := cases.Upper(language.Und)
	root := container.E("FinalDraft", "DocumentType", "Script", "Template", "No", "Version", "5")

	title, author := sp.Field("Title"), sp.Field("Author")
	if title != "" || author != "" {
		tp := container.E("Content")
		center := func(s string) *container.Elem {
			return container.E("Paragraph", "Alignment", "Center").Add(container.Leaf("Text", s))
		}
		if title != "" {
			tp.Add(center(upper.String(title)))
		}
		if author != "" {
			tp.Add(center("Written by"), center(author))
		}
		root.Add(container.E("TitlePage").Add(tp))
	}

	content := container.E("Content")
	for _, b := range sp.Blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		typ, ok := fdxTypes[b.Type]
		if !ok {
			typ = "Action"
		}
		if b.Type == domain.ElementSceneHeading {
			text = upper.String(text)
		}
		content.Add(container.E("Paragraph", "Type", typ).Add(container.Leaf("Text", text)))
	}
	root.Add(content)
	return container.Document(root, "")
}

func (FDX) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("fdx", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	sp, err := DecodeScreenplay(data)
	if err != nil {
		return Decoded{}, err
	}
	if len(sp.Blocks) == 0 {
		return Decoded{}, errs.Content("fdx", "script has no paragraphs")
	}
	return Decoded{Content: script.ToMarkup(sp), Title: sp.Field("Title"), Author: sp.Field("Author")}, nil
}

// DecodeScreenplay reads typed paragraphs straight from the body, keeping
// their declared types. Boneyard and note regions are removed, also when
// they span paragraphs; paragraphs left empty are dropped.
func DecodeScreenplay(data []byte) (domain.Screenplay, error) {
	doc, err := container.ParseXML(data)
	if err != nil {
		return domain.Screenplay{}, errs.Structural("fdx", "", err)
	}
	root := container.FindOne(doc, "FinalDraft")
	if root == nil {
		return domain.Screenplay{}, errs.Structuralf("fdx", "", "no FinalDraft root element")
	}
	var sp domain.Screenplay
	var comments script.CommentFilter
	for _, content := range container.Children(root, "Content") {
		for _, p := range container.Children(content, "Paragraph") {
			text := strings.TrimSpace(comments.Filter(fdxText(p)))
			if text == "" {
				continue
			}
			sp.Blocks = append(sp.Blocks, domain.ScreenplayBlock{Type: fdxElement(container.Attr(p, "Type")), Text: text})
		}
	}
	sp.TitlePage = fdxTitlePage(root)
	return sp, nil
}

func fdxText(p *xmlquery.Node) string {
	var b strings.Builder
	for _, t := range container.Children(p, "Text") {
		b.WriteString(t.InnerText())
	}
	return strings.TrimSpace(b.String())
}

// fdxTitlePage takes the first line as the title and the line after a
// "Written by" credit as the author.
func fdxTitlePage(root *xmlquery.Node) []domain.TitleField {
	var lines []string
	for _, p := range container.Find(root, "TitlePage/Content/Paragraph") {
		if t := fdxText(p); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	fields := []domain.TitleField{{Key: "Title", Value: lines[0]}}
	for i := 1; i+1 < len(lines); i++ {
		switch strings.ToLower(lines[i]) {
		case "written by", "by", "screenplay by":
			fields = append(fields, domain.TitleField{Key: "Author", Value: lines[i+1]})
			return fields
		}
	}
	return fields
}

// Fountain is the plain-text screenplay adapter.
type Fountain struct{}

func (Fountain) Extension() string { return "fountain" }
func (Fountain) MIME() string      { return "text/plain; charset=utf-8" }

func (Fountain) Encode(ctx context.Context, doc domain.Document, opts Options) (out []byte, err error) {
	defer crash.Guard("fountain", "encode", &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sp := script.FromMarkup(sourceOf(doc))
	if opts.Title != "" {
		sp.TitlePage = append(sp.TitlePage, domain.TitleField{Key: "Title", Value: opts.Title})
	}
	if opts.Author != "" {
		sp.TitlePage = append(sp.TitlePage,
			domain.TitleField{Key: "Credit", Value: "Written by"},
			domain.TitleField{Key: "Author", Value: opts.Author})
	}
	return []byte(script.FormatFountain(sp)), nil
}

func (Fountain) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("fountain", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	sp, warnings := script.ParseFountain(cleanText(data))
	if len(warnings) > 0 {
		l := applog.WithFormat(applog.WithComponent("formats"), "fountain")
		for _, w := range warnings {
			l.WarnContext(ctx, "fountain input", slog.Int("line", w.Line), slog.String("problem", w.Message))
		}
	}
	if len(sp.Blocks) == 0 {
		return Decoded{}, errs.Content("fountain", "script has no body text")
	}
	author := sp.Field("Author")
	if author == "" {
		author = sp.Field("Authors")
	}
	return Decoded{Content: script.ToMarkup(sp), Title: sp.Field("Title"), Author: author}, nil
}
