/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package markup converts canonical markup text to and from the block list,
// and brings HTML into canonical markup.
package markup

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

var md = goldmark.New()

// Parse splits markup into blocks. Only the block structure is interpreted;
// block text keeps its inline markup. List items become paragraphs prefixed
// with "• " or their ordinal.
func Parse(markup string) []domain.Block {
	src := []byte(strings.ReplaceAll(markup, "\r\n", "\n"))
	doc := md.Parser().Parse(text.NewReader(src))
	var out []domain.Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		out = appendBlocks(out, n, src, domain.KindParagraph)
	}
	return out
}

func appendBlocks(out []domain.Block, n ast.Node, src []byte, leaf domain.BlockKind) []domain.Block {
	switch v := n.(type) {
	case *ast.Heading:
		return append(out, domain.Heading(v.Level, joinLines(v, src, " ")))
	case *ast.ThematicBreak:
		return append(out, domain.Block{Kind: domain.KindRule})
	case *ast.FencedCodeBlock:
		return append(out, domain.Block{Kind: domain.KindCode, Text: rawLines(v, src), Lang: string(v.Language(src))})
	case *ast.CodeBlock:
		return append(out, domain.Block{Kind: domain.KindCode, Text: rawLines(v, src)})
	case *ast.Blockquote:
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			out = appendBlocks(out, c, src, domain.KindBlockquote)
		}
		return out
	case *ast.List:
		i := v.Start
		for item := v.FirstChild(); item != nil; item = item.NextSibling() {
			prefix := "• "
			if v.IsOrdered() {
				prefix = strconv.Itoa(i) + string(v.Marker) + " "
				i++
			}
			first := true
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				before := len(out)
				out = appendBlocks(out, c, src, leaf)
				if first && len(out) > before && out[before].Kind != domain.KindCode {
					out[before].Text = prefix + out[before].Text
					first = false
				}
			}
		}
		return out
	case *ast.HTMLBlock:
		if t := rawLines(v, src); strings.TrimSpace(t) != "" {
			return append(out, domain.Block{Kind: leaf, Text: strings.TrimSpace(t)})
		}
		return out
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		if t := joinLines(n, src, "\n"); t != "" {
			out = append(out, domain.Block{Kind: leaf, Text: t})
		}
		return out
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == ast.TypeBlock {
			out = appendBlocks(out, c, src, leaf)
		}
	}
	return out
}

// joinLines trims every source line of n and joins them with sep.
func joinLines(n ast.Node, src []byte, sep string) string {
	segs := n.Lines()
	parts := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		if l := strings.TrimSpace(string(seg.Value(src))); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, sep)
}

// rawLines keeps code lines verbatim apart from the final newline.
func rawLines(n ast.Node, src []byte) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Format serializes blocks as canonical markup, one blank line between blocks.
func Format(blocks []domain.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := formatBlock(b); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func formatBlock(b domain.Block) string {
	switch b.Kind {
	case domain.KindHeading:
		lvl := b.Level
		if lvl < 1 {
			lvl = 1
		}
		if lvl > 6 {
			lvl = 6
		}
		t := strings.Join(strings.Fields(b.Text), " ")
		if t == "" {
			return ""
		}
		return strings.Repeat("#", lvl) + " " + t
	case domain.KindRule:
		return "---"
	case domain.KindCode:
		return "```" + b.Lang + "\n" + b.Text + "\n```"
	case domain.KindBlockquote:
		t := strings.TrimSpace(b.Text)
		if t == "" {
			return ""
		}
		return "> " + strings.ReplaceAll(t, "\n", "\n> ")
	default:
		return strings.TrimSpace(b.Text)
	}
}

// FirstHeading returns the text of the first heading block, or "".
func FirstHeading(blocks []domain.Block) string {
	for _, b := range blocks {
		if b.Kind == domain.KindHeading {
			return b.Text
		}
	}
	return ""
}

// HasText reports whether any block carries non-blank text.
func HasText(blocks []domain.Block) bool {
	for _, b := range blocks {
		if b.Kind != domain.KindRule && strings.TrimSpace(b.Text) != "" {
			return true
		}
	}
	return false
}
