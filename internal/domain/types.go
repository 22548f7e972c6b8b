/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "strings"

// This file defines the canonical document model every exchange format reads
// from and writes to. Values are built fresh for each conversion call and
// discarded afterwards; nothing here is shared between calls.

// BlockKind determines how a block is wrapped in every target format.
type BlockKind string

const (
	KindHeading    BlockKind = "heading"
	KindParagraph  BlockKind = "paragraph"
	KindBlockquote BlockKind = "blockquote"
	KindRule       BlockKind = "rule"
	KindCode       BlockKind = "code"
)

// Block is the unit of prose content. Text holds inline markup
// (**bold**, *italic*, ~~strike~~) except for code blocks, whose text is literal.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"` // 1..6, headings only
	Text  string    `json:"text,omitempty"`
	Lang  string    `json:"lang,omitempty"` // code fence info string
}

// Heading is a convenience constructor clamping level into 1..6.
func Heading(level int, text string) Block {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return Block{Kind: KindHeading, Level: level, Text: text}
}

// Paragraph returns a paragraph block.
func Paragraph(text string) Block { return Block{Kind: KindParagraph, Text: text} }

// Document is the canonical form of one authored work.
type Document struct {
	Title    string  `json:"title,omitempty"`
	Author   string  `json:"author,omitempty"`
	Language string  `json:"language,omitempty"`
	Blocks   []Block `json:"blocks"`
	// Source is the canonical markup the blocks were parsed from, when known.
	// Line-oriented targets (screenplays, plain text) read it directly.
	Source string `json:"-"`
}

// Run is a maximal span of text sharing one formatting state.
type Run struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Strike bool   `json:"strike,omitempty"`
	Mark   string `json:"mark,omitempty"` // delimiter seen in the source, e.g. "__"; empty means canonical
}

// Plain reports whether the run carries no formatting.
func (r Run) Plain() bool { return !r.Bold && !r.Italic && !r.Strike }

// ElementType classifies one screenplay line.
type ElementType string

const (
	ElementNone          ElementType = ""
	ElementSceneHeading  ElementType = "scene_heading"
	ElementAction        ElementType = "action"
	ElementCharacter     ElementType = "character"
	ElementDialogue      ElementType = "dialogue"
	ElementParenthetical ElementType = "parenthetical"
	ElementTransition    ElementType = "transition"
)

// ScreenplayBlock is one classified screenplay element. Dialogue and
// parenthetical blocks are only well-formed directly after a character or
// parenthetical block; the classifier enforces that ordering.
type ScreenplayBlock struct {
	Type ElementType `json:"type"`
	Text string      `json:"text"`
}

// Scene groups the blocks under one slugline. The synthetic leading scene has
// an empty slugline.
type Scene struct {
	Slugline string            `json:"slugline"`
	Blocks   []ScreenplayBlock `json:"blocks"`
}

// TitleField is one key/value of a screenplay title page, in source order.
type TitleField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Screenplay is a classified script: optional title page plus the element stream.
type Screenplay struct {
	TitlePage []TitleField      `json:"titlePage,omitempty"`
	Blocks    []ScreenplayBlock `json:"blocks"`
}

// Field returns the first title page value for key (case-insensitive match).
func (s Screenplay) Field(key string) string {
	for _, f := range s.TitlePage {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// Fragment is one positioned text run on a fixed-layout page, in page units
// with y growing upwards. Used only while reconstructing text.
type Fragment struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ContainerEntry is one file inside a zip-based package.
type ContainerEntry struct {
	Path       string `json:"path"`
	Data       []byte `json:"-"`
	Compressed bool   `json:"compressed"`
}
