/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script classifies screenplay text and converts it between Fountain,
// canonical markup and the flat element list shared with the FDX adapter.
package script

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

var (
	reSlug      = regexp.MustCompile(`(?i)^(INT\.|EXT\.|INT/EXT\.|I/E\.|EST\.)`)
	reCharacter = regexp.MustCompile(`^[\p{Lu} .'()\-]+$`)
	reLetter    = regexp.MustCompile(`\p{Lu}`)
	reParen     = regexp.MustCompile(`^\(.*\)$`)
	reTransit   = regexp.MustCompile(`(?i)TO:$`)
)

// maxCharacterLen bounds a character cue; longer all-caps lines are action.
const maxCharacterLen = 40

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{"heading-marker", func(l string, _ domain.ElementType) bool { return strings.HasPrefix(l, "#") }, domain.ElementSceneHeading},
	{"slug-prefix", func(l string, _ domain.ElementType) bool { return reSlug.MatchString(l) }, domain.ElementSceneHeading},
	{"character", func(l string, _ domain.ElementType) bool { return isCharacterCue(l) }, domain.ElementCharacter},
	{"parenthetical", func(l string, _ domain.ElementType) bool { return reParen.MatchString(l) }, domain.ElementParenthetical},
	{"dialogue", func(_ string, ctx domain.ElementType) bool {
		return ctx == domain.ElementCharacter || ctx == domain.ElementParenthetical
	}, domain.ElementDialogue},
	{"transition", func(l string, _ domain.ElementType) bool { return reTransit.MatchString(l) }, domain.ElementTransition},
}

func isCharacterCue(l string) bool {
	return utf8.RuneCountInString(l) < maxCharacterLen &&
		l == strings.ToUpper(l) &&
		reCharacter.MatchString(l) &&
		reLetter.MatchString(l)
}

// Classify returns the element type of a trimmed, non-blank line given the
// type of the previous non-blank element. It depends on nothing else.
func Classify(line string, ctx domain.ElementType) domain.ElementType {
	for _, r := range rules {
		if r.match(line, ctx) {
			return r.typ
		}
	}
	return domain.ElementAction
}

// IsSlugline reports whether text already reads as an INT/EXT scene heading.
func IsSlugline(text string) bool { return reSlug.MatchString(strings.TrimSpace(text)) }

// upper is the locale-neutral upper-casing used for scene headings.
func upper(s string) string { return cases.Upper(language.Und).String(s) }

// normalize applies per-type text rules to a classified line.
func normalize(t domain.ElementType, line string) string {
	switch t {
	case domain.ElementSceneHeading:
		return upper(strings.TrimSpace(strings.TrimLeft(line, "#")))
	default:
		return line
	}
}

// Scanner threads classification context across lines. A blank line resets
// the context, which breaks a character/dialogue chain.
type Scanner struct {
	ctx    domain.ElementType
	blocks []domain.ScreenplayBlock
}

// Context returns the type of the last emitted element since the last blank line.
func (s *Scanner) Context() domain.ElementType { return s.ctx }

// Line classifies one raw line and records it.
func (s *Scanner) Line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		s.ctx = domain.ElementNone
		return
	}
	t := Classify(line, s.ctx)
	s.Emit(t, normalize(t, line))
}

// Emit records an element whose type was decided elsewhere (force markers,
// typed FDX paragraphs) and updates the context.
func (s *Scanner) Emit(t domain.ElementType, text string) {
	s.blocks = append(s.blocks, domain.ScreenplayBlock{Type: t, Text: text})
	s.ctx = t
}

// Reset clears the context without emitting anything.
func (s *Scanner) Reset() { s.ctx = domain.ElementNone }

// Blocks returns everything emitted so far.
func (s *Scanner) Blocks() []domain.ScreenplayBlock { return s.blocks }

// ClassifyLines runs a fresh Scanner over lines.
func ClassifyLines(lines []string) []domain.ScreenplayBlock {
	var s Scanner
	for _, l := range lines {
		s.Line(l)
	}
	return s.Blocks()
}
