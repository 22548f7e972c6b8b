/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/inline"
)

var reRuleLine = regexp.MustCompile(`^(\*\s*){3,}$|^(-\s*){3,}$|^(_\s*){3,}$`)

// FromMarkup classifies canonical markup line by line. Heading markers become
// scene headings, blockquote markers and inline delimiters are dropped before
// classification, and thematic breaks act like blank lines.
func FromMarkup(markup string) domain.Screenplay {
	var sc Scanner
	markup = strings.ReplaceAll(markup, "\r\n", "\n")
	for _, raw := range strings.Split(markup, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") || reRuleLine.MatchString(line) {
			sc.Reset()
			continue
		}
		for strings.HasPrefix(line, ">") {
			line = strings.TrimSpace(line[1:])
		}
		sc.Line(inline.Strip(line))
	}
	return domain.Screenplay{Blocks: sc.Blocks()}
}

// ToMarkup renders a screenplay as canonical markup that FromMarkup reads
// back to the same element sequence (modulo the all-caps action caveat).
// Character cues, parentheticals and dialogue share one paragraph.
func ToMarkup(sp domain.Screenplay) string {
	var b strings.Builder
	prev := domain.ElementNone
	for _, blk := range sp.Blocks {
		text := strings.TrimSpace(blk.Text)
		if text == "" {
			continue
		}
		chained := (blk.Type == domain.ElementDialogue && (prev == domain.ElementCharacter || prev == domain.ElementParenthetical)) ||
			(blk.Type == domain.ElementParenthetical && (prev == domain.ElementCharacter || prev == domain.ElementDialogue))
		if b.Len() > 0 {
			if chained {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		switch blk.Type {
		case domain.ElementSceneHeading:
			b.WriteString("## " + upper(text))
		case domain.ElementParenthetical:
			if !strings.HasPrefix(text, "(") {
				text = "(" + text + ")"
			}
			b.WriteString(text)
		default:
			b.WriteString(text)
		}
		prev = blk.Type
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// GroupScenes splits the element stream at scene headings. Content before the
// first heading lands in a leading scene with an empty slugline.
func GroupScenes(blocks []domain.ScreenplayBlock) []domain.Scene {
	var scenes []domain.Scene
	for _, blk := range blocks {
		if blk.Type == domain.ElementSceneHeading {
			scenes = append(scenes, domain.Scene{Slugline: blk.Text})
			continue
		}
		if len(scenes) == 0 {
			scenes = append(scenes, domain.Scene{})
		}
		cur := &scenes[len(scenes)-1]
		cur.Blocks = append(cur.Blocks, blk)
	}
	return scenes
}

// Flatten is the inverse of GroupScenes.
func Flatten(scenes []domain.Scene) []domain.ScreenplayBlock {
	var out []domain.ScreenplayBlock
	for _, sc := range scenes {
		if sc.Slugline != "" {
			out = append(out, domain.ScreenplayBlock{Type: domain.ElementSceneHeading, Text: sc.Slugline})
		}
		out = append(out, sc.Blocks...)
	}
	return out
}
