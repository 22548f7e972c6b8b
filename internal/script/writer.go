/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/inline"
)

// FormatFountain renders a screenplay as Fountain text. Inline formatting is
// dropped. Force markers are added only where the plain text would classify
// differently on the way back in.
func FormatFountain(sp domain.Screenplay) string {
	var b strings.Builder
	if len(sp.TitlePage) > 0 {
		for _, f := range sp.TitlePage {
			val := strings.TrimSpace(inline.Strip(f.Value))
			parts := strings.Split(val, "\n")
			if len(parts) == 1 {
				b.WriteString(f.Key + ": " + val + "\n")
				continue
			}
			b.WriteString(f.Key + ":\n")
			for _, p := range parts {
				b.WriteString("   " + strings.TrimSpace(p) + "\n")
			}
		}
		b.WriteString("\n===\n")
	}

	first := b.Len() == 0
	prev := domain.ElementNone
	for _, blk := range sp.Blocks {
		text := strings.TrimSpace(inline.Strip(blk.Text))
		if text == "" {
			continue
		}
		chained := (blk.Type == domain.ElementDialogue || blk.Type == domain.ElementParenthetical) &&
			(prev == domain.ElementCharacter || prev == domain.ElementParenthetical || prev == domain.ElementDialogue)
		if !first && !chained {
			b.WriteString("\n")
		}
		first = false
		b.WriteString(fountainLine(blk.Type, text))
		b.WriteString("\n")
		prev = blk.Type
	}
	return b.String()
}

func fountainLine(t domain.ElementType, text string) string {
	head, _, _ := strings.Cut(text, "\n")
	switch t {
	case domain.ElementSceneHeading:
		text = upper(text)
		if !IsSlugline(text) {
			return "." + text
		}
		return text
	case domain.ElementCharacter:
		if hasForceChar(text) || Classify(head, domain.ElementNone) != domain.ElementCharacter {
			return "@" + text
		}
		return text
	case domain.ElementParenthetical:
		if !strings.HasPrefix(text, "(") {
			text = "(" + text
		}
		if !strings.HasSuffix(text, ")") {
			text += ")"
		}
		return text
	case domain.ElementTransition:
		if Classify(head, domain.ElementNone) != domain.ElementTransition {
			return ">" + text
		}
		return text
	case domain.ElementDialogue:
		return text
	default:
		if hasForceChar(text) || Classify(head, domain.ElementNone) != domain.ElementAction {
			return "!" + text
		}
		return text
	}
}

func hasForceChar(s string) bool {
	return s != "" && strings.ContainsRune(".!@>~=#", rune(s[0]))
}
