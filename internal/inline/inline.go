/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package inline converts between canonical inline markup and styled runs.
//
// The scan is leftmost-first: at every step all delimiter patterns are tried
// against the remaining text and the match that starts earliest wins, ties
// going to the pattern declared first. Code spans and fenced blocks are
// swapped for placeholders before the scan so their contents are never styled.
package inline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

type pattern struct {
	re     *regexp.Regexp
	mark   string
	bold   bool
	italic bool
	strike bool
}

// Declaration order is the tie-break order.
var patterns = []pattern{
	{re: regexp.MustCompile(`\*\*\*(.+?)\*\*\*`), mark: "***", bold: true, italic: true},
	{re: regexp.MustCompile(`\*\*(.+?)\*\*`), mark: "**", bold: true},
	{re: regexp.MustCompile(`__(.+?)__`), mark: "__", bold: true},
	{re: regexp.MustCompile(`\*(.+?)\*`), mark: "*", italic: true},
	{re: regexp.MustCompile(`_(.+?)_`), mark: "_", italic: true},
	{re: regexp.MustCompile(`~~(.+?)~~`), mark: "~~", strike: true},
}

var (
	fenceRe = regexp.MustCompile("(?s)```.*?```")
	codeRe  = regexp.MustCompile("`[^`\n]+`")
	slotRe  = regexp.MustCompile("\x00([0-9]+)\x00")
)

// protect replaces code with \x00N\x00 slots.
func protect(s string) (string, []string) {
	var saved []string
	swap := func(m string) string {
		saved = append(saved, m)
		return "\x00" + strconv.Itoa(len(saved)-1) + "\x00"
	}
	s = fenceRe.ReplaceAllStringFunc(s, swap)
	s = codeRe.ReplaceAllStringFunc(s, swap)
	return s, saved
}

func restore(s string, saved []string) string {
	if len(saved) == 0 || !strings.Contains(s, "\x00") {
		return s
	}
	return slotRe.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(strings.Trim(m, "\x00"))
		if err != nil || n < 0 || n >= len(saved) {
			return m
		}
		return saved[n]
	})
}

// ToRuns splits markup into non-overlapping runs whose texts, concatenated,
// equal the markup minus the recognised delimiters.
func ToRuns(markup string) []domain.Run {
	rest, saved := protect(markup)
	var runs []domain.Run
	emit := func(r domain.Run) {
		r.Text = restore(r.Text, saved)
		if r.Text != "" {
			runs = append(runs, r)
		}
	}
	for rest != "" {
		best := -1
		var loc []int
		for i, p := range patterns {
			m := p.re.FindStringSubmatchIndex(rest)
			if m == nil {
				continue
			}
			if best == -1 || m[0] < loc[0] {
				best, loc = i, m
			}
		}
		if best == -1 {
			emit(domain.Run{Text: rest})
			break
		}
		if loc[0] > 0 {
			emit(domain.Run{Text: rest[:loc[0]]})
		}
		p := patterns[best]
		r := domain.Run{Text: rest[loc[2]:loc[3]], Bold: p.bold, Italic: p.italic, Strike: p.strike}
		if p.mark == "__" || p.mark == "_" {
			r.Mark = p.mark
		}
		emit(r)
		rest = rest[loc[1]:]
	}
	return runs
}

// FromRuns serializes runs back to markup. Strike wraps outermost.
func FromRuns(runs []domain.Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		mark := delimiter(r)
		if r.Strike {
			b.WriteString("~~")
		}
		b.WriteString(mark)
		b.WriteString(r.Text)
		b.WriteString(mark)
		if r.Strike {
			b.WriteString("~~")
		}
	}
	return b.String()
}

func delimiter(r domain.Run) string {
	switch {
	case r.Bold && r.Italic:
		return "***"
	case r.Bold:
		if r.Mark == "__" {
			return "__"
		}
		return "**"
	case r.Italic:
		if r.Mark == "_" {
			return "_"
		}
		return "*"
	}
	return ""
}

// Strip drops every inline delimiter and keeps only the text.
func Strip(markup string) string {
	var b strings.Builder
	for _, r := range ToRuns(markup) {
		b.WriteString(r.Text)
	}
	return b.String()
}
