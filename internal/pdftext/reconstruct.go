/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pdftext rebuilds reading-order text from positioned fragments of a
// fixed-layout page. Coordinates are page units with y growing upwards, so the
// top of the page has the largest y.
package pdftext

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

// Thresholds, in page units.
const (
	RowTolerance  = 5.0
	WordGap       = 10.0
	ParagraphGap  = 20.0
	HeadingGap    = 30.0
	MaxHeadingLen = 80
)

var reHeadingPrefix = regexp.MustCompile(`(?i)^(chapter|section)\b|^\d+\.`)

// State is carried from page to page. Pages must be fed in order.
type State struct {
	lastY      float64
	started    bool // a row has been seen; the first row has no gap above it
	paragraphs int  // paragraphs emitted so far, whole document
	headings   int
}

// Paragraphs reports how many non-empty paragraphs have been emitted.
func (s *State) Paragraphs() int { return s.paragraphs }

// TextBlocks reports paragraphs plus headings emitted so far.
func (s *State) TextBlocks() int { return s.paragraphs + s.headings }

type row struct {
	y     float64
	frags []domain.Fragment
}

// rows buckets fragments: a fragment joins the first row whose
// representative y is within RowTolerance, otherwise it starts a new row.
func rows(frags []domain.Fragment) []row {
	var out []row
	for _, f := range frags {
		placed := false
		for i := range out {
			if math.Abs(out[i].y-f.Y) <= RowTolerance {
				out[i].frags = append(out[i].frags, f)
				placed = true
				break
			}
		}
		if !placed {
			out = append(out, row{y: f.Y, frags: []domain.Fragment{f}})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].y > out[j].y })
	for i := range out {
		fs := out[i].frags
		sort.SliceStable(fs, func(a, b int) bool { return fs[a].X < fs[b].X })
	}
	return out
}

func (r row) text() string {
	var b strings.Builder
	for i, f := range r.frags {
		if i > 0 {
			prev := r.frags[i-1]
			if f.X-(prev.X+prev.Width) > WordGap && !endsSpace(b.String()) && !strings.HasPrefix(f.Text, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(f.Text)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func endsSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func isHeading(text string, gap float64, st *State) bool {
	if utf8.RuneCountInString(text) >= MaxHeadingLen {
		return false
	}
	if allCaps(text) || reHeadingPrefix.MatchString(text) {
		return true
	}
	return gap > HeadingGap && st.paragraphs == 0
}

func allCaps(s string) bool {
	letters := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters
}

// Reconstruct turns one page of fragments into paragraph and level-2 heading
// blocks. Rows whose text is empty after trimming are dropped.
func Reconstruct(frags []domain.Fragment, st *State) []domain.Block {
	var out []domain.Block
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		out = append(out, domain.Paragraph(strings.Join(para, " ")))
		st.paragraphs++
		para = nil
	}
	for _, r := range rows(frags) {
		text := r.text()
		if text == "" {
			continue
		}
		gap := 0.0
		if st.started {
			gap = math.Abs(st.lastY - r.y)
		}
		st.lastY, st.started = r.y, true
		if gap > ParagraphGap {
			flush()
		}
		if isHeading(text, gap, st) {
			flush()
			out = append(out, domain.Heading(2, text))
			st.headings++
			continue
		}
		para = append(para, text)
	}
	flush()
	return out
}

// Join concatenates per-page blocks, separating non-empty pages with a rule
// block as the page-break marker.
func Join(pages [][]domain.Block) []domain.Block {
	var out []domain.Block
	for _, p := range pages {
		if len(p) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, domain.Block{Kind: domain.KindRule})
		}
		out = append(out, p...)
	}
	return out
}
