/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Line breaking for the fixed-layout exporter. All text measurement goes
// through a Provider: the deterministic basicfont face by default, or the
// configured TrueType/OpenType fonts.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name, "" for the body face
	SizePt float32
	Bold   bool
	Italic bool
	Mono   bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Span is a run of text with the same font and decoration.
type Span struct {
	Text   string
	Font   FontSpec
	Strike bool
}

// Line is a single laid out line with width and ascent/descent.
type Line struct {
	Spans   []Span
	Width   float32
	Ascent  float32
	Descent float32
	LineGap float32
}

// Height is the vertical advance of the line.
func (l Line) Height() float32 { return l.Ascent + l.Descent + l.LineGap }

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines  []Line
	Width  float32
	Height float32
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for every spec.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	gap := m.Height.Round() - m.Ascent.Round() - m.Descent.Round()
	if gap < 0 {
		gap = 0
	}
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(gap),
	}
}

// faceCache memoizes Resolve for the duration of one layout call.
type faceCache struct {
	p     Provider
	faces map[FontSpec]resolved
}

type resolved struct {
	face font.Face
	met  Metrics
}

func newFaceCache(p Provider) *faceCache {
	if p == nil {
		p = BasicProvider{}
	}
	return &faceCache{p: p, faces: map[FontSpec]resolved{}}
}

func (c *faceCache) get(spec FontSpec) (font.Face, Metrics) {
	if r, ok := c.faces[spec]; ok {
		return r.face, r.met
	}
	f, m := c.p.Resolve(spec)
	c.faces[spec] = resolved{face: f, met: m}
	return f, m
}

// wordWrap breaks on spaces and newlines; it does not perform shaping or
// hyphenation. A word wider than the box gets a line of its own and
// overflows.
type wordWrap struct {
	leading float32 // extra px added to every line
}

func (l wordWrap) layout(fc *faceCache, spans []Span, maxWidth float32) TextBox {
	var box TextBox
	var cur Line
	addLine := func() {
		if cur.Ascent == 0 && cur.Descent == 0 {
			var spec FontSpec
			if len(spans) > 0 {
				spec = spans[0].Font
			}
			_, met := fc.get(spec)
			cur.Ascent, cur.Descent, cur.LineGap = met.Ascent, met.Descent, met.LineGap
		}
		cur.LineGap += l.leading
		trimTrailingSpace(&cur, fc)
		box.Lines = append(box.Lines, cur)
		if cur.Width > box.Width {
			box.Width = cur.Width
		}
		box.Height += cur.Height()
		cur = Line{}
	}
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		face, met := fc.get(sp.Font)
		drawer := &font.Drawer{Face: face}
		text := strings.ReplaceAll(sp.Text, "\t", "    ")
		start := 0
		for i := 0; i <= len(text); i++ {
			if i < len(text) && text[i] != ' ' && text[i] != '\n' {
				continue
			}
			word := text[start:i]
			w := advance(drawer, word)
			if word != "" && cur.Width > 0 && cur.Width+w > maxWidth && maxWidth > 0 {
				addLine()
			}
			if word != "" {
				cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font, Strike: sp.Strike})
				cur.Width += w
				grow(&cur, met)
			}
			if i < len(text) {
				switch text[i] {
				case ' ':
					if cur.Width > 0 || sp.Font.Mono {
						cur.Spans = append(cur.Spans, Span{Text: " ", Font: sp.Font, Strike: sp.Strike})
						cur.Width += advance(drawer, " ")
					}
				case '\n':
					grow(&cur, met)
					addLine()
				}
			}
			start = i + 1
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	return box
}

func grow(l *Line, m Metrics) {
	if m.Ascent > l.Ascent {
		l.Ascent = m.Ascent
	}
	if m.Descent > l.Descent {
		l.Descent = m.Descent
	}
	if m.LineGap > l.LineGap {
		l.LineGap = m.LineGap
	}
}

func trimTrailingSpace(l *Line, fc *faceCache) {
	for n := len(l.Spans); n > 0 && l.Spans[n-1].Text == " "; n = len(l.Spans) {
		face, _ := fc.get(l.Spans[n-1].Font)
		l.Width -= advance(&font.Drawer{Face: face}, " ")
		l.Spans = l.Spans[:n-1]
	}
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s).Ceil())
}
