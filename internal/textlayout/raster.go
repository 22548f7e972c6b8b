/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/inline"
)

// MaxSurfacePixels bounds the off-screen raster (one byte per pixel).
const MaxSurfacePixels = 1 << 28

var (
	ErrSurfaceTooLarge = errors.New("textlayout: surface too large")
	ErrReleased        = errors.New("textlayout: surface released")
)

var live atomic.Int64

// Live reports how many surfaces are currently acquired and not released.
func Live() int64 { return live.Load() }

// Page is the printable area in pixels.
type Page struct {
	Width, Height int
}

// Placed is a laid out line positioned on the tall raster. Y is the top
// of the line.
type Placed struct {
	Line
	X, Y   float32
	Rule   bool
	Border bool
}

// Layout is a whole document laid out on one continuous column whose lines
// never straddle a page boundary.
type Layout struct {
	Placed []Placed
	Width  int
	Height int
}

// LayoutBlocks lays out blocks top to bottom. bodyPt scales every style;
// a zero page height disables page-boundary alignment.
func LayoutBlocks(blocks []domain.Block, p Provider, page Page, bodyPt float32) (Layout, error) {
	if page.Width <= 0 {
		return Layout{}, fmt.Errorf("textlayout: invalid page width %d", page.Width)
	}
	fc := newFaceCache(p)
	ph := float32(page.Height)
	out := Layout{Width: page.Width}
	var y float32
	for _, b := range blocks {
		st := StyleFor(b, bodyPt)
		y += st.SpaceBefore
		if b.Kind == domain.KindRule {
			out.Placed = append(out.Placed, Placed{Line: Line{Width: float32(page.Width), Ascent: 1}, Y: y, Rule: true})
			y += 1 + st.SpaceAfter
			continue
		}
		box := wordWrap{leading: st.Leading}.layout(fc, spansFor(b, st), float32(page.Width)-st.Indent)
		for _, ln := range box.Lines {
			h := ln.Height()
			if ph > 0 && h <= ph {
				top := float32(int(y/ph)) * ph
				if y+h > top+ph {
					y = top + ph
				}
			}
			out.Placed = append(out.Placed, Placed{Line: ln, X: st.Indent, Y: y, Border: st.Border})
			y += h
		}
		y += st.SpaceAfter
	}
	out.Height = int(y + 0.999)
	if out.Height < 1 {
		out.Height = 1
	}
	return out, nil
}

func spansFor(b domain.Block, st TextStyle) []Span {
	if b.Kind == domain.KindCode {
		return []Span{{Text: b.Text, Font: st.Font}}
	}
	text := b.Text
	if b.Kind == domain.KindHeading {
		text = inline.Strip(text)
	}
	runs := inline.ToRuns(text)
	spans := make([]Span, 0, len(runs))
	for _, r := range runs {
		f := st.Font
		f.Bold = f.Bold || r.Bold
		f.Italic = f.Italic || r.Italic
		spans = append(spans, Span{Text: r.Text, Font: f, Strike: r.Strike})
	}
	return spans
}

// Surface is an off-screen grayscale raster. Callers must Release it on
// every path once acquired.
type Surface struct {
	img *image.Gray
}

// Acquire allocates a white surface.
func Acquire(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("textlayout: invalid surface size %dx%d", width, height)
	}
	if int64(width)*int64(height) > MaxSurfacePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSurfaceTooLarge, width, height)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	live.Add(1)
	return &Surface{img: img}, nil
}

// Release drops the raster. Releasing twice is a no-op.
func (s *Surface) Release() {
	if s == nil || s.img == nil {
		return
	}
	s.img = nil
	live.Add(-1)
}

// Bounds returns the surface rectangle, empty after Release.
func (s *Surface) Bounds() image.Rectangle {
	if s == nil || s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Bounds()
}

var (
	ink  = image.NewUniform(color.Gray{Y: 0})
	rule = image.NewUniform(color.Gray{Y: 0x80})
)

// Draw rasterizes a layout onto the surface.
func (s *Surface) Draw(l Layout, p Provider) error {
	if s == nil || s.img == nil {
		return ErrReleased
	}
	fc := newFaceCache(p)
	_, fakeBold := fc.p.(BasicProvider)
	for _, pl := range l.Placed {
		top := int(pl.Y)
		if pl.Rule {
			draw.Draw(s.img, image.Rect(0, top, l.Width, top+1), rule, image.Point{}, draw.Src)
			continue
		}
		if pl.Border {
			x := int(pl.X) - 10
			draw.Draw(s.img, image.Rect(x, top, x+2, top+int(pl.Height()+0.999)), rule, image.Point{}, draw.Src)
		}
		x := pl.X
		baseline := int(pl.Y + pl.Ascent)
		for _, sp := range pl.Spans {
			face, met := fc.get(sp.Font)
			d := &font.Drawer{Dst: s.img, Src: ink, Face: face, Dot: fixed.P(int(x), baseline)}
			d.DrawString(sp.Text)
			if sp.Font.Bold && fakeBold {
				d.Dot = fixed.P(int(x)+1, baseline)
				d.DrawString(sp.Text)
			}
			w := advance(&font.Drawer{Face: face}, sp.Text)
			if sp.Strike {
				sy := baseline - int(met.Ascent*0.35)
				draw.Draw(s.img, image.Rect(int(x), sy, int(x+w), sy+1), ink, image.Point{}, draw.Src)
			}
			x += w
		}
	}
	return nil
}

// Bands slices the surface into consecutive bands of at most h pixels,
// looping while the remaining height exceeds h. The bands share pixels
// with the surface and are invalid after Release.
func (s *Surface) Bands(h int) ([]*image.Gray, error) {
	if s == nil || s.img == nil {
		return nil, ErrReleased
	}
	if h <= 0 {
		return nil, fmt.Errorf("textlayout: invalid band height %d", h)
	}
	b := s.img.Bounds()
	var out []*image.Gray
	y := b.Min.Y
	for b.Max.Y-y > h {
		out = append(out, s.img.SubImage(image.Rect(b.Min.X, y, b.Max.X, y+h)).(*image.Gray))
		y += h
	}
	out = append(out, s.img.SubImage(image.Rect(b.Min.X, y, b.Max.X, b.Max.Y)).(*image.Gray))
	return out, nil
}
