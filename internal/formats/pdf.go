/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package formats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
	"github.com/leoloveisme/crowdly-sub001/internal/pdftext"
	"github.com/leoloveisme/crowdly-sub001/internal/textlayout"
	"github.com/leoloveisme/crowdly-sub001/internal/version"
)

// PDF exports a rasterized, paginated rendering and imports positioned text.
//
// Geometry:
//   - Units are points; the raster is drawn at Render.DPI.
//   - The printable area is the page minus Render.MarginPt on every side.
//   - The tall raster is sliced into printable-height bands, one per page.
type PDF struct{}

func (PDF) Extension() string { return "pdf" }
func (PDF) MIME() string      { return "application/pdf" }

// renderDefaults fills unset geometry from the application defaults.
func renderDefaults(r config.RenderConfig) config.RenderConfig {
	d := config.Defaults().Render
	if r.PageWidthPt <= 0 {
		r.PageWidthPt = d.PageWidthPt
	}
	if r.PageHeightPt <= 0 {
		r.PageHeightPt = d.PageHeightPt
	}
	if r.MarginPt < 0 {
		r.MarginPt = d.MarginPt
	}
	if r.DPI <= 0 {
		r.DPI = d.DPI
	}
	if r.FontSize <= 0 {
		r.FontSize = d.FontSize
	}
	return r
}

func (PDF) Encode(ctx context.Context, doc domain.Document, opts Options) (out []byte, err error) {
	defer crash.Guard("pdf", "encode", &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := renderDefaults(opts.Render)
	contentW := r.PageWidthPt - 2*r.MarginPt
	contentH := r.PageHeightPt - 2*r.MarginPt
	if contentW <= 0 || contentH <= 0 {
		return nil, fmt.Errorf("pdf: margins %.1fpt leave no printable area on %.1fx%.1fpt page", r.MarginPt, r.PageWidthPt, r.PageHeightPt)
	}
	scale := float64(r.DPI) / 72.0
	page := textlayout.Page{Width: int(contentW * scale), Height: int(contentH * scale)}
	if page.Width < 1 || page.Height < 1 {
		return nil, fmt.Errorf("pdf: printable area too small at %d dpi", r.DPI)
	}

	provider, err := textlayout.NewProvider(r.FontPath, r.MonoFontPath, float64(r.DPI))
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	lay, err := textlayout.LayoutBlocks(doc.Blocks, provider, page, float32(r.FontSize))
	if err != nil {
		return nil, fmt.Errorf("pdf: layout: %w", err)
	}

	surf, err := textlayout.Acquire(page.Width, lay.Height)
	if errors.Is(err, textlayout.ErrSurfaceTooLarge) {
		return nil, errs.Content("pdf", "document too long to render at this page size and resolution")
	}
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	defer surf.Release()
	if err := surf.Draw(lay, provider); err != nil {
		return nil, fmt.Errorf("pdf: rasterize: %w", err)
	}
	bands, err := surf.Bands(page.Height)
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: r.PageWidthPt, Ht: r.PageHeightPt},
	})
	pdf.SetTitle(opts.Title, true)
	pdf.SetAuthor(opts.Author, true)
	pdf.SetCreator("crowdly "+version.String(), true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, band := range bands {
		var buf bytes.Buffer
		if err := png.Encode(&buf, band); err != nil {
			return nil, fmt.Errorf("pdf: encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, imgOpt, &buf)
		pdf.AddPage()
		h := float64(band.Bounds().Dy()) / scale
		w := float64(band.Bounds().Dx()) / scale
		pdf.ImageOptions(name, r.MarginPt, r.MarginPt, w, h, false, imgOpt, 0, "")
	}
	var b bytes.Buffer
	if err := pdf.Output(&b); err != nil {
		return nil, fmt.Errorf("pdf: write: %w", err)
	}
	return b.Bytes(), nil
}

func (PDF) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("pdf", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	blocks, n, err := pdftext.Blocks(data)
	if err != nil {
		return Decoded{}, errs.Structural("pdf", "", err)
	}
	if n == 0 {
		return Decoded{}, errs.Content("pdf", "document appears to be image-only or has no extractable text")
	}
	return Decoded{Content: markup.Format(blocks)}, nil
}
