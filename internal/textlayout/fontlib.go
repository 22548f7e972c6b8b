/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores parsed OpenType fonts keyed by family and style.
// Lookups fall back to the family's regular face, then to any face of
// the family.
type FontLibrary struct {
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadFile parses a TTF/OTF file and registers it.
func (fl *FontLibrary) LoadFile(family string, bold, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.Load(family, bold, italic, data); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}

// Load parses font bytes and registers them.
func (fl *FontLibrary) Load(family string, bold, italic bool, data []byte) error {
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	fl.fonts[fontKey{family: family, bold: bold, italic: italic}] = f
	return nil
}

// Len reports how many faces are registered.
func (fl *FontLibrary) Len() int {
	if fl == nil {
		return 0
	}
	return len(fl.fonts)
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil || fl.fonts == nil {
		return nil
	}
	if f, ok := fl.fonts[fontKey{family: spec.Family, bold: spec.Bold, italic: spec.Italic}]; ok {
		return f
	}
	if f, ok := fl.fonts[fontKey{family: spec.Family}]; ok {
		return f
	}
	for k, f := range fl.fonts {
		if k.family == spec.Family {
			return f
		}
	}
	return nil
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another
// Provider when no face matches.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 if zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if p.Lib != nil {
		lookup := spec
		if spec.Mono {
			lookup.Family = MonoFamily
		}
		f := p.Lib.find(lookup)
		if f == nil && spec.Mono {
			f = p.Lib.find(FontSpec{Family: spec.Family, Bold: spec.Bold, Italic: spec.Italic})
		}
		if f != nil {
			face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
			if err == nil {
				return face, metricsOf(face)
			}
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

const (
	// BodyFamily is the family name the configured font is registered under.
	BodyFamily = ""
	// MonoFamily is the family of the configured code font, looked up first
	// for code blocks.
	MonoFamily = "mono"
)

// NewProvider returns the basicfont provider when no font is configured.
// Otherwise the font at fontPath serves every body style and the font at
// monoPath serves code blocks; either may be empty, and missing faces fall
// back to basicfont (code) or the body font.
func NewProvider(fontPath, monoPath string, dpi float64) (Provider, error) {
	if fontPath == "" && monoPath == "" {
		return BasicProvider{}, nil
	}
	lib := NewFontLibrary()
	if fontPath != "" {
		if err := lib.LoadFile(BodyFamily, false, false, fontPath); err != nil {
			return nil, err
		}
	}
	if monoPath != "" {
		if err := lib.LoadFile(MonoFamily, false, false, monoPath); err != nil {
			return nil, err
		}
	}
	return OTProvider{Lib: lib, DPI: dpi}, nil
}
