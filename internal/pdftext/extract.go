/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pdftext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

// Extract reads the positioned text of every page, in page order. A page
// without content yields a nil slice so page numbering stays aligned.
func Extract(data []byte) ([][]domain.Fragment, error) {
	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := rd.NumPage()
	pages := make([][]domain.Fragment, 0, n)
	for i := 1; i <= n; i++ {
		p := rd.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		texts := p.Content().Text
		frags := make([]domain.Fragment, 0, len(texts))
		for _, t := range texts {
			frags = append(frags, domain.Fragment{Text: t.S, X: t.X, Y: t.Y, Width: t.W, Height: t.FontSize})
		}
		pages = append(pages, frags)
	}
	return pages, nil
}

// Blocks runs extraction and reconstruction over a whole document and
// returns the joined blocks plus the number of text blocks found.
func Blocks(data []byte) ([]domain.Block, int, error) {
	pages, err := Extract(data)
	if err != nil {
		return nil, 0, err
	}
	var st State
	out := make([][]domain.Block, 0, len(pages))
	for _, frags := range pages {
		out = append(out, Reconstruct(frags, &st))
	}
	return Join(out), st.TextBlocks(), nil
}
