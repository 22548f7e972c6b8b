/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package formats

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
)

// Text passes canonical markup through as plain text or markdown.
type Text struct {
	Markdown bool
}

func (t Text) Extension() string {
	if t.Markdown {
		return "md"
	}
	return "txt"
}

func (t Text) MIME() string {
	if t.Markdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (t Text) Encode(ctx context.Context, doc domain.Document, _ Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(sourceOf(doc)), nil
}

func (t Text) Decode(ctx context.Context, data []byte) (Decoded, error) {
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	s := cleanText(data)
	if strings.TrimSpace(s) == "" {
		return Decoded{}, errs.Content(t.Extension(), "file contains no text")
	}
	return Decoded{Content: s}, nil
}

// cleanText decodes UTF-8 text: BOM stripped, invalid sequences replaced,
// line endings unified, NFC-normalized.
func cleanText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}

// HTML imports web pages and fragments.
type HTML struct{}

func (HTML) Extension() string { return "html" }
func (HTML) MIME() string      { return "text/html; charset=utf-8" }

func (HTML) Decode(ctx context.Context, data []byte) (d Decoded, err error) {
	defer crash.Guard("html", "decode", &err)
	if err := ctx.Err(); err != nil {
		return Decoded{}, err
	}
	src := cleanText(data)
	md, err := markup.FromHTML(src)
	if err != nil {
		return Decoded{}, errs.Structural("html", "", err)
	}
	if strings.TrimSpace(md) == "" {
		return Decoded{}, errs.Content("html", "document has no text content")
	}
	return Decoded{Content: md, Title: markup.Title(src)}, nil
}
