/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package formats holds one encoder/decoder pair per exchange format. Every
// adapter is stateless; a value is safe for concurrent use.
package formats

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
)

// Options carries export metadata and rendering settings.
type Options struct {
	Title    string
	Author   string
	Language string
	Render   config.RenderConfig
	// Level is the deflate level of zip-based packages.
	Level int
	// Modified stamps package entries and metadata; zero means now.
	Modified time.Time
}

func (o Options) modified() time.Time {
	if o.Modified.IsZero() {
		return time.Now().UTC()
	}
	return o.Modified.UTC()
}

func (o Options) language() string {
	if o.Language == "" {
		return "en"
	}
	return o.Language
}

// Decoded is the result of an import: canonical markup plus whatever
// metadata the source carried.
type Decoded struct {
	Content string
	Title   string
	Author  string
}

// Adapter identifies a format.
type Adapter interface {
	Extension() string
	MIME() string
}

type Encoder interface {
	Adapter
	Encode(ctx context.Context, doc domain.Document, opts Options) ([]byte, error)
}

type Decoder interface {
	Adapter
	Decode(ctx context.Context, data []byte) (Decoded, error)
}

// Entry is one registered format.
type Entry struct {
	Tag     string
	Aliases []string
	MIME    string
	Encoder Encoder
	Decoder Decoder
}

// Direction is "import", "export" or "import/export".
func (e Entry) Direction() string {
	switch {
	case e.Encoder != nil && e.Decoder != nil:
		return "import/export"
	case e.Encoder != nil:
		return "export"
	default:
		return "import"
	}
}

var registry = func() map[string]Entry {
	entries := []Entry{
		{Tag: "pdf", Encoder: PDF{}, Decoder: PDF{}},
		{Tag: "docx", Encoder: DOCX{}, Decoder: DOCX{}},
		{Tag: "epub", Encoder: EPUB{}, Decoder: EPUB{}},
		{Tag: "odt", Encoder: ODT{}, Decoder: ODT{}},
		{Tag: "fdx", Encoder: FDX{}, Decoder: FDX{}},
		{Tag: "fountain", Aliases: []string{"spmd"}, Encoder: Fountain{}, Decoder: Fountain{}},
		{Tag: "txt", Aliases: []string{"text"}, Encoder: Text{}, Decoder: Text{}},
		{Tag: "md", Aliases: []string{"markdown"}, Encoder: Text{Markdown: true}, Decoder: Text{Markdown: true}},
		{Tag: "html", Aliases: []string{"htm", "xhtml"}, Decoder: HTML{}},
	}
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.Encoder != nil {
			e.MIME = e.Encoder.MIME()
		} else {
			e.MIME = e.Decoder.MIME()
		}
		m[e.Tag] = e
		for _, a := range e.Aliases {
			m[a] = e
		}
	}
	return m
}()

// Normalize lower-cases an extension or tag and strips surrounding space and
// a leading dot.
func Normalize(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// Lookup resolves a tag, extension or alias.
func Lookup(ext string) (Entry, bool) {
	e, ok := registry[Normalize(ext)]
	return e, ok
}

// Formats lists every registered format once, sorted by tag.
func Formats() []Entry {
	out := make([]Entry, 0, len(registry))
	for k, e := range registry {
		if k == e.Tag {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// sourceOf returns the canonical markup of doc, formatting the blocks when
// the original text is unknown.
func sourceOf(doc domain.Document) string {
	if doc.Source != "" {
		return doc.Source
	}
	return markup.Format(doc.Blocks)
}

// titled prefixes content with a level-1 heading unless it already starts
// with that heading.
func titled(title, content string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return content
	}
	head := "# " + title
	if strings.HasPrefix(strings.TrimLeft(content, "\n"), head+"\n") || strings.TrimSpace(content) == head {
		return content
	}
	if strings.TrimSpace(content) == "" {
		return head + "\n"
	}
	return head + "\n\n" + content
}
