/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interchange is the entry point for conversions. It enforces the input
// ceiling, dispatches by extension to a format adapter and reports every outcome
// as a Result that never carries a partial document.
package interchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/domain"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	"github.com/leoloveisme/crowdly-sub001/internal/formats"
	applog "github.com/leoloveisme/crowdly-sub001/internal/log"
	"github.com/leoloveisme/crowdly-sub001/internal/markup"
	"github.com/leoloveisme/crowdly-sub001/internal/storage"
)

// Journal receives one entry per conversion. *storage.Journal satisfies it.
type Journal interface {
	Record(ctx context.Context, e storage.Entry) error
}

// Engine converts documents. The zero value is not usable; call New.
// An Engine holds no per-call state and may be shared between goroutines.
type Engine struct {
	MaxBytes      int64
	Render        config.RenderConfig
	Level         int
	Language      string
	DefaultAuthor string
	Journal       Journal // optional

	now func() time.Time
}

// New builds an engine from the application configuration.
func New(cfg config.AppConfig) *Engine {
	limit := cfg.Limits.MaxBytes
	if limit <= 0 {
		limit = config.DefaultMaxBytes
	}
	return &Engine{
		MaxBytes:      limit,
		Render:        cfg.Render,
		Level:         cfg.Export.CompressionLevel,
		Language:      cfg.Export.Language,
		DefaultAuthor: cfg.Export.DefaultAuthor,
		now:           time.Now,
	}
}

// Result is the outcome of one conversion. Exactly one of Content/Payload is
// set on success; on failure only Message and ErrorKind are.
type Result struct {
	Success   bool   `json:"success"`
	Content   string `json:"content,omitempty"`
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Payload   []byte `json:"-"`
	Filename  string `json:"filename,omitempty"`
	MIME      string `json:"mime,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Err       error  `json:"-"`
}

func failure(err error) Result {
	return Result{Message: err.Error(), ErrorKind: errs.Kind(err), Err: err}
}

// ExportOptions are the caller-facing export settings.
type ExportOptions struct {
	Title    string
	Author   string
	Filename string // base name; derived from the title when empty
	Render   *config.RenderConfig
}

func (e *Engine) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) limit() int64 {
	if e.MaxBytes <= 0 {
		return config.DefaultMaxBytes
	}
	return e.MaxBytes
}

func (e *Engine) checkSize(n int64) error {
	if n > e.limit() {
		return &errs.SizeLimitError{Size: n, Limit: e.limit()}
	}
	return nil
}

// Import converts a file's bytes, declared by extension, to canonical markup.
func (e *Engine) Import(ctx context.Context, data []byte, ext string) Result {
	return e.run(ctx, "import", ext, int64(len(data)), func(ctx context.Context) (Result, error) {
		if err := e.checkSize(int64(len(data))); err != nil {
			return Result{}, err
		}
		ent, ok := formats.Lookup(ext)
		if !ok || ent.Decoder == nil {
			return Result{}, &errs.UnsupportedFormatError{Ext: formats.Normalize(ext), Direction: "import"}
		}
		d, err := decode(ctx, ent, data)
		if err != nil {
			return Result{}, err
		}
		return Result{Success: true, Content: d.Content, Title: d.Title, Author: d.Author}, nil
	})
}

// ImportFile stats the file before reading it so oversize inputs are never loaded.
func (e *Engine) ImportFile(ctx context.Context, path string) Result {
	ext := filepath.Ext(path)
	st, err := os.Stat(path)
	if err != nil {
		return e.run(ctx, "import", ext, 0, func(context.Context) (Result, error) {
			return Result{}, fmt.Errorf("open input: %w", err)
		})
	}
	if err := e.checkSize(st.Size()); err != nil {
		return e.run(ctx, "import", ext, st.Size(), func(context.Context) (Result, error) { return Result{}, err })
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return e.run(ctx, "import", ext, st.Size(), func(context.Context) (Result, error) {
			return Result{}, fmt.Errorf("read input: %w", err)
		})
	}
	return e.Import(ctx, data, ext)
}

// Export renders canonical markup into the target format.
func (e *Engine) Export(ctx context.Context, content, format string, opts ExportOptions) Result {
	return e.run(ctx, "export", format, int64(len(content)), func(ctx context.Context) (Result, error) {
		if err := e.checkSize(int64(len(content))); err != nil {
			return Result{}, err
		}
		ent, ok := formats.Lookup(format)
		if !ok || ent.Encoder == nil {
			return Result{}, &errs.UnsupportedFormatError{Ext: formats.Normalize(format), Direction: "export"}
		}
		blocks := markup.Parse(content)
		author := opts.Author
		if author == "" {
			author = e.DefaultAuthor
		}
		doc := domain.Document{Title: opts.Title, Author: author, Language: e.Language, Blocks: blocks, Source: content}
		fo := formats.Options{Title: opts.Title, Author: author, Language: e.Language, Render: e.Render, Level: e.Level, Modified: e.clock()}
		if opts.Render != nil {
			fo.Render = *opts.Render
		}
		payload, err := encode(ctx, ent, doc, fo)
		if err != nil {
			return Result{}, err
		}
		base := opts.Filename
		if strings.TrimSpace(base) == "" {
			base = opts.Title
		}
		if strings.TrimSpace(base) == "" {
			base = markup.FirstHeading(blocks)
		}
		return Result{
			Success:  true,
			Payload:  payload,
			Filename: SanitizeFilename(strings.TrimSuffix(base, "."+ent.Tag)) + "." + ent.Tag,
			MIME:     ent.MIME,
		}, nil
	})
}

func decode(ctx context.Context, ent formats.Entry, data []byte) (d formats.Decoded, err error) {
	defer crash.Guard(ent.Tag, "decode", &err)
	return ent.Decoder.Decode(ctx, data)
}

func encode(ctx context.Context, ent formats.Entry, doc domain.Document, opts formats.Options) (out []byte, err error) {
	defer crash.Guard(ent.Tag, "encode", &err)
	return ent.Encoder.Encode(ctx, doc, opts)
}

// run wraps one conversion with logging and journaling.
func (e *Engine) run(ctx context.Context, direction, ext string, size int64, fn func(context.Context) (Result, error)) Result {
	id := uuid.New().String()
	ctx = applog.WithConversion(ctx, id)
	l := applog.WithFormat(applog.WithOperation(applog.WithComponent("interchange"), direction), formats.Normalize(ext))
	start := e.clock()

	res, err := fn(ctx)
	if err != nil {
		res = failure(err)
	}
	elapsed := e.clock().Sub(start)

	outcome := errs.Kind(err)
	attrs := []any{slog.String("outcome", outcome), slog.Int64("bytes", size), slog.Duration("elapsed", elapsed)}
	switch {
	case err == nil:
		l.InfoContext(ctx, "conversion finished", attrs...)
	case errors.Is(err, errs.ErrSizeLimit), errors.Is(err, errs.ErrUnsupported), errors.Is(err, errs.ErrContent):
		l.WarnContext(ctx, "conversion rejected", append(attrs, slog.Any("err", err))...)
	default:
		l.ErrorContext(ctx, "conversion failed", append(attrs, slog.Any("err", err))...)
	}

	if e.Journal != nil {
		entry := storage.Entry{
			ID: id, Time: start, Direction: direction, Format: formats.Normalize(ext), Bytes: size,
			Outcome: outcome, Message: res.Message, Filename: res.Filename, Duration: elapsed,
		}
		if jerr := e.Journal.Record(ctx, entry); jerr != nil {
			l.WarnContext(ctx, "journal write failed", slog.Any("err", jerr))
		}
	}
	return res
}
