/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnvAndOverlay(t *testing.T) {
	t.Setenv("CRW_LOG_LEVEL", "warn")
	t.Setenv("CRW_LOG_FORMAT", "json")
	t.Setenv("CRW_LOG_SOURCE", "true")
	t.Setenv("CRW_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	merged := Overlay(Options{Level: "debug"}, Options{Level: "error", Format: "console", File: "x.log"})
	if merged.Level != "debug" || merged.Format != "console" || merged.File != "x.log" {
		t.Fatalf("Overlay mismatch: %+v", merged)
	}
	if v := getenv("CRW_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler_Behavior(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	h2 = h2.WithGroup("grp")

	r := slog.Record{Time: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "2025-03-01T10:00:00Z ERR boom") {
		t.Fatalf("unexpected line prefix: %q", out)
	}
	for _, want := range []string{"k=v", "grp.n=42", "pi=3.14", "ok=true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrettyTextHandler_ComponentAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &buf}
	h = h.WithAttrs([]slog.Attr{slog.String("app", "crowdly"), slog.String("component", "formats")})

	r := slog.Record{Time: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Level: slog.LevelInfo, Message: "decoded"}
	r.AddAttrs(
		slog.String("title", "Night Shift"),
		slog.Duration("took", 1500*time.Microsecond),
		slog.Group("src", slog.String("format", "odt")),
	)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `2025-03-01T10:00:00Z INF [formats] decoded title="Night Shift" took=1.5ms src.format=odt`
	if got != want {
		t.Fatalf("line\n got %q\nwant %q", got, want)
	}
}
