/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leoloveisme/crowdly-sub001/internal/errs"
)

// isolate points config, journal and logs at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CRW_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("CRW_JOURNAL", "")
	t.Setenv("CRW_JOURNAL_PATH", filepath.Join(dir, "journal.sqlite"))
	t.Setenv("CRW_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "version")
	if err != nil || !strings.HasPrefix(out, "crowdly ") {
		t.Fatalf("version: %q %v", out, err)
	}
}

func TestFormatsCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "formats")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"fountain", "spmd", "import/export", "application/epub+zip"} {
		if !strings.Contains(out, want) {
			t.Fatalf("formats table missing %q:\n%s", want, out)
		}
	}
	out, err = execute(t, "", "formats", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil || len(rows) != 9 {
		t.Fatalf("json formats: %v (%d rows)\n%s", err, len(rows), out)
	}
}

func TestImportCommand(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "scene.fountain")
	if err := os.WriteFile(in, []byte("INT. KITCHEN - DAY\n\nJOHN\nHello there.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "", "import", in)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if out != "## INT. KITCHEN - DAY\n\nJOHN\nHello there.\n" {
		t.Fatalf("unexpected markup %q", out)
	}

	out, err = execute(t, "<h1>Hi</h1>", "import", "-", "--as", "html", "--json")
	if err != nil {
		t.Fatalf("stdin import: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil || res["success"] != true || res["content"] != "# Hi\n" {
		t.Fatalf("json envelope: %v %s", err, out)
	}

	if _, err := execute(t, "x", "import", "-"); exitCode(err) != 4 {
		t.Fatalf("stdin without --as should be a usage error, got %v", err)
	}
}

func TestImportCommandReportsUnsupported(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "tool.exe")
	if err := os.WriteFile(in, []byte("MZ"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "", "import", in)
	if !errors.Is(err, errs.ErrUnsupported) || exitCode(err) != 3 {
		t.Fatalf("expected unsupported with exit 3, got %v", err)
	}
}

func TestExportCommandWritesFile(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "book.md")
	if err := os.WriteFile(src, []byte("# One\n\nHello.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "", "export", src, "--format", "epub", "--title", "My Book", "--out", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := strings.TrimSpace(out)
	if path != filepath.Join(outDir, "My_Book.epub") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("exported file missing or not a zip: %v", err)
	}
	if _, err := execute(t, "", "export", src, "--format", "epub", "--title", "My Book", "--out", outDir); exitCode(err) != 4 {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if _, err := execute(t, "", "export", src, "--format", "epub", "--title", "My Book", "--out", outDir, "--force"); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(outDir, ".crowdly-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestExportCommandStdout(t *testing.T) {
	isolate(t)
	out, err := execute(t, "# Title\n\nSome **bold** text.", "export", "-", "--format", "fountain")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != ".TITLE\n\nSome bold text.\n" {
		t.Fatalf("unexpected fountain %q", out)
	}
}

func TestExportCommandFlags(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "x", "export", "-"); exitCode(err) != 4 {
		t.Fatalf("missing --format should be a usage error, got %v", err)
	}
	if _, err := execute(t, "x", "export", "-", "--format", "pdf", "--page", "tabloid"); exitCode(err) != 4 {
		t.Fatalf("unknown preset should be a usage error, got %v", err)
	}
	out, err := execute(t, "Short.", "export", "-", "--format", "pdf", "--page", "a5")
	if err != nil || !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("pdf to a non-terminal writer should succeed: %v", err)
	}
}

func TestHistoryCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "history")
	if err != nil || !strings.Contains(out, "disabled") {
		t.Fatalf("history without journal: %q %v", out, err)
	}

	t.Setenv("CRW_JOURNAL", "1")
	if _, err := execute(t, "hello", "import", "-", "--as", "txt"); err != nil {
		t.Fatal(err)
	}
	_, _ = execute(t, "", "import", "-", "--as", "exe")
	out, err = execute(t, "", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"import", "txt", "ok", "unsupported"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q:\n%s", want, out)
		}
	}
	out, err = execute(t, "", "history", "--json", "--limit", "1")
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil || len(rows) != 1 {
		t.Fatalf("history json: %v\n%s", err, out)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)
	out, err := execute(t, "", "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if strings.TrimSpace(out) != filepath.Join(dir, "config.yaml") {
		t.Fatalf("unexpected path %q", out)
	}
	if _, err := execute(t, "", "config", "init"); exitCode(err) != 4 {
		t.Fatalf("second init should refuse, got %v", err)
	}
	out, err = execute(t, "", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "max_bytes: 52428800") || !strings.Contains(out, "logging.level overridden by CRW_LOG_LEVEL") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(&errs.SizeLimitError{Size: 2, Limit: 1}) != 3 {
		t.Fatal("size limit should exit 3")
	}
	if exitCode(errs.Content("pdf", "empty")) != 1 {
		t.Fatal("content errors should exit 1")
	}
	if exitCode(usageError{"bad"}) != 4 {
		t.Fatal("usage errors should exit 4")
	}
}
