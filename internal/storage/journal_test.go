/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), JournalFileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndListNewestFirst(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, f := range []string{"docx", "epub", "pdf"} {
		e := Entry{Time: base.Add(time.Duration(i) * time.Minute), Direction: "import", Format: f, Bytes: int64(100 * (i + 1)), Outcome: "ok", Duration: 1500 * time.Millisecond}
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := j.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Format != "pdf" || got[1].Format != "epub" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].ID == "" || !got[0].Time.Equal(base.Add(2*time.Minute)) || got[0].Duration != 1500*time.Millisecond {
		t.Fatalf("entry fields not round-tripped: %+v", got[0])
	}
}

func TestPrune(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := j.Record(ctx, Entry{Direction: "export", Format: "odt", Outcome: "ok", Time: time.Unix(int64(1000+i), 0)}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := j.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 3 {
		t.Fatalf("pruned %d, want 3", n)
	}
	left, _ := j.List(ctx, 10)
	if len(left) != 2 {
		t.Fatalf("left %d entries, want 2", len(left))
	}
}

func TestExportConformsToSchema(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	_ = j.Record(ctx, Entry{Direction: "import", Format: "pdf", Bytes: 42, Outcome: "content", Message: "no text"})
	_ = j.Record(ctx, Entry{Direction: "export", Format: "epub", Bytes: 900, Outcome: "ok", Filename: "My_Book.epub"})
	var buf bytes.Buffer
	if err := j.ExportJSON(ctx, &buf, 10); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	schemaBytes, err := os.ReadFile(filepath.Join("..", "..", "docs", "journal.schema.json"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewBytesLoader(buf.Bytes()))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("journal export does not conform to schema:\n%s", buf.String())
	}
}

// TestMigrationV1ToV2 opens a journal written before durations were tracked.
func TestMigrationV1ToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), JournalFileName)
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE conversions (id TEXT PRIMARY KEY, ts TEXT NOT NULL, direction TEXT NOT NULL, format TEXT NOT NULL, bytes INTEGER NOT NULL, outcome TEXT NOT NULL, message TEXT, filename TEXT);`,
		`INSERT INTO conversions VALUES('old', '2020-01-01T00:00:00Z', 'import', 'txt', 3, 'ok', NULL, NULL);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	j, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()
	v, err := j.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema = %d (%v), want %d", v, err, schemaVersion)
	}
	got, err := j.List(ctx, 10)
	if err != nil {
		t.Fatalf("List after migration: %v", err)
	}
	if len(got) != 1 || got[0].ID != "old" || got[0].Duration != 0 {
		t.Fatalf("old row not preserved: %+v", got)
	}
}

func TestOpenReplacesCorruptJournal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, JournalFileName)
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	j, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()
	if err := j.Record(context.Background(), Entry{Direction: "import", Format: "txt", Outcome: "ok"}); err != nil {
		t.Fatalf("Record on rebuilt journal: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "backups"))
	if len(entries) == 0 {
		t.Fatal("expected a backup of the damaged file")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
