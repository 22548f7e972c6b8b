/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// language=SQL
// dialect=SQLite
const insertConversionSQL = `INSERT INTO conversions(id, ts, direction, format, bytes, outcome, message, filename, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listConversionsSQL = `SELECT id, ts, direction, format, bytes, outcome, COALESCE(message, ''), COALESCE(filename, ''), duration_ms
	FROM conversions ORDER BY ts DESC, rowid DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldConversionsSQL = `DELETE FROM conversions WHERE id NOT IN (
	SELECT id FROM conversions ORDER BY ts DESC, rowid DESC LIMIT ?
)`

// tsLayout is fixed-width so that text order matches time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one journaled conversion.
type Entry struct {
	ID        string        `json:"id"`
	Time      time.Time     `json:"ts"`
	Direction string        `json:"direction"` // import or export
	Format    string        `json:"format"`
	Bytes     int64         `json:"bytes"`
	Outcome   string        `json:"outcome"` // errs.Kind tag, "ok" on success
	Message   string        `json:"message,omitempty"`
	Filename  string        `json:"filename,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Record appends e. Missing ids and timestamps are filled in.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if j == nil || j.db == nil {
		return errors.New("journal is closed")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := j.db.ExecContext(ctx, insertConversionSQL,
		e.ID, e.Time.UTC().Format(tsLayout), e.Direction, e.Format, e.Bytes, e.Outcome,
		e.Message, e.Filename, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	return nil
}

// List returns up to limit most recent entries, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, listConversionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			tsStr string
			ms    int64
		)
		if err := rows.Scan(&e.ID, &tsStr, &e.Direction, &e.Format, &e.Bytes, &e.Outcome, &e.Message, &e.Filename, &ms); err != nil {
			return nil, err
		}
		if e.Time, err = time.Parse(tsLayout, tsStr); err != nil {
			e.Time, _ = time.Parse(time.RFC3339Nano, tsStr)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps at most keepLast entries and deletes older ones.
func (j *Journal) Prune(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx, pruneOldConversionsSQL, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune conversions: %w", err)
	}
	return res.RowsAffected()
}

type exportEntry struct {
	Entry
	DurationMS int64 `json:"duration_ms"`
}

// ExportJSON writes the most recent entries as a JSON array.
func (j *Journal) ExportJSON(ctx context.Context, w io.Writer, limit int) error {
	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}
	out := make([]exportEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, exportEntry{Entry: e, DurationMS: e.Duration.Milliseconds()})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
