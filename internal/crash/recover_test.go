/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureStderr swaps os.Stderr for a pipe while fn runs and returns what was written.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()
	fn()
	_ = w.Close()
	os.Stderr = orig
	return <-done
}

func TestRecoverWritesReportAndExitsWithTwo(t *testing.T) {
	code := -1
	prevExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = prevExit })

	dir := filepath.Join(t.TempDir(), "reports")
	stderr := captureStderr(t, func() {
		defer Recover(dir)
		panic("odt writer exploded")
	})

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	if len(matches) != 1 {
		t.Fatalf("want one crash report in %s, got %v", dir, matches)
	}
	if !strings.Contains(stderr, matches[0]) {
		t.Fatalf("stderr does not name the report %s: %q", matches[0], stderr)
	}
	b, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	report := string(b)
	for _, want := range []string{"Crowdly Crash Report", "Panic: odt writer exploded", "Stack:"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	called := false
	prevExit := exitFn
	exitFn = func(int) { called = true }
	t.Cleanup(func() { exitFn = prevExit })

	dir := t.TempDir()
	func() {
		defer Recover(dir)
	}()
	if called {
		t.Fatalf("exit called without a panic")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("unexpected files: %v", entries)
	}
}
