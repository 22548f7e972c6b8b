/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package errs

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestKindFollowsWrapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{Structural("epub", "META-INF/container.xml", io.ErrUnexpectedEOF), "structural"},
		{fmt.Errorf("decode: %w", Content("pdf", "appears to be image-only")), "content"},
		{&SizeLimitError{Size: 60 << 20, Limit: 50 << 20}, "size_limit"},
		{&UnsupportedFormatError{Ext: "rtf", Direction: "import"}, "unsupported"},
		{errors.New("boom"), "internal"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestStructuralErrorKeepsCause(t *testing.T) {
	err := Structural("odt", "content.xml", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) || !errors.Is(err, ErrStructural) {
		t.Fatalf("expected both sentinel and cause in chain: %v", err)
	}
	if !strings.Contains(err.Error(), "content.xml") {
		t.Fatalf("message should name the entry: %q", err.Error())
	}
	var se *StructuralError
	if !errors.As(fmt.Errorf("wrap: %w", err), &se) || se.Format != "odt" {
		t.Fatalf("errors.As failed")
	}
}

func TestSizeLimitMessage(t *testing.T) {
	e := &SizeLimitError{Size: 52428801, Limit: 52428800}
	if !strings.Contains(e.Error(), "50 MB") {
		t.Fatalf("unexpected message: %q", e.Error())
	}
}
