/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package errs defines the error taxonomy shared by every format adapter and
// the interchange orchestrator. Each typed error unwraps to a sentinel so callers
// can branch with errors.Is without caring about the concrete type.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrStructural means a container or XML document could not be parsed at all.
	ErrStructural = errors.New("structural error")
	// ErrContent means the structure parsed but yielded no usable text.
	ErrContent = errors.New("content error")
	// ErrSizeLimit means the input exceeds the configured ceiling.
	ErrSizeLimit = errors.New("size limit exceeded")
	// ErrUnsupported means the declared extension or target format is unknown.
	ErrUnsupported = errors.New("unsupported format")
)

// StructuralError reports an unparsable package, manifest or XML part.
type StructuralError struct {
	Format  string // format tag, e.g. "epub"
	Path    string // entry inside the package, if any
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("invalid %s file: %s: %s", e.Format, e.Path, msg)
	}
	return fmt.Sprintf("invalid %s file: %s", e.Format, msg)
}

func (e *StructuralError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStructural, e.Err}
	}
	return []error{ErrStructural}
}

// ContentError reports a document that parsed but contains nothing usable.
type ContentError struct {
	Format  string
	Message string
}

func (e *ContentError) Error() string {
	if e.Format == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Message)
}

func (e *ContentError) Unwrap() error { return ErrContent }

// SizeLimitError reports an input over the configured ceiling.
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file is too large: %d bytes (limit %d MB)", e.Size, e.Limit/(1024*1024))
}

func (e *SizeLimitError) Unwrap() error { return ErrSizeLimit }

// UnsupportedFormatError reports an unknown extension or export target.
type UnsupportedFormatError struct {
	Ext       string
	Direction string // "import" or "export"
}

func (e *UnsupportedFormatError) Error() string {
	if e.Direction != "" {
		return fmt.Sprintf("unsupported %s format: %q", e.Direction, e.Ext)
	}
	return fmt.Sprintf("unsupported format: %q", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupported }

// Structural builds a StructuralError wrapping err.
func Structural(format, path string, err error) *StructuralError {
	return &StructuralError{Format: format, Path: path, Err: err}
}

// Structuralf builds a StructuralError with a formatted message.
func Structuralf(format, path, msg string, args ...any) *StructuralError {
	return &StructuralError{Format: format, Path: path, Message: fmt.Sprintf(msg, args...)}
}

// Content builds a ContentError.
func Content(format, msg string) *ContentError {
	return &ContentError{Format: format, Message: msg}
}

// Kind returns a short stable tag for err, used in logs and the journal.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSizeLimit):
		return "size_limit"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrStructural):
		return "structural"
	case errors.Is(err, ErrContent):
		return "content"
	default:
		return "internal"
	}
}
