/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrMissingEntry is returned by Reader.Read for an absent path.
var ErrMissingEntry = errors.New("missing entry")

// MaxEntryBytes caps the decompressed size of a single entry.
const MaxEntryBytes = 256 << 20

// Reader gives random access to the entries of a zip package.
type Reader struct {
	files map[string]*zip.File
	order []string
}

// Open parses the zip central directory of data.
func Open(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		if _, dup := r.files[name]; dup {
			continue
		}
		r.files[name] = f
		r.order = append(r.order, name)
	}
	return r, nil
}

// Names lists entry paths in archive order.
func (r *Reader) Names() []string { return append([]string(nil), r.order...) }

// Has reports whether path exists.
func (r *Reader) Has(p string) bool {
	_, ok := r.lookup(p)
	return ok
}

func (r *Reader) lookup(p string) (*zip.File, bool) {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if f, ok := r.files[p]; ok {
		return f, true
	}
	// some producers differ in case only
	for name, f := range r.files {
		if strings.EqualFold(name, p) {
			return f, true
		}
	}
	return nil, false
}

// Read returns the decompressed bytes of path.
func (r *Reader) Read(p string) ([]byte, error) {
	f, ok := r.lookup(p)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrMissingEntry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, MaxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if len(data) > MaxEntryBytes {
		return nil, fmt.Errorf("%s: entry larger than %d bytes", p, MaxEntryBytes)
	}
	return data, nil
}

// Mimetype returns the trimmed content of the "mimetype" entry, or "".
func (r *Reader) Mimetype() string {
	b, err := r.Read("mimetype")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// FirstIsStoredMimetype reports whether the archive starts with an
// uncompressed "mimetype" entry.
func (r *Reader) FirstIsStoredMimetype() bool {
	if len(r.order) == 0 || r.order[0] != "mimetype" {
		return false
	}
	return r.files["mimetype"].Method == zip.Store
}
