/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package container builds and reads the zip packages used by the e-book,
// office-text and word-processor formats. A package is assembled completely
// in memory before any byte is returned.
package container

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

// Package is a zip container under construction.
type Package struct {
	// Mimetype, when set, is written first and uncompressed as "mimetype".
	Mimetype string
	Entries  []domain.ContainerEntry
	// Level is the deflate level for compressed entries.
	Level int
	// Modified stamps every entry but mimetype; zero means time.Now at Bytes.
	Modified time.Time
}

// New returns a package with the default compression level.
func New(mimetype string) *Package {
	return &Package{Mimetype: mimetype, Level: flate.DefaultCompression}
}

// Add appends a deflated entry.
func (p *Package) Add(path string, data []byte) *Package {
	p.Entries = append(p.Entries, domain.ContainerEntry{Path: path, Data: data, Compressed: true})
	return p
}

// AddString is Add for text parts.
func (p *Package) AddString(path, data string) *Package { return p.Add(path, []byte(data)) }

// AddStored appends an uncompressed entry.
func (p *Package) AddStored(path string, data []byte) *Package {
	p.Entries = append(p.Entries, domain.ContainerEntry{Path: path, Data: data})
	return p
}

// Bytes serializes the package.
func (p *Package) Bytes() ([]byte, error) {
	level := p.Level
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, fmt.Errorf("invalid compression level %d", level)
	}
	mod := p.Modified
	if mod.IsZero() {
		mod = time.Now()
	}
	seen := map[string]bool{}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})
	if p.Mimetype != "" {
		if err := addMimetype(zw, p.Mimetype); err != nil {
			return nil, err
		}
		seen["mimetype"] = true
	}
	for _, e := range p.Entries {
		if seen[e.Path] {
			return nil, fmt.Errorf("duplicate entry %q", e.Path)
		}
		seen[e.Path] = true
		method := zip.Store
		if e.Compressed {
			method = zip.Deflate
		}
		if err := addEntry(zw, e.Path, e.Data, method, mod); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addEntry(zw *zip.Writer, name string, data []byte, method uint16, mod time.Time) error {
	hdr := &zip.FileHeader{Name: name, Method: method, Modified: mod}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// addMimetype writes the mimetype entry with no extra field and no data
// descriptor, so the type string sits at a fixed offset (38) in the file.
func addMimetype(zw *zip.Writer, mimetype string) error {
	data := []byte(mimetype)
	hdr := &zip.FileHeader{
		Name:               "mimetype",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	w, err := zw.CreateRaw(hdr)
	if err != nil {
		return fmt.Errorf("add mimetype: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}
	return nil
}
