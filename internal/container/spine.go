/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package container

import (
	"net/url"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/leoloveisme/crowdly-sub001/internal/errs"
)

// Fixed locations inside the packages.
const (
	EPUBContainerPath = "META-INF/container.xml"
	ODFManifestPath   = "META-INF/manifest.xml"
	ODFContentPath    = "content.xml"
	ODFMetaPath       = "meta.xml"
)

// ManifestItem is one entry of an OPF manifest.
type ManifestItem struct {
	ID        string
	Href      string // resolved against the OPF directory
	MediaType string
}

// EPUBPackage is what the e-book reader learns from container.xml and the OPF.
type EPUBPackage struct {
	OPFPath  string
	Title    string
	Creator  string
	Language string
	Manifest map[string]ManifestItem
	Spine    []ManifestItem // reading order, content documents only
}

// ReadEPUB follows META-INF/container.xml to the OPF and resolves the spine.
func ReadEPUB(r *Reader) (*EPUBPackage, error) {
	raw, err := r.Read(EPUBContainerPath)
	if err != nil {
		return nil, errs.Structural("epub", EPUBContainerPath, err)
	}
	cdoc, err := ParseXML(raw)
	if err != nil {
		return nil, errs.Structural("epub", EPUBContainerPath, err)
	}
	opfPath := Attr(FindOne(cdoc, "rootfile"), "full-path")
	if opfPath == "" {
		return nil, errs.Structuralf("epub", EPUBContainerPath, "no rootfile declared")
	}
	raw, err = r.Read(opfPath)
	if err != nil {
		return nil, errs.Structural("epub", opfPath, err)
	}
	opf, err := ParseXML(raw)
	if err != nil {
		return nil, errs.Structural("epub", opfPath, err)
	}

	pkg := &EPUBPackage{
		OPFPath:  opfPath,
		Title:    Text(FindOne(opf, "metadata/title")),
		Creator:  Text(FindOne(opf, "metadata/creator")),
		Language: Text(FindOne(opf, "metadata/language")),
		Manifest: map[string]ManifestItem{},
	}
	base := path.Dir(opfPath)
	for _, it := range Find(opf, "manifest/item") {
		id := Attr(it, "id")
		if id == "" {
			continue
		}
		pkg.Manifest[id] = ManifestItem{ID: id, Href: resolve(base, Attr(it, "href")), MediaType: Attr(it, "media-type")}
	}
	refs := Find(opf, "spine/itemref")
	if len(refs) == 0 {
		return nil, errs.Structuralf("epub", opfPath, "spine is empty")
	}
	for _, ref := range refs {
		it, ok := pkg.Manifest[Attr(ref, "idref")]
		if !ok || !isContentDoc(it.MediaType) {
			continue
		}
		pkg.Spine = append(pkg.Spine, it)
	}
	return pkg, nil
}

func isContentDoc(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html", "application/x-dtbook+xml", "":
		return true
	}
	return false
}

func resolve(base, href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	if base == "." || base == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(base, href))
}

// ODFDocument holds the parsed parts of an office text package.
type ODFDocument struct {
	Content *xmlquery.Node
	Meta    *xmlquery.Node // nil when meta.xml is absent or unreadable
}

// ReadODF checks the fixed manifest, then parses content.xml and, if present, meta.xml.
func ReadODF(r *Reader) (*ODFDocument, error) {
	raw, err := r.Read(ODFManifestPath)
	if err != nil {
		return nil, errs.Structural("odt", ODFManifestPath, err)
	}
	man, err := ParseXML(raw)
	if err != nil {
		return nil, errs.Structural("odt", ODFManifestPath, err)
	}
	listed := false
	for _, fe := range Find(man, "file-entry") {
		if strings.TrimPrefix(Attr(fe, "full-path"), "/") == ODFContentPath {
			listed = true
			break
		}
	}
	if !listed {
		return nil, errs.Structuralf("odt", ODFManifestPath, "manifest does not list %s", ODFContentPath)
	}
	raw, err = r.Read(ODFContentPath)
	if err != nil {
		return nil, errs.Structural("odt", ODFContentPath, err)
	}
	content, err := ParseXML(raw)
	if err != nil {
		return nil, errs.Structural("odt", ODFContentPath, err)
	}
	doc := &ODFDocument{Content: content}
	if raw, err := r.Read(ODFMetaPath); err == nil {
		if meta, err := ParseXML(raw); err == nil {
			doc.Meta = meta
		}
	}
	return doc, nil
}
