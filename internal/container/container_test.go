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
	"encoding/binary"
	"errors"
	"testing"

	"github.com/leoloveisme/crowdly-sub001/internal/errs"
)

func TestPackageMimetypeFirstAndStored(t *testing.T) {
	p := New("application/epub+zip")
	p.AddString("META-INF/container.xml", "<container/>")
	p.AddStored("image.png", []byte{0x89, 'P', 'N', 'G'})
	data, err := p.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(zr.File))
	}
	if zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Fatalf("first entry must be stored mimetype, got %s method=%d", zr.File[0].Name, zr.File[0].Method)
	}
	if n := len(zr.File[0].Extra); n != 0 {
		t.Fatalf("mimetype entry carries %d bytes of extra field", n)
	}
	if nameLen, extraLen := binary.LittleEndian.Uint16(data[26:28]), binary.LittleEndian.Uint16(data[28:30]); nameLen != 8 || extraLen != 0 {
		t.Fatalf("local header name=%d extra=%d, want 8 and 0", nameLen, extraLen)
	}
	if got := string(data[30:58]); got != "mimetypeapplication/epub+zip" {
		t.Fatalf("mimetype not at fixed offset: %q", got)
	}
	if zr.File[1].Method != zip.Deflate || zr.File[2].Method != zip.Store {
		t.Fatalf("unexpected methods: %d %d", zr.File[1].Method, zr.File[2].Method)
	}

	r, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Mimetype() != "application/epub+zip" || !r.FirstIsStoredMimetype() {
		t.Fatalf("reader mimetype checks failed")
	}
	if !r.Has("/META-INF/container.xml") || !r.Has("meta-inf/CONTAINER.xml") {
		t.Fatalf("lookup should tolerate leading slash and case")
	}
	if _, err := r.Read("missing.xml"); !errors.Is(err, ErrMissingEntry) {
		t.Fatalf("expected ErrMissingEntry, got %v", err)
	}
}

func TestPackageRejectsDuplicatesAndBadLevel(t *testing.T) {
	p := New("")
	p.AddString("a.txt", "1").AddString("a.txt", "2")
	if _, err := p.Bytes(); err == nil {
		t.Fatalf("expected duplicate entry error")
	}
	q := New("x")
	q.Level = 42
	if _, err := q.Bytes(); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestElemEscaping(t *testing.T) {
	root := E("p", "title", `a "quoted" <b> & c`).Text("x < y && z > w\x01").Add(E("br"), nil)
	got := root.String()
	want := `<p title="a &#34;quoted&#34; &lt;b&gt; &amp; c">x &lt; y &amp;&amp; z &gt; w<br/></p>`
	if got != want {
		t.Fatalf("serialization\n got: %s\nwant: %s", got, want)
	}
	if root.Len() != 2 {
		t.Fatalf("Len = %d, want 2", root.Len())
	}
	doc := Document(E("root").Attr("v", "1").Attr("v", "2"), "")
	if !bytes.HasPrefix(doc, []byte(XMLDeclaration)) || !bytes.Contains(doc, []byte(`<root v="2"/>`)) {
		t.Fatalf("document = %s", doc)
	}
}

func TestElemTreeReadsBack(t *testing.T) {
	opf := E("package", "xmlns", "http://www.idpf.org/2007/opf", "xmlns:dc", "http://purl.org/dc/elements/1.1/").Add(
		E("metadata").Add(Leaf("dc:title", "Tom's \"Book\"")),
	)
	data := Document(opf, "")
	if !bytes.Contains(data, []byte(`xmlns:dc="http://purl.org/dc/elements/1.1/"`)) {
		t.Fatalf("prefixed namespace attribute lost: %s", data)
	}
	doc, err := ParseXML(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	title := FindOne(doc, "package/metadata/title")
	if title == nil || Text(title) != `Tom's "Book"` {
		t.Fatalf("title did not survive a round trip: %s", data)
	}
}

func epubFixture(t *testing.T, opf string) *Reader {
	t.Helper()
	p := New("application/epub+zip")
	p.AddString(EPUBContainerPath, `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`)
	if opf != "" {
		p.AddString("OEBPS/content.opf", opf)
	}
	data, err := p.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(data)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReadEPUBSpineOrder(t *testing.T) {
	r := epubFixture(t, `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Night Train</dc:title><dc:creator>R. Vale</dc:creator><dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="c2" href="text/two.xhtml" media-type="application/xhtml+xml"/>
    <item id="c1" href="text/one%20a.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine><itemref idref="c1"/><itemref idref="css"/><itemref idref="c2"/></spine>
</package>`)
	pkg, err := ReadEPUB(r)
	if err != nil {
		t.Fatalf("ReadEPUB: %v", err)
	}
	if pkg.Title != "Night Train" || pkg.Creator != "R. Vale" || pkg.Language != "en" {
		t.Fatalf("metadata: %+v", pkg)
	}
	if len(pkg.Spine) != 2 || pkg.Spine[0].Href != "OEBPS/text/one a.xhtml" || pkg.Spine[1].Href != "OEBPS/text/two.xhtml" {
		t.Fatalf("spine: %+v", pkg.Spine)
	}
}

func TestReadEPUBStructuralFailures(t *testing.T) {
	// container points at a missing OPF
	if _, err := ReadEPUB(epubFixture(t, "")); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("missing OPF should be structural, got %v", err)
	}
	// malformed OPF
	if _, err := ReadEPUB(epubFixture(t, "<package><manifest>")); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("malformed OPF should be structural, got %v", err)
	}
	// no container descriptor at all
	data, _ := New("application/epub+zip").Bytes()
	r, _ := Open(data)
	if _, err := ReadEPUB(r); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("missing container.xml should be structural, got %v", err)
	}
}

func TestReadODFRequiresManifest(t *testing.T) {
	p := New("application/vnd.oasis.opendocument.text")
	p.AddString(ODFContentPath, "<office:document-content xmlns:office=\"urn:oasis:names:tc:opendocument:xmlns:office:1.0\"/>")
	data, _ := p.Bytes()
	r, _ := Open(data)
	if _, err := ReadODF(r); !errors.Is(err, errs.ErrStructural) {
		t.Fatalf("missing manifest should be structural, got %v", err)
	}

	p.AddString(ODFManifestPath, `<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0">
<manifest:file-entry manifest:full-path="/" manifest:media-type="application/vnd.oasis.opendocument.text"/>
<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
</manifest:manifest>`)
	data, _ = p.Bytes()
	r, _ = Open(data)
	doc, err := ReadODF(r)
	if err != nil {
		t.Fatalf("ReadODF: %v", err)
	}
	if doc.Content == nil || doc.Meta != nil {
		t.Fatalf("unexpected parts: %+v", doc)
	}
}
