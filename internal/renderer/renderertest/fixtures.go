// Package renderertest builds small in-memory EPUB and PDF documents for tests.
package renderertest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
)

// EPUBOptions describes a generated EPUB. Zero values produce a book with
// two chapters, an NCX table of contents and no cover.
type EPUBOptions struct {
	Title    string
	Author   string
	Subject  string
	Chapters []string // Body text per chapter
	Cover    bool     // Embed a JPEG cover declared EPUB 3 style
	Nav      bool     // Add an EPUB 3 navigation document instead of NCX
}

// EPUB returns the bytes of a valid EPUB package.
func EPUB(opts EPUBOptions) []byte {
	if len(opts.Chapters) == 0 {
		opts.Chapters = []string{"It was a dark and stormy night.", "The end."}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// The mimetype entry must come first and be stored uncompressed.
	w, _ := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	w.Write([]byte("application/epub+zip"))

	write := func(name, body string) {
		w, _ := zw.Create(name)
		w.Write([]byte(body))
	}

	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine, navPoints, navItems strings.Builder
	for i, body := range opts.Chapters {
		n := i + 1
		fmt.Fprintf(&manifest, `<item id="ch%d" href="text/ch%d.xhtml" media-type="application/xhtml+xml"/>`+"\n", n, n)
		fmt.Fprintf(&spine, `<itemref idref="ch%d"/>`+"\n", n)
		fmt.Fprintf(&navPoints, `<navPoint id="np%d" playOrder="%d"><navLabel><text>Chapter %d</text></navLabel><content src="text/ch%d.xhtml"/></navPoint>`+"\n", n, n, n, n)
		fmt.Fprintf(&navItems, `<li><a href="text/ch%d.xhtml">Chapter %d</a></li>`+"\n", n, n)
		write(fmt.Sprintf("OEBPS/text/ch%d.xhtml", n), fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Chapter %d</title></head>
<body><h1>Chapter %d</h1><p>%s</p></body></html>`, n, n, body))
	}

	if opts.Cover {
		manifest.WriteString(`<item id="cover-img" href="images/cover.jpg" media-type="image/jpeg" properties="cover-image"/>` + "\n")
		cw, _ := zw.Create("OEBPS/images/cover.jpg")
		cw.Write(JPEG(60, 90))
	}

	spineAttr := ""
	if opts.Nav {
		manifest.WriteString(`<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
		write("OEBPS/nav.xhtml", `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"><head><title>Contents</title></head>
<body><nav epub:type="toc"><h1>Contents</h1><ol>
`+navItems.String()+`</ol></nav></body></html>`)
	} else {
		manifest.WriteString(`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
		spineAttr = ` toc="ncx"`
		write("OEBPS/toc.ncx", `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"><navMap>
`+navPoints.String()+`</navMap></ncx>`)
	}

	var meta strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&meta, "<dc:title>%s</dc:title>\n", opts.Title)
	}
	if opts.Author != "" {
		fmt.Fprintf(&meta, "<dc:creator>%s</dc:creator>\n", opts.Author)
	}
	if opts.Subject != "" {
		fmt.Fprintf(&meta, "<dc:subject>%s</dc:subject>\n", opts.Subject)
	}

	write("OEBPS/content.opf", `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:identifier id="uid">urn:uuid:test</dc:identifier>
`+meta.String()+`</metadata>
<manifest>
`+manifest.String()+`</manifest>
<spine`+spineAttr+`>
`+spine.String()+`</spine>
</package>`)

	zw.Close()
	return buf.Bytes()
}

// PDF returns a minimal uncompressed PDF with the given page count and Info
// entries. Empty title or author omits the key.
func PDF(title, author string, pages int) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+4)
	}
	fmt.Fprintf(&b, "2 0 obj << /Type /Pages /Kids [%s] /Count %d >> endobj\n", strings.Join(kids, " "), pages)

	info := ""
	if title != "" {
		info += fmt.Sprintf(" /Title (%s)", title)
	}
	if author != "" {
		info += fmt.Sprintf(" /Author (%s)", author)
	}
	fmt.Fprintf(&b, "3 0 obj <<%s >> endobj\n", info)

	for i := 0; i < pages; i++ {
		fmt.Fprintf(&b, "%d 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >> endobj\n", i+4)
	}
	fmt.Fprintf(&b, "trailer << /Root 1 0 R /Info 3 0 R >>\n%%%%EOF\n")
	return b.Bytes()
}

// JPEG returns an encoded gradient image of the given size.
func JPEG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 2), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}
