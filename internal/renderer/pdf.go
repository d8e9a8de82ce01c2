package renderer

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"regexp"
	"strconv"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
)

var (
	pdfHeader   = []byte("%PDF-")
	pdfPageRe   = regexp.MustCompile(`/Type\s*/Page(?:[^s]|$)`)
	pdfCountRe  = regexp.MustCompile(`/Type\s*/Pages\b[^>]*?/Count\s+(\d+)|/Count\s+(\d+)[^>]*?/Type\s*/Pages\b`)
	pdfTitleRe  = regexp.MustCompile(`/Title\s*([(<])`)
	pdfAuthorRe = regexp.MustCompile(`/Author\s*([(<])`)
)

// PDF reads page structure and the Info dictionary of uncompressed PDF
// object trees. Pages are numbered from 1; locations are decimal page numbers.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

func (*PDF) Format() entities.Format { return entities.FormatPDF }

func (*PDF) Open(_ context.Context, r io.ReaderAt, size int64) (Document, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "read pdf")
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, pdfHeader) {
		return nil, corrupt(nil, "missing %%PDF header")
	}

	pages := len(pdfPageRe.FindAllIndex(data, -1))
	for _, m := range pdfCountRe.FindAllSubmatch(data, -1) {
		for _, g := range m[1:] {
			if n, err := strconv.Atoi(string(g)); err == nil && n > pages {
				pages = n
			}
		}
	}
	if pages == 0 {
		return nil, corrupt(nil, "no pages found")
	}

	return &pdfDocument{
		pages: pages,
		meta: Metadata{
			Title:  infoString(data, pdfTitleRe),
			Author: infoString(data, pdfAuthorRe),
		},
	}, nil
}

type pdfDocument struct {
	pages int
	meta  Metadata
}

func (*pdfDocument) Format() entities.Format { return entities.FormatPDF }

func (d *pdfDocument) Layout() Layout {
	return Layout{PageCount: d.pages, TOC: []TOCEntry{}}
}

func (d *pdfDocument) Metadata() Metadata { return d.meta }

func (d *pdfDocument) Close() error { return nil }

func (d *pdfDocument) page(pos Position) (int, error) {
	page := pos.Page
	if pos.Location != "" {
		n, err := strconv.Atoi(pos.Location)
		if err != nil {
			return 0, errors.InvalidLocationf("location %q is not a page number", pos.Location)
		}
		page = n
	}
	if page == 0 {
		page = 1
	}
	if page < 1 || page > d.pages {
		return 0, errors.InvalidLocationf("page %d out of range 1..%d", page, d.pages)
	}
	return page, nil
}

func (d *pdfDocument) LocationFromPosition(pos Position) (float64, error) {
	page, err := d.page(pos)
	if err != nil {
		return 0, err
	}
	return float64(page) / float64(d.pages), nil
}

// RenderPage validates the page. Content streams are not decoded, so the
// text layer is empty and no raster is produced.
func (d *pdfDocument) RenderPage(ctx context.Context, pos Position, _ float64) (Page, error) {
	page, err := d.page(pos)
	if err != nil {
		return Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	return Page{Position: Position{Page: page, Location: strconv.Itoa(page)}}, nil
}

// infoString returns the last match of an Info dictionary key, since
// incremental updates append newer objects at the end of the file.
func infoString(data []byte, key *regexp.Regexp) string {
	matches := key.FindAllSubmatchIndex(data, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		start := matches[i][2]
		var raw []byte
		var ok bool
		if data[start] == '(' {
			raw, ok = literalString(data[start:])
		} else {
			raw, ok = hexString(data[start:])
		}
		if ok {
			if s := decodeTextString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

// literalString parses a balanced "(...)" string starting at b[0].
func literalString(b []byte) ([]byte, bool) {
	var out []byte
	depth := 0
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return out, true
			}
		case '\\':
			i++
			if i >= len(b) {
				return nil, false
			}
			switch e := b[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r', '\n':
				// Line continuation
			default:
				if e >= '0' && e <= '7' {
					v := 0
					j := 0
					for ; j < 3 && i+j < len(b) && b[i+j] >= '0' && b[i+j] <= '7'; j++ {
						v = v*8 + int(b[i+j]-'0')
					}
					i += j - 1
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return nil, false
}

func hexString(b []byte) ([]byte, bool) {
	end := bytes.IndexByte(b, '>')
	if end < 0 {
		return nil, false
	}
	digits := bytes.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, b[1:end])
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, false
	}
	return out, true
}

// decodeTextString handles UTF-16BE strings with a BOM and treats everything
// else as Latin-1, which matches PDFDocEncoding for printable text.
func decodeTextString(raw []byte) string {
	var (
		out []byte
		err error
	)
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		out, err = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
	} else {
		out, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
	}
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(out))
}
