package renderer

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"net/url"
	"path"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
)

const containerPath = "META-INF/container.xml"

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Titles   []string `xml:"title"`
		Creators []string `xml:"creator"`
		Subjects []string `xml:"subject"`
		Metas    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest []opfItem `xml:"manifest>item"`
	Spine    struct {
		TOC      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

func (i opfItem) hasProperty(p string) bool {
	for _, f := range strings.Fields(i.Properties) {
		if f == p {
			return true
		}
	}
	return false
}

type ncxDocument struct {
	NavPoints []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxNavPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// EPUB renders reflowable EPUB 2 and 3 packages. Locations are the zip paths
// of spine items in reading order.
type EPUB struct{}

func NewEPUB() *EPUB { return &EPUB{} }

func (*EPUB) Format() entities.Format { return entities.FormatEPUB }

// Open reads the container, package document, spine and table of contents.
func (*EPUB) Open(_ context.Context, r io.ReaderAt, size int64) (Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, corrupt(err, "not a zip archive")
	}
	doc := &epubDocument{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		doc.files[f.Name] = f
	}

	var container epubContainer
	if err := doc.decodeXML(containerPath, &container); err != nil {
		return nil, err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return nil, corrupt(nil, "container.xml names no package document")
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg opfPackage
	if err := doc.decodeXML(opfPath, &pkg); err != nil {
		return nil, err
	}
	opfDir := path.Dir(opfPath)

	items := make(map[string]opfItem, len(pkg.Manifest))
	for _, it := range pkg.Manifest {
		items[it.ID] = it
	}

	for _, ref := range pkg.Spine.ItemRefs {
		it, ok := items[ref.IDRef]
		if !ok {
			continue
		}
		loc := resolveHref(opfDir, it.Href)
		if _, ok := doc.files[loc]; !ok {
			continue
		}
		doc.index = append(doc.index, loc)
	}
	if len(doc.index) == 0 {
		return nil, corrupt(nil, "spine has no readable items")
	}
	doc.positions = make(map[string]int, len(doc.index))
	for i, loc := range doc.index {
		doc.positions[loc] = i
	}

	doc.meta = Metadata{
		Title:  firstNonEmpty(pkg.Metadata.Titles),
		Author: strings.Join(nonEmpty(pkg.Metadata.Creators), ", "),
		Genre:  firstNonEmpty(pkg.Metadata.Subjects),
	}
	if cover, ok := findCover(pkg, items); ok {
		if data, err := doc.read(resolveHref(opfDir, cover.Href)); err == nil {
			doc.meta.Cover = data
			doc.meta.CoverType = cover.MediaType
		}
	}

	doc.toc = doc.readTOC(pkg, items, opfDir)
	return doc, nil
}

type epubDocument struct {
	files     map[string]*zip.File
	index     []string
	positions map[string]int
	toc       []TOCEntry
	meta      Metadata
}

func (*epubDocument) Format() entities.Format { return entities.FormatEPUB }

func (d *epubDocument) Layout() Layout {
	return Layout{
		Locations: append([]string(nil), d.index...),
		TOC:       d.toc,
	}
}

func (d *epubDocument) Metadata() Metadata { return d.meta }

func (d *epubDocument) Close() error { return nil }

// spineIndex resolves a position to a spine index. Page n addresses the
// n-th spine item; the zero position is the first item.
func (d *epubDocument) spineIndex(pos Position) (int, error) {
	if pos.Location != "" {
		loc, _, _ := strings.Cut(pos.Location, "#")
		i, ok := d.positions[loc]
		if !ok {
			return 0, errors.InvalidLocationf("unknown location %q", pos.Location)
		}
		return i, nil
	}
	if pos.Page == 0 {
		return 0, nil
	}
	if pos.Page < 1 || pos.Page > len(d.index) {
		return 0, errors.InvalidLocationf("position %d out of range 1..%d", pos.Page, len(d.index))
	}
	return pos.Page - 1, nil
}

// LocationFromPosition reports the start of the spine item, so the last
// chapter of n maps to (n-1)/n and a first open maps to 0.
func (d *epubDocument) LocationFromPosition(pos Position) (float64, error) {
	i, err := d.spineIndex(pos)
	if err != nil {
		return 0, err
	}
	return float64(i) / float64(len(d.index)), nil
}

// RenderPage converts the spine item's XHTML into a markdown text layer.
func (d *epubDocument) RenderPage(ctx context.Context, pos Position, _ float64) (Page, error) {
	i, err := d.spineIndex(pos)
	if err != nil {
		return Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	raw, err := d.read(d.index[i])
	if err != nil {
		return Page{}, err
	}
	text, err := htmltomarkdown.ConvertString(string(raw))
	if err != nil {
		return Page{}, corrupt(err, "convert %s", d.index[i])
	}
	return Page{
		Position: Position{Page: i + 1, Location: d.index[i]},
		Text:     strings.TrimSpace(text),
	}, nil
}

func (d *epubDocument) read(name string) ([]byte, error) {
	f, ok := d.files[name]
	if !ok {
		return nil, corrupt(nil, "missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, corrupt(err, "open %s", name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, corrupt(err, "read %s", name)
	}
	return data, nil
}

func (d *epubDocument) decodeXML(name string, v any) error {
	data, err := d.read(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return corrupt(err, "parse %s", name)
	}
	return nil
}

// readTOC prefers the EPUB 3 navigation document and falls back to NCX.
func (d *epubDocument) readTOC(pkg opfPackage, items map[string]opfItem, opfDir string) []TOCEntry {
	for _, it := range pkg.Manifest {
		if it.hasProperty("nav") {
			navPath := resolveHref(opfDir, it.Href)
			if raw, err := d.read(navPath); err == nil {
				if toc := d.parseNav(raw, path.Dir(navPath)); len(toc) > 0 {
					return toc
				}
			}
		}
	}

	ncxItem, ok := items[pkg.Spine.TOC]
	if !ok {
		for _, it := range pkg.Manifest {
			if it.MediaType == "application/x-dtbncx+xml" {
				ncxItem, ok = it, true
				break
			}
		}
	}
	if !ok {
		return []TOCEntry{}
	}
	ncxPath := resolveHref(opfDir, ncxItem.Href)
	var ncx ncxDocument
	if err := d.decodeXML(ncxPath, &ncx); err != nil {
		return []TOCEntry{}
	}
	return d.convertNavPoints(ncx.NavPoints, path.Dir(ncxPath))
}

func (d *epubDocument) convertNavPoints(points []ncxNavPoint, base string) []TOCEntry {
	entries := make([]TOCEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, d.tocEntry(strings.TrimSpace(p.Label), p.Content.Src, base, d.convertNavPoints(p.Children, base)))
	}
	return entries
}

func (d *epubDocument) tocEntry(title, href, base string, children []TOCEntry) TOCEntry {
	loc, frag, _ := strings.Cut(href, "#")
	loc = resolveHref(base, loc)
	e := TOCEntry{Title: title, Location: loc, Children: children}
	if frag != "" {
		e.Location = loc + "#" + frag
	}
	if i, ok := d.positions[loc]; ok {
		e.Page = i + 1
	}
	if len(e.Children) == 0 {
		e.Children = nil
	}
	return e
}

// parseNav walks <nav epub:type="toc"> and rebuilds the nested <ol> tree.
func (d *epubDocument) parseNav(raw []byte, base string) []TOCEntry {
	dec := xml.NewDecoder(strings.NewReader(string(raw)))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	type frame struct{ entries []TOCEntry }
	var (
		inNav    bool
		navDepth int
		stack    []*frame
		href     string
		text     strings.Builder
		inAnchor bool
		root     []TOCEntry
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inNav {
				if t.Name.Local == "nav" && attr(t, "type") == "toc" {
					inNav = true
					navDepth = 0
				}
				continue
			}
			navDepth++
			switch t.Name.Local {
			case "ol":
				stack = append(stack, &frame{})
			case "a":
				inAnchor = true
				href = attr(t, "href")
				text.Reset()
			}
		case xml.CharData:
			if inAnchor {
				text.Write(t)
			}
		case xml.EndElement:
			if !inNav {
				continue
			}
			if t.Name.Local == "nav" && navDepth == 0 {
				return root
			}
			navDepth--
			switch t.Name.Local {
			case "a":
				inAnchor = false
				if len(stack) > 0 {
					top := stack[len(stack)-1]
					top.entries = append(top.entries, d.tocEntry(strings.Join(strings.Fields(text.String()), " "), href, base, nil))
				}
			case "ol":
				if len(stack) == 0 {
					continue
				}
				done := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					root = done.entries
					continue
				}
				parent := stack[len(stack)-1]
				if n := len(parent.entries); n > 0 && len(done.entries) > 0 {
					parent.entries[n-1].Children = done.entries
				}
			}
		}
	}
	return root
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func findCover(pkg opfPackage, items map[string]opfItem) (opfItem, bool) {
	for _, it := range pkg.Manifest {
		if it.hasProperty("cover-image") {
			return it, true
		}
	}
	for _, m := range pkg.Metadata.Metas {
		if m.Name == "cover" {
			if it, ok := items[m.Content]; ok && strings.HasPrefix(it.MediaType, "image/") {
				return it, true
			}
		}
	}
	for _, it := range pkg.Manifest {
		if strings.HasPrefix(it.MediaType, "image/") && strings.Contains(strings.ToLower(it.ID), "cover") {
			return it, true
		}
	}
	return opfItem{}, false
}

func resolveHref(base, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if base == "." || base == "" {
		return path.Clean(href)
	}
	return path.Join(base, href)
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
