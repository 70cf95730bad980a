package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// officeRendering 配置了unidoc许可证后，新建文档改由unioffice渲染
var officeRendering atomic.Bool

// UseOffice 切换新建文档的渲染方式；未授权的unioffice无法保存文档
func UseOffice(enabled bool) {
	officeRendering.Store(enabled)
}

const (
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	ctDocument = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctStyles   = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctCore     = "application/vnd.openxmlformats-package.core-properties+xml"
	ctRels     = "application/vnd.openxmlformats-package.relationships+xml"

	emuPerInch  = 914400
	emuPerPixel = 9525
	// 图片尺寸无法解析时使用的边长
	fallbackEMU = 2 * emuPerInch
)

// mediaPart 写入 word/media/ 的一张图片
type mediaPart struct {
	ref  string
	name string
	ct   string
	img  *Image
}

// writer 将块列表写成最小的OOXML包
type writer struct {
	doc    *Document
	media  []mediaPart
	byRef  map[string]int
	styles []string
	drawID int
}

// write 不依赖unioffice写出新建文档
func (d *Document) write(w io.Writer) error {
	wr := &writer{doc: d, byRef: make(map[string]int)}
	wr.collect()

	body := wr.body()

	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		data []byte
	}{
		{contentTypesPath, wr.contentTypes()},
		{"_rels/.rels", packageRels()},
		{defaultDocumentPath, body},
		{"word/_rels/document.xml.rels", wr.documentRels()},
		{"word/styles.xml", wr.stylesPart()},
		{defaultCorePath, corePart(d.Metadata)},
	}
	for _, p := range parts {
		if err := writeEntry(zw, p.name, p.data); err != nil {
			return err
		}
	}
	for _, m := range wr.media {
		if err := writeEntry(zw, mediaPrefix+m.name, m.img.Data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// collect 按出现顺序收集样式与可解析的图片，无法解析的引用被忽略
func (wr *writer) collect() {
	seen := make(map[string]bool)
	for _, p := range wr.doc.allParagraphs() {
		if p.Style != "" && p.Style != defaultStyleName && !seen[p.Style] {
			seen[p.Style] = true
			wr.styles = append(wr.styles, p.Style)
		}
		for _, ref := range p.ImageRefs {
			if _, ok := wr.byRef[ref]; ok {
				continue
			}
			img, err := wr.doc.Image(ref)
			if err != nil || len(img.Data) == 0 {
				continue
			}
			ct, ext := mediaType(img)
			wr.media = append(wr.media, mediaPart{
				ref:  ref,
				name: fmt.Sprintf("image%d%s", len(wr.media)+1, ext),
				ct:   ct,
				img:  img,
			})
			wr.byRef[ref] = len(wr.media) - 1
		}
	}
}

// mediaType 优先使用声明的类型，否则按内容识别
func mediaType(img *Image) (string, string) {
	detected := mimetype.Detect(img.Data)
	ct := img.ContentType
	if ct == "" {
		ct = detected.String()
	}
	ext := detected.Extension()
	if m := mimetype.Lookup(ct); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	if ext == "" {
		ext = ".bin"
	}
	return ct, ext
}

func styleID(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func (wr *writer) body() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `" xmlns:wp="` + nsWP + `" xmlns:a="` + nsA + `" xmlns:pic="` + nsPic + `"><w:body>`)
	for _, blk := range wr.doc.Blocks {
		switch t := blk.(type) {
		case *Paragraph:
			wr.paragraph(&b, t)
		case *Table:
			wr.table(&b, t)
		}
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>`)
	b.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)
	return b.Bytes()
}

func (wr *writer) paragraph(b *bytes.Buffer, p *Paragraph) {
	b.WriteString("<w:p>")
	if p.Style != "" && p.Style != defaultStyleName {
		b.WriteString(`<w:pPr><w:pStyle w:val="` + escape(styleID(p.Style)) + `"/></w:pPr>`)
	}
	if p.PageBreak {
		b.WriteString(`<w:r><w:br w:type="page"/></w:r>`)
	}
	for _, r := range p.Runs {
		b.WriteString("<w:r>")
		b.Write(runMarkup("w", r.text))
		b.WriteString("</w:r>")
	}
	for _, ref := range p.ImageRefs {
		if i, ok := wr.byRef[ref]; ok {
			wr.drawing(b, &wr.media[i])
		}
	}
	b.WriteString("</w:p>")
}

func (wr *writer) table(b *bytes.Buffer, t *Table) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		b.WriteString(`<w:` + side + ` w:val="single" w:sz="4" w:space="0" w:color="auto"/>`)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)
	for _, row := range t.Rows {
		b.WriteString("<w:tr>")
		for _, cell := range row.Cells {
			b.WriteString("<w:tc>")
			if len(cell.Paragraphs) == 0 {
				// 单元格至少需要一个段落
				b.WriteString("<w:p/>")
			}
			for _, p := range cell.Paragraphs {
				wr.paragraph(b, p)
			}
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
}

// drawing 写出内联图片；Width为0时按96 DPI保持原始尺寸
func (wr *writer) drawing(b *bytes.Buffer, m *mediaPart) {
	cx, cy := int64(fallbackEMU), int64(fallbackEMU)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(m.img.Data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		cx, cy = int64(cfg.Width)*emuPerPixel, int64(cfg.Height)*emuPerPixel
	}
	if m.img.Width > 0 {
		w := int64(m.img.Width * emuPerInch)
		cy = cy * w / cx
		cx = w
	}

	wr.drawID++
	id := strconv.Itoa(wr.drawID)
	ext := `cx="` + strconv.FormatInt(cx, 10) + `" cy="` + strconv.FormatInt(cy, 10) + `"`
	b.WriteString(`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`)
	b.WriteString(`<wp:extent ` + ext + `/>`)
	b.WriteString(`<wp:docPr id="` + id + `" name="Picture ` + id + `"/>`)
	b.WriteString(`<a:graphic><a:graphicData uri="` + nsPic + `"><pic:pic>`)
	b.WriteString(`<pic:nvPicPr><pic:cNvPr id="` + id + `" name="` + escape(m.name) + `"/><pic:cNvPicPr/></pic:nvPicPr>`)
	b.WriteString(`<pic:blipFill><a:blip r:embed="` + escape(m.ref) + `"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`)
	b.WriteString(`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext ` + ext + `/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`)
	b.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`)
}

func (wr *writer) contentTypes() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="` + ctRels + `"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	written := make(map[string]bool)
	for _, m := range wr.media {
		ext := strings.TrimPrefix(m.name[strings.LastIndex(m.name, "."):], ".")
		if written[ext] {
			continue
		}
		written[ext] = true
		b.WriteString(`<Default Extension="` + escape(ext) + `" ContentType="` + escape(m.ct) + `"/>`)
	}
	b.WriteString(`<Override PartName="/` + defaultDocumentPath + `" ContentType="` + ctDocument + `"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="` + ctStyles + `"/>`)
	b.WriteString(`<Override PartName="/` + defaultCorePath + `" ContentType="` + ctCore + `"/>`)
	b.WriteString(`</Types>`)
	return b.Bytes()
}

func packageRels() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + relTypeOfficeDocument + `" Target="` + defaultDocumentPath + `"/>`)
	b.WriteString(`<Relationship Id="rId2" Type="` + relTypeCoreProperties + `" Target="` + defaultCorePath + `"/>`)
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func (wr *writer) documentRels() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rIdStyles" Type="` + relTypeStyles + `" Target="styles.xml"/>`)
	for _, m := range wr.media {
		b.WriteString(`<Relationship Id="` + escape(m.ref) + `" Type="` + relTypeImage + `" Target="media/` + escape(m.name) + `"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

// headingSizes 各级标题的字号，单位为半磅
var headingSizes = map[int]string{1: "32", 2: "28", 3: "26"}

func (wr *writer) stylesPart() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:styles xmlns:w="` + nsW + `">`)
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>`)
	for _, name := range wr.styles {
		b.WriteString(`<w:style w:type="paragraph" w:customStyle="1" w:styleId="` + escape(styleID(name)) + `">`)
		b.WriteString(`<w:name w:val="` + escape(name) + `"/><w:basedOn w:val="Normal"/><w:qFormat/>`)
		role, level := Classify(name)
		switch role {
		case RoleHeading:
			b.WriteString(`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/></w:pPr><w:rPr><w:b/>`)
			if sz, ok := headingSizes[level]; ok {
				b.WriteString(`<w:sz w:val="` + sz + `"/>`)
			}
			b.WriteString(`</w:rPr>`)
		case RoleBullet, RoleNumbered:
			b.WriteString(`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr>`)
		}
		b.WriteString(`</w:style>`)
	}
	b.WriteString(`</w:styles>`)
	return b.Bytes()
}

func corePart(meta Metadata) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"`)
	b.WriteString(` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"`)
	b.WriteString(` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if meta.Title != "" {
		b.WriteString(`<dc:title>` + escape(meta.Title) + `</dc:title>`)
	}
	if meta.Author != "" {
		b.WriteString(`<dc:creator>` + escape(meta.Author) + `</dc:creator>`)
	}
	if meta.LastModifiedBy != "" {
		b.WriteString(`<cp:lastModifiedBy>` + escape(meta.LastModifiedBy) + `</cp:lastModifiedBy>`)
	}
	if meta.Revision > 0 {
		b.WriteString(`<cp:revision>` + strconv.Itoa(meta.Revision) + `</cp:revision>`)
	}
	if meta.Created != nil {
		b.WriteString(`<dcterms:created xsi:type="dcterms:W3CDTF">` + meta.Created.UTC().Format(time.RFC3339) + `</dcterms:created>`)
	}
	b.WriteString(`</cp:coreProperties>`)
	return b.Bytes()
}
