// Package docxtest 为测试构建小型.docx归档
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

const (
	nsDecl = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`

	relImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// DefaultStyles 测试使用的内置段落样式
const DefaultStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/></w:style>
<w:style w:type="paragraph" w:styleId="HeadingCustom"><w:name w:val="Heading Custom"/></w:style>
<w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/></w:style>
<w:style w:type="paragraph" w:styleId="ListNumber"><w:name w:val="List Number"/></w:style>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/></w:style>
<w:style w:type="character" w:styleId="Strong"><w:name w:val="Strong"/></w:style>
</w:styles>`

// Media word/media/下的文件
type Media struct {
	Name string
	Data []byte
	// RelID 非空时从主文档部件建立关系
	RelID string
}

// Archive 测试文档的各个部件
type Archive struct {
	// Body w:body的内部XML
	Body string
	// Styles 非空时替换DefaultStyles，"-"表示不写该部件
	Styles string
	// Core 完整的docProps/core.xml，为空时不写
	Core  string
	Media []Media
}

// Build 打包归档
func Build(t testing.TB, a Archive) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	var ct strings.Builder
	ct.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	ct.WriteString(`</Types>`)
	add("[Content_Types].xml", ct.String())

	pkgRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>`
	if a.Core != "" {
		pkgRels += `<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`
	}
	pkgRels += `</Relationships>`
	add("_rels/.rels", pkgRels)

	add("word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<w:document `+nsDecl+`><w:body>`+a.Body+`<w:sectPr/></w:body></w:document>`)

	var rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	styles := a.Styles
	if styles == "" {
		styles = DefaultStyles
	}
	if styles != "-" {
		rels.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	}
	for _, m := range a.Media {
		if m.RelID != "" {
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s" Target="media/%s"/>`, m.RelID, relImage, m.Name)
		}
	}
	rels.WriteString(`</Relationships>`)
	add("word/_rels/document.xml.rels", rels.String())

	if styles != "-" {
		add("word/styles.xml", styles)
	}
	for _, m := range a.Media {
		add("word/media/"+m.Name, string(m.Data))
	}
	if a.Core != "" {
		add("docProps/core.xml", a.Core)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

// R 返回文本run，可附带原始run属性
func R(text string, props ...string) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if len(props) > 0 {
		b.WriteString("<w:rPr>" + strings.Join(props, "") + "</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">` + html.EscapeString(text) + `</w:t></w:r>`)
	return b.String()
}

// P 返回指定样式ID（""为无样式）的段落
func P(styleID string, runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	if styleID != "" {
		b.WriteString(`<w:pPr><w:pStyle w:val="` + styleID + `"/></w:pPr>`)
	}
	b.WriteString(strings.Join(runs, ""))
	b.WriteString("</w:p>")
	return b.String()
}

// Table 返回每个单元格含一个单run段落的表格
func Table(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<w:tbl><w:tblPr/>")
	for _, row := range rows {
		b.WriteString("<w:tr>")
		for _, cell := range row {
			b.WriteString("<w:tc><w:tcPr/>" + P("", R(cell)) + "</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
	return b.String()
}

// Picture 返回通过relID引用内嵌图片的run
func Picture(relID string) string {
	return `<w:r><w:drawing><wp:inline><wp:extent cx="914400" cy="914400"/>` +
		`<a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="` + relID + `"/>` +
		`</pic:blipFill></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`
}

// Core 返回核心属性部件，空值字段省略
func Core(creator, lastModifiedBy, title, revision, created string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	field := func(tag, v, attrs string) {
		if v != "" {
			b.WriteString("<" + tag + attrs + ">" + html.EscapeString(v) + "</" + tag + ">")
		}
	}
	field("dc:title", title, "")
	field("dc:creator", creator, "")
	field("cp:lastModifiedBy", lastModifiedBy, "")
	field("cp:revision", revision, "")
	field("dcterms:created", created, ` xsi:type="dcterms:W3CDTF"`)
	b.WriteString(`</cp:coreProperties>`)
	return b.String()
}

// PNG 编码一张纯色小图
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// Entries 按名称返回解压后的归档条目及其顺序
func Entries(t testing.TB, data []byte) (map[string][]byte, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = buf.Bytes()
		names = append(names, f.Name)
	}
	return out, names
}
