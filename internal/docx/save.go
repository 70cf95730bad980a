package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Save 将文档写为.docx
//
// 从归档读取的文档逐项原样写回：只有主文档部件会变化，且其中只改写被设置过文本的run。
// 内存中新建的文档（或追加过块的文档）重新生成；启用unioffice时由它渲染，否则直接写出OOXML。
func (d *Document) Save(w io.Writer) error {
	switch {
	case d.pkg != nil && !d.appended:
		return d.patch(w)
	case officeRendering.Load():
		return d.render(w)
	default:
		return d.write(w)
	}
}

type edit struct {
	start, end int
	repl       []byte
}

func (d *Document) patch(w io.Writer) error {
	var edits []edit
	for _, para := range d.allParagraphs() {
		for _, r := range para.Runs {
			if r.dirty && r.src != nil {
				edits = append(edits, r.edit(d.pkg.document))
			}
		}
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	part := d.pkg.document
	if len(edits) > 0 {
		var buf bytes.Buffer
		pos := 0
		for _, e := range edits {
			buf.Write(part[pos:e.start])
			buf.Write(e.repl)
			pos = e.end
		}
		buf.Write(part[pos:])
		part = buf.Bytes()
	}

	zw := zip.NewWriter(w)
	for _, f := range d.pkg.files {
		if f.Name != d.pkg.documentPath {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copying %s: %w", f.Name, err)
			}
			continue
		}
		hdr := f.FileHeader
		hdr.CRC32 = 0
		hdr.CompressedSize, hdr.UncompressedSize = 0, 0
		hdr.CompressedSize64, hdr.UncompressedSize64 = 0, 0
		fw, err := zw.CreateHeader(&hdr)
		if err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
		if _, err := fw.Write(part); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}

// edit 生成运行的新字节；属性和不含文本的子元素保持原样
func (r *Run) edit(part []byte) edit {
	src := r.src
	markup := runMarkup(src.prefix, r.text)
	for _, k := range src.kept {
		markup = append(markup, k...)
	}

	switch {
	case src.contentStart >= 0:
		return edit{start: src.contentStart, end: src.contentEnd, repl: markup}
	case src.selfClosing:
		tag := bytes.TrimRight(part[src.start:src.end-len("/>")], " \t\r\n")
		var b bytes.Buffer
		b.Write(tag)
		b.WriteByte('>')
		b.Write(markup)
		b.WriteString("</" + qualify(src.prefix, "r") + ">")
		return edit{start: src.start, end: src.end, repl: b.Bytes()}
	default:
		return edit{start: src.insertAt, end: src.insertAt, repl: markup}
	}
}

// runMarkup 将文本编码为运行内容：制表符写为w:tab，换行写为w:br，其余写入保留空格的w:t
func runMarkup(prefix, text string) []byte {
	var b bytes.Buffer
	t := qualify(prefix, "t")
	flush := func(s string) {
		if s == "" {
			return
		}
		b.WriteString("<" + t + ` xml:space="preserve">`)
		_ = xml.EscapeText(&b, []byte(s))
		b.WriteString("</" + t + ">")
	}

	var pending strings.Builder
	for _, c := range text {
		switch c {
		case '\t':
			flush(pending.String())
			pending.Reset()
			b.WriteString("<" + qualify(prefix, "tab") + "/>")
		case '\n', '\r':
			flush(pending.String())
			pending.Reset()
			b.WriteString("<" + qualify(prefix, "br") + "/>")
		default:
			pending.WriteRune(c)
		}
	}
	flush(pending.String())
	return b.Bytes()
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
