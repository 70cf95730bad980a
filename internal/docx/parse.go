package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nsW       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsWStrict = "http://purl.oclc.org/ooxml/wordprocessingml/main"
)

func isW(n xml.Name, local string) bool {
	return n.Local == local && (n.Space == nsW || n.Space == nsWStrict)
}

// runSource run在主文档部件中的位置，偏移为原部件中的字节位置
type runSource struct {
	start, end int
	// contentStart..contentEnd 覆盖首个到最后一个文本子元素（w:t、w:tab、w:br、w:cr），
	// 没有时均为-1
	contentStart, contentEnd int
	// kept 内容范围内非文本子元素的原始字节，写回时跟在新文本之后
	kept        [][]byte
	insertAt    int
	selfClosing bool
	prefix      string
}

// bodyParser 单次遍历word/document.xml，构建块并记录run位置
type bodyParser struct {
	dec    *xml.Decoder
	src    []byte
	styles *styleSheet
}

func parseBody(src []byte, styles *styleSheet) ([]Block, error) {
	p := &bodyParser{
		dec:    xml.NewDecoder(bytes.NewReader(src)),
		src:    src,
		styles: styles,
	}
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("docx: document has no body")
		}
		if err != nil {
			return nil, fmt.Errorf("parsing document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && isW(se.Name, "body") {
			blocks, err := p.blocks()
			if err != nil {
				return nil, fmt.Errorf("parsing document: %w", err)
			}
			return blocks, nil
		}
	}
}

func (p *bodyParser) offset() int { return int(p.dec.InputOffset()) }

func (p *bodyParser) blocks() ([]Block, error) {
	var blocks []Block
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isW(t.Name, "p"):
				para, err := p.paragraph()
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, para)
			case isW(t.Name, "tbl"):
				tbl, err := p.table()
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, tbl)
			default:
				if err := p.dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return blocks, nil
		}
	}
}

func (p *bodyParser) table() (*Table, error) {
	tbl := &Table{}
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !isW(t.Name, "tr") {
				if err := p.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			row, err := p.row()
			if err != nil {
				return nil, err
			}
			tbl.Rows = append(tbl.Rows, row)
		case xml.EndElement:
			return tbl, nil
		}
	}
}

func (p *bodyParser) row() (*Row, error) {
	row := &Row{}
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !isW(t.Name, "tc") {
				if err := p.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			cell, err := p.cell()
			if err != nil {
				return nil, err
			}
			row.Cells = append(row.Cells, cell)
		case xml.EndElement:
			return row, nil
		}
	}
}

// cell 收集单元格的直接段落，跳过嵌套表格
func (p *bodyParser) cell() (*Cell, error) {
	cell := &Cell{}
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !isW(t.Name, "p") {
				if err := p.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			para, err := p.paragraph()
			if err != nil {
				return nil, err
			}
			cell.Paragraphs = append(cell.Paragraphs, para)
		case xml.EndElement:
			return cell, nil
		}
	}
}

func (p *bodyParser) paragraph() (*Paragraph, error) {
	para := &Paragraph{}
	styleID, err := p.inline(para)
	if err != nil {
		return nil, err
	}
	para.SetStyle(p.styles.name(styleID))
	return para, nil
}

// inline 读取段落或run容器（如超链接）的子元素直到结束标签
func (p *bodyParser) inline(para *Paragraph) (string, error) {
	var styleID string
	for {
		start := p.offset()
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isW(t.Name, "pPr"):
				if styleID, err = p.paragraphStyle(); err != nil {
					return "", err
				}
			case isW(t.Name, "r"):
				run, refs, err := p.run(start)
				if err != nil {
					return "", err
				}
				para.Runs = append(para.Runs, run)
				para.ImageRefs = append(para.ImageRefs, refs...)
			case isW(t.Name, "hyperlink"), isW(t.Name, "ins"), isW(t.Name, "smartTag"):
				if _, err := p.inline(para); err != nil {
					return "", err
				}
			default:
				refs, err := p.blips()
				if err != nil {
					return "", err
				}
				para.ImageRefs = append(para.ImageRefs, refs...)
			}
		case xml.EndElement:
			return styleID, nil
		}
	}
}

func (p *bodyParser) paragraphStyle() (string, error) {
	var id string
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isW(t.Name, "pStyle") {
				id = attr(t, "val")
			}
			if err := p.dec.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return id, nil
		}
	}
}

// run 解析起始标签位于start的w:r元素
func (p *bodyParser) run(start int) (*Run, []string, error) {
	src := &runSource{
		start:        start,
		contentStart: -1,
		contentEnd:   -1,
		prefix:       prefixOf(p.src[start:]),
	}
	afterTag := p.offset()
	src.insertAt = afterTag

	type child struct {
		start, end int
		text       bool
	}
	var (
		text     strings.Builder
		refs     []string
		children []child
	)
	for {
		cstart := p.offset()
		tok, err := p.dec.Token()
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isW(t.Name, "rPr"):
				if err := p.dec.Skip(); err != nil {
					return nil, nil, err
				}
				src.insertAt = p.offset()
			case isW(t.Name, "t"):
				s, err := p.charData()
				if err != nil {
					return nil, nil, err
				}
				text.WriteString(s)
				children = append(children, child{cstart, p.offset(), true})
			case isW(t.Name, "tab"):
				if err := p.dec.Skip(); err != nil {
					return nil, nil, err
				}
				text.WriteByte('\t')
				children = append(children, child{cstart, p.offset(), true})
			case isW(t.Name, "cr"), isW(t.Name, "br") && isLineBreak(t):
				if err := p.dec.Skip(); err != nil {
					return nil, nil, err
				}
				text.WriteByte('\n')
				children = append(children, child{cstart, p.offset(), true})
			default:
				found, err := p.blips()
				if err != nil {
					return nil, nil, err
				}
				refs = append(refs, found...)
				children = append(children, child{cstart, p.offset(), false})
			}
		case xml.EndElement:
			src.end = p.offset()
			src.selfClosing = src.end == afterTag
			first, last := -1, -1
			for i, c := range children {
				if c.text {
					if first < 0 {
						first = i
					}
					last = i
				}
			}
			if first >= 0 {
				src.contentStart = children[first].start
				src.contentEnd = children[last].end
				for _, c := range children[first : last+1] {
					if !c.text {
						src.kept = append(src.kept, p.src[c.start:c.end])
					}
				}
			}
			return &Run{text: text.String(), src: src}, refs, nil
		}
	}
}

// charData 读取当前元素到结束标签为止的文本
func (p *bodyParser) charData() (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 1 {
				b.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

// blips 读取当前元素，返回其中全部a:blip的关系ID
func (p *bodyParser) blips() ([]string, error) {
	var refs []string
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "blip" {
				if ref := attr(t, "embed"); ref != "" {
					refs = append(refs, ref)
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return refs, nil
}

func isLineBreak(se xml.StartElement) bool {
	switch attr(se, "type") {
	case "", "textWrapping":
		return true
	}
	return false
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// prefixOf 返回raw开头起始标签的命名空间前缀
func prefixOf(raw []byte) string {
	if len(raw) == 0 || raw[0] != '<' {
		return ""
	}
	for i := 1; i < len(raw); i++ {
		switch raw[i] {
		case ':':
			return string(raw[1:i])
		case ' ', '>', '/', '\t', '\n', '\r':
			return ""
		}
	}
	return ""
}
