package markdown

import (
	"encoding/base64"
	"strings"

	"github.com/aihub/doctools/internal/docx"
)

// Export 将文档顶层段落及其后的表格导出为Markdown
//
// 内嵌图片写为data URI，无法解析的引用丢弃；每个表格的第一行作为表头。
func Export(doc *docx.Document) string {
	lines := Lines(doc)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n")
}

// Lines 生成Export拼接的Markdown行
func Lines(doc *docx.Document) []Line {
	var lines []Line
	for _, para := range doc.Paragraphs() {
		text := strings.TrimSpace(para.Text())
		if text == "" && len(para.ImageRefs) == 0 {
			continue
		}
		if text != "" {
			lines = append(lines, paragraphLine(para, text))
		}
		for _, ref := range para.ImageRefs {
			img, err := doc.Image(ref)
			if err != nil {
				continue
			}
			lines = append(lines, Line{Kind: LineImage, Alt: "Image", Src: dataURI(img)})
		}
		lines = append(lines, Line{Kind: LineBlank})
	}

	tables := doc.Tables()
	if len(tables) == 0 {
		return lines
	}
	lines = append(lines, Line{Kind: LineTablesHeader})
	for _, tbl := range tables {
		for i, row := range tbl.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = strings.ReplaceAll(strings.TrimSpace(cell.Text()), "\n", " ")
			}
			lines = append(lines, Line{Kind: LineTableRow, Cells: cells})
			if i == 0 {
				lines = append(lines, Line{Kind: LineTableDelimiter, Cells: cells})
			}
		}
		lines = append(lines, Line{Kind: LineBlank})
	}
	return lines
}

func paragraphLine(para *docx.Paragraph, text string) Line {
	switch para.Role {
	case docx.RoleHeading:
		if para.Level < 1 {
			return Line{Kind: LineStrong, Text: text}
		}
		return Line{Kind: LineHeading, Level: para.Level, Text: text}
	case docx.RoleBullet:
		return Line{Kind: LineBullet, Text: text}
	case docx.RoleNumbered:
		return Line{Kind: LineNumbered, Text: text}
	default:
		return Line{Kind: LinePlain, Text: text}
	}
}

func dataURI(img *docx.Image) string {
	ct := img.ContentType
	if ct == "" {
		ct = docx.MimeFromName(img.Name)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
