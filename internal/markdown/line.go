// Package markdown 文档与Markdown子集互转：ATX标题、列表项、独立图片行、普通段落和管道表格
package markdown

import (
	"regexp"
	"strings"
)

// LineKind Markdown行的类型
type LineKind int

const (
	LinePlain LineKind = iota
	LineHeading
	LineStrong
	LineBullet
	LineNumbered
	LineImage
	LineBlank
	LineTablesHeader
	LineTableRow
	LineTableDelimiter
)

// Line 解析或生成的一行Markdown
type Line struct {
	Kind  LineKind
	Level int
	Text  string
	Alt   string
	Src   string
	Cells []string
}

var imageLine = regexp.MustCompile(`^!\[(.*?)\]\((.*?)\)$`)

// ParseLine 对去除首尾空白的输入行分类
//
// 只识别1到3级标题、"- "与"* "列表项以及整行图片，其余均为普通文本。
func ParseLine(line string) Line {
	switch {
	case line == "":
		return Line{Kind: LineBlank}
	case strings.HasPrefix(line, "# "):
		return Line{Kind: LineHeading, Level: 1, Text: line[2:]}
	case strings.HasPrefix(line, "## "):
		return Line{Kind: LineHeading, Level: 2, Text: line[3:]}
	case strings.HasPrefix(line, "### "):
		return Line{Kind: LineHeading, Level: 3, Text: line[4:]}
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		return Line{Kind: LineBullet, Text: line[2:]}
	}
	if m := imageLine.FindStringSubmatch(line); m != nil {
		return Line{Kind: LineImage, Alt: m[1], Src: m[2]}
	}
	return Line{Kind: LinePlain, Text: line}
}

// String 输出为Markdown
func (l Line) String() string {
	switch l.Kind {
	case LineHeading:
		return strings.Repeat("#", l.Level) + " " + l.Text
	case LineStrong:
		return "**" + l.Text + "**"
	case LineBullet:
		return "- " + l.Text
	case LineNumbered:
		return "1. " + l.Text
	case LineImage:
		return "![" + l.Alt + "](" + l.Src + ")"
	case LineBlank:
		return ""
	case LineTablesHeader:
		return "\n--- Tables ---\n"
	case LineTableRow:
		return "| " + strings.Join(l.Cells, " | ") + " |"
	case LineTableDelimiter:
		dashes := make([]string, len(l.Cells))
		for i := range dashes {
			dashes[i] = "---"
		}
		return "| " + strings.Join(dashes, " | ") + " |"
	default:
		return l.Text
	}
}
