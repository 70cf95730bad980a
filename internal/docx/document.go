// Package docx .docx归档上的轻量文档模型：带样式和run的段落、表格、内嵌图片与核心属性。
//
// 从归档读取的文档记录每个run在主文档部件中的位置，保存时只改写文本变化的run，其余内容原样复制。
// 内存中新建的文档直接写出OOXML；配置unidoc许可证后改由unioffice渲染。
package docx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrImageNotFound 关系ID无法解析到图片部件
var ErrImageNotFound = errors.New("docx: image not found")

// Role 段落的结构角色
type Role int

const (
	RoleBody Role = iota
	RoleHeading
	RoleBullet
	RoleNumbered
)

// Classify 将段落样式名映射为角色
//
// 以"Heading"开头的样式取名称最后一个词作为级别，不是正整数时级别为0。
func Classify(style string) (Role, int) {
	switch {
	case strings.HasPrefix(style, "Heading"):
		fields := strings.Fields(style)
		level, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || level < 1 {
			return RoleHeading, 0
		}
		return RoleHeading, level
	case strings.Contains(style, "List Bullet"):
		return RoleBullet, 0
	case strings.Contains(style, "List Number"):
		return RoleNumbered, 0
	default:
		return RoleBody, 0
	}
}

// Metadata 文档核心属性
type Metadata struct {
	Author         string     `json:"Author"`
	Created        *time.Time `json:"Created"`
	LastModifiedBy string     `json:"Last Modified By"`
	Title          string     `json:"Title"`
	Revision       int        `json:"Revision"`
}

// Block 正文顶层元素，*Paragraph 或 *Table
type Block interface {
	isBlock()
}

// Paragraph 带样式的run序列
type Paragraph struct {
	Style string
	Role  Role
	Level int
	Runs  []*Run
	// ImageRefs 内嵌图片的关系ID，按出现顺序
	ImageRefs []string
	// PageBreak 渲染时在新页开始
	PageBreak bool
}

func (*Paragraph) isBlock() {}

// Text 拼接全部run的文本
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.text)
	}
	return b.String()
}

// AddRun 追加一个文本run
func (p *Paragraph) AddRun(text string) *Run {
	r := &Run{text: text}
	p.Runs = append(p.Runs, r)
	return r
}

// SetStyle 修改样式并重新分类
func (p *Paragraph) SetStyle(style string) {
	p.Style = style
	p.Role, p.Level = Classify(style)
}

// Run 格式相同的一段文本，格式内容不解析
type Run struct {
	text  string
	dirty bool
	src   *runSource
}

// Text 返回run文本，制表符和换行分别为'\t'和'\n'
func (r *Run) Text() string { return r.text }

// SetText 替换文本，保留格式
func (r *Run) SetText(text string) {
	if text == r.text {
		return
	}
	r.text = text
	r.dirty = true
}

// Table 单元格网格
type Table struct {
	Rows []*Row
}

func (*Table) isBlock() {}

// Row 表格行
type Row struct {
	Cells []*Cell
}

// Cell 单元格
type Cell struct {
	Paragraphs []*Paragraph
}

// Text 以换行连接单元格内各段落文本
func (c *Cell) Text() string {
	texts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		texts[i] = p.Text()
	}
	return strings.Join(texts, "\n")
}

// Image 内嵌图片
type Image struct {
	Name        string
	ContentType string
	Data        []byte
	// Width 渲染宽度（英寸），0表示原始尺寸
	Width float64
}

// Document 有序的块列表及元数据
type Document struct {
	Blocks   []Block
	Metadata Metadata

	media    map[string]*Image
	pkg      *pkg
	appended bool
}

// New 创建空的内存文档
func New() *Document {
	return &Document{media: make(map[string]*Image)}
}

// Paragraphs 按文档顺序返回顶层段落
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, b := range d.Blocks {
		if p, ok := b.(*Paragraph); ok {
			out = append(out, p)
		}
	}
	return out
}

// Tables 按文档顺序返回顶层表格
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, b := range d.Blocks {
		if t, ok := b.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// AddParagraph 追加只含一个run的段落，样式为空时使用"Normal"
func (d *Document) AddParagraph(text, style string) *Paragraph {
	if style == "" {
		style = "Normal"
	}
	p := &Paragraph{}
	p.SetStyle(style)
	if text != "" {
		p.AddRun(text)
	}
	d.Blocks = append(d.Blocks, p)
	d.appended = true
	return p
}

// AddHeading 追加"Heading N"段落
func (d *Document) AddHeading(text string, level int) *Paragraph {
	return d.AddParagraph(text, fmt.Sprintf("Heading %d", level))
}

// AddPicture 追加一个内嵌图片段落，宽度单位为英寸
func (d *Document) AddPicture(data []byte, contentType string, width float64) *Paragraph {
	if d.media == nil {
		d.media = make(map[string]*Image)
	}
	ref := fmt.Sprintf("rIdImg%d", len(d.media)+1)
	d.media[ref] = &Image{
		Name:        ref,
		ContentType: contentType,
		Data:        data,
		Width:       width,
	}
	p := d.AddParagraph("", "")
	p.ImageRefs = append(p.ImageRefs, ref)
	return p
}

// Image 解析内嵌图片引用
func (d *Document) Image(ref string) (*Image, error) {
	if img, ok := d.media[ref]; ok {
		return img, nil
	}
	if d.pkg == nil {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	img, err := d.pkg.image(ref)
	if err != nil {
		return nil, err
	}
	if d.media == nil {
		d.media = make(map[string]*Image)
	}
	d.media[ref] = img
	return img, nil
}

// AllParagraphs 按文档顺序返回全部段落，包括表格单元格内的段落
func AllParagraphs(d *Document) []*Paragraph {
	return d.allParagraphs()
}

func (d *Document) allParagraphs() []*Paragraph {
	var out []*Paragraph
	for _, b := range d.Blocks {
		switch blk := b.(type) {
		case *Paragraph:
			out = append(out, blk)
		case *Table:
			for _, row := range blk.Rows {
				for _, cell := range row.Cells {
					out = append(out, cell.Paragraphs...)
				}
			}
		}
	}
	return out
}
