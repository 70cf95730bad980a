package docx

import (
	"fmt"
	"io"
	"strings"

	"github.com/unidoc/unioffice/common"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
	"github.com/unidoc/unioffice/schema/soo/wml"
)

// render 用unioffice按块列表生成新文档，仅在许可证生效后使用
func (d *Document) render(w io.Writer) error {
	out := document.New()
	defer out.Close()

	known := make(map[string]bool)
	for _, s := range out.Styles.Styles() {
		known[s.StyleID()] = true
	}
	styleID := func(name string) string {
		id := strings.ReplaceAll(name, " ", "")
		if !known[id] {
			s := out.Styles.AddStyle(id, wml.ST_StyleTypeParagraph, false)
			s.SetName(name)
			s.SetBasedOn("Normal")
			known[id] = true
		}
		return id
	}

	if d.Metadata.Title != "" {
		out.CoreProperties.SetTitle(d.Metadata.Title)
	}
	if d.Metadata.Author != "" {
		out.CoreProperties.SetAuthor(d.Metadata.Author)
	}

	for _, b := range d.Blocks {
		switch blk := b.(type) {
		case *Paragraph:
			para := out.AddParagraph()
			if err := d.renderParagraph(out, para, blk, styleID); err != nil {
				return err
			}
		case *Table:
			tbl := out.AddTable()
			for _, row := range blk.Rows {
				r := tbl.AddRow()
				for _, cell := range row.Cells {
					c := r.AddCell()
					for _, p := range cell.Paragraphs {
						if err := d.renderParagraph(out, c.AddParagraph(), p, styleID); err != nil {
							return err
						}
					}
				}
			}
		}
	}

	if err := out.Save(w); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (d *Document) renderParagraph(out *document.Document, para document.Paragraph, p *Paragraph, styleID func(string) string) error {
	if p.Style != "" && p.Style != defaultStyleName {
		para.SetStyle(styleID(p.Style))
	}
	if p.PageBreak {
		para.AddRun().AddPageBreak()
	}
	for _, r := range p.Runs {
		run := para.AddRun()
		var pending strings.Builder
		flush := func() {
			if pending.Len() > 0 {
				run.AddText(pending.String())
				pending.Reset()
			}
		}
		for _, c := range r.text {
			switch c {
			case '\t':
				flush()
				run.AddTab()
			case '\n', '\r':
				flush()
				run.AddBreak()
			default:
				pending.WriteRune(c)
			}
		}
		flush()
	}
	for _, ref := range p.ImageRefs {
		img, err := d.Image(ref)
		if err != nil {
			continue
		}
		if err := addPicture(out, para, img); err != nil {
			return err
		}
	}
	return nil
}

func addPicture(out *document.Document, para document.Paragraph, img *Image) error {
	ci, err := common.ImageFromBytes(img.Data)
	if err != nil {
		return fmt.Errorf("decoding image %s: %w", img.Name, err)
	}
	iref, err := out.AddImage(ci)
	if err != nil {
		return fmt.Errorf("adding image %s: %w", img.Name, err)
	}
	inl, err := para.AddRun().AddDrawingInline(iref)
	if err != nil {
		return fmt.Errorf("placing image %s: %w", img.Name, err)
	}
	size := iref.Size()
	if img.Width > 0 && size.X > 0 {
		w := measurement.Distance(img.Width) * measurement.Inch
		h := w * measurement.Distance(size.Y) / measurement.Distance(size.X)
		inl.SetSize(w, h)
	}
	return nil
}
