package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aihub/doctools/internal/docx"
	"github.com/aihub/doctools/internal/logger"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// ErrEncrypted PDF需要密码
var ErrEncrypted = errors.New("pdf is encrypted")

// PDF 基于文本层将PDF转换为可编辑文档
type PDF struct{}

// NewPDF 创建PDF转换器
func NewPDF() *PDF { return &PDF{} }

// PDFToDocx 提取每页文本并写为.docx
//
// 连续的行合为一个段落，第一页之后的每页从新页开始。
func (c *PDF) PDFToDocx(ctx context.Context, data []byte) ([]byte, error) {
	pages, err := c.ExtractPages(ctx, data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := PagesToDocument(pages).Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExtractPages 返回每页文本，无法提取的页为空
func (c *PDF) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing pdf: %w", err)
	}

	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return nil, fmt.Errorf("parsing pdf: %w", err)
	}
	if encrypted {
		ok, err := reader.Decrypt([]byte(""))
		if err != nil || !ok {
			return nil, ErrEncrypted
		}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(reader, i)
		if err != nil {
			logger.Warn("Skipping pdf page", zap.Int("page", i), zap.Error(err))
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func pageText(reader *model.PdfReader, n int) (string, error) {
	page, err := reader.GetPage(n)
	if err != nil {
		return "", err
	}
	ex, err := extractor.New(page)
	if err != nil {
		return "", err
	}
	return ex.ExtractText()
}

// PagesToDocument 排版各页文本：空行分段，段内换行保留
func PagesToDocument(pages []string) *docx.Document {
	doc := docx.New()
	for i, text := range pages {
		first := true
		for _, block := range splitBlocks(text) {
			p := doc.AddParagraph(block, "")
			if first && i > 0 {
				p.PageBreak = true
			}
			first = false
		}
		if first && i > 0 {
			doc.AddParagraph("", "").PageBreak = true
		}
	}
	return doc
}

func splitBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		blocks []string
		cur    []string
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}
