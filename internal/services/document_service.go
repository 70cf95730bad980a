package services

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/aihub/doctools/internal/docx"
	apperrors "github.com/aihub/doctools/internal/errors"
	"github.com/aihub/doctools/internal/logger"
	"github.com/aihub/doctools/internal/markdown"
	"github.com/aihub/doctools/internal/replace"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// 操作名称，用于指标与日志
const (
	OpReplace   = "replace"
	OpMetadata  = "metadata"
	OpText      = "text"
	OpImages    = "images"
	OpTables    = "tables"
	OpGenerate  = "generate"
	OpDocxToMD  = "docx-to-md"
	OpPDFToDocx = "pdf-to-docx"
	OpDocxToPDF = "docx-to-pdf"
)

// PDFConverter 将PDF转换为DOCX
type PDFConverter interface {
	PDFToDocx(ctx context.Context, data []byte) ([]byte, error)
}

// OfficeConverter 将DOCX转换为PDF
type OfficeConverter interface {
	DocxToPDF(ctx context.Context, data []byte) ([]byte, error)
}

// ReplaceRequest 查找替换请求
type ReplaceRequest struct {
	Data    []byte `validate:"required"`
	Search  string `validate:"required"`
	Replace string `validate:"required"`
}

// GenerateRequest Markdown生成DOCX请求
type GenerateRequest struct {
	Markdown string `validate:"required"`
	// Images 以文件名为键的上传图片
	Images map[string][]byte
}

// DocumentService 文档处理服务
type DocumentService struct {
	importer   *markdown.Importer
	pdf        PDFConverter
	office     OfficeConverter
	pdfEnabled bool
	metrics    *MetricsService
	validate   *validator.Validate
}

// NewDocumentService 创建文档处理服务
func NewDocumentService(importer *markdown.Importer, pdf PDFConverter, office OfficeConverter, pdfEnabled bool, metrics *MetricsService) *DocumentService {
	if importer == nil {
		importer = markdown.NewImporter(nil)
	}
	return &DocumentService{
		importer:   importer,
		pdf:        pdf,
		office:     office,
		pdfEnabled: pdfEnabled,
		metrics:    metrics,
		validate:   validator.New(),
	}
}

// PDFEnabled PDF转换是否开启
func (s *DocumentService) PDFEnabled() bool {
	return s.pdfEnabled
}

// PDFToDocxEnabled PDF转DOCX是否可用；未配置unidoc许可证时没有PDF转换器
func (s *DocumentService) PDFToDocxEnabled() bool {
	return s.pdfEnabled && s.pdf != nil
}

// DocxToPDFEnabled DOCX转PDF是否可用
func (s *DocumentService) DocxToPDFEnabled() bool {
	return s.pdfEnabled && s.office != nil
}

// Replace 在每个run内查找替换，返回修改后的DOCX
func (s *DocumentService) Replace(ctx context.Context, req ReplaceRequest) (out []byte, err error) {
	defer s.observe(OpReplace, len(req.Data), time.Now(), &err)

	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Translate(err)
	}
	doc, err := s.read(req.Data)
	if err != nil {
		return nil, err
	}
	changed := replace.Text(doc, req.Search, req.Replace)
	logger.Debug("Replaced text", zap.Int("runs", changed))
	return s.save(doc)
}

// Metadata 提取核心属性
func (s *DocumentService) Metadata(ctx context.Context, data []byte) (meta docx.Metadata, err error) {
	defer s.observe(OpMetadata, len(data), time.Now(), &err)

	doc, err := s.read(data)
	if err != nil {
		return docx.Metadata{}, err
	}
	return docx.ExtractMetadata(doc), nil
}

// Text 返回非空顶层段落的文本，以换行连接
func (s *DocumentService) Text(ctx context.Context, data []byte) (text string, err error) {
	defer s.observe(OpText, len(data), time.Now(), &err)

	doc, err := s.read(data)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, p := range doc.Paragraphs() {
		if t := p.Text(); strings.TrimSpace(t) != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Images 列出 word/media/ 下的所有文件
func (s *DocumentService) Images(ctx context.Context, data []byte) (images []docx.MediaFile, err error) {
	defer s.observe(OpImages, len(data), time.Now(), &err)

	images, err = docx.ExtractImages(data)
	if err != nil {
		return nil, apperrors.NewProcessingError(apperrors.ErrCodeProcessingFailed, err)
	}
	return images, nil
}

// Tables 返回每个表格的单元格文本
func (s *DocumentService) Tables(ctx context.Context, data []byte) (tables [][][]string, err error) {
	defer s.observe(OpTables, len(data), time.Now(), &err)

	doc, err := s.read(data)
	if err != nil {
		return nil, err
	}
	tables = make([][][]string, 0)
	for _, t := range doc.Tables() {
		rows := make([][]string, 0, len(t.Rows))
		for _, r := range t.Rows {
			cells := make([]string, 0, len(r.Cells))
			for _, c := range r.Cells {
				cells = append(cells, c.Text())
			}
			rows = append(rows, cells)
		}
		tables = append(tables, rows)
	}
	return tables, nil
}

// Generate 由Markdown生成DOCX
func (s *DocumentService) Generate(ctx context.Context, req GenerateRequest) (out []byte, err error) {
	defer s.observe(OpGenerate, len(req.Markdown), time.Now(), &err)

	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Translate(err)
	}
	doc := s.importer.Import(ctx, req.Markdown, req.Images)
	return s.save(doc)
}

// DocxToMarkdown 将DOCX导出为Markdown
func (s *DocumentService) DocxToMarkdown(ctx context.Context, data []byte) (md string, err error) {
	defer s.observe(OpDocxToMD, len(data), time.Now(), &err)

	doc, err := s.read(data)
	if err != nil {
		return "", err
	}
	return markdown.Export(doc), nil
}

// PreviewHTML 渲染Markdown预览
func (s *DocumentService) PreviewHTML(md string) (string, error) {
	html, err := markdown.Preview(md)
	if err != nil {
		return "", apperrors.NewProcessingError(apperrors.ErrCodeProcessingFailed, err)
	}
	return html, nil
}

// PDFToDocx 将PDF转换为DOCX
func (s *DocumentService) PDFToDocx(ctx context.Context, data []byte) (out []byte, err error) {
	defer s.observe(OpPDFToDocx, len(data), time.Now(), &err)

	if !s.PDFToDocxEnabled() {
		return nil, apperrors.NewFeatureDisabledError(apperrors.MsgPDFConversionOff)
	}
	out, err = s.pdf.PDFToDocx(ctx, data)
	if err != nil {
		return nil, apperrors.TranslateWith(err, apperrors.ErrCodeConversionFailed)
	}
	return out, nil
}

// DocxToPDF 将DOCX转换为PDF
func (s *DocumentService) DocxToPDF(ctx context.Context, data []byte) (out []byte, err error) {
	defer s.observe(OpDocxToPDF, len(data), time.Now(), &err)

	if !s.DocxToPDFEnabled() {
		return nil, apperrors.NewFeatureDisabledError(apperrors.MsgPDFConversionOff)
	}
	out, err = s.office.DocxToPDF(ctx, data)
	if err != nil {
		return nil, apperrors.TranslateWith(err, apperrors.ErrCodeConversionFailed)
	}
	return out, nil
}

func (s *DocumentService) read(data []byte) (*docx.Document, error) {
	doc, err := docx.Read(data)
	if err != nil {
		return nil, apperrors.NewProcessingError(apperrors.ErrCodeProcessingFailed, err)
	}
	return doc, nil
}

func (s *DocumentService) save(doc *docx.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, apperrors.NewProcessingError(apperrors.ErrCodeProcessingFailed, err)
	}
	return buf.Bytes(), nil
}

func (s *DocumentService) observe(op string, size int, start time.Time, errp *error) {
	s.metrics.ObserveInput(op, size)
	s.metrics.Observe(op, start, *errp)
	if *errp != nil {
		logger.Warn("Document operation failed", zap.String("operation", op), zap.Error(*errp))
	}
}
