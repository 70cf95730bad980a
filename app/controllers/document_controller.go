package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	apperrors "github.com/aihub/doctools/internal/errors"
	"github.com/aihub/doctools/internal/logger"
	"github.com/aihub/doctools/internal/services"
	"go.uber.org/zap"
)

const (
	docxMime     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	markdownMime = "text/markdown"
	pdfMime      = "application/pdf"
)

// Features 可通过 POST / 的 feature 字段调用的功能
var Features = []string{
	"replace", "metadata", "text", "images", "tables",
	"generate", "docx-to-md", "pdf-to-docx", "docx-to-pdf",
}

// DocumentController 文档处理控制器
//
// beego为每个请求复制控制器，只有导出字段会被带到副本中。
type DocumentController struct {
	BaseController
	Service *services.DocumentService
	// MaxUpload 单个上传文件的大小上限，0表示不限制
	MaxUpload int64
}

// NewDocumentController 创建文档控制器
func NewDocumentController(docService *services.DocumentService, maxUpload int64) *DocumentController {
	return &DocumentController{
		Service:   docService,
		MaxUpload: maxUpload,
	}
}

// multipartMemory 解析表单时保存在内存中的上限，超出部分写入临时文件
const multipartMemory = 32 << 20

// Prepare 提前解析multipart表单，使 GetString 能读到表单字段
func (c *DocumentController) Prepare() {
	req := c.Ctx.Request
	if req.MultipartForm != nil || !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		return
	}
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		logger.Debug("Failed to parse multipart form", zap.Error(err))
	}
}

// upload 读取 "file" 字段；ext 不匹配时返回 invalidMsg
func (c *DocumentController) upload(ext, invalidMsg string) ([]byte, string, error) {
	file, header, err := c.GetFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && c.hasEmptyFilePart() {
			return nil, "", apperrors.NewInvalidFormatError(invalidMsg)
		}
		return nil, "", apperrors.NewMissingFileError(apperrors.MsgNoFilePart)
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ext) {
		return nil, "", apperrors.NewInvalidFormatError(invalidMsg)
	}

	data, err := c.readPart(file, header)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// hasEmptyFilePart 是否提交了未选择文件的 "file" 字段
func (c *DocumentController) hasEmptyFilePart() bool {
	form := c.Ctx.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value["file"]
	return ok
}

func (c *DocumentController) readPart(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	if c.MaxUpload > 0 && header.Size > c.MaxUpload {
		return nil, apperrors.NewFileTooLargeError(c.MaxUpload)
	}
	var r io.Reader = file
	if c.MaxUpload > 0 {
		r = io.LimitReader(file, c.MaxUpload+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewProcessingError(apperrors.ErrCodeUploadFailed, err)
	}
	if c.MaxUpload > 0 && int64(len(data)) > c.MaxUpload {
		return nil, apperrors.NewFileTooLargeError(c.MaxUpload)
	}
	return data, nil
}

func baseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// Replace 查找替换
func (c *DocumentController) Replace() {
	file, header, err := c.GetFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && c.hasEmptyFilePart() {
			c.Fail(apperrors.NewMissingFileError(apperrors.MsgNoSelectedFile))
			return
		}
		c.Fail(apperrors.NewMissingFileError(apperrors.MsgNoFilePart))
		return
	}
	defer file.Close()
	if header.Filename == "" {
		c.Fail(apperrors.NewMissingFileError(apperrors.MsgNoSelectedFile))
		return
	}

	search := c.GetString("search_text")
	replacement := c.GetString("replace_text")
	if search == "" || replacement == "" {
		c.Fail(apperrors.NewMissingFieldError(apperrors.MsgMissingReplaceText))
		return
	}

	if !strings.HasSuffix(header.Filename, ".docx") {
		c.Fail(apperrors.NewInvalidFormatError(apperrors.MsgInvalidDocxFormat))
		return
	}

	data, err := c.readPart(file, header)
	if err != nil {
		c.Fail(err)
		return
	}

	out, err := c.Service.Replace(c.Ctx.Request.Context(), services.ReplaceRequest{
		Data:    data,
		Search:  search,
		Replace: replacement,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Attachment("modified_"+header.Filename, docxMime, out)
}

// Metadata 提取核心属性
func (c *DocumentController) Metadata() {
	data, _, err := c.upload(".docx", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	meta, err := c.Service.Metadata(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSONResult("metadata", meta)
}

// Text 提取正文文本
func (c *DocumentController) Text() {
	data, _, err := c.upload(".docx", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	text, err := c.Service.Text(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSONResult("text", text)
}

// Images 提取内嵌图片
func (c *DocumentController) Images() {
	data, _, err := c.upload(".docx", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	images, err := c.Service.Images(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSONResult("images", images)
}

// Tables 提取表格
func (c *DocumentController) Tables() {
	data, _, err := c.upload(".docx", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	tables, err := c.Service.Tables(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSONResult("tables", tables)
}

type generateBody struct {
	MarkdownText string `json:"markdown_text"`
}

// Generate 由Markdown生成DOCX，支持JSON或表单
func (c *DocumentController) Generate() {
	md := c.markdownText()
	if md == "" {
		c.Fail(apperrors.NewMissingFieldError(apperrors.MsgNoMarkdownText))
		return
	}

	images, err := c.uploadedImages()
	if err != nil {
		c.Fail(err)
		return
	}

	out, err := c.Service.Generate(c.Ctx.Request.Context(), services.GenerateRequest{
		Markdown: md,
		Images:   images,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Attachment("generated_doc.docx", docxMime, out)
}

// markdownText JSON解析失败时回退到表单字段
func (c *DocumentController) markdownText() string {
	if strings.HasPrefix(c.Ctx.Input.Header("Content-Type"), "application/json") {
		body := c.Ctx.Input.RequestBody
		if len(body) == 0 && c.Ctx.Request.Body != nil {
			var r io.Reader = c.Ctx.Request.Body
			if c.MaxUpload > 0 {
				r = io.LimitReader(r, c.MaxUpload)
			}
			body, _ = io.ReadAll(r)
		}
		var req generateBody
		if err := json.Unmarshal(body, &req); err == nil && req.MarkdownText != "" {
			return req.MarkdownText
		}
	}
	return c.GetString("markdown_text")
}

// uploadedImages 以文件名为键读取 "images" 字段
func (c *DocumentController) uploadedImages() (map[string][]byte, error) {
	form := c.Ctx.Request.MultipartForm
	if form == nil || len(form.File["images"]) == 0 {
		return nil, nil
	}

	images := make(map[string][]byte, len(form.File["images"]))
	for _, header := range form.File["images"] {
		if header.Filename == "" {
			continue
		}
		file, err := header.Open()
		if err != nil {
			return nil, apperrors.NewProcessingError(apperrors.ErrCodeUploadFailed, err)
		}
		data, err := c.readPart(file, header)
		file.Close()
		if err != nil {
			return nil, err
		}
		images[header.Filename] = data
	}
	return images, nil
}

// DocxToMarkdown 导出Markdown；preview=true 时返回JSON
func (c *DocumentController) DocxToMarkdown() {
	data, name, err := c.upload(".docx", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	md, err := c.Service.DocxToMarkdown(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}

	if c.GetString("preview") == "true" {
		html, err := c.Service.PreviewHTML(md)
		if err != nil {
			c.Fail(err)
			return
		}
		c.JSON(http.StatusOK, map[string]interface{}{
			"success":  true,
			"markdown": md,
			"html":     html,
		})
		return
	}
	c.Attachment(baseName(name)+".md", markdownMime, []byte(md))
}

// PDFToDocx PDF转DOCX
func (c *DocumentController) PDFToDocx() {
	if !c.Service.PDFToDocxEnabled() {
		c.Fail(apperrors.NewFeatureDisabledError(apperrors.MsgPDFConversionOff))
		return
	}
	data, name, err := c.upload(".pdf", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	out, err := c.Service.PDFToDocx(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Attachment(baseName(name)+".docx", docxMime, out)
}

// DocxToPDF DOCX转PDF
func (c *DocumentController) DocxToPDF() {
	if !c.Service.DocxToPDFEnabled() {
		c.Fail(apperrors.NewFeatureDisabledError(apperrors.MsgPDFConversionOff))
		return
	}
	data, name, err := c.upload(".docx", apperrors.MsgInvalidFormat)
	if err != nil {
		c.Fail(err)
		return
	}

	out, err := c.Service.DocxToPDF(c.Ctx.Request.Context(), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Attachment(baseName(name)+".pdf", pdfMime, out)
}

// Dispatch 按表单的 feature 字段分发
func (c *DocumentController) Dispatch() {
	feature := c.GetString("feature")
	handlers := map[string]func(){
		"replace":     c.Replace,
		"metadata":    c.Metadata,
		"text":        c.Text,
		"images":      c.Images,
		"tables":      c.Tables,
		"generate":    c.Generate,
		"docx-to-md":  c.DocxToMarkdown,
		"pdf-to-docx": c.PDFToDocx,
		"docx-to-pdf": c.DocxToPDF,
	}

	handler, ok := handlers[feature]
	if !ok {
		c.Fail(apperrors.NewBusinessError(apperrors.ErrCodeUnknownFeature,
			fmt.Sprintf("Unknown feature: %q", feature)))
		return
	}
	handler()
}

// Index 列出可用功能
func (c *DocumentController) Index() {
	c.JSONSuccess(map[string]interface{}{
		"message":     "Document Tools API",
		"features":    Features,
		"pdf_enabled": c.Service.PDFEnabled(),
		"max_upload":  c.MaxUpload,
	})
}
