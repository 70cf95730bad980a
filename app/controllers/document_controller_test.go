package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aihub/doctools/internal/docx"
	"github.com/aihub/doctools/internal/docx/docxtest"
	apperrors "github.com/aihub/doctools/internal/errors"
	"github.com/aihub/doctools/internal/services"
	"github.com/beego/beego/v2/server/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConverter 返回固定结果的转换器
type fakeConverter struct {
	out []byte
	err error
}

func (f *fakeConverter) PDFToDocx(ctx context.Context, data []byte) ([]byte, error) {
	return f.out, f.err
}

func (f *fakeConverter) DocxToPDF(ctx context.Context, data []byte) ([]byte, error) {
	return f.out, f.err
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newHandlers(t *testing.T, conv *fakeConverter, pdfEnabled bool, maxUpload int64) *web.ControllerRegister {
	t.Helper()
	var pdf services.PDFConverter
	var office services.OfficeConverter
	if conv != nil {
		pdf, office = conv, conv
	}
	return newHandlersFor(t, services.NewDocumentService(nil, pdf, office, pdfEnabled, nil), maxUpload)
}

func newHandlersFor(t *testing.T, svc *services.DocumentService, maxUpload int64) *web.ControllerRegister {
	t.Helper()
	web.BConfig.WebConfig.AutoRender = false
	ctrl := NewDocumentController(svc, maxUpload)

	h := web.NewControllerRegister()
	routes := map[string]string{
		"/":                "get:Index;post:Dispatch",
		"/api/replace":     "post:Replace",
		"/api/metadata":    "post:Metadata",
		"/api/text":        "post:Text",
		"/api/images":      "post:Images",
		"/api/tables":      "post:Tables",
		"/api/generate":    "post:Generate",
		"/api/docx-to-md":  "post:DocxToMarkdown",
		"/api/pdf-to-docx": "post:PDFToDocx",
		"/api/docx-to-pdf": "post:DocxToPDF",
	}
	for pattern, mapping := range routes {
		h.Add(pattern, ctrl, web.WithRouterMethods(ctrl, mapping))
	}
	return h
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, message, body["error"])
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	return params["filename"]
}

func sample(t *testing.T) []byte {
	return docxtest.Build(t, docxtest.Archive{
		Body: docxtest.P("Heading1", docxtest.R("Report")) +
			docxtest.P("", docxtest.R("Hello "), docxtest.R("world")) +
			docxtest.P("", docxtest.R("  ")) +
			docxtest.Table([]string{"a", "b"}, []string{"c", "d"}),
		Core: docxtest.Core("Ada", "", "Quarterly", "2", ""),
	})
}

func TestDocumentController_Text(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/text", nil, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Report\nHello world", body["text"])
}

func TestDocumentController_UploadErrors(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	t.Run("no file part", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/metadata", map[string]string{"x": "y"}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgNoFilePart)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/text", strings.NewReader("plain"))
		req.Header.Set("Content-Type", "text/plain")
		assertError(t, serve(h, req), http.StatusBadRequest, apperrors.MsgNoFilePart)
	})

	t.Run("wrong extension", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/tables", nil, part{"file", "report.txt", []byte("x")}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgInvalidFormat)
	})

	t.Run("empty filename", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/images", nil, part{"file", "", nil}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgInvalidFormat)
	})

	t.Run("corrupt docx", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/text", nil, part{"file", "bad.docx", []byte("not a zip")}))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["error"])
	})
}

func TestDocumentController_FileTooLarge(t *testing.T) {
	h := newHandlers(t, nil, false, 16)

	rec := serve(h, multipartRequest(t, "/api/text", nil, part{"file", "big.docx", bytes.Repeat([]byte("x"), 64)}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDocumentController_Replace(t *testing.T) {
	h := newHandlers(t, nil, false, 0)
	fields := map[string]string{"search_text": "world", "replace_text": "there"}

	rec := serve(h, multipartRequest(t, "/api/replace", fields, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, docxMime, rec.Header().Get("Content-Type"))
	assert.Equal(t, "modified_report.docx", attachmentName(t, rec))

	doc, err := docx.Read(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Hello there", doc.Paragraphs()[1].Text())
}

func TestDocumentController_ReplaceErrors(t *testing.T) {
	h := newHandlers(t, nil, false, 0)
	fields := map[string]string{"search_text": "a", "replace_text": "b"}

	t.Run("no file part", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/replace", fields))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgNoFilePart)
	})

	t.Run("no selected file", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/replace", fields, part{"file", "", nil}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgNoSelectedFile)
	})

	t.Run("missing replace text", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/replace", map[string]string{"search_text": "a"},
			part{"file", "report.docx", sample(t)}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgMissingReplaceText)
	})

	t.Run("params checked before extension", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/replace", nil, part{"file", "report.pdf", []byte("x")}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgMissingReplaceText)
	})

	t.Run("wrong extension", func(t *testing.T) {
		rec := serve(h, multipartRequest(t, "/api/replace", fields, part{"file", "report.pdf", []byte("x")}))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgInvalidDocxFormat)
	})
}

func TestDocumentController_Metadata(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/metadata", nil, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	meta, ok := decode(t, rec)["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ada", meta["Author"])
	assert.Equal(t, "", meta["Last Modified By"])
	assert.Equal(t, "Quarterly", meta["Title"])
	assert.Equal(t, float64(2), meta["Revision"])
	assert.Nil(t, meta["Created"])
}

func TestDocumentController_MetadataCreated(t *testing.T) {
	h := newHandlers(t, nil, false, 0)
	data := docxtest.Build(t, docxtest.Archive{
		Body: docxtest.P("", docxtest.R("x")),
		Core: docxtest.Core("Ada", "", "", "", "2024-03-01T10:20:30Z"),
	})

	rec := serve(h, multipartRequest(t, "/api/metadata", nil, part{"file", "report.docx", data}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	meta, ok := decode(t, rec)["metadata"].(map[string]interface{})
	require.True(t, ok)
	// 时间按RFC3339输出
	assert.Equal(t, "2024-03-01T10:20:30Z", meta["Created"])
}

func TestDocumentController_Tables(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/tables", nil, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{
		[]interface{}{
			[]interface{}{"a", "b"},
			[]interface{}{"c", "d"},
		},
	}, decode(t, rec)["tables"])
}

func TestDocumentController_Images(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/images", nil, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{}, decode(t, rec)["images"])
}

func TestDocumentController_DocxToMarkdown(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/docx-to-md", nil, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, markdownMime, rec.Header().Get("Content-Type"))
	assert.Equal(t, "report.md", attachmentName(t, rec))
	assert.Contains(t, rec.Body.String(), "# Report\n")
	assert.Contains(t, rec.Body.String(), "| a | b |")
}

func TestDocumentController_DocxToMarkdownPreview(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/docx-to-md", map[string]string{"preview": "true"},
		part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Contains(t, body["markdown"], "# Report")
	assert.Contains(t, body["html"], "<h1>Report</h1>")
}

func TestDocumentController_Generate_Missing(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/api/generate", map[string]string{"markdown_text": ""}))
	assertError(t, rec, http.StatusBadRequest, apperrors.MsgNoMarkdownText)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"markdown_text":""}`))
	req.Header.Set("Content-Type", "application/json")
	assertError(t, serve(h, req), http.StatusBadRequest, apperrors.MsgNoMarkdownText)
}

func TestDocumentController_Generate(t *testing.T) {
	h := newHandlers(t, nil, false, 0)
	logo := docxtest.PNG(t, 8, 4)

	md := "# Plan\n## Steps\n- first\n![logo](logo.png)\n![remote](https://example.invalid/x.png)\nclosing"
	rec := serve(h, multipartRequest(t, "/api/generate", map[string]string{"markdown_text": md},
		part{"images", "logo.png", logo}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "generated_doc.docx", attachmentName(t, rec))
	assert.Equal(t, docxMime, rec.Header().Get("Content-Type"))

	doc, err := docx.Read(rec.Body.Bytes())
	require.NoError(t, err)
	paras := doc.Paragraphs()
	require.Len(t, paras, 6)
	assert.Equal(t, 1, paras[0].Level)
	assert.Equal(t, 2, paras[1].Level)
	assert.Equal(t, docx.RoleBullet, paras[2].Role)
	require.Len(t, paras[3].ImageRefs, 1)
	img, err := doc.Image(paras[3].ImageRefs[0])
	require.NoError(t, err)
	assert.Equal(t, logo, img.Data)
	assert.Equal(t, "[Could not load image: https://example.invalid/x.png]", paras[4].Text())
	assert.Equal(t, "closing", paras[5].Text())
}

func TestDocumentController_GenerateJSON(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"markdown_text":"# Title\n* item"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc, err := docx.Read(rec.Body.Bytes())
	require.NoError(t, err)
	paras := doc.Paragraphs()
	require.Len(t, paras, 2)
	assert.Equal(t, "Title", paras[0].Text())
	assert.Equal(t, docx.RoleBullet, paras[1].Role)
}

func TestDocumentController_PDFDisabled(t *testing.T) {
	h := newHandlers(t, &fakeConverter{out: []byte("unused")}, false, 0)

	for _, path := range []string{"/api/pdf-to-docx", "/api/docx-to-pdf"} {
		rec := serve(h, multipartRequest(t, path, nil))
		assertError(t, rec, http.StatusBadRequest, apperrors.MsgPDFConversionOff)
	}
}

func TestDocumentController_PDFToDocxWithoutConverter(t *testing.T) {
	conv := &fakeConverter{out: []byte("%PDF-1.7")}
	h := newHandlersFor(t, services.NewDocumentService(nil, nil, conv, true, nil), 0)

	rec := serve(h, multipartRequest(t, "/api/pdf-to-docx", nil, part{"file", "scan.pdf", []byte("%PDF-1.4")}))
	assertError(t, rec, http.StatusBadRequest, apperrors.MsgPDFConversionOff)

	rec = serve(h, multipartRequest(t, "/api/docx-to-pdf", nil, part{"file", "report.docx", sample(t)}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDocumentController_PDFToDocx(t *testing.T) {
	h := newHandlers(t, &fakeConverter{out: []byte("docx bytes")}, true, 0)

	rec := serve(h, multipartRequest(t, "/api/pdf-to-docx", nil, part{"file", "scan.pdf", []byte("%PDF-1.4")}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "scan.docx", attachmentName(t, rec))
	assert.Equal(t, docxMime, rec.Header().Get("Content-Type"))
	assert.Equal(t, "docx bytes", rec.Body.String())

	rec = serve(h, multipartRequest(t, "/api/pdf-to-docx", nil, part{"file", "scan.docx", []byte("x")}))
	assertError(t, rec, http.StatusBadRequest, apperrors.MsgInvalidFormat)
}

func TestDocumentController_DocxToPDF(t *testing.T) {
	h := newHandlers(t, &fakeConverter{out: []byte("%PDF-1.7")}, true, 0)

	rec := serve(h, multipartRequest(t, "/api/docx-to-pdf", nil, part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "report.pdf", attachmentName(t, rec))
	assert.Equal(t, pdfMime, rec.Header().Get("Content-Type"))
}

func TestDocumentController_DocxToPDF_Failure(t *testing.T) {
	h := newHandlers(t, &fakeConverter{err: errors.New("soffice crashed")}, true, 0)

	rec := serve(h, multipartRequest(t, "/api/docx-to-pdf", nil, part{"file", "report.docx", sample(t)}))
	assertError(t, rec, http.StatusInternalServerError, "soffice crashed")
}

func TestDocumentController_Dispatch(t *testing.T) {
	h := newHandlers(t, nil, false, 0)

	rec := serve(h, multipartRequest(t, "/", map[string]string{"feature": "text"},
		part{"file", "report.docx", sample(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Report\nHello world", decode(t, rec)["text"])

	rec = serve(h, multipartRequest(t, "/", map[string]string{"feature": "pdf-to-docx"}))
	assertError(t, rec, http.StatusBadRequest, apperrors.MsgPDFConversionOff)

	rec = serve(h, multipartRequest(t, "/", map[string]string{"feature": "shred"}))
	assertError(t, rec, http.StatusBadRequest, `Unknown feature: "shred"`)
}

func TestDocumentController_Index(t *testing.T) {
	h := newHandlers(t, nil, false, 1024)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := decode(t, rec)["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, data["features"], len(Features))
	assert.Equal(t, false, data["pdf_enabled"])
}
