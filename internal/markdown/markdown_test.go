package markdown

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aihub/doctools/internal/docx"
	"github.com/aihub/doctools/internal/docx/docxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		in   string
		want Line
	}{
		{"# Title", Line{Kind: LineHeading, Level: 1, Text: "Title"}},
		{"## Sub", Line{Kind: LineHeading, Level: 2, Text: "Sub"}},
		{"### Deep", Line{Kind: LineHeading, Level: 3, Text: "Deep"}},
		{"#### Deeper", Line{Kind: LinePlain, Text: "#### Deeper"}},
		{"#NoSpace", Line{Kind: LinePlain, Text: "#NoSpace"}},
		{"- item", Line{Kind: LineBullet, Text: "item"}},
		{"* star", Line{Kind: LineBullet, Text: "star"}},
		{"1. one", Line{Kind: LinePlain, Text: "1. one"}},
		{"![alt](pic.png)", Line{Kind: LineImage, Alt: "alt", Src: "pic.png"}},
		{"see ![alt](pic.png)", Line{Kind: LinePlain, Text: "see ![alt](pic.png)"}},
		{"", Line{Kind: LineBlank}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.in))
		})
	}
}

func readDoc(t *testing.T, a docxtest.Archive) *docx.Document {
	t.Helper()
	doc, err := docx.Read(docxtest.Build(t, a))
	require.NoError(t, err)
	return doc
}

// TestExport 测试段落导出
func TestExport(t *testing.T) {
	doc := readDoc(t, docxtest.Archive{
		Body: docxtest.P("Heading1", docxtest.R("Intro")) +
			docxtest.P("Heading2", docxtest.R("  Part  ")) +
			docxtest.P("HeadingCustom", docxtest.R("Odd")) +
			docxtest.P("", docxtest.R("   ")) +
			docxtest.P("ListBullet", docxtest.R("apple")) +
			docxtest.P("ListNumber", docxtest.R("first")) +
			docxtest.P("ListNumber", docxtest.R("second")) +
			docxtest.P("", docxtest.R("Body "), docxtest.R("text")),
	})

	want := strings.Join([]string{
		"# Intro", "",
		"## Part", "",
		"**Odd**", "",
		"- apple", "",
		"1. first", "",
		"1. second", "",
		"Body text", "",
	}, "\n")
	assert.Equal(t, want, Export(doc))
}

func TestExport_Tables(t *testing.T) {
	doc := readDoc(t, docxtest.Archive{
		Body: docxtest.P("", docxtest.R("x")) +
			docxtest.Table([]string{"a", "b"}, []string{"c", "d"}),
	})

	want := strings.Join([]string{
		"x", "",
		"\n--- Tables ---\n",
		"| a | b |",
		"| --- | --- |",
		"| c | d |",
		"",
	}, "\n")
	assert.Equal(t, want, Export(doc))
}

func TestExport_TableCellNewlines(t *testing.T) {
	doc := readDoc(t, docxtest.Archive{
		Body: `<w:tbl><w:tr><w:tc>` + docxtest.P("", docxtest.R(" one")) + docxtest.P("", docxtest.R("two ")) +
			`</w:tc></w:tr></w:tbl>`,
	})

	assert.Contains(t, Export(doc), "| one two |")
}

func TestExport_Images(t *testing.T) {
	img := docxtest.PNG(t, 2, 2)
	doc := readDoc(t, docxtest.Archive{
		Body: docxtest.P("", docxtest.R("Figure"), docxtest.Picture("rId7")) +
			docxtest.P("", docxtest.Picture("rIdGone")) +
			docxtest.P("", docxtest.Picture("rId7")),
		Media: []docxtest.Media{{Name: "image1.png", Data: img, RelID: "rId7"}},
	})

	uri := "![Image](data:image/png;base64," + base64.StdEncoding.EncodeToString(img) + ")"
	want := strings.Join([]string{
		"Figure", uri, "",
		"",
		uri, "",
	}, "\n")
	assert.Equal(t, want, Export(doc))
}

func TestImport(t *testing.T) {
	md := "# Title\n\n## Section\r\n### Sub\n#### Not a heading\n- item\n* other\n  plain text  \n1. numbered"

	doc := NewImporter(nil).Import(context.Background(), md, nil)

	paras := doc.Paragraphs()
	require.Len(t, paras, 8)

	assert.Equal(t, "Heading 1", paras[0].Style)
	assert.Equal(t, docx.RoleHeading, paras[0].Role)
	assert.Equal(t, 1, paras[0].Level)
	assert.Equal(t, "Title", paras[0].Text())
	assert.Equal(t, 2, paras[1].Level)
	assert.Equal(t, 3, paras[2].Level)
	assert.Equal(t, "#### Not a heading", paras[3].Text())
	assert.Equal(t, docx.RoleBody, paras[3].Role)
	assert.Equal(t, "List Bullet", paras[4].Style)
	assert.Equal(t, "item", paras[4].Text())
	assert.Equal(t, "other", paras[5].Text())
	assert.Equal(t, "plain text", paras[6].Text())
	assert.Equal(t, "1. numbered", paras[7].Text())
}

func TestImport_UploadedImage(t *testing.T) {
	img := docxtest.PNG(t, 10, 5)

	doc := NewImporter(nil, WithImageWidth(3)).Import(context.Background(),
		"![logo](logo.png)", map[string][]byte{"logo.png": img})

	paras := doc.Paragraphs()
	require.Len(t, paras, 1)
	require.Len(t, paras[0].ImageRefs, 1)

	got, err := doc.Image(paras[0].ImageRefs[0])
	require.NoError(t, err)
	assert.Equal(t, img, got.Data)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, 3.0, got.Width)
}

// TestImport_UnresolvableImage 无法加载的图片变为占位段落
func TestImport_UnresolvableImage(t *testing.T) {
	tests := []struct {
		name   string
		md     string
		images map[string][]byte
	}{
		{"missing", "![x](nowhere.png)", nil},
		{"not an image", "![x](notes.txt)", map[string][]byte{"notes.txt": []byte("hello")}},
		{"bad data uri", "![x](data:image/png;base64,!!!)", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewImporter(DefaultSources(nil, 0)).Import(context.Background(), tt.md, tt.images)

			paras := doc.Paragraphs()
			require.Len(t, paras, 1)
			ref := ParseLine(tt.md).Src
			assert.Equal(t, "[Could not load image: "+ref+"]", paras[0].Text())
			assert.Empty(t, paras[0].ImageRefs)
		})
	}
}

func TestImport_HTTPImage(t *testing.T) {
	img := docxtest.PNG(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pic.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	im := NewImporter(DefaultSources(srv.Client(), 0), WithFetchTimeout(5*time.Second))
	doc := im.Import(context.Background(),
		"![ok]("+srv.URL+"/pic.png)\n![missing]("+srv.URL+"/gone.png)", nil)

	paras := doc.Paragraphs()
	require.Len(t, paras, 2)
	assert.Len(t, paras[0].ImageRefs, 1)
	assert.Equal(t, "[Could not load image: "+srv.URL+"/gone.png]", paras[1].Text())
}

func TestHTTPSource_MaxSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	src := &HTTPSource{Client: srv.Client(), MaxSize: 10}
	_, err := src.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestImport_ObjectStorageImage(t *testing.T) {
	img := docxtest.PNG(t, 3, 3)
	sources := DefaultSources(nil, 0)
	sources["s3"] = &ObjectSource{Store: &fakeStore{objects: map[string][]byte{"assets/img/a.png": img}}}

	doc := NewImporter(sources).Import(context.Background(),
		"![a](s3://assets/img/a.png)\n![b](s3://assets/missing.png)\n![c](ftp://host/x.png)", nil)

	paras := doc.Paragraphs()
	require.Len(t, paras, 3)
	assert.Len(t, paras[0].ImageRefs, 1)
	assert.Equal(t, "[Could not load image: s3://assets/missing.png]", paras[1].Text())
	assert.Equal(t, "[Could not load image: ftp://host/x.png]", paras[2].Text())
}

func TestDataURISource(t *testing.T) {
	data, err := DataURISource{}.Fetch(context.Background(), "data:text/plain,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = DataURISource{}.Fetch(context.Background(), "data:image/png;base64")
	assert.Error(t, err)
}

// TestRoundTrip 导出再导入保持段落文本和标题级别
func TestRoundTrip(t *testing.T) {
	img := docxtest.PNG(t, 6, 3)
	src := readDoc(t, docxtest.Archive{
		Body: docxtest.P("Heading1", docxtest.R("Report")) +
			docxtest.P("", docxtest.R("Opening line")) +
			docxtest.P("Heading3", docxtest.R("Detail")) +
			docxtest.P("ListBullet", docxtest.R("point")) +
			docxtest.P("", docxtest.Picture("rId1")),
		Media: []docxtest.Media{{Name: "image1.png", Data: img, RelID: "rId1"}},
	})

	md := Export(src)
	doc := NewImporter(DefaultSources(nil, 0)).Import(context.Background(), md, nil)

	type para struct {
		text  string
		role  docx.Role
		level int
		refs  int
	}
	var got []para
	for _, p := range doc.Paragraphs() {
		got = append(got, para{p.Text(), p.Role, p.Level, len(p.ImageRefs)})
	}
	assert.Equal(t, []para{
		{"Report", docx.RoleHeading, 1, 0},
		{"Opening line", docx.RoleBody, 0, 0},
		{"Detail", docx.RoleHeading, 3, 0},
		{"point", docx.RoleBullet, 0, 0},
		{"", docx.RoleBody, 0, 1},
	}, got)

	pic, err := doc.Image(doc.Paragraphs()[4].ImageRefs[0])
	require.NoError(t, err)
	assert.Equal(t, img, pic.Data)

	assert.Equal(t, md, Export(doc))

	// 保存后重新读取，结果不变
	var buf bytes.Buffer
	require.NoError(t, doc.Save(&buf))
	saved, err := docx.Read(buf.Bytes())
	require.NoError(t, err)

	got = nil
	for _, p := range saved.Paragraphs() {
		got = append(got, para{p.Text(), p.Role, p.Level, len(p.ImageRefs)})
	}
	assert.Equal(t, []para{
		{"Report", docx.RoleHeading, 1, 0},
		{"Opening line", docx.RoleBody, 0, 0},
		{"Detail", docx.RoleHeading, 3, 0},
		{"point", docx.RoleBullet, 0, 0},
		{"", docx.RoleBody, 0, 1},
	}, got)
	assert.Equal(t, md, Export(saved))
}

func TestPreview(t *testing.T) {
	html, err := Preview("# Title\n\n| a | b |\n| --- | --- |\n| c | d |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<table>")
}
