package docx

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strings"
)

const mediaPrefix = "word/media/"

// MediaFile 内嵌媒体文件，数据为base64
type MediaFile struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Mime     string `json:"mime"`
}

// ExtractImages 按归档顺序列出word/media/下的全部文件，包括未被段落引用的图片
func ExtractImages(data []byte) ([]MediaFile, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	images := make([]MediaFile, 0)
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, mediaPrefix) || len(f.Name) <= len(mediaPrefix) {
			continue
		}
		raw, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		filename := path.Base(f.Name)
		images = append(images, MediaFile{
			Filename: filename,
			Data:     base64.StdEncoding.EncodeToString(raw),
			Mime:     MimeFromName(filename),
		})
	}
	return images, nil
}

// MimeFromName 按最后一个点之后的部分猜测图片类型；没有点时使用整个文件名
func MimeFromName(name string) string {
	ext := strings.ToLower(name[strings.LastIndex(name, ".")+1:])
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return data, nil
}
