package markdown

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrUnsupportedReference 没有图片源能处理该引用
var ErrUnsupportedReference = errors.New("markdown: unsupported image reference")

// ImageSource 按图片引用加载数据
type ImageSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Sources 按引用的URL scheme分发
type Sources map[string]ImageSource

// Fetch 实现ImageSource
func (s Sources) Fetch(ctx context.Context, ref string) ([]byte, error) {
	scheme, _, ok := strings.Cut(ref, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReference, ref)
	}
	src, ok := s[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReference, ref)
	}
	return src.Fetch(ctx, ref)
}

// HTTPSource 下载http与https引用
type HTTPSource struct {
	Client *http.Client
	// MaxSize 响应体大小上限，0表示不限制
	MaxSize int64
}

// Fetch 实现ImageSource
func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetching %s: %s", ref, resp.Status)
	}

	body := io.Reader(resp.Body)
	if s.MaxSize > 0 {
		body = io.LimitReader(resp.Body, s.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	if s.MaxSize > 0 && int64(len(data)) > s.MaxSize {
		return nil, fmt.Errorf("fetching %s: image larger than %d bytes", ref, s.MaxSize)
	}
	return data, nil
}

// DataURISource 解码data:引用
type DataURISource struct{}

// Fetch 实现ImageSource
func (DataURISource) Fetch(_ context.Context, ref string) ([]byte, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReference, ref)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URI: %w", err)
	}
	return []byte(s), nil
}

// ObjectGetter 从存储桶读取对象
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// ObjectSource 解析s3://bucket/key引用
type ObjectSource struct {
	Store ObjectGetter
}

// Fetch 实现ImageSource
func (s *ObjectSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("object reference %q needs a bucket and a key", ref)
	}
	return s.Store.GetObject(ctx, u.Host, key)
}

// DefaultSources 处理http、https与data引用
func DefaultSources(client *http.Client, maxSize int64) Sources {
	web := &HTTPSource{Client: client, MaxSize: maxSize}
	return Sources{
		"http":  web,
		"https": web,
		"data":  DataURISource{},
	}
}

// checkImage 确认数据能解码为支持的位图并返回其类型
func checkImage(data []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unrecognized image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", errors.New("image has no pixels")
	}
	return mimetype.Detect(data).String(), nil
}
