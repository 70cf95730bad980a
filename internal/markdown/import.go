package markdown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aihub/doctools/internal/docx"
	"github.com/aihub/doctools/internal/logger"
	"go.uber.org/zap"
)

// DefaultImageWidth 导入图片的默认宽度（英寸）
const DefaultImageWidth = 6.0

// Importer 将Markdown转换为新文档
type Importer struct {
	source  ImageSource
	width   float64
	timeout time.Duration
}

// Option Importer配置项
type Option func(*Importer)

// WithImageWidth 设置图片渲染宽度（英寸）
func WithImageWidth(inches float64) Option {
	return func(im *Importer) {
		if inches > 0 {
			im.width = inches
		}
	}
}

// WithFetchTimeout 单张图片获取超时，0表示不限制
func WithFetchTimeout(d time.Duration) Option {
	return func(im *Importer) { im.timeout = d }
}

// NewImporter 创建Importer；source为nil时只能嵌入上传的图片
func NewImporter(source ImageSource, opts ...Option) *Importer {
	im := &Importer{source: source, width: DefaultImageWidth}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import 由Markdown构建文档
//
// 图片引用先在images中查找，找不到再获取；无法加载的图片写为"[Could not load image: ref]"段落。
func (im *Importer) Import(ctx context.Context, md string, images map[string][]byte) *docx.Document {
	doc := docx.New()
	for _, raw := range strings.Split(md, "\n") {
		line := ParseLine(strings.TrimSpace(raw))
		switch line.Kind {
		case LineBlank:
			continue
		case LineHeading:
			doc.AddHeading(line.Text, line.Level)
		case LineBullet:
			doc.AddParagraph(line.Text, "List Bullet")
		case LineImage:
			data, ct, err := im.loadImage(ctx, line.Src, images)
			if err != nil {
				logger.Warn("Could not load image",
					zap.String("ref", truncate(line.Src, 120)),
					zap.Error(err),
				)
				doc.AddParagraph(fmt.Sprintf("[Could not load image: %s]", line.Src), "")
				continue
			}
			doc.AddPicture(data, ct, im.width)
		default:
			doc.AddParagraph(line.Text, "")
		}
	}
	return doc
}

func (im *Importer) loadImage(ctx context.Context, ref string, images map[string][]byte) ([]byte, string, error) {
	data, ok := images[ref]
	if !ok {
		if im.source == nil {
			return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedReference, ref)
		}
		fetchCtx := ctx
		if im.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, im.timeout)
			defer cancel()
		}
		var err error
		if data, err = im.source.Fetch(fetchCtx, ref); err != nil {
			return nil, "", err
		}
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty image")
	}
	ct, err := checkImage(data)
	if err != nil {
		return nil, "", err
	}
	return data, ct, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
