package docx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// coreXML 按本地名匹配docProps/core.xml，不校验命名空间前缀
type coreXML struct {
	Creator        string `xml:"creator"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Title          string `xml:"title"`
	Revision       string `xml:"revision"`
	Created        string `xml:"created"`
}

// metadata 读取核心属性部件，缺失时返回空元数据
func (p *pkg) metadata() (Metadata, error) {
	name := defaultCorePath
	if rels, err := p.relationships(""); err == nil {
		for _, rel := range rels {
			if rel.Type == relTypeCoreProperties {
				name = resolveTarget("", rel.Target)
				break
			}
		}
	}

	data, err := p.read(name)
	if errors.Is(err, errPartNotFound) {
		return Metadata{}, nil
	}
	if err != nil {
		return Metadata{}, err
	}
	return parseCore(data)
}

func parseCore(data []byte) (Metadata, error) {
	var core coreXML
	if err := xml.Unmarshal(data, &core); err != nil {
		return Metadata{}, fmt.Errorf("parsing core properties: %w", err)
	}
	meta := Metadata{
		Author:         core.Creator,
		LastModifiedBy: core.LastModifiedBy,
		Title:          core.Title,
		Created:        parseCreated(core.Created),
	}
	if rev, err := strconv.Atoi(strings.TrimSpace(core.Revision)); err == nil && rev > 0 {
		meta.Revision = rev
	}
	return meta, nil
}

func parseCreated(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ExtractMetadata 提取文档核心属性
func ExtractMetadata(doc *Document) Metadata {
	return doc.Metadata
}
