package docx

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const defaultStyleName = "Normal"

type stylesXML struct {
	Styles []struct {
		Type    string `xml:"type,attr"`
		ID      string `xml:"styleId,attr"`
		Default string `xml:"default,attr"`
		Name    struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

// styleSheet 将段落样式ID解析为界面名称
type styleSheet struct {
	names        map[string]string
	defaultStyle string
}

func newStyleSheet() *styleSheet {
	return &styleSheet{names: make(map[string]string), defaultStyle: defaultStyleName}
}

func parseStyles(data []byte) (*styleSheet, error) {
	var doc stylesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing styles: %w", err)
	}
	ss := newStyleSheet()
	for _, s := range doc.Styles {
		if s.Type != "" && s.Type != "paragraph" {
			continue
		}
		name := uiName(s.Name.Val)
		if name == "" {
			name = s.ID
		}
		ss.names[s.ID] = name
		if s.Default == "1" || s.Default == "true" {
			ss.defaultStyle = name
		}
	}
	return ss, nil
}

// name 返回id对应的样式名，未知或为空时回退到默认段落样式
func (ss *styleSheet) name(id string) string {
	if n, ok := ss.names[id]; ok {
		return n
	}
	return ss.defaultStyle
}

// uiName 将Word存储的小写内置样式名映射为界面名称（"heading 1" -> "Heading 1"）
func uiName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case lower == "caption", lower == "footer", lower == "header", lower == "title":
		return strings.ToUpper(lower[:1]) + lower[1:]
	case strings.HasPrefix(lower, "heading ") && len(lower) == len("heading 1"):
		return "Heading " + lower[len("heading "):]
	}
	return name
}
