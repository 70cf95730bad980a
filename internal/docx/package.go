package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	relTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeCoreProperties = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relTypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	defaultDocumentPath = "word/document.xml"
	defaultCorePath     = "docProps/core.xml"
	contentTypesPath    = "[Content_Types].xml"
)

type relationshipsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type contentTypesXML struct {
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// pkg 读取文档时的源归档
type pkg struct {
	files        []*zip.File
	documentPath string
	document     []byte
	docRels      map[string]relationshipXML
	defaults     map[string]string
	overrides    map[string]string
}

func openPackage(data []byte) (*pkg, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	p := &pkg{
		files:     zr.File,
		docRels:   make(map[string]relationshipXML),
		defaults:  make(map[string]string),
		overrides: make(map[string]string),
	}

	if err := p.loadContentTypes(); err != nil {
		return nil, err
	}

	p.documentPath = defaultDocumentPath
	if rels, err := p.relationships(""); err == nil {
		for _, rel := range rels {
			if rel.Type == relTypeOfficeDocument {
				p.documentPath = resolveTarget("", rel.Target)
				break
			}
		}
	}

	p.document, err = p.read(p.documentPath)
	if err != nil {
		return nil, err
	}

	rels, err := p.relationships(p.documentPath)
	if err != nil && !errors.Is(err, errPartNotFound) {
		return nil, fmt.Errorf("reading document relationships: %w", err)
	}
	for _, rel := range rels {
		p.docRels[rel.ID] = rel
	}
	return p, nil
}

var errPartNotFound = errors.New("docx: part not found")

func (p *pkg) file(name string) *zip.File {
	for _, f := range p.files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (p *pkg) read(name string) ([]byte, error) {
	f := p.file(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", errPartNotFound, name)
	}
	return readZipFile(f)
}

func (p *pkg) loadContentTypes() error {
	data, err := p.read(contentTypesPath)
	if err != nil {
		return err
	}
	var ct contentTypesXML
	if err := xml.Unmarshal(data, &ct); err != nil {
		return fmt.Errorf("parsing content types: %w", err)
	}
	for _, d := range ct.Defaults {
		p.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range ct.Overrides {
		p.overrides[strings.TrimPrefix(o.PartName, "/")] = o.ContentType
	}
	return nil
}

// relationships 读取source对应的.rels部件，""表示包本身
func (p *pkg) relationships(source string) ([]relationshipXML, error) {
	dir, base := path.Split(source)
	name := path.Join(dir, "_rels", base+".rels")
	data, err := p.read(name)
	if err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return rels.Relationships, nil
}

// related 返回第一个relType关系指向的部件路径，没有时返回fallback
func (p *pkg) related(relType, fallback string) string {
	for _, rel := range p.docRels {
		if rel.Type == relType && rel.TargetMode != "External" {
			return resolveTarget(p.documentPath, rel.Target)
		}
	}
	return fallback
}

func (p *pkg) contentType(name string) string {
	if ct, ok := p.overrides[name]; ok {
		return ct
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	return p.defaults[ext]
}

func (p *pkg) image(ref string) (*Image, error) {
	rel, ok := p.docRels[ref]
	if !ok || rel.Type != relTypeImage || rel.TargetMode == "External" {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	name := resolveTarget(p.documentPath, rel.Target)
	data, err := p.read(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	return &Image{
		Name:        path.Base(name),
		ContentType: p.contentType(name),
		Data:        data,
	}, nil
}

// resolveTarget 将关系目标解析为相对所属部件的归档路径
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}
