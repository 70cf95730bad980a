package docx

import (
	"errors"
	"fmt"
)

// Read 解析.docx归档
func Read(data []byte) (*Document, error) {
	p, err := openPackage(data)
	if err != nil {
		return nil, err
	}

	styles := newStyleSheet()
	raw, err := p.read(p.related(relTypeStyles, "word/styles.xml"))
	switch {
	case err == nil:
		if styles, err = parseStyles(raw); err != nil {
			return nil, err
		}
	case !errors.Is(err, errPartNotFound):
		return nil, err
	}

	blocks, err := parseBody(p.document, styles)
	if err != nil {
		return nil, err
	}

	meta, err := p.metadata()
	if err != nil {
		return nil, fmt.Errorf("reading core properties: %w", err)
	}

	return &Document{
		Blocks:   blocks,
		Metadata: meta,
		media:    make(map[string]*Image),
		pkg:      p,
	}, nil
}
