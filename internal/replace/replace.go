// Package replace 保留run格式的文档字面查找替换
package replace

import (
	"strings"

	"github.com/aihub/doctools/internal/docx"
)

// Text 在每个段落（包括表格单元格内的段落）的每个run中替换search
//
// 只修改自身文本包含search的run，跨run的匹配保持不变。返回被修改的run数量。
func Text(doc *docx.Document, search, replacement string) int {
	if search == "" {
		return 0
	}
	changed := 0
	for _, para := range docx.AllParagraphs(doc) {
		if !strings.Contains(para.Text(), search) {
			continue
		}
		for _, run := range para.Runs {
			if strings.Contains(run.Text(), search) {
				run.SetText(strings.ReplaceAll(run.Text(), search, replacement))
				changed++
			}
		}
	}
	return changed
}
