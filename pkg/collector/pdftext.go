package collector

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText returns the plain text of a PDF, pages joined with
// paragraph breaks. Malformed documents yield "" rather than an error; the
// pdf library panics on some of them, so the recover is load-bearing.
func extractPDFText(data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n\n"))
}
