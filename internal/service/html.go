package service

import (
	"html"
	"strings"
)

// BodyToHTML derives the HTML body from plain text: blank-line-separated
// paragraphs become <p> blocks, single newlines become <br>. Content is
// escaped.
func BodyToHTML(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	paragraphs := strings.Split(normalized, "\n\n")

	var b strings.Builder
	for _, p := range paragraphs {
		p = strings.Trim(p, "\n")
		if p == "" {
			continue
		}
		lines := strings.Split(p, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(line)
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
