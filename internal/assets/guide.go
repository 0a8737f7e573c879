// ABOUTME: Embedded usage guide served as an MCP resource and as an HTML page
// ABOUTME: The markdown source is rendered with goldmark for browsers

// Package assets embeds the cookie server usage guide.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/yuin/goldmark"
)

//go:embed docs/guide.md
var docsFS embed.FS

// GuideURI is the resource URI under which the guide is published.
const GuideURI = "cookie://usage-guide"

// Guide returns the usage guide as plain text.
func Guide() string {
	data, err := docsFS.ReadFile("docs/guide.md")
	if err != nil {
		panic("assets: guide missing from embedded docs: " + err.Error())
	}
	return string(data)
}

var (
	htmlOnce sync.Once
	htmlPage []byte
	htmlErr  error
)

var pageTemplate = template.Must(template.New("guide").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Cookie Server Usage Guide</title>
</head>
<body>
{{.}}
</body>
</html>
`))

// GuideHTML renders the guide to a standalone HTML page. The result is
// computed once.
func GuideHTML() ([]byte, error) {
	htmlOnce.Do(func() {
		var body bytes.Buffer
		if err := goldmark.Convert([]byte(Guide()), &body); err != nil {
			htmlErr = fmt.Errorf("rendering guide: %w", err)
			return
		}

		var page bytes.Buffer
		if err := pageTemplate.Execute(&page, template.HTML(body.String())); err != nil {
			htmlErr = fmt.Errorf("rendering guide page: %w", err)
			return
		}
		htmlPage = page.Bytes()
	})
	return htmlPage, htmlErr
}

// GuideHandler serves the rendered guide.
func GuideHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := GuideHTML()
		if err != nil {
			http.Error(w, "guide unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(page)
	})
}
