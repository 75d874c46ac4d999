// Package templates holds the HTML served by the page routes.
package templates

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed *.html
var files embed.FS

// Index is the name of the upload page template.
const Index = "index.html"

var funcs = template.FuncMap{
	// previews are data URIs, which html/template would otherwise filter out
	"safeURL": func(src string) template.URL {
		if strings.HasPrefix(src, "data:image/") {
			return template.URL(src)
		}
		return ""
	},
}

// Parse loads every embedded page template.
func Parse() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "*.html")
}
