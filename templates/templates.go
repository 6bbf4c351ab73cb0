// Package templates embeds the HTML pages served by the application.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Load parses the embedded page templates. Template names are the file
// basenames.
func Load() *template.Template {
	return template.Must(template.ParseFS(files, "*.html"))
}
