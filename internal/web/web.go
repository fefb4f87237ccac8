// Package web holds the HTML templates and static assets compiled into the
// binary.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names accepted by Templates.ExecuteTemplate.
const (
	PageIndex    = "index.html"
	PageLogin    = "login.html"
	PageRegister = "register.html"
)

// Templates parses every embedded page template.
func Templates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

// Static returns the embedded assets rooted so that "script.js" resolves
// to static/script.js.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static is a compile-time constant directory
		panic(err)
	}
	return sub
}
