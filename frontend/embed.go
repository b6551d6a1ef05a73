package frontend

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates static
var FS embed.FS

// UploadPage is the data rendered into the upload page
type UploadPage struct {
	Title      string
	Action     string
	CSRFToken  string
	MaxSizeMiB int64
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.ParseFS(FS, "templates/*.html")
}

// GetStaticFS returns the embedded static assets for HTTP serving
func GetStaticFS() (http.FileSystem, error) {
	sub, err := fs.Sub(FS, "static")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}
