package web

import (
	"embed"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
)

//go:embed all:static
var staticFS embed.FS

// StaticFS returns the embedded page rooted at static/.
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

// StaticHandler serves the embedded page. Unknown paths get index.html.
func StaticHandler() (http.Handler, error) {
	sub, err := StaticFS()
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "/" || p == "" {
			p = "index.html"
		} else {
			p = p[1:]
		}

		if serveFile(w, sub, p) {
			return
		}
		serveFile(w, sub, "index.html")
	}), nil
}

func serveFile(w http.ResponseWriter, fsys fs.FS, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		return false
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, f)
	return true
}
