// Package web embeds the gateway's browser chat page. The page talks to
// the gateway's /api endpoints and follows session state over /ws/state.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const indexPage = "index.html"

// SPAHandler serves the chat page and its assets. Any path that is not an
// embedded file gets the page itself, so client-side links resolve. The
// page is always revalidated since it changes with the gateway binary;
// other assets use the file server's default caching.
func SPAHandler() http.Handler {
	page, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	files := http.FileServer(http.FS(page))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || name == indexPage || !exists(page, name) {
			w.Header().Set("Cache-Control", "no-cache")
			r.URL.Path = "/"
		}
		files.ServeHTTP(w, r)
	})
}

func exists(fsys fs.FS, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	if err := f.Close(); err != nil {
		slog.Debug("web: failed to close embedded file", "path", name, "error", err)
	}
	return true
}
