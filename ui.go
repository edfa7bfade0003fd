//go:build !tinygo

package sonar

import (
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
)

//go:embed web
var webFS embed.FS

type uiData struct {
	Id    string
	Model string
	Name  string
	State map[string]any
}

// ServeUI serves the thing's web page at /ui and static files under /ui/.
// Files in fsys shadow the built-in ones; a thing supplies its own
// index.tmpl defining a "body" template.
func (s *Server) ServeUI(fsys fs.FS) error {
	base, err := fs.Sub(webFS, "web")
	if err != nil {
		return err
	}
	cfs := NewCompositeFS(base)
	if fsys != nil {
		cfs.AddFS(fsys)
	}
	tmpl, err := cfs.ParseFS("*.tmpl")
	if err != nil {
		return err
	}

	s.HandleFunc("/ui", func(w http.ResponseWriter, r *http.Request) {
		data := uiData{
			Id:    s.thinger.Id(),
			Model: s.thinger.Model(),
			Name:  s.thinger.Name(),
		}
		if state, ok := s.state(r); ok {
			if err := json.Unmarshal(state, &data.State); err != nil {
				slog.Warn("decoding ui state", "err", err)
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.ExecuteTemplate(w, "index.tmpl", &data); err != nil {
			slog.Warn("rendering ui", "err", err)
		}
	})
	s.mux.Handle("/ui/", s.basicAuth(http.StripPrefix("/ui/", http.FileServer(http.FS(cfs))).ServeHTTP))
	return nil
}
