package web

import (
	"embed"
	"net/http"
)

//go:embed templates/*.html
var templates embed.FS

// Register mounts the dashboard pages. They are static and read everything
// from the JSON API.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", page("templates/index.html"))
	mux.HandleFunc("GET /runs/{id}", page("templates/run.html"))
}

func page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := templates.ReadFile(name)
		if err != nil {
			http.Error(w, "Template not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}
}
