package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pdf-rocket/internal/http-server/handler/conversion"
	"pdf-rocket/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	ConversionHandler *conversion.ConversionHandler
}

// SetupRouter serves the API under /api and the upload page from webDir.
func SetupRouter(h *Handler, webDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RecoveryMiddleware)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/static/") {
				middleware.LoggingMiddleware(next).ServeHTTP(w, r)
			} else {
				next.ServeHTTP(w, r)
			}
		})
	})

	if webDir == "" {
		webDir, _ = os.Getwd()
	}

	staticDir := http.Dir(filepath.Join(webDir, "static"))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(staticDir)))

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversions", h.ConversionHandler.ConvertFiles)
		r.Get("/qualities", h.ConversionHandler.ListQualities)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.ConversionHandler.ListHistory)
			r.Get("/archive", h.ConversionHandler.DownloadArchive)
			r.Get("/{index}/download", h.ConversionHandler.DownloadHistoryEntry)
		})

		r.Post("/email", h.ConversionHandler.SendEmail)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		serveHTML(w, r, webDir)
	})

	return r
}

func serveHTML(w http.ResponseWriter, r *http.Request, webDir string) {
	indexPath := filepath.Join(webDir, "templates", "index.html")

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		http.Error(w, "HTML template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, indexPath)
}
