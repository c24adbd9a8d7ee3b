package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the API routes on router.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/datasets", h.ListDatasets)              // Every dataset with file status
		r.Post("/datasets/reload", h.Reload)            // Drop the cache and re-read
		r.Get("/datasets/{name}", h.GetDataset)         // Rows, ?limit=N
		r.Get("/datasets/{name}/schema", h.GetSchema)   // Creation schema
		r.Post("/datasets/{name}/records", h.AddRecord) // Append one record
		r.Get("/history", h.History)                    // Journal, ?dataset=&limit=
		r.Get("/events", h.Events)                      // Change stream (SSE)
	})
}
