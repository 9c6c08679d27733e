package http

import (
	"net/http"

	"munin/internal/archive"
	"munin/internal/auth"
	"munin/internal/config"
	"munin/internal/http/handler"
	mw "munin/internal/http/middleware"
	"munin/internal/journal"
	"munin/internal/merge"
	"munin/internal/retention"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the front-end-facing API. The messaging front end is the
// only expected client; it formats the structured results for users.
func NewRouter(cfg config.Config, store *journal.Store, acc *journal.Accumulator,
	sched *merge.Scheduler, cleaner *retention.Cleaner, arch archive.Client,
	jwtSvc *auth.JWT) http.Handler {

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	captureH := &handler.CaptureHandler{Acc: acc}
	mergeH := &handler.MergeHandler{Sched: sched}
	cleanupH := &handler.CleanupHandler{Cleaner: cleaner}
	settingsH := &handler.SettingsHandler{Store: store}
	imagesH := &handler.ImagesHandler{Archive: arch, Store: store, Dir: cfg.ImageDir}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc, cfg.Allowed))

		r.Post("/capture", captureH.Capture)
		r.Post("/images", imagesH.Upload)
		r.Post("/merge", mergeH.MergeNow)

		r.Post("/cleanup", cleanupH.Cleanup)
		r.Get("/cleanup/stats", cleanupH.Stats)

		r.Get("/settings/{key}", settingsH.Get)
		r.Put("/settings/{key}", settingsH.Put)
	})

	return r
}
