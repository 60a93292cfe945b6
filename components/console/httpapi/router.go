package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Sessions    sessions.Store
	SessionName string
	Middleware  []func(http.Handler) http.Handler
}

// NewRouter mounts the console under h.BasePath. Everything except the
// login form requires a signed-in session.
func NewRouter(h *Handlers, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}
	if opts.Sessions != nil {
		r.Use(LoadSession(opts.Sessions, opts.SessionName))
	}

	base := strings.TrimRight(h.BasePath, "/")
	routes := func(r chi.Router) {
		r.Get("/login", h.HandleLoginPage)
		r.Post("/login", h.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/", h.HandleDashboard)
			r.Post("/logout", h.HandleLogout)
			r.Post("/settings", h.HandleSaveSettings)
			r.Post("/refresh", h.HandleRefresh)
			r.Post("/visitors/reset", h.HandleResetVisitors)
			r.Post("/{collection}/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleRecordAction(w, r, chi.URLParam(r, "collection"), chi.URLParam(r, "id"), chi.URLParam(r, "action"))
			})

			r.Get("/export.json", func(w http.ResponseWriter, r *http.Request) {
				h.HandleExport(w, r, "")
			})
			r.Get("/export/{file}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleExport(w, r, strings.TrimSuffix(chi.URLParam(r, "file"), ".csv"))
			})

			if h.Events != nil {
				r.Get("/events", h.Events.ServeSSE)
				r.Get("/ws", h.Events.ServeWebSocket)
			}

			r.Route("/api", func(r chi.Router) {
				r.Get("/stats", h.HandleStats)
				r.Get("/settings", h.HandleSettingsForm)
				r.Post("/settings", h.HandleSaveSettings)
				r.Post("/refresh", h.HandleRefresh)
				r.Get("/views/{collection}", func(w http.ResponseWriter, r *http.Request) {
					h.HandleTable(w, r, chi.URLParam(r, "collection"))
				})
				r.Post("/records/{collection}/{id}", func(w http.ResponseWriter, r *http.Request) {
					h.HandleUpdateRecord(w, r, chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
				})
				r.Delete("/records/{collection}/{id}", func(w http.ResponseWriter, r *http.Request) {
					h.HandleDeleteRecord(w, r, chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
				})
			})
		})
	}
	if base == "" {
		routes(r)
	} else {
		r.Route(base, routes)
	}
	return r
}
