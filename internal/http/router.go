package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	CheckIn    *CheckInHandler
	Events     *EventHandler
	Roster     *RosterHandler
	Directory  *DirectoryHandler
	Admin      func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	admin := func(pattern string, h http.HandlerFunc) {
		var handler http.Handler = h
		if cfg.Admin != nil {
			handler = cfg.Admin(handler)
		}
		mux.Handle(pattern, handler)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.CheckIn != nil {
		mux.HandleFunc("/events/{eventID}/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.CheckIn.Login(w, withPathValues(r))
		})
		mux.HandleFunc("/events/{eventID}/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.CheckIn.Logout(w, withPathValues(r))
		})
		mux.HandleFunc("/events/{eventID}/view", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.CheckIn.View(w, withPathValues(r))
		})
	}

	if cfg.Events != nil {
		admin("/admin/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		admin("/admin/events/{eventID}", func(w http.ResponseWriter, r *http.Request) {
			r = withPathValues(r)
			switch r.Method {
			case http.MethodGet:
				cfg.Events.Get(w, r)
			case http.MethodPut:
				cfg.Events.Update(w, r)
			case http.MethodDelete:
				cfg.Events.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Roster != nil {
		admin("/admin/events/{eventID}/registrations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Roster.List(w, withPathValues(r))
		})
		admin("/admin/events/{eventID}/registrations/export", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Roster.Export(w, withPathValues(r))
		})
		admin("/admin/events/{eventID}/registrations/{phone}", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Roster.Remove(w, withPathValues(r))
		})
		admin("/admin/events/{eventID}/registrations/{phone}/attendance", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Roster.MarkAttendance(w, withPathValues(r))
		})
		admin("/admin/events/{eventID}/registrations/{phone}/feedback", func(w http.ResponseWriter, r *http.Request) {
			r = withPathValues(r)
			switch r.Method {
			case http.MethodGet:
				cfg.Roster.ListFeedback(w, r)
			case http.MethodPost:
				cfg.Roster.AddFeedback(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		admin("/admin/feedback/categories", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Roster.Categories(w, r)
		})
	}

	if cfg.Directory != nil {
		admin("/admin/directory", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Directory.List(w, r)
		})
		admin("/admin/directory/import", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Directory.Import(w, r)
		})
		admin("/admin/directory/{phone}", func(w http.ResponseWriter, r *http.Request) {
			r = withPathValues(r)
			switch r.Method {
			case http.MethodGet:
				cfg.Directory.Get(w, r)
			case http.MethodPut:
				cfg.Directory.Put(w, r)
			case http.MethodDelete:
				cfg.Directory.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// withPathValues copies the wildcard segments matched by the mux into the
// request context.
func withPathValues(r *http.Request) *http.Request {
	ctx := r.Context()
	if id := r.PathValue("eventID"); id != "" {
		ctx = ContextWithEventID(ctx, id)
	}
	if phone := r.PathValue("phone"); phone != "" {
		ctx = ContextWithPhone(ctx, phone)
	}
	return r.WithContext(ctx)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
