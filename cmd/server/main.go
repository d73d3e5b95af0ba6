package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"mercamaps/internal/config"
	"mercamaps/internal/db"
	"mercamaps/internal/handlers"
	"mercamaps/internal/logging"
	mw "mercamaps/internal/middleware"
	"mercamaps/internal/sessions"
	"mercamaps/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("boot: config")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	database, err := db.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("boot: db open")
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logging.Fatal().Err(err).Msg("boot: db migrate")
	}

	users := store.NewUserStore(database)
	locations := store.NewLocationStore(database)
	sm := sessions.New(cfg.Session.Secret, cfg.Session.Secure, cfg.Session.MaxAge)

	r := newRouter(users, locations, sm)

	addr := cfg.Addr()
	logging.Info().Str("addr", addr).Msg("listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}

func newRouter(users *store.UserStore, locations *store.LocationStore, sm *sessions.Manager) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(chimw.RedirectSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	// Frontend assets served as-is next to the API.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	r.Handle("/api/auth", handlers.NewAuth(users, sm))
	r.Handle("/api/locations", handlers.NewLocations(locations))
	r.Handle("/api/users", mw.AdminOnly(sm, users, handlers.NewUsers(users)))

	return r
}
