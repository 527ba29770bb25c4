package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-karaoke/internal/config"
	"github.com/npezzotti/go-karaoke/internal/database"
	"github.com/npezzotti/go-karaoke/internal/party"
	"github.com/npezzotti/go-karaoke/internal/server"
)

type KaraokeApp struct {
	log            *log.Logger
	db             database.KaraokeRepository
	svc            *party.Service
	transport      *server.Transport
	hasher         party.PasswordHasher
	srv            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

// NewKaraokeApp wires the HTTP boundary. statsHandler may be nil, in which
// case /debug/vars is not mounted.
func NewKaraokeApp(
	logger *log.Logger,
	db database.KaraokeRepository,
	svc *party.Service,
	transport *server.Transport,
	hasher party.PasswordHasher,
	statsHandler http.HandlerFunc,
	cfg *config.Config,
) *KaraokeApp {
	s := &KaraokeApp{
		log:            logger,
		db:             db,
		svc:            svc,
		transport:      transport,
		hasher:         hasher,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.healthCheck)
	if statsHandler != nil {
		r.Get("/debug/vars", statsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.createAccount)
		r.Post("/login", s.login)
		r.Get("/session", s.authMiddleware(s.session))
		r.Get("/logout", s.authMiddleware(s.logout))
	})

	r.Route("/api/parties", func(r chi.Router) {
		r.Use(s.optionalAuth)

		r.Post("/", s.authMiddleware(s.createParty))
		r.Post("/join", s.joinParty)
		r.Get("/mine", s.authMiddleware(s.listMyParties))

		r.Route("/{partyId}", func(r chi.Router) {
			r.Get("/", s.authMiddleware(s.getParty))
			r.Post("/end", s.authMiddleware(s.endParty))
			r.Get("/members", s.listMembers)
			r.Get("/songs", s.listSongs)
			r.Post("/songs", s.addSong)
			r.Patch("/songs/{songId}/played", s.markPlayed)
			r.Patch("/songs/{songId}/reorder", s.reorderSong)
			r.Delete("/songs/{songId}", s.deleteSong)
			r.Get("/stream", s.streamEvents)
			r.Get("/ws", s.serveWs)
		})
	})

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(r)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *KaraokeApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *KaraokeApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// OnShutdown registers f to run as soon as Shutdown is called.
func (s *KaraokeApp) OnShutdown(f func()) {
	s.srv.RegisterOnShutdown(f)
}

func (s *KaraokeApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
