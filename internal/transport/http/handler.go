package http

import (
	"log/slog"
	"net/http"
	"time"

	"formship-quiz-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Services bundles the use cases the HTTP surface exposes.
type Services struct {
	Resolver     *app.Resolver
	Quizzes      *app.QuizService
	Catalog      *app.CatalogService
	Invitations  *app.InvitationService
	Participants *app.ParticipantService
	Accounts     *app.AccountService
}

// Options tunes the router.
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Handler struct {
	svc    Services
	logger *slog.Logger
}

func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Router builds the full HTTP surface.
func (h *Handler) Router(opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Quiz-Password"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.Route("/participants", func(r chi.Router) {
			r.Post("/register", h.registerParticipant)
			r.Post("/login", h.loginParticipant)
			r.Post("/logout", h.logoutParticipant)
			r.Group(func(r chi.Router) {
				r.Use(withRequester(h.svc.Resolver, h.logger))
				r.Get("/me", h.me)
				r.Delete("/me", h.deleteMe)
				r.Get("/me/participations", h.myParticipations)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/register", h.registerAccount)
			r.Post("/login", h.loginAccount)
			r.With(withRequester(h.svc.Resolver, h.logger)).Post("/{accountID}/members", h.addMember)
		})

		r.Route("/quizzes", func(r chi.Router) {
			r.Use(withRequester(h.svc.Resolver, h.logger))
			r.Post("/", h.createQuiz)
			r.Route("/{quizID}", func(r chi.Router) {
				r.Get("/", h.quizDetail)
				r.Delete("/", h.deleteQuiz)
				r.Get("/access", h.checkAccess)
				r.Post("/verify-password", h.verifyPassword)
				r.Post("/participants", h.join)
				r.Post("/submissions", h.submit)
				r.Post("/publish", h.setPublished(true))
				r.Post("/unpublish", h.setPublished(false))
				r.Get("/participations", h.quizParticipations)
				r.Get("/invitations", h.listInvitations)
				r.Post("/invitations", h.invite)
				r.Delete("/invitations/{email}", h.deactivateInvitation)
			})
		})
	})

	r.With(withRequester(h.svc.Resolver, h.logger)).Get("/ws/quizzes/{quizID}/results", h.serveResults)
	return r
}
