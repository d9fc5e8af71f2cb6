package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/rudyardtech/billing/internal/auth"
	clientHandler "github.com/rudyardtech/billing/internal/http/client"
	contactHandler "github.com/rudyardtech/billing/internal/http/contact"
	invoiceHandler "github.com/rudyardtech/billing/internal/http/invoice"
	userHandler "github.com/rudyardtech/billing/internal/http/user"
)

type RateLimit struct {
	Requests int
	Window   time.Duration
}

func New(
	verifier auth.Verifier,
	limit RateLimit,
	invoices *invoiceHandler.Handler,
	clients *clientHandler.Handler,
	users *userHandler.Handler,
	contacts *contactHandler.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// Advisory backpressure, not a correctness mechanism.
	router.Use(httprate.LimitByRealIP(limit.Requests, limit.Window))

	router.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("API is running"))
		})
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("pong"))
		})

		r.Group(func(r chi.Router) {
			invoices.PublicRoutes(r)
			users.PublicRoutes(r)
			contacts.PublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(verifier))
			r.Use(middleware.AllowContentType("application/json"))

			invoices.AuthRoutes(r)
			clients.AuthRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				invoices.AdminRoutes(r)
				clients.AdminRoutes(r)
				users.AdminRoutes(r)
				contacts.AdminRoutes(r)
			})
		})
	})

	return router
}
