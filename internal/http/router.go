package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jpvalente/tally/internal/http/auth"
	"github.com/jpvalente/tally/internal/http/currency"
	"github.com/jpvalente/tally/internal/http/importfile"
	"github.com/jpvalente/tally/internal/http/rules"
	"github.com/jpvalente/tally/internal/http/transaction"
)

// Options carries the transport-level configuration: which browser origins to
// trust and, when set, the secret enabling bearer-token auth.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
}

func New(
	transactionsV1 *transaction.Handler,
	importV1 *importfile.Handler,
	currenciesV1 *currency.Handler,
	rulesV1 *rules.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.JWTSecret))

		r.Route("/import", importV1.Routes)

		r.Route("/transactions", func(r chi.Router) {
			transactionsV1.Routes(r)
		})

		r.Route("/statements", transactionsV1.StatementRoutes)
		r.Route("/categories", transactionsV1.CategoryRoutes)

		r.Route("/currencies", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			currenciesV1.Routes(r)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			rulesV1.Routes(r)
		})
	})

	return router
}
