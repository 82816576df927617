package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dapur-pos/api/internal/config"
	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/handler"
	mw "github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/service"
	"github.com/dapur-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and branch scoping as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", cfg.OrderingURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Services shared across handlers.
	newStore := func(tx pgx.Tx) service.OrderStore {
		return queries.WithTx(tx)
	}
	publisher := ws.NewPublisher(hub)
	orderService := service.NewOrderService(pool, queries, newStore, publisher)
	paymentService := service.NewPaymentService(queries, orderService)

	// Customer self-ordering routes (public; the order URL is the capability)
	publicHandler := handler.NewPublicHandler(orderService, queries)
	publicHandler.RegisterRoutes(r)

	// WebSocket routes. Branch feeds authenticate via ?token= inside the
	// upgrade handler; per-order feeds are capability URLs like the
	// public status page.
	r.Get("/ws/branches/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeBranch(hub, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeOrder(hub, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			orderHandler := handler.NewOrderHandler(orderService, queries)
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)

				paymentHandler := handler.NewPaymentHandler(paymentService)
				r.Route("/{id}/payments", paymentHandler.RegisterRoutes)
			})

			tableHandler := handler.NewTableHandler(queries, cfg.OrderingURL)
			r.Route("/tables", tableHandler.RegisterRoutes)
		})
	})

	return r
}
