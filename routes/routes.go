package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/riftarena/tournament-engine/handlers"
	"github.com/riftarena/tournament-engine/middleware"
)

// SetupRoutes собирает маршруты движка. Просмотровые эндпоинты публичные,
// все мутирующие операции — только для администраторов с валидным токеном.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	seedingHandler *handlers.SeedingHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра.
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/lifecycle", tournamentHandler.GetLifecycle)
		r.Get("/{tournamentID}/standings", tournamentHandler.GetStandings)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournament)
		r.Get("/{tournamentID}/audit", tournamentHandler.GetAuditLog)

		// Мутирующие операции движка — только организаторы.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticator(jwtSecret))
			r.Use(middleware.RequireAdmin)

			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/transition", tournamentHandler.Transition)
			r.Post("/{tournamentID}/rounds/generate", tournamentHandler.GenerateRound)
			r.Post("/{tournamentID}/rounds/advance", tournamentHandler.AdvanceRound)
			r.Post("/{tournamentID}/rounds/regenerate", tournamentHandler.RegenerateRound)
			r.Post("/{tournamentID}/bracket/reset", tournamentHandler.ResetBracket)

			r.Route("/{tournamentID}/seeding", func(r chi.Router) {
				r.Post("/reseed", seedingHandler.Reseed)
				r.Post("/swap", seedingHandler.Swap)
				r.Post("/set-seed", seedingHandler.SetSeed)
				r.Post("/move-up", seedingHandler.MoveUp)
				r.Post("/move-down", seedingHandler.MoveDown)
				r.Post("/move-to-position", seedingHandler.MoveToPosition)
				r.Post("/randomize", seedingHandler.Randomize)
			})
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticator(jwtSecret))
			r.Use(middleware.RequireAdmin)
			r.Post("/{matchID}/result", matchHandler.ReportResult)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
