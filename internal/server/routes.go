package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, tokens *TokenService, broker *Broker, db *sql.DB, rdb *redis.Client, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("QuickVotes API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Post("/api/auth/signup", handleSignup(store, tokens))
	r.Post("/api/auth/login", handleLogin(store, tokens))

	// Public lookups — no session required.
	r.Get("/api/join/{code}", handleJoinLookup(store))
	r.Get("/api/activities/public", handleListPublic(store))

	// SSE authenticates via token query parameter, not the middleware.
	r.Get("/api/activities/{activityID}/events", handleEvents(broker, tokens, store))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(tokens))

		r.Get("/api/auth/me", handleMe(store))
		r.Get("/api/profile", handleMe(store))
		r.Put("/api/profile", handleUpdateProfile(store))
		r.Get("/api/participations", handleListParticipations(store))

		r.Route("/api/activities", func(r chi.Router) {
			r.Get("/", handleListActivities(store))
			r.Post("/", handleCreateActivity(store))

			r.Route("/{activityID}", func(r chi.Router) {
				r.Get("/", handleGetActivity(store))
				r.Put("/", handleUpdateActivity(store))
				r.Delete("/", handleDeleteActivity(store))
				r.Put("/visibility", handleSetVisibility(store))
				r.Post("/start", handleStart(store, broker))
				r.Post("/finish", handleFinish(store, broker))

				r.Get("/items", handleGetItems(store))
				r.Put("/items", handleSaveItems(store))

				r.Post("/join", handleJoinActivity(store, broker))
				r.Post("/quiz/submit", handleQuizSubmit(store))
				r.Post("/raffle/enter", handleRaffleEnter(store, broker))
				r.Post("/raffle/draw", handleRaffleDraw(store, broker))
				r.Post("/wheel/spin", handleWheelSpin(store, broker))
				r.Delete("/wheel/winner", handleClearWheelWinner(store, broker))
				r.Post("/vote", handleVote(store, broker))

				r.Get("/results", handleResults(store))
				r.Get("/results/export", handleResultsExport(store))
			})
		})
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
