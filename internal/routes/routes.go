package routes

import (
	"github.com/cardmint/cardmint/internal/handlers"
	"github.com/cardmint/cardmint/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes. Each endpoint is a
// single POST multiplexed on the request's action field; identity gets a
// tighter rate budget because it sends email and accepts code guesses.
func RegisterRoutes(
	router chi.Router,
	identityHandler *handlers.IdentityHandler,
	blockHandler *handlers.BlockHandler,
	subscriptionsHandler *handlers.SubscriptionsHandler,
) {
	identityLimit := middleware.DefaultIdentityRateLimit()
	apiLimit := middleware.DefaultAPIRateLimit()

	router.With(middleware.RateLimitByIP(identityLimit)).Post("/api/identity", identityHandler.Handle)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(apiLimit))
		r.Post("/api/block", blockHandler.Handle)
		r.Post("/api/subscriptions", subscriptionsHandler.Handle)
	})
}
