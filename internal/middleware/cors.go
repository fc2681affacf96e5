package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"teleshop-backend/internal/config"
)

// NewCORS builds the CORS layer for the browser dashboard. Origins, methods
// and headers come from configuration so a shop can pin its own frontend host.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
