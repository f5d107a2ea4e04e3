package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"go.uber.org/zap"
)

// CORS returns a CORS middleware configured from the application config.
// Without configured origins every origin is allowed outside production and
// none in production.
func CORS(cfg *config.CORSConfig, appCfg *config.AppConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	anyOrigin := func(r *http.Request, origin string) bool { return origin != "" }

	switch {
	case containsWildcard(cfg.AllowedOrigins):
		if appCfg.IsProduction() {
			logger.Warn("CORS configured with wildcard origin in production")
		}
		options.AllowOriginFunc = anyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins", zap.Strings("origins", cfg.AllowedOrigins))
	case appCfg.IsProduction():
		// An empty AllowedOrigins would mean "*" to the cors package
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
		logger.Warn("CORS has no allowed origins; cross-origin requests will be denied")
	default:
		options.AllowOriginFunc = anyOrigin
		logger.Info("CORS allows all origins outside production")
	}

	return cors.Handler(options)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
