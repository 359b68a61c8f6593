// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/config"
	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/events"
	"github.com/clipvault/go-clipvault-api/internal/http/handlers"
	"github.com/clipvault/go-clipvault-api/internal/http/middleware"
	"github.com/clipvault/go-clipvault-api/internal/repo"
	"github.com/clipvault/go-clipvault-api/internal/services"
)

// clipStoreShim adapts the repository free functions to the
// services.ClipStore interface expected by the ClipService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type clipStoreShim struct{}

// UpsertClip proxies repo.UpsertClip.
func (clipStoreShim) UpsertClip(ctx context.Context, db *gorm.DB, sourceURL string) (string, bool, error) {
	return repo.UpsertClip(ctx, db, sourceURL)
}

// LinkUserClip proxies repo.LinkUserClip.
func (clipStoreShim) LinkUserClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error) {
	return repo.LinkUserClip(ctx, db, userID, clipID)
}

// GetClipWithTagsForUser proxies repo.GetClipWithTagsForUser.
func (clipStoreShim) GetClipWithTagsForUser(ctx context.Context, db *gorm.DB, userID, clipID string) (*domain.ClipDetail, error) {
	return repo.GetClipWithTagsForUser(ctx, db, userID, clipID)
}

// searchStoreShim adapts repo.SearchClipsForUser to services.SearchStore.
type searchStoreShim struct{}

func (searchStoreShim) SearchClipsForUser(ctx context.Context, db *gorm.DB, userID string, p repo.SearchParams) ([]domain.ClipDetail, int64, error) {
	return repo.SearchClipsForUser(ctx, db, userID, p)
}

// collectionStoreShim adapts the collection repository free functions to
// services.CollectionStore.
type collectionStoreShim struct{}

func (collectionStoreShim) CreateCollection(ctx context.Context, db *gorm.DB, userID, name string, description *string, isPublic bool, colorHex *string) (*domain.Collection, error) {
	return repo.CreateCollection(ctx, db, userID, name, description, isPublic, colorHex)
}

func (collectionStoreShim) GetCollection(ctx context.Context, db *gorm.DB, userID, collID string) (*domain.Collection, error) {
	return repo.GetCollection(ctx, db, userID, collID)
}

func (collectionStoreShim) CountCollections(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountCollections(ctx, db, userID)
}

func (collectionStoreShim) ListCollectionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Collection, error) {
	return repo.ListCollectionsPage(ctx, db, userID, offset, limit)
}

func (collectionStoreShim) UpdateCollection(ctx context.Context, db *gorm.DB, userID, collID string, updates map[string]any) error {
	return repo.UpdateCollection(ctx, db, userID, collID, updates)
}

func (collectionStoreShim) DeleteCollection(ctx context.Context, db *gorm.DB, userID, collID string) error {
	return repo.DeleteCollection(ctx, db, userID, collID)
}

func (collectionStoreShim) AddClipToCollection(ctx context.Context, db *gorm.DB, collID, clipID string) (bool, error) {
	return repo.AddClipToCollection(ctx, db, collID, clipID)
}

func (collectionStoreShim) RemoveClipFromCollection(ctx context.Context, db *gorm.DB, collID, clipID string) error {
	return repo.RemoveClipFromCollection(ctx, db, collID, clipID)
}

func (collectionStoreShim) UserSavedClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error) {
	return repo.UserSavedClip(ctx, db, userID, clipID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// compression, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: attach X-User-ID to the context
//  4. Logger: structured access logs
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. Gzip compression
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, pub *events.Publisher, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Attach the upstream-verified user identity
	r.Use(middleware.Identity())

	// 4) Structured access logging
	r.Use(middleware.Logger())

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) Compress responses (search pages with transcripts benefit most)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Clip-Id", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Clip-Id", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health: the store must answer; the publisher reports its own
	// readiness without failing the whole endpoint.
	r.GET("/health", func(c *gin.Context) {
		if err := repo.Ping(db); err != nil {
			log.Error().Err(err).Msg("health check: store unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"store":  "unreachable",
			})
			return
		}
		resp := gin.H{"status": "ok", "store": "ok"}
		if pub != nil {
			resp["events"] = pub.HealthCheck()
		}
		c.JSON(http.StatusOK, resp)
	})

	// Dependency injection: services ← repo/db/publisher
	clipSvc := services.NewClipService(db, clipStoreShim{}, pub)
	searchSvc := services.NewSearchService(db, searchStoreShim{})
	searchSvc.MatchAnyTag = cfg.TagMatchAny
	collSvc := services.NewCollectionService(db, collectionStoreShim{})
	h := handlers.New(clipSvc, searchSvc, collSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Clips
		api.POST("/clips", h.SaveClip)
		api.GET("/clips/:id", h.GetClip)

		// Search
		api.GET("/search", h.SearchClips)

		// Collections
		api.POST("/collections", h.CreateCollection)
		api.GET("/collections", h.ListCollections)
		api.GET("/collections/:id", h.GetCollection)
		api.PATCH("/collections/:id", h.UpdateCollection)
		api.DELETE("/collections/:id", h.DeleteCollection)
		api.POST("/collections/:id/clips", h.AddClipToCollection)
		api.DELETE("/collections/:id/clips/:clipId", h.RemoveClipFromCollection)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
