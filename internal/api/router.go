package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"refeitorio-client/config"
	"refeitorio-client/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.Default()
	r.Use(mw.RequestID(), mw.Logger(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsConfig.AddAllowHeaders(mw.RequestIDHeader, "Cache-Control")
	corsConfig.AddExposeHeaders(mw.RequestIDHeader, mw.CacheHeader)
	r.Use(cors.New(corsConfig))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)
	flush := mw.Flush(cacheStore)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		fila := api.Group("/fila")
		fila.GET("/disponiveis", caching, handler.GetAvailable)
		fila.GET("/posicoes", caching, handler.GetPositions)
		fila.GET("/minhas", handler.GetMine)
		fila.POST("/inscricoes", flush, handler.PostInscription)
		fila.DELETE("/inscricoes/:id", flush, handler.DeleteInscription)
		fila.GET("/historico/:refeicao_id", handler.GetPositionHistory)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
