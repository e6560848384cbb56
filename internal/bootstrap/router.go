package bootstrap

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/scopewise/estimation-backend/config"
	httpapi "github.com/scopewise/estimation-backend/internal/api/http"
	"github.com/scopewise/estimation-backend/internal/api/http/middleware"
	esthttp "github.com/scopewise/estimation-backend/internal/estimation/http"
	"github.com/scopewise/estimation-backend/internal/estimation/repository"
	"github.com/scopewise/estimation-backend/internal/estimation/service"
	"github.com/scopewise/estimation-backend/internal/llm"
	"github.com/scopewise/estimation-backend/internal/storage"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
	Store          httpapi.Pinger
	Estimation     *esthttp.Handler
}

// CORS builds the cross-origin middleware shared by both servers.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(dep.AllowedOrigins))
	r.Use(middleware.RequestIDMiddleware(dep.Logger))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	dep.Estimation.Register(api)

	return r
}

type EstimationDeps struct {
	Store  storage.Store
	Redis  *redis.Client
	LLM    llm.Completer
	PDF    esthttp.TextExtractor
	Logger *slog.Logger
}

// NewEstimation wires repository, matcher and service behind the HTTP
// handler. A nil Redis client disables the synonym cache.
func NewEstimation(cfg *config.Config, dep EstimationDeps) (*esthttp.Handler, *repository.ProjectRepository) {
	projects := repository.NewProjectRepository(dep.Store)

	var cache service.SynonymStore
	if dep.Redis != nil {
		cache = repository.NewSynonymCache(dep.Redis, cfg.Redis.SynonymTTL)
	}

	matcher := service.NewMatcher(projects, dep.LLM, cache, cfg.LLM.Model, dep.Logger)
	svc := service.NewEstimationService(dep.LLM, projects, matcher, service.Options{
		Model:       cfg.LLM.Model,
		ChatModel:   cfg.LLM.ChatModel,
		HoursPerDay: cfg.Estimation.HoursPerDay,
		Logger:      dep.Logger,
	})

	devMode := cfg.App.Environment == "development"
	return esthttp.New(svc, dep.PDF, devMode, dep.Logger), projects
}
