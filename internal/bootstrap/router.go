package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/craftcode/landing-backend/internal/api/http"
	"github.com/craftcode/landing-backend/internal/api/http/middleware"
	contacthttp "github.com/craftcode/landing-backend/internal/contact/http"
	"github.com/craftcode/landing-backend/internal/contact/service"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Backend        string
	AllowedOrigins []string
	ContactEmail   string
	Registry       *service.Registry
	DB             httpapi.Pinger
	Redis          httpapi.Pinger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Backend, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	contact := api.Group("/contact")
	contacthttp.New(dep.Registry, dep.ContactEmail).Register(contact)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
