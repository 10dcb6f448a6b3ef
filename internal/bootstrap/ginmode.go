package bootstrap

import (
	"github.com/gin-gonic/gin"

	"github.com/craftcode/landing-backend/config"
)

func SetGinMode(cfg *config.Config) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
}
