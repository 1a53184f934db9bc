package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	config "github.com/NordCoder/Warden/internal/config/identity-api"
)

func buildHTTPServer(cfg *config.Config, app *application) *http.Server {
	if !cfg.Log.Pretty {
		gin.SetMode(gin.ReleaseMode)
	}
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           app.server.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}
