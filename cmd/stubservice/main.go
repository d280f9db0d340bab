package main

import (
	"flag"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/config"
	"github.com/example/forgery-check/internal/logging"
	"github.com/example/forgery-check/internal/stubservice"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $FORGERY_CONFIG or config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	r := gin.New()
	r.Use(gin.Recovery())

	svc := stubservice.NewService(stubservice.ParseVerdict(cfg.StubVerdict), cfg.StubDelay, logger)
	stubservice.RegisterRoutes(r, svc)

	server := &http.Server{
		Addr:    cfg.StubAddr,
		Handler: r,
	}

	logger.Info("detection stub listening",
		zap.String("addr", cfg.StubAddr),
		zap.String("verdict", cfg.StubVerdict),
		zap.Duration("delay", cfg.StubDelay),
	)
	if err := stubservice.Serve(server, cfg.ShutdownTimeout, logger, stubservice.ServeOptions{}); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
