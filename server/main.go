package main

import (
	"flag"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/config"
	"github.com/majeanson/anthropicJoffre-sub005/logging"
)

var addr = flag.String("addr", "", "listen address (overrides JAFFRE_SERVER_ADDR)")

func main() {
	flag.Parse()

	cfg, err := config.ParseServer()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger, err := logging.New(cfg.Level, cfg.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	gameServer := NewGameServer(logger, cfg.WriteTimeout)
	r := newRouter(gameServer, cfg.AllowedOrigins)

	logger.Info("server starting", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
