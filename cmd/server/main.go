package main

import (
	"context"
	"os/signal"
	"syscall"

	"pinturas-backend/internal/config"
	"pinturas-backend/internal/database"
	"pinturas-backend/internal/logger"
	"pinturas-backend/internal/mixes"
	"pinturas-backend/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.Get()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("LOG_LEVEL inválido %q, se usa %s", cfg.LogLevel, log.GetLevel())
	}

	database.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := server.New(cfg, database.DB, log)

	if cfg.SweepInterval > 0 {
		var locker mixes.Locker
		rdb, lockClient, err := database.OpenRedis(ctx, cfg)
		switch {
		case err != nil:
			log.Warnf("Redis no disponible, limpieza sin candado: %v", err)
		case lockClient != nil:
			locker = lockClient
			defer rdb.Close()
		}

		sweeper := mixes.NewSweeper(mixes.NewStore(database.DB), cfg.SweepGrace, locker, log)
		go sweeper.Run(ctx, cfg.SweepInterval)
		log.WithField("interval", cfg.SweepInterval.String()).Info("Limpieza de mezclas huérfanas activa")
	}

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Info("Servidor escuchando en el puerto: " + cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
