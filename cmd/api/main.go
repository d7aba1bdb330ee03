package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/transitops/fleet-occupancy-service/internal/config"
	"github.com/transitops/fleet-occupancy-service/internal/httpserver"
	"github.com/transitops/fleet-occupancy-service/internal/logging"
	"github.com/transitops/fleet-occupancy-service/internal/metrics"
	"github.com/transitops/fleet-occupancy-service/internal/occupancy"
	"github.com/transitops/fleet-occupancy-service/internal/store"
	"github.com/transitops/fleet-occupancy-service/internal/ws"
)

// main boots the service: config, store, fan-out hub, pipeline, HTTP.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// DB_URL selects the durable store; otherwise the in-memory reference
	// store serves the pipeline with identical semantics.
	var st store.Store
	if cfg.DBURL != "" {
		pg, err := store.NewPostgresStore(cfg.DBURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(); err != nil {
			logger.Error("apply schema", "error", err)
			os.Exit(1)
		}
		st = pg
		logger.Info("using postgres store")
	} else {
		st = store.NewMemStore()
		logger.Info("using in-memory store")
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	hub := ws.NewHub(logger, m, cfg.WSSendBuffer, cfg.WSWriteTimeout)
	go hub.Run()
	defer hub.Stop()

	svc := occupancy.NewService(st, hub, logger, m)
	router := httpserver.NewRouter(st, svc, hub, m, reg)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
}
