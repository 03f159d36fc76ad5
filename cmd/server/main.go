// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Batch logic lives in the internal sync packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"grobi/internal/audit"
	"grobi/internal/localstore"
	"grobi/internal/platform/config"
	"grobi/internal/platform/httpserver"
	kafkaproducer "grobi/internal/platform/kafka/producer"
	"grobi/internal/platform/logger"
	"grobi/internal/platform/metrics"
	"grobi/internal/registry"
	"grobi/internal/sync"
	"grobi/internal/sync/source"
	httptransport "grobi/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	m := metrics.New()

	client, err := registry.New(
		cfg.Registry.BaseURL,
		cfg.Registry.Username,
		cfg.Registry.Password,
		registry.WithLogger(log),
		registry.WithMetrics(m),
		registry.WithTimeout(cfg.Registry.Timeout),
	)
	if err != nil {
		log.Error("registry client init failed", "error", err)
		os.Exit(1)
	}

	var local sync.LocalStore
	if cfg.LocalSyncEnabled {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("database open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store, err := localstore.New(db, localstore.WithLogger(log))
		if err != nil {
			log.Error("local store init failed", "error", err)
			os.Exit(1)
		}
		local = store
	}

	var auditor audit.Publisher = audit.Noop{}
	if len(cfg.AuditBrokers) > 0 {
		producer, err := kafkaproducer.New(cfg.AuditBrokers)
		if err != nil {
			log.Error("audit producer init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		auditor, err = audit.NewKafka(producer, cfg.AuditTopic)
		if err != nil {
			log.Error("audit publisher init failed", "error", err)
			os.Exit(1)
		}
	}

	orchestrator, err := sync.New(client, local,
		sync.Config{LocalSyncEnabled: cfg.LocalSyncEnabled},
		sync.WithLogger(log),
		sync.WithMetrics(m),
		sync.WithAudit(auditor),
	)
	if err != nil {
		log.Error("orchestrator init failed", "error", err)
		os.Exit(1)
	}

	src, err := source.NewJSON()
	if err != nil {
		log.Error("batch source init failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.New(orchestrator, src, log)
	router := httptransport.NewRouter(handler, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting grobi", "addr", cfg.Addr, "local_sync", cfg.LocalSyncEnabled)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Stop the running batch first so its outcome lands in the record
	// before the listener closes.
	handler.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
