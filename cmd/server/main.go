package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"clinicore/internal/audit"
	audithandler "clinicore/internal/audit/handler"
	auditmetrics "clinicore/internal/audit/metrics"
	clinicalhandler "clinicore/internal/clinical/handler"
	clinicalservice "clinicore/internal/clinical/service"
	"clinicore/internal/jwttoken"
	"clinicore/internal/platform/config"
	"clinicore/internal/platform/httpserver"
	"clinicore/internal/platform/logger"
	"clinicore/internal/platform/metrics"
	"clinicore/internal/platform/postgres"
	platformredis "clinicore/internal/platform/redis"
	"clinicore/internal/scope"
	"clinicore/internal/sequence"
	httptransport "clinicore/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	auditM := auditmetrics.New()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Store selection: postgres when configured, memory otherwise. The
	// sequence counter prefers redis for latency, falling back with the rest.
	var (
		entityStore scope.EntityStore
		auditStore  audit.Store
		seqStore    sequence.Store
	)
	switch {
	case db != nil:
		entityStore = scope.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		seqStore = sequence.NewPostgres(db)
	default:
		entityStore = scope.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		seqStore = sequence.NewInMemoryStore()
		log.Warn("no postgres configured, using in-memory stores")
	}
	if redisClient != nil {
		seqStore = sequence.NewRedis(redisClient.Client)
	}

	scoped := scope.NewScoped(entityStore)
	sequences := sequence.NewGenerator(seqStore)

	pipeline := audit.NewPipeline(cfg.Audit.BufferSize, auditM)
	recorder := audit.NewRecorder(pipeline,
		audit.WithLogger(log),
		audit.WithMetrics(auditM),
	)

	var sinks []audit.Sink
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			log.Error("failed to build kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	worker := audit.NewWorker(auditStore, pipeline.Inbox(), log, sinks...)

	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)

	clinical := clinicalservice.New(scoped, sequences,
		clinicalservice.WithLogger(log),
		clinicalservice.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Logger:    log,
		Metrics:   m,
		Validator: tokens,
		Health: func(ctx context.Context) error {
			if db != nil {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
		Modules: []httptransport.Registrar{
			clinicalhandler.New(clinical, recorder, log, m),
			audithandler.New(auditStore, log, m),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting clinicore", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := worker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
