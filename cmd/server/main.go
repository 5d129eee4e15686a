// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages. Every backing
// resource is optional: without Postgres, Redis, Kratos, or Kafka the process
// runs fully in memory, which is what development and tests use.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"carebridge/internal/audit"
	directorystore "carebridge/internal/directory/store"
	accountstore "carebridge/internal/directory/store/account"
	membershipstore "carebridge/internal/directory/store/membership"
	profilestore "carebridge/internal/directory/store/profile"
	"carebridge/internal/identity"
	identitykratos "carebridge/internal/identity/kratos"
	identitymemory "carebridge/internal/identity/memory"
	"carebridge/internal/onboarding/commit"
	"carebridge/internal/onboarding/draft"
	onboardinghandler "carebridge/internal/onboarding/handler"
	onboardingservice "carebridge/internal/onboarding/service"
	"carebridge/internal/platform/config"
	"carebridge/internal/platform/httpserver"
	"carebridge/internal/platform/logger"
	"carebridge/internal/platform/metrics"
	platformredis "carebridge/internal/platform/redis"
	httptransport "carebridge/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var accounts directorystore.AccountStore
	var profiles directorystore.ProfileStore
	var memberships directorystore.MembershipStore
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		accounts = accountstore.NewPostgres(db)
		profiles = profilestore.NewPostgres(db)
		memberships = membershipstore.NewPostgres(db)
	} else {
		log.Info("no postgres configured, using in-memory directory stores")
		accounts = accountstore.NewInMemoryStore()
		profiles = profilestore.NewInMemoryStore()
		memberships = membershipstore.NewInMemoryStore()
	}

	var drafts draft.Store
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		drafts = draft.NewRedisStore(redisClient.Client, config.DraftValidity)
	} else {
		log.Info("no redis configured, using in-memory draft store")
		drafts = draft.NewInMemoryStore()
	}

	var gateway identity.Gateway
	if cfg.KratosURL != "" {
		gateway = identitykratos.New(cfg.KratosURL)
	} else {
		log.Info("no kratos configured, using in-memory identity gateway")
		gateway = identitymemory.New(identitymemory.RequireVerification())
	}

	auditEvents := make(chan audit.Event, 256)
	auditStore := audit.NewMemoryStore()
	var auditSink audit.Sink = auditStore
	kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
	if err != nil {
		log.Error("kafka connect failed", "error", err)
		os.Exit(1)
	}
	if kafkaSink != nil {
		defer kafkaSink.Close()
		auditSink = kafkaSink
	}
	publisher := audit.NewPublisher(channelSink(auditEvents))
	worker := audit.NewWorker(auditSink, auditEvents, log)

	orchestrator := commit.New(gateway, accounts, profiles, memberships, drafts,
		commit.WithLogger(log),
		commit.WithMetrics(m),
	)
	flows := onboardingservice.New(gateway, profiles, drafts, orchestrator,
		onboardingservice.WithLogger(log),
		onboardingservice.WithMetrics(m),
		onboardingservice.WithAuditPublisher(publisher),
		onboardingservice.WithDraftValidity(config.DraftValidity),
	)

	handler := onboardinghandler.New(flows, log)
	router := httptransport.NewRouter(handler, healthz(redisClient))
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting carebridge onboarding server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// channelSink adapts the audit inbox channel to the publisher's sink
// interface: Emit enqueues, the worker drains.
type channelSink chan<- audit.Event

func (c channelSink) Append(ctx context.Context, event audit.Event) error {
	select {
	case c <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func healthz(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
