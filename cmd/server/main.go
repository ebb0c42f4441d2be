// server runs the visitgate HTTP API: authentication, sessions, tenant
// context, and the periodic sweeper.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visitgate/internal/audit"
	auditproducer "visitgate/internal/audit/producer"
	auditrepo "visitgate/internal/audit/repository"
	authsvc "visitgate/internal/auth/service"
	"visitgate/internal/config"
	"visitgate/internal/db"
	identityrepo "visitgate/internal/identity/repository"
	"visitgate/internal/observability"
	ratelimitrepo "visitgate/internal/ratelimit/repository"
	ratelimitsvc "visitgate/internal/ratelimit/service"
	resetrepo "visitgate/internal/reset/repository"
	resetsvc "visitgate/internal/reset/service"
	"visitgate/internal/security"
	"visitgate/internal/server"
	"visitgate/internal/server/middleware"
	sessionrepo "visitgate/internal/session/repository"
	sessionsvc "visitgate/internal/session/service"
	"visitgate/internal/sweep"
	tenantrepo "visitgate/internal/tenant/repository"
	"visitgate/internal/tenantctx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := observability.NewProviders(ctx, cfg.OTLPEndpoint, "visitgate", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("observability: %v", err)
	}
	providers.SetGlobal()
	metrics, err := observability.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	// Audit events always persist locally; when Kafka is configured they also
	// stream to the forwarder topic, otherwise they go out as OTel log records.
	var emitter audit.Emitter
	producer, err := auditproducer.NewKafkaProducer(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic)
	if err != nil {
		log.Fatalf("audit producer: %v", err)
	}
	if producer != nil {
		defer producer.Close()
		emitter = producer
	} else {
		emitter = observability.NewAuditEmitter(providers.LoggerProvider)
	}
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.ClientAddress, emitter)

	hasher := security.NewHasher(cfg.BcryptCost)
	identities := identityrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	resets := resetrepo.NewPostgresRepository(conn)
	attempts := ratelimitrepo.NewPostgresRepository(conn)

	limiter := ratelimitsvc.NewLimiter(attempts, cfg.RateLimitWindowDuration(), cfg.RateLimitMaxAttempts)
	manager := sessionsvc.NewManager(sessions, auditor, cfg.SessionTTLDuration(), cfg.SessionMaxPerIdentity, cfg.SessionStrictIP)
	resolver := tenantctx.NewResolver(tenants, auditor)
	authService := authsvc.NewService(identities, hasher, limiter, manager, resolver, auditor)
	resetService := resetsvc.NewService(resets, identities, hasher, manager, auditor, cfg.ResetTokenTTLDuration())

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweeper := sweep.NewSweeper(manager, resetService, limiter, metrics, cfg.SweepIntervalDuration())
	go sweeper.Run(sweepCtx)

	srv := server.New(server.Deps{
		Config:     cfg,
		DB:         conn,
		Auth:       authService,
		Resets:     resetService,
		Limiter:    limiter,
		Sessions:   manager,
		Identities: identities,
		Resolver:   resolver,
		Auditor:    auditor,
		Metrics:    metrics,
	})

	go func() {
		log.Printf("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	// let in-flight async audit emits drain before tearing providers down
	time.Sleep(audit.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("observability shutdown: %v", err)
	}
	log.Println("stopped")
}
