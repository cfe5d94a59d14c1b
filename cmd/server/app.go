package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/cashledger/internal/adapter/http"
	"github.com/iho/cashledger/internal/adapter/http/handler"
	"github.com/iho/cashledger/internal/adapter/http/middleware"
	"github.com/iho/cashledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/cashledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cashledger/internal/adapter/repository/redis"
	sqliteRepo "github.com/iho/cashledger/internal/adapter/repository/sqlite"
	"github.com/iho/cashledger/internal/infrastructure/auth"
	"github.com/iho/cashledger/internal/infrastructure/config"
	"github.com/iho/cashledger/internal/infrastructure/eventpublisher"
	"github.com/iho/cashledger/internal/infrastructure/idgen"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
	"github.com/iho/cashledger/internal/infrastructure/postgres"
	"github.com/iho/cashledger/internal/infrastructure/redis"
	"github.com/iho/cashledger/internal/infrastructure/sqlite"
	"github.com/iho/cashledger/internal/usecase"
)

const (
	outboxRetention   = 7 * 24 * time.Hour
	limiterIdleWindow = 10 * time.Minute
)

// storage bundles the ports of one storage driver.
type storage struct {
	txManager usecase.TransactionManager
	entries   usecase.EntryRepository
	settings  usecase.SettingsRepository
	outbox    usecase.OutboxRepository
	audit     usecase.AuditRepository
	retrier   usecase.Retrier
	ping      func(ctx context.Context) error
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	defaults := cfg.DefaultSettings()

	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		return &storage{
			txManager: memory.NewTxManager(store),
			entries:   memory.NewEntryRepository(store),
			settings:  memory.NewSettingsRepository(store, defaults),
			outbox:    memory.NewOutboxRepository(store),
			audit:     memory.NewAuditRepository(store),
			ping:      store.Ping,
			close:     func() {},
		}, nil

	case config.DriverSQLite:
		if err := sqlite.RunMigrations(cfg.SQLitePath, log); err != nil {
			return nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.Options{})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &storage{
			txManager: sqliteRepo.NewTxManager(db),
			entries:   sqliteRepo.NewEntryRepository(db),
			settings:  sqliteRepo.NewSettingsRepository(db, defaults),
			outbox:    sqliteRepo.NewOutboxRepository(db),
			audit:     sqliteRepo.NewAuditRepository(db),
			retrier:   sqliteRepo.NewRetrier().WithLogger(log),
			ping:      db.PingContext,
			close:     func() { closeDB(db, log) },
		}, nil

	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &storage{
			txManager: postgresRepo.NewTxManager(pool).WithLockTimeout(cfg.LedgerLockWait),
			entries:   postgresRepo.NewEntryRepository(pool),
			settings:  postgresRepo.NewSettingsRepository(pool, defaults),
			outbox:    postgresRepo.NewOutboxRepository(pool),
			audit:     postgresRepo.NewAuditRepository(pool),
			retrier:   postgresRepo.NewRetrier().WithLogger(log),
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close sqlite store")
	}
}

// app is the wired service: both HTTP APIs and the outbox publisher.
type app struct {
	cfg         *config.Config
	log         zerolog.Logger
	store       *storage
	redis       *goredis.Client
	syncServer  *http.Server
	execServer  *http.Server
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closeOnce   sync.Once
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	m := metrics.NewWithRegisterer(reg)

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, store: store}

	settingsRepo := store.settings
	checks := []handler.Check{{Name: "store", Ping: store.ping}}
	publishers := eventpublisher.MultiPublisher{eventpublisher.NewLogPublisher(log)}
	var idempotency usecase.IdempotencyStore

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, redis.Options{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		log.Info().Msg("connected to redis")
		a.redis = client

		idempotency = redisRepo.NewIdempotencyStore(client, cfg.RedisKeyPrefix)
		settingsRepo = redisRepo.NewSettingsCache(store.settings, redisRepo.NewCache(client, cfg.RedisKeyPrefix), 0).
			WithLogger(log).
			WithMetrics(m)
		publishers = append(publishers, redisRepo.NewEventPublisher(client, cfg.RedisKeyPrefix))
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return redis.Ping(ctx, client)
		}})
	}

	// Use cases
	ids := idgen.NewULIDGenerator()
	recorder := usecase.NewRecorder(store.entries, store.outbox, ids)

	ledgerUC := usecase.NewLedgerUseCase(store.txManager, recorder, store.entries, store.audit, ids, m).WithLogger(log)
	editorUC := usecase.NewEditorUseCase(store.txManager, recorder, store.entries, store.outbox, store.audit, ids, m).WithLogger(log)
	paymentUC := usecase.NewPaymentUseCase(store.txManager, recorder, store.entries, settingsRepo, store.audit, ids, m).WithLogger(log)
	inventoryUC := usecase.NewInventoryUseCase(store.txManager, recorder, settingsRepo, m).WithLogger(log)
	settingsUC := usecase.NewSettingsUseCase(store.txManager, settingsRepo, store.outbox, store.audit, ids)
	reportUC := usecase.NewReportUseCase(store.entries)
	if store.retrier != nil {
		ledgerUC.WithRetrier(store.retrier)
		editorUC.WithRetrier(store.retrier)
		paymentUC.WithRetrier(store.retrier)
		inventoryUC.WithRetrier(store.retrier)
	}

	// Tail gauges start from the stored balances.
	if balances, err := ledgerUC.GetCurrentBalances(ctx); err == nil {
		m.SetBalances(balances.Cash, balances.Card)
	}

	routerCfg := httpAdapter.RouterConfig{
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC, editorUC),
		ReceiptHandler:   handler.NewReceiptHandler(paymentUC, ledgerUC),
		InventoryHandler: handler.NewInventoryHandler(inventoryUC),
		ReportHandler:    handler.NewReportHandler(reportUC),
		SettingsHandler:  handler.NewSettingsHandler(settingsUC),
		HealthHandler:    handler.NewHealthHandler(checks...),
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		Logger:           log,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
	}

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
		routerCfg.RateLimiter = a.rateLimiter
	}

	if cfg.AuthEnabled {
		directory, err := loadOperators(cfg.OperatorsFile)
		if err != nil {
			a.close()
			return nil, err
		}
		log.Info().Int("operators", directory.Len()).Msg("authentication enabled")

		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		routerCfg.TokenVerifier = jwtManager
		routerCfg.AuthHandler = handler.NewAuthHandler(directory, jwtManager).WithMetrics(m)
	}

	a.syncServer = newServer(cfg, cfg.HTTPPort, httpAdapter.NewRouter(routerCfg))

	execCfg := routerCfg
	execCfg.MetricsHandler = nil
	a.execServer = newServer(cfg, cfg.ExecutorHTTPPort, httpAdapter.NewExecutorRouter(execCfg))

	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outbox,
		Publisher:  publishers,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  outboxRetention,
	})

	return a, nil
}

func loadOperators(path string) (*auth.Directory, error) {
	if path == "" {
		return nil, errors.New("AUTH_ENABLED requires OPERATORS_FILE")
	}
	directory, err := auth.LoadDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}
	return directory, nil
}

func newServer(cfg *config.Config, port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

// run serves until ctx is cancelled or a server fails, then shuts down.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	listen := func(name string, srv *http.Server) {
		defer wg.Done()
		a.log.Info().Str("api", name).Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
			cancel()
		}
	}

	wg.Add(2)
	go listen("sync", a.syncServer)
	go listen("executor", a.execServer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error().Err(err).Msg("outbox publisher stopped")
		}
	}()

	if a.rateLimiter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.rateLimiter.RunCleanup(ctx, limiterIdleWindow)
		}()
	}

	<-ctx.Done()
	a.log.Info().Msg("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer cancelShutdown()

	var shutdownErr error
	for _, srv := range []*http.Server{a.syncServer, a.execServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	return shutdownErr
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				a.log.Warn().Err(err).Msg("failed to close redis client")
			}
		}
		a.store.close()
	})
}
