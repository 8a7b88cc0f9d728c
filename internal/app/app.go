package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/polla/external/apifootball"
	"github.com/riskibarqy/polla/external/jobqueue"
	"github.com/riskibarqy/polla/internal/config"
	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/matchscore"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/polla/internal/infrastructure/lock"
	"github.com/riskibarqy/polla/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/polla/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/polla/internal/interfaces/httpapi"
	"github.com/riskibarqy/polla/internal/observability"
	"github.com/riskibarqy/polla/internal/platform/cache"
	idgen "github.com/riskibarqy/polla/internal/platform/id"
	"github.com/riskibarqy/polla/internal/platform/keylock"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"github.com/riskibarqy/polla/internal/platform/pgdsn"
	"github.com/riskibarqy/polla/internal/platform/resilience"
	"github.com/riskibarqy/polla/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const anubisCacheMaxEntries = 10000

type repositories struct {
	pools     pool.Repository
	access    pool.AccessRepository
	matches   match.Repository
	forecasts forecast.Repository
	scores    matchscore.Repository
}

// App owns the HTTP server and every resource that must be released on shutdown.
type App struct {
	Server *http.Server

	cfg       config.Config
	logger    *logging.Logger
	finalizer *usecase.PoolFinalizer
	db        *sqlx.DB
	redis     *redis.Client
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.closeResources()
		}
	}()

	repos, err := a.openRepositories()
	if err != nil {
		return nil, err
	}
	locker, err := a.openLocker()
	if err != nil {
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	gateway := apifootball.NewClient(apifootball.ClientConfig{
		BaseURL:         cfg.ProviderBaseURL,
		Token:           cfg.ProviderToken,
		Timeout:         cfg.ProviderTimeout,
		MaxRetries:      cfg.ProviderMaxRetries,
		RetryBackoff:    cfg.ProviderRetryBackoff,
		Logger:          logger,
		CircuitBreaker:  cfg.ProviderCircuit,
		BreakerListener: circuitListener(metrics),
	})

	anubisOpts := []anubis.Option{anubis.WithPrincipalCache(cfg.AnubisCacheTTL, anubisCacheMaxEntries)}
	if metrics != nil {
		anubisOpts = append(anubisOpts, anubis.WithBreakerListener(metrics.CircuitListener()))
	}
	verifier := anubis.NewClient(
		&http.Client{Timeout: cfg.AnubisTimeout},
		cfg.AnubisBaseURL,
		cfg.AnubisIntrospectPath,
		cfg.AnubisAdminKey,
		cfg.AnubisCircuit,
		logger,
		anubisOpts...,
	)

	finalizer, err := usecase.NewPoolFinalizer(
		repos.pools,
		repos.matches,
		repos.forecasts,
		repos.scores,
		cfg.ScoringRules,
		syncMetrics(metrics),
		usecase.PoolFinalizerConfig{
			MaxWorkers:    cfg.FinalizeMaxWorkers,
			QueueWorkers:  cfg.FinalizeQueueWorkers,
			CheckInterval: cfg.FinalizeCheckInterval,
			Timeout:       cfg.FinalizeTimeout,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("build pool finalizer: %w", err)
	}
	a.finalizer = finalizer

	syncSvc := usecase.NewMatchSyncService(
		repos.pools,
		repos.access,
		repos.matches,
		gateway,
		locker,
		finalizer,
		syncMetrics(metrics),
		usecase.MatchSyncConfig{
			Freshness:    match.FreshnessPolicy{LiveTTL: cfg.MatchTTLLive, IdleTTL: cfg.MatchTTLIdle},
			WaitAttempts: cfg.SyncWaitAttempts,
			WaitInterval: cfg.SyncWaitInterval,
		},
		logger,
	)
	rankingSvc := usecase.NewRankingService(
		repos.pools,
		repos.access,
		repos.matches,
		repos.forecasts,
		repos.scores,
		syncSvc,
		cfg.ScoringRules,
		cache.NewStore[usecase.Ranking](cfg.RankingCacheTTL),
		usecase.RankingServiceConfig{MaxWorkers: cfg.RankingMaxWorkers},
		logger,
	)
	forecastSvc := usecase.NewForecastService(repos.pools, repos.access, repos.matches, repos.forecasts, idgen.NewUUIDGenerator(), logger)
	sweepSvc := usecase.NewPoolSweepService(
		repos.pools,
		repos.matches,
		syncSvc,
		finalizer,
		a.jobQueue(metrics),
		usecase.PoolSweepConfig{
			LiveInterval:   cfg.SweepLiveInterval,
			IdleInterval:   cfg.SweepIdleInterval,
			PreKickoffLead: cfg.SweepPreKickoffLead,
		},
		logger,
	)
	stateSvc := usecase.NewPoolStateService(repos.pools, repos.matches, sweepSvc, logger)

	routerCfg := httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	}
	if metrics != nil {
		routerCfg.MetricsHandler = metrics.Handler()
		routerCfg.HTTPMetrics = metrics
	}
	handler := httpapi.NewHandler(syncSvc, rankingSvc, forecastSvc, stateSvc, finalizer, sweepSvc, logger)

	a.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, verifier, logger, routerCfg),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	ok = true
	return a, nil
}

func (a *App) openRepositories() (repositories, error) {
	switch a.cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := a.openDB()
		if err != nil {
			return repositories{}, err
		}
		a.db = db
		return repositories{
			pools:     postgres.NewPoolRepository(db),
			access:    postgres.NewPoolAccessRepository(db),
			matches:   postgres.NewMatchRepository(db),
			forecasts: postgres.NewForecastRepository(db),
			scores:    postgres.NewMatchScoreRepository(db),
		}, nil
	default:
		var (
			pools     []pool.Pool
			matches   []match.Match
			forecasts []forecast.Forecast
			accepted  map[string][]string
		)
		if a.cfg.SeedDemoData {
			now := time.Now()
			pools = memory.SeedPools(now)
			matches = memory.SeedMatches(now)
			forecasts = memory.SeedForecasts(now)
			accepted = memory.SeedAcceptedParticipants()
			a.logger.Info("seeded demo pool", "pool_id", memory.DemoPoolID)
		}
		poolRepo := memory.NewPoolRepository(pools)
		return repositories{
			pools:     poolRepo,
			access:    memory.NewAccessRepository(poolRepo, accepted),
			matches:   memory.NewMatchRepository(matches),
			forecasts: memory.NewForecastRepository(forecasts),
			scores:    memory.NewMatchScoreRepository(),
		}, nil
	}
}

func (a *App) openDB() (*sqlx.DB, error) {
	dsn := pgdsn.Parse(a.cfg.DBURL, a.cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn.URL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dsn.Name),
		otelsql.WithQueryFormatter(pgdsn.FormatQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(a.cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(a.cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(a.cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	otelsql.ReportDBStatsMetrics(db.DB)

	a.logger.Info("postgres connected", "db_name", dsn.Name, "max_open_conns", a.cfg.DBMaxOpenConns)
	return db, nil
}

func (a *App) openLocker() (keylock.Locker, error) {
	switch a.cfg.LockBackend {
	case config.LockBackendRedis:
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.redis = client
		return lock.NewRedisLocker(client, a.cfg.LockTTL), nil
	case config.LockBackendPostgres:
		if a.db == nil {
			return nil, fmt.Errorf("postgres lock backend requires postgres storage")
		}
		return lock.NewPostgresLocker(a.db), nil
	default:
		return keylock.NewMemory(), nil
	}
}

func (a *App) jobQueue(metrics *observability.Metrics) usecase.JobQueue {
	if !a.cfg.QStashEnabled {
		a.logger.Info("qstash disabled, pool sweeps run only on demand")
		return usecase.NewNoopJobQueue()
	}
	return jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          a.cfg.QStashBaseURL,
		Token:            a.cfg.QStashToken,
		TargetBaseURL:    a.cfg.QStashTargetBaseURL,
		Retries:          a.cfg.QStashRetries,
		InternalJobToken: a.cfg.InternalJobToken,
		Timeout:          a.cfg.QStashTimeout,
		CircuitBreaker:   a.cfg.QStashCircuit,
		BreakerListener:  circuitListener(metrics),
	}, a.logger)
}

// Shutdown drains the HTTP server, then releases background workers and connections.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	if a.finalizer != nil {
		a.finalizer.Close()
		a.finalizer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
		a.db = nil
	}
	return errors.Join(errs...)
}

func syncMetrics(m *observability.Metrics) usecase.SyncMetrics {
	if m == nil {
		return nil
	}
	return m
}

func circuitListener(m *observability.Metrics) resilience.StateListener {
	if m == nil {
		return nil
	}
	return m.CircuitListener()
}
