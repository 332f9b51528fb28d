package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stand-resolver/db"
	"stand-resolver/pkg/config"
	"stand-resolver/pkg/services/cache"
	embeddednats "stand-resolver/pkg/services/embedded-nats"
	"stand-resolver/pkg/services/repository"
	"stand-resolver/pkg/services/resolver"
	"stand-resolver/pkg/services/sources"
)

const shutdownTimeout = 10 * time.Second

// app holds the components shared by every command.
type app struct {
	db     *db.Service
	nats   *embeddednats.EmbeddedNATS
	repo   *repository.Repository
	cache  *cache.Cache
	engine *resolver.Engine
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*db.Service, error) {
	dbConfig := db.DefaultConfig()
	dbConfig.Driver = cfg.DatabaseDriver
	dbConfig.DSN = cfg.DatabaseURL
	dbConfig.AutoInitialize = true
	if cfg.DatabaseDriver == db.DriverPostgres {
		dbConfig.MaxOpenConns = 10
		dbConfig.MaxIdleConns = 5
	}

	svc, err := db.New(dbConfig, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database service")
	}

	// Verify schema is properly initialized
	if err := svc.VerifySchema(); err != nil {
		log.Warn("schema verification failed, initializing", zap.Error(err))
		if err := svc.InitializeSchema(); err != nil {
			_ = svc.Close()
			return nil, errors.Wrap(err, "failed to initialize schema")
		}
	}
	return svc, nil
}

func startNATS(cfg *config.Config, log *zap.Logger) (*embeddednats.EmbeddedNATS, error) {
	natsConfig := embeddednats.DefaultConfig()
	natsConfig.Port = cfg.NATSPort
	natsConfig.DataDir = cfg.NATSDataDir

	en, err := embeddednats.New(natsConfig, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedded NATS")
	}
	if err := en.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start embedded NATS")
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := en.Provision(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to provision JetStream")
	}

	log.Info("NATS JetStream initialized")
	return en, nil
}

// newApp wires storage, cache and the resolver. Messaging is started only
// when withMessaging is set and enabled in configuration.
func newApp(cfg *config.Config, log *zap.Logger, withMessaging bool) (*app, error) {
	svc, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{db: svc, repo: repository.FromService(svc, log)}

	cacheOpts := cache.Options{
		DefaultTTL: cfg.CacheTTL(),
		MaxTTL:     cfg.FlightCacheTTL(),
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     log,
	}

	if withMessaging && cfg.NATSEnabled {
		a.nats, err = startNATS(cfg, log)
		if err != nil {
			a.close(context.Background(), log)
			return nil, err
		}
		if cfg.UseSharedCache {
			kv, err := a.nats.StandCacheKV(cfg.FlightCacheTTL())
			if err != nil {
				log.Warn("shared cache unavailable, using memory cache only", zap.Error(err))
			} else {
				cacheOpts.Shared = cache.NewKVStore(kv)
			}
		}
	}
	a.cache = cache.New(cacheOpts)

	engineOpts := resolver.Options{
		Repository: a.repo,
		Sources: sources.NewManager(sources.Credentials{
			OpenSkyUsername:     cfg.OpenSkyUsername,
			OpenSkyPassword:     cfg.OpenSkyPassword,
			ADSBExchangeAPIKey:  cfg.ADSBExchangeAPIKey,
			AviationStackAPIKey: cfg.AviationStackAPIKey,
			Timeout:             cfg.SourceTimeout(),
		}, log),
		Cache:          a.cache,
		FlightCacheTTL: cfg.FlightCacheTTL(),
		Logger:         log,
	}
	if a.nats != nil {
		engineOpts.Publisher = a.nats
	}
	a.engine = resolver.New(engineOpts)

	return a, nil
}

func (a *app) close(ctx context.Context, log *zap.Logger) {
	if a.nats != nil {
		if err := a.nats.Shutdown(ctx); err != nil {
			log.Warn("failed to shutdown NATS", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
