package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"homematch/internal/bootstrap/config"
	"homematch/internal/bootstrap/database"
	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	cacheinfra "homematch/internal/infrastructure/cache"
	"homematch/internal/infrastructure/notify"
	"homematch/internal/infrastructure/persistence/gormdb/repository"
	"homematch/internal/infrastructure/persistence/gormdb/uow"
	"homematch/internal/infrastructure/reasoning"
	"homematch/internal/infrastructure/reasoning/anthropic"
	"homematch/internal/infrastructure/reasoning/gemini"
	"homematch/internal/infrastructure/reasoning/openai"
	"homematch/internal/ports"
	"homematch/internal/transport/httpapi"
	"homematch/internal/usecase/board"
	"homematch/internal/usecase/estimate"
	"homematch/internal/usecase/lifecycle"
	"homematch/internal/usecase/matching"
	"homematch/internal/usecase/ratinggate"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			repository.NewMarketplaceRepository,
			fx.As(
				new(ports.JobRepository),
				new(ports.ContractorRepository),
				new(ports.QuoteRepository),
				new(ports.MatchRepository),
				new(ports.RatingRepository),
			),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideNotifier),
	fx.Provide(provideCompleter),
	fx.Provide(provideReasoner),
	fx.Provide(providePricing),
	fx.Provide(provideMatching),
	fx.Provide(provideDispatcher),
	fx.Provide(provideLifecycle),
	fx.Provide(ratinggate.NewService),
	fx.Provide(provideEstimate),
	fx.Provide(board.NewReader),
	fx.Provide(provideHTTPHandler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func dialRedis(lc fx.Lifecycle, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errs.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideCache(lc fx.Lifecycle, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	if strings.EqualFold(cfg.Cache.Driver, "redis") {
		client, err := dialRedis(lc, cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		return cacheinfra.NewRedisCache(client, cfg.App.Name+":"), nil
	}
	return cacheinfra.NewDBCache(db), nil
}

func provideNotifier(lc fx.Lifecycle, cfg config.Config) (ports.Notifier, error) {
	switch strings.ToLower(cfg.Notify.Driver) {
	case "nats":
		n, err := notify.DialNATS(cfg.Notify.NATSURL, cfg.Notify.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return n.Close()
			},
		})
		return n, nil
	case "redis":
		client, err := dialRedis(lc, cfg.Notify.RedisURL)
		if err != nil {
			return nil, err
		}
		return notify.NewRedisNotifier(client, cfg.Notify.SubjectPrefix), nil
	default:
		return notify.NewLogNotifier(), nil
	}
}

// provideCompleter returns a nil Completer when matching is disabled.
func provideCompleter(ctx context.Context, cfg config.Config) (ports.Completer, error) {
	m := cfg.Matching
	if !m.Enabled {
		return nil, nil
	}

	var (
		completer ports.Completer
		err       error
	)
	switch strings.ToLower(m.Provider) {
	case "anthropic":
		completer, err = anthropic.New(m.APIKey, m.Model, m.BaseURL)
	case "openai":
		completer, err = openai.New(m.APIKey, m.Model, m.BaseURL)
	case "gemini":
		completer, err = gemini.New(ctx, m.APIKey, m.Model)
	default:
		return nil, fmt.Errorf("unsupported matching.provider %q", m.Provider)
	}
	if err != nil {
		return nil, errs.Wrapf(err, "build %s completer", m.Provider)
	}

	logging.Info(logging.WithComponent(ctx, "bootstrap.fx"), "language model configured",
		slog.String("provider", completer.Name()), slog.Int("max_retries", m.MaxRetries))
	return reasoning.WithRetry(completer, m.MaxRetries), nil
}

func provideReasoner(completer ports.Completer) ports.MatchReasoner {
	if completer == nil {
		return nil
	}
	return matching.NewLLMReasoner(completer)
}

func providePricing(cfg config.Config) (*pricing.Engine, error) {
	catalogue, err := pricing.LoadCatalogueFile(cfg.Pricing.CatalogueFile)
	if err != nil {
		return nil, errs.Wrap(err, "load pricing catalogue")
	}
	return pricing.NewEngine(catalogue, cfg.Pricing.Rates()), nil
}

type matchingParams struct {
	fx.In

	Config      config.Config
	Jobs        ports.JobRepository
	Contractors ports.ContractorRepository
	Matches     ports.MatchRepository
	UoW         ports.UnitOfWork
	Reasoner    ports.MatchReasoner
	Notifier    ports.Notifier
}

func provideMatching(p matchingParams) *matching.Service {
	m := p.Config.Matching
	return matching.NewService(p.Jobs, p.Contractors, p.Matches, p.UoW, p.Reasoner, p.Notifier, matching.Options{
		Enabled:           m.Enabled,
		PoolSize:          m.PoolSize,
		Picks:             m.Picks,
		EmergingThreshold: m.EmergingThreshold,
		Timeout:           m.Timeout,
	})
}

func provideDispatcher(lc fx.Lifecycle, svc *matching.Service, cfg config.Config) *matching.Dispatcher {
	budget := cfg.Matching.Timeout * time.Duration(1+max(cfg.Matching.MaxRetries, 0))
	d := matching.NewDispatcher(svc, budget+5*time.Second)
	lc.Append(fx.Hook{
		OnStop: d.Close,
	})
	return d
}

type lifecycleParams struct {
	fx.In

	Jobs        ports.JobRepository
	Contractors ports.ContractorRepository
	Quotes      ports.QuoteRepository
	Matches     ports.MatchRepository
	UoW         ports.UnitOfWork
	Pricing     *pricing.Engine
	Dispatcher  *matching.Dispatcher
	Notifier    ports.Notifier
}

func provideLifecycle(p lifecycleParams) *lifecycle.Service {
	return lifecycle.NewService(p.Jobs, p.Contractors, p.Quotes, p.Matches, p.UoW, p.Pricing, p.Dispatcher, p.Notifier)
}

func provideEstimate(cfg config.Config, completer ports.Completer, cache ports.Cache, engine *pricing.Engine) *estimate.Service {
	return estimate.NewService(completer, cache, engine, cfg.Cache.EstimateTTL)
}

func provideHTTPHandler(lc *lifecycle.Service, ratings *ratinggate.Service, estimator *estimate.Service, engine *pricing.Engine) *httpapi.Handler {
	return httpapi.NewHandler(lc, ratings, estimator, engine)
}
