package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/venus-savings/venus"
	"github.com/venus-savings/venus/internal/config"
	"github.com/venus-savings/venus/internal/db"
	"github.com/venus-savings/venus/internal/lock"
	"github.com/venus-savings/venus/internal/metrics"
	"github.com/venus-savings/venus/internal/repository"
	"github.com/venus-savings/venus/internal/repository/memory"
	"github.com/venus-savings/venus/internal/repository/mongo"
	"github.com/venus-savings/venus/internal/rules"
	"github.com/venus-savings/venus/internal/service"
	"github.com/venus-savings/venus/internal/storage"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Metrics        *metrics.Collector
	AuthService    *service.AuthService
	EmailService   *service.EmailService
	GoalService    *service.GoalService
	CheckService   *service.CheckService
	InsightService *service.InsightService

	mongo *mongodriver.Client
	redis *redis.Client
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	// Repositories
	goalRepository, userRepository, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Withdrawal locks
	locker, err := a.openLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Storage
	checkStorage, err := storage.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	policy, err := rules.NewPolicy(cfg.WithdrawPolicy, cfg.PenaltyFreeBreaks, cfg.PenaltyRate, cfg.EmergencyLimit)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid withdrawal policy: %w", err)
	}

	insights, err := fs.Sub(venus.ContentFS, "content/insights")
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open insights: %w", err)
	}

	// Services
	a.Metrics = metrics.NewCollector()
	a.EmailService = service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppName,
		cfg.IsDevelopment(),
		userRepository,
	)
	a.AuthService = service.NewAuthService(
		userRepository,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
	)
	a.GoalService = service.NewGoalService(
		goalRepository,
		rules.NewEngine(policy),
		locker,
		a.Metrics,
		a.EmailService,
	)
	a.CheckService = service.NewCheckService(a.GoalService, checkStorage)
	a.InsightService, err = service.NewInsightService(insights)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load insights: %w", err)
	}

	slog.Info("app initialized",
		"db_driver", cfg.DBDriver,
		"withdraw_policy", policy.Name(),
		"distributed_locks", a.redis != nil,
		"check_uploads", a.CheckService.Enabled(),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.GoalRepository, repository.UserRepository, error) {
	cfg := a.Cfg

	switch {
	case db.IsSQL(cfg.DBDriver):
		database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = database

		err = db.RunMigrations(database.DB, cfg.DBDriver)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repository.NewGoalRepository(database), repository.NewUserRepository(database), nil

	case cfg.DBDriver == "mongo":
		client, database, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		a.mongo = client
		return mongo.NewGoalRepository(database), mongo.NewUserRepository(database), nil

	case cfg.DBDriver == "memory":
		slog.Warn("using in-memory store, data is lost on restart")
		return memory.NewGoalRepository(), memory.NewUserRepository(), nil

	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func (a *App) openLocker(ctx context.Context) (lock.Locker, error) {
	if a.Cfg.RedisURL == "" {
		return lock.NewLocal(), nil
	}

	client, err := lock.Connect(ctx, a.Cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return lock.NewRedis(client, lock.DefaultOptions()), nil
}

func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		errs = append(errs, db.Close(a.DB))
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Disconnect(context.Background()))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}

	return errors.Join(errs...)
}
