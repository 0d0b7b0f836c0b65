package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/papers"
	"papermind-backend/internal/processing"
	"papermind-backend/internal/queries"
	"papermind-backend/internal/services/health"
	"papermind-backend/internal/shared/auth"
	"papermind-backend/internal/shared/config"
	"papermind-backend/internal/shared/server"
	"papermind-backend/internal/shared/storage/db"
	"papermind-backend/internal/shared/telemetry"
	"papermind-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Gateway       processing.Gateway
	Tokens        *auth.TokenService
	UsersRepo     users.Repo
	PapersRepo    papers.Repo
	Ledger        queries.Ledger
	UsersService  *users.Service
	PapersService *papers.Service
	Orchestrator  *queries.Orchestrator
	HealthService *health.Service
}

// Option customizes Build, mainly for tests.
type Option func(*App)

// WithGateway replaces the processing gateway built from config.
func WithGateway(gw processing.Gateway) Option {
	return func(a *App) { a.Gateway = gw }
}

// Build connects storage, wires services and handlers, and returns the app.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Tokens:  tokens,
		Gateway: processing.New(cfg.ProcessingURL, processing.WithTimeout(cfg.ProcessingTimeout)),
	}
	for _, opt := range opts {
		opt(app)
	}
	if cfg.ProcessingURL == "" {
		telemetry.Warn("bootstrap.processing_disabled", map[string]any{
			"reason": "PROCESSING_URL empty",
		})
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{
				"reason": "DATABASE_URL empty",
			})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{
				"reason": "database unavailable",
				"error":  err,
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.PapersRepo = &papers.PGRepo{DB: app.DB}
		app.Ledger = &queries.PGLedger{DB: app.DB}
	} else {
		userRepo := users.NewMemoryRepo()
		app.UsersRepo = userRepo
		app.PapersRepo = papers.NewMemoryRepo(func(ctx context.Context, userID string) (string, error) {
			user, err := userRepo.GetByID(ctx, userID)
			if err != nil {
				return "", err
			}
			return user.Username, nil
		})
		app.Ledger = queries.NewMemoryLedger()
	}

	app.UsersService = users.NewService(app.UsersRepo, auth.PasswordHasher{Cost: app.Config.BcryptCost}, app.Tokens)
	app.PapersService = &papers.Service{
		Repo:      app.PapersRepo,
		Gateway:   app.Gateway,
		Exchanges: app.Ledger,
	}
	app.Orchestrator = &queries.Orchestrator{
		Papers:  app.PapersService,
		Gateway: app.Gateway,
		Ledger:  app.Ledger,
	}
	app.HealthService = health.NewService(app.DB, app.Gateway)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Verifier:      app.UsersService,
		HealthHandler: health.NewHandler(app.HealthService),
		UserHandler:   users.NewHandler(app.UsersService),
		PaperHandler:  papers.NewHandler(app.PapersService),
		QueryHandler:  queries.NewHandler(app.Orchestrator),
	})
	if app.Router == nil {
		return errors.New("failed to initialize router")
	}
	return nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
