package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/enrolladmin/internal/app/auth"
	appControllers "github.com/yigit/enrolladmin/internal/app/controllers"
	"github.com/yigit/enrolladmin/internal/app/jobs"
	appMigrations "github.com/yigit/enrolladmin/internal/app/migrations"
	appRepos "github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/app/repositories/memory"
	appRoutes "github.com/yigit/enrolladmin/internal/app/routes"
	appServices "github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/config"
	"github.com/yigit/enrolladmin/internal/db"
	appMiddleware "github.com/yigit/enrolladmin/internal/middleware"
	pkgAuth "github.com/yigit/enrolladmin/internal/pkg/auth"
	"github.com/yigit/enrolladmin/internal/pkg/cache"
	"github.com/yigit/enrolladmin/internal/pkg/email"
	"github.com/yigit/enrolladmin/internal/pkg/filestorage"
	"github.com/yigit/enrolladmin/internal/pkg/logger"
	"github.com/yigit/enrolladmin/internal/pkg/validation"
	"github.com/yigit/enrolladmin/internal/pkg/websocket"
	"github.com/yigit/enrolladmin/internal/seed"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file itself
const multipartOverhead = 1 << 20

// DefaultConfigPath is read unless CONFIG_PATH points elsewhere
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Store          appRepos.Store
	Database       *db.PostgresDB // nil with the memory driver
	Cache          cache.Cache
	Redis          *cache.RedisCache // nil when redis is not configured
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	FileStorage    *filestorage.LocalStorage
	Hub            *websocket.Hub
	Services       appServices.Services
	AuthMiddleware *appMiddleware.AuthMiddleware
	Handlers       appRoutes.Handlers
	Scheduler      *jobs.Scheduler // nil unless scheduler.enabled
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", DefaultConfigPath)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
		Hooks: []zerolog.Hook{logger.NewRollbarHook(logger.RollbarConfig{
			Token:       cfg.Rollbar.Token,
			Environment: cfg.Rollbar.Environment,
			ServerRoot:  "github.com/yigit/enrolladmin",
		})},
	})

	lgr := logger.Default()
	lgr.Info().
		Str("logLevel", string(logLevel)).
		Str("logFormat", cfg.Logging.Format).
		Bool("rollbar", cfg.Rollbar.Token != "").
		Msg("Logger configured")
	return cfg, lgr, nil
}

// OpenStore connects the configured backend. With the postgres driver the
// returned database must be closed by the caller.
func OpenStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, *db.PostgresDB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		lgr.Warn().Msg("Using the in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	lgr.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if cfg.Database.MigrateOnStart {
		if _, err := RunMigrations(ctx, database, lgr); err != nil {
			database.Close()
			return nil, nil, err
		}
	}

	return appRepos.NewPostgresStore(database), database, nil
}

// RunMigrations applies pending schema migrations and returns how many ran
func RunMigrations(ctx context.Context, database *db.PostgresDB, lgr zerolog.Logger) (int, error) {
	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(database.Pool).Up(ctx)
	if err != nil {
		lgr.Error().Err(err).Int("applied", applied).Msg("Database migration error")
		return applied, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return applied, nil
}

// BuildDependencies initializes storage, services, controllers and jobs
func BuildDependencies(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: lgr, Store: store, Cache: cache.Noop{}}

	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			lgr.Warn().Err(err).Msg("Redis unavailable, dashboard metrics will not be cached")
		} else {
			deps.Redis = redisCache
			deps.Cache = redisCache
		}
	}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, cfg.Server.PublicBaseURL, cfg.Server.MaxUploadBytes)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(store.Repositories().Users)

	mailer := email.NewEmailService(email.Config{
		Provider:  cfg.Email.Provider,
		APIKey:    cfg.Email.APIKey,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		LoginURL:  cfg.Email.LoginURL,
	}, lgr)

	deps.Hub = websocket.NewHub(lgr)
	notifier := appServices.NewChangeNotifier(deps.Cache, deps.Hub, lgr)

	deps.Services = appServices.Services{
		Auth:        appServices.NewAuthService(store, deps.JWTService, lgr),
		Students:    appServices.NewStudentService(store, mailer, notifier, lgr),
		Catalog:     appServices.NewCatalogService(store, notifier, lgr),
		Enrollments: appServices.NewEnrollmentService(store, notifier, lgr),
		Payments:    appServices.NewPaymentService(store, deps.FileStorage, notifier, lgr),
		Documents:   appServices.NewDocumentService(store, deps.FileStorage, notifier, lgr),
		Outreach:    appServices.NewOutreachService(store, notifier, lgr),
		Dashboard:   appServices.NewDashboardService(store, deps.Cache, cfg.MetricsTTL(), lgr),
	}

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.AuthzService)

	svc := deps.Services
	deps.Handlers = appRoutes.Handlers{
		Auth:        appControllers.NewAuthController(svc.Auth, lgr),
		Students:    appControllers.NewStudentController(svc.Students, deps.AuthzService, lgr),
		Catalog:     appControllers.NewCatalogController(svc.Catalog),
		Enrollments: appControllers.NewEnrollmentController(svc.Enrollments, deps.AuthzService),
		Payments:    appControllers.NewPaymentController(svc.Payments, deps.AuthzService, lgr),
		Documents:   appControllers.NewDocumentController(svc.Documents, deps.AuthzService, lgr),
		Outreach:    appControllers.NewOutreachController(svc.Outreach, deps.AuthzService),
		Dashboard:   appControllers.NewDashboardController(svc.Dashboard),
		Realtime:    websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, lgr).HandleConnection,
	}

	if cfg.Scheduler.Enabled {
		deps.Scheduler, err = jobs.NewScheduler(cfg.Scheduler.EligibilityCron, svc.Students, lgr)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Seed.Enabled {
		if _, err := seed.CreateDefaultData(ctx, store, seed.Options{
			AdminEmail:    cfg.Seed.AdminEmail,
			AdminPassword: cfg.Seed.AdminPassword,
			SampleCatalog: true,
		}, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return deps, nil
}

// Close releases connections held by the dependencies
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if d.Database != nil {
		d.Database.Close()
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	validation.Register()

	router := gin.New()
	router.Use(
		appMiddleware.RequestLogger(lgr),
		appMiddleware.Recovery(),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
		appMiddleware.BodyLimit(cfg.Server.MaxUploadBytes+multipartOverhead),
	)
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	appRoutes.SetupSwagger(router)
	appRoutes.SetupStatic(router, deps.FileStorage.BasePath())
	appRoutes.SetupRouter(router, deps.Handlers, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
