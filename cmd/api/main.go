package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NotSleepp/possbien-sub001/internal/application/auth"
	"github.com/NotSleepp/possbien-sub001/internal/application/sales"
	"github.com/NotSleepp/possbien-sub001/internal/application/serialization"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/pricing"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/cache"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/memory"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/metrics"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/postgres"
	httpRouter "github.com/NotSleepp/possbien-sub001/internal/interfaces/http"
	"github.com/NotSleepp/possbien-sub001/pkg/config"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

// storage repositorios según DB_DRIVER.
type storage struct {
	txRunner  sales.SalesTxRunner
	rangeRepo repository.SerializationRangeRepository
	saleRepo  repository.SaleRepository
	userRepo  repository.UserRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer store.close()

	var idem cache.IdempotencyStore = cache.NoopIdempotencyStore{}
	if cfg.Redis.Addr != "" {
		redisStore := cache.NewRedisIdempotencyStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde, idempotencia deshabilitada")
			_ = redisStore.Close()
		} else {
			idem = redisStore
			defer redisStore.Close()
		}
		cancel()
	}

	salesMetrics := metrics.NewSalesMetrics(prometheus.DefaultRegisterer, cfg.App.Name)

	registry := serialization.NewRegistry(store.rangeRepo, salesMetrics, log)
	verifier := auth.NewSupervisorVerifier(store.userRepo)
	authorizer := sales.NewDiscountAuthorizer(verifier, cfg.Sales.MaxUnauthorizedDiscount)
	finalizer := sales.NewSaleFinalizer(
		store.txRunner, registry, pricing.NewEngine(cfg.Sales.TaxRate), authorizer,
		store.saleRepo, salesMetrics, log, cfg.Sales.Currency,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs (solo si se generó docs/swagger.json)
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Possbien Ventas API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Finalizer:      finalizer,
		Registry:       registry,
		Idempotency:    idem,
		IdempotencyTTL: time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second,
		JWTSecret:      cfg.JWT.Secret,
		Logger:         log,
		Metrics:        adaptor.HTTPHandler(promhttp.Handler()),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.DB.Driver == "memory" {
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		mem := memory.NewStore()
		if err := seedSupervisor(mem, cfg.Seed); err != nil {
			return nil, err
		}
		return &storage{
			txRunner:  mem,
			rangeRepo: mem.Ranges(),
			saleRepo:  mem.Sales(),
			userRepo:  mem.Users(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}
	return &storage{
		txRunner:  postgres.NewTxRunner(pool),
		rangeRepo: postgres.NewSerializationRangeRepository(pool),
		saleRepo:  postgres.NewSaleRepository(pool),
		userRepo:  postgres.NewUserRepository(pool),
		close:     pool.Close,
	}, nil
}

func seedSupervisor(mem *memory.Store, seed config.SeedConfig) error {
	if seed.CompanyID == "" || seed.SupervisorEmail == "" || seed.SupervisorCode == "" {
		return nil
	}
	hash, err := auth.HashCode(seed.SupervisorCode)
	if err != nil {
		return err
	}
	now := time.Now()
	mem.AddUser(&entity.User{
		ID:           uuid.New().String(),
		CompanyID:    seed.CompanyID,
		Email:        seed.SupervisorEmail,
		Name:         "Supervisor",
		Role:         entity.RoleSupervisor,
		Status:       "active",
		AuthCodeHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return nil
}
