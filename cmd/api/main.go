package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	infraamqp "github.com/jhoicas/stock-ledger/internal/infrastructure/amqp"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Formularios sin actividad durante este tiempo se cierran.
const (
	formIdleTimeout   = 30 * time.Minute
	formSweepInterval = time.Minute
)

// stores backend de registros y bitácora elegido por STORE_DRIVER.
type stores struct {
	ledger   repository.LedgerRepository
	tx       ledger.TxRunner
	activity repository.ActivityLogRepository
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("store SQLite listo")
		return &stores{
			ledger:   sqlite.NewLedgerRepository(db),
			tx:       sqlite.NewTxRunner(db),
			activity: sqlite.NewActivityLogRepository(db),
			close:    func() { closeDB(db, log) },
		}, nil
	case config.StoreDriverMemory:
		store := memory.NewLedgerStore()
		log.Warn().Msg("store en memoria: los registros se pierden al reiniciar")
		return &stores{
			ledger:   store,
			tx:       memory.NewTxRunner(store),
			activity: memory.NewActivityLogStore(),
			close:    func() {},
		}, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
		if err != nil {
			return nil, err
		}
		return &stores{
			ledger:   postgres.NewLedgerRepository(pool),
			tx:       postgres.NewTxRunner(pool),
			activity: postgres.NewActivityLogRepository(pool),
			close:    pool.Close,
		}, nil
	}
}

func closeDB(db *sql.DB, log *logger.Logger) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("cerrar SQLite")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("abrir store")
	}
	defer st.close()

	// Bitácora: tabla activity_logs y, si hay broker, RabbitMQ.
	sinks := ledger.MultiSink{ledger.NewRepositorySink(st.activity)}
	if cfg.AMQP.Enabled() {
		pub, err := infraamqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, log)
		if err != nil {
			log.Error().Err(err).Msg("RabbitMQ no disponible, bitácora solo en base de datos")
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	resolver := carry.NewResolver(st.ledger, log, cfg.Carry.LookupTimeout)
	svc := ledger.NewService(ledger.Deps{
		Repo:              st.ledger,
		Tx:                st.tx,
		Resolver:          resolver,
		Audit:             sinks,
		Activity:          st.activity,
		Report:            infrapdf.NewMarotoOverviewGenerator(),
		Log:               log,
		LowStockThreshold: cfg.Carry.LowStockThreshold,
	})

	registry := carry.NewRegistry(resolver, log, cfg.Carry.Debounce)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go sweepForms(sweepCtx, registry, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:     svc,
		Forms:      ledger.NewFormUseCase(registry, svc),
		Resolver:   resolver,
		Calculator: carry.NewCalculator(log),
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
	stopSweep()
	registry.CloseAll()
	svc.Wait()

	log.Info().Msg("aplicación detenida")
}

// sweepForms cierra periódicamente los formularios abandonados.
func sweepForms(ctx context.Context, registry *carry.Registry, log *logger.Logger) {
	ticker := time.NewTicker(formSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Sweep(formIdleTimeout); n > 0 {
				log.Info().Int("closed", n).Int("open", registry.Len()).Msg("formularios inactivos cerrados")
			}
		}
	}
}
