package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/coreplane/unify/config"
	"github.com/coreplane/unify/internal/repositories/customer"
	"github.com/coreplane/unify/internal/repositories/history"
	"github.com/coreplane/unify/pkg/audit"
	"github.com/coreplane/unify/pkg/database"
	"github.com/coreplane/unify/pkg/events"
	"github.com/coreplane/unify/pkg/graph"
	"github.com/coreplane/unify/pkg/kafka"
	"github.com/coreplane/unify/pkg/matching"
	"github.com/coreplane/unify/pkg/merging"
	"github.com/coreplane/unify/pkg/middleware"
	"github.com/coreplane/unify/pkg/platform"
	"github.com/coreplane/unify/pkg/processor"
	customerroutes "github.com/coreplane/unify/pkg/routes/customer"
	"github.com/coreplane/unify/pkg/routes/health"
	matchroutes "github.com/coreplane/unify/pkg/routes/match"
	statsroutes "github.com/coreplane/unify/pkg/routes/stats"
	"github.com/coreplane/unify/pkg/startup"
	"github.com/coreplane/unify/pkg/tracing"
	"github.com/coreplane/unify/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := buildZapLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx := context.Background()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdown(ctx)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	db := database.NewDatabaseInstance(sqlxDB, logger)
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	var graphClient *graph.Client
	var projection platform.GraphProjection
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to create graph client")
			os.Exit(1)
		}
		projection = graph.NewProjection(graphClient, logger)
	}

	var producer *kafka.Producer
	if cfg.KafkaProducerEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaEventTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
	}
	emitter := events.NewEmitter(producer, logger)

	customerRepo := customer.NewRepository(db, logger)
	historyRepo := history.NewRepository(db, logger)

	matchEngine, err := matching.NewEngine(logger, customerRepo, matching.Config{
		MatchThreshold:             cfg.MatchThreshold,
		SimilarityThreshold:        cfg.SimilarityThreshold,
		LowSimilarityThreshold:     cfg.LowSimilarityThreshold,
		AddressSimilarityThreshold: cfg.AddressSimilarityThreshold,
		MaxCandidates:              cfg.MaxMatchCandidates,
		Weights:                    matching.DefaultWeights(),
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create match engine")
		os.Exit(1)
	}

	mergeEngine := merging.NewEngine(logger)
	p := platform.NewPlatform(logger, db, customerRepo, historyRepo, matchEngine, mergeEngine, emitter, projection)
	imports := processor.NewImportProcessor(p, logger, cfg.ImportWorkerCount)
	intake := processor.NewIntakeProcessor(p, logger)
	auditor := audit.NewAuditor(customerRepo, logger)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaImportTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, intake.ProcessMessage)
	}

	if err := registerDependencies(p, imports, auditor, projection); err != nil {
		logger.WithError(err).Error("Failed to register dependencies")
		os.Exit(1)
	}

	checker := health.NewChecker(db, graphClient, version)
	e := buildServer(cfg, logger)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	customerroutes.Register(api.Group("/customers"))
	matchroutes.Register(api.Group("/matches"))
	statsroutes.Register(api.Group("/stats"))

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&startup.Dependency{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			return db.PingContext(ctx)
		},
		StopFunc: func(ctx context.Context) error {
			return db.Close()
		},
	})

	boot.AddDependency(&startup.Dependency{
		Name:  "migrations",
		Needs: []string{"database"},
		StartFunc: func(ctx context.Context) error {
			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return migrations.Migrate(cfg.DatabaseName, driver)
		},
	})

	if graphClient != nil {
		boot.AddDependency(&startup.Dependency{
			Name:  "graph",
			Needs: []string{"database"},
			StartFunc: func(ctx context.Context) error {
				return graphClient.VerifyConnectivity(ctx)
			},
			StopFunc: func(ctx context.Context) error {
				return graphClient.Close(ctx)
			},
		})
	}

	if consumer != nil {
		boot.AddDependency(&startup.Dependency{
			Name:  "kafka-consumer",
			Needs: []string{"migrations"},
			StartFunc: func(ctx context.Context) error {
				return consumer.Start(ctx)
			},
			StopFunc: func(ctx context.Context) error {
				return consumer.Stop()
			},
		})
	}

	boot.AddDependency(&startup.Dependency{
		Name:  "http-server",
		Needs: []string{"migrations"},
		StartFunc: func(ctx context.Context) error {
			go func() {
				if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			checker.SetReady(false)
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	logger.WithFields(map[string]any{"port": cfg.Port, "version": version}).Info("Service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Error("Failed to close producer")
		}
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}
}

func buildZapLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.PrettyLogs {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func initTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: cfg.TracingOTLPProtocol,
		Insecure: true,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}

func registerDependencies(
	p *platform.Platform,
	imports *processor.ImportProcessor,
	auditor *audit.Auditor,
	projection platform.GraphProjection,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[*platform.Platform](container, p); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*processor.ImportProcessor](container, imports); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*audit.Auditor](container, auditor); err != nil {
		return err
	}
	if graphProjection, ok := projection.(*graph.Projection); ok {
		if err := ectoinject.RegisterInstance[*graph.Projection](container, graphProjection); err != nil {
			return err
		}
	}

	return nil
}

func buildServer(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomw.Recover())
	e.HTTPErrorHandler = middleware.Error(logger)

	return e
}
