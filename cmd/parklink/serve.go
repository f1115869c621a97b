package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/parklink/config"
	"github.com/Ramsey-B/parklink/internal/repositories/federalpark"
	"github.com/Ramsey-B/parklink/internal/repositories/linkrun"
	"github.com/Ramsey-B/parklink/internal/repositories/parklink"
	"github.com/Ramsey-B/parklink/internal/repositories/wikidatapark"
	linkservice "github.com/Ramsey-B/parklink/internal/services/linking"
	"github.com/Ramsey-B/parklink/pkg/database"
	"github.com/Ramsey-B/parklink/pkg/events"
	"github.com/Ramsey-B/parklink/pkg/graph"
	"github.com/Ramsey-B/parklink/pkg/kafka"
	"github.com/Ramsey-B/parklink/pkg/linking"
	"github.com/Ramsey-B/parklink/pkg/metrics"
	"github.com/Ramsey-B/parklink/pkg/middleware"
	parkredis "github.com/Ramsey-B/parklink/pkg/redis"
	"github.com/Ramsey-B/parklink/pkg/routes/health"
	"github.com/Ramsey-B/parklink/pkg/routes/links"
	"github.com/Ramsey-B/parklink/pkg/routes/runs"
	"github.com/Ramsey-B/parklink/pkg/startup"
	"github.com/Ramsey-B/parklink/pkg/tracing"
	"github.com/Ramsey-B/parklink/pkg/tracing/exporters"
)

const version = "0.1.0"

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve the link run HTTP API",
	RunE:  runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCommand)
}

// server holds the process dependencies started by the startup orchestrator
type server struct {
	cfg    *config.Config
	logger ectologger.Logger

	db          database.DB
	redis       *parkredis.Client
	graph       *graph.Client
	producer    *kafka.Producer
	stopTracing func(context.Context) error

	checker   *health.Checker
	echo      *echo.Echo
	serverErr chan error
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	s := &server{
		cfg:       cfg,
		logger:    logger,
		checker:   health.NewChecker(version),
		serverErr: make(chan error, 1),
	}

	deps := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	deps.AddDependency(&startup.Dependency{Name: "tracing", StartFunc: s.startTracing, StopFunc: s.shutdownTracing})
	deps.AddDependency(&startup.Dependency{Name: "database", StartFunc: s.startDatabase, StopFunc: s.stopDatabase})
	deps.AddDependency(&startup.Dependency{Name: "migrations", Requires: []string{"database"}, StartFunc: s.runMigrations})
	httpRequires := []string{"tracing", "migrations"}
	if cfg.RedisEnabled {
		deps.AddDependency(&startup.Dependency{Name: "redis", StartFunc: s.startRedis, StopFunc: s.stopRedis})
		httpRequires = append(httpRequires, "redis")
	}
	if cfg.GraphEnabled {
		deps.AddDependency(&startup.Dependency{Name: "graph", StartFunc: s.startGraph, StopFunc: s.stopGraph})
		httpRequires = append(httpRequires, "graph")
	}
	if cfg.KafkaEnabled {
		deps.AddDependency(&startup.Dependency{Name: "kafka", StartFunc: s.startKafka, StopFunc: s.stopKafka})
		httpRequires = append(httpRequires, "kafka")
	}
	deps.AddDependency(&startup.Dependency{Name: "http", Requires: httpRequires, StartFunc: s.startHTTP, StopFunc: s.stopHTTP})

	if err := deps.Start(ctx); err != nil {
		return err
	}
	s.checker.SetReady(true)

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-s.serverErr:
		logger.WithError(err).Error("HTTP server stopped unexpectedly")
	}
	s.checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if stopErr := deps.Stop(shutdownCtx); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func (s *server) startTracing(ctx context.Context) error {
	s.stopTracing = func(context.Context) error { return nil }
	if !s.cfg.TracingEnabled {
		return nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: s.cfg.TracingEndpoint,
		Protocol: s.cfg.TracingProtocol,
		Insecure: true,
	})
	if err != nil {
		return err
	}
	s.stopTracing = tracing.Setup(s.cfg.AppName, exporter)
	return nil
}

func (s *server) shutdownTracing(ctx context.Context) error {
	return s.stopTracing(ctx)
}

func (s *server) startDatabase(ctx context.Context) error {
	conn, err := database.Open(ctx, databaseConfig(s.cfg), s.logger)
	if err != nil {
		return err
	}
	s.db = conn
	s.checker.AddCheck("database", conn.PingContext)
	return nil
}

func (s *server) stopDatabase(context.Context) error {
	return s.db.Close()
}

func (s *server) runMigrations(context.Context) error {
	return migrationService(s.cfg, s.logger).Migrate(s.db)
}

func (s *server) startRedis(ctx context.Context) error {
	client, err := parkredis.NewClient(ctx, s.cfg.RedisURL, s.logger)
	if err != nil {
		return err
	}
	s.redis = client
	s.checker.AddCheck("redis", client.Ping)
	return nil
}

func (s *server) stopRedis(context.Context) error {
	return s.redis.Close()
}

func (s *server) startGraph(ctx context.Context) error {
	client, err := graph.NewClient(graph.Config{
		Host:     s.cfg.GraphDBHost,
		Port:     s.cfg.GraphDBPort,
		Username: s.cfg.GraphDBUser,
		Password: s.cfg.GraphDBPassword,
	}, s.logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return err
	}
	s.graph = client
	s.checker.AddCheck("graph", client.VerifyConnectivity)
	return nil
}

func (s *server) stopGraph(ctx context.Context) error {
	return s.graph.Close(ctx)
}

func (s *server) startKafka(context.Context) error {
	s.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      s.cfg.KafkaBrokers,
		Topic:        s.cfg.KafkaOutputTopic,
		BatchSize:    s.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(s.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: s.cfg.KafkaRequiredAcks,
		Compression:  s.cfg.KafkaCompression,
	}, s.logger)
	return nil
}

func (s *server) stopKafka(context.Context) error {
	return s.producer.Close()
}

// linkService wires the link run service from whatever dependencies are enabled
func (s *server) linkService() (*linkservice.Service, *graph.LinkService, error) {
	scorer, err := s.cfg.Scorer()
	if err != nil {
		return nil, nil, err
	}
	opts := s.cfg.LinkOptions()
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	deps := linkservice.Dependencies{
		Federal:   federalpark.NewRepository(s.db, s.logger),
		Wikidata:  wikidatapark.NewRepository(s.db, s.logger),
		Runs:      linkrun.NewRepository(s.db, s.logger),
		Persister: parklink.NewRepository(s.db, s.logger),
		Linker:    linking.NewLinker(scorer, s.logger),
	}
	if s.redis != nil {
		deps.Locker = parkredis.NewLocker(s.redis, "")
		deps.Progress = parkredis.NewProgressStore(s.redis, s.cfg.RedisProgressTTL)
	}
	var graphLinks *graph.LinkService
	if s.graph != nil {
		graphLinks = graph.NewLinkService(s.graph, s.logger)
		deps.Graph = graphLinks
	}
	if s.producer != nil {
		deps.Events = events.NewEmitter(s.producer, s.logger)
	}

	return linkservice.NewService(deps, linkservice.Config{
		Options:       opts,
		LockTTL:       s.cfg.RedisLockTTL,
		ProgressEvery: s.cfg.LinkProgressEvery,
	}, s.logger), graphLinks, nil
}

func (s *server) startHTTP(context.Context) error {
	service, graphLinks, err := s.linkService()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(s.logger)
	e.Server.ReadTimeout = time.Duration(s.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(s.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(s.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(s.cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = s.cfg.MaxHeaderBytes

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: s.cfg.AllowOrigins,
		AllowMethods: s.cfg.AllowMethods,
	}))
	if s.cfg.TracingEnabled {
		e.Use(otelecho.Middleware(s.cfg.AppName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(s.logger))

	s.checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1")
	runs.NewHandler(service, s.logger).Register(api.Group("/link-runs"))
	linkHandler := links.NewHandler(parklink.NewRepository(s.db, s.logger), nil)
	if graphLinks != nil {
		linkHandler = links.NewHandler(parklink.NewRepository(s.db, s.logger), graphLinks)
	}
	linkHandler.Register(api.Group("/links"))

	s.echo = e
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serverErr <- err
		}
	}()
	return nil
}

func (s *server) stopHTTP(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
