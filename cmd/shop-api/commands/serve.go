package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/SirPen9uin/shop-api/config"
	"github.com/SirPen9uin/shop-api/internal/server"
	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/health"
	"github.com/SirPen9uin/shop-api/pkg/kafka"
	"github.com/SirPen9uin/shop-api/pkg/redis"
	"github.com/SirPen9uin/shop-api/pkg/repositories"
	"github.com/SirPen9uin/shop-api/pkg/startup"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
	"github.com/SirPen9uin/shop-api/pkg/tracing/exporters"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := newService(cfg)
		if err := svc.start.Start(ctx); err != nil {
			svc.shutdown()
			return err
		}
		svc.checker.SetReady(true)
		logger.WithContext(ctx).Info("Service started")

		<-ctx.Done()
		logger.Info("Shutting down")
		svc.checker.SetReady(false)
		return svc.shutdown()
	},
}

// service holds what serve starts, in the order the startup graph brings it up.
type service struct {
	cfg     config.Config
	start   *startup.Startup
	checker *health.Checker

	db       database.DB
	redis    *redis.Client
	consumer *kafka.Consumer
	http     *echo.Echo
}

func newService(cfg config.Config) *service {
	s := &service{
		cfg:     cfg,
		start:   startup.NewStartup(logger, cfg.StartupMaxAttempts),
		checker: health.NewChecker(cfg.Version),
	}

	var stopTracing func(context.Context) error
	s.start.AddDependency(startup.Func{
		Name: "tracing",
		StartFunc: func(ctx context.Context) error {
			endpoint := ""
			if cfg.OTLPEnabled {
				endpoint = cfg.OTLPEndpoint
			}
			exporter, err := exporters.New(ctx, exporters.OTLPConfig{
				Endpoint: endpoint,
				Protocol: cfg.OTLPProtocol,
				Insecure: cfg.OTLPInsecure,
			})
			if err != nil {
				return err
			}
			stopTracing = tracing.Setup(cfg.AppName, exporter)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if stopTracing == nil {
				return nil
			}
			return stopTracing(ctx)
		},
	})

	s.start.AddDependency(startup.Func{
		Name: "database",
		StartFunc: func(ctx context.Context) error {
			conn, err := database.Open(ctx, cfg.DatabaseDSN(), poolConfig(), logger)
			if err != nil {
				return err
			}
			s.db = conn
			s.checker.AddCheck("database", health.PingCheck(conn))
			return nil
		},
		StopFunc: func(context.Context) error {
			return s.db.Close()
		},
	})

	s.start.AddDependency(startup.Func{
		Name:    "migrations",
		Parents: []string{"database"},
		StartFunc: func(context.Context) error {
			return migrateDatabase(cfg)
		},
	})

	s.start.AddDependency(startup.Func{
		Name: "redis",
		StartFunc: func(ctx context.Context) error {
			client, err := redis.NewClient(ctx, redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			s.redis = client
			s.checker.AddCheck("redis", client.Ping)
			return nil
		},
		StopFunc: func(context.Context) error {
			return s.redis.Close()
		},
	})

	s.start.AddDependency(startup.Func{
		Name:      "kafka",
		Parents:   []string{"tracing", "migrations", "redis"},
		StartFunc: s.startConsumer,
		StopFunc: func(ctx context.Context) error {
			if s.consumer == nil {
				return nil
			}
			return s.consumer.Stop(ctx)
		},
	})

	s.start.AddDependency(startup.Func{
		Name:    "http",
		Parents: []string{"tracing", "migrations"},
		StartFunc: func(context.Context) error {
			s.http = server.New(cfg, logger, s.checker)
			go server.Serve(s.http, logger)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			return s.http.Shutdown(ctx)
		},
	})

	return s
}

func (s *service) startConsumer(ctx context.Context) error {
	if !s.cfg.KafkaConsumerEnabled {
		s.checker.AddCheck("kafka", func(context.Context) error {
			return health.Degraded("identity consumer disabled")
		})
		return nil
	}

	handler := kafka.NewIdentityHandler(
		repositories.NewUserRepository(s.db, logger),
		redis.NewDeduper(s.redis, s.cfg.IdentityEventDedupeTTL),
		logger,
	)
	s.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       s.cfg.KafkaBrokerList(),
		Topic:         s.cfg.KafkaIdentityTopic,
		ConsumerGroup: s.cfg.KafkaConsumerGroup,
	}, logger, handler.Handle)

	if err := s.consumer.Start(ctx); err != nil {
		return err
	}
	s.checker.AddCheck("kafka", s.consumer.Healthy)
	return nil
}

func (s *service) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.start.Stop(ctx)
}
