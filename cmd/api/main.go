package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/api/handler"
	"github.com/event-sphere-org/event-service/internal/api/link"
	"github.com/event-sphere-org/event-service/internal/api/router"
	"github.com/event-sphere-org/event-service/internal/application"
	"github.com/event-sphere-org/event-service/internal/config"
	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/infrastructure/kafka"
	"github.com/event-sphere-org/event-service/internal/infrastructure/postgres"
	"github.com/event-sphere-org/event-service/internal/infrastructure/rabbitmq"
	redisinfra "github.com/event-sphere-org/event-service/internal/infrastructure/redis"
	"github.com/event-sphere-org/event-service/internal/infrastructure/userclient"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
	"github.com/event-sphere-org/event-service/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, ".env の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger.Init(cfg.App.Env)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("起動に失敗しました", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	// Redis
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()
	if err := redisinfra.Ping(ctx, redisClient); err != nil {
		// キャッシュとジョブロックが使えないだけなので起動は続ける
		logger.Warn("Redis に接続できません", zap.Error(err))
	}
	userCache := redisinfra.NewUserCache(redisClient)
	jobLock := redisinfra.NewJobLock(redisClient)

	// メッセージブローカー
	publisher, amqpConn, err := newPublisher(ctx, &cfg.Broker)
	if err != nil {
		return err
	}
	defer publisher.Close()
	if amqpConn != nil {
		defer amqpConn.Close()
	}

	// リポジトリ
	eventRepo := postgres.NewEventRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txManager := postgres.NewTxManager(db)

	// サービス
	users := application.NewUserLookupService(userclient.NewClient(&cfg.UserService), userCache, cfg.Redis.UserCacheTTL, m)

	opts := []application.CoordinatorOption{
		application.WithUserCache(userCache),
		application.WithCoordinatorMetrics(m),
	}
	if cfg.Notification.UsesOutbox() {
		opts = append(opts, application.WithOutbox(outboxRepo, txManager))
	}
	coordinator := application.NewIntegrityCoordinator(eventRepo, categoryRepo, publisher, opts...)

	eventService := application.NewEventService(eventRepo, categoryRepo, users, coordinator)
	categoryService := application.NewCategoryService(categoryRepo, eventRepo, coordinator)

	// ユーザー削除通知の購読
	var consumer *rabbitmq.Consumer
	if amqpConn != nil {
		consumer = rabbitmq.NewConsumer(amqpConn, rabbitmq.ConsumerConfig{
			Exchange:     cfg.Broker.Exchange,
			QueueName:    cfg.Broker.UserDeleteQueue,
			DLQName:      cfg.Broker.UserDeleteDLQ,
			RoutingKeys:  []string{cfg.Broker.UserDeleteRoutingKey},
			ConsumerName: cfg.Broker.ConsumerName,
		}, worker.NewUserDeletionConsumer(coordinator).Handle)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	} else {
		logger.Warn("RabbitMQ を使わない構成のためユーザー削除通知は購読しません",
			zap.String("driver", cfg.Broker.Driver))
	}

	// アウトボックス中継
	var relay *worker.OutboxRelay
	if coordinator.UsesOutbox() {
		relayService := application.NewNotificationRelayService(
			outboxRepo, publisher, m,
			cfg.Notification.RelayBatchSize, cfg.Notification.SentRetention, jobLock,
		)
		relay = worker.NewOutboxRelay(relayService, cfg.Notification.RelayInterval, cfg.Notification.CleanupInterval)
		go relay.Start(ctx)
	}

	e := router.New(router.Deps{
		EventService:    eventService,
		CategoryService: categoryService,
		HealthChecks: map[string]handler.HealthCheck{
			"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) },
		},
		Metrics:       m,
		MetricsConfig: cfg.Metrics,
		Routes:        link.DefaultRoutes,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("notification_mode", cfg.Notification.Mode),
			zap.String("broker", cfg.Broker.Driver),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	}

	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Warn("コンシューマー停止エラー", zap.Error(err))
		}
	}
	if relay != nil {
		relay.Stop()
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

// newPublisher は設定されたドライバーの削除通知パブリッシャーを作る
// RabbitMQ の場合はコンシューマーと共有する接続も返す
func newPublisher(ctx context.Context, cfg *config.BrokerConfig) (notification.Publisher, *rabbitmq.Connection, error) {
	keys := notification.RoutingKeys{
		notification.KindEvent:    cfg.EventDeleteRoutingKey,
		notification.KindCategory: cfg.CategoryDeleteRoutingKey,
	}

	switch cfg.Driver {
	case config.BrokerDriverKafka:
		p, err := kafka.NewPublisher(cfg.KafkaBrokers, keys, cfg.PublishTimeout)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case config.BrokerDriverRabbitMQ:
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.ConnectAttempts, cfg.ConnectRetryDelay)
		if err != nil {
			return nil, nil, err
		}
		p, err := rabbitmq.NewPublisher(conn, cfg.Exchange, keys, cfg.PublishTimeout)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return p, conn, nil
	default:
		return nil, nil, fmt.Errorf("未対応のブローカーです: %s", cfg.Driver)
	}
}
