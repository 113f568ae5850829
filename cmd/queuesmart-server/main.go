package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"queuesmart/backend/internal/auth"
	"queuesmart/backend/internal/config"
	"queuesmart/backend/internal/notify"
	"queuesmart/backend/internal/service/appointments"
	"queuesmart/backend/internal/service/availability"
	"queuesmart/backend/internal/service/notifications"
	"queuesmart/backend/internal/store/postgres"
	"queuesmart/backend/internal/store/sqlite"
	"queuesmart/backend/internal/store/sqlstore"
	"queuesmart/backend/internal/telemetry"
	grpcTransport "queuesmart/backend/internal/transport/grpc"
	httpTransport "queuesmart/backend/internal/transport/http"
)

const serviceName = "queuesmart-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("db_driver", cfg.DatabaseDriver),
		slog.Any("notify_sinks", cfg.NotifySinks),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := openDatabase(ctx, log, cfg)
	if err != nil {
		log.Error("database connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	repo := sqlstore.New(db)
	checks := map[string]httpTransport.Check{"database": repo.Ping}

	dispatcher := notify.NewDispatcher()
	var closers []func() error
	for _, sink := range cfg.NotifySinks {
		switch sink {
		case config.SinkLog:
			dispatcher.Register(sink, notify.NewLogEmitter(log))
		case config.SinkStore:
			dispatcher.Register(sink, notify.NewStoreEmitter(repo))
		case config.SinkRedis:
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			dispatcher.Register(sink, notify.NewRedisEmitter(rdb, cfg.RedisStream, cfg.RedisMaxLen))
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			closers = append(closers, rdb.Close)
		case config.SinkKafka:
			writer := notify.NewKafkaWriter(cfg.KafkaBrokers)
			dispatcher.Register(sink, notify.NewKafkaEmitter(writer, cfg.KafkaTopic))
			checks["kafka"] = notify.KafkaReadyCheck(cfg.KafkaBrokers)
			closers = append(closers, writer.Close)
		}
	}
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("notification sink close failed", slog.Any("err", err))
			}
		}
	}()
	log.Info("notification sinks ready", slog.Any("sinks", dispatcher.Sinks()))

	apptSvc := appointments.NewService(repo, dispatcher, log)
	slotSvc := availability.NewService(repo, log)
	inboxSvc := notifications.NewService(repo, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcTransport.DefaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.AuthInterceptor(tokens, log),
		),
	)
	grpcTransport.RegisterQueueServiceServer(grpcServer, grpcTransport.NewQueueServer(apptSvc, slotSvc, inboxSvc, log))

	app := httpTransport.NewApp(httpTransport.Config{
		Handlers:       httpTransport.NewHandlers(apptSvc, slotSvc, inboxSvc),
		Health:         httpTransport.NewHealthHandler(serviceName, cfg.Version, checks),
		Auth:           tokens,
		Log:            log,
		RequestTimeout: cfg.HTTPRequestTimeout,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr), slog.String("http_addr", cfg.HTTPAddr))

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			exitCode = 1
		}
	}

	shutdown(log, grpcServer, app, cfg.ShutdownTimeout)

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		log.Warn("tracer shutdown failed", slog.Any("err", err))
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func openDatabase(ctx context.Context, log *slog.Logger, cfg config.Config) (*bun.DB, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		log.Info("opening sqlite database", slog.String("path", cfg.SQLitePath))
		return sqlite.Open(ctx, cfg.SQLitePath)
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		AutoMigrate:     cfg.AutoMigrate,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("postgres open failed", args...)
		return nil, err
	}
	return db, nil
}

func shutdown(log *slog.Logger, s *grpc.Server, app *fiber.App, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	if err := app.ShutdownWithTimeout(timeout); err != nil {
		log.Warn("http shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
