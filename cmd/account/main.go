package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samandr77/microservices/account/internal/api"
	"github.com/samandr77/microservices/account/internal/clients/gomail"
	"github.com/samandr77/microservices/account/internal/clients/storage"
	"github.com/samandr77/microservices/account/internal/repository"
	"github.com/samandr77/microservices/account/internal/service"
	"github.com/samandr77/microservices/account/pkg/broker"
	"github.com/samandr77/microservices/account/pkg/config"
	"github.com/samandr77/microservices/account/pkg/hasher"
	"github.com/samandr77/microservices/account/pkg/job"
	"github.com/samandr77/microservices/account/pkg/lock"
	"github.com/samandr77/microservices/account/pkg/logger"
	"github.com/samandr77/microservices/account/pkg/postgres"
)

const (
	ReadTimeout       = 10 * time.Second
	WriteTimeout      = 10 * time.Second
	IdleTimeout       = 60 * time.Second
	ReadHeaderTimeout = 2 * time.Second
)

//nolint:funlen
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	pool, err := postgres.ConnectToPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	panicOnErr("connect to postgres", err)

	defer pool.Close()

	err = postgres.UpMigrations(ctx, cfg.PostgresDSN)
	panicOnErr("up migrations", err)

	repo := repository.NewAccountRepository(pool)

	var mailer service.Mailer

	switch cfg.Mailer.Transport {
	case config.MailerTransportKafka:
		producer := broker.NewProducer(l, cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		defer producer.Close()

		mailer = producer
	default:
		mailer = gomail.New(cfg.Mailer)
	}

	var locker service.Locker

	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		err = rdb.Ping(ctx).Err()
		panicOnErr("ping redis", err)

		locker = lock.NewRedis(rdb, cfg.Lock.TTL)
	default:
		locker = lock.NewLocal()
	}

	avatars, err := storage.NewMinio(cfg.Storage)
	panicOnErr("create minio client", err)

	err = avatars.EnsureBucket(ctx)
	panicOnErr("ensure avatar bucket", err)

	tokens, err := service.NewTokens(cfg.JWT)
	panicOnErr("load jwt keys", err)

	passwordHasher := hasher.NewBcrypt(cfg.Password.HashCost)
	otp := service.NewOTPEngine(cfg.OTP, repo, mailer, hasher.NewBcrypt(cfg.OTP.HashCost), locker)

	s := service.NewService(cfg, repo, otp, mailer, avatars, passwordHasher, tokens)

	jobs := job.NewService().
		RegisterJob("delete_expired_refresh_tokens", cfg.Jobs.RefreshTokenCleanupInterval, s.DeleteExpiredRefreshTokens)
	jobs.Start(ctx)

	h := api.NewHandler(s, cfg.Password.MinEntropy, cfg.CookieSecure)
	mw := api.NewMiddleware(s, cfg.TrustProxyHeaders)
	router := api.NewRouter(h, mw, cfg.CorsOrigins)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	go func() {
		l.Info("http server started", "port", cfg.HTTPPort, "mailer", cfg.Mailer.Transport, "lock", cfg.Lock.Backend)

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}

		l.Debug("http server stopped")
	}()

	waitSignal(l, cancel, server)
	jobs.Stop()
}

func waitSignal(l *slog.Logger, cancel context.CancelFunc, server *http.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	sig := <-ch

	l.Info("got OS signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		l.Error("server shutdown", "error", err)
	}
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
