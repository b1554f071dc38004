package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mate_chat/internal/config"
	"mate_chat/internal/handler"
	"mate_chat/internal/hub"
	"mate_chat/internal/middleware"
	"mate_chat/internal/repository"
	"mate_chat/internal/service"
	"mate_chat/pkg/logger"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	var appLogger logger.Logger
	if cfg.Log.Format == "console" {
		appLogger = logger.NewConsole(cfg.Log.Level)
	} else {
		appLogger = logger.New(cfg.Log.Level)
	}

	ctx := context.Background()
	backends := repository.Backends{}

	// Подключение к PostgreSQL (сообщения и/или аккаунты)
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		dbPool, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()

		if err := repository.Migrate(ctx, dbPool); err != nil {
			appLogger.Fatal("Failed to migrate database", "error", err)
		}
		appLogger.Info("Database connection established")
		backends.Postgres = dbPool
	}

	// Подключение к Redis
	if cfg.RedisRequired() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established", "addr", cfg.Redis.Addr)
		backends.Redis = rdb
	}

	// Локальное хранилище Badger
	if cfg.Storage.Driver == config.StorageDriverBadger {
		db, err := badger.Open(badger.DefaultOptions(cfg.Storage.BadgerPath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			appLogger.Fatal("Failed to open badger", "error", err, "path", cfg.Storage.BadgerPath)
		}
		defer db.Close()
		appLogger.Info("Badger opened", "path", cfg.Storage.BadgerPath)
		backends.Badger = db
	}

	// Инициализация репозиториев
	repos, err := repository.NewRepositories(cfg, backends, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize repositories", "error", err)
	}
	if closer, ok := repos.Message.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				appLogger.Error("Failed to close message store", "error", err)
			}
		}()
	}

	// Маршрутизатор комнат
	chatRouter := hub.NewRouter(cfg.Chat.MaxRoomMembers, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, chatRouter, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, chatRouter, cfg, appLogger)

	// Настройка роутера
	router := handler.SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage_driver", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown не ждёт hijacked соединений, поэтому сокеты закрываем сами
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	chatRouter.CloseAll()

	// Хранилища закрываются в defer, поэтому сначала дожидаемся текущих отправок
	if err := chatRouter.Wait(shutdownCtx); err != nil {
		appLogger.Warn("Chat sessions did not finish in time", "error", err)
	}

	appLogger.Info("Server exited")
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	// Проверка подключения к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
