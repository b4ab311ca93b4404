// Cyclone Worker — удалённый воркер распределённого пула.
//
// Worker:
//   - Получает partition.ready из RabbitMQ
//   - Обрабатывает диапазон записей датасета зарегистрированным циклом
//   - Сохраняет бандл и лог партиции в Postgres
//   - Отправляет partition.completed контроллеру
//
// HTTP (WORKER_PORT): /healthz, /metrics, /api/v1/partitions/{id},
// /api/v1/dispatches/{id}/partitions, /api/v1/jobs/{job}/runs.
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Cyclone/internal/analysis"
	"github.com/shaiso/Cyclone/internal/api"
	"github.com/shaiso/Cyclone/internal/config"
	"github.com/shaiso/Cyclone/internal/mq"
	"github.com/shaiso/Cyclone/internal/repo"
	"github.com/shaiso/Cyclone/internal/telemetry"
	"github.com/shaiso/Cyclone/internal/worker"
)

func main() {
	env := config.FromEnv()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cyclone-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, env.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// RabbitMQ
	var publisher worker.CompletionPublisher
	mqConn, err := mq.NewConnection(env.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		publisher = mq.NewPublisher(mqConn, logger)
	}

	partitions := repo.NewPartitionRepo(pool)
	w := worker.New(worker.Config{
		Store:     partitions,
		Publisher: publisher,
		Conn:      mqConn,
		Cycles:    analysis.NewRegistry(),
		LogLevel:  telemetry.ParseLevel(env.LogLevel),
		Logger:    logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP: /healthz, /metrics и просмотр партиций
	handler := api.NewHandler(api.Config{
		Partitions: partitions,
		Runs:       repo.NewCycleRunRepo(pool),
		Healthy:    func() bool { return !w.IsStopped() },
		Logger:     logger,
	})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	addr := ":" + env.WorkerPort
	go func() {
		logger.Info("listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("cyclone-worker stopped")
}
