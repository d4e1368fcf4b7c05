package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"listing-ingest-service/internal/adapters/failurefile"
	logger_adapter "listing-ingest-service/internal/adapters/logger"
	postgres_adapter "listing-ingest-service/internal/adapters/postgres"
	rabbitmq_adapter "listing-ingest-service/internal/adapters/rabbitmq"
	"listing-ingest-service/internal/adapters/rest"
	"listing-ingest-service/internal/adapters/tabular"
	"listing-ingest-service/internal/configs"
	"listing-ingest-service/internal/constants"
	"listing-ingest-service/internal/core/port"
	"listing-ingest-service/internal/core/usecase"
	fluentlogger "listing-ingest-service/pkg/fluent_logger"
	"listing-ingest-service/pkg/postgres"
	"listing-ingest-service/pkg/rabbitmq/rabbitmq_common"
	"listing-ingest-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	failureFilePathPrefix = "/api/v1/imports/failures/"
	shutdownTimeout       = 15 * time.Second
)

// App - корень композиции сервиса
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	connManager  *rabbitmq_common.ConnectionManager
	producer     *rabbitmq_producer.Publisher
	logger       port.LoggerPort
}

// NewApp - composition root: здесь создаются и связываются все зависимости
func NewApp(appConfig *configs.AppConfig) (*App, error) {
	if appConfig == nil {
		return nil, errors.New("application configuration is nil")
	}

	var err error

	// --- логгеры ---
	activeLoggers := []port.LoggerPort{
		logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
			Level:    parseLogLevel(appConfig.StdoutLogger.Level),
			UseColor: true,
		}),
	}

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
			Async:     true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			fluentClient.Close()
			return nil, fmt.Errorf("failed to create fluentbit adapter: %w", err)
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	application := &App{config: appConfig, fluentClient: fluentClient, logger: appLogger}

	// --- postgres ---
	application.dbPool, err = postgres.NewClient(context.Background(), postgres.Config{
		DatabaseURL:    appConfig.Database.URL,
		MaxConns:       appConfig.Database.MaxConns,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		application.close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool", nil)

	uowFactory, err := postgres_adapter.NewUnitOfWorkFactory(application.dbPool)
	if err != nil {
		application.close()
		return nil, err
	}
	failedRecordRepo, err := postgres_adapter.NewFailedRecordRepository(application.dbPool)
	if err != nil {
		application.close()
		return nil, err
	}
	// чтение без транзакции для проверки запроса на слияние
	communityReader := postgres_adapter.NewCommunityRepository(application.dbPool)

	// --- события ---
	var reporter port.ImportReporterPort = rabbitmq_adapter.NoopReporter{}
	if appConfig.RabbitMQ.Enabled {
		reporter, err = application.initReporter(baseLogger)
		if err != nil {
			appLogger.Error("Failed to initialize RabbitMQ reporter", err, nil)
			application.close()
			return nil, err
		}
	} else {
		appLogger.Info("RabbitMQ disabled, import reports are not published", nil)
	}

	// --- use cases ---
	resolver := usecase.NewCommunityResolver()
	upsertUC := usecase.NewUpsertPropertyUseCase(uowFactory, resolver, failedRecordRepo)
	importUC := usecase.NewImportListingsUseCase(
		tabular.NewDecoder(),
		usecase.NewListingMapper(),
		upsertUC,
		uowFactory,
		failedRecordRepo,
		failurefile.NewStore(appConfig.Import.FailureFileTTL, failureFilePathPrefix),
		reporter,
		usecase.ImportConfig{ChunkSize: appConfig.Import.ChunkSize, MaxJSONRecords: appConfig.Import.MaxJSONRecords},
	)
	mergeUC := usecase.NewMergeCommunitiesUseCase(communityReader, uowFactory, reporter)
	failedRecordsUC := usecase.NewFailedRecordsUseCase(failedRecordRepo)
	appLogger.Info("All use cases initialized", nil)

	// --- REST ---
	router := rest.NewRouter(
		rest.NewImportHandler(importUC, appConfig.Import.UploadMaxBytes, appConfig.Import.ErrorsLimit),
		rest.NewMergeHandler(mergeUC),
		rest.NewFailedRecordsHandler(failedRecordsUC),
		baseLogger,
	)
	application.apiServer = rest.NewServer(appConfig.Rest.PORT, router, baseLogger.WithFields(port.Fields{"component": "rest"}))
	appLogger.Info("REST API server configured", nil)

	return application, nil
}

func (a *App) initReporter(baseLogger port.LoggerPort) (port.ImportReporterPort, error) {
	connBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
	connManager, err := rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: a.config.RabbitMQ.URL}, connBridge)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.connManager = connManager

	producer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		ExchangeName:             constants.ExchangeListingEvents,
		ExchangeType:             "topic",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
	}, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	a.producer = producer

	return rabbitmq_adapter.NewEventReporterAdapter(producer, constants.RoutingKeyImportFinished, constants.RoutingKeyCommunitiesMerged)
}

// Run запускает HTTP-сервер и ждет сигнала завершения
func (a *App) Run() error {
	defer a.close()

	errorsCh := make(chan error, 1)
	go func() {
		if err := a.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", port.Fields{"port": a.config.Rest.PORT})

	var runErr error
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case runErr = <-errorsCh:
		a.logger.Error("HTTP server failed, shutting down", runErr, nil)
	}

	// незавершенные импорты дорабатывают текущий чанк
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.apiServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("Error during API server shutdown", err, nil)
	}

	return runErr
}

// close освобождает ресурсы в обратном порядке создания
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed", nil)
	}

	a.logger.Info("Application shut down", nil)

	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			// fluent уже недоступен, пишем в stdout
			fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
		}
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
