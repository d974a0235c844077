package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"billed/internal/amqp"
	"billed/internal/log"
	"billed/internal/services"
	"billed/internal/storage"
	"billed/internal/store/api"
	"billed/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case APIBackend:
		return f.createAPIBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.ReceiptsDir, config.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: bills stay pending and the worker sweep picks them up
	var publisher services.Publisher
	closers := []io.Closer{}
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = amqpClient
			closers = append(closers, amqpClient)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	closers = append(closers, repo)

	svc := services.NewBillService(repo, publisher, closers...)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"receipts_dir", config.ReceiptsDir,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Store:    svc,
		Receipts: svc,
		Ready:    repo.Ping,
		Cleanup:  svc.Close,
	}, nil
}

func (f *DefaultFactory) createAPIBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client := api.New(config.StoreAPIURL, &http.Client{Timeout: 30 * time.Second})

	f.logger.InfoContext(ctx, "Initialized store API backend", "url", config.StoreAPIURL)

	return &BackendResult{Store: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	s := memory.New(config.PublicBaseURL)

	f.logger.InfoContext(ctx, "Initialized memory backend")

	return &BackendResult{Store: s, Receipts: s}, nil
}
