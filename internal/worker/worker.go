package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pdf-rocket/internal/broker"
	kafka_impl "pdf-rocket/internal/broker/kafka"
	"pdf-rocket/internal/config"
	"pdf-rocket/internal/domain"
	postgres_repo "pdf-rocket/internal/repository/conversion/db/postgres"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

var errInvalidEvent = errors.New("invalid conversion event")

type eventRepository interface {
	Save(ctx context.Context, event *domain.ConversionEvent) (bool, error)
}

// Worker records conversion events from Kafka into Postgres.
type Worker struct {
	logger      *zlog.Zerolog
	db          *dbpg.DB
	consumer    broker.Consumer
	repo        eventRepository
	retries     retry.Strategy
	concurrency int
	wg          sync.WaitGroup
}

func NewWorker(cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	retries := cfg.DefaultRetryStrategy()
	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}
	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.EventsTopic).
		Str("group", cfg.Kafka.GroupID).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Worker configuration")

	w := newWorker(kafka_impl.NewConsumerClient(cfg), postgres_repo.NewConversionsRepository(db, retries), retries, cfg.Worker.Concurrency, logger)
	w.db = db
	return w, nil
}

func newWorker(consumer broker.Consumer, repo eventRepository, retries retry.Strategy, concurrency int, logger *zlog.Zerolog) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		logger:      logger,
		consumer:    consumer,
		repo:        repo,
		retries:     retries,
		concurrency: concurrency,
	}
}

func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		w.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal, stopping worker...")
		cancel()
	}()

	w.run(ctx)

	if w.db != nil && w.db.Master != nil {
		w.db.Master.Close()
	}
	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close consumer")
	}

	w.logger.Info().Msg("Worker stopped gracefully")
	return nil
}

// run blocks until ctx is cancelled and every processing goroutine has returned.
func (w *Worker) run(ctx context.Context) {
	w.logger.Info().Int("concurrency", w.concurrency).Msg("Starting worker")

	messages := make(chan kafka.Message, w.concurrency*2)
	go w.consumer.StartConsuming(ctx, messages, w.retries)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.processWorker(ctx, id, messages)
		}(i)
	}

	<-ctx.Done()
	w.logger.Info().Msg("Shutting down worker gracefully...")
	w.wg.Wait()
}

func (w *Worker) processWorker(ctx context.Context, id int, messages <-chan kafka.Message) {
	w.logger.Debug().Int("worker_id", id).Msg("Worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			w.handle(ctx, id, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, id int, msg kafka.Message) {
	startTime := time.Now()

	err := w.safeProcessMessage(ctx, id, msg)
	if err != nil && !errors.Is(err, errInvalidEvent) {
		w.logger.Error().
			Err(err).
			Int("worker_id", id).
			Int64("offset", msg.Offset).
			Msg("Failed to process message")
		return
	}

	// Malformed events are committed so they do not block the partition.
	if err := w.consumer.Commit(ctx, msg); err != nil {
		w.logger.Error().
			Err(err).
			Int("worker_id", id).
			Int64("offset", msg.Offset).
			Msg("Failed to commit message")
		return
	}

	w.logger.Debug().
		Int("worker_id", id).
		Int64("offset", msg.Offset).
		Dur("duration", time.Since(startTime)).
		Msg("Message processed and committed")
}

func (w *Worker) safeProcessMessage(ctx context.Context, workerID int, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Int64("offset", msg.Offset).
				Msg("Panic recovered while processing message")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processMessage(ctx, msg)
}

func (w *Worker) processMessage(ctx context.Context, msg kafka.Message) error {
	var event domain.ConversionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Failed to unmarshal conversion event")
		return fmt.Errorf("%w: %v", errInvalidEvent, err)
	}
	if event.ID == "" {
		w.logger.Warn().Int64("offset", msg.Offset).Msg("Conversion event without id")
		return fmt.Errorf("%w: missing id", errInvalidEvent)
	}

	inserted, err := w.repo.Save(ctx, &event)
	if err != nil {
		return err
	}

	w.logger.Info().
		Str("event_id", event.ID).
		Str("filename", event.OriginalName).
		Str("status", string(event.Status)).
		Bool("duplicate", !inserted).
		Msg("Conversion recorded")
	return nil
}
