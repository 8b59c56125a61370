package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pdf-rocket/internal/broker"
	kafka_impl "pdf-rocket/internal/broker/kafka"
	"pdf-rocket/internal/config"
	"pdf-rocket/internal/converter"
	conversion_h "pdf-rocket/internal/http-server/handler/conversion"
	"pdf-rocket/internal/http-server/router"
	minio_repo "pdf-rocket/internal/repository/conversion/cloud/minio"
	"pdf-rocket/internal/scratch"
	"pdf-rocket/internal/session"
	conversion_uc "pdf-rocket/internal/usecase/conversion"

	"github.com/dustin/go-humanize"
	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	sessions *session.Manager
	producer broker.Producer
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	retries := cfg.DefaultRetryStrategy()

	scratchDir := scratch.New(cfg.Scratch.Dir, logger)
	if err := scratchDir.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to prepare scratch directory: %w", err)
	}

	conv := converter.New(converter.Options{
		Binary:        cfg.Converter.Binary,
		BasicZoom:     cfg.Converter.BasicZoom,
		FormattedZoom: cfg.Converter.FormattedZoom,
		Timeout:       cfg.Converter.Timeout,
	}, logger)

	usecase := conversion_uc.NewConversionUsecase(conv, scratchDir, logger, cfg.Upload.MaxFileSize)

	if cfg.Storage.Enabled {
		fileRepo, err := minio_repo.NewMinIORepository(cfg, retries, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create file repository: %w", err)
		}
		usecase.WithArchive(fileRepo)
	}

	var producer broker.Producer
	if cfg.Kafka.Enabled {
		client := kafka_impl.NewProducerClient(cfg)
		usecase.WithEvents(client)
		producer = client
	}

	sessions := session.NewManager(cfg.Session.TTL, cfg.Upload.HistoryLimit, logger)

	conversionHandler := conversion_h.NewConversionHandler(usecase, sessions, conversion_h.Config{
		CookieName:   cfg.Session.CookieName,
		MaxBatchSize: cfg.Upload.MaxBatchSize,
		SessionTTL:   cfg.Session.TTL,
	}, logger)

	h := &router.Handler{
		ConversionHandler: conversionHandler,
	}

	mux := router.SetupRouter(h, "")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info().
		Str("scratch_dir", scratchDir.Path()).
		Str("converter", cfg.Converter.Binary).
		Str("max_file_size", humanize.IBytes(uint64(cfg.Upload.MaxFileSize))).
		Bool("storage", cfg.Storage.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("Application configured")

	return &App{
		cfg:      cfg,
		server:   server,
		logger:   logger,
		sessions: sessions,
		producer: producer,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)
	go a.sessions.Run(ctx, a.cfg.Session.SweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Error().Err(err).Msg("Failed to close producer")
			}
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
