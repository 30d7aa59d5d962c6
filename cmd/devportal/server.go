package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/artpar/devportal/internal/engine"
	"github.com/artpar/devportal/internal/shell/api"
	"github.com/artpar/devportal/internal/shell/email"
	"github.com/artpar/devportal/internal/shell/identity"
	"github.com/artpar/devportal/internal/shell/storage"
	"github.com/artpar/devportal/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitAWSError        = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server is the portal application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	logger     *slog.Logger
}

// NewServer wires the store, the identity provider, object storage and the
// mailer into the HTTP surface.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitConfigError}
	}

	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}

	var awsCfg aws.Config
	if cfg.Identity.Mode == "cognito" || cfg.Storage.Mode == "s3" || cfg.Email.Mode == "ses" {
		awsCfg, err = loadAWSConfig(cfg)
		if err != nil {
			s.Close()
			return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitAWSError}
		}
	}

	var idp identity.Provider
	switch cfg.Identity.Mode {
	case "cognito":
		idp = identity.NewCognitoProvider(awsCfg, cfg.Identity.PoolID, cfg.Identity.ClientID)
		logger.Info("identity provider: cognito", "pool", cfg.Identity.PoolID)
	default:
		idp = identity.NewDevPool()
		logger.Warn("identity provider: in-memory dev pool, accounts are not persisted")
	}

	var objects storage.ObjectStore
	switch cfg.Storage.Mode {
	case "s3":
		objects = storage.NewS3Store(awsCfg, cfg.Storage.Bucket)
		logger.Info("object storage: s3", "bucket", cfg.Storage.Bucket)
	default:
		objects = storage.NewMemoryStore()
		logger.Warn("object storage: in-memory, icon checks will fail for unseeded keys")
	}

	var mailer email.Mailer
	switch cfg.Email.Mode {
	case "ses":
		mailer = email.NewSESMailer(awsCfg, cfg.Email.Sender)
		logger.Info("mailer: ses", "sender", cfg.Email.Sender)
	default:
		mailer = email.NewLogMailer(logger)
		logger.Warn("mailer: log only, no mail leaves the process")
	}

	handler := api.SetupAPI(api.APIConfig{
		Apps:     engine.NewAppService(s, logger),
		Approval: engine.NewApprovalService(s, objects, mailer, cfg.Email.ReviewAddress, logger),
		Vendors:  engine.NewVendorService(s, idp, mailer, cfg.Portal.BaseURL, logger),
		Identity: idp,
		Logger:   logger,
		BaseURL:  cfg.Portal.BaseURL,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		logger:     logger,
	}, nil
}

// loadAWSConfig builds the shared AWS client configuration. Static keys from
// the config win; otherwise the default provider chain applies.
func loadAWSConfig(cfg *Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(context.Background(), opts...)
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{Op: "Start", Err: err, ExitCode: ExitHTTPServerError}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
