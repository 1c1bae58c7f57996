package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/aileana/walletcore/internal/core/activity"
	"github.com/aileana/walletcore/internal/core/crypto"
	"github.com/aileana/walletcore/internal/core/handler"
	"github.com/aileana/walletcore/internal/core/logger"
	middlWre "github.com/aileana/walletcore/internal/core/middleware"
	"github.com/aileana/walletcore/internal/core/provider"
	"github.com/aileana/walletcore/internal/core/repository/postgres"
	"github.com/aileana/walletcore/internal/core/usecase"
	"github.com/aileana/walletcore/pkg/config"
	"github.com/aileana/walletcore/pkg/postgresdb"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

type Server struct {
	router     *mux.Router
	log        logger.Logger
	addr       string
	httpServer *http.Server
	db         *postgresdb.Database
	notifier   *activity.Notifier

	walletHandler  *handler.WalletHandler
	webhookHandler *handler.WebhookHandler
}

func NewServer(log logger.Logger) (*Server, error) {
	cfgDB, err := config.LoadConfigDB()
	if err != nil {
		return nil, err
	}
	cfgApp, err := config.LoadAppConfig()
	if err != nil {
		return nil, err
	}

	db, err := postgresdb.NewPostgresDB(*cfgDB, log)
	if err != nil {
		return nil, err
	}

	codec, err := crypto.NewBalanceCodec(cfgApp.EncryptionKey)
	if err != nil {
		return nil, err
	}

	store := postgres.NewStore(db.DB, codec, log)
	store.SetTxTimeout(cfgApp.TxTimeout)

	notifier := activity.NewNotifier(cfgApp.ActivityBufferSize, log)
	accounts := provider.NewClient(provider.Config{
		BaseURL:      cfgApp.ProviderBaseURL,
		APIKey:       cfgApp.ProviderAPIKey,
		ContractCode: cfgApp.ProviderContract,
	}, log)

	ledgerService := usecase.NewLedgerService(store, log)
	transactionService := usecase.NewTransactionService(store, log)
	walletService := usecase.NewWalletService(store, ledgerService, transactionService, accounts, notifier, log)

	server := &Server{
		log:            log,
		router:         mux.NewRouter(),
		addr:           ":" + cfgApp.HTTPPort,
		db:             db,
		notifier:       notifier,
		walletHandler:  handler.NewWalletHandler(walletService, ledgerService, log),
		webhookHandler: handler.NewWebhookHandler(walletService, transactionService, log),
	}

	mw := middleware.New(middleware.Config{
		Recorder: prometheus.NewRecorder(prometheus.Config{}),
	})
	server.router.Use(func(next http.Handler) http.Handler {
		return std.Handler("", mw, next)
	})

	server.RegisterRoutes()

	return server, nil
}

func (s *Server) RegisterRoutes() {
	s.router.Use(
		middlWre.RequestLogger(s.log),
		middlWre.Recovery(s.log),
	)
	s.walletHandler.RegisterRoutes(s.router)
	s.webhookHandler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

// Addr is the listen address from APP_PORT.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
	}

	s.httpServer = srv

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	go func() {
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		if s.notifier != nil {
			s.notifier.Close()
		}

		if s.db != nil {
			if err := s.db.Close(); err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}

		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
