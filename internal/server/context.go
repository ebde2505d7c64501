package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/instrumentation"
	"github.com/mailtools/mailbridge/internal/mailbox"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/token"
)

// ServerContext holds the shared dependencies for the MCP server: the
// credential store, the token lifecycle manager, configuration, and
// the metrics recorder. It replaces ambient global state with one
// explicitly owned handle passed to tool handlers.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     config.Config
	store   *store.Store
	tokens  *token.Manager
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, cfg config.Config, st *store.Store, tokens *token.Manager, metrics *instrumentation.Metrics, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		cfg:     cfg,
		store:   st,
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

// Store returns the credential record store.
func (sc *ServerContext) Store() *store.Store {
	return sc.store
}

// Tokens returns the token lifecycle manager.
func (sc *ServerContext) Tokens() *token.Manager {
	return sc.tokens
}

// Metrics returns the metrics recorder.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the base logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// OpenSession ensures the account's credential is usable and opens an
// authenticated IMAP session with it. The possibly-refreshed record is
// returned so callers see updated token state. Sessions are opened per
// operation and never cached; the caller owns Close.
func (sc *ServerContext) OpenSession(rec store.Record) (*mailbox.Session, store.Record, error) {
	updated, credential, err := sc.tokens.EnsureUsable(sc.ctx, rec)
	if err != nil {
		return nil, rec, err
	}

	session, err := mailbox.Open(updated, credential, sc.cfg, sc.logger)
	if err != nil {
		return nil, updated, err
	}
	sc.metrics.IncrementActiveSessions(sc.ctx)
	return session, updated, nil
}

// CloseSession tears the session down and updates the session gauge.
func (sc *ServerContext) CloseSession(session *mailbox.Session) {
	session.Close()
	sc.metrics.DecrementActiveSessions(sc.ctx)
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
