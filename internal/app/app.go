// Package app assembles a runnable scribe service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/scribe"
	"github.com/aretw0/scribe/internal/config"
	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/pkg/adapters/allowlist"
	"github.com/aretw0/scribe/pkg/adapters/file"
	scribehttp "github.com/aretw0/scribe/pkg/adapters/http"
	"github.com/aretw0/scribe/pkg/adapters/memory"
	"github.com/aretw0/scribe/pkg/adapters/redis"
	"github.com/aretw0/scribe/pkg/adapters/sqlite"
	"github.com/aretw0/scribe/pkg/adapters/telegram"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/observability"
	"github.com/aretw0/scribe/pkg/pending"
	"github.com/aretw0/scribe/pkg/persistence/middleware"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/aretw0/scribe/pkg/segment"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	restoreTimeout  = 10 * time.Second
)

// History keeps delivered checklists and business connections. Every store
// driver provides one next to its pending store.
type History interface {
	ports.ChecklistRecorder
	ports.ConnectionStore
}

// App holds the wired components of one scribe process.
type App struct {
	Config      *config.Config
	Coordinator *scribe.Coordinator
	Allowlist   *allowlist.Allowlist
	Metrics     *observability.Metrics
	Streams     *scribehttp.StreamManager
	Store       ports.PendingStore
	History     History

	telegram *telegram.Client
	logger   *slog.Logger
	closers  []func() error
}

// New builds the store chain, authorizer, emitter and coordinator described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &App{
		Config:  cfg,
		Metrics: observability.New(),
		Streams: scribehttp.NewStreamManager(),
		logger:  logger,
	}

	store, err := a.buildStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store

	a.Allowlist = allowlist.New(cfg.Allowlist.Users...)
	if err := a.restoreConnections(); err != nil {
		_ = a.Close()
		return nil, err
	}
	for conn, owner := range cfg.Allowlist.Owners {
		a.Allowlist.SetOwner(conn, owner)
	}

	var emitter ports.ChecklistEmitter = logEmitter{logger: logger}
	if cfg.Telegram.Enabled {
		a.telegram = telegram.NewClient(cfg.Telegram.Token, telegram.WithAPIURL(cfg.Telegram.APIURL))
		emitter = telegram.NewEmitter(a.telegram)
	}

	seg := segment.New(cfg.SegmentOptions()...)
	coord, err := scribe.New(store, a.Allowlist, a.Metrics.InstrumentEmitter(emitter),
		scribe.WithLogger(logger),
		scribe.WithSegmenter(seg),
		scribe.WithRecorder(a.History),
		scribe.WithLifecycleHooks(a.Metrics.Hooks()),
		scribe.WithLifecycleHooks(a.Streams.Hooks()),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Coordinator = coord
	return a, nil
}

func (a *App) buildStore() (ports.PendingStore, error) {
	sc := a.Config.Store
	var (
		base   ports.PendingStore
		locker ports.DistributedLocker
	)

	switch sc.Driver {
	case config.DriverMemory, "":
		s := memory.NewStore()
		base, a.History = s, s
	case config.DriverFile:
		s := file.New(sc.Path)
		base, a.History = s, s
	case config.DriverSQLite:
		s, err := sqlite.New(sc.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		base, a.History = s, s
	case config.DriverRedis:
		s := redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redis.WithPrefix(sc.Redis.Prefix),
			redis.WithHistoryPrefix(sc.Redis.HistoryPrefix),
			redis.WithTTL(sc.TTL),
		)
		a.closers = append(a.closers, s.Close)
		base, a.History = s, s
		prefix := sc.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		locker = redis.NewLocker(s.Client(), prefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}

	var mws []middleware.Middleware
	if sc.TTL > 0 {
		mws = append(mws, middleware.NewExpiry(sc.TTL))
	}
	key, err := a.Config.EncryptionKey()
	if err != nil {
		return nil, err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}

	opts := []pending.Option{pending.WithLogger(a.logger), pending.WithLockTTL(sc.LockTTL)}
	if locker != nil {
		opts = append(opts, pending.WithLocker(locker))
	}

	a.logger.Info("Pending store ready",
		"driver", sc.Driver,
		"ttl", sc.TTL,
		"encrypted", key != nil,
		"distributed_lock", locker != nil,
	)
	return pending.NewManager(middleware.Chain(base, mws...), opts...), nil
}

// restoreConnections loads the owners of enabled business connections.
func (a *App) restoreConnections() error {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	conns, err := a.History.ListConnections(ctx)
	if err != nil {
		return fmt.Errorf("failed to load business connections: %w", err)
	}
	enabled := 0
	for _, c := range conns {
		if c.Enabled {
			a.Allowlist.SetOwner(c.ID, c.OwnerID)
			enabled++
		}
	}
	if enabled > 0 {
		a.logger.Info("Business connections restored", "enabled", enabled, "known", len(conns))
	}
	return nil
}

// Handler returns the HTTP API bound to the coordinator.
func (a *App) Handler() http.Handler {
	return scribehttp.NewHandler(a.Coordinator,
		scribehttp.WithLogger(a.logger),
		scribehttp.WithMetrics(a.Metrics),
		scribehttp.WithStreams(a.Streams),
		scribehttp.WithToken(a.Config.HTTP.Token),
		scribehttp.WithChecklists(a.History),
		scribehttp.WithMaxInputSize(a.Config.MaxInputSize),
	)
}

// isLoopback reports whether addr only accepts local connections.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Poller returns a Telegram poller, or nil when Telegram is disabled.
func (a *App) Poller() (*telegram.Poller, error) {
	if a.telegram == nil {
		return nil, nil
	}
	return telegram.NewPoller(a.telegram, a.Coordinator,
		telegram.WithLogger(a.logger),
		telegram.WithOwnerRegistry(a.Allowlist),
		telegram.WithConnectionStore(a.History),
		telegram.WithMetrics(a.Metrics),
		telegram.WithPollTimeout(a.Config.Telegram.PollTimeout),
		telegram.WithDedupSize(a.Config.Telegram.DedupSize),
		telegram.WithMaxInputSize(a.Config.MaxInputSize),
	)
}

// Run serves HTTP and, when enabled, polls Telegram until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	poller, err := a.Poller()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.Config.HTTP.Token == "" && !isLoopback(srv.Addr) {
		a.logger.Warn("HTTP API reachable beyond localhost without a token; set http.token", "address", srv.Addr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		return nil
	})
	if poller != nil {
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	err = g.Wait()
	a.logger.Info("Scribe stopped")
	return err
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// logEmitter stands in for a delivery channel when none is configured.
type logEmitter struct {
	logger *slog.Logger
}

func (e logEmitter) EmitChecklist(ctx context.Context, req domain.ChecklistRequest) (string, error) {
	e.logger.Info("Checklist ready (no delivery channel configured)",
		"chat_id", req.ChatID,
		"reply_to", req.ReplyTo,
		"title", req.Title,
		"tasks", len(req.Tasks),
	)
	return "", nil
}
